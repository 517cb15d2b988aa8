// Package match owns the state of one chess match: position, history,
// outcome, clock and the hand-off to the search engine when the computer is
// to move.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/chess/eco"
	"github.com/park285/cheese-chess/internal/chess/rules"
	"github.com/park285/cheese-chess/internal/clock"
	"github.com/park285/cheese-chess/pkg/matchdto"
)

const tickStep = time.Second

// Searcher is the part of chess.Engine the controller depends on.
type Searcher interface {
	Ready() <-chan struct{}
	Idle() <-chan struct{}
	Request(ctx context.Context, req chess.SearchRequest) (*chess.Pending, error)
}

type OpeningBook interface {
	Classify(moves []string) eco.Label
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithComputerDelay pauses before each computer search so the reply does not
// land on the board instantly.
func WithComputerDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = max(d, 0)
	}
}

func WithOpeningBook(b OpeningBook) Option {
	return func(c *Controller) {
		c.book = b
	}
}

func WithTicker(newTicker func(time.Duration) clock.Ticker) Option {
	return func(c *Controller) {
		if newTicker != nil {
			c.newTicker = newTicker
		}
	}
}

// maxOpeningPly bounds ECO lookups; later positions keep the last label.
const maxOpeningPly = 40

// Controller serializes every mutation of a match under mu. Human input,
// search replies and clock ticks all funnel through the same lock, and each
// mutation publishes a new snapshot before the lock is released.
type Controller struct {
	id        string
	searcher  Searcher
	book      OpeningBook
	logger    *zap.Logger
	delay     time.Duration
	newTicker func(time.Duration) clock.Ticker
	now       func() time.Time

	mu         sync.Mutex
	settings   Settings
	baseCtx    context.Context
	baseCancel context.CancelFunc
	phase      matchdto.Phase
	pos        rules.Position
	positions  []rules.Position // positions[0] is the start, positions[i] follows records[i-1]
	records    []rules.MoveRecord
	outcome    *matchdto.Outcome

	clock    *clock.Clock
	runner   *clock.Runner
	clockGen uint64

	version    uint64
	epoch      uint64 // bumped whenever the position or phase changes; keys search requests
	thinking   bool
	turnCancel context.CancelFunc
	engineErr  string
	freshGame  bool // no search issued since the game began

	opening      eco.Label
	openingEpoch uint64

	snap    matchdto.Snapshot
	subs    map[int]chan matchdto.Snapshot
	nextSub int
	closed  bool
}

// NewController validates settings and returns a controller in the setup
// phase. A nil searcher is only accepted for human-vs-human play.
func NewController(settings Settings, searcher Searcher, opts ...Option) (*Controller, error) {
	settings = settings.Normalize()
	if settings.Mode == HumanVsComputer && searcher == nil {
		return nil, ErrNoSearcher
	}
	c := &Controller{
		id:        uuid.NewString(),
		searcher:  searcher,
		logger:    zap.NewNop(),
		newTicker: clock.NewTicker,
		now:       time.Now,
		settings:  settings,
		phase:     matchdto.PhaseSetup,
		pos:       rules.StartPosition(),
		clock:     clock.New(settings.TimeBudget),
		subs:      make(map[int]chan matchdto.Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.positions = []rules.Position{c.pos}
	c.logger = c.logger.With(zap.String("match_id", c.id))

	c.mu.Lock()
	c.publishLocked()
	c.mu.Unlock()
	return c, nil
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Start moves the match into play. ctx bounds the clock and every search;
// calling Start again has no effect.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.phase != matchdto.PhaseSetup {
		return nil
	}
	c.baseCtx, c.baseCancel = context.WithCancel(ctx)
	c.beginLocked()
	return nil
}

func (c *Controller) beginLocked() {
	c.cancelTurnLocked()
	if c.runner != nil {
		c.runner.Halt()
		c.runner = nil
	}

	c.pos = rules.StartPosition()
	c.positions = []rules.Position{c.pos}
	c.records = nil
	c.outcome = nil
	c.engineErr = ""

	c.clock = clock.New(c.settings.TimeBudget)
	c.clockGen++
	if c.clock.Timed() {
		gen := c.clockGen
		c.runner = clock.Run(c.baseCtx, c.newTicker(tickStep), func() { c.onTick(gen) })
	}

	c.phase = matchdto.PhaseInProgress
	c.freshGame = true
	c.epoch++
	c.logger.Info("match started",
		zap.String("mode", string(c.settings.Mode)),
		zap.String("difficulty", string(c.settings.Difficulty)),
		zap.Duration("time_budget", c.settings.TimeBudget),
	)
	c.maybeRequestComputerLocked()
	c.publishLocked()
}

// MakeMove applies a human move. Illegal moves leave the match unchanged and
// return an error wrapping rules.ErrIllegalMove.
func (c *Controller) MakeMove(m rules.Move) (rules.MoveRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return rules.MoveRecord{}, ErrClosed
	case c.phase == matchdto.PhaseSetup:
		return rules.MoveRecord{}, ErrMatchNotStarted
	case c.phase == matchdto.PhaseCompleted:
		return rules.MoveRecord{}, ErrMatchCompleted
	case c.computerTurnLocked():
		return rules.MoveRecord{}, ErrNotHumanTurn
	}
	return c.applyLocked(m)
}

func (c *Controller) applyLocked(m rules.Move) (rules.MoveRecord, error) {
	next, rec, err := rules.ApplyMove(c.pos, m)
	if err != nil {
		return rules.MoveRecord{}, err
	}
	c.pos = next
	c.positions = append(c.positions, next)
	c.records = append(c.records, rec)
	c.epoch++
	c.logger.Info("move applied",
		zap.Int("ply", rec.Index),
		zap.String("san", rec.SAN),
		zap.String("side", rec.Piece.Color.String()),
	)

	if st := rules.TerminalStatus(next); st.Terminal() {
		c.completeLocked(outcomeFromStatus(st))
	} else {
		c.maybeRequestComputerLocked()
	}
	c.publishLocked()
	return rec, nil
}

func (c *Controller) completeLocked(o *matchdto.Outcome) {
	c.outcome = o
	c.phase = matchdto.PhaseCompleted
	c.thinking = false
	c.cancelTurnLocked()
	if c.runner != nil {
		c.runner.Halt()
		c.runner = nil
	}
	c.epoch++
	c.logger.Info("match completed",
		zap.String("winner", string(o.Winner)),
		zap.String("reason", string(o.Reason)),
		zap.Int("plies", len(c.records)),
	)
}

// Undo takes back the last move, or in human-vs-computer play the last
// exchange, so the human is to move again. It reports whether anything
// changed.
func (c *Controller) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != matchdto.PhaseInProgress || !c.settings.UndoAllowed || c.thinking {
		return false
	}
	n := 1
	if c.settings.Mode == HumanVsComputer && !c.computerTurnLocked() {
		n = 2
	}
	if len(c.records) < n {
		return false
	}
	c.records = c.records[:len(c.records)-n]
	c.positions = c.positions[:len(c.positions)-n]
	c.pos = c.positions[len(c.positions)-1]
	c.engineErr = ""
	c.epoch++
	c.logger.Debug("moves taken back", zap.Int("count", n), zap.Int("ply", len(c.records)))
	c.publishLocked()
	return true
}

// Resign ends the match in favour of the opponent of the side to move and
// abandons any pending computer search.
func (c *Controller) Resign() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != matchdto.PhaseInProgress {
		return false
	}
	loser := c.pos.Turn()
	c.completeLocked(&matchdto.Outcome{Winner: winnerOf(loser.Opposite()), Reason: matchdto.ReasonResignation})
	c.publishLocked()
	return true
}

// Restart begins a fresh game with the current settings.
func (c *Controller) Restart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restartLocked(c.settings)
}

// RestartWith begins a fresh game with new settings. Invalid fields fall
// back to their defaults.
func (c *Controller) RestartWith(s Settings) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restartLocked(s.Normalize())
}

func (c *Controller) restartLocked(s Settings) bool {
	if c.closed || c.phase == matchdto.PhaseSetup {
		return false
	}
	if s.Mode == HumanVsComputer && c.searcher == nil {
		return false
	}
	c.settings = s
	c.beginLocked()
	return true
}

// RetryComputer asks the engine again after a failed search.
func (c *Controller) RetryComputer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != matchdto.PhaseInProgress || c.thinking || !c.computerTurnLocked() {
		return false
	}
	c.maybeRequestComputerLocked()
	c.publishLocked()
	return true
}

// LegalDestinations lists where the piece on sq may move. It is empty while
// the human cannot move.
func (c *Controller) LegalDestinations(sq rules.Square) []rules.Square {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inputEnabledLocked() {
		return nil
	}
	return rules.LegalDestinations(c.pos, sq)
}

// Snapshot returns the latest published view. Callers must not modify its
// slices.
func (c *Controller) Snapshot() matchdto.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe returns a channel that receives the current snapshot at once
// and every later one. A slow reader loses intermediate snapshots, never the
// latest. cancel releases the subscription and closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan matchdto.Snapshot, func()) {
	ch := make(chan matchdto.Snapshot, max(buffer, 1))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snap
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close stops the clock and any search and closes every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.thinking = false
	c.cancelTurnLocked()
	if c.baseCancel != nil {
		c.baseCancel()
	}
	runner := c.runner
	c.runner = nil
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	if runner != nil {
		runner.Stop()
	}
}

func (c *Controller) computerTurnLocked() bool {
	return c.settings.Mode == HumanVsComputer && c.pos.Turn() == c.settings.ComputerColor
}

func (c *Controller) inputEnabledLocked() bool {
	return !c.closed && c.phase == matchdto.PhaseInProgress && !c.computerTurnLocked()
}

func (c *Controller) cancelTurnLocked() {
	if c.turnCancel != nil {
		c.turnCancel()
		c.turnCancel = nil
	}
	c.thinking = false
}

func (c *Controller) maybeRequestComputerLocked() {
	if c.phase != matchdto.PhaseInProgress || !c.computerTurnLocked() {
		return
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.turnCancel = cancel
	c.thinking = true
	c.engineErr = ""
	go c.computerTurn(ctx, chess.SearchRequest{
		Key:        c.epoch,
		FEN:        c.pos.FEN(),
		Difficulty: c.settings.Difficulty,
		NewGame:    c.freshGame,
	})
	c.freshGame = false
}

func (c *Controller) computerTurn(ctx context.Context, req chess.SearchRequest) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
	select {
	case <-ctx.Done():
		return
	case <-c.searcher.Ready():
	}

	var p *chess.Pending
	for {
		var err error
		p, err = c.searcher.Request(ctx, req)
		if err == nil {
			break
		}
		if !errors.Is(err, chess.ErrEngineBusy) {
			c.deliver(chess.SearchResult{Key: req.Key, Err: err})
			return
		}
		// A cancelled search from an earlier turn is still draining.
		select {
		case <-ctx.Done():
			return
		case <-c.searcher.Idle():
		}
	}

	select {
	case <-p.Done():
		c.deliver(p.Result())
	case <-ctx.Done():
		p.Cancel()
	}
}

func (c *Controller) deliver(res chess.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || res.Key != c.epoch || !c.thinking {
		c.logger.Debug("stale search reply dropped",
			zap.Uint64("key", res.Key),
			zap.Uint64("epoch", c.epoch),
			zap.String("move", res.Move),
		)
		return
	}
	c.cancelTurnLocked()

	if res.Err != nil {
		c.engineErr = res.Err.Error()
		c.logger.Warn("computer move unavailable", zap.Error(res.Err))
		c.publishLocked()
		return
	}
	m, err := rules.ParseMove(res.Move)
	if err == nil {
		_, err = c.applyLocked(m)
	}
	if err != nil {
		c.engineErr = fmt.Sprintf("search engine proposed %q: %v", res.Move, err)
		c.logger.Warn("computer move rejected", zap.String("move", res.Move), zap.Error(err))
		c.publishLocked()
	}
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.clockGen || c.phase != matchdto.PhaseInProgress {
		return
	}
	side := c.pos.Turn()
	if c.clock.Unlimited(side) {
		return
	}
	if c.clock.Tick(side, tickStep) {
		c.completeLocked(&matchdto.Outcome{Winner: winnerOf(side.Opposite()), Reason: matchdto.ReasonTimeForfeit})
	}
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	c.version++
	c.snap = c.buildSnapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- c.snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c.snap:
		default:
		}
	}
}
