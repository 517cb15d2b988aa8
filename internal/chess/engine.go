package chess

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/chess/uci"
)

var (
	ErrEngineNotReady    = errors.New("search engine not ready")
	ErrEngineUnavailable = errors.New("search engine unavailable")
	ErrEngineBusy        = errors.New("search engine busy")
	ErrNoMove            = errors.New("search engine returned no move")
)

// SearchSession is the part of uci.Session the engine drives.
type SearchSession interface {
	SetOption(name, value string) error
	NewGame(ctx context.Context) error
	Search(ctx context.Context, req uci.SearchRequest) (uci.SearchResponse, error)
	Close() error
}

// SessionFactory opens a session that has already completed its handshake.
type SessionFactory interface {
	Open(ctx context.Context) (SearchSession, error)
}

// ProcessFactory launches the engine binary at BinaryPath.
type ProcessFactory struct {
	BinaryPath string
	Options    uci.Options
	Logger     *zap.Logger
}

func (f ProcessFactory) Open(ctx context.Context) (SearchSession, error) {
	s, err := uci.NewSession(ctx, f.BinaryPath, f.Options, f.Logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

// SearchRequest asks for a move in FEN. Key is opaque to the engine and is
// echoed back so callers can match replies to the position they asked about.
// NewGame resets the session's game state before searching.
type SearchRequest struct {
	Key        uint64
	FEN        string
	Difficulty Difficulty
	NewGame    bool
}

type SearchResult struct {
	Key        uint64
	Move       string
	Candidates []Candidate
	Duration   time.Duration
	Err        error
}

// Pending is an in-flight search.
type Pending struct {
	key    uint64
	done   chan struct{}
	cancel context.CancelFunc
	result SearchResult
}

func (p *Pending) Key() uint64 { return p.key }

// Done is closed once Result is available.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Result must only be read after Done is closed.
func (p *Pending) Result() SearchResult { return p.result }

// Cancel abandons the search. Result then carries the context error.
func (p *Pending) Cancel() { p.cancel() }

// Engine serializes access to one long-lived search session. The handshake
// runs once in the background; until it finishes every request fails fast.
type Engine struct {
	factory SessionFactory
	logger  *zap.Logger

	startOnce sync.Once
	ready     chan struct{}

	mu       sync.Mutex
	session  SearchSession
	startErr error
	busy     bool
	idle     chan struct{}
	closed   bool
}

type EngineOption func(*Engine)

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(factory SessionFactory, opts ...EngineOption) *Engine {
	idle := make(chan struct{})
	close(idle)
	e := &Engine{
		factory: factory,
		logger:  zap.NewNop(),
		ready:   make(chan struct{}),
		idle:    idle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins the handshake. Later calls do nothing.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		go e.handshake(ctx)
	})
}

func (e *Engine) handshake(ctx context.Context) {
	defer close(e.ready)
	start := time.Now()
	sess, err := e.factory.Open(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case err != nil:
		e.startErr = err
		e.logger.Error("search engine handshake failed", zap.Error(err))
	case e.closed:
		_ = sess.Close()
		e.startErr = errors.New("engine closed during handshake")
	default:
		e.session = sess
		e.logger.Info("search engine ready", zap.Duration("elapsed", time.Since(start)))
	}
}

// Ready is closed when the handshake has finished, successfully or not.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Err reports the handshake failure, if any.
func (e *Engine) Err() error {
	select {
	case <-e.ready:
	default:
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return e.unavailable()
	}
	return nil
}

// Idle is closed when no search is in flight at the time of the call.
func (e *Engine) Idle() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idle
}

func (e *Engine) unavailable() error {
	if e.startErr != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, e.startErr)
	}
	return ErrEngineUnavailable
}

// Request starts a search and returns immediately. At most one search runs
// at a time; a second request gets ErrEngineBusy.
func (e *Engine) Request(ctx context.Context, req SearchRequest) (*Pending, error) {
	preset, err := GetPreset(req.Difficulty)
	if err != nil {
		return nil, err
	}
	goTokens, err := BuildGoCommand(preset)
	if err != nil {
		return nil, err
	}

	select {
	case <-e.ready:
	default:
		return nil, ErrEngineNotReady
	}

	e.mu.Lock()
	if e.session == nil || e.closed {
		err := e.unavailable()
		e.mu.Unlock()
		return nil, err
	}
	if e.busy {
		e.mu.Unlock()
		return nil, ErrEngineBusy
	}
	e.busy = true
	e.idle = make(chan struct{})
	sess := e.session
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p := &Pending{key: req.Key, done: make(chan struct{}), cancel: cancel}
	go e.run(runCtx, sess, req, preset, goTokens, p)
	return p, nil
}

func (e *Engine) run(ctx context.Context, sess SearchSession, req SearchRequest, preset DifficultyPreset, goTokens []string, p *Pending) {
	start := time.Now()
	res := SearchResult{Key: req.Key}
	defer func() {
		res.Duration = time.Since(start)
		p.result = res

		e.mu.Lock()
		e.busy = false
		close(e.idle)
		e.mu.Unlock()

		close(p.done)
		p.cancel()
	}()

	if req.NewGame {
		if err := sess.NewGame(ctx); err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
			} else {
				res.Err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
			}
			return
		}
	}
	if err := sess.SetOption("Skill Level", strconv.Itoa(preset.SkillLevel)); err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		return
	}
	resp, err := sess.Search(ctx, uci.SearchRequest{FEN: req.FEN, GoTokens: goTokens})
	switch {
	case err != nil && ctx.Err() != nil:
		res.Err = ctx.Err()
	case err != nil:
		res.Err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		e.logger.Warn("search failed",
			zap.Uint64("key", req.Key),
			zap.String("difficulty", string(preset.Name)),
			zap.Error(err),
		)
	case resp.BestMove == "":
		res.Err = ErrNoMove
	default:
		res.Move = resp.BestMove
		res.Candidates = convertCandidates(resp.Candidates)
		e.logger.Debug("search finished",
			zap.Uint64("key", req.Key),
			zap.String("difficulty", string(preset.Name)),
			zap.Strings("go", goTokens),
			zap.String("bestmove", res.Move),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func convertCandidates(in []uci.Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		out = append(out, Candidate{
			Move:      c.Move,
			EvalCP:    c.EvalCP,
			Principal: append([]string(nil), c.Principal...),
		})
	}
	return out
}

// Close shuts the session down. A search in flight ends with an error.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	sess := e.session
	e.session = nil
	e.mu.Unlock()
	if sess == nil {
		return nil
	}
	return sess.Close()
}
