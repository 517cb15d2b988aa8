package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
	maxLineBytes         = 1 << 20
)

var ErrSessionClosed = errors.New("uci: session closed")

type Options struct {
	Threads    int
	HashMB     int
	SkillLevel int
}

type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

// Session is one running engine process speaking the UCI text protocol.
// A single goroutine owns the read side and hands lines over a channel, so
// abandoned reads never leave stray readers behind.
type Session struct {
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	closer func() error
	logger *zap.Logger

	readErr   error
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	search sync.Mutex
}

// NewSession starts binaryPath and completes the uci/isready handshake.
func NewSession(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	// The process must outlive the handshake context.
	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := newSession(stdout, stdin, logger, func() error {
		_ = cmd.Process.Kill()
		return cmd.Wait()
	})
	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Attach runs the handshake over an existing transport, such as a socket to
// a remote engine. Closing the session closes w.
func Attach(ctx context.Context, r io.Reader, w io.WriteCloser, opt Options, logger *zap.Logger) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	s := newSession(r, w, logger, nil)
	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSession(r io.Reader, w io.WriteCloser, logger *zap.Logger, closer func() error) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		stdin:  w,
		lines:  make(chan string, 64),
		done:   make(chan struct{}),
		closer: closer,
		logger: logger,
	}
	go s.pump(r)
	return s
}

func (s *Session) pump(r io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for sc.Scan() {
		select {
		case s.lines <- strings.TrimSpace(sc.Text()):
		case <-s.done:
			return
		}
	}
	s.readErr = sc.Err()
}

type SearchRequest struct {
	FEN      string
	GoTokens []string
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
}

// Search sends the position and go command and waits for bestmove. It sets
// no deadline of its own. When ctx ends first the engine is told to stop and
// its remaining output is drained so the next search starts clean.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if len(req.GoTokens) == 0 || req.GoTokens[0] != "go" {
		return SearchResponse{}, fmt.Errorf("go command required, got %q", strings.Join(req.GoTokens, " "))
	}
	positionCmd := buildPositionCommand(req.FEN)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}
	goCmd := strings.Join(req.GoTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	candidates := make(map[int]Candidate)
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.abandon()
				return SearchResponse{}, ctx.Err()
			}
			s.logger.Warn("uci read failed",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return SearchResponse{}, fmt.Errorf("read line: %w", err)
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if mv, cand, ok := parseInfo(line); ok {
				candidates[mv] = cand
			}
		case strings.HasPrefix(line, "bestmove"):
			return SearchResponse{Candidates: collapseCandidates(candidates), BestMove: parseBestMove(line)}, nil
		}
	}
}

// abandon stops a cancelled search and discards output up to its bestmove.
func (s *Session) abandon() {
	if err := s.Stop(); err != nil {
		s.logger.Warn("uci stop failed", zap.Error(err))
		return
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), defaultReadyTimeout)
	defer cancel()
	if err := s.awaitPrefix(drainCtx, "bestmove"); err != nil {
		s.logger.Warn("uci drain after stop failed", zap.Error(err))
	}
}

func parseBestMove(line string) string {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[1] == "(none)" {
		return ""
	}
	return parts[1]
}

func buildPositionCommand(fen string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	return nil
}

func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return 0, Candidate{}, false
	}
	var (
		multipv = 1
		evalCP  int
		pvIdx   = -1
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				kind := parts[i+1]
				val := parts[i+2]
				switch kind {
				case "cp":
					if v, err := strconv.Atoi(val); err == nil {
						evalCP = v
					}
				case "mate":
					if v, err := strconv.Atoi(val); err == nil {
						const mateValue = 30000
						if v >= 0 {
							evalCP = mateValue
						} else {
							evalCP = -mateValue
						}
					}
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if pvIdx == -1 || pvIdx >= len(parts) {
		return 0, Candidate{}, false
	}
	principal := parts[pvIdx:]
	cand := Candidate{
		Move:      principal[0],
		EvalCP:    evalCP,
		Principal: append([]string(nil), principal...),
	}
	return multipv, cand, true
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame tells the engine the next search belongs to a different game and
// waits until it is ready again. It waits for any search still draining.
func (s *Session) NewGame(ctx context.Context) error {
	s.search.Lock()
	defer s.search.Unlock()

	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		s.logger.Warn("uci ensure ready retry after ucinewgame",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", newGameRetryAttempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

func (s *Session) SetOption(name, value string) error {
	if err := s.send(fmt.Sprintf("setoption name %s value %s\n", name, value)); err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	return nil
}

func (s *Session) Stop() error {
	if err := s.send("stop\n"); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.stdin != nil {
			s.stdin.Close()
		}
		s.mu.Unlock()
		if s.closer != nil {
			s.closeErr = s.closer()
		}
	})
	return s.closeErr
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	threadCount := opt.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	if err := s.SetOption("Threads", strconv.Itoa(threadCount)); err != nil {
		return fmt.Errorf("apply options: %w", err)
	}
	if opt.HashMB > 0 {
		if err := s.SetOption("Hash", strconv.Itoa(opt.HashMB)); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if err := s.SetOption("Skill Level", strconv.Itoa(opt.SkillLevel)); err != nil {
		return fmt.Errorf("apply options: %w", err)
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) awaitPrefix(ctx context.Context, prefix string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.HasPrefix(line, prefix) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", s.readErr
			}
			return "", io.EOF
		}
		return line, nil
	}
}
