package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeEngine answers the subset of UCI the session speaks. With hang set it
// withholds bestmove until it receives stop.
type fakeEngine struct {
	hang bool

	mu       sync.Mutex
	commands []string

	out *io.PipeWriter
}

func (f *fakeEngine) serve(in io.Reader) {
	defer f.out.Close()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		f.mu.Lock()
		f.commands = append(f.commands, line)
		hang := f.hang
		f.mu.Unlock()
		switch {
		case line == "uci":
			f.reply("id name fake", "uciok")
		case line == "isready":
			f.reply("readyok")
		case strings.HasPrefix(line, "go"):
			if !hang {
				f.reply(
					"info depth 1 multipv 2 score cp -15 pv d2d4 d7d5",
					"info depth 1 multipv 1 score cp 30 pv e2e4 e7e5",
					"bestmove e2e4 ponder e7e5",
				)
			}
		case line == "stop":
			f.reply("bestmove a2a3")
		}
	}
}

func (f *fakeEngine) reply(lines ...string) {
	for _, l := range lines {
		fmt.Fprintln(f.out, l)
	}
}

func (f *fakeEngine) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func attachFake(t *testing.T, f *fakeEngine, opt Options) *Session {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	f.out = outW
	go f.serve(inR)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := Attach(ctx, outR, inW, opt, nil)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHandshakeSendsOptions(t *testing.T) {
	f := &fakeEngine{}
	attachFake(t, f, Options{Threads: 2, HashMB: 32, SkillLevel: 5})
	want := []string{
		"uci",
		"setoption name Threads value 2",
		"setoption name Hash value 32",
		"setoption name Skill Level value 5",
		"isready",
	}
	if diff := cmp.Diff(want, f.received()); diff != "" {
		t.Fatalf("handshake (-want +got):\n%s", diff)
	}
}

func TestSearchCollectsCandidatesAndBestMove(t *testing.T) {
	f := &fakeEngine{}
	s := attachFake(t, f, Options{SkillLevel: 1})

	resp, err := s.Search(context.Background(), SearchRequest{
		FEN:      "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		GoTokens: []string{"go", "depth", "15"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := SearchResponse{
		BestMove: "e2e4",
		Candidates: []Candidate{
			{Move: "e2e4", EvalCP: 30, Principal: []string{"e2e4", "e7e5"}},
			{Move: "d2d4", EvalCP: -15, Principal: []string{"d2d4", "d7d5"}},
		},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("response (-want +got):\n%s", diff)
	}
	got := f.received()
	if got[len(got)-1] != "go depth 15" {
		t.Fatalf("last command = %q", got[len(got)-1])
	}
}

func TestSearchCancelStopsAndDrains(t *testing.T) {
	f := &fakeEngine{hang: true}
	s := attachFake(t, f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := s.Search(ctx, SearchRequest{GoTokens: []string{"go", "depth", "15"}})
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("search did not return after cancel")
	}

	// The stale bestmove was drained, so the next exchange lines up.
	f.mu.Lock()
	f.hang = false
	f.mu.Unlock()
	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	found := false
	for _, c := range f.received() {
		if c == "stop" {
			found = true
		}
	}
	if !found {
		t.Fatalf("stop not sent: %v", f.received())
	}
}

func TestNewGameWaitsForReady(t *testing.T) {
	f := &fakeEngine{}
	s := attachFake(t, f, Options{})
	if err := s.NewGame(context.Background()); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	got := f.received()
	want := []string{"ucinewgame", "isready"}
	if diff := cmp.Diff(want, got[len(got)-2:]); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}
}

func TestSearchRequiresGoCommand(t *testing.T) {
	s := attachFake(t, &fakeEngine{}, Options{})
	if _, err := s.Search(context.Background(), SearchRequest{}); err == nil {
		t.Fatal("expected error without go tokens")
	}
}

func TestClosedSessionRejectsWrites(t *testing.T) {
	s := attachFake(t, &fakeEngine{}, Options{})
	s.Close()
	if err := s.SetOption("Hash", "16"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
}

func TestHandshakeTimesOutOnSilentEngine(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	defer outW.Close()
	go io.Copy(io.Discard, inR)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := Attach(ctx, outR, inW, Options{}, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestValidateOptions(t *testing.T) {
	for _, opt := range []Options{{SkillLevel: -1}, {SkillLevel: 21}, {HashMB: -1}, {Threads: -2}} {
		if err := validateOptions(opt); err == nil {
			t.Fatalf("validateOptions(%+v) = nil", opt)
		}
	}
	if err := validateOptions(Options{Threads: 1, HashMB: 16, SkillLevel: 10}); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}

func TestBuildPositionCommand(t *testing.T) {
	cases := []struct {
		fen  string
		want string
	}{
		{"", "position startpos\n"},
		{"startpos", "position startpos\n"},
		{"8/8/8/8/8/8/8/K6k w - - 0 1", "position fen 8/8/8/8/8/8/8/K6k w - - 0 1\n"},
	}
	for _, tc := range cases {
		if got := buildPositionCommand(tc.fen); got != tc.want {
			t.Fatalf("buildPositionCommand(%q) = %q, want %q", tc.fen, got, tc.want)
		}
	}
}

func TestParseInfo(t *testing.T) {
	cases := []struct {
		line   string
		ok     bool
		rank   int
		evalCP int
		move   string
	}{
		{"info depth 12 score cp 34 pv e2e4 e7e5", true, 1, 34, "e2e4"},
		{"info depth 12 multipv 3 score mate -2 pv h7h6", true, 3, -30000, "h7h6"},
		{"info depth 5 score mate 1 pv d8h4", true, 1, 30000, "d8h4"},
		{"info string NNUE enabled", false, 0, 0, ""},
		{"info depth 3 pv", false, 0, 0, ""},
	}
	for _, tc := range cases {
		rank, cand, ok := parseInfo(tc.line)
		if ok != tc.ok {
			t.Fatalf("parseInfo(%q) ok = %v", tc.line, ok)
		}
		if !ok {
			continue
		}
		if rank != tc.rank || cand.EvalCP != tc.evalCP || cand.Move != tc.move {
			t.Fatalf("parseInfo(%q) = %d %+v", tc.line, rank, cand)
		}
	}
}

func TestParseBestMove(t *testing.T) {
	for line, want := range map[string]string{
		"bestmove e7e8q ponder a1a2": "e7e8q",
		"bestmove (none)":            "",
		"bestmove":                   "",
	} {
		if got := parseBestMove(line); got != want {
			t.Fatalf("parseBestMove(%q) = %q, want %q", line, got, want)
		}
	}
}
