package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/adapter/textpresenter"
	"github.com/park285/cheese-chess/internal/chess/rules"
	appcfg "github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/matchbuilder"
	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/internal/service/match"
	"github.com/park285/cheese-chess/pkg/matchdto"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := matchbuilder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("match init error: %v", err)
	}
	defer deps.Close()

	settings := deps.Controller.Settings()
	flipped := settings.Mode == match.HumanVsComputer && settings.ComputerColor == rules.White
	presenter := textpresenter.NewPresenter(os.Stdout, textpresenter.NewFormatter(deps.Catalog), flipped)

	if err := deps.Start(ctx); err != nil {
		log.Fatalf("match start error: %v", err)
	}
	logger.Info("match ready", zap.String("match_id", deps.Controller.ID()), zap.String("mode", string(settings.Mode)))

	updates, unsubscribe := deps.Controller.Subscribe(8)
	defer unsubscribe()
	go render(ctx, presenter, updates)

	c := &console{match: deps.Controller, p: presenter}
	_ = presenter.Message(presenter.Formatter().Help())
	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !c.handle(line) {
				return
			}
		}
	}
}

func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

// render redraws the board whenever something other than the clock changes.
func render(ctx context.Context, p *textpresenter.Presenter, updates <-chan matchdto.Snapshot) {
	var prev *matchdto.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if prev == nil || boardChanged(*prev, snap) {
				_ = p.Board(snap)
			}
			prev = &snap
		}
	}
}

func boardChanged(prev, next matchdto.Snapshot) bool {
	return prev.FEN != next.FEN ||
		prev.Phase != next.Phase ||
		len(prev.History) != len(next.History) ||
		prev.Thinking != next.Thinking ||
		prev.EngineError != next.EngineError ||
		(prev.Outcome == nil) != (next.Outcome == nil)
}

// Match is the part of the controller the console drives.
type Match interface {
	MakeMove(m rules.Move) (rules.MoveRecord, error)
	Undo() bool
	Resign() bool
	Restart() bool
	RetryComputer() bool
	LegalDestinations(sq rules.Square) []rules.Square
	Snapshot() matchdto.Snapshot
}

type console struct {
	match Match
	p     *textpresenter.Presenter
}

// handle runs one input line and reports whether the loop should continue.
func (c *console) handle(line string) bool {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return true
	}
	f := c.p.Formatter()
	switch fields[0] {
	case "quit", "exit", "q":
		return false
	case "help", "?":
		c.say(f.Help())
	case "history":
		c.say(f.History(c.match.Snapshot()))
	case "undo":
		if c.match.Undo() {
			c.say(f.Text("control.undo", nil))
		} else {
			c.say(f.Text("control.undo_declined", nil))
		}
	case "resign":
		if !c.match.Resign() {
			c.say(f.Text("control.resign_declined", nil))
		}
	case "restart":
		if c.match.Restart() {
			c.say(f.Text("control.restart", nil))
		}
	case "retry":
		if !c.match.RetryComputer() {
			c.say(f.Text("control.retry_declined", nil))
		}
	case "moves":
		if len(fields) < 2 {
			c.say(f.Text("error.parse", map[string]any{"Input": line}))
			return true
		}
		c.listMoves(fields[1])
	default:
		c.play(fields[0])
	}
	return true
}

func (c *console) listMoves(square string) {
	f := c.p.Formatter()
	sq, err := rules.ParseSquare(square)
	if err != nil {
		c.say(f.Text("error.parse", map[string]any{"Input": square}))
		return
	}
	dests := c.match.LegalDestinations(sq)
	names := make([]string, 0, len(dests))
	for _, d := range dests {
		names = append(names, d.String())
	}
	if len(names) == 0 {
		c.say(square + ": -")
		return
	}
	c.say(square + ": " + strings.Join(names, " "))
}

func (c *console) play(input string) {
	f := c.p.Formatter()
	m, err := rules.ParseMove(input)
	if err != nil {
		c.say(f.Text("error.parse", map[string]any{"Input": input}))
		return
	}
	if _, err := c.match.MakeMove(m); err != nil {
		switch {
		case errors.Is(err, match.ErrNotHumanTurn):
			c.say(f.Text("error.not_your_turn", nil))
		case errors.Is(err, match.ErrMatchCompleted):
			c.say(f.Text("error.completed", nil))
		case errors.Is(err, rules.ErrIllegalMove), errors.Is(err, rules.ErrInvalidPromotion):
			c.say(f.Text("error.illegal", map[string]any{"Move": input}))
		default:
			c.say(fmt.Sprintf("%s: %v", input, err))
		}
	}
}

func (c *console) say(text string) { _ = c.p.Message(text) }
