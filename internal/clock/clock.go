// Package clock keeps per-side time budgets for a match.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/park285/cheese-chess/internal/chess/rules"
)

// Clock is not safe for concurrent use; the match controller guards it.
type Clock struct {
	budget    [2]time.Duration
	remaining [2]time.Duration
}

// New gives both sides the same budget. A budget of zero or less means the
// side is never timed.
func New(budget time.Duration) *Clock {
	return NewAsymmetric(budget, budget)
}

func NewAsymmetric(white, black time.Duration) *Clock {
	c := &Clock{}
	c.budget[rules.White] = max(white, 0)
	c.budget[rules.Black] = max(black, 0)
	c.Reset()
	return c
}

func (c *Clock) Reset() { c.remaining = c.budget }

func (c *Clock) Unlimited(side rules.Color) bool { return c.budget[side] == 0 }

// Timed reports whether either side has a budget.
func (c *Clock) Timed() bool { return !c.Unlimited(rules.White) || !c.Unlimited(rules.Black) }

func (c *Clock) Budget(side rules.Color) time.Duration { return c.budget[side] }

func (c *Clock) Remaining(side rules.Color) time.Duration { return c.remaining[side] }

// Tick charges step to side and reports whether its time has just run out.
// Remaining time never drops below zero and untimed sides are never charged.
func (c *Clock) Tick(side rules.Color, step time.Duration) (expired bool) {
	if c.Unlimited(side) || c.remaining[side] == 0 {
		return false
	}
	c.remaining[side] -= step
	if c.remaining[side] <= 0 {
		c.remaining[side] = 0
		return true
	}
	return false
}

// Ticker abstracts time.Ticker so tests can tick by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop() { r.t.Stop() }

func NewTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// Runner drives one ticking loop. Stop waits for the loop to exit.
type Runner struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Run calls onTick for every tick until ctx ends or Stop is called. The
// ticker is stopped on exit.
func Run(ctx context.Context, t Ticker, onTick func()) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	r := &Runner{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				onTick()
			}
		}
	}()
	return r
}

// Stop ends the loop. It must not be called from onTick.
func (r *Runner) Stop() {
	r.once.Do(r.cancel)
	<-r.done
}

// Halt ends the loop without waiting, which is safe from inside onTick.
func (r *Runner) Halt() { r.once.Do(r.cancel) }

// Done is closed when the loop has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }
