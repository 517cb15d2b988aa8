package match

import (
	"github.com/park285/cheese-chess/internal/chess/eco"
	"github.com/park285/cheese-chess/internal/chess/rules"
	"github.com/park285/cheese-chess/pkg/matchdto"
)

func (c *Controller) buildSnapshotLocked() matchdto.Snapshot {
	history := make([]matchdto.HistoryEntry, 0, len(c.records))
	for _, r := range c.records {
		history = append(history, HistoryEntry(r))
	}
	s := matchdto.Snapshot{
		ID:           c.id,
		Version:      c.version,
		Phase:        c.phase,
		FEN:          c.pos.FEN(),
		Turn:         c.pos.Turn().String(),
		InCheck:      c.pos.InCheck(),
		History:      history,
		Captured:     capturedTally(c.records),
		Material:     computeMaterial(c.pos),
		Thinking:     c.thinking,
		InputEnabled: c.inputEnabledLocked(),
		EngineError:  c.engineErr,
		Clock:        c.clockViewLocked(),
		Settings:     c.settings.View(),
		UpdatedAt:    c.now(),
	}
	if c.outcome != nil {
		o := *c.outcome
		s.Outcome = &o
	}
	if label := c.openingLocked(); !label.IsZero() {
		s.Opening = &matchdto.Opening{Code: label.Code, Title: label.Title}
	}
	return s
}

func (c *Controller) clockViewLocked() matchdto.ClockView {
	side := func(color rules.Color) matchdto.SideClock {
		return matchdto.SideClock{
			RemainingMillis: c.clock.Remaining(color).Milliseconds(),
			Unlimited:       c.clock.Unlimited(color),
		}
	}
	v := matchdto.ClockView{White: side(rules.White), Black: side(rules.Black)}
	if c.phase == matchdto.PhaseInProgress && !c.clock.Unlimited(c.pos.Turn()) {
		v.Running = c.pos.Turn().String()
	}
	return v
}

func (c *Controller) openingLocked() eco.Label {
	if c.book == nil || c.openingEpoch == c.epoch || len(c.records) > maxOpeningPly {
		return c.opening
	}
	moves := make([]string, 0, len(c.records))
	for _, r := range c.records {
		moves = append(moves, r.UCI())
	}
	c.opening = c.book.Classify(moves)
	c.openingEpoch = c.epoch
	return c.opening
}
