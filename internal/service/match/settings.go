package match

import (
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/chess/rules"
	"github.com/park285/cheese-chess/pkg/matchdto"
)

type Mode string

const (
	HumanVsHuman    Mode = "human_vs_human"
	HumanVsComputer Mode = "human_vs_computer"
)

func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human_vs_human", "human-vs-human", "h-vs-h", "hvh", "pvp":
		return HumanVsHuman, true
	case "human_vs_computer", "human-vs-computer", "h-vs-c", "hvc", "pve", "computer":
		return HumanVsComputer, true
	default:
		return "", false
	}
}

// MaxTimeBudget caps the per-side clock.
const MaxTimeBudget = 180 * time.Minute

// Settings are fixed for the life of a match; only a restart replaces them.
// A TimeBudget of zero means both sides play without a clock.
type Settings struct {
	Mode          Mode
	Difficulty    chess.Difficulty
	TimeBudget    time.Duration
	UndoAllowed   bool
	ComputerColor rules.Color
}

func DefaultSettings() Settings {
	return Settings{
		Mode:          HumanVsHuman,
		Difficulty:    chess.DefaultDifficulty,
		UndoAllowed:   true,
		ComputerColor: rules.Black,
	}
}

// Normalize replaces each invalid field with its default.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.Mode != HumanVsHuman && s.Mode != HumanVsComputer {
		s.Mode = def.Mode
	}
	if _, err := chess.GetPreset(s.Difficulty); err != nil {
		s.Difficulty = def.Difficulty
	}
	if s.TimeBudget < 0 || s.TimeBudget > MaxTimeBudget {
		s.TimeBudget = def.TimeBudget
	}
	if s.ComputerColor != rules.White && s.ComputerColor != rules.Black {
		s.ComputerColor = def.ComputerColor
	}
	return s
}

func (s Settings) View() matchdto.Settings {
	v := matchdto.Settings{
		Mode:        string(s.Mode),
		Difficulty:  string(s.Difficulty),
		TimeMinutes: int(s.TimeBudget / time.Minute),
	}
	undo := s.UndoAllowed
	v.UndoAllowed = &undo
	if s.Mode == HumanVsComputer {
		v.ComputerColor = s.ComputerColor.String()
	}
	return v
}

// SettingsFromView parses settings received from a client. Unknown or
// missing values fall back to defaults.
func SettingsFromView(v matchdto.Settings) Settings {
	s := DefaultSettings()
	if m, ok := ParseMode(v.Mode); ok {
		s.Mode = m
	}
	if d, ok := chess.ParseDifficulty(v.Difficulty); ok {
		s.Difficulty = d
	}
	s.TimeBudget = time.Duration(v.TimeMinutes) * time.Minute
	if v.UndoAllowed != nil {
		s.UndoAllowed = *v.UndoAllowed
	}
	if c, ok := rules.ParseColor(v.ComputerColor); ok {
		s.ComputerColor = c
	}
	return s.Normalize()
}
