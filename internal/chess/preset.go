package chess

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty names a search strength tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"

	DefaultDifficulty = Medium
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty accepts the tier names in any case plus a few aliases.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "beginner", "low":
		return Easy, true
	case "medium", "intermediate", "normal":
		return Medium, true
	case "hard", "expert", "high":
		return Hard, true
	default:
		return "", false
	}
}

type DifficultyPreset struct {
	Name           Difficulty
	SkillLevel     int
	DepthCap       int
	MoveTimeMillis int
	NodeCap        int
}

const searchDepth = 15

var DefaultPresets = map[Difficulty]DifficultyPreset{
	Easy: {
		Name:       Easy,
		SkillLevel: 1,
		DepthCap:   searchDepth,
	},
	Medium: {
		Name:       Medium,
		SkillLevel: 5,
		DepthCap:   searchDepth,
	},
	Hard: {
		Name:       Hard,
		SkillLevel: 10,
		DepthCap:   searchDepth,
	},
}

func GetPreset(d Difficulty) (DifficultyPreset, error) {
	p, ok := DefaultPresets[d]
	if !ok {
		return DifficultyPreset{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, string(d))
	}
	return p, nil
}

func ValidatePreset(p DifficultyPreset) error {
	switch {
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	case p.MoveTimeMillis < 0:
		return fmt.Errorf("move time must be >= 0: %d", p.MoveTimeMillis)
	case p.NodeCap < 0:
		return fmt.Errorf("node cap must be >= 0: %d", p.NodeCap)
	case p.DepthCap < 0:
		return fmt.Errorf("depth cap must be >= 0: %d", p.DepthCap)
	}
	return nil
}
