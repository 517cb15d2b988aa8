package chess

import (
	"fmt"
	"strconv"
)

// BuildGoCommand turns a preset's limits into the tokens of a UCI go command.
func BuildGoCommand(p DifficultyPreset) ([]string, error) {
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}

	args := []string{"go"}
	for _, lim := range []struct {
		token string
		value int
	}{
		{"depth", p.DepthCap},
		{"movetime", p.MoveTimeMillis},
		{"nodes", p.NodeCap},
	} {
		if lim.value > 0 {
			args = append(args, lim.token, strconv.Itoa(lim.value))
		}
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("preset %s does not define search limits", p.Name)
	}
	return args, nil
}
