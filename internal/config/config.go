package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/cheese-chess/pkg/matchdto"
)

type AppConfig struct {
	StockfishPath string
	EngineThreads int
	EngineHashMB  int

	Match         MatchConfig
	ComputerDelay time.Duration
	SettingsFile  string

	HTTPAddr    string
	RedisURL    string
	SnapshotTTL time.Duration
	MessagesDir string
}

// MatchConfig is the settings surface before validation; the match
// controller replaces anything it does not accept with its default.
type MatchConfig struct {
	Mode          string `yaml:"mode"`
	Difficulty    string `yaml:"difficulty"`
	TimeMinutes   int    `yaml:"time_minutes"`
	UndoAllowed   bool   `yaml:"undo_allowed"`
	ComputerColor string `yaml:"computer_color"`
}

func (m MatchConfig) View() matchdto.Settings {
	undo := m.UndoAllowed
	return matchdto.Settings{
		Mode:          m.Mode,
		Difficulty:    m.Difficulty,
		TimeMinutes:   m.TimeMinutes,
		UndoAllowed:   &undo,
		ComputerColor: m.ComputerColor,
	}
}

// Load reads the environment. Match settings come from defaults, then the
// YAML file named by MATCH_SETTINGS_FILE, then MATCH_* variables.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		StockfishPath: "stockfish",
		EngineThreads: 1,
		EngineHashMB:  16,
		Match: MatchConfig{
			Mode:          "human_vs_human",
			Difficulty:    "medium",
			UndoAllowed:   true,
			ComputerColor: "black",
		},
		ComputerDelay: 500 * time.Millisecond,
		SnapshotTTL:   10 * time.Minute,
	}

	if v := getenv("STOCKFISH_PATH"); v != "" {
		cfg.StockfishPath = v
	}
	if n, ok := positiveInt("ENGINE_THREADS"); ok {
		cfg.EngineThreads = n
	}
	if n, ok := positiveInt("ENGINE_HASH_MB"); ok {
		cfg.EngineHashMB = n
	}

	cfg.SettingsFile = getenv("MATCH_SETTINGS_FILE")
	if cfg.SettingsFile != "" {
		if err := loadMatchFile(cfg.SettingsFile, &cfg.Match); err != nil {
			return nil, err
		}
	}
	if v := getenv("MATCH_MODE"); v != "" {
		cfg.Match.Mode = v
	}
	if v := getenv("MATCH_DIFFICULTY"); v != "" {
		cfg.Match.Difficulty = v
	}
	if v := getenv("MATCH_TIME_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Match.TimeMinutes = n
		}
	}
	if v := getenv("MATCH_UNDO_ALLOWED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Match.UndoAllowed = b
		}
	}
	if v := getenv("MATCH_COMPUTER_COLOR"); v != "" {
		cfg.Match.ComputerColor = v
	}
	if v := getenv("MATCH_COMPUTER_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ComputerDelay = time.Duration(n) * time.Millisecond
		}
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR")
	cfg.RedisURL = getenv("REDIS_URL")
	if n, ok := positiveInt("REDIS_SNAPSHOT_TTL_SEC"); ok {
		cfg.SnapshotTTL = time.Duration(n) * time.Second
	}
	cfg.MessagesDir = getenv("MESSAGES_DIR")
	return cfg, nil
}

func loadMatchFile(path string, into *MatchConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read match settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("parse match settings %s: %w", path, err)
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func positiveInt(key string) (int, bool) {
	v := getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
