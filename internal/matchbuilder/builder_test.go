package matchbuilder

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/publish"
	"github.com/park285/cheese-chess/internal/service/match"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		Match:       config.MatchConfig{Mode: "human_vs_human", Difficulty: "medium", UndoAllowed: true},
		SnapshotTTL: time.Minute,
	}
}

func TestComputerModeWithoutEngineFails(t *testing.T) {
	cfg := baseConfig()
	cfg.Match.Mode = "human_vs_computer"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error without STOCKFISH_PATH")
	}
}

func TestPublishesSnapshotsAndClearsOnClose(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Engine != nil || d.HTTP != nil {
		t.Fatalf("unexpected components: engine=%v http=%v", d.Engine, d.HTTP)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := d.Controller.Settings().Mode; got != match.HumanVsHuman {
		t.Fatalf("mode = %s", got)
	}

	key := publish.SnapshotKey(d.Controller.ID())
	deadline := time.Now().Add(2 * time.Second)
	for !mr.Exists(key) {
		if time.Now().After(deadline) {
			t.Fatal("snapshot never published")
		}
		time.Sleep(5 * time.Millisecond)
	}

	d.Close()
	if mr.Exists(key) {
		t.Fatal("snapshot key left behind after Close")
	}
}
