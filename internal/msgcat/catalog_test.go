package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("outcome.checkmate", map[string]string{"Winner": "White"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Checkmate. White wins." {
		t.Fatalf("got %q", got)
	}
	if _, err := c.Render("outcome.checkmate", map[string]string{}); err == nil {
		t.Fatal("expected error for missing field")
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("fallback = %q", got)
	}
	if !strings.Contains(c.Text("help", nil), "resign") {
		t.Fatal("help text missing resign")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("a.yaml", "control:\n  restart: \"Fresh board.\"\n")
	write("notes.txt", "ignored")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("control.restart", nil); got != "Fresh board." {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("control.undo", nil); got != "Move taken back." {
		t.Fatalf("default lost: %q", got)
	}

	write("b.yml", "control:\n  restart: \"Again.\"\n")
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v, want duplicate key error", err)
	}
}

func TestRejectsNonStringLeaves(t *testing.T) {
	if _, err := parseFlat([]byte("status:\n  turn: 3\n")); err == nil {
		t.Fatal("expected error for integer leaf")
	}
}
