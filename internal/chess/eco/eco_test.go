package eco

import (
	"strings"
	"testing"
)

func TestClassifyKnownOpening(t *testing.T) {
	b := NewBook()
	got := b.Classify([]string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"})
	if !strings.HasPrefix(got.Code, "C6") || !strings.Contains(got.Title, "Ruy Lopez") {
		t.Fatalf("Classify = %+v, want a Ruy Lopez code", got)
	}
	if got.String() == "" {
		t.Fatal("String() empty for known opening")
	}
}

func TestClassifyUnknown(t *testing.T) {
	b := NewBook()
	if got := b.Classify(nil); !got.IsZero() {
		t.Fatalf("empty moves: %+v", got)
	}
	if got := b.Classify([]string{"e2e5"}); !got.IsZero() {
		t.Fatalf("illegal move: %+v", got)
	}
}
