package rules

import (
	"math/rand/v2"
	"testing"
)

func TestFoolsMate(t *testing.T) {
	p, recs := playUCI(t, StartPosition(), "f2f3", "e7e5", "g2g4", "d8h4")
	if got := recs[3].SAN; got != "Qh4#" {
		t.Fatalf("SAN = %q, want Qh4#", got)
	}
	st := TerminalStatus(p)
	if st.Kind != Checkmate || st.Winner != Black || !st.InCheck {
		t.Fatalf("status = %+v", st)
	}
	if n := len(LegalMoves(p)); n != 0 {
		t.Fatalf("legal moves after mate = %d", n)
	}
}

func TestStalemate(t *testing.T) {
	p := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	st := TerminalStatus(p)
	if st.Kind != Stalemate || st.InCheck {
		t.Fatalf("status = %+v, want stalemate", st)
	}
}

func TestThreefoldRepetition(t *testing.T) {
	cycle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	p, _ := playUCI(t, StartPosition(), cycle...)
	if p.Repetitions() != 2 {
		t.Fatalf("repetitions after one cycle = %d, want 2", p.Repetitions())
	}
	if st := TerminalStatus(p); st.Terminal() {
		t.Fatalf("twice is not enough: %+v", st)
	}
	p, _ = playUCI(t, p, cycle...)
	st := TerminalStatus(p)
	if st.Kind != Draw || st.Draw != DrawRepetition {
		t.Fatalf("status = %+v, want repetition draw", st)
	}
}

func TestFiftyMoveRule(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 99 80")
	if st := TerminalStatus(p); st.Terminal() {
		t.Fatalf("status at 99 = %+v", st)
	}
	p, _ = playUCI(t, p, "a1a2")
	st := TerminalStatus(p)
	if st.Kind != Draw || st.Draw != DrawFiftyMove {
		t.Fatalf("status = %+v, want fifty-move draw", st)
	}
}

func TestCheckmateBeatsFiftyMove(t *testing.T) {
	// Back-rank mate delivered on the hundredth quiet half-move.
	p := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 99 80")
	p, _ = playUCI(t, p, "a1a8")
	if st := TerminalStatus(p); st.Kind != Checkmate || st.Winner != White {
		t.Fatalf("status = %+v, want white checkmate", st)
	}
}

func TestInsufficientMaterial(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		want bool
	}{
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"lone bishop", "4k3/8/8/8/8/8/8/2B1K3 w - - 0 1", true},
		{"lone knight", "4k3/8/8/8/8/8/8/4K1N1 w - - 0 1", true},
		{"same colour bishops", "4kb2/8/8/8/8/8/8/2B1K3 w - - 0 1", true},
		{"opposite colour bishops", "2b1k3/8/8/8/8/8/8/2B1K3 w - - 0 1", false},
		{"two knights", "4k3/8/8/8/8/8/8/1N2K1N1 w - - 0 1", false},
		{"pawn", "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
		{"rook", "4k3/8/8/8/8/8/8/R3K3 w - - 0 1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustFEN(t, tc.fen)
			if got := p.InsufficientMaterial(); got != tc.want {
				t.Fatalf("InsufficientMaterial = %v, want %v", got, tc.want)
			}
			st := TerminalStatus(p)
			if tc.want && (st.Kind != Draw || st.Draw != DrawInsufficientMaterial) {
				t.Fatalf("status = %+v", st)
			}
			if !tc.want && st.Terminal() {
				t.Fatalf("status = %+v, want ongoing", st)
			}
		})
	}
}

// Across random games, a side with no legal destinations on any square is
// either mated or stalemated, and vice versa.
func TestTerminalStatusMatchesDestinations(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for game := 0; game < 40; game++ {
		p := StartPosition()
		for ply := 0; ply < 300; ply++ {
			movable := false
			for sq := Square(0); sq < 64; sq++ {
				if len(LegalDestinations(p, sq)) > 0 {
					movable = true
					break
				}
			}
			st := TerminalStatus(p)
			switch {
			case !movable && p.InCheck() && st.Kind != Checkmate:
				t.Fatalf("game %d: no moves in check but status %+v at %s", game, st, p.FEN())
			case !movable && !p.InCheck() && st.Kind != Stalemate:
				t.Fatalf("game %d: no moves but status %+v at %s", game, st, p.FEN())
			case movable && (st.Kind == Checkmate || st.Kind == Stalemate):
				t.Fatalf("game %d: moves available but status %+v at %s", game, st, p.FEN())
			}
			if st.Terminal() {
				break
			}
			moves := LegalMoves(p)
			before := p.FEN()
			next, _, err := ApplyMove(p, moves[rng.IntN(len(moves))])
			if err != nil {
				t.Fatalf("game %d: generated move rejected: %v", game, err)
			}
			if p.FEN() != before {
				t.Fatalf("game %d: ApplyMove mutated its input", game)
			}
			p = next
		}
	}
}
