package textpresenter

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/pkg/matchdto"
)

const (
	capturedRecentLimit = 8
	recentMoveLimit     = 6
)

// Formatter renders match snapshots as terminal text.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) Text(key string, data any) string {
	return f.cat.Text(key, data)
}

func (f *Formatter) Help() string {
	return strings.TrimRight(f.cat.Text("help", nil), "\n")
}

// Board draws the position with White at the bottom unless flipped.
func (f *Formatter) Board(snap matchdto.Snapshot, flipped bool) string {
	rows := expandPlacement(snap.FEN)
	var sb strings.Builder
	for i := range 8 {
		r := i
		if flipped {
			r = 7 - i
		}
		fmt.Fprintf(&sb, "%d ", 8-r)
		for j := range 8 {
			c := j
			if flipped {
				c = 7 - j
			}
			sb.WriteByte(' ')
			sb.WriteByte(rows[r][c])
		}
		sb.WriteByte('\n')
	}
	if flipped {
		sb.WriteString("   h g f e d c b a")
	} else {
		sb.WriteString("   a b c d e f g h")
	}
	return sb.String()
}

// expandPlacement turns the placement field of fen into eight rows of
// eight cells, rank 8 first. Empty squares are '.'.
func expandPlacement(fen string) [8][8]byte {
	var rows [8][8]byte
	for r := range rows {
		for c := range rows[r] {
			rows[r][c] = '.'
		}
	}
	placement, _, _ := strings.Cut(fen, " ")
	for r, rank := range strings.Split(placement, "/") {
		if r > 7 {
			break
		}
		c := 0
		for i := 0; i < len(rank) && c < 8; i++ {
			ch := rank[i]
			if ch >= '1' && ch <= '8' {
				c += int(ch - '0')
				continue
			}
			rows[r][c] = ch
			c++
		}
	}
	return rows
}

// Status summarises everything beside the board.
func (f *Formatter) Status(snap matchdto.Snapshot) string {
	var lines []string
	if snap.Outcome != nil {
		lines = append(lines, f.Outcome(snap.Outcome))
	} else {
		turn := titleCase(snap.Turn)
		lines = append(lines, f.cat.Text("status.turn", map[string]any{"Number": len(snap.History)/2 + 1, "Turn": turn}))
		if snap.InCheck {
			lines = append(lines, f.cat.Text("status.check", map[string]any{"Turn": turn}))
		}
		if snap.Thinking {
			lines = append(lines, f.cat.Text("status.thinking", nil))
		}
		if snap.EngineError != "" {
			lines = append(lines, f.cat.Text("status.engine_error", map[string]any{"Error": snap.EngineError}))
		}
	}
	if !snap.Clock.White.Unlimited || !snap.Clock.Black.Unlimited {
		lines = append(lines, f.cat.Text("status.clock", map[string]any{
			"White": f.Clock(snap.Clock.White),
			"Black": f.Clock(snap.Clock.Black),
		}))
	}
	if recent := formatRecentMoves(snap.History); recent != "" {
		lines = append(lines, f.cat.Text("status.moves", map[string]any{"Text": recent}))
	}
	lines = append(lines, f.cat.Text("status.material", map[string]any{
		"White": snap.Material.White,
		"Black": snap.Material.Black,
		"Diff":  formatDiff(snap.Material.Diff()),
	}))
	if captured := formatCaptured(snap.Captured); captured != "" {
		lines = append(lines, f.cat.Text("status.captured", map[string]any{"Text": captured}))
	}
	if o := snap.Opening; o != nil {
		lines = append(lines, f.cat.Text("status.opening", map[string]any{"Code": o.Code, "Title": o.Title}))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) Outcome(o *matchdto.Outcome) string {
	if o == nil {
		return ""
	}
	data := map[string]any{"Winner": titleCase(string(o.Winner))}
	switch o.Winner {
	case matchdto.WinnerWhite:
		data["Loser"] = "Black"
	case matchdto.WinnerBlack:
		data["Loser"] = "White"
	}
	key := "outcome." + string(o.Reason)
	if o.Reason == matchdto.ReasonOtherDraw {
		key = "outcome." + o.Detail
	}
	s, err := f.cat.Render(key, data)
	if err != nil {
		return f.cat.Text("outcome.unknown", nil)
	}
	return s
}

// Clock renders remaining time as m:ss.
func (f *Formatter) Clock(c matchdto.SideClock) string {
	if c.Unlimited {
		return f.cat.Text("clock.unlimited", nil)
	}
	secs := max(c.RemainingMillis, 0) / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// History lists the moves as numbered pairs, one per line.
func (f *Formatter) History(snap matchdto.Snapshot) string {
	pairs := matchdto.Pairs(snap.History)
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		white := p.White
		if white == "" {
			white = "..."
		}
		lines = append(lines, strings.TrimRight(fmt.Sprintf("%d. %s %s", p.Number, white, p.Black), " "))
	}
	return strings.Join(lines, "\n")
}

func formatRecentMoves(history []matchdto.HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	start := max(len(history)-recentMoveLimit, 0)
	sans := make([]string, 0, len(history)-start)
	for _, h := range history[start:] {
		sans = append(sans, h.SAN)
	}
	text := strings.Join(sans, " ")
	if start > 0 {
		text = "... " + text
	}
	return text
}

func formatDiff(d int) string {
	if d > 0 {
		return fmt.Sprintf("+%d", d)
	}
	return fmt.Sprintf("%d", d)
}

func formatCaptured(captured matchdto.CapturedPieces) string {
	white := formatCapturedSequence(recentPieces(captured.White, capturedRecentLimit))
	black := formatCapturedSequence(recentPieces(captured.Black, capturedRecentLimit))
	var parts []string
	if white != "" {
		parts = append(parts, "white "+white)
	}
	if black != "" {
		parts = append(parts, "black "+black)
	}
	return strings.Join(parts, " / ")
}

func formatCapturedSequence(order []string) string {
	tokens := make([]string, 0, len(order))
	for _, name := range order {
		if symbol := capturedSymbol(name); symbol != "" {
			tokens = append(tokens, symbol)
		}
	}
	return strings.Join(tokens, " ")
}

func capturedSymbol(piece string) string {
	switch strings.ToLower(strings.TrimSpace(piece)) {
	case "queen":
		return "Q"
	case "rook":
		return "R"
	case "bishop":
		return "B"
	case "knight":
		return "N"
	case "pawn":
		return "P"
	default:
		return ""
	}
}

// recentPieces keeps the last limit captures, newest first.
func recentPieces(order []string, limit int) []string {
	if len(order) > limit {
		order = order[len(order)-limit:]
	}
	out := make([]string, len(order))
	for i := range order {
		out[i] = order[len(order)-1-i]
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
