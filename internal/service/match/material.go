package match

import (
	"github.com/park285/cheese-chess/internal/chess/rules"
	"github.com/park285/cheese-chess/pkg/matchdto"
)

var pieceValues = map[rules.PieceType]int{
	rules.Pawn:   1,
	rules.Knight: 3,
	rules.Bishop: 3,
	rules.Rook:   5,
	rules.Queen:  9,
}

func computeMaterial(pos rules.Position) matchdto.MaterialScore {
	var score matchdto.MaterialScore
	for sq := rules.Square(0); sq < 64; sq++ {
		pc := pos.Piece(sq)
		v := pieceValues[pc.Type]
		if v == 0 {
			continue
		}
		if pc.Color == rules.White {
			score.White += v
		} else {
			score.Black += v
		}
	}
	return score
}

// capturedTally buckets every captured piece under the side that took it.
func capturedTally(records []rules.MoveRecord) matchdto.CapturedPieces {
	out := matchdto.CapturedPieces{White: []string{}, Black: []string{}}
	for _, r := range records {
		if !r.IsCapture() {
			continue
		}
		if r.Piece.Color == rules.White {
			out.White = append(out.White, r.Captured.Type.Name())
		} else {
			out.Black = append(out.Black, r.Captured.Type.Name())
		}
	}
	return out
}

// HistoryEntry converts a move record to its serialized form.
func HistoryEntry(r rules.MoveRecord) matchdto.HistoryEntry {
	e := matchdto.HistoryEntry{
		Index: r.Index,
		Color: r.Piece.Color.String(),
		UCI:   r.UCI(),
		SAN:   r.SAN,
		Piece: r.Piece.Type.Name(),
	}
	if r.IsCapture() {
		e.Captured = r.Captured.Type.Name()
	}
	if r.Promotion != rules.NoPieceType {
		e.Promotion = r.Promotion.Name()
	}
	return e
}

func outcomeFromStatus(st rules.Status) *matchdto.Outcome {
	switch st.Kind {
	case rules.Checkmate:
		return &matchdto.Outcome{Winner: winnerOf(st.Winner), Reason: matchdto.ReasonCheckmate}
	case rules.Stalemate:
		return &matchdto.Outcome{Winner: matchdto.WinnerDraw, Reason: matchdto.ReasonStalemate}
	case rules.Draw:
		if st.Draw == rules.DrawRepetition {
			return &matchdto.Outcome{Winner: matchdto.WinnerDraw, Reason: matchdto.ReasonRepetition}
		}
		return &matchdto.Outcome{Winner: matchdto.WinnerDraw, Reason: matchdto.ReasonOtherDraw, Detail: st.Draw.String()}
	}
	return nil
}

func winnerOf(c rules.Color) matchdto.Winner {
	if c == rules.White {
		return matchdto.WinnerWhite
	}
	return matchdto.WinnerBlack
}
