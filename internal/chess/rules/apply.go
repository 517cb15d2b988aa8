package rules

import (
	"fmt"
	"strings"
)

type CastleSide uint8

const (
	NoCastle CastleSide = iota
	CastleKingside
	CastleQueenside
)

// MoveRecord describes an applied move.
type MoveRecord struct {
	Index     int // 1-based ply
	From      Square
	To        Square
	Piece     Piece
	Captured  Piece
	Promotion PieceType
	SAN       string
	Castle    CastleSide
	EnPassant bool
}

func (r MoveRecord) UCI() string {
	return Move{From: r.From, To: r.To, Promotion: r.Promotion}.UCI()
}

func (r MoveRecord) IsCapture() bool { return !r.Captured.IsEmpty() }

// ApplyMove validates m against pos and returns the successor position. On
// error pos is unaffected and the returned position is the zero value.
func ApplyMove(pos Position, m Move) (Position, MoveRecord, error) {
	if !m.From.Valid() || !m.To.Valid() {
		return Position{}, MoveRecord{}, fmt.Errorf("%w: %w", ErrIllegalMove, ErrInvalidSquare)
	}
	pc := pos.board[m.From]
	if pc.IsEmpty() || pc.Color != pos.turn {
		return Position{}, MoveRecord{}, fmt.Errorf("%w: no %s piece on %s", ErrIllegalMove, pos.turn, m.From)
	}

	promoting := pc.Type == Pawn && m.To.Rank() == promotionRank(pc.Color)
	switch {
	case m.Promotion == NoPieceType:
		if promoting {
			m.Promotion = Queen
		}
	case !promoting:
		return Position{}, MoveRecord{}, fmt.Errorf("%w: %w: %s does not promote", ErrIllegalMove, ErrInvalidPromotion, m)
	case m.Promotion == Pawn || m.Promotion == King:
		return Position{}, MoveRecord{}, fmt.Errorf("%w: %w: cannot promote to %s", ErrIllegalMove, ErrInvalidPromotion, m.Promotion.Name())
	}

	legal := false
	for _, lm := range pos.legalMovesFrom(m.From) {
		if lm == m {
			legal = true
			break
		}
	}
	if !legal {
		return Position{}, MoveRecord{}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}

	rec := MoveRecord{
		Index:     pos.Ply() + 1,
		From:      m.From,
		To:        m.To,
		Piece:     pc,
		Captured:  pos.board[m.To],
		Promotion: m.Promotion,
	}
	if pc.Type == Pawn && m.To == pos.enPassant && rec.Captured.IsEmpty() && m.From.File() != m.To.File() {
		rec.EnPassant = true
		rec.Captured = Piece{Type: Pawn, Color: pc.Color.Opposite()}
	}
	if pc.Type == King {
		switch m.To.File() - m.From.File() {
		case 2:
			rec.Castle = CastleKingside
		case -2:
			rec.Castle = CastleQueenside
		}
	}

	next := pos.play(m)
	next.seen = append(pos.seen[:len(pos.seen):len(pos.seen)], next.computeSignature())
	rec.SAN = pos.san(m, rec, next)
	return next, rec, nil
}

// san renders rec in standard algebraic notation. next is the position after
// the move and decides the check suffix.
func (p Position) san(m Move, rec MoveRecord, next Position) string {
	var sb strings.Builder
	switch {
	case rec.Castle == CastleKingside:
		sb.WriteString("O-O")
	case rec.Castle == CastleQueenside:
		sb.WriteString("O-O-O")
	case rec.Piece.Type == Pawn:
		if rec.IsCapture() {
			sb.WriteByte(byte('a' + m.From.File()))
			sb.WriteByte('x')
		}
		sb.WriteString(m.To.String())
		if m.Promotion != NoPieceType {
			sb.WriteByte('=')
			sb.WriteByte(m.Promotion.Letter())
		}
	default:
		sb.WriteByte(rec.Piece.Type.Letter())
		sb.WriteString(p.disambiguation(m, rec.Piece))
		if rec.IsCapture() {
			sb.WriteByte('x')
		}
		sb.WriteString(m.To.String())
	}
	if next.inCheck(next.turn) {
		if next.hasLegalMove() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// disambiguation returns the shortest origin hint that separates m from other
// legal moves of the same piece type to the same square.
func (p Position) disambiguation(m Move, pc Piece) string {
	var rivals []Square
	for sq := Square(0); sq < 64; sq++ {
		if sq == m.From || p.board[sq] != pc {
			continue
		}
		for _, o := range p.legalMovesFrom(sq) {
			if o.To == m.To {
				rivals = append(rivals, sq)
				break
			}
		}
	}
	if len(rivals) == 0 {
		return ""
	}
	sameFile, sameRank := false, false
	for _, r := range rivals {
		if r.File() == m.From.File() {
			sameFile = true
		}
		if r.Rank() == m.From.Rank() {
			sameRank = true
		}
	}
	file := string(rune('a' + m.From.File()))
	rank := string(rune('1' + m.From.Rank()))
	switch {
	case !sameFile:
		return file
	case !sameRank:
		return rank
	default:
		return file + rank
	}
}
