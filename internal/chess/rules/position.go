// Package rules implements standard chess legality over immutable positions.
//
// A Position is a value: every operation that changes the game returns a new
// Position and leaves its input untouched, so positions may be shared freely
// between goroutines.
package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Signature identifies a position for repetition purposes: placement, side to
// move, castling rights and a capturable en-passant target.
type Signature string

type Position struct {
	board     [64]Piece
	turn      Color
	castling  CastlingRights
	enPassant Square
	halfmove  int
	fullmove  int

	// seen holds the signature of every position reached so far, current last.
	// Slices are never written in place after construction.
	seen []Signature
}

// StartPosition returns the standard initial position.
func StartPosition() Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(fmt.Sprintf("rules: start position: %v", err))
	}
	return p
}

func (p Position) Piece(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return p.board[sq]
}

func (p Position) Turn() Color { return p.turn }

func (p Position) Castling() CastlingRights { return p.castling }

// EnPassant returns the square behind a pawn that just advanced two ranks, or NoSquare.
func (p Position) EnPassant() Square { return p.enPassant }

func (p Position) HalfmoveClock() int { return p.halfmove }

func (p Position) FullmoveNumber() int { return p.fullmove }

// Ply counts the moves applied since this position's history began.
func (p Position) Ply() int {
	if len(p.seen) == 0 {
		return 0
	}
	return len(p.seen) - 1
}

func (p Position) Signature() Signature {
	if len(p.seen) == 0 {
		return p.computeSignature()
	}
	return p.seen[len(p.seen)-1]
}

// InCheck reports whether the side to move is in check.
func (p Position) InCheck() bool { return p.inCheck(p.turn) }

// Repetitions counts how often the current signature has occurred, including now.
func (p Position) Repetitions() int { return p.countSignature(p.Signature()) }

// History returns a copy of every signature reached so far, current last.
func (p Position) History() []Signature { return append([]Signature(nil), p.seen...) }

// Equal compares board and game-state fields, ignoring repetition history.
func (p Position) Equal(o Position) bool {
	return p.board == o.board && p.turn == o.turn && p.castling == o.castling &&
		p.enPassant == o.enPassant && p.halfmove == o.halfmove && p.fullmove == o.fullmove
}

func (p Position) kingSquare(c Color) Square {
	for sq := Square(0); sq < 64; sq++ {
		pc := p.board[sq]
		if pc.Type == King && pc.Color == c {
			return sq
		}
	}
	return NoSquare
}

func (p Position) countSignature(sig Signature) int {
	n := 0
	for _, s := range p.seen {
		if s == sig {
			n++
		}
	}
	return n
}

func (p Position) computeSignature() Signature {
	var sb strings.Builder
	sb.WriteString(p.placement())
	sb.WriteByte(' ')
	if p.turn == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}
	sb.WriteByte(' ')
	sb.WriteString(p.castling.String())
	sb.WriteByte(' ')
	if p.enPassantCapturable() {
		sb.WriteString(p.enPassant.String())
	} else {
		sb.WriteByte('-')
	}
	return Signature(sb.String())
}

// enPassantCapturable reports whether a pawn of the side to move stands next
// to the double-pushed pawn.
func (p Position) enPassantCapturable() bool {
	if !p.enPassant.Valid() {
		return false
	}
	dir := pawnDirection(p.turn)
	fromRank := p.enPassant.Rank() - dir
	for _, df := range [2]int{-1, 1} {
		sq := NewSquare(p.enPassant.File()+df, fromRank)
		if !sq.Valid() {
			continue
		}
		pc := p.board[sq]
		if pc.Type == Pawn && pc.Color == p.turn {
			return true
		}
	}
	return false
}

func (p Position) placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.board[NewSquare(file, rank)]
			if pc.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(pc.FENLetter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// FEN serializes the position. The en-passant field carries the target square
// after any double pawn push.
func (p Position) FEN() string {
	side := "w"
	if p.turn == Black {
		side = "b"
	}
	ep := "-"
	if p.enPassant.Valid() {
		ep = p.enPassant.String()
	}
	return fmt.Sprintf("%s %s %s %s %d %d", p.placement(), side, p.castling, ep, p.halfmove, p.fullmove)
}

func (p Position) String() string { return p.FEN() }

// ParseFEN builds a position from FEN. Halfmove and fullmove fields are optional.
// The resulting position starts a fresh repetition history.
func ParseFEN(fen string) (Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return Position{}, fmt.Errorf("%w: expected at least 4 fields, got %d", ErrInvalidFEN, len(fields))
	}
	p := Position{enPassant: NoSquare, fullmove: 1}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return Position{}, fmt.Errorf("%w: expected 8 ranks", ErrInvalidFEN)
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			pt := pieceTypeFromLetter(c)
			if pt == NoPieceType || file > 7 {
				return Position{}, fmt.Errorf("%w: bad placement %q", ErrInvalidFEN, row)
			}
			color := White
			if c >= 'a' && c <= 'z' {
				color = Black
			}
			p.board[NewSquare(file, rank)] = Piece{Type: pt, Color: color}
			file++
		}
		if file != 8 {
			return Position{}, fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank+1, file)
		}
	}

	switch fields[1] {
	case "w":
		p.turn = White
	case "b":
		p.turn = Black
	default:
		return Position{}, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	if fields[2] != "-" {
		for _, c := range fields[2] {
			switch c {
			case 'K':
				p.castling |= WhiteKingside
			case 'Q':
				p.castling |= WhiteQueenside
			case 'k':
				p.castling |= BlackKingside
			case 'q':
				p.castling |= BlackQueenside
			default:
				return Position{}, fmt.Errorf("%w: castling %q", ErrInvalidFEN, fields[2])
			}
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return Position{}, fmt.Errorf("%w: en passant %q", ErrInvalidFEN, fields[3])
		}
		if !p.plausibleEnPassant(sq) {
			return Position{}, fmt.Errorf("%w: no double-pushed pawn behind en passant %q", ErrInvalidFEN, fields[3])
		}
		p.enPassant = sq
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return Position{}, fmt.Errorf("%w: halfmove %q", ErrInvalidFEN, fields[4])
		}
		p.halfmove = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return Position{}, fmt.Errorf("%w: fullmove %q", ErrInvalidFEN, fields[5])
		}
		p.fullmove = n
	}

	if p.countKings(White) != 1 || p.countKings(Black) != 1 {
		return Position{}, fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}
	p.dropStaleCastling()
	p.seen = []Signature{p.computeSignature()}
	return p, nil
}

// plausibleEnPassant requires an empty target on the third or sixth rank
// with the opponent's pawn directly beyond it.
func (p Position) plausibleEnPassant(sq Square) bool {
	mover := p.turn.Opposite()
	targetRank, pawnRank := 2, 3
	if mover == Black {
		targetRank, pawnRank = 5, 4
	}
	if sq.Rank() != targetRank || !p.board[sq].IsEmpty() {
		return false
	}
	return p.board[NewSquare(sq.File(), pawnRank)] == Piece{Type: Pawn, Color: mover}
}

func (p Position) countKings(c Color) int {
	n := 0
	for _, pc := range p.board {
		if pc.Type == King && pc.Color == c {
			n++
		}
	}
	return n
}

// dropStaleCastling clears rights whose king or rook is not on its home square.
func (p *Position) dropStaleCastling() {
	type req struct {
		right      CastlingRights
		king, rook Square
		color      Color
	}
	for _, r := range []req{
		{WhiteKingside, NewSquare(4, 0), NewSquare(7, 0), White},
		{WhiteQueenside, NewSquare(4, 0), NewSquare(0, 0), White},
		{BlackKingside, NewSquare(4, 7), NewSquare(7, 7), Black},
		{BlackQueenside, NewSquare(4, 7), NewSquare(0, 7), Black},
	} {
		if !p.castling.Has(r.right) {
			continue
		}
		if p.board[r.king] != (Piece{King, r.color}) || p.board[r.rook] != (Piece{Rook, r.color}) {
			p.castling &^= r.right
		}
	}
}
