package rules

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return White, false
	}
}

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Letter returns the upper-case SAN letter; pawns return 'P'.
func (pt PieceType) Letter() byte {
	switch pt {
	case Pawn:
		return 'P'
	case Knight:
		return 'N'
	case Bishop:
		return 'B'
	case Rook:
		return 'R'
	case Queen:
		return 'Q'
	case King:
		return 'K'
	default:
		return '?'
	}
}

func (pt PieceType) String() string {
	if pt == NoPieceType {
		return ""
	}
	return string(pt.Letter())
}

// Name returns the lower-case English name used in serialized views.
func (pt PieceType) Name() string {
	switch pt {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return ""
	}
}

// ParsePromotion maps q/r/b/n (either case, or full names) to a piece type.
func ParsePromotion(s string) (PieceType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q", "queen":
		return Queen, true
	case "r", "rook":
		return Rook, true
	case "b", "bishop":
		return Bishop, true
	case "n", "knight":
		return Knight, true
	default:
		return NoPieceType, false
	}
}

func pieceTypeFromLetter(c byte) PieceType {
	switch c {
	case 'p', 'P':
		return Pawn
	case 'n', 'N':
		return Knight
	case 'b', 'B':
		return Bishop
	case 'r', 'R':
		return Rook
	case 'q', 'Q':
		return Queen
	case 'k', 'K':
		return King
	default:
		return NoPieceType
	}
}

// Piece is a coloured piece. The zero value is an empty square.
type Piece struct {
	Type  PieceType
	Color Color
}

func (p Piece) IsEmpty() bool { return p.Type == NoPieceType }

// FENLetter returns the FEN character: upper case for white, lower case for black.
func (p Piece) FENLetter() byte {
	if p.IsEmpty() {
		return '.'
	}
	l := p.Type.Letter()
	if p.Color == Black {
		l += 'a' - 'A'
	}
	return l
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return ""
	}
	return string(p.FENLetter())
}

// Square indexes the board from a1 (0) to h8 (63).
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func (s Square) File() int { return int(s) & 7 }
func (s Square) Rank() int { return int(s) >> 3 }

func (s Square) Valid() bool { return s >= 0 && s < 64 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// CastlingRights is a bit set of the four castling permissions.
type CastlingRights uint8

const (
	WhiteKingside CastlingRights = 1 << iota
	WhiteQueenside
	BlackKingside
	BlackQueenside

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingside | WhiteQueenside | BlackKingside | BlackQueenside
)

func (cr CastlingRights) Has(r CastlingRights) bool { return cr&r == r }

func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	if cr.Has(WhiteKingside) {
		sb.WriteByte('K')
	}
	if cr.Has(WhiteQueenside) {
		sb.WriteByte('Q')
	}
	if cr.Has(BlackKingside) {
		sb.WriteByte('k')
	}
	if cr.Has(BlackQueenside) {
		sb.WriteByte('q')
	}
	return sb.String()
}

func kingsideRight(c Color) CastlingRights {
	if c == White {
		return WhiteKingside
	}
	return BlackKingside
}

func queensideRight(c Color) CastlingRights {
	if c == White {
		return WhiteQueenside
	}
	return BlackQueenside
}

// Move is a candidate move request. Promotion is NoPieceType unless the caller
// names one explicitly.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
}

// UCI renders the move in long algebraic form, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceType {
		s += strings.ToLower(m.Promotion.String())
	}
	return s
}

func (m Move) String() string { return m.UCI() }

// ParseMove parses long algebraic notation ("e2e4", "e7e8q").
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: malformed move %q", ErrIllegalMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		pt, ok := ParsePromotion(s[4:5])
		if !ok {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidPromotion, s[4:5])
		}
		m.Promotion = pt
	}
	return m, nil
}
