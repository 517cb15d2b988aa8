package rules

type StatusKind uint8

const (
	Ongoing StatusKind = iota
	Checkmate
	Stalemate
	Draw
)

func (k StatusKind) String() string {
	switch k {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

type DrawReason uint8

const (
	NoDraw DrawReason = iota
	DrawRepetition
	DrawFiftyMove
	DrawInsufficientMaterial
)

func (d DrawReason) String() string {
	switch d {
	case DrawRepetition:
		return "threefold_repetition"
	case DrawFiftyMove:
		return "fifty_move"
	case DrawInsufficientMaterial:
		return "insufficient_material"
	default:
		return ""
	}
}

// FiftyMoveLimit is the halfmove clock value at which the game is drawn.
const FiftyMoveLimit = 100

// Status is the outcome evaluation of a position. Winner is meaningful only
// for Checkmate.
type Status struct {
	Kind    StatusKind
	Winner  Color
	Draw    DrawReason
	InCheck bool
}

func (s Status) Terminal() bool { return s.Kind != Ongoing }

// TerminalStatus evaluates pos. Checkmate and stalemate take precedence over
// the automatic draws, which are checked as repetition, fifty-move rule and
// then insufficient material.
func TerminalStatus(pos Position) Status {
	st := Status{InCheck: pos.InCheck()}
	if !pos.hasLegalMove() {
		if st.InCheck {
			st.Kind = Checkmate
			st.Winner = pos.turn.Opposite()
		} else {
			st.Kind = Stalemate
		}
		return st
	}
	switch {
	case pos.Repetitions() >= 3:
		st.Kind, st.Draw = Draw, DrawRepetition
	case pos.halfmove >= FiftyMoveLimit:
		st.Kind, st.Draw = Draw, DrawFiftyMove
	case pos.InsufficientMaterial():
		st.Kind, st.Draw = Draw, DrawInsufficientMaterial
	}
	return st
}

// InsufficientMaterial reports positions where no sequence of legal moves can
// mate: bare kings, a single minor piece, or only bishops all on squares of one
// colour.
func (p Position) InsufficientMaterial() bool {
	var minors, knights int
	bishopColors := [2]bool{}
	for sq := Square(0); sq < 64; sq++ {
		pc := p.board[sq]
		switch pc.Type {
		case NoPieceType, King:
		case Knight:
			minors++
			knights++
		case Bishop:
			minors++
			bishopColors[(sq.File()+sq.Rank())%2] = true
		default:
			return false
		}
	}
	switch {
	case minors <= 1:
		return true
	case knights > 0:
		return false
	default:
		return !(bishopColors[0] && bishopColors[1])
	}
}
