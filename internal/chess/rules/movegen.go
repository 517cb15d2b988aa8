package rules

import "sort"

type offset struct{ df, dr int }

var (
	knightOffsets = [8]offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8]offset{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookDirs      = [4]offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs    = [4]offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

	promotionPieces = [4]PieceType{Queen, Rook, Bishop, Knight}
)

func pawnDirection(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func promotionRank(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

func pawnStartRank(c Color) int {
	if c == White {
		return 1
	}
	return 6
}

func homeRank(c Color) int {
	if c == White {
		return 0
	}
	return 7
}

func (s Square) shift(o offset) Square {
	return NewSquare(s.File()+o.df, s.Rank()+o.dr)
}

// isAttacked reports whether any piece of color by attacks sq.
func (p Position) isAttacked(sq Square, by Color) bool {
	back := offset{0, -pawnDirection(by)}
	for _, df := range [2]int{-1, 1} {
		s := sq.shift(offset{df, back.dr})
		if s.Valid() && p.board[s] == (Piece{Type: Pawn, Color: by}) {
			return true
		}
	}
	for _, o := range knightOffsets {
		s := sq.shift(o)
		if s.Valid() && p.board[s] == (Piece{Type: Knight, Color: by}) {
			return true
		}
	}
	for _, o := range kingOffsets {
		s := sq.shift(o)
		if s.Valid() && p.board[s] == (Piece{Type: King, Color: by}) {
			return true
		}
	}
	if p.slidingAttack(sq, by, rookDirs[:], Rook) {
		return true
	}
	return p.slidingAttack(sq, by, bishopDirs[:], Bishop)
}

func (p Position) slidingAttack(sq Square, by Color, dirs []offset, slider PieceType) bool {
	for _, o := range dirs {
		for s := sq.shift(o); s.Valid(); s = s.shift(o) {
			pc := p.board[s]
			if pc.IsEmpty() {
				continue
			}
			if pc.Color == by && (pc.Type == slider || pc.Type == Queen) {
				return true
			}
			break
		}
	}
	return false
}

func (p Position) inCheck(c Color) bool {
	k := p.kingSquare(c)
	if !k.Valid() {
		return false
	}
	return p.isAttacked(k, c.Opposite())
}

// pseudoMoves appends moves for the piece on from that obey piece movement
// but may leave the mover's king in check. Castling is handled separately.
func (p Position) pseudoMoves(from Square, out []Move) []Move {
	pc := p.board[from]
	switch pc.Type {
	case Pawn:
		return p.pawnMoves(from, pc.Color, out)
	case Knight:
		return p.stepMoves(from, pc.Color, knightOffsets[:], out)
	case King:
		return p.stepMoves(from, pc.Color, kingOffsets[:], out)
	case Bishop:
		return p.slideMoves(from, pc.Color, bishopDirs[:], out)
	case Rook:
		return p.slideMoves(from, pc.Color, rookDirs[:], out)
	case Queen:
		out = p.slideMoves(from, pc.Color, rookDirs[:], out)
		return p.slideMoves(from, pc.Color, bishopDirs[:], out)
	}
	return out
}

func (p Position) pawnMoves(from Square, c Color, out []Move) []Move {
	dir := pawnDirection(c)
	one := from.shift(offset{0, dir})
	if one.Valid() && p.board[one].IsEmpty() {
		out = appendPawnMove(out, from, one, c)
		if from.Rank() == pawnStartRank(c) {
			two := one.shift(offset{0, dir})
			if p.board[two].IsEmpty() {
				out = append(out, Move{From: from, To: two})
			}
		}
	}
	for _, df := range [2]int{-1, 1} {
		to := from.shift(offset{df, dir})
		if !to.Valid() {
			continue
		}
		target := p.board[to]
		if !target.IsEmpty() && target.Color != c {
			out = appendPawnMove(out, from, to, c)
		} else if target.IsEmpty() && to == p.enPassant {
			out = append(out, Move{From: from, To: to})
		}
	}
	return out
}

func appendPawnMove(out []Move, from, to Square, c Color) []Move {
	if to.Rank() != promotionRank(c) {
		return append(out, Move{From: from, To: to})
	}
	for _, pt := range promotionPieces {
		out = append(out, Move{From: from, To: to, Promotion: pt})
	}
	return out
}

func (p Position) stepMoves(from Square, c Color, offs []offset, out []Move) []Move {
	for _, o := range offs {
		to := from.shift(o)
		if !to.Valid() {
			continue
		}
		if t := p.board[to]; t.IsEmpty() || t.Color != c {
			out = append(out, Move{From: from, To: to})
		}
	}
	return out
}

func (p Position) slideMoves(from Square, c Color, dirs []offset, out []Move) []Move {
	for _, o := range dirs {
		for to := from.shift(o); to.Valid(); to = to.shift(o) {
			t := p.board[to]
			if t.IsEmpty() {
				out = append(out, Move{From: from, To: to})
				continue
			}
			if t.Color != c {
				out = append(out, Move{From: from, To: to})
			}
			break
		}
	}
	return out
}

// castleMoves appends castling moves for color c. The king must be on its home
// square with the right intact, the squares between king and rook empty, and
// every square the king stands on or crosses unattacked.
func (p Position) castleMoves(c Color, out []Move) []Move {
	rank := homeRank(c)
	king := NewSquare(4, rank)
	if p.board[king] != (Piece{Type: King, Color: c}) {
		return out
	}
	enemy := c.Opposite()
	if p.isAttacked(king, enemy) {
		return out
	}
	rook := Piece{Type: Rook, Color: c}
	if p.castling.Has(kingsideRight(c)) && p.board[NewSquare(7, rank)] == rook {
		f, g := NewSquare(5, rank), NewSquare(6, rank)
		if p.board[f].IsEmpty() && p.board[g].IsEmpty() &&
			!p.isAttacked(f, enemy) && !p.isAttacked(g, enemy) {
			out = append(out, Move{From: king, To: g})
		}
	}
	if p.castling.Has(queensideRight(c)) && p.board[NewSquare(0, rank)] == rook {
		b, cc, d := NewSquare(1, rank), NewSquare(2, rank), NewSquare(3, rank)
		if p.board[b].IsEmpty() && p.board[cc].IsEmpty() && p.board[d].IsEmpty() &&
			!p.isAttacked(d, enemy) && !p.isAttacked(cc, enemy) {
			out = append(out, Move{From: king, To: cc})
		}
	}
	return out
}

// legalMovesFrom returns the legal moves of the side-to-move piece on from.
func (p Position) legalMovesFrom(from Square) []Move {
	if !from.Valid() {
		return nil
	}
	pc := p.board[from]
	if pc.IsEmpty() || pc.Color != p.turn {
		return nil
	}
	pseudo := p.pseudoMoves(from, make([]Move, 0, 16))
	if pc.Type == King {
		pseudo = p.castleMoves(pc.Color, pseudo)
	}
	legal := pseudo[:0]
	for _, m := range pseudo {
		if !p.play(m).inCheck(pc.Color) {
			legal = append(legal, m)
		}
	}
	return legal
}

func (p Position) hasLegalMove() bool {
	for sq := Square(0); sq < 64; sq++ {
		if pc := p.board[sq]; !pc.IsEmpty() && pc.Color == p.turn && len(p.legalMovesFrom(sq)) > 0 {
			return true
		}
	}
	return false
}

// LegalMoves lists every legal move of the side to move. Promotions appear
// once per promotion piece.
func LegalMoves(pos Position) []Move {
	var out []Move
	for sq := Square(0); sq < 64; sq++ {
		out = append(out, pos.legalMovesFrom(sq)...)
	}
	return out
}

// LegalDestinations returns the squares the piece on sq may move to, in
// ascending order. Squares without a piece of the side to move yield nil.
func LegalDestinations(pos Position, sq Square) []Square {
	moves := pos.legalMovesFrom(sq)
	if len(moves) == 0 {
		return nil
	}
	seen := make(map[Square]struct{}, len(moves))
	out := make([]Square, 0, len(moves))
	for _, m := range moves {
		if _, ok := seen[m.To]; ok {
			continue
		}
		seen[m.To] = struct{}{}
		out = append(out, m.To)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// play applies m without validation and without touching repetition history.
func (p Position) play(m Move) Position {
	next := p
	next.seen = nil
	pc := p.board[m.From]
	captured := p.board[m.To]

	if pc.Type == Pawn && m.To == p.enPassant && captured.IsEmpty() && m.From.File() != m.To.File() {
		victim := NewSquare(m.To.File(), m.From.Rank())
		captured = next.board[victim]
		next.board[victim] = Piece{}
	}

	next.board[m.From] = Piece{}
	placed := pc
	if pc.Type == Pawn && m.To.Rank() == promotionRank(pc.Color) {
		placed.Type = m.Promotion
		if placed.Type == NoPieceType {
			placed.Type = Queen
		}
	}
	next.board[m.To] = placed

	if pc.Type == King && abs(m.To.File()-m.From.File()) == 2 {
		rank := m.From.Rank()
		rookFrom, rookTo := NewSquare(7, rank), NewSquare(5, rank)
		if m.To.File() < m.From.File() {
			rookFrom, rookTo = NewSquare(0, rank), NewSquare(3, rank)
		}
		next.board[rookTo] = next.board[rookFrom]
		next.board[rookFrom] = Piece{}
	}

	if pc.Type == King {
		next.castling &^= kingsideRight(pc.Color) | queensideRight(pc.Color)
	}
	next.castling &^= rookHomeRight(m.From) | rookHomeRight(m.To)

	next.enPassant = NoSquare
	if pc.Type == Pawn && abs(m.To.Rank()-m.From.Rank()) == 2 {
		next.enPassant = NewSquare(m.From.File(), (m.From.Rank()+m.To.Rank())/2)
	}

	if pc.Type == Pawn || !captured.IsEmpty() {
		next.halfmove = 0
	} else {
		next.halfmove++
	}
	if pc.Color == Black {
		next.fullmove++
	}
	next.turn = p.turn.Opposite()
	return next
}

// rookHomeRight maps a rook's starting square to the right it guards.
func rookHomeRight(sq Square) CastlingRights {
	switch sq {
	case NewSquare(0, 0):
		return WhiteQueenside
	case NewSquare(7, 0):
		return WhiteKingside
	case NewSquare(0, 7):
		return BlackQueenside
	case NewSquare(7, 7):
		return BlackKingside
	}
	return NoCastling
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
