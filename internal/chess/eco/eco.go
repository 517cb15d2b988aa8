// Package eco labels a move sequence with its ECO opening code.
package eco

import (
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

type Label struct {
	Code  string
	Title string
}

func (l Label) IsZero() bool { return l.Code == "" }

func (l Label) String() string {
	if l.IsZero() {
		return ""
	}
	return l.Code + " " + l.Title
}

// Book classifies UCI move lists. The ECO table is parsed on first use.
type Book struct {
	once sync.Once
	book *opening.BookECO
}

func NewBook() *Book { return &Book{} }

// Classify returns the deepest opening matching moves. Unknown or illegal
// sequences yield the zero Label.
func (b *Book) Classify(moves []string) Label {
	if len(moves) == 0 {
		return Label{}
	}
	b.once.Do(func() { b.book = opening.NewBookECO() })
	if b.book == nil {
		return Label{}
	}

	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(strings.ToLower(strings.TrimSpace(mv)), nchess.UCINotation{}, nil); err != nil {
			return Label{}
		}
	}
	if o := b.book.Find(game.Moves()); o != nil {
		return Label{Code: o.Code(), Title: o.Title()}
	}
	return Label{}
}
