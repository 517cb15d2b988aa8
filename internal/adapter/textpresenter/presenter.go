// Package textpresenter renders match snapshots for a terminal.
package textpresenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/park285/cheese-chess/pkg/matchdto"
)

// Presenter writes formatted output without knowing where commands come from.
type Presenter struct {
	out     io.Writer
	f       *Formatter
	flipped bool
}

func NewPresenter(out io.Writer, f *Formatter, flipped bool) *Presenter {
	return &Presenter{out: out, f: f, flipped: flipped}
}

func (p *Presenter) Formatter() *Formatter { return p.f }

// Board prints the board followed by the status block.
func (p *Presenter) Board(snap matchdto.Snapshot) error {
	_, err := fmt.Fprintf(p.out, "\n%s\n\n%s\n", p.f.Board(snap, p.flipped), p.f.Status(snap))
	return err
}

func (p *Presenter) Message(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := fmt.Fprintln(p.out, text)
	return err
}
