package matchdto

// HistoryEntry is one applied move. Captured and Promotion hold lower-case
// piece names and are empty when not applicable.
type HistoryEntry struct {
	Index     int    `json:"index"`
	Color     string `json:"color"`
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
	Piece     string `json:"piece"`
	Captured  string `json:"captured,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

// MovePair groups a White move with Black's reply under one move number.
type MovePair struct {
	Number int
	White  string
	Black  string
}

// Pairs returns history as numbered White/Black pairs. A history that begins
// with Black leaves the first White slot empty.
func Pairs(history []HistoryEntry) []MovePair {
	var out []MovePair
	for _, h := range history {
		if h.Color == "black" && len(out) > 0 && out[len(out)-1].Black == "" {
			out[len(out)-1].Black = h.SAN
			continue
		}
		p := MovePair{Number: len(out) + 1}
		if h.Color == "black" {
			p.Black = h.SAN
		} else {
			p.White = h.SAN
		}
		out = append(out, p)
	}
	return out
}
