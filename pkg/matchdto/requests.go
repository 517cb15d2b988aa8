package matchdto

type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type MoveResponse struct {
	Move     HistoryEntry `json:"move"`
	Snapshot Snapshot     `json:"snapshot"`
}

// ControlResponse answers undo, resign and restart. Applied is false when the
// command was declined, which is not an error.
type ControlResponse struct {
	Applied  bool     `json:"applied"`
	Snapshot Snapshot `json:"snapshot"`
}

type LegalResponse struct {
	Square       string   `json:"square"`
	Destinations []string `json:"destinations"`
}
