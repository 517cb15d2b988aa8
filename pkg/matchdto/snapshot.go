package matchdto

import "time"

type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// Snapshot is an immutable view of a match. Every field describes the same
// instant; History always contains the move that produced FEN and Outcome.
type Snapshot struct {
	ID           string         `json:"id"`
	Version      uint64         `json:"version"`
	Phase        Phase          `json:"phase"`
	FEN          string         `json:"fen"`
	Turn         string         `json:"turn"`
	InCheck      bool           `json:"in_check"`
	History      []HistoryEntry `json:"history"`
	Captured     CapturedPieces `json:"captured"`
	Material     MaterialScore  `json:"material"`
	Outcome      *Outcome       `json:"outcome,omitempty"`
	Thinking     bool           `json:"thinking"`
	InputEnabled bool           `json:"input_enabled"`
	EngineError  string         `json:"engine_error,omitempty"`
	Clock        ClockView      `json:"clock"`
	Opening      *Opening       `json:"opening,omitempty"`
	Settings     Settings       `json:"settings"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (s Snapshot) Completed() bool { return s.Phase == PhaseCompleted }

// LastMove returns the most recent history entry, if any.
func (s Snapshot) LastMove() (HistoryEntry, bool) {
	if len(s.History) == 0 {
		return HistoryEntry{}, false
	}
	return s.History[len(s.History)-1], true
}

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

func (m MaterialScore) Diff() int {
	return m.White - m.Black
}

// CapturedPieces lists piece names taken by each side, oldest first.
type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

func (c CapturedPieces) IsEmpty() bool {
	return len(c.White) == 0 && len(c.Black) == 0
}

type Winner string

const (
	WinnerWhite Winner = "white"
	WinnerBlack Winner = "black"
	WinnerDraw  Winner = "draw"
)

type Reason string

const (
	ReasonCheckmate   Reason = "checkmate"
	ReasonStalemate   Reason = "stalemate"
	ReasonRepetition  Reason = "repetition"
	ReasonOtherDraw   Reason = "other_draw"
	ReasonResignation Reason = "resignation"
	ReasonTimeForfeit Reason = "time_forfeit"
)

// Outcome is set once a match ends. Detail refines ReasonOtherDraw with
// "fifty_move" or "insufficient_material".
type Outcome struct {
	Winner Winner `json:"winner"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type SideClock struct {
	RemainingMillis int64 `json:"remaining_ms"`
	Unlimited       bool  `json:"unlimited"`
}

func (c SideClock) Remaining() time.Duration {
	return time.Duration(c.RemainingMillis) * time.Millisecond
}

type ClockView struct {
	White SideClock `json:"white"`
	Black SideClock `json:"black"`
	// Running names the side being charged, empty when no clock runs.
	Running string `json:"running,omitempty"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

type Settings struct {
	Mode          string `json:"mode"`
	Difficulty    string `json:"difficulty"`
	TimeMinutes   int    `json:"time_minutes"`
	// UndoAllowed is nil when a client leaves it out.
	UndoAllowed   *bool  `json:"undo_allowed"`
	ComputerColor string `json:"computer_color,omitempty"`
}
