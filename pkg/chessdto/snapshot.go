package chessdto

// Snapshot is the JSON view of a running session, served by /state and the feed.
type Snapshot struct {
	SessionID   string            `json:"session_id"`
	Mode        string            `json:"mode"`
	BaseTimeMs  int64             `json:"base_time_ms"`
	IncrementMs int64             `json:"increment_ms"`
	FEN         string            `json:"fen"`
	Board       map[string]string `json:"board"`
	SideToMove  string            `json:"side_to_move"`
	Ply         int               `json:"ply"`
	Check       string            `json:"check,omitempty"`
	LastMove    string            `json:"last_move,omitempty"`
	Selection   Selection         `json:"selection"`
	Result      Result            `json:"result"`
	White       Clock             `json:"white"`
	Black       Clock             `json:"black"`
	Flipped     bool              `json:"flipped"`
	ArmyBudget  int               `json:"army_budget,omitempty"`
	Notice      *Notice           `json:"notice,omitempty"`
}

type Selection struct {
	State        string   `json:"state"`
	Square       string   `json:"square,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
	Captures     []string `json:"captures,omitempty"`
	Pending      string   `json:"pending,omitempty"`
}

type Result struct {
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
	Score  string `json:"score"`
}

type Clock struct {
	RemainingMs int64  `json:"remaining_ms"`
	Display     string `json:"display"`
	Running     bool   `json:"running"`
}

// Notice is the dialog the board page should show, if any.
type Notice struct {
	Kind    string   `json:"kind"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Options []string `json:"options,omitempty"`
}
