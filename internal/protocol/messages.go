package protocol

import "chronicle.ai/internal/sim/state"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Slot            int    `json:"slot"`
	SaveName        string `json:"save_name,omitempty"`
	NewGame         bool   `json:"new_game,omitempty"`
	// ResumeOnly refuses to start a game in an empty slot.
	ResumeOnly bool `json:"resume_only,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Slot            int              `json:"slot"`
	PlayerID        string           `json:"player_id"`
	SaveName        string           `json:"save_name"`
	Resumed         bool             `json:"resumed"`
	TotalTurns      int              `json:"total_turns"`
	GameOver        bool             `json:"game_over,omitempty"`
	World           state.WorldState `json:"world"`
	TimelineDigest  string           `json:"timeline_digest,omitempty"`
}

// INTENT (client -> server)
type IntentMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Text            string `json:"text"`
}

// NARRATIVE (server -> client)
type NarrativeMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	IntentID        string           `json:"intent_id,omitempty"`
	Round           int              `json:"round"`
	Narrative       string           `json:"narrative"`
	Effects         []string         `json:"effects,omitempty"`
	Blocked         bool             `json:"blocked,omitempty"`
	BlockReason     string           `json:"block_reason,omitempty"`
	Fallback        bool             `json:"fallback,omitempty"`
	Mood            string           `json:"mood,omitempty"`
	GameOver        bool             `json:"game_over,omitempty"`
	GameOverReason  string           `json:"game_over_reason,omitempty"`
	Saved           bool             `json:"saved"`
	World           state.WorldState `json:"world"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
