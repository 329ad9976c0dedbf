package protocol

import "chronicle.ai/internal/sim/state"

// Payload is the per-turn request sent to the narrative generator. It is
// built fresh each turn and discarded once the response is applied.
//
// EventContext and LogicalResults are optional blocks; a nil pointer means
// the block is absent from the wire, not empty.
type Payload struct {
	PlayerState    state.PlayerState `json:"player_state"`
	WorldState     state.WorldState  `json:"world_state"`
	NPCState       []state.NPCState  `json:"npc_state"`
	EventContext   *EventContext     `json:"event_context,omitempty"`
	PlayerIntent   string            `json:"player_intent"`
	Round          int               `json:"round"`
	LogicalResults *LogicalResults   `json:"logical_results,omitempty"`
}

type EventContext struct {
	RecentDialogue []string `json:"recent_dialogue"`
	Milestones     []string `json:"milestones,omitempty"`
	Instructions   []string `json:"instructions,omitempty"`
}

// LogicalResults carries outcomes the generator must narrate as given.
type LogicalResults struct {
	TimePassed         int                  `json:"time_passed,omitempty"`
	TimeUnit           TimeUnit             `json:"time_unit,omitempty"`
	WorldChanges       []WorldChange        `json:"world_changes,omitempty"`
	ForcedFailure      *ForcedFailure       `json:"forced_failure,omitempty"`
	Diversity          *DiversityConstraint `json:"diversity,omitempty"`
	PerspectiveSwitch  string               `json:"perspective_switch,omitempty"`
	AspirationReminder string               `json:"aspiration_reminder,omitempty"`
	MemoryCallbacks    []string             `json:"memory_callbacks,omitempty"`
	Safety             *SafetyResult        `json:"safety,omitempty"`
	Mood               string               `json:"mood,omitempty"`
	GameOver           bool                 `json:"game_over,omitempty"`
	GameOverReason     string               `json:"game_over_reason,omitempty"`
}

// Empty reports whether no rule produced anything.
func (lr *LogicalResults) Empty() bool {
	if lr == nil {
		return true
	}
	return lr.TimePassed == 0 &&
		len(lr.WorldChanges) == 0 &&
		lr.ForcedFailure == nil &&
		lr.Diversity == nil &&
		lr.PerspectiveSwitch == "" &&
		lr.AspirationReminder == "" &&
		len(lr.MemoryCallbacks) == 0 &&
		lr.Safety == nil &&
		lr.Mood == "" &&
		!lr.GameOver
}

type TimeUnit string

const (
	UnitYear  TimeUnit = "year"
	UnitMonth TimeUnit = "month"
	UnitDay   TimeUnit = "day"
)

// WorldChange is one historical timeline entry the generator must narrate.
type WorldChange struct {
	ID         string `json:"id"`
	Year       int    `json:"year"`
	Label      string `json:"label"`
	EffectHint string `json:"effect_hint"`
	Flag       string `json:"flag,omitempty"`
}

type FailureKind string

const (
	FailureLowHealth  FailureKind = "low_health"
	FailureStarvation FailureKind = "starvation"
)

type ForcedFailure struct {
	Kind   FailureKind `json:"kind"`
	Action string      `json:"action"`
	Reason string      `json:"reason"`
}

type DiversityConstraint struct {
	ForbiddenTerms []string `json:"forbidden_terms"`
	UntilRound     int      `json:"until_round"`
}

type SafetyResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
