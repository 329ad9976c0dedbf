package protocol

import "chronicle.ai/internal/sim/state"

// GeneratorResponse is what the narrative service returns. A response whose
// Result is nil violates the contract.
type GeneratorResponse struct {
	Result       *GeneratorResult `json:"result,omitempty"`
	StateChanges *StateChanges    `json:"state_changes,omitempty"`
}

type GeneratorResult struct {
	Narrative string   `json:"narrative,omitempty"`
	Effects   []string `json:"effects,omitempty"`
}

type StateChanges struct {
	Player []string    `json:"player,omitempty"`
	World  *WorldPatch `json:"world,omitempty"`
}

// WorldPatch is a partial WorldState; nil fields are left untouched.
type WorldPatch struct {
	Era          *string                       `json:"era,omitempty"`
	Flags        []string                      `json:"flags,omitempty"`
	Time         *state.GameTime               `json:"time,omitempty"`
	RegionStatus map[string]state.RegionStatus `json:"region_status,omitempty"`
}
