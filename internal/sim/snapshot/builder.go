// Package snapshot turns a save plus the player's free-text intent into the
// compact request payload sent to the generator. Building is pure: no I/O
// and no mutation of the save.
package snapshot

import (
	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/registry"
	"chronicle.ai/internal/sim/state"
	"chronicle.ai/internal/sim/tuning"
)

type Builder struct {
	reg        *registry.Registry
	recent     int
	milestones int
}

func NewBuilder(reg *registry.Registry, tune tuning.Tuning) *Builder {
	return &Builder{
		reg:        reg,
		recent:     tune.RecentDialogue,
		milestones: tune.Milestones,
	}
}

// Build assembles the payload for one turn. A nil save yields the default
// state so a game is playable with nothing persisted. A nil recent slice
// means "not supplied" and defaults to the tail of the save's history; a
// non-nil empty slice is taken as is.
func (b *Builder) Build(sd *state.SaveData, intent string, recent []string) protocol.Payload {
	var (
		player  state.PlayerState
		world   state.WorldState
		npcs    []state.NPCState
		history []string
		events  []string
		round   = 1
	)
	if sd == nil {
		player = state.DefaultPlayer()
		world = state.DefaultWorld()
		npcs = state.DefaultNPCs()
	} else {
		player = sd.Player.Clone()
		world = sd.World.Clone()
		npcs = state.CloneNPCs(sd.NPCs)
		history = sd.DialogueHistory
		events = sd.EventLog
		round = sd.Progress.TotalTurns + 1
	}
	if npcs == nil {
		npcs = []state.NPCState{}
	}

	if recent == nil {
		recent = tail(history, b.recent)
	} else {
		recent = append([]string(nil), recent...)
	}

	p := protocol.Payload{
		PlayerState:  player,
		WorldState:   world,
		NPCState:     registry.FilterEntities(b.reg, registry.TypeNPC, npcs),
		PlayerIntent: intent,
		Round:        round,
	}
	if len(recent) > 0 {
		p.EventContext = &protocol.EventContext{
			RecentDialogue: recent,
			Milestones:     tail(events, b.milestones),
		}
	}
	return p
}

// tail copies the last n entries of s.
func tail(s []string, n int) []string {
	if n <= 0 || len(s) == 0 {
		return nil
	}
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return append([]string(nil), s...)
}
