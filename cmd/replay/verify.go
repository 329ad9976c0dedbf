package main

import (
	"fmt"

	turnlog "chronicle.ai/internal/persistence/log"
	"chronicle.ai/internal/sim/state"
)

type playerTrack struct {
	round  int
	time   state.GameTime
	over   bool
	events map[string]struct{}
}

// checker replays turn log entries and fails on the first entry that breaks
// an ordering rule: game time never goes back, rounds never go back, and a
// finished game takes no further turns.
type checker struct {
	players  map[string]*playerTrack
	turns    int
	blocked  int
	fallback int
}

func newChecker() *checker {
	return &checker{players: map[string]*playerTrack{}}
}

func (c *checker) observe(e turnlog.TurnLogEntry) error {
	c.turns++
	if e.Blocked {
		c.blocked++
	}
	if e.Fallback {
		c.fallback++
	}

	p := c.players[e.PlayerID]
	if p == nil {
		p = &playerTrack{events: map[string]struct{}{}}
		c.players[e.PlayerID] = p
		p.round, p.time = e.Round, e.Time
	}
	if p.over {
		return fmt.Errorf("player %s: round %d after game over", e.PlayerID, e.Round)
	}
	if e.Round < p.round {
		return fmt.Errorf("player %s: round went back %d -> %d", e.PlayerID, p.round, e.Round)
	}
	if e.Time.Before(p.time) {
		return fmt.Errorf("player %s round %d: time went back %v -> %v", e.PlayerID, e.Round, p.time, e.Time)
	}
	p.round, p.time = e.Round, e.Time
	for _, id := range e.Events {
		p.events[id] = struct{}{}
	}
	p.over = e.GameOver
	return nil
}

// matches checks the last logged state of sd's player against the save.
func (c *checker) matches(sd *state.SaveData) error {
	p := c.players[sd.Meta.PlayerID]
	if p == nil {
		return fmt.Errorf("no turns logged for player %s", sd.Meta.PlayerID)
	}
	if p.time != sd.World.Time {
		return fmt.Errorf("time: log %v save %v", p.time, sd.World.Time)
	}
	for id := range p.events {
		if !sd.HasEvent(id) {
			return fmt.Errorf("event %s logged but missing from save", id)
		}
	}
	return nil
}
