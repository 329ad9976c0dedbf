package constraints

import (
	"fmt"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/state"
)

var goalLabels = map[state.AspirationGoal]string{
	state.GoalConquest: "争霸天下",
	state.GoalWealth:   "富甲一方",
	state.GoalVirtue:   "仁德济世",
	state.GoalScholar:  "著书立说",
	state.GoalFreedom:  "逍遥江湖",
}

func (e *Engine) applyAspiration(p *protocol.Payload, lr *protocol.LogicalResults) {
	every := e.tune.Aspiration.Every
	asp := p.PlayerState.Aspiration
	if every <= 0 || asp == nil || p.Round <= 0 || p.Round%every != 0 {
		return
	}
	label := goalLabels[asp.Goal]
	if label == "" {
		label = string(asp.Goal)
	}
	if asp.Text != "" {
		lr.AspirationReminder = fmt.Sprintf("Remind the player of their long-term aspiration: %s (%s)", label, asp.Text)
		return
	}
	lr.AspirationReminder = fmt.Sprintf("Remind the player of their long-term aspiration: %s", label)
}

// applyResonance picks earlier milestones for the narrative to call back
// to. The choice rotates with the round so repeated turns vary.
func (e *Engine) applyResonance(p *protocol.Payload, lr *protocol.LogicalResults) {
	cfg := e.tune.Resonance
	if cfg.Max <= 0 || p.Round <= cfg.After || p.EventContext == nil {
		return
	}
	ms := p.EventContext.Milestones
	if len(ms) == 0 {
		return
	}
	n := cfg.Max
	if n > len(ms) {
		n = len(ms)
	}
	start := p.Round % len(ms)
	for i := 0; i < n; i++ {
		lr.MemoryCallbacks = append(lr.MemoryCallbacks, ms[(start+i)%len(ms)])
	}
}

const (
	GameOverSpan     = "span"
	GameOverTerminal = "terminal"
)

func (e *Engine) applyGameOver(p *protocol.Payload, lr *protocol.LogicalResults) {
	year := p.WorldState.Time.Year
	cfg := e.tune.GameOver
	switch {
	case cfg.TerminalYear > 0 && year >= cfg.TerminalYear:
		lr.GameOver, lr.GameOverReason = true, GameOverTerminal
	case cfg.Span > 0 && year > e.tune.StartYear+cfg.Span:
		lr.GameOver, lr.GameOverReason = true, GameOverSpan
	}
}
