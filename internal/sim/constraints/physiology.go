package constraints

import (
	"fmt"
	"strings"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/state"
)

type Exertion string

const (
	ExertionNone     Exertion = ""
	ExertionCombat   Exertion = "combat"
	ExertionMovement Exertion = "movement"
)

var combatWords = []string{
	"攻打", "进攻", "攻击", "攻城", "作战", "交战", "厮杀", "杀", "战斗", "决斗",
	"偷袭", "袭击", "出征", "征讨", "讨伐", "刺杀", "比武", "拼命", "迎战",
	"attack", "fight", "battle", "kill", "raid", "duel", "assault", "ambush",
}

var movementWords = []string{
	"前往", "赶路", "行军", "出发", "远行", "进军", "逃跑", "逃往", "奔赴",
	"去往", "赶往", "启程", "翻山", "渡江", "跑",
	"travel", "march", "journey", "flee", "ride to", "go to", "run to",
}

// ClassifyExertion reports whether intent asks for a high-exertion action.
func ClassifyExertion(intent string) Exertion {
	text := strings.ToLower(intent)
	for _, w := range combatWords {
		if strings.Contains(text, w) {
			return ExertionCombat
		}
	}
	for _, w := range movementWords {
		if strings.Contains(text, w) {
			return ExertionMovement
		}
	}
	return ExertionNone
}

func (e *Engine) applyPhysiology(p *protocol.Payload, lr *protocol.LogicalResults) {
	if lr.ForcedFailure != nil {
		return
	}
	action := ClassifyExertion(p.PlayerIntent)
	if action == ExertionNone {
		return
	}
	attrs := p.PlayerState.Attrs
	if hp, ok := attrs[state.AttrHealth]; ok && hp < e.tune.Physiology.LowHealth {
		lr.ForcedFailure = &protocol.ForcedFailure{
			Kind:   protocol.FailureLowHealth,
			Action: string(action),
			Reason: fmt.Sprintf("health %d below %d: the body gives out", hp, e.tune.Physiology.LowHealth),
		}
		return
	}
	if hunger, ok := attrs[state.AttrHunger]; ok && hunger > e.tune.Physiology.HighHunger {
		lr.ForcedFailure = &protocol.ForcedFailure{
			Kind:   protocol.FailureStarvation,
			Action: string(action),
			Reason: fmt.Sprintf("hunger %d above %d: too weak from starvation", hunger, e.tune.Physiology.HighHunger),
		}
	}
}
