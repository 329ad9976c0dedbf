package generator

import (
	"context"
	"fmt"
	"strings"

	"chronicle.ai/internal/protocol"
)

// Offline answers without a remote service. It narrates the hard results
// verbatim so local play and scripted clients exercise the full pipeline.
type Offline struct{}

func (Offline) Adjudicate(ctx context.Context, p protocol.Payload) (*protocol.GeneratorResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s，你决定%s。", p.WorldState.Time, p.PlayerIntent)
	var effects []string
	if lr := p.LogicalResults; lr != nil {
		if lr.TimePassed > 0 {
			fmt.Fprintf(&b, "光阴流转，%d%s过去了。", lr.TimePassed, unitLabel(lr.TimeUnit))
		}
		for _, wc := range lr.WorldChanges {
			fmt.Fprintf(&b, "其间天下有变：%s，%s。", wc.Label, wc.EffectHint)
		}
		if ff := lr.ForcedFailure; ff != nil {
			fmt.Fprintf(&b, "然而力有不逮：%s。", ff.Reason)
			effects = append(effects, "attr:hunger:+5")
		}
		if lr.TimePassed > 0 && lr.TimeUnit == protocol.UnitYear {
			effects = append(effects, fmt.Sprintf("legend:+%d", lr.TimePassed))
		}
	}
	return &protocol.GeneratorResponse{
		Result: &protocol.GeneratorResult{Narrative: b.String(), Effects: effects},
	}, nil
}

func unitLabel(u protocol.TimeUnit) string {
	switch u {
	case protocol.UnitYear:
		return "年"
	case protocol.UnitMonth:
		return "个月"
	default:
		return "天"
	}
}
