package constraints

import "chronicle.ai/internal/protocol"

// applyTimeline appends every timeline event dated in [fromYear, new year]
// that the world has not already recorded.
func (e *Engine) applyTimeline(p *protocol.Payload, lr *protocol.LogicalResults, fromYear int) {
	for _, ev := range e.timeline.Between(fromYear, p.WorldState.Time.Year) {
		if ev.Flag != "" && p.WorldState.HasFlag(ev.Flag) {
			continue
		}
		if hasChange(lr.WorldChanges, ev.ID) {
			continue
		}
		lr.WorldChanges = append(lr.WorldChanges, protocol.WorldChange{
			ID:         ev.ID,
			Year:       ev.Year,
			Label:      ev.Label,
			EffectHint: ev.EffectHint,
			Flag:       ev.Flag,
		})
	}
}

func hasChange(changes []protocol.WorldChange, id string) bool {
	for _, c := range changes {
		if c.ID == id {
			return true
		}
	}
	return false
}
