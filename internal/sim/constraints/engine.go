// Package constraints evaluates the hard rules the generator is not trusted
// with: elapsed time, historical continuity, survival gating, vocabulary
// diversity, perspective rotation, aspiration nudges, memory callbacks,
// safety and game over. Results land in the payload's logical_results block.
//
// Every rule is deterministic given the engine's observed narrative history.
// Rules only add fields; malformed intent yields no annotation, never a panic.
package constraints

import (
	"sync"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/catalogs"
	"chronicle.ai/internal/sim/tuning"
)

// LocalScreen is a synchronous blocklist check.
type LocalScreen interface {
	Check(text string) (term string, hit bool)
}

type Engine struct {
	tune     tuning.Tuning
	timeline catalogs.TimelineCatalog
	screen   LocalScreen

	mu          sync.Mutex
	diversity   diversityWindow
	perspective perspectiveTracker
}

func New(tune tuning.Tuning, timeline catalogs.TimelineCatalog, screen LocalScreen) *Engine {
	return &Engine{
		tune:      tune,
		timeline:  timeline,
		screen:    screen,
		diversity: diversityWindow{lookback: tune.Diversity.Lookback},
	}
}

// Observe feeds one line of generated narrative into the rolling windows
// used by the diversity and perspective rules.
func (e *Engine) Observe(narrative string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.diversity.observe(narrative)
	e.perspective.observe(narrative)
}

// Prime replays earlier narrative, oldest first, e.g. after loading a save.
func (e *Engine) Prime(narratives []string) {
	for _, n := range narratives {
		e.Observe(n)
	}
}

// Apply runs every rule over p and returns the augmented payload. The input
// payload's logical_results block, if any, is copied, not modified.
func (e *Engine) Apply(p protocol.Payload) protocol.Payload {
	lr := &protocol.LogicalResults{}
	if p.LogicalResults != nil {
		cp := *p.LogicalResults
		cp.WorldChanges = append([]protocol.WorldChange(nil), cp.WorldChanges...)
		cp.MemoryCallbacks = append([]string(nil), cp.MemoryCallbacks...)
		lr = &cp
	}

	e.applySafety(&p, lr)

	before := p.WorldState.Time
	if e.applyTimeSkip(&p, lr) {
		// Injection depends on the post-skip year.
		e.applyTimeline(&p, lr, before.Year)
	}

	e.applyPhysiology(&p, lr)

	e.mu.Lock()
	e.applyDiversity(&p, lr)
	e.applyPerspective(lr)
	e.mu.Unlock()

	e.applyAspiration(&p, lr)
	e.applyResonance(&p, lr)
	e.applyGameOver(&p, lr)
	applyMood(lr)

	if lr.Empty() {
		p.LogicalResults = nil
	} else {
		p.LogicalResults = lr
	}
	return p
}

func (e *Engine) applySafety(p *protocol.Payload, lr *protocol.LogicalResults) {
	if e.screen == nil {
		return
	}
	if term, hit := e.screen.Check(p.PlayerIntent); hit {
		lr.Safety = &protocol.SafetyResult{Allowed: false, Reason: "blocked term: " + term}
	}
}

const (
	MoodTense         = "tense"
	MoodEpic          = "epic"
	MoodContemplative = "contemplative"
)

func applyMood(lr *protocol.LogicalResults) {
	if lr.Mood != "" {
		return
	}
	switch {
	case lr.ForcedFailure != nil:
		lr.Mood = MoodTense
	case len(lr.WorldChanges) > 0:
		lr.Mood = MoodEpic
	case lr.TimePassed > 0:
		lr.Mood = MoodContemplative
	}
}
