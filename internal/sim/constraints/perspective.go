package constraints

import (
	"strings"

	"chronicle.ai/internal/protocol"
)

const (
	PerspectiveFirst  = "first"
	PerspectiveSecond = "second"
	PerspectiveThird  = "third"
)

var pronouns = map[string][]string{
	PerspectiveFirst:  {"我", " i ", " i'", " me ", " my "},
	PerspectiveSecond: {"你", " you ", " you'", " your "},
	PerspectiveThird:  {"他", "她", " he ", " she ", " his ", " her "},
}

// ClassifyPerspective returns the dominant grammatical person of narrative,
// or "" when no pronoun wins outright.
func ClassifyPerspective(narrative string) string {
	text := " " + strings.ToLower(narrative) + " "
	best, bestN, tie := "", 0, false
	for _, p := range []string{PerspectiveFirst, PerspectiveSecond, PerspectiveThird} {
		n := 0
		for _, w := range pronouns[p] {
			n += strings.Count(text, w)
		}
		switch {
		case n > bestN:
			best, bestN, tie = p, n, false
		case n == bestN && n > 0:
			tie = true
		}
	}
	if tie {
		return ""
	}
	return best
}

func nextPerspective(p string) string {
	switch p {
	case PerspectiveSecond:
		return PerspectiveThird
	case PerspectiveThird:
		return PerspectiveFirst
	default:
		return PerspectiveSecond
	}
}

type perspectiveTracker struct {
	current string
	streak  int
}

// observe extends or restarts the streak. Unclassifiable narrative leaves
// it untouched.
func (t *perspectiveTracker) observe(narrative string) {
	p := ClassifyPerspective(narrative)
	if p == "" {
		return
	}
	if p == t.current {
		t.streak++
		return
	}
	t.current, t.streak = p, 1
}

func (e *Engine) applyPerspective(lr *protocol.LogicalResults) {
	limit := e.tune.Perspective.Streak
	if limit <= 0 || e.perspective.current == "" || e.perspective.streak < limit {
		return
	}
	lr.PerspectiveSwitch = nextPerspective(e.perspective.current)
}
