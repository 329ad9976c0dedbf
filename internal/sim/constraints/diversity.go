package constraints

import (
	"sort"
	"strings"
	"unicode"

	"chronicle.ai/internal/protocol"
)

var latinStopwords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "with": true,
	"that": true, "this": true, "for": true, "are": true, "was": true,
	"were": true, "his": true, "her": true, "from": true, "into": true,
	"but": true, "not": true, "have": true, "has": true, "had": true,
	"they": true, "them": true, "their": true, "she": true, "him": true,
}

var cjkStopwords = map[string]bool{
	"一个": true, "我们": true, "你们": true, "他们": true, "自己": true,
	"没有": true, "这个": true, "那个": true, "什么": true, "不是": true,
	"就是": true, "已经": true, "可以": true, "之后": true, "之中": true,
}

// Keywords splits text into a keyword set: Latin words of three or more
// letters and every adjacent pair of Han characters.
func Keywords(text string) map[string]bool {
	out := map[string]bool{}
	var word []rune
	var han []rune
	flushWord := func() {
		if len(word) >= 3 {
			w := strings.ToLower(string(word))
			if !latinStopwords[w] {
				out[w] = true
			}
		}
		word = word[:0]
	}
	flushHan := func() {
		for i := 0; i+1 < len(han); i++ {
			bg := string(han[i : i+2])
			if !cjkStopwords[bg] {
				out[bg] = true
			}
		}
		han = han[:0]
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

type diversityWindow struct {
	lookback int
	sets     []map[string]bool

	active *protocol.DiversityConstraint
}

func (w *diversityWindow) observe(narrative string) {
	kw := Keywords(narrative)
	if len(kw) == 0 {
		return
	}
	w.sets = append(w.sets, kw)
	if w.lookback > 0 && len(w.sets) > w.lookback {
		w.sets = w.sets[len(w.sets)-w.lookback:]
	}
}

// overlap is the mean Jaccard similarity of consecutive keyword sets over
// the last n observations.
func (w *diversityWindow) overlap(n int) (float64, bool) {
	if n < 2 || len(w.sets) < n {
		return 0, false
	}
	recent := w.sets[len(w.sets)-n:]
	sum := 0.0
	for i := 1; i < len(recent); i++ {
		sum += jaccard(recent[i-1], recent[i])
	}
	return sum / float64(len(recent)-1), true
}

// repeated returns up to n terms appearing in at least two sets of the
// window, most frequent first.
func (w *diversityWindow) repeated(n int) []string {
	freq := map[string]int{}
	for _, s := range w.sets {
		for k := range s {
			freq[k]++
		}
	}
	terms := make([]string, 0, len(freq))
	for k, c := range freq {
		if c >= 2 {
			terms = append(terms, k)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

func (e *Engine) applyDiversity(p *protocol.Payload, lr *protocol.LogicalResults) {
	w := &e.diversity
	if w.active != nil && p.Round <= w.active.UntilRound {
		lr.Diversity = cloneDiversity(w.active)
		return
	}
	w.active = nil

	cfg := e.tune.Diversity
	ratio, ok := w.overlap(cfg.MinSample)
	if !ok || ratio <= cfg.OverlapRatio {
		return
	}
	terms := w.repeated(cfg.TopN)
	if len(terms) == 0 {
		return
	}
	hold := cfg.HoldRounds
	if hold < 1 {
		hold = 1
	}
	w.active = &protocol.DiversityConstraint{ForbiddenTerms: terms, UntilRound: p.Round + hold - 1}
	lr.Diversity = cloneDiversity(w.active)
}

func cloneDiversity(d *protocol.DiversityConstraint) *protocol.DiversityConstraint {
	return &protocol.DiversityConstraint{
		ForbiddenTerms: append([]string(nil), d.ForbiddenTerms...),
		UntilRound:     d.UntilRound,
	}
}
