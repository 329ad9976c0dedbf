package constraints

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/state"
)

// A skip is a numeral, an optional 个, then a unit. Ordinals (第N年) and
// past references (N年前, N years ago) are not skips. 前往 after a duration
// is movement; 前进/前去 stay past references (三天前去过).
var skipRe = regexp.MustCompile(`(?i)(第\s*)?(\d+|[零〇一二两三四五六七八九十]+)\s*(个)?\s*(years?|yrs?|months?|days?|年|月|天|日)`)

// Calendar dates make the whole intent ambiguous: 公元190年, 今年三月,
// 三月初五, 5月3日, 三月十五.
var (
	eraPrefixes = []string{"公元", "今年", "明年", "去年"}
	monthDayRe  = regexp.MustCompile(`^\s*(初|上旬|中旬|下旬|底|[\d零〇一二两三四五六七八九十廿]+\s*[日号]?)`)
	pastRe      = regexp.MustCompile(`(?i)^\s*(以前|之前|ago\b|前([^往]|$))`)
)

type Skip struct {
	Amount int
	Unit   protocol.TimeUnit
}

// ParseTimeSkip returns the first explicit skip expressed in intent. An
// intent that names a calendar date has no skip.
func ParseTimeSkip(intent string) (Skip, bool) {
	text := width.Fold.String(intent)
	for _, loc := range skipRe.FindAllStringSubmatchIndex(text, -1) {
		before := strings.TrimRight(text[:loc[0]], " \t")
		after := text[loc[1]:]
		rawUnit := text[loc[8]:loc[9]]
		unit, ok := parseUnit(rawUnit)
		if !ok {
			continue
		}
		if isDate(before, after, rawUnit, loc[6] >= 0) {
			return Skip{}, false
		}
		if loc[2] >= 0 || pastRe.MatchString(after) {
			continue
		}
		n, ok := parseNumeral(text[loc[4]:loc[5]])
		if !ok || n <= 0 {
			continue
		}
		return Skip{Amount: n, Unit: unit}, true
	}
	return Skip{}, false
}

// isDate reports whether the match around before/after is a calendar date
// rather than a duration. withGe is true when 个 sits between numeral and
// unit, which only durations use.
func isDate(before, after, unit string, withGe bool) bool {
	for _, p := range eraPrefixes {
		if strings.HasSuffix(before, p) {
			return true
		}
	}
	return unit == "月" && !withGe && monthDayRe.MatchString(after)
}

func parseUnit(s string) (protocol.TimeUnit, bool) {
	s = strings.ToLower(s)
	switch {
	case s == "年" || strings.HasPrefix(s, "y"):
		return protocol.UnitYear, true
	case s == "月" || strings.HasPrefix(s, "m"):
		return protocol.UnitMonth, true
	case s == "天" || s == "日" || strings.HasPrefix(s, "d"):
		return protocol.UnitDay, true
	}
	return "", false
}

var cnDigits = map[rune]int{
	'零': 0, '〇': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// parseNumeral accepts ASCII digits or Chinese numerals below 100.
func parseNumeral(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	rs := []rune(s)
	switch len(rs) {
	case 1:
		if rs[0] == '十' {
			return 10, true
		}
		d, ok := cnDigits[rs[0]]
		return d, ok
	case 2:
		if rs[0] == '十' {
			d, ok := cnDigits[rs[1]]
			return 10 + d, ok
		}
		if rs[1] == '十' {
			d, ok := cnDigits[rs[0]]
			return d * 10, ok && d > 0
		}
	case 3:
		if rs[1] != '十' {
			return 0, false
		}
		hi, ok1 := cnDigits[rs[0]]
		lo, ok2 := cnDigits[rs[2]]
		return hi*10 + lo, ok1 && ok2 && hi > 0
	}
	return 0, false
}

// withinLimit reports whether a skip fits the configured maximum span.
// Larger numerals are read as years or counts, not durations.
func (e *Engine) withinLimit(s Skip) bool {
	limit := e.tune.TimeSkip.MaxYears
	switch s.Unit {
	case protocol.UnitMonth:
		limit *= state.MonthsPerYear
	case protocol.UnitDay:
		limit *= state.MonthsPerYear * state.DaysPerMonth
	}
	return s.Amount > 0 && s.Amount <= limit
}

func (e *Engine) applyTimeSkip(p *protocol.Payload, lr *protocol.LogicalResults) bool {
	skip, ok := ParseTimeSkip(p.PlayerIntent)
	if !ok || !e.withinLimit(skip) {
		return false
	}

	now := p.WorldState.Time
	var next state.GameTime
	switch skip.Unit {
	case protocol.UnitYear:
		next = now.Add(skip.Amount, 0, 0)
	case protocol.UnitMonth:
		next = now.Add(0, skip.Amount, 0)
	default:
		next = now.Add(0, 0, skip.Amount)
	}
	p.WorldState.Time = state.Max(now, next)
	lr.TimePassed = skip.Amount
	lr.TimeUnit = skip.Unit
	return true
}
