package constraints

import (
	"testing"

	"chronicle.ai/internal/protocol"
)

func TestParseTimeSkip(t *testing.T) {
	cases := []struct {
		in     string
		amount int
		unit   protocol.TimeUnit
		ok     bool
	}{
		{"闭关 5 年", 5, protocol.UnitYear, true},
		{"闭关５年", 5, protocol.UnitYear, true},
		{"隐居十年", 10, protocol.UnitYear, true},
		{"等两个月", 2, protocol.UnitMonth, true},
		{"苦练二十五天", 25, protocol.UnitDay, true},
		{"歇三日", 3, protocol.UnitDay, true},
		{"wait 3 Months", 3, protocol.UnitMonth, true},
		{"rest for 1 year", 1, protocol.UnitYear, true},
		{"travel 12 days north", 12, protocol.UnitDay, true},
		{"第五年的春天", 0, "", false},
		{"三年前的旧事", 0, "", false},
		{"5 years ago", 0, "", false},
		{"第三年后再闭关两年", 2, protocol.UnitYear, true},
		{"看看天色", 0, "", false},
		{"0 years", 0, "", false},
		{"花十天前往洛阳", 10, protocol.UnitDay, true},
		{"用5天前往许昌", 5, protocol.UnitDay, true},
		{"两年前进过京城", 0, "", false},
		{"三年之前的事", 0, "", false},
		{"三天前去过洛阳", 0, "", false},
		{"wait 3 months 2 days", 3, protocol.UnitMonth, true},
		{"打听公元190年的消息", 0, "", false},
		{"今年三月去许昌", 0, "", false},
		{"明年二月再说，先闭关一年", 0, "", false},
		{"三月初五出发", 0, "", false},
		{"5月3日启程", 0, "", false},
		{"约定八月十五号相见", 0, "", false},
		{"三个月后回来", 3, protocol.UnitMonth, true},
	}
	for _, tc := range cases {
		got, ok := ParseTimeSkip(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v want %v", tc.in, ok, tc.ok)
		}
		if ok && (got.Amount != tc.amount || got.Unit != tc.unit) {
			t.Fatalf("%q: got %+v want %d %s", tc.in, got, tc.amount, tc.unit)
		}
	}
}

func TestParseNumeral(t *testing.T) {
	cases := map[string]int{"一": 1, "两": 2, "十": 10, "十一": 11, "三十": 30, "九十九": 99, "42": 42}
	for in, want := range cases {
		got, ok := parseNumeral(in)
		if !ok || got != want {
			t.Fatalf("%q: got %d ok=%v want %d", in, got, ok, want)
		}
	}
	for _, bad := range []string{"十十", "一二三四", "零十"} {
		if _, ok := parseNumeral(bad); ok {
			t.Fatalf("%q should not parse", bad)
		}
	}
}
