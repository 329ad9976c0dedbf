package mcp

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestAgents_RememberSlotAcrossRestart(t *testing.T) {
	deps := testDeps(t)
	stateFile := filepath.Join(t.TempDir(), "mcp", "agents.json")
	ctx := context.Background()

	a, err := NewAgents(AgentsConfig{Deps: deps, StateFile: stateFile})
	if err != nil {
		t.Fatalf("NewAgents: %v", err)
	}
	if _, err := a.Open(ctx, "agent_1", OpenArgs{Slot: 7, SaveName: "长安客"}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := a.Turn(ctx, "agent_1", TurnArgs{Text: "读书三月"}); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	a.Shutdown()
	if _, ok := deps.Slots.Owner(7); ok {
		t.Fatalf("shutdown kept the slot claimed")
	}

	b, err := NewAgents(AgentsConfig{Deps: deps, StateFile: stateFile})
	if err != nil {
		t.Fatalf("NewAgents: %v", err)
	}
	w, err := b.View(ctx, "agent_1")
	if err != nil {
		t.Fatalf("View after restart: %v", err)
	}
	if w.Slot != 7 || w.SaveName != "长安客" || w.TotalTurns != 1 {
		t.Fatalf("welcome=%+v", w)
	}
}

func TestAgents_EvictsLeastRecentlyUsed(t *testing.T) {
	deps := testDeps(t)
	clock := time.Unix(1700000000, 0)
	a, err := NewAgents(AgentsConfig{Deps: deps, MaxSessions: 2, Now: func() time.Time { return clock }})
	if err != nil {
		t.Fatalf("NewAgents: %v", err)
	}
	ctx := context.Background()
	for i, agent := range []string{"a", "b"} {
		clock = clock.Add(time.Second)
		if _, err := a.Open(ctx, agent, OpenArgs{Slot: i}); err != nil {
			t.Fatalf("Open %s: %v", agent, err)
		}
	}
	clock = clock.Add(time.Second)
	if _, err := a.View(ctx, "a"); err != nil {
		t.Fatalf("View: %v", err)
	}
	clock = clock.Add(time.Second)
	if _, err := a.Open(ctx, "c", OpenArgs{Slot: 2}); err != nil {
		t.Fatalf("Open c: %v", err)
	}
	if _, ok := deps.Slots.Owner(1); ok {
		t.Fatalf("least recently used agent b should have been evicted")
	}
	if o, _ := deps.Slots.Owner(0); o != owner("a") {
		t.Fatalf("slot 0 owner=%q", o)
	}
}

func TestAgents_RejectsNegativeSlot(t *testing.T) {
	a, err := NewAgents(AgentsConfig{Deps: testDeps(t)})
	if err != nil {
		t.Fatalf("NewAgents: %v", err)
	}
	if _, err := a.Open(context.Background(), "a", OpenArgs{Slot: -1}); wireCode(err) != "E_BAD_REQUEST" {
		t.Fatalf("err=%v", err)
	}
}
