package snapshot

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"chronicle.ai/internal/sim/registry"
	"chronicle.ai/internal/sim/state"
	"chronicle.ai/internal/sim/tuning"
)

func newSave() *state.SaveData {
	sd := &state.SaveData{
		Player: state.DefaultPlayer(),
		World:  state.DefaultWorld(),
		NPCs:   state.DefaultNPCs(),
	}
	sd.Normalize()
	return sd
}

func TestBuild_NoSaveUsesDefaultsAndOmitsContext(t *testing.T) {
	b := NewBuilder(registry.New(), tuning.Defaults())
	p := b.Build(nil, "四处看看", nil)

	if p.PlayerState.Location.Region != "yingchuan" {
		t.Fatalf("region=%q want yingchuan", p.PlayerState.Location.Region)
	}
	if p.WorldState.Time.Year != state.StartYear {
		t.Fatalf("year=%d", p.WorldState.Time.Year)
	}
	if p.EventContext != nil {
		t.Fatalf("event_context must be omitted without dialogue")
	}
	if p.Round != 1 {
		t.Fatalf("round=%d want 1", p.Round)
	}
	raw, _ := json.Marshal(p)
	if strings.Contains(string(raw), "event_context") {
		t.Fatalf("event_context present on the wire: %s", raw)
	}
}

func TestBuild_DefaultsRecentDialogueToLastFive(t *testing.T) {
	sd := newSave()
	for i := 0; i < 8; i++ {
		sd.DialogueHistory = append(sd.DialogueHistory, fmt.Sprintf("line %d", i))
	}
	sd.EventLog = []string{"yellow_turban_rising"}
	sd.Progress.TotalTurns = 7

	p := NewBuilder(registry.New(), tuning.Defaults()).Build(sd, "前往洛阳", nil)
	if p.EventContext == nil {
		t.Fatalf("expected event_context")
	}
	want := []string{"line 3", "line 4", "line 5", "line 6", "line 7"}
	if !reflect.DeepEqual(p.EventContext.RecentDialogue, want) {
		t.Fatalf("recent=%v want %v", p.EventContext.RecentDialogue, want)
	}
	if !reflect.DeepEqual(p.EventContext.Milestones, []string{"yellow_turban_rising"}) {
		t.Fatalf("milestones=%v", p.EventContext.Milestones)
	}
	if p.Round != 8 {
		t.Fatalf("round=%d want 8", p.Round)
	}
}

func TestBuild_ExplicitEmptyRecentOmitsContext(t *testing.T) {
	sd := newSave()
	sd.DialogueHistory = []string{"a", "b"}
	p := NewBuilder(registry.New(), tuning.Defaults()).Build(sd, "x", []string{})
	if p.EventContext != nil {
		t.Fatalf("explicit empty dialogue should omit event_context")
	}
}

func TestBuild_FiltersNPCsThroughRegistry(t *testing.T) {
	reg := registry.New()
	reg.RegisterAll(registry.TypeNPC, "caocao", "liubei")

	p := NewBuilder(reg, tuning.Defaults()).Build(newSave(), "拜访", nil)
	var got []string
	for _, n := range p.NPCState {
		got = append(got, n.ID)
	}
	if !reflect.DeepEqual(got, []string{"caocao", "liubei"}) {
		t.Fatalf("npcs=%v", got)
	}
}

func TestBuild_DoesNotMutateOrAliasSave(t *testing.T) {
	sd := newSave()
	sd.DialogueHistory = []string{"a"}
	before := sd.Clone()

	p := NewBuilder(registry.New(), tuning.Defaults()).Build(sd, "x", nil)
	p.PlayerState.Attrs[state.AttrHealth] = 1
	p.WorldState.Flags = append(p.WorldState.Flags, "mutated")
	p.EventContext.RecentDialogue[0] = "changed"
	p.NPCState[0].Trust = 99

	if !reflect.DeepEqual(sd, before) {
		t.Fatalf("save mutated through payload")
	}
}
