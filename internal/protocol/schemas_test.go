package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/state"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validate(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate: %v\n%s", err, b)
	}
}

func TestSchemas_ValidateMessages(t *testing.T) {
	validate(t, compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Slot:            1,
		SaveName:        "first",
	})
	validate(t, compile(t, "intent.schema.json"), protocol.IntentMsg{
		Type:            protocol.TypeIntent,
		ProtocolVersion: protocol.Version,
		Text:            "闭关 5 年",
	})
}

func TestSchemas_PayloadOptionalBlocks(t *testing.T) {
	s := compile(t, "payload.schema.json")

	p := protocol.Payload{
		PlayerState:  state.DefaultPlayer(),
		WorldState:   state.DefaultWorld(),
		NPCState:     state.DefaultNPCs(),
		PlayerIntent: "四处看看",
		Round:        1,
	}
	validate(t, s, p)

	b, _ := json.Marshal(p)
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	if _, ok := raw["event_context"]; ok {
		t.Fatalf("nil event_context must be omitted, got %s", b)
	}
	if _, ok := raw["logical_results"]; ok {
		t.Fatalf("nil logical_results must be omitted, got %s", b)
	}

	p.EventContext = &protocol.EventContext{RecentDialogue: []string{"你来到了颍川。"}}
	p.LogicalResults = &protocol.LogicalResults{
		TimePassed: 5,
		TimeUnit:   protocol.UnitYear,
		WorldChanges: []protocol.WorldChange{
			{ID: "dongzhuo_enters_luoyang", Year: 189, Label: "董卓进京", EffectHint: "洛阳陷入恐慌"},
		},
	}
	validate(t, s, p)
}

func TestLogicalResultsEmpty(t *testing.T) {
	var lr *protocol.LogicalResults
	if !lr.Empty() {
		t.Fatalf("nil results should be empty")
	}
	if (&protocol.LogicalResults{Mood: "tense"}).Empty() {
		t.Fatalf("mood alone is not empty")
	}
}
