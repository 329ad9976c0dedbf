package save

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"chronicle.ai/internal/persistence/store"
	"chronicle.ai/internal/sim/state"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newManager(t *testing.T, st store.Store) (*Manager, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	m, err := New(st, Config{Now: clk.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, clk
}

func TestCreateNewSave_Defaults(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	a := m.CreateNewSave(1, "first")
	b := m.CreateNewSave(2, "second")
	if a.Meta.PlayerID == "" || a.Meta.PlayerID == b.Meta.PlayerID {
		t.Fatalf("player ids not unique: %q %q", a.Meta.PlayerID, b.Meta.PlayerID)
	}
	if a.Player.ID != a.Meta.PlayerID {
		t.Fatalf("player.id=%q meta.player_id=%q", a.Player.ID, a.Meta.PlayerID)
	}
	if a.Meta.CreatedAt != a.Meta.LastSaved || a.Meta.Version != state.SchemaVersion {
		t.Fatalf("meta=%+v", a.Meta)
	}
	if a.Player.Location.Region != "yingchuan" || len(a.EventLog) != 0 || len(a.DialogueHistory) != 0 {
		t.Fatalf("unexpected defaults: %+v", a)
	}
}

func TestSaveLoad_RoundTripPreservesState(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	sd := m.CreateNewSave(3, "roundtrip")
	sd.World.Time = state.GameTime{Year: 190, Month: 4, Day: 12}
	sd.World.AddFlag("coalition_formed")
	sd.Player.Location = state.Location{Region: "luoyang", Scene: "ruins"}
	sd.Player.Resources[state.ResGold] = 7
	m.AddDialogueHistory(sd, "a", "b", "c")

	if !m.Save(sd, false) {
		t.Fatalf("Save failed")
	}
	got := m.Load(3)
	if got == nil {
		t.Fatalf("Load returned nil")
	}
	if got.World.Time != sd.World.Time || !reflect.DeepEqual(got.World.Flags, sd.World.Flags) {
		t.Fatalf("world mismatch: %+v vs %+v", got.World, sd.World)
	}
	if got.Player.Location != sd.Player.Location || !reflect.DeepEqual(got.Player.Resources, sd.Player.Resources) {
		t.Fatalf("player mismatch: %+v", got.Player)
	}
	if !reflect.DeepEqual(got.DialogueHistory, []string{"a", "b", "c"}) {
		t.Fatalf("history=%v", got.DialogueHistory)
	}
	if !reflect.DeepEqual(got, sd) {
		t.Fatalf("aggregate mismatch:\n%+v\n%+v", got, sd)
	}
}

func TestSave_MetaStableAcrossSaves(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	sd := m.CreateNewSave(1, "stable")
	created, pid := sd.Meta.CreatedAt, sd.Meta.PlayerID
	var last int64
	for i := 0; i < 5; i++ {
		if !m.Save(sd, i%2 == 0) {
			t.Fatalf("save %d failed", i)
		}
		if sd.Meta.LastSaved <= last {
			t.Fatalf("last_saved did not advance: %d <= %d", sd.Meta.LastSaved, last)
		}
		last = sd.Meta.LastSaved
	}
	got := m.Load(1)
	if got.Meta.CreatedAt != created || got.Meta.PlayerID != pid {
		t.Fatalf("meta drifted: %+v", got.Meta)
	}
	if got.Meta.LastAutoSave == nil {
		t.Fatalf("last_auto_save not set")
	}
}

func TestSave_TrimsHistory(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	sd := m.CreateNewSave(1, "trim")
	for i := 0; i < 200; i++ {
		sd.DialogueHistory = append(sd.DialogueHistory, fmt.Sprintf("Line %d", i))
	}
	if !m.Save(sd, false) {
		t.Fatalf("Save failed")
	}
	got := m.Load(1)
	if len(got.DialogueHistory) != 100 || got.DialogueHistory[0] != "Line 100" {
		t.Fatalf("len=%d first=%q", len(got.DialogueHistory), got.DialogueHistory[0])
	}
}

func TestAddDialogueHistory_CapsInMemory(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	sd := m.CreateNewSave(1, "cap")
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = fmt.Sprintf("Line %d", i)
	}
	m.AddDialogueHistory(sd, lines...)
	if len(sd.DialogueHistory) != 100 || sd.DialogueHistory[0] != "Line 100" {
		t.Fatalf("len=%d first=%q", len(sd.DialogueHistory), sd.DialogueHistory[0])
	}
	m.AddDialogueHistory(sd, "Line 200")
	if len(sd.DialogueHistory) != 100 || sd.DialogueHistory[99] != "Line 200" {
		t.Fatalf("tail=%q", sd.DialogueHistory[99])
	}
}

func TestLogEvent_Idempotent(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	sd := m.CreateNewSave(1, "events")
	if !m.LogEvent(sd, "he_jin_killed") || !m.LogEvent(sd, "he_jin_killed") {
		t.Fatalf("LogEvent must always report true")
	}
	if len(sd.EventLog) != 1 {
		t.Fatalf("event_log=%v", sd.EventLog)
	}
	if sd.Progress.LastEventID != "he_jin_killed" || sd.Progress.LastEventTime == 0 {
		t.Fatalf("progress=%+v", sd.Progress)
	}
}

func TestExportDeleteImport_RestoresAggregate(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	sd := m.CreateNewSave(4, "portable")
	sd.Player.Aspiration = &state.Aspiration{Goal: state.GoalVirtue, Text: "安定一方"}
	m.LogEvent(sd, "he_jin_killed")
	m.AddDialogueHistory(sd, "你来到洛阳。")
	if !m.Save(sd, true) {
		t.Fatalf("Save failed")
	}
	want := m.Load(4)

	exported, ok := m.ExportSave(4)
	if !ok || exported == "" {
		t.Fatalf("ExportSave failed")
	}
	if !m.DeleteSave(4) {
		t.Fatalf("DeleteSave failed")
	}
	if m.Load(4) != nil {
		t.Fatalf("slot still present after delete")
	}
	if _, ok := m.ExportSave(4); ok {
		t.Fatalf("export of empty slot should fail")
	}
	if !m.ImportSave(exported, 4) {
		t.Fatalf("ImportSave failed")
	}
	got := m.Load(4)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("import mismatch:\n%+v\n%+v", got, want)
	}
}

func TestImportSave_RewritesSlotOnly(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	sd := m.CreateNewSave(1, "move")
	if !m.Save(sd, false) {
		t.Fatalf("Save failed")
	}
	exported, _ := m.ExportSave(1)
	if !m.ImportSave(exported, 7) {
		t.Fatalf("ImportSave failed")
	}
	got := m.Load(7)
	if got.Meta.SaveSlot != 7 || got.Meta.CreatedAt != sd.Meta.CreatedAt || got.Meta.LastSaved != sd.Meta.LastSaved {
		t.Fatalf("meta=%+v want created=%d", got.Meta, sd.Meta.CreatedAt)
	}
}

func TestImportSave_RejectsMalformed(t *testing.T) {
	m, _ := newManager(t, store.NewMemory())
	cases := []string{
		"",
		"not json",
		`{"meta":{}}`,
		`[]`,
		`{"meta":{"version":"1.0","created_at":1,"last_saved":1,"player_id":"p","save_slot":0},"player":{"id":"p","attrs":{},"location":{"region":"x"}},"world":{"era":"e","time":{"year":184,"month":13,"day":1}},"npcs":[],"event_log":[],"dialogue_history":[],"progress":{}}`,
		`{"meta":{"version":"1.0","created_at":1,"last_saved":1,"player_id":"p","save_slot":0},"player":{"id":"p","attrs":{},"location":{"region":"x"}},"world":{"era":"e","time":{"year":184,"month":1,"day":1}},"npcs":[],"event_log":["a","a"],"dialogue_history":[],"progress":{}}`,
	}
	for i, in := range cases {
		if m.ImportSave(in, 1) {
			t.Fatalf("case %d accepted: %s", i, in)
		}
	}
	if m.Load(1) != nil {
		t.Fatalf("rejected import wrote a record")
	}
}

func TestLoad_CorruptRecordIsNil(t *testing.T) {
	st := store.NewMemory()
	_ = st.Put(Key(2), []byte("{broken"))
	m, _ := newManager(t, st)
	if m.Load(2) != nil {
		t.Fatalf("corrupt record should load as nil")
	}
	if m.Load(99) != nil {
		t.Fatalf("missing slot should load as nil")
	}
}

type failingStore struct{ store.Store }

func (failingStore) Put(string, []byte) error { return errors.New("disk full") }

func TestSave_StorageFailureReturnsFalse(t *testing.T) {
	m, _ := newManager(t, failingStore{store.NewMemory()})
	sd := m.CreateNewSave(1, "fail")
	before := sd.Meta
	if m.Save(sd, true) {
		t.Fatalf("Save should fail")
	}
	if !reflect.DeepEqual(sd.Meta, before) {
		t.Fatalf("meta changed on failed save: %+v", sd.Meta)
	}
}

func TestSave_BoundedRecordSize(t *testing.T) {
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	m, err := New(store.NewMemory(), Config{Now: clk.Now, MaxRecordBytes: 4096})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sd := m.CreateNewSave(1, "bounded")
	for i := 0; i < 100; i++ {
		sd.DialogueHistory = append(sd.DialogueHistory, strings.Repeat("字", 40))
	}
	sd.DialogueHistory[99] = "newest"
	if !m.Save(sd, false) {
		t.Fatalf("Save failed")
	}
	raw, _, _ := m.store.Get(Key(1))
	if len(raw) > 4096 {
		t.Fatalf("record is %d bytes", len(raw))
	}
	if len(sd.DialogueHistory) >= 100 || sd.DialogueHistory[len(sd.DialogueHistory)-1] != "newest" {
		t.Fatalf("history not trimmed oldest-first: %d", len(sd.DialogueHistory))
	}

	tiny, _ := New(store.NewMemory(), Config{Now: clk.Now, MaxRecordBytes: 64})
	small := tiny.CreateNewSave(1, "x")
	small.DialogueHistory = []string{"一", "二", "三", "四"}
	lastSaved := small.Meta.LastSaved
	if tiny.Save(small, false) {
		t.Fatalf("record larger than the bound must not save")
	}
	if len(small.DialogueHistory) != 4 || small.DialogueHistory[0] != "一" || small.DialogueHistory[3] != "四" {
		t.Fatalf("failed save changed history: %v", small.DialogueHistory)
	}
	if small.Meta.LastSaved != lastSaved {
		t.Fatalf("failed save changed meta")
	}
}

func TestListSlots(t *testing.T) {
	st := store.NewMemory()
	m, _ := newManager(t, st)
	for _, slot := range []int{3, 1} {
		sd := m.CreateNewSave(slot, fmt.Sprintf("slot-%d", slot))
		if !m.Save(sd, false) {
			t.Fatalf("Save %d failed", slot)
		}
	}
	_ = st.Put(Key(9), []byte("junk"))
	_ = st.Put("save:abc", []byte("{}"))
	got := m.ListSlots()
	if len(got) != 2 || got[0].Slot != 1 || got[1].Slot != 3 || got[1].SaveName != "slot-3" {
		t.Fatalf("slots=%+v", got)
	}
}
