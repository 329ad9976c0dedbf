package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chronicle.ai/internal/sim/state"
)

func TestArchiveSave_WritesSaveAndMeta(t *testing.T) {
	dir := t.TempDir()
	sd := &state.SaveData{
		Meta:     state.Meta{Version: state.SchemaVersion, PlayerID: "p-1", SaveName: "epilogue", SaveSlot: 2},
		World:    state.DefaultWorld(),
		EventLog: []string{"he_jin_killed", "wu_falls"},
		Progress: state.Progress{TotalTurns: 42},
	}
	sd.World.Time.Year = 280

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	path, err := ArchiveSave(dir, sd, "terminal", now)
	if err != nil {
		t.Fatalf("ArchiveSave: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(path, "save.json"))
	if err != nil {
		t.Fatalf("read save: %v", err)
	}
	var got state.SaveData
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode save: %v", err)
	}
	if got.Meta.PlayerID != "p-1" || got.World.Time.Year != 280 {
		t.Fatalf("archived save mismatch: %+v", got.Meta)
	}

	metas, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 1 || metas[0].Reason != "terminal" || metas[0].TotalTurns != 42 || metas[0].Events != 2 {
		t.Fatalf("metas=%+v", metas)
	}
}

func TestArchiveSave_RejectsAnonymous(t *testing.T) {
	if _, err := ArchiveSave(t.TempDir(), &state.SaveData{}, "span", time.Now()); err == nil {
		t.Fatalf("expected error")
	}
	if metas, err := List(filepath.Join(t.TempDir(), "missing")); err != nil || metas != nil {
		t.Fatalf("missing dir: %v %v", metas, err)
	}
}
