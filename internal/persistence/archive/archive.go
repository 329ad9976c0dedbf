// Package archive keeps finished playthroughs out of the live save slots.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"chronicle.ai/internal/sim/state"
)

// ArchiveMeta describes one finished playthrough.
type ArchiveMeta struct {
	Slot       int            `json:"slot"`
	PlayerID   string         `json:"player_id"`
	SaveName   string         `json:"save_name"`
	Reason     string         `json:"reason"`
	TotalTurns int            `json:"total_turns"`
	EndTime    state.GameTime `json:"end_time"`
	Events     int            `json:"events"`
	CreatedAt  string         `json:"created_at"`
	Save       string         `json:"save"`
}

// ArchiveSave writes a finished save into `dir/<player_id>_<unix ms>/` with a
// meta.json beside it. It returns the archive directory.
func ArchiveSave(dir string, sd *state.SaveData, reason string, now time.Time) (string, error) {
	if sd == nil {
		return "", fmt.Errorf("nil save")
	}
	if sd.Meta.PlayerID == "" {
		return "", fmt.Errorf("save has no player id")
	}
	archiveDir := filepath.Join(dir, fmt.Sprintf("%s_%d", sd.Meta.PlayerID, now.UnixMilli()))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	raw, err := json.MarshalIndent(sd, "", "  ")
	if err != nil {
		return "", err
	}
	dst := filepath.Join(archiveDir, "save.json")
	if err := os.WriteFile(dst, raw, 0o644); err != nil {
		return "", err
	}

	meta := ArchiveMeta{
		Slot:       sd.Meta.SaveSlot,
		PlayerID:   sd.Meta.PlayerID,
		SaveName:   sd.Meta.SaveName,
		Reason:     reason,
		TotalTurns: sd.Progress.TotalTurns,
		EndTime:    sd.World.Time,
		Events:     len(sd.EventLog),
		CreatedAt:  now.UTC().Format(time.RFC3339Nano),
		Save:       filepath.Base(dst),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return archiveDir, nil
}

// List returns the meta of every archive under dir, oldest first.
func List(dir string) ([]ArchiveMeta, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []ArchiveMeta
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m ArchiveMeta
		if json.Unmarshal(b, &m) != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}
