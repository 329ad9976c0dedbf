package log

import (
	"path/filepath"
	"testing"
	"time"

	"chronicle.ai/internal/sim/state"
)

func TestTurnLogger_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir)
	base := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	clock := base
	l.w.now = func() time.Time { return clock }
	var closed []string
	l.OnClosed(func(path string) { closed = append(closed, filepath.Base(path)) })

	for i := 1; i <= 3; i++ {
		if i == 3 {
			clock = base.Add(2 * time.Minute)
		}
		e := TurnLogEntry{Round: i, Intent: "闭关", Time: state.GameTime{Year: 184 + i, Month: 1, Day: 1}, Saved: true}
		if err := l.WriteTurn(e); err != nil {
			t.Fatalf("WriteTurn: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := TurnFiles(dir)
	if err != nil {
		t.Fatalf("TurnFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected hourly rotation into 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "turns-2026-03-01-10.jsonl.zst" {
		t.Fatalf("first file=%s", files[0])
	}
	if len(closed) != 2 || closed[0] != "turns-2026-03-01-10.jsonl.zst" || closed[1] != "turns-2026-03-01-11.jsonl.zst" {
		t.Fatalf("closed=%v", closed)
	}

	var rounds []int
	for _, f := range files {
		if err := ReadTurns(f, func(e TurnLogEntry) error {
			rounds = append(rounds, e.Round)
			return nil
		}); err != nil {
			t.Fatalf("ReadTurns %s: %v", f, err)
		}
	}
	if len(rounds) != 3 || rounds[0] != 1 || rounds[2] != 3 {
		t.Fatalf("rounds=%v", rounds)
	}
}
