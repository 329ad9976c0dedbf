// Package log writes the per-turn adjudication trace: what the player asked,
// what the engine decided, what the generator said and what was applied.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/state"
)

type TurnLogEntry struct {
	At       int64  `json:"at"`
	Slot     int    `json:"slot"`
	PlayerID string `json:"player_id"`
	Round    int    `json:"round"`
	Intent   string `json:"intent"`

	Blocked     bool   `json:"blocked,omitempty"`
	BlockReason string `json:"block_reason,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Failure     string `json:"failure,omitempty"`

	LogicalResults *protocol.LogicalResults `json:"logical_results,omitempty"`
	Narrative      string                   `json:"narrative,omitempty"`
	Applied        []string                 `json:"applied,omitempty"`
	Unknown        []string                 `json:"unknown,omitempty"`
	Rejected       []string                 `json:"rejected,omitempty"`
	Events         []string                 `json:"events,omitempty"`

	Time     state.GameTime `json:"time"`
	GameOver bool           `json:"game_over,omitempty"`
	Saved    bool           `json:"saved"`
}

// TurnLogger writes one compressed JSONL entry per turn.
type TurnLogger struct{ w *JSONLZstdWriter }

func NewTurnLogger(dir string) *TurnLogger {
	return &TurnLogger{w: NewJSONLZstdWriter(dir, "turns")}
}

func (l *TurnLogger) WriteTurn(e TurnLogEntry) error { return l.w.Write(e) }
func (l *TurnLogger) Close() error                   { return l.w.Close() }

// OnClosed forwards every finished hour file to fn.
func (l *TurnLogger) OnClosed(fn func(path string)) { l.w.OnClosed(fn) }

// TurnFiles lists the turn log files under dir in chronological order.
func TurnFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "turns-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadTurns decodes every entry of one log file, stopping at a torn tail.
func ReadTurns(path string, fn func(TurnLogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e TurnLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return nil
}
