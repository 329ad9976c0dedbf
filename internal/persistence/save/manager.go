// Package save owns the durable SaveData aggregate: creation, bounded-size
// persistence, history trimming, idempotent event logging and portable
// export/import.
//
// Storage failures never cross this boundary. They are logged and surface
// as false or nil returns so the caller can fall back to a fresh session.
package save

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"chronicle.ai/internal/persistence/store"
	"chronicle.ai/internal/sim/state"
)

//go:embed save.schema.json
var saveSchemaJSON string

const keyPrefix = "save:"

// Key is the store key for a slot.
func Key(slot int) string {
	return keyPrefix + strconv.Itoa(slot)
}

type Config struct {
	// MaxHistory caps dialogue_history. Zero means state.MaxDialogueHistory.
	MaxHistory int
	// MaxRecordBytes bounds the encoded record. Zero disables the bound.
	MaxRecordBytes int

	Now    func() time.Time
	NewID  func() string
	Logger *log.Logger
}

type Manager struct {
	store    store.Store
	maxHist  int
	maxBytes int
	now      func() time.Time
	newID    func() string
	logger   *log.Logger
	schema   *jsonschema.Schema
}

func New(st store.Store, cfg Config) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("nil store")
	}
	schema, err := jsonschema.CompileString("save.schema.json", saveSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile save schema: %w", err)
	}
	m := &Manager{
		store:    st,
		maxHist:  cfg.MaxHistory,
		maxBytes: cfg.MaxRecordBytes,
		now:      cfg.Now,
		newID:    cfg.NewID,
		logger:   cfg.Logger,
		schema:   schema,
	}
	if m.maxHist <= 0 {
		m.maxHist = state.MaxDialogueHistory
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard, "", 0)
	}
	return m, nil
}

func (m *Manager) nowMillis() int64 {
	return m.now().UnixMilli()
}

// CreateNewSave builds a fresh aggregate. It is not persisted until Save.
func (m *Manager) CreateNewSave(slot int, name string) *state.SaveData {
	now := m.nowMillis()
	id := m.newID()
	player := state.DefaultPlayer()
	player.ID = id
	sd := &state.SaveData{
		Meta: state.Meta{
			Version:   state.SchemaVersion,
			CreatedAt: now,
			LastSaved: now,
			PlayerID:  id,
			SaveName:  name,
			SaveSlot:  slot,
		},
		Player:          player,
		World:           state.DefaultWorld(),
		NPCs:            state.DefaultNPCs(),
		EventLog:        []string{},
		DialogueHistory: []string{},
	}
	return sd
}

// Load returns nil for a missing or unreadable slot.
func (m *Manager) Load(slot int) *state.SaveData {
	raw, ok, err := m.store.Get(Key(slot))
	if err != nil {
		m.logger.Printf("load slot %d: %v", slot, err)
		return nil
	}
	if !ok {
		return nil
	}
	var sd state.SaveData
	if err := json.Unmarshal(raw, &sd); err != nil {
		m.logger.Printf("load slot %d: corrupt record: %v", slot, err)
		return nil
	}
	if sd.Meta.Version == "" {
		m.logger.Printf("load slot %d: record has no version", slot)
		return nil
	}
	sd.Normalize()
	return &sd
}

// Save trims history, stamps meta and writes the record to its slot.
func (m *Manager) Save(sd *state.SaveData, isAuto bool) bool {
	if sd == nil || sd.Meta.SaveSlot < 0 {
		return false
	}
	sd.Normalize()
	sd.TrimDialogue(m.maxHist)
	if sd.Meta.Version == "" {
		sd.Meta.Version = state.SchemaVersion
	}

	// A failed write leaves meta and history as they were.
	prev, hist := sd.Meta, sd.DialogueHistory
	now := m.nowMillis()
	sd.Meta.LastSaved = now
	if isAuto {
		sd.Meta.LastAutoSave = &now
	}

	raw, err := m.encodeBounded(sd)
	if err == nil {
		err = m.store.Put(Key(sd.Meta.SaveSlot), raw)
	}
	if err != nil {
		sd.Meta, sd.DialogueHistory = prev, hist
		m.logger.Printf("save slot %d: %v", sd.Meta.SaveSlot, err)
		return false
	}
	return true
}

// encodeBounded marshals sd, dropping the oldest dialogue lines until the
// record fits within maxBytes.
func (m *Manager) encodeBounded(sd *state.SaveData) ([]byte, error) {
	for {
		raw, err := json.Marshal(sd)
		if err != nil {
			return nil, err
		}
		if m.maxBytes <= 0 || len(raw) <= m.maxBytes {
			return raw, nil
		}
		n := len(sd.DialogueHistory)
		if n == 0 {
			return nil, fmt.Errorf("record is %d bytes, limit %d", len(raw), m.maxBytes)
		}
		sd.TrimDialogue(n - max(1, n/4))
	}
}

// LogEvent appends id unless already present. Logging a duplicate is a
// successful no-op, so it always reports true.
func (m *Manager) LogEvent(sd *state.SaveData, id string) bool {
	if sd == nil || id == "" || sd.HasEvent(id) {
		return true
	}
	sd.EventLog = append(sd.EventLog, id)
	sd.Progress.LastEventID = id
	sd.Progress.LastEventTime = m.nowMillis()
	return true
}

// AddDialogueHistory appends lines and applies the history cap in memory.
func (m *Manager) AddDialogueHistory(sd *state.SaveData, lines ...string) {
	if sd == nil {
		return
	}
	sd.DialogueHistory = append(sd.DialogueHistory, lines...)
	sd.TrimDialogue(m.maxHist)
}

// ExportSave returns the slot's record as portable JSON.
func (m *Manager) ExportSave(slot int) (string, bool) {
	sd := m.Load(slot)
	if sd == nil {
		return "", false
	}
	raw, err := json.Marshal(sd)
	if err != nil {
		m.logger.Printf("export slot %d: %v", slot, err)
		return "", false
	}
	return string(raw), true
}

// ImportSave validates serialized against the save schema and writes it into
// slot. Meta is kept as exported except save_slot, which follows the target.
func (m *Manager) ImportSave(serialized string, slot int) bool {
	if slot < 0 {
		return false
	}
	var doc any
	if err := json.Unmarshal([]byte(serialized), &doc); err != nil {
		m.logger.Printf("import slot %d: malformed json: %v", slot, err)
		return false
	}
	if err := m.schema.Validate(doc); err != nil {
		m.logger.Printf("import slot %d: %v", slot, err)
		return false
	}
	var sd state.SaveData
	if err := json.Unmarshal([]byte(serialized), &sd); err != nil {
		m.logger.Printf("import slot %d: decode: %v", slot, err)
		return false
	}
	sd.Normalize()
	sd.TrimDialogue(m.maxHist)
	sd.Meta.SaveSlot = slot

	raw, err := m.encodeBounded(&sd)
	if err == nil {
		err = m.store.Put(Key(slot), raw)
	}
	if err != nil {
		m.logger.Printf("import slot %d: %v", slot, err)
		return false
	}
	return true
}

func (m *Manager) DeleteSave(slot int) bool {
	if err := m.store.Delete(Key(slot)); err != nil {
		m.logger.Printf("delete slot %d: %v", slot, err)
		return false
	}
	return true
}

// SlotInfo summarizes one persisted slot.
type SlotInfo struct {
	Slot       int            `json:"slot"`
	SaveName   string         `json:"save_name"`
	PlayerID   string         `json:"player_id"`
	LastSaved  int64          `json:"last_saved"`
	TotalTurns int            `json:"total_turns"`
	Time       state.GameTime `json:"time"`
}

// ListSlots returns every readable slot in ascending order. Unreadable
// records are skipped.
func (m *Manager) ListSlots() []SlotInfo {
	keys, err := m.store.Keys(keyPrefix)
	if err != nil {
		m.logger.Printf("list slots: %v", err)
		return nil
	}
	var out []SlotInfo
	for _, k := range keys {
		slot, err := strconv.Atoi(strings.TrimPrefix(k, keyPrefix))
		if err != nil {
			continue
		}
		sd := m.Load(slot)
		if sd == nil {
			continue
		}
		out = append(out, SlotInfo{
			Slot:       slot,
			SaveName:   sd.Meta.SaveName,
			PlayerID:   sd.Meta.PlayerID,
			LastSaved:  sd.Meta.LastSaved,
			TotalTurns: sd.Progress.TotalTurns,
			Time:       sd.World.Time,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}
