package session

import (
	"errors"
	"sync"

	"chronicle.ai/internal/protocol"
)

var (
	ErrSlotBusy     = errors.New("slot is being played elsewhere")
	ErrSlotNotFound = errors.New("slot is empty")
)

// Slots records which owner is playing each save slot. One table is shared
// by every transport so a slot is never driven by two sessions at once.
type Slots struct {
	mu   sync.Mutex
	held map[int]string
}

func NewSlots() *Slots {
	return &Slots{held: map[int]string{}}
}

// Claim gives slot to owner. Re-claiming a slot one already holds succeeds.
func (s *Slots) Claim(slot int, owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.held[slot]; ok && cur != owner {
		return false
	}
	s.held[slot] = owner
	return true
}

// Release frees slot if owner still holds it.
func (s *Slots) Release(slot int, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[slot] == owner {
		delete(s.held, slot)
	}
}

func (s *Slots) Owner(slot int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.held[slot]
	return o, ok
}

// OpenClaimed claims slot for owner and opens a session on it. With
// resumeOnly an empty slot fails with ErrSlotNotFound instead of starting a
// new game. The claim is dropped again on any error.
func OpenClaimed(deps Deps, owner string, slot int, name string, newGame, resumeOnly bool) (*Session, bool, error) {
	if deps.Slots == nil {
		deps.Slots = NewSlots()
	}
	if !deps.Slots.Claim(slot, owner) {
		return nil, false, ErrSlotBusy
	}
	if resumeOnly && !newGame && deps.Saves != nil && deps.Saves.Load(slot) == nil {
		deps.Slots.Release(slot, owner)
		return nil, false, ErrSlotNotFound
	}
	s, resumed, err := Open(deps, slot, name, newGame)
	if err != nil {
		deps.Slots.Release(slot, owner)
		return nil, false, err
	}
	return s, resumed, nil
}

// ErrorCode maps a session error onto its wire code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTurnInFlight):
		return protocol.ErrTurnInFlight
	case errors.Is(err, ErrGameOver):
		return protocol.ErrGameOver
	case errors.Is(err, ErrEmptyIntent):
		return protocol.ErrBadRequest
	case errors.Is(err, ErrSlotBusy):
		return protocol.ErrSlotBusy
	case errors.Is(err, ErrSlotNotFound):
		return protocol.ErrSlotNotFound
	default:
		return protocol.ErrInternal
	}
}

// Welcome renders v as the WELCOME message.
func (v View) Welcome(resumed bool, timelineDigest string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Slot:            v.Slot,
		PlayerID:        v.PlayerID,
		SaveName:        v.SaveName,
		Resumed:         resumed,
		TotalTurns:      v.TotalTurns,
		World:           v.World,
		GameOver:        v.GameOver,
		TimelineDigest:  timelineDigest,
	}
}

// Message renders o as the NARRATIVE answering intentID.
func (o Outcome) Message(intentID string) protocol.NarrativeMsg {
	return protocol.NarrativeMsg{
		Type:            protocol.TypeNarrative,
		ProtocolVersion: protocol.Version,
		IntentID:        intentID,
		Round:           o.Round,
		Narrative:       o.Narrative,
		Effects:         o.Effects,
		Blocked:         o.Blocked,
		BlockReason:     o.BlockReason,
		Fallback:        o.Fallback,
		Mood:            o.Mood,
		GameOver:        o.GameOver,
		GameOverReason:  o.GameOverReason,
		World:           o.World,
		Saved:           o.Saved,
	}
}
