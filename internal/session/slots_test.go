package session

import (
	"errors"
	"fmt"
	"testing"

	"chronicle.ai/internal/generator"
	"chronicle.ai/internal/protocol"
)

func TestSlots_ClaimRelease(t *testing.T) {
	s := NewSlots()
	if !s.Claim(1, "a") || !s.Claim(1, "a") {
		t.Fatalf("owner should be able to (re)claim")
	}
	if s.Claim(1, "b") {
		t.Fatalf("second owner claimed a held slot")
	}
	s.Release(1, "b")
	if o, _ := s.Owner(1); o != "a" {
		t.Fatalf("release by non-owner freed the slot")
	}
	s.Release(1, "a")
	if !s.Claim(1, "b") {
		t.Fatalf("slot not free after release")
	}
}

func TestOpenClaimed(t *testing.T) {
	deps, _ := newDeps(t, generator.Offline{})
	deps.Slots = NewSlots()

	if _, _, err := OpenClaimed(deps, "a", 2, "", false, true); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("resume-only on empty slot: %v", err)
	}
	if _, ok := deps.Slots.Owner(2); ok {
		t.Fatalf("failed open kept the claim")
	}

	if _, resumed, err := OpenClaimed(deps, "a", 2, "x", false, false); err != nil || resumed {
		t.Fatalf("open: resumed=%v err=%v", resumed, err)
	}
	if _, _, err := OpenClaimed(deps, "b", 2, "", false, false); !errors.Is(err, ErrSlotBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	deps.Slots.Release(2, "a")
	if _, resumed, err := OpenClaimed(deps, "b", 2, "", false, true); err != nil || !resumed {
		t.Fatalf("resume: resumed=%v err=%v", resumed, err)
	}
}

func TestErrorCode(t *testing.T) {
	cases := map[error]string{
		nil:                                 "",
		ErrTurnInFlight:                     protocol.ErrTurnInFlight,
		fmt.Errorf("wrap: %w", ErrGameOver): protocol.ErrGameOver,
		ErrEmptyIntent:                      protocol.ErrBadRequest,
		ErrSlotBusy:                         protocol.ErrSlotBusy,
		ErrSlotNotFound:                     protocol.ErrSlotNotFound,
		errors.New("disk on fire"):          protocol.ErrInternal,
	}
	for err, want := range cases {
		if got := ErrorCode(err); got != want {
			t.Fatalf("ErrorCode(%v)=%q want %q", err, got, want)
		}
	}
}
