package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session/slot state.
	ErrSlotNotFound = "E_SLOT_NOT_FOUND"
	ErrSlotBusy     = "E_SLOT_BUSY"
	ErrTurnInFlight = "E_TURN_IN_FLIGHT"
	ErrGameOver     = "E_GAME_OVER"

	// Adjudication layer.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrPersist    = "E_PERSIST"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrSlotNotFound:    {},
	ErrSlotBusy:        {},
	ErrTurnInFlight:    {},
	ErrGameOver:        {},
	ErrBadRequest:      {},
	ErrPersist:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
