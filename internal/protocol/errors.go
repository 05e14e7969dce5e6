package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Request content.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrUnknownSpecies = "E_UNKNOWN_SPECIES"
	ErrTraitCount     = "E_TRAIT_COUNT"
	ErrDuplicateTrait = "E_DUPLICATE_TRAIT"

	// Server side.
	ErrBusy     = "E_BUSY"
	ErrCanceled = "E_CANCELED"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrBadRequest:      {},
	ErrUnknownSpecies:  {},
	ErrTraitCount:      {},
	ErrDuplicateTrait:  {},
	ErrBusy:            {},
	ErrCanceled:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
