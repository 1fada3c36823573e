package domain

import (
	"fmt"

	"acquisition_backend/platform/apperr"
)

// Party selects which contracting party a capture populates.
// It belongs to the capture intent, not to the extraction result.
type Party int

const (
	Party1 Party = 1
	Party2 Party = 2
)

// ParseParty validates a party index. Zero defaults to Party1.
func ParseParty(n int) (Party, error) {
	switch n {
	case 0, 1:
		return Party1, nil
	case 2:
		return Party2, nil
	default:
		return 0, apperr.Validation(fmt.Sprintf("targetParty must be 1 or 2, got %d", n))
	}
}
