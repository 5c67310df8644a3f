package generation

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

const (
	// MpanLength is the number of digits in an MPAN.
	MpanLength = 13

	mpanModulus   = uint64(10_000_000_000_000)
	mpanHexPrefix = 15

	// DefaultMaxMpanAttempts caps the collision search per meter.
	DefaultMaxMpanAttempts = 1_000_000
)

// MpanAssigner maps internal meter ids to unique 13-digit MPANs within one run.
type MpanAssigner struct {
	maxAttempts int
	used        map[uint64]struct{}
	seen        map[uuid.UUID]struct{}
	collisions  int
}

// MpanOption configures an assigner.
type MpanOption func(*MpanAssigner)

// WithMaxAttempts overrides the collision search cap.
func WithMaxAttempts(attempts int) MpanOption {
	return func(a *MpanAssigner) {
		if attempts > 0 {
			a.maxAttempts = attempts
		}
	}
}

// NewMpanAssigner constructs an empty assigner.
func NewMpanAssigner(opts ...MpanOption) *MpanAssigner {
	a := &MpanAssigner{
		maxAttempts: DefaultMaxMpanAttempts,
		used:        make(map[uint64]struct{}),
		seen:        make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assign returns the MPAN for id. Earlier ids keep their naive candidate;
// later colliding ids move forward by the smallest free offset.
func (a *MpanAssigner) Assign(id uuid.UUID) (string, error) {
	if _, dup := a.seen[id]; dup {
		return "", fmt.Errorf("%w: duplicate meter id %s", ErrInvalidArgument, id)
	}

	base, err := mpanCandidate(id)
	if err != nil {
		return "", err
	}
	candidate := base
	if _, taken := a.used[candidate]; taken {
		a.collisions++
		found := false
		for offset := 1; offset <= a.maxAttempts; offset++ {
			candidate = (base + uint64(offset)) % mpanModulus
			if _, taken := a.used[candidate]; !taken {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: no free identifier for meter %s after %d attempts", ErrGenerationExhausted, id, a.maxAttempts)
		}
	}

	a.used[candidate] = struct{}{}
	a.seen[id] = struct{}{}
	return formatMpan(candidate), nil
}

// AssignAll assigns MPANs to ids in order.
func (a *MpanAssigner) AssignAll(ids []uuid.UUID) ([]MeterIdentity, error) {
	identities := make([]MeterIdentity, 0, len(ids))
	for _, id := range ids {
		mpan, err := a.Assign(id)
		if err != nil {
			return nil, err
		}
		identities = append(identities, MeterIdentity{InternalID: id, Mpan: mpan})
	}
	return identities, nil
}

// Collisions returns how many ids needed perturbation.
func (a *MpanAssigner) Collisions() int { return a.collisions }

// ValidateMpan reports whether value is exactly 13 ASCII digits.
func ValidateMpan(value string) bool {
	if len(value) != MpanLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

func mpanCandidate(id uuid.UUID) (uint64, error) {
	prefix := hex.EncodeToString(id[:])[:mpanHexPrefix]
	value, err := strconv.ParseUint(prefix, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: meter id %s: %v", ErrInvalidArgument, id, err)
	}
	return value % mpanModulus, nil
}

func formatMpan(value uint64) string {
	return fmt.Sprintf("%013d", value)
}
