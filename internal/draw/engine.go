package draw

import (
	"fmt"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// MaxAttempts bounds the random search before the rotation fallback.
const MaxAttempts = 1000

// Compile-time check: Engine implements domain.Assigner.
var _ domain.Assigner = (*Engine)(nil)

// Engine assigns recipients to givers. It holds no state between calls.
type Engine struct {
	shuffler    Shuffler
	maxAttempts int
}

// New creates an engine drawing randomness from shuffler.
func New(shuffler Shuffler) *Engine {
	return &Engine{shuffler: shuffler, maxAttempts: MaxAttempts}
}

// Assign returns one assignment per participant, in input order.
// Fewer than two participants yield an empty set.
func (e *Engine) Assign(participants []domain.Participant) ([]domain.Assignment, error) {
	if err := validate(participants); err != nil {
		return nil, err
	}

	n := len(participants)
	if n < 2 {
		return []domain.Assignment{}, nil
	}

	candidate := make([]domain.Participant, n)
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		copy(candidate, participants)
		e.shuffler.Shuffle(n, func(i, j int) {
			candidate[i], candidate[j] = candidate[j], candidate[i]
		})
		if isDerangement(participants, candidate) {
			return pair(participants, candidate), nil
		}
	}

	return pair(participants, rotate(participants)), nil
}

func validate(participants []domain.Participant) error {
	seen := make(map[string]struct{}, len(participants))
	for i, p := range participants {
		if p.ID == "" {
			return fmt.Errorf("%w: participant %d has an empty id", domain.ErrInvalidParticipant, i)
		}
		if _, dup := seen[p.ID]; dup {
			return &domain.DuplicateParticipantError{Field: "id", Value: p.ID}
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// isDerangement stops at the first index that maps to itself.
func isDerangement(givers, recipients []domain.Participant) bool {
	for i := range givers {
		if givers[i].ID == recipients[i].ID {
			return false
		}
	}
	return true
}

// rotate shifts every recipient by one position: i receives from i+1 mod n.
func rotate(participants []domain.Participant) []domain.Participant {
	n := len(participants)
	out := make([]domain.Participant, n)
	for i := range participants {
		out[i] = participants[(i+1)%n]
	}
	return out
}

func pair(givers, recipients []domain.Participant) []domain.Assignment {
	out := make([]domain.Assignment, len(givers))
	for i := range givers {
		out[i] = domain.Assignment{Giver: givers[i], Recipient: recipients[i]}
	}
	return out
}
