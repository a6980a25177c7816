package draw

import "github.com/neomorfeo/secretsanta/internal/domain"

// Verify checks an assignment set against the participants it was drawn from.
//
// Derangement holds when no giver is their own recipient. Bijection holds
// when the distinct recipient ids number exactly len(participants) and each
// of them belongs to a participant, i.e. the recipients are the givers with
// no duplicates. An empty set verifies against zero participants; against
// one participant it is not a bijection.
func Verify(assignments []domain.Assignment, participants []domain.Participant) domain.Verification {
	v := domain.Verification{Derangement: true}

	members := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		members[p.ID] = struct{}{}
	}

	recipients := make(map[string]struct{}, len(assignments))
	foreign := false
	for _, a := range assignments {
		if a.Giver.ID == a.Recipient.ID {
			v.Derangement = false
		}
		if _, ok := members[a.Recipient.ID]; !ok {
			foreign = true
		}
		recipients[a.Recipient.ID] = struct{}{}
	}

	v.Bijection = !foreign && len(recipients) == len(members) && len(members) == len(participants)
	return v
}
