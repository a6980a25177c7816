package domain

// Participant is one person taking part in the exchange.
// Participants are immutable once created; they can only be removed.
type Participant struct {
	ID    string
	Name  string
	Email string
}

// Assignment pairs a giver with the participant they buy a gift for.
type Assignment struct {
	Giver     Participant
	Recipient Participant
}

// Verification reports whether an assignment set is a valid exchange.
type Verification struct {
	// Derangement is true when nobody is assigned to themselves.
	Derangement bool
	// Bijection is true when every participant receives exactly one gift.
	Bijection bool
}

// Valid reports whether both properties hold.
func (v Verification) Valid() bool {
	return v.Derangement && v.Bijection
}

// Token is an opaque, base64 encoded sealing of one recipient id.
// Tokens are for display only; the key that produced them is discarded.
type Token string

// TokenSet is the result of sealing an assignment set.
// Available is false when the runtime cannot provide the required
// primitives; Tokens is then empty and the caller should hide the feature.
type TokenSet struct {
	Available bool
	Tokens    []Token
}

// DeliveryOutcome is the mail collaborator's verdict for one giver.
type DeliveryOutcome struct {
	ParticipantID string
	Email         string
	Accepted      bool
	Status        string
	ProviderID    string
}

// DeliveryReport aggregates the outcomes of one notification run.
type DeliveryReport struct {
	Outcomes []DeliveryOutcome
	Accepted int
}
