package http

import (
	"github.com/neomorfeo/secretsanta/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ParticipantResponse is the API representation of a participant.
type ParticipantResponse struct {
	ID    string `json:"id" doc:"Participant ID"`
	Name  string `json:"name" doc:"Display name"`
	Email string `json:"email" doc:"Email address"`
}

// AssignmentResponse pairs a giver with their recipient.
type AssignmentResponse struct {
	Giver     ParticipantResponse `json:"giver"`
	Recipient ParticipantResponse `json:"recipient"`
}

// SessionResponse is the API representation of a session.
type SessionResponse struct {
	ID           string                `json:"id" doc:"Unique identifier"`
	Name         string                `json:"name" doc:"Display name"`
	Status       string                `json:"status" doc:"Lifecycle state"`
	Participants []ParticipantResponse `json:"participants" doc:"Participants in insertion order"`
	Assignments  []AssignmentResponse  `json:"assignments" doc:"Current assignment set, empty until drawn"`
	CreatedAt    string                `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt    string                `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

// VerificationResponse reports the two properties of a valid exchange.
type VerificationResponse struct {
	Derangement bool `json:"derangement" doc:"Nobody is assigned to themselves"`
	Bijection   bool `json:"bijection" doc:"Everyone receives exactly one gift"`
}

// TokensResponse carries display tokens aligned with the assignment set.
// Error is set when sealing failed; the assignments remain valid.
type TokensResponse struct {
	Available bool     `json:"available" doc:"False when this host cannot seal tokens"`
	Tokens    []string `json:"tokens" doc:"base64(nonce || ciphertext || tag), one per assignment"`
	Error     string   `json:"error,omitempty" doc:"Token generation failure, if any"`
}

// DeliveryResponse is the mail collaborator's verdict for one giver.
type DeliveryResponse struct {
	ParticipantID string `json:"participant_id"`
	Email         string `json:"email"`
	Accepted      bool   `json:"accepted"`
	Status        string `json:"status" doc:"Provider status"`
	ProviderID    string `json:"provider_id,omitempty" doc:"Provider message id"`
}

// NotificationResponse aggregates one notification run.
type NotificationResponse struct {
	Accepted   int                `json:"accepted" doc:"Number of accepted messages"`
	Deliveries []DeliveryResponse `json:"deliveries"`
	Status     string             `json:"status" doc:"Session state after the run"`
}

func toParticipantResponse(p domain.Participant) ParticipantResponse {
	return ParticipantResponse{ID: p.ID, Name: p.Name, Email: p.Email}
}

func toAssignmentResponses(assignments []domain.Assignment) []AssignmentResponse {
	resp := make([]AssignmentResponse, len(assignments))
	for i, a := range assignments {
		resp[i] = AssignmentResponse{
			Giver:     toParticipantResponse(a.Giver),
			Recipient: toParticipantResponse(a.Recipient),
		}
	}
	return resp
}

func toSessionResponse(s domain.Session) SessionResponse {
	participants := make([]ParticipantResponse, len(s.Participants))
	for i, p := range s.Participants {
		participants[i] = toParticipantResponse(p)
	}
	return SessionResponse{
		ID:           s.ID,
		Name:         s.Name,
		Status:       string(s.Status),
		Participants: participants,
		Assignments:  toAssignmentResponses(s.Assignments),
		CreatedAt:    s.CreatedAt.Format(timeFormat),
		UpdatedAt:    s.UpdatedAt.Format(timeFormat),
	}
}

func toVerificationResponse(v domain.Verification) VerificationResponse {
	return VerificationResponse{Derangement: v.Derangement, Bijection: v.Bijection}
}

func toTokensResponse(set domain.TokenSet, err error) TokensResponse {
	if err != nil {
		return TokensResponse{Tokens: []string{}, Error: err.Error()}
	}
	tokens := make([]string, len(set.Tokens))
	for i, t := range set.Tokens {
		tokens[i] = string(t)
	}
	return TokensResponse{Available: set.Available, Tokens: tokens}
}

func toNotificationResponse(r domain.DeliveryReport, status domain.Status) NotificationResponse {
	deliveries := make([]DeliveryResponse, len(r.Outcomes))
	for i, o := range r.Outcomes {
		deliveries[i] = DeliveryResponse{
			ParticipantID: o.ParticipantID,
			Email:         o.Email,
			Accepted:      o.Accepted,
			Status:        o.Status,
			ProviderID:    o.ProviderID,
		}
	}
	return NotificationResponse{Accepted: r.Accepted, Deliveries: deliveries, Status: string(status)}
}
