package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/secretsanta/internal/app"
	"github.com/neomorfeo/secretsanta/internal/domain"
)

// ParticipantInput is a participant supplied by the caller of the stateless draw.
type ParticipantInput struct {
	ID    string `json:"id" doc:"Caller-supplied identifier, unique within the request"`
	Name  string `json:"name" doc:"Display name"`
	Email string `json:"email" doc:"Email address"`
}

// --- Stateless draw ---

type DrawParticipantsInput struct {
	Body struct {
		Participants []ParticipantInput `json:"participants" maxItems:"1000" doc:"Participants in input order"`
	}
}

type DrawParticipantsOutput struct {
	Body struct {
		Assignments  []AssignmentResponse `json:"assignments"`
		Verification VerificationResponse `json:"verification"`
		Tokens       TokensResponse       `json:"tokens"`
	}
}

// --- Create Session ---

type CreateSessionInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	}
}

type SessionOutput struct {
	Body SessionResponse
}

// --- Get Session ---

type GetSessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// --- Participants ---

type AddParticipantInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Name  string `json:"name" maxLength:"255" doc:"Display name"`
		Email string `json:"email" maxLength:"320" doc:"Email address, unique within the session"`
	}
}

type AddParticipantOutput struct {
	Body ParticipantResponse
}

type RemoveParticipantInput struct {
	ID            string `path:"id" doc:"Session ID"`
	ParticipantID string `path:"participantId" doc:"Participant ID"`
}

// --- Draw ---

type DrawSessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type DrawSessionOutput struct {
	Body struct {
		Session      SessionResponse      `json:"session"`
		Verification VerificationResponse `json:"verification"`
		Tokens       TokensResponse       `json:"tokens"`
	}
}

type TokensOutput struct {
	Body TokensResponse
}

type NotifyOutput struct {
	Body NotificationResponse
}

// Register adds all session API routes to the Huma API.
func Register(api huma.API, svc *app.SessionService) {
	huma.Register(api, huma.Operation{
		OperationID: "draw-participants",
		Method:      http.MethodPost,
		Path:        "/api/v1/draws",
		Summary:     "Draw an assignment set without storing it",
		Tags:        []string{"Draws"},
	}, func(ctx context.Context, input *DrawParticipantsInput) (*DrawParticipantsOutput, error) {
		participants := make([]domain.Participant, len(input.Body.Participants))
		for i, p := range input.Body.Participants {
			participants[i] = domain.Participant{ID: p.ID, Name: p.Name, Email: p.Email}
		}

		assignments, verification, err := svc.DrawParticipants(ctx, participants)
		if err != nil {
			return nil, toHumaError(err)
		}
		set, tokErr := svc.SealTokens(ctx, assignments)

		out := &DrawParticipantsOutput{}
		out.Body.Assignments = toAssignmentResponses(assignments)
		out.Body.Verification = toVerificationResponse(verification)
		out.Body.Tokens = toTokensResponse(set, tokErr)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions",
		Summary:     "Create a new session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
		session, err := svc.Create(ctx, input.Body.Name)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get a session by ID",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *GetSessionInput) (*SessionOutput, error) {
		session, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-participant",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/participants",
		Summary:     "Add a participant",
		Tags:        []string{"Participants"},
	}, func(ctx context.Context, input *AddParticipantInput) (*AddParticipantOutput, error) {
		p, err := svc.AddParticipant(ctx, input.ID, input.Body.Name, input.Body.Email)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AddParticipantOutput{Body: toParticipantResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-participant",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sessions/{id}/participants/{participantId}",
		Summary:     "Remove a participant",
		Tags:        []string{"Participants"},
	}, func(ctx context.Context, input *RemoveParticipantInput) (*SessionOutput, error) {
		session, err := svc.RemoveParticipant(ctx, input.ID, input.ParticipantID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "draw-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/draw",
		Summary:     "Draw the session's assignment set",
		Tags:        []string{"Draws"},
	}, func(ctx context.Context, input *DrawSessionInput) (*DrawSessionOutput, error) {
		res, err := svc.Draw(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		// Seal the set being returned; re-reading the session could pick up a newer draw.
		set, tokErr := svc.SealTokens(ctx, res.Session.Assignments)

		out := &DrawSessionOutput{}
		out.Body.Session = toSessionResponse(res.Session)
		out.Body.Verification = toVerificationResponse(res.Verification)
		out.Body.Tokens = toTokensResponse(set, tokErr)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-tokens",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/tokens",
		Summary:     "Seal fresh display tokens for the current assignment set",
		Tags:        []string{"Draws"},
	}, func(ctx context.Context, input *DrawSessionInput) (*TokensOutput, error) {
		set, err := svc.Tokens(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TokensOutput{Body: toTokensResponse(set, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "notify-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/notifications",
		Summary:     "Email every giver their recipient",
		Tags:        []string{"Notifications"},
	}, func(ctx context.Context, input *DrawSessionInput) (*NotifyOutput, error) {
		report, err := svc.Notify(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		session, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &NotifyOutput{Body: toNotificationResponse(report, session.Status)}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, domain.ErrParticipantNotFound):
		return huma.Error404NotFound("participant not found")
	case errors.Is(err, domain.ErrInvalidParticipant):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrNotDrawn), errors.Is(err, domain.ErrTokensSuperseded):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrTokenGeneration):
		return huma.Error500InternalServerError(domain.ErrTokenGeneration.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error409Conflict(trErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
