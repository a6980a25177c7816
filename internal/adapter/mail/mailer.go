package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// Compile-time check: Mailer implements domain.Mailer.
var _ domain.Mailer = (*Mailer)(nil)

// sender hands one message to a provider. status is the provider's verdict,
// id its message reference when it returns one.
type sender interface {
	send(ctx context.Context, from string, msg Message) (status, id string, err error)
}

// Mailer delivers one notification per assignment.
type Mailer struct {
	from   string
	sender sender
}

// New creates a Mailer for the configured provider.
func New(cfg Config) (*Mailer, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("mail: sender address is required")
	}

	var s sender
	switch cfg.Provider {
	case ProviderLog, "":
		s = logSender{}
	case ProviderHTTP:
		hs, err := newHTTPSender(cfg)
		if err != nil {
			return nil, err
		}
		s = hs
	case ProviderSMTP:
		ss, err := newSMTPSender(cfg)
		if err != nil {
			return nil, err
		}
		s = ss
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q (use %q, %q or %q)",
			cfg.Provider, ProviderLog, ProviderHTTP, ProviderSMTP)
	}

	return &Mailer{from: cfg.From, sender: s}, nil
}

// Deliver sends every giver their recipient. A failed send is reported in
// the outcome and does not stop the run; only cancellation does.
func (m *Mailer) Deliver(ctx context.Context, sessionName string, assignments []domain.Assignment) (domain.DeliveryReport, error) {
	report := domain.DeliveryReport{Outcomes: make([]domain.DeliveryOutcome, 0, len(assignments))}

	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("delivery interrupted after %d messages: %w", len(report.Outcomes), err)
		}

		outcome := domain.DeliveryOutcome{ParticipantID: a.Giver.ID, Email: a.Giver.Email}

		msg, err := render(sessionName, a)
		if err != nil {
			return report, err
		}

		status, id, err := m.sender.send(ctx, m.from, msg)
		if err != nil {
			outcome.Status = err.Error()
			slog.WarnContext(ctx, "notification rejected",
				"participant_id", a.Giver.ID,
				"email", a.Giver.Email,
				"error", err,
			)
		} else {
			outcome.Accepted = true
			outcome.Status = status
			outcome.ProviderID = id
			report.Accepted++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

// logSender writes notifications to the structured log without the recipient.
type logSender struct{}

func (logSender) send(ctx context.Context, from string, msg Message) (string, string, error) {
	slog.InfoContext(ctx, "notification",
		"from", from,
		"to", msg.To,
		"subject", msg.Subject,
		"bytes", len(msg.Body),
	)
	return "logged", "", nil
}
