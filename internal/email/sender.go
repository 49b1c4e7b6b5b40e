package email

import (
	"context"

	"territory_backend/platform/config"
)

// AssignmentEmail carries what an agent needs to know about a new territory.
type AssignmentEmail struct {
	AgentName     string
	TerritoryName string
	SeededTargets int
	Notes         string
}

type Sender interface {
	SendAssignmentEmail(ctx context.Context, toEmail string, data AssignmentEmail) error
}

type NoopSender struct{}

func (NoopSender) SendAssignmentEmail(context.Context, string, AssignmentEmail) error {
	return nil
}

// NewSender returns an SMTP sender when SMTP is configured and a no-op sender otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
