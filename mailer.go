package users

import "context"

// Mailer delivers notification emails. Implementations are treated as an
// opaque collaborator: a failed Send never rolls back the operation that
// triggered it.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogMailer writes outgoing messages to the logger. It stands in for a
// real delivery backend during development and tests.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	m.logger.Info("to: %s", to)
	m.logger.Info("subject: %s", subject)
	m.logger.Info("body: %s", htmlBody)

	return nil
}
