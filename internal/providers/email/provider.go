package email

import (
	"context"

	"go.uber.org/zap"
)

type Provider interface {
	Send(ctx context.Context, to []string, subject string, body string) error
}

// LogProvider writes messages to the log instead of delivering them. It is
// used when no SMTP host is configured.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogProvider{log: log.Named("email.log")}
}

func (p *LogProvider) Send(ctx context.Context, to []string, subject string, body string) error {
	p.log.Info("email not sent, smtp disabled",
		zap.Strings("to", to),
		zap.String("subject", subject),
	)
	return nil
}
