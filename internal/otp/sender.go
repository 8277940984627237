package otp

import (
	"context"

	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// Sender delivers a code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string, purpose Purpose) error
}

// LogSender writes codes to the structured log instead of sending SMS. The
// code itself is only logged when revealCodes is set (local development).
type LogSender struct {
	logg        *logger.Logger
	revealCodes bool
}

func NewLogSender(logg *logger.Logger, revealCodes bool) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg, revealCodes: revealCodes}
}

func (l *LogSender) Send(ctx context.Context, phone, code string, purpose Purpose) error {
	fields := map[string]any{
		"phone_suffix": suffix(phone, 4),
		"purpose":      string(purpose),
	}
	if l.revealCodes {
		fields["code"] = code
	}
	l.logg.Info(l.logg.WithFields(ctx, fields), "otp.sent")
	return nil
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
