package email

//go:generate mockgen -source=email.go -destination=mocks/mocks.go -package=mocks Notifier

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

// Notifier is the opaque side-effecting notification call. Delivery is
// best-effort: callers log failures and never roll back or fail the primary
// mutation because of one.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier is the default Notifier: it records the notice instead of
// sending it. Real delivery is owned by the notification platform, which is
// outside this service.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, _ string) error {
	n.Logger.InfoContext(ctx, "notification", "to", to, "subject", subject)
	return nil
}

// DeriveNameFromEmail guesses a greeting name from the local part of an
// email address. Good enough for notices; profiles own real names.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
