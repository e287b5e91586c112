package service

import (
	"context"
	"time"
)

// Mailer is the outbound email dispatcher. One-time-code delivery is on the
// login critical path; the other sends are fire-and-forget.
type Mailer interface {
	SendOneTimeCode(ctx context.Context, to, code string, expiry time.Time) error
	SendLoginAlert(ctx context.Context, to string, at time.Time, ip, device string) error
	SendTwoFactorDisabled(ctx context.Context, to, factor string) error
}
