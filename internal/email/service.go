package email

import (
	"context"
)

// Sender delivers notification emails. SMTP is the only transport the
// worker ships with; anything richer belongs to an external system.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
