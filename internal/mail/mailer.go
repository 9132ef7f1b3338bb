package mail

import "context"

type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Mailer is the outbound email port. Callers decide whether a send
// failure matters; the password-reset flow discards it on purpose.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
