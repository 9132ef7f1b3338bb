package mail

import "log/slog"

// Build picks the delivery backend. Anything that can talk SMTP goes
// through the circuit breaker; the log backend is for dev and tests.
func Build(backend string, smtp SMTPConfig, log *slog.Logger) (Mailer, error) {
	switch backend {
	case "smtp":
		m, err := NewSMTPMailer(smtp)

		if err != nil {
			return nil, err
		}

		return NewProtectedMailer(m, ProtectedMailerConfig{}), nil
	default:
		if backend != "log" {
			log.Warn("unknown mail backend, falling back to log", "backend", backend)
		}

		return NewLogMailer(), nil
	}
}
