package auth

import "context"

// Mailer is the email-delivery collaborator the spec explicitly leaves out
// of the core (spec §1 Out-of-scope): the Auth Service produces a code and
// a purpose and hands them to this interface.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string, purpose string) error
}

// NopMailer delivers no email: it records each verification code on its
// buffered Sent channel (dropping the record when the buffer is full), so
// tests and the spec's scenario A can capture the code from the mailer
// interface rather than through a real transport.
type NopMailer struct {
	Sent chan SentMail
}

// SentMail records one call made to NopMailer, for tests to inspect.
type SentMail struct {
	Email   string
	Code    string
	Purpose string
}

// NewNopMailer returns a NopMailer with a buffered Sent channel.
func NewNopMailer() *NopMailer {
	return &NopMailer{Sent: make(chan SentMail, 16)}
}

func (m *NopMailer) SendVerificationCode(_ context.Context, email, code, purpose string) error {
	select {
	case m.Sent <- SentMail{Email: email, Code: code, Purpose: purpose}:
	default:
	}
	return nil
}
