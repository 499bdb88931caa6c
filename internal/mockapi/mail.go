package mockapi

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"
)

// Mail purposes.
const (
	PurposeSignup       = "signup"
	PurposeReset        = "reset"
	PurposeVerification = "verification"
)

const otpDigits = 6

// Mail is one delivered code.
type Mail struct {
	To      string
	Purpose string
	Code    string
	At      time.Time
}

// Mailer delivers codes to users.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// RecordingMailer keeps every mail in memory. OnSend, when set, is called
// after each mail is recorded.
type RecordingMailer struct {
	OnSend func(Mail)

	mu   sync.Mutex
	sent []Mail
}

func (r *RecordingMailer) Send(_ context.Context, m Mail) error {
	r.mu.Lock()
	r.sent = append(r.sent, m)
	hook := r.OnSend
	r.mu.Unlock()
	if hook != nil {
		hook(m)
	}
	return nil
}

// Sent returns a copy of every recorded mail.
func (r *RecordingMailer) Sent() []Mail {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mail, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent mail for to and purpose.
func (r *RecordingMailer) Last(to, purpose string) (Mail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	to = normalizeEmail(to)
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == to && r.sent[i].Purpose == purpose {
			return r.sent[i], true
		}
	}
	return Mail{}, false
}

func newOTP() (string, error) {
	var b strings.Builder
	b.Grow(otpDigits)

	ten := big.NewInt(10)
	for i := 0; i < otpDigits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
