// Package fingerprint derives the device fingerprint attached to login
// requests as an auxiliary risk signal.
//
// The fingerprint is the lowercase hex SHA-256 of
// "userAgent|canvasSignature|WIDTHxHEIGHT". When the rendering signature
// cannot be produced, a degraded base64 value of the user agent and screen
// size is used instead so login is never blocked.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"sync"
)

// FallbackLength caps the degraded fingerprint.
const FallbackLength = 64

// Environment supplies the signals a fingerprint is computed from.
type Environment interface {
	UserAgent() string
	// CanvasSignature returns a stable rendering signature for the device.
	CanvasSignature() (string, error)
	ScreenSize() (width, height int)
}

// Compute returns the fingerprint for env and reports whether the degraded
// fallback was used.
func Compute(env Environment) (string, bool) {
	if env == nil {
		return fallback("", 0, 0), true
	}
	ua := env.UserAgent()
	w, h := env.ScreenSize()

	sig, err := env.CanvasSignature()
	if err != nil {
		return fallback(ua, w, h), true
	}

	raw := ua + "|" + sig + "|" + strconv.Itoa(w) + "x" + strconv.Itoa(h)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), false
}

func fallback(ua string, w, h int) string {
	enc := base64.StdEncoding.EncodeToString([]byte(ua + strconv.Itoa(w) + strconv.Itoa(h)))
	if len(enc) > FallbackLength {
		enc = enc[:FallbackLength]
	}
	return enc
}

// Fingerprinter computes the fingerprint lazily on first use and caches it
// for the lifetime of the value.
type Fingerprinter struct {
	env Environment

	once     sync.Once
	value    string
	degraded bool
}

func New(env Environment) *Fingerprinter {
	return &Fingerprinter{env: env}
}

// Value returns the cached fingerprint, computing it on the first call.
func (f *Fingerprinter) Value() string {
	f.once.Do(func() {
		f.value, f.degraded = Compute(f.env)
	})
	return f.value
}

// Degraded reports whether the cached value came from the fallback path.
func (f *Fingerprinter) Degraded() bool {
	f.Value()
	return f.degraded
}

// Static is an Environment with fixed signals.
type Static struct {
	Agent     string
	Signature string
	SigErr    error
	Width     int
	Height    int
}

func (s Static) UserAgent() string { return s.Agent }

func (s Static) CanvasSignature() (string, error) {
	if s.SigErr != nil {
		return "", s.SigErr
	}
	return s.Signature, nil
}

func (s Static) ScreenSize() (int, int) { return s.Width, s.Height }
