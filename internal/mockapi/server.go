package mockapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/sensorauth/internal/api"
	"github.com/MrEthical07/sensorauth/internal/throttle"
	"github.com/MrEthical07/sensorauth/jwt"
)

// Config configures a Server. Zero values pick working defaults.
type Config struct {
	Paths api.Paths
	// Tokens signs and verifies session tokens. Defaults to HS256 with a
	// random key and a one hour TTL.
	Tokens *jwt.Manager
	Mailer Mailer
	// CodeLimiter throttles code-sending endpoints, keyed by purpose and
	// email. Defaults to unlimited.
	CodeLimiter throttle.Limiter
	BcryptCost  int
}

// Fault is a canned response served instead of the real handler. A non-empty
// Raw is written verbatim, which lets tests serve bodies that are not JSON.
type Fault struct {
	Status int
	Body   map[string]any
	Raw    string
}

type account struct {
	id          string
	name        string
	email       string
	hash        []byte
	verified    bool
	prefs       api.Preferences
	fingerprint string
}

type pendingSignup struct {
	name  string
	email string
	hash  []byte
	otp   string
}

// Server is an in-memory authentication backend.
type Server struct {
	cfg     Config
	handler http.Handler
	tokens  *jwt.Manager
	mailer  Mailer
	limiter throttle.Limiter

	mu       sync.Mutex
	accounts map[string]*account
	signups  map[string]*pendingSignup
	resets   map[string]string
	calls    map[string]int
	faults   map[string][]Fault
}

// New builds a Server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Paths == (api.Paths{}) {
		cfg.Paths = api.DefaultPaths()
	}
	if cfg.Tokens == nil {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("mockapi: signing key: %w", err)
		}
		tokens, err := jwt.NewManager(jwt.Config{
			TTL:           time.Hour,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    key,
			Issuer:        "sensorauth-mock",
		})
		if err != nil {
			return nil, err
		}
		cfg.Tokens = tokens
	}
	if cfg.Mailer == nil {
		cfg.Mailer = &RecordingMailer{}
	}
	if cfg.CodeLimiter == nil {
		cfg.CodeLimiter = throttle.Unlimited{}
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}

	s := &Server{
		cfg:      cfg,
		tokens:   cfg.Tokens,
		mailer:   cfg.Mailer,
		limiter:  cfg.CodeLimiter,
		accounts: make(map[string]*account),
		signups:  make(map[string]*pendingSignup),
		resets:   make(map[string]string),
		calls:    make(map[string]int),
		faults:   make(map[string][]Fault),
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	p := s.cfg.Paths
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countCalls)
	r.Use(s.serveFaults)

	r.Post(p.VerifyToken, s.verifyToken)
	r.Post(p.Login, s.login)
	r.Post(p.Signup, s.signup)
	r.Post(p.SignupVerify, s.signupVerify)
	r.Post(p.ForgotPassword, s.forgotPassword)
	r.Post(p.ResetPassword, s.resetPassword)
	r.Post(p.ResendVerification, s.resendVerification)
	r.Post(p.GoogleAuth, s.googleAuth)
	r.Get(p.UserPreferences, s.userPreferences)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Mailer returns the mailer codes are delivered through.
func (s *Server) Mailer() Mailer {
	return s.mailer
}

// Tokens returns the session token manager.
func (s *Server) Tokens() *jwt.Manager {
	return s.tokens
}

// SeedUser registers an account directly, bypassing signup.
func (s *Server) SeedUser(name, email, password string, verified bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	s.accounts[email] = &account{
		id:       uuid.NewString(),
		name:     name,
		email:    email,
		hash:     hash,
		verified: verified,
	}
	return nil
}

// SetPreferences stores the preferences document served for email.
func (s *Server) SetPreferences(email string, prefs api.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[normalizeEmail(email)]
	if !ok {
		return errors.New("mockapi: unknown account")
	}
	acc.prefs = prefs
	return nil
}

// Verified reports whether email belongs to a verified account.
func (s *Server) Verified(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[normalizeEmail(email)]
	return ok && acc.verified
}

// LastFingerprint returns the device fingerprint of the last successful
// login for email.
func (s *Server) LastFingerprint(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[normalizeEmail(email)]; ok {
		return acc.fingerprint
	}
	return ""
}

// Inject queues f to be served for the next request to path.
func (s *Server) Inject(path string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = append(s.faults[path], f)
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns how many requests reached the server.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		queue := s.faults[r.URL.Path]
		var (
			f  Fault
			ok bool
		)
		if len(queue) > 0 {
			f, ok = queue[0], true
			s.faults[r.URL.Path] = queue[1:]
		}
		s.mu.Unlock()

		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.Raw != "" {
			w.WriteHeader(f.Status)
			_, _ = w.Write([]byte(f.Raw))
			return
		}
		writeJSON(w, f.Status, f.Body)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
