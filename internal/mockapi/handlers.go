package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/sensorauth/internal/api"
	"github.com/MrEthical07/sensorauth/internal/throttle"
	"github.com/MrEthical07/sensorauth/jwt"
)

const (
	codeVerificationRequired = "VERIFICATION_REQUIRED"
	codeDatabaseError        = "DATABASE_ERROR"
)

func (s *Server) verifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	acc, ok := s.accountForToken(req.Token)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": api.User{ID: acc.id, Email: acc.email, Name: acc.name},
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[normalizeEmail(req.Email)]
	var hash []byte
	if ok {
		hash = acc.hash
	}
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.mu.Lock()
	verified := acc.verified
	if verified {
		acc.fingerprint = req.DeviceFingerprint
	}
	id, email, name := acc.id, acc.email, acc.name
	s.mu.Unlock()

	if !verified {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"message": "Please verify your email before logging in",
			"code":    codeVerificationRequired,
		})
		return
	}
	s.writeSessionToken(w, id, email, name, "Login successful")
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := normalizeEmail(req.Email)
	if strings.TrimSpace(req.Name) == "" || email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if req.Password != req.RetypePassword {
		writeMessage(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	s.mu.Lock()
	_, exists := s.accounts[email]
	s.mu.Unlock()
	if exists {
		writeMessage(w, http.StatusConflict, "User already exists")
		return
	}

	if !s.allowCode(w, r, PurposeSignup, email) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Could not hash password", "code": codeDatabaseError})
		return
	}
	otp, err := newOTP()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not generate code")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	// A fresh challenge supersedes any earlier one for the same email.
	for t, p := range s.signups {
		if p.email == email {
			delete(s.signups, t)
		}
	}
	s.signups[token] = &pendingSignup{name: strings.TrimSpace(req.Name), email: email, hash: hash, otp: otp}
	s.mu.Unlock()

	if err := s.mailer.Send(r.Context(), Mail{To: email, Purpose: PurposeSignup, Code: otp, At: time.Now()}); err != nil {
		writeMessage(w, http.StatusBadGateway, "Could not send verification email")
		return
	}
	writeJSON(w, http.StatusOK, api.SignupResponse{SignupToken: token, Message: "Verification code sent"})
}

func (s *Server) signupVerify(w http.ResponseWriter, r *http.Request) {
	var req api.SignupVerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	p, ok := s.signups[req.SignupToken]
	if !ok || p.email != normalizeEmail(req.Email) || p.otp != req.OTP {
		s.mu.Unlock()
		writeMessage(w, http.StatusBadRequest, "Invalid or expired verification code")
		return
	}
	delete(s.signups, req.SignupToken)
	acc := &account{id: uuid.NewString(), name: p.name, email: p.email, hash: p.hash, verified: true}
	s.accounts[acc.email] = acc
	s.mu.Unlock()

	s.writeSessionToken(w, acc.id, acc.email, acc.name, "Account created")
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := normalizeEmail(req.Email)
	if !s.allowCode(w, r, PurposeReset, email) {
		return
	}

	s.mu.Lock()
	_, known := s.accounts[email]
	s.mu.Unlock()

	// Unknown addresses get the same answer so the endpoint does not reveal
	// which emails have accounts.
	if known {
		otp, err := newOTP()
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Could not generate code")
			return
		}
		s.mu.Lock()
		s.resets[email] = otp
		s.mu.Unlock()
		if err := s.mailer.Send(r.Context(), Mail{To: email, Purpose: PurposeReset, Code: otp, At: time.Now()}); err != nil {
			writeMessage(w, http.StatusBadGateway, "Could not send reset email")
			return
		}
	}
	writeMessage(w, http.StatusOK, "If the email exists, a reset code has been sent")
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.NewPassword != req.RetypePassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Passwords do not match"})
		return
	}
	email := normalizeEmail(req.Email)

	s.mu.Lock()
	want, ok := s.resets[email]
	acc, known := s.accounts[email]
	s.mu.Unlock()
	if !ok || !known || want != req.OTP {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid or expired OTP"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not hash password"})
		return
	}
	s.mu.Lock()
	acc.hash = hash
	delete(s.resets, email)
	s.mu.Unlock()

	writeMessage(w, http.StatusOK, "Password reset successful")
}

func (s *Server) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := normalizeEmail(req.Email)

	s.mu.Lock()
	acc, ok := s.accounts[email]
	verified := ok && acc.verified
	s.mu.Unlock()
	switch {
	case !ok:
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	case verified:
		writeMessage(w, http.StatusBadRequest, "Email is already verified")
		return
	}
	if !s.allowCode(w, r, PurposeVerification, email) {
		return
	}

	otp, err := newOTP()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not generate code")
		return
	}
	if err := s.mailer.Send(r.Context(), Mail{To: email, Purpose: PurposeVerification, Code: otp, At: time.Now()}); err != nil {
		writeMessage(w, http.StatusBadGateway, "Could not send verification email")
		return
	}
	writeMessage(w, http.StatusOK, "Verification email sent")
}

// googleAuth trusts the credential's claims without checking a Google
// signature. Accounts are created on first use and are verified.
func (s *Server) googleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	claims, err := jwt.Peek(req.Credential)
	if err != nil || claims.Email == "" {
		writeMessage(w, http.StatusUnauthorized, "Invalid Google credential")
		return
	}
	email := normalizeEmail(claims.Email)

	s.mu.Lock()
	acc, ok := s.accounts[email]
	if !ok {
		acc = &account{id: uuid.NewString(), name: claims.Name, email: email}
		s.accounts[email] = acc
	}
	acc.verified = true
	id, name := acc.id, acc.name
	s.mu.Unlock()

	s.writeSessionToken(w, id, email, name, "Google login successful")
}

func (s *Server) userPreferences(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}
	acc, ok := s.accountForToken(token)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	s.mu.Lock()
	prefs := acc.prefs
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) accountForToken(token string) (*account, bool) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[normalizeEmail(claims.Email)]
	return acc, ok
}

func (s *Server) writeSessionToken(w http.ResponseWriter, id, email, name, message string) {
	token, err := s.tokens.Issue(id, email, name)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, api.TokenResponse{Token: token, Message: message})
}

// allowCode applies the code limiter and writes the rejection itself.
func (s *Server) allowCode(w http.ResponseWriter, r *http.Request, purpose, email string) bool {
	err := s.limiter.Allow(r.Context(), purpose+":"+email)
	switch {
	case err == nil:
		return true
	case errors.Is(err, throttle.ErrLimited):
		writeMessage(w, http.StatusTooManyRequests, "Too many requests. Please wait before requesting another code.")
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "Can't reach database server", "code": codeDatabaseError})
	}
	return false
}
