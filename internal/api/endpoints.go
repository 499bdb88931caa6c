package api

import (
	"context"
	"net/http"
)

// Endpoint names one backend exchange independently of its configured path.
type Endpoint uint8

const (
	EndpointVerifyToken Endpoint = iota
	EndpointLogin
	EndpointSignup
	EndpointSignupVerify
	EndpointForgotPassword
	EndpointResetPassword
	EndpointResendVerification
	EndpointGoogleAuth
	EndpointUserPreferences
	EndpointCount
)

var endpointNames = [EndpointCount]string{
	EndpointVerifyToken:        "verify_token",
	EndpointLogin:              "login",
	EndpointSignup:             "signup",
	EndpointSignupVerify:       "signup_verify",
	EndpointForgotPassword:     "forgot_password",
	EndpointResetPassword:      "reset_password",
	EndpointResendVerification: "resend_verification",
	EndpointGoogleAuth:         "google_auth",
	EndpointUserPreferences:    "user_preferences",
}

// String returns the snake_case name used as a metric label.
func (e Endpoint) String() string {
	if e >= EndpointCount {
		return "unknown"
	}
	return endpointNames[e]
}

// Path returns the configured path for e.
func (p Paths) Path(e Endpoint) string {
	switch e {
	case EndpointVerifyToken:
		return p.VerifyToken
	case EndpointLogin:
		return p.Login
	case EndpointSignup:
		return p.Signup
	case EndpointSignupVerify:
		return p.SignupVerify
	case EndpointForgotPassword:
		return p.ForgotPassword
	case EndpointResetPassword:
		return p.ResetPassword
	case EndpointResendVerification:
		return p.ResendVerification
	case EndpointGoogleAuth:
		return p.GoogleAuth
	case EndpointUserPreferences:
		return p.UserPreferences
	default:
		return ""
	}
}

// User is the identity returned by verify-token.
type User struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type verifyTokenResponse struct {
	User *User `json:"user"`
}

type LoginRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

// TokenResponse is the body of endpoints that may issue a session token.
type TokenResponse struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

type SignupRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	RetypePassword string `json:"retypePassword"`
}

type SignupResponse struct {
	SignupToken string `json:"signupToken,omitempty"`
	Message     string `json:"message,omitempty"`
}

type SignupVerifyRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	SignupToken string `json:"signupToken"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email          string `json:"email"`
	OTP            string `json:"otp"`
	NewPassword    string `json:"newPassword"`
	RetypePassword string `json:"retypePassword"`
}

type googleRequest struct {
	Credential string `json:"credential"`
}

// Preferences is the raw user-preferences document.
type Preferences struct {
	TimeZone          string `json:"timeZone,omitempty"`
	ShowTemp          bool   `json:"showTemp"`
	ShowHumidity      bool   `json:"showHumidity"`
	ShowSensors       bool   `json:"showSensors"`
	ShowUsers         bool   `json:"showUsers"`
	ShowAlerts        bool   `json:"showAlerts"`
	ShowNotifications bool   `json:"showNotifications"`
	DarkMode          bool   `json:"darkMode"`
	Username          string `json:"username,omitempty"`
}

// VerifyToken confirms token remotely. A 2xx response without a user object
// is treated as malformed.
func (c *Client) VerifyToken(ctx context.Context, token string) (User, error) {
	var out verifyTokenResponse
	if err := c.do(ctx, EndpointVerifyToken, http.MethodPost, "", verifyTokenRequest{Token: token}, &out); err != nil {
		return User{}, err
	}
	if out.User == nil {
		return User{}, ErrMalformedResponse
	}
	return *out.User, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, EndpointLogin, http.MethodPost, "", req, &out)
	return out, err
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (SignupResponse, error) {
	var out SignupResponse
	err := c.do(ctx, EndpointSignup, http.MethodPost, "", req, &out)
	return out, err
}

func (c *Client) VerifySignup(ctx context.Context, req SignupVerifyRequest) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, EndpointSignupVerify, http.MethodPost, "", req, &out)
	return out, err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, EndpointForgotPassword, http.MethodPost, "", emailRequest{Email: email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.do(ctx, EndpointResetPassword, http.MethodPost, "", req, nil)
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, EndpointResendVerification, http.MethodPost, "", emailRequest{Email: email}, nil)
}

func (c *Client) GoogleAuth(ctx context.Context, credential string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, EndpointGoogleAuth, http.MethodPost, "", googleRequest{Credential: credential}, &out)
	return out, err
}

func (c *Client) UserPreferences(ctx context.Context, token string) (Preferences, error) {
	var out Preferences
	err := c.do(ctx, EndpointUserPreferences, http.MethodGet, token, nil, &out)
	return out, err
}
