package sensorauth

import (
	"context"
	"strings"

	internalaudit "github.com/MrEthical07/sensorauth/internal/audit"
	"github.com/MrEthical07/sensorauth/internal/api"
)

// Route is a navigation target on the host surface.
type Route string

const (
	RouteLogin     Route = "/login"
	RouteDashboard Route = "/dashboard"
)

// Navigator moves the host to another surface. Controllers call it outside
// their locks and never more than once per completed operation.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(r Route) { f(r) }

type noopNavigator struct{}

func (noopNavigator) Navigate(Route) {}

// Surface identifies which screen a session check guards.
type Surface uint8

const (
	SurfaceLogin Surface = iota
	SurfaceDashboard
)

func (s Surface) String() string {
	switch s {
	case SurfaceLogin:
		return "login"
	case SurfaceDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// DefaultTimeZone is used when the backend stores no time zone preference.
const DefaultTimeZone = "America/Anchorage"

// Preferences are the dashboard display settings after normalization.
type Preferences struct {
	TimeZone     string
	ShowTemp     bool
	ShowHumidity bool
	ShowSensors  bool
	ShowUsers    bool
	// ShowAlerts is set when either the alerts or the notifications flag is
	// set in the stored document.
	ShowAlerts bool
	DarkMode   bool
	Username   string
}

// DefaultPreferences are shown until, or instead of, stored preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		TimeZone:     DefaultTimeZone,
		ShowTemp:     true,
		ShowHumidity: true,
		ShowSensors:  true,
		ShowUsers:    true,
		ShowAlerts:   true,
	}
}

func normalizePreferences(p api.Preferences) Preferences {
	tz := p.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}
	return Preferences{
		TimeZone:     tz,
		ShowTemp:     p.ShowTemp,
		ShowHumidity: p.ShowHumidity,
		ShowSensors:  p.ShowSensors,
		ShowUsers:    p.ShowUsers,
		ShowAlerts:   p.ShowAlerts || p.ShowNotifications,
		DarkMode:     p.DarkMode,
		Username:     p.Username,
	}
}

// Identity is the verified user behind the stored session token.
type Identity struct {
	ID          string
	Email       string
	Name        string
	Preferences Preferences
}

// DisplayName is the preferred username, else the local part of the
// email, else "User".
func (i Identity) DisplayName() string {
	if i.Preferences.Username != "" {
		return i.Preferences.Username
	}
	if local, _, _ := strings.Cut(i.Email, "@"); local != "" {
		return local
	}
	return "User"
}

// GuardResult is the outcome of a session check.
type GuardResult struct {
	Surface Surface
	// Authenticated is true when the stored token verified.
	Authenticated bool
	Identity      Identity
	// Navigated is the route the guard sent the host to, if any.
	Navigated Route
	Err       error
}

// AuditEvent is one structured audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// AuditJSONOption configures a JSONWriterSink.
type AuditJSONOption = internalaudit.JSONOption

var (
	NewChannelSink    = internalaudit.NewChannelSink
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	WithMaskedEmails  = internalaudit.WithMaskedEmails
	MaskEmail         = internalaudit.MaskEmail
)
