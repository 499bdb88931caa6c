package sensorauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sensorauth/clock"
	"github.com/MrEthical07/sensorauth/fingerprint"
	"github.com/MrEthical07/sensorauth/internal/api"
	internalaudit "github.com/MrEthical07/sensorauth/internal/audit"
	"github.com/MrEthical07/sensorauth/session"
)

// Builder assembles a Client. A Builder can be built once.
type Builder struct {
	config Config

	store       session.Store
	httpClient  *http.Client
	navigator   Navigator
	scheduler   clock.Scheduler
	environment fingerprint.Environment
	auditSink   AuditSink

	built bool
}

// New returns a Builder starting from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithSessionStore sets the token slot. It overrides Config.Session.Backend.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient replaces the transport. Its Timeout, not API.Timeout,
// then bounds each request.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithScheduler replaces the timer source used for redirects, banners and
// cooldowns. Tests pass a *clock.Fake.
func (b *Builder) WithScheduler(s clock.Scheduler) *Builder {
	b.scheduler = s
	return b
}

// WithEnvironment sets the device signals the fingerprint is computed from.
// The default reads the host machine.
func (b *Builder) WithEnvironment(env fingerprint.Environment) *Builder {
	b.environment = env
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store, closeStore := b.store, func() error { return nil }
	if store == nil {
		var err error
		store, closeStore, err = openSessionStore(cfg.Session)
		if err != nil {
			return nil, err
		}
	}

	c := &Client{
		config:     cfg,
		store:      store,
		closeStore: closeStore,
		navigator:  b.navigator,
		sched:      b.scheduler,
		metrics:    NewMetrics(cfg.Metrics),
	}
	if c.navigator == nil {
		c.navigator = noopNavigator{}
	}
	if c.sched == nil {
		c.sched = clock.Real{}
	}

	env := b.environment
	if env == nil {
		env = fingerprint.NewHost(cfg.API.UserAgent)
	}
	c.fingerprint = fingerprint.New(env)

	var sink internalaudit.Sink
	if b.auditSink != nil {
		sink = b.auditSink
	}
	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	// -------- TRANSPORT --------
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	c.api = api.New(api.Options{
		BaseURL:    cfg.API.BaseURL,
		Paths:      cfg.API.Paths,
		HTTPClient: httpClient,
		UserAgent:  env.UserAgent(),
		RequestID:  requestIDFromContext,
		Observe:    c.metrics.ObserveLatency,
	})

	b.built = true
	return c, nil
}

func openSessionStore(cfg SessionConfig) (session.Store, func() error, error) {
	switch cfg.Backend {
	case SessionBackendSQLite:
		s, err := session.OpenSQLiteStore(cfg.SQLitePath, cfg.StorageKey)
		if err != nil {
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		return s, s.Close, nil
	case SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("open session store: %w: %v", session.ErrStoreUnavailable, err)
		}
		return session.NewRedisStore(rdb, cfg.RedisPrefix, cfg.StorageKey, cfg.RedisTTL), rdb.Close, nil
	default:
		return session.NewMemoryStore(), func() error { return nil }, nil
	}
}
