package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sensorauth/internal/mockapi"
	"github.com/MrEthical07/sensorauth/internal/throttle"
)

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	var (
		addr      = flag.String("addr", "127.0.0.1:3000", "listen address")
		redisAddr = flag.String("redis-addr", "", `redis address for OTP throttling; "mini" starts an in-process miniredis, empty throttles in memory`)
		otpMax    = flag.Int("otp-max", 5, "codes sent per email and purpose within -otp-window")
		otpWindow = flag.Duration("otp-window", 10*time.Minute, "OTP throttling window")
		seed      = flag.String("seed", "", "comma-separated name:email:password accounts created verified at startup")
	)
	flag.Parse()

	if *otpMax <= 0 || *otpWindow <= 0 {
		fmt.Fprintln(os.Stderr, "otp-max and otp-window must be > 0")
		os.Exit(2)
	}

	limiter, cleanup, err := newLimiter(*redisAddr, *otpWindow, *otpMax)
	if err != nil {
		fatal("otp limiter", err)
	}
	defer cleanup()

	mailer := &mockapi.RecordingMailer{
		OnSend: func(m mockapi.Mail) {
			logger.Info("mail sent", "to", m.To, "purpose", m.Purpose, "code", m.Code)
		},
	}
	srv, err := mockapi.New(mockapi.Config{Mailer: mailer, CodeLimiter: limiter})
	if err != nil {
		fatal("reference backend", err)
	}
	if err := seedAccounts(srv, *seed); err != nil {
		fatal("seed accounts", err)
	}

	hs := &http.Server{
		Addr:              *addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", *addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shutdownCtx)
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func newLimiter(addr string, window time.Duration, max int) (throttle.Limiter, func(), error) {
	switch addr {
	case "":
		return throttle.NewLocal(window/time.Duration(max), max), func() {}, nil
	case "mini":
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		logger.Info("otp limiter", "backend", "miniredis", "addr", mr.Addr())
		return throttle.NewRedisWindow(client, "authmock:otp", window, max), func() {
			_ = client.Close()
			mr.Close()
		}, nil
	default:
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
		}
		logger.Info("otp limiter", "backend", "redis", "addr", addr)
		return throttle.NewRedisWindow(client, "authmock:otp", window, max), func() { _ = client.Close() }, nil
	}
}

func seedAccounts(srv *mockapi.Server, list string) error {
	if list == "" {
		return nil
	}
	for _, entry := range strings.Split(list, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("seed %q: want name:email:password", entry)
		}
		if err := srv.SeedUser(parts[0], parts[1], parts[2], true); err != nil {
			return fmt.Errorf("seed %s: %w", parts[1], err)
		}
		logger.Info("account seeded", "email", parts[1])
	}
	return nil
}
