package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/sensorauth"
)

const usage = `usage: sensorauth [flags] <command>

commands:
  whoami    verify the stored session and show the dashboard identity
  login     sign in with email and password
  google    sign in with a Google ID token credential
  signup    create an account and confirm the emailed code
  reset     reset a forgotten password
  logout    clear the stored session

flags:
`

// routeNavigator reports navigation on a channel so a command can wait for
// the redirect a controller schedules.
type routeNavigator struct {
	out    io.Writer
	routes chan sensorauth.Route
}

func (n *routeNavigator) Navigate(r sensorauth.Route) {
	fmt.Fprintf(n.out, "-> %s\n", r)
	select {
	case n.routes <- r:
	default:
	}
}

func (n *routeNavigator) wait(d time.Duration) (sensorauth.Route, bool) {
	select {
	case r := <-n.routes:
		return r, true
	case <-time.After(d):
		return "", false
	}
}

type app struct {
	client  *sensorauth.Client
	nav     *routeNavigator
	prompt  *prompter
	out     io.Writer
	waitFor time.Duration
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("sensorauth: ")

	var (
		configPath = flag.String("config", "", "config file (.yaml, .yml or .toml)")
		baseURL    = flag.String("base-url", "", "backend base URL; overrides the config file")
		sessionDB  = flag.String("session-db", "", "SQLite session file; defaults to the user config directory")
		email      = flag.String("email", "", "account email; prompted when empty")
		credential = flag.String("credential", "", "Google ID token for the google command")
		metrics    = flag.String("metrics", "", `print client metrics on exit: "prometheus" or "otel"`)
		auditLog   = flag.String("audit-log", "", "append JSON audit events, emails masked, to this file")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 || !validMetricsFormat(*metrics) {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath, *baseURL, *sessionDB)
	if err != nil {
		log.Fatal(err)
	}
	for _, w := range cfg.Lint().BySeverity(sensorauth.LintWarn) {
		log.Printf("config %s %s: %s", w.Severity, w.Code, w.Message)
	}

	if *metrics != metricsNone {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	}

	nav := &routeNavigator{out: os.Stdout, routes: make(chan sensorauth.Route, 1)}
	client, closeAuditLog, err := buildClient(cfg, nav, *auditLog)
	if err != nil {
		log.Fatal(err)
	}

	a := &app{
		client:  client,
		nav:     nav,
		prompt:  newPrompter(os.Stdin, os.Stdout),
		out:     os.Stdout,
		waitFor: cfg.Timing.RedirectDelay + cfg.Timing.SignupFallbackDelay + time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	runErr := a.run(ctx, flag.Arg(0), *email, *credential)
	stop()

	if err := writeMetrics(context.Background(), os.Stderr, client, *metrics); err != nil {
		log.Printf("metrics: %v", err)
	}
	if err := client.Close(); err != nil {
		log.Printf("close session store: %v", err)
	}
	if err := closeAuditLog(); err != nil {
		log.Printf("close audit log: %v", err)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}

func loadConfig(path, baseURL, sessionDB string) (sensorauth.Config, error) {
	cfg := sensorauth.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = sensorauth.LoadConfigFile(path); err != nil {
			return cfg, err
		}
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}

	// A terminal session must survive between invocations.
	if sessionDB != "" {
		cfg.Session.Backend = sensorauth.SessionBackendSQLite
		cfg.Session.SQLitePath = sessionDB
	} else if cfg.Session.Backend == sensorauth.SessionBackendMemory {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cfg, fmt.Errorf("locate config directory: %w", err)
		}
		cfg.Session.Backend = sensorauth.SessionBackendSQLite
		cfg.Session.SQLitePath = filepath.Join(dir, "sensorauth", "session.db")
	}
	return cfg, nil
}

func (a *app) run(ctx context.Context, cmd, email, credential string) error {
	switch cmd {
	case "whoami":
		return a.whoami(ctx)
	case "login":
		return a.login(ctx, email)
	case "google":
		return a.google(ctx, credential)
	case "signup":
		return a.signup(ctx, email)
	case "reset":
		return a.reset(ctx, email)
	case "logout":
		return a.client.NewSessionGuard().Logout(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) whoami(ctx context.Context) error {
	res, err := a.client.NewSessionGuard().CheckDashboard(ctx)
	if err != nil {
		if sensorauth.IsUnauthenticated(err) {
			fmt.Fprintln(a.out, "not signed in")
			return nil
		}
		return err
	}
	id := res.Identity
	p := id.Preferences
	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", id.DisplayName(), id.Email)
	fmt.Fprintf(a.out, "time zone %s, dark mode %t\n", p.TimeZone, p.DarkMode)
	fmt.Fprintf(a.out, "panels: temperature=%t humidity=%t sensors=%t users=%t alerts=%t\n",
		p.ShowTemp, p.ShowHumidity, p.ShowSensors, p.ShowUsers, p.ShowAlerts)
	return nil
}

func (a *app) login(ctx context.Context, preset string) error {
	lc := a.client.NewLoginController()
	defer lc.Close()

	email, err := a.prompt.value("Email", preset)
	if err != nil {
		return err
	}
	password, err := a.prompt.secret("Password")
	if err != nil {
		return err
	}

	err = lc.Login(ctx, email, password)
	st := lc.State()
	fmt.Fprintln(a.out, st.Message)
	if err != nil {
		if st.ShowResendVerification && a.prompt.confirm("Resend verification email?") {
			_ = lc.ResendVerification(ctx, email)
			fmt.Fprintln(a.out, lc.State().Message)
		}
		return nil
	}
	a.awaitRedirect()
	return nil
}

func (a *app) google(ctx context.Context, credential string) error {
	lc := a.client.NewLoginController()
	defer lc.Close()

	credential, err := a.prompt.value("Google credential", credential)
	if err != nil {
		return err
	}
	err = lc.GoogleSignIn(ctx, credential)
	fmt.Fprintln(a.out, lc.State().Message)
	if err == nil {
		a.awaitRedirect()
	}
	return nil
}

func (a *app) signup(ctx context.Context, preset string) error {
	sc := a.client.NewSignupController()
	defer sc.Close()

	for {
		var form sensorauth.SignupForm
		var err error
		if form.Name, err = a.prompt.line("Name"); err != nil {
			return err
		}
		if form.Email, err = a.prompt.value("Email", preset); err != nil {
			return err
		}
		if form.Password, err = a.prompt.secret("Password"); err != nil {
			return err
		}
		if form.Confirm, err = a.prompt.secret("Confirm password"); err != nil {
			return err
		}
		err = sc.Submit(ctx, form)
		fmt.Fprintln(a.out, sc.State().Message)
		if err == nil {
			break
		}
		if !errors.Is(err, sensorauth.ErrValidation) && !errors.Is(err, sensorauth.ErrServerRejected) {
			return nil
		}
		preset = ""
	}

	fmt.Fprintf(a.out, "A 6-digit code was sent to %s. Enter it, or r to resend.\n", sc.State().Email)
	for !sc.State().Completed {
		code, err := a.prompt.line("Code")
		if err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(code), "r") {
			if err := sc.ResendOTP(ctx); errors.Is(err, sensorauth.ErrCooldownActive) {
				fmt.Fprintf(a.out, "Resend available in %ds\n", sc.State().Cooldown)
				continue
			}
			fmt.Fprintln(a.out, sc.State().Message)
			continue
		}
		_ = sc.VerifyOTP(ctx, code)
		fmt.Fprintln(a.out, sc.State().Message)
	}
	a.awaitRedirect()
	return nil
}

func (a *app) reset(ctx context.Context, preset string) error {
	lc := a.client.NewLoginController()
	defer lc.Close()
	rc := a.client.NewResetController(nil)
	defer rc.Close()

	done := false
	banner := a.client.Config().Timing.ResetBannerDuration
	rc.SetOnComplete(func() {
		lc.ShowBanner(sensorauth.MsgResetSuccess, banner)
		done = true
	})

	email, err := a.prompt.value("Email", preset)
	if err != nil {
		return err
	}
	if err := rc.RequestReset(ctx, email); err != nil {
		fmt.Fprintln(a.out, rc.State().Message)
		return nil
	}
	fmt.Fprintln(a.out, rc.State().Message)

	for !done {
		code, err := a.prompt.line("Code (r to resend)")
		if err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(code), "r") {
			if err := rc.ResendResetOTP(ctx); errors.Is(err, sensorauth.ErrCooldownActive) {
				fmt.Fprintf(a.out, "Resend available in %ds\n", rc.State().Cooldown)
				continue
			}
			fmt.Fprintln(a.out, rc.State().Message)
			continue
		}
		if err := rc.ConfirmOTPShape(code); err != nil {
			fmt.Fprintln(a.out, rc.State().Message)
			continue
		}

		password, err := a.prompt.secret("New password")
		if err != nil {
			return err
		}
		confirm, err := a.prompt.secret("Confirm password")
		if err != nil {
			return err
		}
		if err := rc.SetNewPassword(ctx, password, confirm); err != nil {
			fmt.Fprintln(a.out, rc.State().Message)
		}
	}
	fmt.Fprintln(a.out, lc.State().Banner)
	return nil
}

func (a *app) awaitRedirect() {
	if _, ok := a.nav.wait(a.waitFor); !ok {
		log.Printf("no redirect within %s", a.waitFor)
	}
}
