// healthgate is the command-line front-end to the health portal: DSSN
// verification, password and mobile-approval login, professional
// registration, and the authenticated read endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/liberianpost/healthgate/adapters/events"
	"github.com/liberianpost/healthgate/adapters/push"
	"github.com/liberianpost/healthgate/adapters/store"
	"github.com/liberianpost/healthgate/auth"
	"github.com/liberianpost/healthgate/config"
	"github.com/liberianpost/healthgate/core"
	"github.com/liberianpost/healthgate/ports"
	"github.com/liberianpost/healthgate/registration"
)

const usage = `Usage: healthgate <command> [flags]

Commands:
  verify          Pre-check a DSSN against the portal
  login           Password login
  mobile-login    Mobile-approval login (waits for the phone)
  register        Submit a professional registration
  whoami          Show the persisted session
  dashboard       Show the professional dashboard
  access-logs     Show recent access log entries
  refresh         Exchange the refresh token for a new access token
  logout          End the session
  set-push-token  Store the device push token
  admin-pending   List registrations awaiting review
  admin-verify    Approve or deny a registration
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if core.IsValidation(err) {
			fmt.Fprintf(os.Stderr, "Invalid input: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg   *config.Config
	store ports.SessionStore
	authn *auth.Authenticator
}

func newApp(cfg *config.Config) (*app, error) {
	ctx := context.Background()

	var sessions ports.SessionStore
	var err error
	if cfg.RedisURL != "" {
		sessions, err = store.NewRedisStore(ctx, cfg.RedisURL, "", 0)
	} else {
		sessions, err = store.NewFileStore(cfg.StateDir)
	}
	if err != nil {
		return nil, err
	}

	logger := watermill.NewStdLogger(false, false)
	bus := gochannel.NewGoChannel(gochannel.Config{}, logger)

	authn := auth.New(auth.Config{
		BaseURL:      cfg.BaseURL,
		HTTPTimeout:  cfg.HTTPTimeoutDuration(),
		Store:        sessions,
		Events:       events.NewWatermillPublisher(bus),
		Push:         push.StoredSource{Store: sessions},
		PollInterval: cfg.PollIntervalDuration(),
		PollTimeout:  cfg.PollTimeoutDuration(),
		Logger:       logger,
	})

	return &app{cfg: cfg, store: sessions, authn: authn}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	// Commands other than login ones still work against a persisted
	// session from a previous run.
	if _, err := a.authn.Rehydrate(ctx); err != nil {
		return err
	}

	switch command {
	case "verify":
		return a.verify(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "mobile-login":
		return a.mobileLogin(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "whoami":
		return a.whoami()
	case "dashboard":
		return a.dashboard(ctx)
	case "access-logs":
		return a.accessLogs(ctx, args)
	case "refresh":
		return a.refresh(ctx)
	case "logout":
		return a.authn.Logout(ctx)
	case "set-push-token":
		return a.setPushToken(ctx, args)
	case "admin-pending":
		return a.adminPending(ctx)
	case "admin-verify":
		return a.adminVerify(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	dssn := fs.String("dssn", "", "DSSN to verify")
	scopeFlag := fs.String("scope", "patient-records", "patient-records or pharmacy-management")
	fs.Parse(args)

	scope, err := core.ParseScope(*scopeFlag)
	if err != nil {
		return err
	}
	res, err := a.authn.API().VerifyDSSN(ctx, *dssn, scope)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("verification failed: %s", res.Message)
	}
	if res.User != nil {
		fmt.Printf("Verified: %s %s (%s)\n", res.User.FirstName, res.User.LastName, res.User.DSSN)
	}
	if res.RequiresRegistration {
		fmt.Println("No professional profile yet: run `healthgate register`.")
	} else if res.IsProfessional {
		fmt.Println("Professional profile approved.")
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	dssn := fs.String("dssn", "", "DSSN")
	password := fs.String("password", "", "password")
	scopeFlag := fs.String("scope", "patient-records", "patient-records or pharmacy-management")
	remember := fs.Bool("remember", false, "request an extended session")
	fs.Parse(args)

	scope, err := core.ParseScope(*scopeFlag)
	if err != nil {
		return err
	}
	sess, err := a.authn.PasswordLogin(ctx, *dssn, *password, scope, *remember)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s %s (session %s)\n", sess.User.FirstName, sess.User.LastName, sess.SessionID)
	return nil
}

func (a *app) mobileLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mobile-login", flag.ExitOnError)
	dssn := fs.String("dssn", "", "DSSN")
	scopeFlag := fs.String("scope", "patient-records", "patient-records or pharmacy-management")
	fs.Parse(args)

	scope, err := core.ParseScope(*scopeFlag)
	if err != nil {
		return err
	}

	poller, delivery, err := a.authn.StartMobileLogin(ctx, *dssn, scope)
	if err != nil {
		if errors.Is(err, core.ErrMissingPushToken) {
			return fmt.Errorf("%w: install the Digital Liberia mobile app, then run `healthgate set-push-token`", err)
		}
		return err
	}
	defer poller.Dispose()

	if delivery != nil && !delivery.Sent {
		if !delivery.HasToken {
			fmt.Println("Warning: no registered device; install the Digital Liberia mobile app.")
		} else if delivery.Error != "" {
			fmt.Printf("Warning: push delivery failed: %s\n", delivery.Error)
		}
	}
	fmt.Printf("Approve the request on your phone (times out after %s)...\n", a.cfg.PollTimeoutDuration())

	select {
	case <-ctx.Done():
		fmt.Println("Cancelled.")
		return nil
	case outcome := <-poller.Done():
		sess, err := a.authn.CompleteMobileLogin(ctx, *dssn, outcome)
		if err != nil {
			return err
		}
		fmt.Printf("Approved. Logged in as %s %s\n", sess.User.FirstName, sess.User.LastName)
		return nil
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	dssn := fs.String("dssn", "", "DSSN")
	profType := fs.String("type", "", "professional type: doctor|nurse|pharmacist|lab_technician")
	specialization := fs.String("specialization", "", "specialization (optional)")
	license := fs.String("license", "", "license number")
	expiry := fs.String("expiry", "", "license expiry (YYYY-MM-DD)")
	facility := fs.String("facility", "", "facility name (optional)")
	facilityType := fs.String("facility-type", "hospital", "hospital|clinic|pharmacy|laboratory")
	department := fs.String("department", "", "department (optional)")
	fs.Parse(args)

	wizard := registration.NewWizard(*dssn, a.authn.API().RegisterProfessional,
		registration.WithCompletion(func(d core.RegistrationDraft) {
			fmt.Printf("Registration submitted for %s; an administrator will review it.\n", d.DSSN)
		}))

	draft := wizard.Draft()
	draft.ProfessionalType = core.ProfessionalType(*profType)
	draft.Specialization = *specialization
	draft.LicenseNumber = *license
	draft.LicenseExpiry = *expiry
	if err := wizard.Next(); err != nil {
		return err
	}

	draft.FacilityName = *facility
	draft.FacilityType = core.FacilityType(*facilityType)
	draft.Department = *department
	return wizard.Submit(ctx)
}

func (a *app) whoami() error {
	sess := a.authn.Session()
	if sess == nil {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("%s %s <%s>\nDSSN: %s\nSession: %s\n",
		sess.User.FirstName, sess.User.LastName, sess.User.Email, sess.User.DSSN, sess.SessionID)
	if auth.NeedsRefresh(sess.AccessToken, 0) {
		fmt.Println("Access token expired; run `healthgate refresh` or log in again.")
	}
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	res, err := a.authn.API().Dashboard(ctx)
	if err != nil {
		return err
	}
	if res.Professional != nil {
		fmt.Printf("Professional: %s %s, %s\n", res.Professional.FirstName, res.Professional.LastName, res.Professional.Institution)
	}
	for stat, value := range res.Stats {
		fmt.Printf("  %s: %d\n", stat, value)
	}
	return nil
}

func (a *app) accessLogs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("access-logs", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum entries")
	fs.Parse(args)

	res, err := a.authn.API().AccessLogs(ctx, *limit)
	if err != nil {
		return err
	}
	for _, entry := range res.Logs {
		fmt.Printf("%s  %-24s %s %s\n", entry.Timestamp, entry.Action, entry.Actor, entry.Detail)
	}
	return nil
}

func (a *app) refresh(ctx context.Context) error {
	if _, err := a.authn.Refresh(ctx); err != nil {
		return err
	}
	fmt.Println("Access token refreshed.")
	return nil
}

func (a *app) setPushToken(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: healthgate set-push-token <token>")
	}
	if err := a.store.Set(ctx, ports.KeyPushToken, strings.TrimSpace(args[0])); err != nil {
		return err
	}
	fmt.Println("Push token stored.")
	return nil
}

func (a *app) adminPending(ctx context.Context) error {
	res, err := a.authn.API().PendingProfessionals(ctx)
	if err != nil {
		return err
	}
	if len(res.Professionals) == 0 {
		fmt.Println("No registrations pending review.")
		return nil
	}
	for _, p := range res.Professionals {
		fmt.Printf("%s  %s %s license=%s %s\n", p.ID, p.DSSN, p.ProfessionalType, p.LicenseNumber, p.FacilityName)
	}
	return nil
}

func (a *app) adminVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin-verify", flag.ExitOnError)
	id := fs.String("id", "", "registration id")
	status := fs.String("status", "", "approved or denied")
	perms := fs.String("permissions", "", "comma-separated permissions")
	fs.Parse(args)

	var permissions []string
	if *perms != "" {
		permissions = strings.Split(*perms, ",")
	}
	if err := a.authn.API().VerifyProfessionalAdmin(ctx, *id, *status, permissions); err != nil {
		return err
	}
	fmt.Println("Decision recorded.")
	return nil
}
