package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"ideas-go/internal/config"
	"ideas-go/internal/connectivity"
	"ideas-go/internal/fallback"
	"ideas-go/internal/ideas"
	"ideas-go/internal/kv"
	"ideas-go/internal/model"
	"ideas-go/internal/telemetry"
)

// ErrNoGroup is returned when a command needs a group and none can be chosen.
var ErrNoGroup = errors.New("no group selected: pass --group or set user.default_group")

// Options carries the process-level inputs that do not live in the config file.
type Options struct {
	Stderr     io.Writer               // defaults to os.Stderr
	Passphrase func() (string, error)  // defaults to ReadPassphrase
	Session    string                  // defaults to GetDefaults()["session"]
	Clock      ideas.Clock             // defaults to ideas.RealClock
	IDs        ideas.IDGenerator       // defaults to ideas.ULIDGenerator
	Probe      ideas.ConnectivityProbe // defaults to a TCP probe of connectivity.probe_address
}

// App is the application layer between the CLI and the ideas.Service.
// It constructs all dependencies from config, resolves the acting user and
// group, and releases resources on Close.
type App struct {
	cfg      *config.Config
	user     model.User
	clock    ideas.Clock
	remote   *remote
	fallback *fallback.Dataset
	service  *ideas.Service
	probe    ideas.ConnectivityProbe
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	reporter *telemetry.Reporter
	logger   *slog.Logger
	logFile  *os.File
	op       *Operation
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "AddIdea", "Serve").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	if cfg.User.ID == "" {
		return nil, fmt.Errorf("user.id is not set in the config")
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Passphrase == nil {
		opts.Passphrase = func() (string, error) { return ReadPassphrase("Passphrase: ") }
	}
	if opts.Session == "" {
		opts.Session = getSession()
	}
	if opts.Clock == nil {
		opts.Clock = ideas.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = ideas.ULIDGenerator{}
	}
	if opts.Probe == nil {
		opts.Probe = connectivity.NewDialProbe(cfg.Connectivity.ProbeAddress, cfg.Connectivity.Timeout.Duration)
	}

	op := NewOperation(operation, "", opts.Clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	a := &App{
		cfg:     cfg,
		user:    model.User{ID: cfg.User.ID, Email: cfg.User.Email, Name: cfg.User.Name},
		clock:   opts.Clock,
		probe:   opts.Probe,
		logger:  logger,
		logFile: logFile,
		op:      op,
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = telemetry.NewMetrics(a.registry)
	observers := ideas.MultiObserver{a.metrics}
	if cfg.Telemetry.SentryDSN != "" {
		a.reporter, err = telemetry.NewReporter(sentry.ClientOptions{
			Dsn:         cfg.Telemetry.SentryDSN,
			Environment: cfg.Telemetry.Environment,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating sentry reporter: %w", err)
		}
		observers = append(observers, a.reporter)
	}

	device, err := kv.NewStoreFromConfig(cfg.State, "device")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating device state: %w", err)
	}
	session, err := kv.NewStoreFromConfig(cfg.State, "sessions/"+opts.Session)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating session state: %w", err)
	}

	a.remote, err = newRemote(ctx, cfg, opts.Passphrase, opts.Clock, opts.IDs)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.fallback = fallback.New(opts.Clock, opts.IDs, cfg.Fallback.Latency.Duration)
	mode := ideas.NewModeStore(device, a.fallback.CanonicalGroup(), observers, opts.Clock, log)
	tracker := ideas.NewErrorTracker(session, mode, cfg.Failover.Threshold, log)
	policy := ideas.FailoverPolicy{
		Threshold:         cfg.Failover.Threshold,
		SingleStrikeReads: cfg.Failover.SingleStrikeReads,
		ResetOnSuccess:    cfg.Failover.ResetOnSuccess,
		RemoteTimeout:     cfg.Remote.Timeout.Duration,
	}
	a.service = ideas.NewService(a.remote, a.fallback, mode, tracker, opts.Probe, policy, observers, log)

	logger.Info("operation started", "op", op.String(), "remote", cfg.Remote.Type, "session", opts.Session)
	return a, nil
}

// Service returns the façade for commands that call it directly.
func (a *App) Service() *ideas.Service { return a.service }

// User returns the identity the app acts as.
func (a *App) User() model.User { return a.user }

// Logger returns the operation's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// SetParameters records the command's parameters on the operation.
func (a *App) SetParameters(params string) { a.op.Parameters = params }

// Fail marks the operation as failed so Close logs it as an error.
func (a *App) Fail(err error) { a.op.Fail(err) }

// Start activates failover when the session or device calls for it, then
// registers the user with whichever backend is serving.
func (a *App) Start(ctx context.Context) error {
	if err := a.service.Start(ctx); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	a.metrics.SetActive(a.service.IsDemoMode())
	if err := a.service.EnsureUser(ctx, a.user); err != nil {
		return fmt.Errorf("registering user: %w", err)
	}
	return nil
}

// ResolveGroup picks the group a command acts on: the explicit flag, then the
// demo group while failover is active, then user.default_group, then the
// user's only group.
func (a *App) ResolveGroup(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.service.IsDemoMode() {
		g, err := a.service.SelectedGroup()
		if err != nil {
			return "", err
		}
		if g != nil {
			return g.ID, nil
		}
		return fallback.DemoGroupID, nil
	}
	if a.cfg.User.DefaultGroup != "" {
		return a.cfg.User.DefaultGroup, nil
	}

	groups, err := a.service.GetUserGroups(ctx, a.user.ID)
	if err != nil {
		return "", err
	}
	if len(groups) == 1 {
		return groups[0].ID, nil
	}
	return "", ErrNoGroup
}

// Today returns the current date as YYYY-MM-DD in local time.
func (a *App) Today() string {
	return a.clock.Now().Format("2006-01-02")
}

// ImportFile reads a bulk-import document from path ("-" for stdin) and adds
// its ideas to groupID.
func (a *App) ImportFile(ctx context.Context, groupID, path, categoryID string) (int, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return 0, fmt.Errorf("reading import file: %w", err)
	}
	return a.service.ImportIdeas(ctx, a.user.ID, groupID, string(data), categoryID)
}

// Status is a snapshot of the façade's mode and the remote's health.
type Status struct {
	ideas.FailoverState
	Online    bool
	RemoteErr error
	Group     *model.GroupWithMembers // snapshot stored on activation
}

// Status probes connectivity and pings the remote directly, without going
// through the façade, so a status check never counts as a failure.
func (a *App) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		FailoverState: a.service.State(),
		Online:        a.probe.Online(ctx),
	}
	pingCtx, cancel := context.WithTimeout(ctx, a.pingTimeout())
	defer cancel()
	st.RemoteErr = a.remote.ping(pingCtx)

	g, err := a.service.SelectedGroup()
	if err != nil {
		return nil, err
	}
	st.Group = g
	return st, nil
}

func (a *App) pingTimeout() time.Duration {
	if d := a.cfg.Remote.Timeout.Duration; d > 0 {
		return d
	}
	return 5 * time.Second
}

// GoOnline turns failover off once the remote answers a ping.
func (a *App) GoOnline(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, a.pingTimeout())
	defer cancel()
	if err := a.remote.ping(pingCtx); err != nil {
		return fmt.Errorf("remote still unreachable: %w", err)
	}
	return a.service.DeactivateFailover()
}

// Serve watches connectivity on connectivity.interval and, when
// telemetry.metrics_address is set, serves /metrics until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	log := &slogAdapter{l: a.logger}
	watcher, err := connectivity.NewWatcher(a.probe, a.service, a.cfg.Connectivity.Interval.Duration, log)
	if err != nil {
		return err
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	events, unsubscribe := a.service.Subscribe()
	defer unsubscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				a.logger.Warn("failover activated", "reason", ev.Reason, "at", ev.At)
			}
		}
	})

	if addr := a.cfg.Telemetry.MetricsAddress; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler(a.registry))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			a.logger.Info("serving metrics", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Backup copies the SQLite remote to destPath.
func (a *App) Backup(destPath string) error {
	if a.remote.sqlite == nil {
		return fmt.Errorf("backup needs a sqlite remote, have %q", a.cfg.Remote.Type)
	}
	return a.remote.sqlite.BackupTo(destPath)
}

// Close logs the operation's outcome and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			firstErr = fmt.Errorf("closing remote: %w", err)
		}
	}
	if a.reporter != nil {
		a.reporter.Close()
	}

	if a.logger != nil {
		level := slog.LevelInfo
		if a.op.Status != "success" {
			level = slog.LevelError
		}
		a.logger.Log(context.Background(), level, "operation finished",
			"op", a.op.String(), "status", a.op.Status, "elapsed", a.op.Elapsed(a.clock.Now()))
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
