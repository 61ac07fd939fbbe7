// Package runner holds the startup and shutdown sequence shared by the
// sftp-delete and sftp-upload commands.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"sftp-tools/internal/cleanup"
	"sftp-tools/internal/config"
	"sftp-tools/internal/database"
	"sftp-tools/internal/exitcodes"
	"sftp-tools/internal/fsops"
	"sftp-tools/internal/journal"
	"sftp-tools/internal/limiter"
	"sftp-tools/internal/logging"
	"sftp-tools/internal/metrics"
	"sftp-tools/internal/safety"
	"sftp-tools/internal/upload"
)

var (
	// ErrUsage marks wrong command-line usage
	ErrUsage = errors.New("invalid usage")
	// ErrConfig marks an unusable configuration
	ErrConfig = errors.New("invalid configuration")
)

// Options are the values taken from the command line. Non-empty values
// override the config file and environment.
type Options struct {
	ConfigPath string
	Host       string
	Username   string
	Password   string
	Port       int
	LogLevel   string
}

// Env is everything a command needs around the traversal itself
type Env struct {
	Config  *config.Config
	Logger  *zap.SugaredLogger
	DB      *database.OperationDB // nil when history is disabled
	Limiter *limiter.OpLimiter

	closeLog func()
}

// Setup loads configuration, applies command-line overrides and opens
// the logger, metrics and optional history database
func Setup(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	applyOptions(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	logger, closeLog, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	metrics.Init()

	e := &Env{
		Config:   cfg,
		Logger:   logger,
		Limiter:  limiter.NewOpLimiter(cfg.OpsPerSecond),
		closeLog: closeLog,
	}

	if cfg.DatabasePath != "" {
		logger.Infow("Opening operation history", "path", cfg.DatabasePath)
		db, err := database.NewOperationDB(cfg.DatabasePath)
		if err != nil {
			closeLog()
			return nil, fmt.Errorf("open history database: %w", err)
		}
		e.DB = db
	}

	return e, nil
}

func applyOptions(cfg *config.Config, opts Options) {
	if opts.Host != "" {
		cfg.Connection.Host = opts.Host
	}
	if opts.Username != "" {
		cfg.Connection.Username = opts.Username
	}
	if opts.Password != "" {
		cfg.Connection.Password = opts.Password
	}
	if opts.Port > 0 {
		cfg.Connection.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.LogLevel)
	}
}

// Connect opens the single SFTP session used for the whole run
func (e *Env) Connect(ctx context.Context) (*fsops.SFTPSession, error) {
	e.Logger.Infow("Connecting",
		"address", e.Config.Address(),
		"username", e.Config.Connection.Username,
		"host_key_check", e.Config.Connection.KnownHostsFile != "",
	)
	return fsops.Dial(ctx, fsops.ConnectOptions{
		Address:        e.Config.Address(),
		Username:       e.Config.Connection.Username,
		Password:       e.Config.Connection.Password,
		KnownHostsFile: e.Config.Connection.KnownHostsFile,
		Timeout:        e.Config.Timeout(),
	})
}

// Validator builds the remote root guard from the configured protected paths
func (e *Env) Validator() *safety.Validator {
	return safety.NewValidator(e.Config.Safety.ProtectedPaths)
}

// NewCleaner wires a deleter to session with the configured guard and limiter
func (e *Env) NewCleaner(session fsops.Session) *cleanup.Cleaner {
	c := cleanup.NewCleaner(session, e.Logger, e.DB)
	c.SetValidator(e.Validator())
	c.SetLimiter(e.Limiter)
	return c
}

// NewUploader wires an uploader to session with the configured limiter
func (e *Env) NewUploader(session fsops.Session) *upload.Uploader {
	u := upload.NewUploader(session, e.Logger, e.DB)
	u.SetLimiter(e.Limiter)
	return u
}

// Complete writes the metrics textfile, logs the final status and
// returns the process exit code for the run
func (e *Env) Complete(report *journal.Report, runErr error) int {
	if err := metrics.WriteTextfile(e.Config.Metrics.TextfilePath); err != nil {
		e.Logger.Warnw("Failed to write metrics textfile", "path", e.Config.Metrics.TextfilePath, "error", err)
	}

	code := ExitCode(report, runErr)
	switch {
	case runErr != nil:
		e.Logger.Errorw("Run aborted", "error", runErr, "exit_code", code)
	case code == exitcodes.PartialFailure:
		e.Logger.Warnw("Run finished with errors", "failed", report.Failed, "exit_code", code)
	}
	return code
}

// Close releases the history database and flushes the logger
func (e *Env) Close() {
	if e.DB != nil {
		if err := e.DB.Close(); err != nil {
			e.Logger.Errorw("Failed to close database", "error", err)
		}
	}
	if e.closeLog != nil {
		e.closeLog()
	}
}

// ExitCode maps a run's result onto the exit code contract
func ExitCode(report *journal.Report, err error) int {
	switch {
	case err == nil:
		if report != nil && report.HasFailures() {
			return exitcodes.PartialFailure
		}
		return exitcodes.Success
	case errors.Is(err, ErrUsage), errors.Is(err, ErrConfig):
		return exitcodes.InvalidConfig
	case errors.Is(err, safety.ErrProtectedPath),
		errors.Is(err, safety.ErrTraversal),
		errors.Is(err, safety.ErrInvalidPath):
		return exitcodes.SafetyViolation
	case errors.Is(err, fsops.ErrConnection):
		return exitcodes.ConnectionError
	default:
		return exitcodes.RuntimeError
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM
func SignalContext(logger *zap.SugaredLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warnw("Received signal, stopping after the current operation", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
