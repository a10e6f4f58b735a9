// Package app provides the application context and dependency management
// for the gdcard CLI. It centralizes configuration, logging and the
// construction of card managers.
package app

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard"
	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/ingest"
	"github.com/agentstation/gdcard/pkg/media"
	"github.com/agentstation/gdcard/pkg/progress"
	"github.com/agentstation/gdcard/pkg/psxdb"
	"github.com/agentstation/gdcard/pkg/shrink"
	pkgsync "github.com/agentstation/gdcard/pkg/sync"
)

// App represents the gdcard application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Filesystem the card and sources are read from
	fs afero.Fs
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration loaded from the environment
// that can be customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		fs:      afero.NewOsFs(),
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.NewConfigError("app", "loading config", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Format returns the requested output format.
func (a *App) Format() string {
	return a.config.Format
}

// Manager returns a card manager for the configured SD path. Extra options
// are applied after those derived from the configuration.
func (a *App) Manager(opts ...gdcard.Option) (*gdcard.Manager, error) {
	if a.config.SDPath == "" {
		return nil, errors.NewValidationError("sd_path", "", "set --sd or GDCARD_SD_PATH")
	}
	base, err := a.managerOptions()
	if err != nil {
		return nil, err
	}
	return gdcard.New(a.config.SDPath, append(base, opts...)...)
}

// Ingestor returns an ingestor that reads images outside any card.
func (a *App) Ingestor() (*ingest.Ingestor, error) {
	db, err := a.playStationDB()
	if err != nil {
		return nil, err
	}
	session := media.NewSession(a.fs, a.config.SDPath, catalog.MenuNone)
	session.Limits = a.limits()
	return ingest.New(session, ingest.WithPlayStationDB(db)), nil
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	return nil
}

// managerOptions translates the configuration into manager options.
func (a *App) managerOptions() ([]gdcard.Option, error) {
	kind, err := catalog.ParseMenuKind(a.config.MenuKind)
	if err != nil {
		return nil, err
	}
	db, err := a.playStationDB()
	if err != nil {
		return nil, err
	}

	opts := []gdcard.Option{
		gdcard.WithFs(a.fs),
		gdcard.WithMenuKind(kind),
		gdcard.WithToolsDir(a.config.ToolsDir),
		gdcard.WithLimits(a.limits()),
		gdcard.WithLazyLoading(a.config.LazyLoading),
		gdcard.WithRevalidateErrors(a.config.RevalidateErrors),
		gdcard.WithPlayStationDB(db),
		gdcard.WithTruncateMenu(a.config.TruncateMenuGDI),
		gdcard.WithDebugMenu(a.config.DebugMenu),
		gdcard.WithReporter(progress.NewLogReporter(a.logger)),
		gdcard.WithSaveOptions(
			pkgsync.WithTempDir(a.config.TempDir),
			pkgsync.WithCleanTemp(a.config.CleanTemp),
			pkgsync.WithUnattended(a.config.Unattended),
			pkgsync.WithShrink(a.config.ShrinkEnabled, a.config.ShrinkBlacklist),
		),
	}

	if a.config.ShrinkEnabled {
		if a.config.ShrinkCommand == "" {
			return nil, errors.NewValidationError("gdishrink.command", "", "required when gdishrink is enabled")
		}
		var blacklist *shrink.Blacklist
		if a.config.ShrinkBlacklist {
			blacklist, err = shrink.LoadBlacklist(a.fs, filepath.Join(a.config.ToolsDir, constants.ShrinkBlacklistFile))
			if err != nil {
				return nil, err
			}
		}
		opts = append(opts, gdcard.WithShrinker(shrink.NewProcessShrinker(a.config.ShrinkCommand), blacklist))
	}
	return opts, nil
}

func (a *App) playStationDB() (*psxdb.DB, error) {
	if a.config.PSXDB == "" {
		return psxdb.Default(), nil
	}
	return psxdb.Load(a.fs, a.config.PSXDB)
}

func (a *App) limits() catalog.Limits {
	return catalog.Limits{NameMax: a.config.NameMaxLength, SerialMax: a.config.SerialMaxLength}
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithFs sets the filesystem (useful for testing).
func WithFs(fs afero.Fs) Option {
	return func(a *App) error {
		a.fs = fs
		return nil
	}
}

// Fs returns the filesystem commands read and write through.
func (a *App) Fs() afero.Fs {
	return a.fs
}
