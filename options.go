package gdcard

import (
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/catalog"
	pkgerrors "github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/progress"
	"github.com/agentstation/gdcard/pkg/psxdb"
	"github.com/agentstation/gdcard/pkg/shrink"
	pkgsync "github.com/agentstation/gdcard/pkg/sync"
)

// config holds the Manager configuration.
type config struct {
	fs       afero.Fs
	menuKind catalog.MenuKind
	toolsDir string
	limits   catalog.Limits

	// Loading
	lazyLoading      bool
	revalidateErrors bool
	psxDB            *psxdb.DB

	// Menu image
	truncateMenu bool
	debugMenu    bool

	// Saving
	shrinker    shrink.Shrinker
	blacklist   *shrink.Blacklist
	reporter    progress.Reporter
	confirmer   progress.Confirmer
	saveOptions []pkgsync.Option
}

func defaultConfig() *config {
	return &config{
		menuKind:     catalog.MenuNone,
		toolsDir:     "tools",
		limits:       catalog.DefaultLimits,
		lazyLoading:  true,
		truncateMenu: true,
		reporter:     progress.Nop{},
		confirmer:    progress.Always,
	}
}

// Option is a function that configures a Manager.
type Option func(*config) error

// WithFs sets the filesystem the card and sources are read from.
func WithFs(fs afero.Fs) Option {
	return func(c *config) error {
		if fs == nil {
			return pkgerrors.NewValidationError("fs", nil, "filesystem is required")
		}
		c.fs = fs
		return nil
	}
}

// WithMenuKind selects the menu program written to slot 01. A menu found
// on the card during LoadFromMedia takes precedence.
func WithMenuKind(kind catalog.MenuKind) Option {
	return func(c *config) error {
		c.menuKind = kind
		return nil
	}
}

// WithToolsDir sets the folder holding the menu assets.
func WithToolsDir(dir string) Option {
	return func(c *config) error {
		if dir == "" {
			return pkgerrors.NewValidationError("tools_dir", dir, "tools directory is required")
		}
		c.toolsDir = dir
		return nil
	}
}

// WithLimits caps entry names and serials.
func WithLimits(limits catalog.Limits) Option {
	return func(c *config) error {
		if limits.NameMax < 0 || limits.SerialMax < 0 {
			return pkgerrors.NewValidationError("limits", limits, "limits must be non-negative")
		}
		c.limits = limits
		return nil
	}
}

// WithLazyLoading configures whether cached sidecars are trusted on load.
func WithLazyLoading(enabled bool) Option {
	return func(c *config) error {
		c.lazyLoading = enabled
		return nil
	}
}

// WithRevalidateErrors configures whether folders with a recorded failure
// are read again instead of failing.
func WithRevalidateErrors(enabled bool) Option {
	return func(c *config) error {
		c.revalidateErrors = enabled
		return nil
	}
}

// WithPlayStationDB sets the database used to name PlayStation discs.
func WithPlayStationDB(db *psxdb.DB) Option {
	return func(c *config) error {
		c.psxDB = db
		return nil
	}
}

// WithTruncateMenu configures whether the menu data track is cut to its content.
func WithTruncateMenu(enabled bool) Option {
	return func(c *config) error {
		c.truncateMenu = enabled
		return nil
	}
}

// WithDebugMenu configures whether the rendered listing is kept in the scratch folder.
func WithDebugMenu(enabled bool) Option {
	return func(c *config) error {
		c.debugMenu = enabled
		return nil
	}
}

// WithShrinker sets the image shrinking tool and the serials it must skip.
func WithShrinker(s shrink.Shrinker, blacklist *shrink.Blacklist) Option {
	return func(c *config) error {
		c.shrinker = s
		c.blacklist = blacklist
		return nil
	}
}

// WithReporter sets the progress reporter of long operations.
func WithReporter(r progress.Reporter) Option {
	return func(c *config) error {
		if r == nil {
			r = progress.Nop{}
		}
		c.reporter = r
		return nil
	}
}

// WithConfirmer sets the prompt asked before the card is rewritten.
func WithConfirmer(confirm progress.Confirmer) Option {
	return func(c *config) error {
		if confirm == nil {
			confirm = progress.Always
		}
		c.confirmer = confirm
		return nil
	}
}

// WithSaveOptions sets options applied to every Save before the call's own.
func WithSaveOptions(opts ...pkgsync.Option) Option {
	return func(c *config) error {
		c.saveOptions = append(c.saveOptions, opts...)
		return nil
	}
}

// apply applies the given options to the manager config.
func (c *config) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}
