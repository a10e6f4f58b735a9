// Package sync commits a catalog to the SD card: it renumbers slots, moves
// existing games aside, removes what is no longer listed, copies new games
// in and rebuilds the menu image.
package sync

import (
	"os"
	"time"

	"github.com/agentstation/gdcard/pkg/errors"
)

// Options controls a single Save.
type Options struct {
	// Failure policy
	Unattended  bool          // Record per-entry failures and continue instead of aborting
	AutoApprove bool          // Skip the confirmation prompt
	Timeout     time.Duration // Timeout for the entire save

	// Scratch space
	TempDir   string // Parent of the gdcard_temp scratch folder
	CleanTemp bool   // Remove extraction folders after a committed save

	// Optional image shrinking
	Shrink ShrinkOptions
}

// ShrinkOptions controls the external shrink tool.
type ShrinkOptions struct {
	Enabled      bool // Run the tool on newly copied GDI images
	UseBlacklist bool // Skip serials listed in the blacklist
}

// Apply applies the given options to the save options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Defaults returns the default save options.
func Defaults() *Options {
	return &Options{
		Unattended:  true,
		AutoApprove: false,
		Timeout:     0,
		TempDir:     os.TempDir(),
		CleanTemp:   false,
		Shrink: ShrinkOptions{
			Enabled:      false,
			UseBlacklist: true,
		},
	}
}

// Option is a function that configures save Options.
type Option func(*Options)

// Validate checks if the save options are valid.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   o.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	if o.TempDir == "" {
		return &errors.ValidationError{
			Field:   "TempDir",
			Value:   o.TempDir,
			Message: "a scratch directory is required",
		}
	}
	return nil
}

// WithUnattended configures the failure policy.
func WithUnattended(unattended bool) Option {
	return func(opts *Options) {
		opts.Unattended = unattended
	}
}

// WithAutoApprove configures auto approval.
func WithAutoApprove(autoApprove bool) Option {
	return func(opts *Options) {
		opts.AutoApprove = autoApprove
	}
}

// WithTimeout configures the save timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithTempDir configures where the scratch folder is created.
func WithTempDir(dir string) Option {
	return func(opts *Options) {
		opts.TempDir = dir
	}
}

// WithCleanTemp configures whether extraction folders are removed after a save.
func WithCleanTemp(clean bool) Option {
	return func(opts *Options) {
		opts.CleanTemp = clean
	}
}

// WithShrink configures the external shrink tool.
func WithShrink(enabled, useBlacklist bool) Option {
	return func(opts *Options) {
		opts.Shrink = ShrinkOptions{Enabled: enabled, UseBlacklist: useBlacklist}
	}
}
