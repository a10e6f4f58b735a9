package errors

import (
	"context"
	"errors"
)

// Kind classifies an error by the layer that produced it.
type Kind int

const (
	// KindNone is reported for a nil error.
	KindNone Kind = iota
	// KindCanceled is a user or context cancellation. It is not a failure.
	KindCanceled
	// KindConfig covers missing configuration and invalid input.
	KindConfig
	// KindIngest covers unreadable images and missing referenced files.
	KindIngest
	// KindCache covers stored failures and incomplete cache folders.
	KindCache
	// KindCommit covers per-entry failures while saving.
	KindCommit
	// KindIO covers everything else that touched the filesystem or a tool.
	KindIO
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCanceled:
		return "canceled"
	case KindConfig:
		return "config"
	case KindIngest:
		return "ingest"
	case KindCache:
		return "cache"
	case KindCommit:
		return "commit"
	default:
		return "io"
	}
}

// KindOf classifies err. Commit errors take precedence over the cause they
// wrap because the caller needs to know a save step failed.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var entryErr *EntryError
	if errors.As(err, &entryErr) {
		return KindCommit
	}

	switch {
	case errors.Is(err, ErrNotConfigured),
		errors.Is(err, ErrEmptyCatalog),
		errors.Is(err, ErrTooManyMenuEntries),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrBusy):
		return KindConfig
	case errors.Is(err, ErrCachedFailure), errors.Is(err, ErrNoImageFound):
		return KindCache
	case errors.Is(err, ErrUnreadableImage),
		errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrCorruptArchive):
		return KindIngest
	}

	var cacheErr *CacheError
	if errors.As(err, &cacheErr) {
		return KindCache
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return KindConfig
	}
	return KindIO
}
