package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/gdcard/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "slot", ID: "07"}
		assert.Equal(t, "slot 07 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("entry", "abc")
		wrapped := errors.Join(errors.New("failed"), base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("menu_kind", "foo", "unknown menu kind")
		assert.Equal(t, "validation failed for field menu_kind: unknown menu kind", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "bad options"}
		assert.Equal(t, "validation failed: bad options", err.Error())
	})
}

func TestImageError(t *testing.T) {
	cause := errors.New("short read")
	err := pkgerrors.NewImageError("/games/a.gdi", "gdi", "no boot header", cause)

	assert.Contains(t, err.Error(), "gdi")
	assert.Contains(t, err.Error(), "/games/a.gdi")
	assert.True(t, errors.Is(err, pkgerrors.ErrUnreadableImage))
	assert.True(t, errors.Is(err, cause))
}

func TestMissingFileError(t *testing.T) {
	err := pkgerrors.NewMissingFileError("track03.bin", "disc.gdi")
	assert.Equal(t, "file track03.bin referenced by disc.gdi is missing", err.Error())
	assert.True(t, errors.Is(err, pkgerrors.ErrMissingFile))
	assert.False(t, errors.Is(err, pkgerrors.ErrUnreadableImage))
}

func TestEntryError(t *testing.T) {
	cause := pkgerrors.NewIOError("copy", "/sd/03", errors.New("disk full"))
	err := pkgerrors.NewEntryError("Crazy Taxi", 3, "materialize", cause)

	assert.Equal(t, "materialize failed for Crazy Taxi (slot 3): "+cause.Error(), err.Error())

	var ioErr *pkgerrors.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "/sd/03", ioErr.Path)
}

func TestMenuCountError(t *testing.T) {
	err := &pkgerrors.MenuCountError{Count: 2}
	assert.True(t, errors.Is(err, pkgerrors.ErrTooManyMenuEntries))
	assert.Contains(t, err.Error(), "2")
}

func TestWrapHelpers(t *testing.T) {
	assert.NoError(t, pkgerrors.WrapIO("read", "x", nil))
	assert.NoError(t, pkgerrors.WrapParse("json", "x", nil))
	assert.NoError(t, pkgerrors.WrapImage("x", "cdi", nil))
	assert.NoError(t, pkgerrors.WrapEntry("x", 2, "copy", nil))
	assert.NoError(t, pkgerrors.WrapValidation("x", nil))

	cause := errors.New("boom")
	assert.ErrorIs(t, pkgerrors.WrapIO("read", "x", cause), cause)
	assert.ErrorIs(t, pkgerrors.WrapParse("json", "x", cause), cause)
	assert.ErrorIs(t, pkgerrors.WrapImage("x", "cdi", cause), pkgerrors.ErrUnreadableImage)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pkgerrors.Kind
	}{
		{"nil", nil, pkgerrors.KindNone},
		{"canceled sentinel", pkgerrors.ErrCanceled, pkgerrors.KindCanceled},
		{"context canceled", fmt.Errorf("load: %w", context.Canceled), pkgerrors.KindCanceled},
		{"not configured", pkgerrors.ErrNotConfigured, pkgerrors.KindConfig},
		{"empty catalog", pkgerrors.ErrEmptyCatalog, pkgerrors.KindConfig},
		{"menu count", &pkgerrors.MenuCountError{Count: 2}, pkgerrors.KindConfig},
		{"unreadable", pkgerrors.NewImageError("a", "", "x", nil), pkgerrors.KindIngest},
		{"missing file", pkgerrors.NewMissingFileError("a", "b"), pkgerrors.KindIngest},
		{"cached failure", fmt.Errorf("02: %w", pkgerrors.ErrCachedFailure), pkgerrors.KindCache},
		{"no image", pkgerrors.ErrNoImageFound, pkgerrors.KindCache},
		{"cache error", pkgerrors.NewCacheError("/sd/02", "bad", nil), pkgerrors.KindCache},
		{"entry error", pkgerrors.NewEntryError("a", 2, "copy", pkgerrors.ErrMissingFile), pkgerrors.KindCommit},
		{"io", pkgerrors.NewIOError("read", "a", errors.New("x")), pkgerrors.KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pkgerrors.KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "canceled", pkgerrors.KindCanceled.String())
	assert.Equal(t, "commit", pkgerrors.KindCommit.String())
	assert.Equal(t, "io", pkgerrors.KindIO.String())
}
