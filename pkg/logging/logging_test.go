package logging_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		logging.SetDefault(original)
		zerolog.SetGlobalLevel(originalLevel)
	})

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.DebugLevel))

	logging.Info().Msg("info message")
	logging.Err(errors.New("boom")).Msg("failed")

	assert.Contains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "boom")
}

func TestConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	t.Run("defaults", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
	})

	t.Run("levels", func(t *testing.T) {
		for in, want := range map[string]zerolog.Level{
			"debug":   zerolog.DebugLevel,
			"warning": zerolog.WarnLevel,
			"off":     zerolog.Disabled,
			"bogus":   zerolog.InfoLevel,
		} {
			logger := logging.NewLoggerFromConfig(&logging.Config{Level: in, Output: "discard"})
			assert.Equal(t, want, logger.GetLevel(), in)
		}
	})

	t.Run("nil config", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(nil)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})
}

func TestContextFields(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithEntry(ctx, "Crazy Taxi")
	ctx = logging.WithSlot(ctx, 7)
	ctx = logging.WithOperation(ctx, "materialize")
	ctx = logging.WithPath(ctx, "/sd/07")
	ctx = logging.WithError(ctx, errors.New("disk full"))

	logging.FromContext(ctx).Info().Msg("step")

	lines := tl.Lines()
	require.Len(t, lines, 1)
	for _, want := range []string{`"entry":"Crazy Taxi"`, `"slot":7`, `"operation":"materialize"`, `"path":"/sd/07"`, `"error":"disk full"`} {
		assert.Contains(t, lines[0], want)
	}
}

func TestWithFields(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithFields(ctx, map[string]any{"operation": "save", "entries": 3, "dry": false})
	logging.FromContext(ctx).Info().Msg("start")

	lines := tl.Lines()
	require.Len(t, lines, 1)
	for _, want := range []string{`"operation":"save"`, `"entries":3`, `"dry":false`} {
		assert.Contains(t, lines[0], want)
	}
}

func TestConfigure(t *testing.T) {
	original, level := *logging.Default(), zerolog.GlobalLevel()
	t.Cleanup(func() {
		logging.SetDefault(original)
		zerolog.SetGlobalLevel(level)
	})

	logging.Configure(&logging.Config{Level: "warn", Format: "json", Output: "discard"})
	assert.Equal(t, zerolog.WarnLevel, logging.Default().GetLevel())
}

func TestFromContextFallsBack(t *testing.T) {
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Equal(t, logging.Default(), logging.FromContext(nil))
	assert.Same(t, logging.Ctx(context.Background()), logging.Default())
}
