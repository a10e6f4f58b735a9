package save

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard"
	"github.com/agentstation/gdcard/pkg/errors"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			confirm := PromptConfirmer(strings.NewReader(tt.input), &out)
			ok, err := confirm.Confirm(context.Background(), "Write 3 games?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Write 3 games? [y/N]: ", out.String())
		})
	}

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := PromptConfirmer(strings.NewReader("y\n"), &bytes.Buffer{}).Confirm(ctx, "?")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func newManager(t *testing.T) *gdcard.Manager {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/sd", 0o755))
	m, err := gdcard.New("/sd", gdcard.WithFs(fs))
	require.NoError(t, err)
	return m
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown slot", func(t *testing.T) {
		err := Apply(ctx, newManager(t), &Flags{Remove: []int{5}})
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("unknown rename source", func(t *testing.T) {
		err := Apply(ctx, newManager(t), &Flags{RenameBy: "title"})
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("unreadable paths are skipped", func(t *testing.T) {
		m := newManager(t)
		require.NoError(t, Apply(ctx, m, &Flags{Add: []string{"/missing.gdi"}, Sort: true}))
		assert.Empty(t, m.Entries())
	})
}
