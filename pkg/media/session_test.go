package media_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/media"
)

func TestFormatSlot(t *testing.T) {
	cases := map[int]string{1: "01", 7: "07", 42: "42", 99: "99", 100: "100", 150: "150", 1500: "1500", 9999: "9999"}
	for n, want := range cases {
		got, err := media.FormatSlot(n)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := media.FormatSlot(12345)
	assert.ErrorIs(t, err, errors.ErrSlotOutOfRange)
	_, err = media.FormatSlot(-1)
	assert.ErrorIs(t, err, errors.ErrSlotOutOfRange)
}

func TestParseSlotDir(t *testing.T) {
	n, ok := media.ParseSlotDir("007")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = media.ParseSlotDir("07a")
	assert.False(t, ok)
	_, ok = media.ParseSlotDir("")
	assert.False(t, ok)
}

func TestIsAsideDir(t *testing.T) {
	assert.True(t, media.IsAsideDir(uuid.NewString()))
	assert.False(t, media.IsAsideDir("02"))
	assert.False(t, media.IsAsideDir("menu_work"))
}

func TestSession(t *testing.T) {
	s := media.NewSession(afero.NewMemMapFs(), "/sd/", catalog.GDMenu)
	require.NoError(t, s.Validate())

	p, err := s.SlotPath(3)
	require.NoError(t, err)
	assert.Equal(t, "/sd/03", p)
	assert.Equal(t, "/sd/abc", s.AsidePath("abc"))
	assert.True(t, s.IsUnder("/sd/03/disc.gdi"))
	assert.False(t, s.IsUnder("/games/disc.gdi"))

	s.MenuKind = catalog.MenuNone
	assert.ErrorIs(t, s.Validate(), errors.ErrNotConfigured)
	assert.ErrorIs(t, media.NewSession(nil, "", catalog.GDMenu).Validate(), errors.ErrNotConfigured)
}
