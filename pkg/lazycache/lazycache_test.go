package lazycache_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/lazycache"
)

func write(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
}

func TestTryLoadMiss(t *testing.T) {
	ctx := context.Background()

	t.Run("name.txt absent", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/sd/02/disc.gdi", "gdi")
		write(t, fs, "/sd/02/serial.txt", "MK-1")

		e, err := lazycache.New(fs, catalog.DefaultLimits).TryLoad(ctx, "/sd/02", 2)
		assert.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("serial.txt empty", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/sd/02/disc.gdi", "gdi")
		write(t, fs, "/sd/02/name.txt", "Game")
		write(t, fs, "/sd/02/serial.txt", "  \n")

		e, err := lazycache.New(fs, catalog.DefaultLimits).TryLoad(ctx, "/sd/02", 2)
		assert.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("corrupt snapshot without sidecars", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/sd/02/disc.gdi", "gdi")
		write(t, fs, "/sd/02/item.json", "{not json")

		e, err := lazycache.New(fs, catalog.DefaultLimits).TryLoad(ctx, "/sd/02", 2)
		assert.NoError(t, err)
		assert.Nil(t, e)
	})
}

func TestTryLoadSidecars(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/sd/03/disc.gdi", "0123456789")
	write(t, fs, "/sd/03/track01.bin", "x")
	write(t, fs, "/sd/03/NAME.TXT", " Crazy Taxi \n")
	write(t, fs, "/sd/03/serial.txt", "MK-51035")

	e, err := lazycache.New(fs, catalog.DefaultLimits).TryLoad(context.Background(), "/sd/03", 3)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Crazy Taxi", e.Name())
	assert.Equal(t, "MK-51035", e.Serial())
	assert.Equal(t, 3, e.Slot())
	assert.Equal(t, "/sd/03", e.Folder())
	assert.Equal(t, []string{"disc.gdi"}, e.Files())
	assert.Equal(t, int64(10), e.Length())
	assert.Nil(t, e.Header())
}

func TestTryLoadNoImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/sd/04/name.txt", "Game")
	write(t, fs, "/sd/04/serial.txt", "MK-1")

	e, err := lazycache.New(fs, catalog.DefaultLimits).TryLoad(context.Background(), "/sd/04", 4)
	assert.Nil(t, e)
	assert.ErrorIs(t, err, errors.ErrNoImageFound)
}

func TestTryLoadCachedFailure(t *testing.T) {
	t.Run("error.txt with sidecars", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/sd/05/name.txt", "Game")
		write(t, fs, "/sd/05/serial.txt", "MK-1")
		write(t, fs, "/sd/05/error.txt", "bad track")

		e, err := lazycache.New(fs, catalog.DefaultLimits).TryLoad(context.Background(), "/sd/05", 5)
		require.NotNil(t, e)
		assert.ErrorIs(t, err, errors.ErrCachedFailure)
		assert.Equal(t, "bad track", e.Err())
		assert.Equal(t, catalog.LocationError, e.Location())
	})

	t.Run("snapshot carrying an error", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/sd/06/item.json", `{"Name":"Game","ErrorState":"checksum"}`)

		e, err := lazycache.New(fs, catalog.DefaultLimits).TryLoad(context.Background(), "/sd/06", 6)
		require.NotNil(t, e)
		assert.ErrorIs(t, err, errors.ErrCachedFailure)
		assert.Equal(t, "checksum", e.Err())
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := lazycache.New(fs, catalog.DefaultLimits)

	e := catalog.NewEntry(catalog.DefaultLimits)
	e.SetName("Shenmue")
	e.SetSerial("MK-51059")
	e.SetFiles([]string{"disc.gdi", "track01.bin", "track03.bin"})
	e.SetHeader(&bootheader.Header{Name: "SHENMUE", ProductNumber: "MK-51059", Disc: "1/4"})
	e.SetLength(99)
	e.SetSlot(9)

	write(t, fs, "/sd/07/disc.gdi", "gdi")
	require.NoError(t, c.WriteSnapshot(e, "/sd/07"))
	require.NoError(t, c.WriteSidecars(e, "/sd/07"))

	name, err := afero.ReadFile(fs, "/sd/07/name.txt")
	require.NoError(t, err)
	assert.Equal(t, "Shenmue", string(name))

	back, err := c.TryLoad(context.Background(), "/sd/07", 7)
	require.NoError(t, err)
	require.NotNil(t, back)
	assert.Equal(t, "Shenmue", back.Name())
	assert.Equal(t, e.Files(), back.Files())
	assert.Equal(t, "1/4", back.Disc())
	assert.Equal(t, int64(99), back.Length())
	assert.Equal(t, 7, back.Slot(), "the folder decides the slot")
}

func TestErrorFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := lazycache.New(fs, catalog.DefaultLimits)

	_, ok, err := c.ReadError("/x")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.WriteError("/x", "extract failed"))
	msg, ok, err := c.ReadError("/x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "extract failed", msg)

	require.NoError(t, c.ClearError("/x"))
	_, ok, _ = c.ReadError("/x")
	assert.False(t, ok)
	require.NoError(t, c.ClearError("/x"))
}

func TestTryLoadNeverWrites(t *testing.T) {
	base := afero.NewMemMapFs()
	write(t, base, "/sd/02/disc.gdi", "gdi")
	write(t, base, "/sd/02/name.txt", "Game")
	write(t, base, "/sd/02/serial.txt", "MK-1")

	e, err := lazycache.New(afero.NewReadOnlyFs(base), catalog.DefaultLimits).TryLoad(context.Background(), "/sd/02", 2)
	require.NoError(t, err)
	assert.NotNil(t, e)
}
