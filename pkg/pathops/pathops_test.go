package pathops_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/pathops"
)

func newOps(t *testing.T) *pathops.Ops {
	t.Helper()
	return pathops.New(afero.NewMemMapFs())
}

func TestListFiles(t *testing.T) {
	ops := newOps(t)
	require.NoError(t, ops.WriteText("/g/b.gdi", "x"))
	require.NoError(t, ops.WriteText("/g/a.bin", "x"))
	require.NoError(t, ops.WriteText("/g/.DS_Store", "x"))
	require.NoError(t, ops.MkdirAll("/g/sub"))

	files, err := ops.ListFiles("/g")
	require.NoError(t, err)
	assert.Equal(t, []string{"/g/a.bin", "/g/b.gdi"}, files)

	dirs, err := ops.ListDirs("/g")
	require.NoError(t, err)
	assert.Equal(t, []string{"/g/sub"}, dirs)

	_, err = ops.ListFiles("/missing")
	assert.Error(t, err)
}

func TestReadWriteText(t *testing.T) {
	ops := newOps(t)

	require.NoError(t, ops.WriteText("/sd/02/name.txt", "  Crazy Taxi \n"))
	got, err := ops.ReadText("/sd/02/name.txt")
	require.NoError(t, err)
	assert.Equal(t, "Crazy Taxi", got)

	got, err = ops.ReadTextIfExists("/sd/02/serial.txt")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMoveAndCopy(t *testing.T) {
	ctx := context.Background()
	ops := newOps(t)
	require.NoError(t, ops.WriteText("/sd/02/disc.gdi", "gdi"))
	require.NoError(t, ops.WriteText("/sd/02/track01.bin", "bin"))

	require.NoError(t, ops.CopyDir(ctx, "/sd/02", "/tmp/copy"))
	assert.True(t, ops.FileExists("/tmp/copy/track01.bin"))

	require.NoError(t, ops.Move(ctx, "/sd/02", "/sd/aside"))
	assert.False(t, ops.Exists("/sd/02"))
	assert.True(t, ops.FileExists("/sd/aside/disc.gdi"))

	size, err := ops.TotalSize([]string{"/sd/aside/disc.gdi", "/sd/aside/track01.bin"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)

	require.NoError(t, ops.RemoveAll("/sd/aside"))
	assert.False(t, ops.DirExists("/sd/aside"))
	assert.NoError(t, ops.Remove("/sd/aside/none"))
}

func TestCopyDirCanceled(t *testing.T) {
	ops := newOps(t)
	require.NoError(t, ops.WriteText("/src/a", "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ops.CopyDir(ctx, "/src", "/dst"), context.Canceled)
}

func TestHelpers(t *testing.T) {
	f, ok := pathops.FindFold([]string{"/a/SYSTEM.CNF", "/a/x"}, "system.cnf")
	assert.True(t, ok)
	assert.Equal(t, "/a/SYSTEM.CNF", f)

	_, ok = pathops.FindFold(nil, "x")
	assert.False(t, ok)

	assert.True(t, pathops.HasExt("disc.GDI", ".gdi"))
	assert.Equal(t, "Game (USA)", pathops.Stem("/x/Game (USA).7z"))

	root := filepath.FromSlash("/sd")
	assert.True(t, pathops.IsUnder(root, filepath.FromSlash("/sd/02")))
	assert.True(t, pathops.IsUnder(root, root))
	assert.False(t, pathops.IsUnder(root, filepath.FromSlash("/sdcard/02")))
	assert.False(t, pathops.IsUnder("", "/sd"))
}
