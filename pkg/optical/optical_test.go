package optical_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kdomanski/iso9660"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/optical"
)

// buildISO returns a cooked ISO9660 image holding files.
func buildISO(t *testing.T, files map[string]string) []byte {
	t.Helper()
	w, err := iso9660.NewWriter()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Cleanup() })

	for name, body := range files {
		require.NoError(t, w.AddFile(strings.NewReader(body), name))
	}
	var buf bytes.Buffer
	require.NoError(t, w.WriteTo(&buf, "TEST"))
	return buf.Bytes()
}

// rawMode2 wraps cooked sectors into 2352-byte mode 2 sectors.
func rawMode2(cooked []byte) []byte {
	var out bytes.Buffer
	for off := 0; off < len(cooked); off += 2048 {
		sector := make([]byte, 2352)
		sector[15] = 2
		copy(sector[24:], cooked[off:min(off+2048, len(cooked))])
		out.Write(sector)
	}
	return out.Bytes()
}

func TestFormatOf(t *testing.T) {
	f, ok := optical.FormatOf("/x/Disc.GDI")
	require.True(t, ok)
	assert.Equal(t, optical.GDI, f)
	assert.Equal(t, ".gdi", f.Ext())

	_, ok = optical.FormatOf("/x/disc.iso")
	assert.False(t, ok)
	assert.True(t, optical.IsImage("a.cdi"))
	assert.True(t, optical.IsImage("a.mds"))
	assert.True(t, optical.IsImage("a.ccd"))
}

func TestParseGDI(t *testing.T) {
	text := "3\n1 0 4 2352 track01.bin 0\n2 756 0 2352 track02.raw 0\n3 45000 4 2352 \"track 03.bin\" 0\n"
	entries, err := optical.ParseGDI(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "track01.bin", entries[0].File)
	assert.Equal(t, int64(756), entries[1].LBA)
	assert.Equal(t, 0, entries[1].Type)
	assert.Equal(t, "track 03.bin", entries[2].File)
	assert.Equal(t, int64(45000), entries[2].LBA)

	again, err := optical.ParseGDI(strings.NewReader(optical.FormatGDI(entries)))
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestOpenGDI(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	low := bytes.Repeat([]byte{1}, 2048*4)
	high := make([]byte, 2048*20)
	copy(high, "SEGA SEGAKATANA SEGA ENTERPRISES")
	require.NoError(t, afero.WriteFile(fs, "/g/track01.iso", low, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/g/track02.raw", make([]byte, 2352*2), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/g/track03.iso", high, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/g/disc.gdi", []byte(
		"3\n1 0 4 2048 track01.iso 0\n2 154 0 2352 track02.raw 0\n3 45000 4 2048 track03.iso 0\n"), 0o644))

	img, err := optical.NewNativeReader(fs).Open(ctx, "/g/disc.gdi")
	require.NoError(t, err)
	defer func() { _ = img.Close() }()

	assert.Equal(t, optical.GDROM, img.Media())
	assert.Len(t, img.Tracks(), 3)

	parts := img.Partitions()
	require.Len(t, parts, 2)
	assert.Equal(t, int64(45000), parts[1].Start)

	sector, err := img.ReadSector(ctx, parts[1].Start)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(sector, []byte("SEGA SEGAKATANA")))

	_, err = img.ReadSector(ctx, 154)
	assert.Error(t, err, "audio sectors are not readable as data")
}

func TestOpenGDIMissingTrack(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/g/disc.gdi", []byte("1\n1 0 4 2352 track01.bin 0\n"), 0o644))

	_, err := optical.NewNativeReader(fs).Open(context.Background(), "/g/disc.gdi")
	assert.ErrorIs(t, err, errors.ErrMissingFile)
}

func TestUnsupportedFormats(t *testing.T) {
	r := optical.NewNativeReader(afero.NewMemMapFs())
	for _, p := range []string{"/g/a.cdi", "/g/a.mds", "/g/a.iso"} {
		_, err := r.Open(context.Background(), p)
		assert.ErrorIs(t, err, errors.ErrUnsupportedFormat, p)
	}
}

func TestCCDWithISO(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	cooked := buildISO(t, map[string]string{"SYSTEM.CNF": "BOOT = cdrom:\\SLUS_005.94;1\r\nTCB = 4\r\n"})
	require.NoError(t, afero.WriteFile(fs, "/ps/game.img", rawMode2(cooked), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/ps/game.sub", []byte("sub"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/ps/game.ccd", []byte(
		"[CloneCD]\nVersion=3\n[TRACK 1]\nMODE=2\nINDEX 1=0\n"), 0o644))

	img, err := optical.NewNativeReader(fs).Open(ctx, "/ps/game.ccd")
	require.NoError(t, err)
	defer func() { _ = img.Close() }()

	assert.Equal(t, optical.CDROMXA, img.Media())
	tracks := img.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, "game.img", tracks[0].File)
	assert.Equal(t, "game.sub", tracks[0].Subchannel)

	part := img.Partitions()[0]
	pvd, err := optical.ReadPVD(ctx, img, part)
	require.NoError(t, err)
	assert.Equal(t, "TEST", pvd.VolumeID)

	data, err := optical.ExtractFile(ctx, img, part, "system.cnf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "BOOT = cdrom:"))

	missing, err := optical.ExtractFile(ctx, img, part, "0GDTEX.PVR")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCCDMissingImg(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ps/game.ccd", []byte("[TRACK 1]\nMODE=2\nINDEX 1=0\n"), 0o644))
	_, err := optical.NewNativeReader(fs).Open(context.Background(), "/ps/game.ccd")
	assert.ErrorIs(t, err, errors.ErrMissingFile)
}

func TestUserData(t *testing.T) {
	mode1 := make([]byte, 2352)
	mode1[15] = 1
	mode1[16] = 0xAB
	data, err := optical.UserData(mode1)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), data[0])

	_, err = optical.UserData(make([]byte, 100))
	assert.Error(t, err)
}
