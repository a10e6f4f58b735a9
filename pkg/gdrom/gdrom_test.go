package gdrom

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/kdomanski/iso9660"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/optical"
)

// memImage serves sectors of an in-memory ISO placed at base.
type memImage struct {
	data []byte
	base int64
}

func (m memImage) Format() optical.Format  { return optical.GDI }
func (m memImage) Media() optical.Media    { return optical.GDROM }
func (m memImage) Tracks() []optical.Track { return nil }
func (m memImage) Close() error            { return nil }

func (m memImage) Partitions() []optical.Partition {
	return []optical.Partition{{Start: m.base, Sectors: int64(len(m.data) / constants.SectorSize)}}
}

func (m memImage) ReadSector(_ context.Context, lba int64) ([]byte, error) {
	off := (lba - m.base) * constants.SectorSize
	if off < 0 || off+constants.SectorSize > int64(len(m.data)) {
		return nil, errors.New("sector out of range")
	}
	return m.data[off : off+constants.SectorSize], nil
}

func buildImage(t *testing.T, files map[string]string) []byte {
	t.Helper()
	w, err := iso9660.NewWriter()
	require.NoError(t, err)
	defer func() { _ = w.Cleanup() }()
	for name, body := range files {
		require.NoError(t, w.AddFile(strings.NewReader(body), name))
	}
	var buf bytes.Buffer
	require.NoError(t, w.WriteTo(&buf, "TEST"))
	return buf.Bytes()
}

func TestRelocate(t *testing.T) {
	ctx := context.Background()
	data := buildImage(t, map[string]string{
		"LIST.INI":      "[GDMENU]\n",
		"DATA/ITEM.BIN": "payload",
	})

	before := memImage{data: append([]byte(nil), data...)}
	got, err := optical.ExtractFile(ctx, before, before.Partitions()[0], "DATA/ITEM.BIN")
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))

	sectors := uint32(len(data) / constants.SectorSize)
	require.NoError(t, relocate(data, constants.HighDensityLBA, constants.HighDensityLBA+sectors))

	img := memImage{data: data, base: constants.HighDensityLBA}
	part := img.Partitions()[0]

	pvd, err := optical.ReadPVD(ctx, img, part)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pvd.Root.Extent, int64(constants.HighDensityLBA))

	pvdOff := optical.PVDSector * constants.SectorSize
	assert.Equal(t, constants.HighDensityLBA+sectors, binary.LittleEndian.Uint32(data[pvdOff+optical.PVDVolumeSpaceLE:]))
	assert.Equal(t, constants.HighDensityLBA+sectors, binary.BigEndian.Uint32(data[pvdOff+optical.PVDVolumeSpaceBE:]))

	t.Run("root file", func(t *testing.T) {
		got, err := optical.ExtractFile(ctx, img, part, "list.ini")
		require.NoError(t, err)
		assert.Equal(t, "[GDMENU]\n", string(got))
	})

	t.Run("nested file", func(t *testing.T) {
		got, err := optical.ExtractFile(ctx, img, part, "DATA/ITEM.BIN")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(got))
	})

	t.Run("not an image", func(t *testing.T) {
		assert.Error(t, relocate(make([]byte, 64), 1, 1))
		assert.Error(t, relocate(make([]byte, 20*constants.SectorSize), 1, 1))
	})
}

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(path[:strings.LastIndex(path, "/")], 0o755))
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func ipBin(name string) []byte {
	block := bootheader.Encode(bootheader.Header{Name: name, ProductNumber: "MENU", Disc: "1/1", Region: "JUE"})
	out := make([]byte, systemAreaSectors*constants.SectorSize)
	copy(out, block)
	return out
}

func TestBuildGDROM(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/work/data/1ST_READ.BIN", []byte("boot"))
	writeFile(t, fs, "/work/data/LIST.INI", []byte("[GDMENU]\n01.name=GDMENU\n"))
	writeFile(t, fs, "/work/low/LIST.INI", []byte("[GDMENU]\n"))
	writeFile(t, fs, "/work/IP.BIN", ipBin("GDMENU"))
	writeFile(t, fs, "/work/gdi/track02.raw", make([]byte, 4*constants.RawSectorSize))

	b := NewNativeBuilder(fs, "GDMENU", true)

	first, err := b.CreateFirstTrack(ctx, "/work/gdi/track01.iso", []string{"/work/low/LIST.INI"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, int64(0), first.LBA)
	assert.Positive(t, first.Sectors)

	high, err := b.BuildGDROM(ctx, "/work/data", "/work/IP.BIN", nil, "/work/gdi")
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, int64(constants.HighDensityLBA), high[0].LBA)
	assert.Equal(t, DataTrackFile, high[0].File)

	audio, err := AudioTrack(fs, first, "/work/gdi/track02.raw")
	require.NoError(t, err)
	assert.Equal(t, first.Sectors+constants.PregapSectors, audio.LBA)
	assert.Equal(t, int64(4), audio.Sectors)

	gdiPath := "/work/gdi/disc.gdi"
	require.NoError(t, b.UpdateGdiFile(append([]Track{first, audio}, high...), gdiPath))

	text, err := afero.ReadFile(fs, gdiPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "3\n1 0 4 2048 track01.iso 0\n"))
	assert.Contains(t, string(text), "3 45000 4 2048 track03.iso 0")

	img, err := optical.NewNativeReader(fs).Open(ctx, gdiPath)
	require.NoError(t, err)
	defer func() { _ = img.Close() }()

	parts := img.Partitions()
	require.Len(t, parts, 2)

	sector, err := img.ReadSector(ctx, constants.HighDensityLBA)
	require.NoError(t, err)
	h, err := bootheader.Decode(sector)
	require.NoError(t, err)
	assert.Equal(t, "GDMENU", h.Name)

	list, err := optical.ExtractFile(ctx, img, parts[1], "LIST.INI")
	require.NoError(t, err)
	assert.Equal(t, "[GDMENU]\n01.name=GDMENU\n", string(list))

	low, err := optical.ExtractFile(ctx, img, parts[0], "LIST.INI")
	require.NoError(t, err)
	assert.Equal(t, "[GDMENU]\n", string(low))
}

func TestBuildGDROMRejectsAudio(t *testing.T) {
	b := NewNativeBuilder(afero.NewMemMapFs(), "GDMENU", true)
	_, err := b.BuildGDROM(context.Background(), "/data", "/IP.BIN", []string{"track04.raw"}, "/out")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestUpdateGdiFileKeepsTracks(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/gdi/disc.gdi", []byte("3\n1 0 4 2048 track01.iso 0\n2 750 0 2352 track02.raw 0\n3 45000 4 2048 track03.iso 0\n"))

	b := NewNativeBuilder(fs, "GDMENU", true)
	require.NoError(t, b.UpdateGdiFile([]Track{{Number: 2, LBA: 310, Type: TypeAudio, SectorSize: constants.RawSectorSize, File: AudioTrackFile}}, "/gdi/disc.gdi"))

	entries, err := optical.ReadGDI(fs, "/gdi/disc.gdi")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(0), entries[0].LBA)
	assert.Equal(t, int64(310), entries[1].LBA)
	assert.Equal(t, "track03.iso", entries[2].File)
}
