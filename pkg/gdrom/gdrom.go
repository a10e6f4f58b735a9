// Package gdrom assembles the tracks of a bootable GD-ROM image: a
// low-density ISO9660 track at LBA 0 and a high-density data track at LBA
// 45000 whose system area carries the IP.BIN boot file.
package gdrom

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/kdomanski/iso9660"
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/optical"
)

// GDI track types.
const (
	TypeAudio = 0
	TypeData  = 4
)

// Default track file names.
const (
	FirstTrackFile = "track01.iso"
	AudioTrackFile = "track02.raw"
	DataTrackFile  = "track03.iso"
	DescriptorFile = "disc.gdi"
)

// systemAreaSectors is the number of leading sectors IP.BIN occupies.
const systemAreaSectors = 16

// Track is one track of a built image as it appears in disc.gdi.
type Track struct {
	Number     int
	LBA        int64
	Type       int
	SectorSize int
	File       string
	Sectors    int64
}

func (t Track) entry() optical.GDIEntry {
	return optical.GDIEntry{
		Number:     t.Number,
		LBA:        t.LBA,
		Type:       t.Type,
		SectorSize: t.SectorSize,
		File:       t.File,
	}
}

// Builder constructs GD-ROM tracks.
type Builder interface {
	// CreateFirstTrack writes the low-density data track holding files to out.
	CreateFirstTrack(ctx context.Context, out string, files []string) (Track, error)
	// BuildGDROM writes the high-density tracks for dataDir into outDir.
	BuildGDROM(ctx context.Context, dataDir, ipBin string, cdda []string, outDir string) ([]Track, error)
	// UpdateGdiFile merges tracks into the descriptor at gdiPath.
	UpdateGdiFile(tracks []Track, gdiPath string) error
}

// NativeBuilder writes tracks with an ISO9660 writer.
type NativeBuilder struct {
	Fs       afero.Fs
	VolumeID string
	// Truncate leaves the high-density track at its data size instead of
	// padding it to the end of the GD area.
	Truncate bool
}

var _ Builder = (*NativeBuilder)(nil)

// NewNativeBuilder returns a builder over fs.
func NewNativeBuilder(fs afero.Fs, volumeID string, truncate bool) *NativeBuilder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &NativeBuilder{Fs: fs, VolumeID: volumeID, Truncate: truncate}
}

// CreateFirstTrack puts every file in files at the root of a new ISO9660
// image written to out.
func (b *NativeBuilder) CreateFirstTrack(ctx context.Context, out string, files []string) (Track, error) {
	logger := logging.FromContext(ctx)

	w, err := iso9660.NewWriter()
	if err != nil {
		return Track{}, errors.WrapIO("create", out, err)
	}
	defer func() { _ = w.Cleanup() }()

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return Track{}, err
		}
		if err := b.addFile(w, f, filepath.Base(f)); err != nil {
			return Track{}, err
		}
	}

	data, err := b.render(w, out)
	if err != nil {
		return Track{}, err
	}
	if err := b.write(out, data, 0); err != nil {
		return Track{}, err
	}

	t := Track{
		Number:     1,
		LBA:        0,
		Type:       TypeData,
		SectorSize: constants.SectorSize,
		File:       filepath.Base(out),
		Sectors:    int64(len(data) / constants.SectorSize),
	}
	logger.Debug().Str("file", t.File).Int64("sectors", t.Sectors).Msg("wrote low-density track")
	return t, nil
}

// BuildGDROM writes track03.iso into outDir holding the tree at dataDir.
// Every extent is relocated to the high-density area and the system area
// is replaced by the contents of ipBin.
func (b *NativeBuilder) BuildGDROM(ctx context.Context, dataDir, ipBin string, cdda []string, outDir string) ([]Track, error) {
	if len(cdda) > 0 {
		return nil, errors.NewValidationError("cdda", len(cdda), "audio tracks are not supported")
	}
	logger := logging.FromContext(ctx)

	ip, err := afero.ReadFile(b.Fs, ipBin)
	if err != nil {
		return nil, errors.WrapIO("read", ipBin, err)
	}

	w, err := iso9660.NewWriter()
	if err != nil {
		return nil, errors.WrapIO("create", outDir, err)
	}
	defer func() { _ = w.Cleanup() }()

	err = afero.Walk(b.Fs, dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.WrapIO("walk", path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return errors.WrapIO("walk", path, err)
		}
		return b.addFile(w, path, filepath.ToSlash(rel))
	})
	if err != nil {
		return nil, err
	}

	out := filepath.Join(outDir, DataTrackFile)
	data, err := b.render(w, out)
	if err != nil {
		return nil, err
	}

	sectors := int64(len(data) / constants.SectorSize)
	if !b.Truncate && sectors < constants.HighDensitySectors {
		sectors = constants.HighDensitySectors
	}
	if err := relocate(data, constants.HighDensityLBA, uint32(constants.HighDensityLBA+sectors)); err != nil {
		return nil, errors.WrapParse("iso9660", out, err)
	}
	copy(data[:systemAreaSectors*constants.SectorSize], ip)

	if err := b.write(out, data, sectors*constants.SectorSize); err != nil {
		return nil, err
	}

	t := Track{
		Number:     3,
		LBA:        constants.HighDensityLBA,
		Type:       TypeData,
		SectorSize: constants.SectorSize,
		File:       DataTrackFile,
		Sectors:    sectors,
	}
	logger.Debug().Str("file", t.File).Int64("sectors", t.Sectors).Bool("truncated", b.Truncate).Msg("wrote high-density track")
	return []Track{t}, nil
}

// UpdateGdiFile rewrites gdiPath so that it lists tracks. Tracks already in
// the descriptor that tracks does not replace are kept.
func (b *NativeBuilder) UpdateGdiFile(tracks []Track, gdiPath string) error {
	byNumber := make(map[int]optical.GDIEntry)
	if ok, _ := afero.Exists(b.Fs, gdiPath); ok {
		existing, err := optical.ReadGDI(b.Fs, gdiPath)
		if err != nil && !errors.As(err, new(*errors.ParseError)) {
			return err
		}
		for _, e := range existing {
			byNumber[e.Number] = e
		}
	}
	for _, t := range tracks {
		byNumber[t.Number] = t.entry()
	}

	entries := make([]optical.GDIEntry, 0, len(byNumber))
	for _, e := range byNumber {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })

	return errors.WrapIO("write", gdiPath,
		afero.WriteFile(b.Fs, gdiPath, []byte(optical.FormatGDI(entries)), constants.FilePermissions))
}

// AudioTrack describes the low-density audio track stored at path, placed
// after first and its pregap.
func AudioTrack(fs afero.Fs, first Track, path string) (Track, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return Track{}, errors.NewMissingFileError(filepath.Base(path), DescriptorFile)
	}
	return Track{
		Number:     2,
		LBA:        first.LBA + first.Sectors + constants.PregapSectors,
		Type:       TypeAudio,
		SectorSize: constants.RawSectorSize,
		File:       filepath.Base(path),
		Sectors:    info.Size() / constants.RawSectorSize,
	}, nil
}

func (b *NativeBuilder) addFile(w *iso9660.ImageWriter, path, name string) error {
	f, err := b.Fs.Open(path)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := w.AddFile(f, name); err != nil {
		return errors.WrapIO("stage", path, err)
	}
	return nil
}

func (b *NativeBuilder) render(w *iso9660.ImageWriter, out string) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.WriteTo(&buf, b.VolumeID); err != nil {
		return nil, errors.WrapIO("build", out, err)
	}
	data := buf.Bytes()
	if rem := len(data) % constants.SectorSize; rem != 0 {
		data = append(data, make([]byte, constants.SectorSize-rem)...)
	}
	return data, nil
}

// write stores data at path and extends the file with zeros to size when
// size is larger than data.
func (b *NativeBuilder) write(path string, data []byte, size int64) error {
	if err := b.Fs.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	f, err := b.Fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		return errors.WrapIO("write", path, err)
	}
	if size > int64(len(data)) {
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return errors.WrapIO("write", path, err)
		}
	}
	return errors.WrapIO("close", path, f.Close())
}
