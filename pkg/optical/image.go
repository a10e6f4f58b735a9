package optical

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
)

// Track is one track of an image.
type Track struct {
	Number     int
	File       string // base name of the file holding the track
	Subchannel string // base name of the subchannel file, if any
	Start      int64  // first LBA
	Sectors    int64  // length in sectors
	SectorSize int    // bytes per sector in File
	Offset     int64  // byte offset of Start within File
	Audio      bool
	Mode       int // 0 audio, 1 or 2 data
}

// Partition is a contiguous data area a filesystem can live in.
type Partition struct {
	Sequence int
	Track    int
	Start    int64
	Sectors  int64
}

// Image is an opened optical image.
type Image interface {
	Format() Format
	Media() Media
	Tracks() []Track
	Partitions() []Partition
	// ReadSector returns the 2048 bytes of user data at lba.
	ReadSector(ctx context.Context, lba int64) ([]byte, error)
	Close() error
}

// Reader opens images.
type Reader interface {
	Open(ctx context.Context, path string) (Image, error)
}

// trackImage implements Image over a list of tracks stored in files next to
// the descriptor.
type trackImage struct {
	fs     afero.Fs
	dir    string
	format Format
	media  Media
	tracks []Track
	files  map[string]afero.File
}

func newTrackImage(fs afero.Fs, dir string, format Format, media Media, tracks []Track) *trackImage {
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Start < tracks[j].Start })
	return &trackImage{
		fs:     fs,
		dir:    dir,
		format: format,
		media:  media,
		tracks: tracks,
		files:  make(map[string]afero.File),
	}
}

func (im *trackImage) Format() Format  { return im.format }
func (im *trackImage) Media() Media    { return im.media }
func (im *trackImage) Tracks() []Track { return append([]Track(nil), im.tracks...) }

func (im *trackImage) Partitions() []Partition {
	var parts []Partition
	for _, t := range im.tracks {
		if t.Audio {
			continue
		}
		parts = append(parts, Partition{
			Sequence: len(parts),
			Track:    t.Number,
			Start:    t.Start,
			Sectors:  t.Sectors,
		})
	}
	return parts
}

func (im *trackImage) ReadSector(ctx context.Context, lba int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := im.trackAt(lba)
	if !ok {
		return nil, errors.NewValidationError("lba", lba, "sector outside every track")
	}
	if t.Audio {
		return nil, errors.NewValidationError("lba", lba, "sector belongs to an audio track")
	}

	f, err := im.open(t.File)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, t.SectorSize)
	pos := t.Offset + (lba-t.Start)*int64(t.SectorSize)
	if _, err := f.ReadAt(raw, pos); err != nil && err != io.EOF {
		return nil, errors.WrapIO("read", t.File, err)
	}
	return UserData(raw)
}

// Close closes every track file opened so far.
func (im *trackImage) Close() error {
	var errs []error
	for name, f := range im.files {
		if err := f.Close(); err != nil {
			errs = append(errs, errors.WrapIO("close", name, err))
		}
	}
	im.files = make(map[string]afero.File)
	return errors.Join(errs...)
}

func (im *trackImage) trackAt(lba int64) (Track, bool) {
	for i := len(im.tracks) - 1; i >= 0; i-- {
		t := im.tracks[i]
		if lba >= t.Start && (t.Sectors <= 0 || lba < t.Start+t.Sectors) {
			return t, true
		}
	}
	return Track{}, false
}

func (im *trackImage) open(name string) (afero.File, error) {
	if f, ok := im.files[name]; ok {
		return f, nil
	}
	f, err := im.fs.OpenFile(filepath.Join(im.dir, name), os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.WrapIO("open", name, err)
	}
	im.files[name] = f
	return f, nil
}

// UserData strips the sync, header and subheader of a raw sector and returns
// the 2048 bytes of user data.
func UserData(raw []byte) ([]byte, error) {
	switch len(raw) {
	case constants.SectorSize:
		return raw, nil
	case constants.RawSectorSize:
		switch raw[15] {
		case 2:
			return raw[24 : 24+constants.SectorSize], nil
		default:
			return raw[16 : 16+constants.SectorSize], nil
		}
	case 2336:
		return raw[8 : 8+constants.SectorSize], nil
	default:
		return nil, errors.NewValidationError("sector_size", len(raw), "unsupported sector size")
	}
}
