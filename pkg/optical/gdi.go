package optical

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/errors"
)

// gdiLine matches "number lba type sectorsize filename offset". The file
// name may be quoted when it contains spaces.
var gdiLine = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(?:"([^"]+)"|(\S+))\s+(-?\d+)\s*$`)

// GDI track types.
const (
	gdiAudio = 0
	gdiData  = 4
)

// GDIEntry is one parsed line of a .gdi descriptor.
type GDIEntry struct {
	Number     int
	LBA        int64
	Type       int
	SectorSize int
	File       string
	Offset     int64
}

// ParseGDI parses a .gdi descriptor. The first line holds the track count;
// lines that do not match the track pattern are skipped.
func ParseGDI(r io.Reader) ([]GDIEntry, error) {
	sc := bufio.NewScanner(r)
	var entries []GDIEntry
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		m := gdiLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		file := m[5]
		if file == "" {
			file = m[6]
		}
		e := GDIEntry{File: file}
		e.Number, _ = strconv.Atoi(m[1])
		e.LBA, _ = strconv.ParseInt(m[2], 10, 64)
		e.Type, _ = strconv.Atoi(m[3])
		e.SectorSize, _ = strconv.Atoi(m[4])
		e.Offset, _ = strconv.ParseInt(m[7], 10, 64)
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapParse("gdi", "", err)
	}
	return entries, nil
}

// FormatGDI renders entries back into descriptor text.
func FormatGDI(entries []GDIEntry) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(entries)))
	b.WriteString("\n")
	for _, e := range entries {
		file := e.File
		if strings.ContainsAny(file, " \t") {
			file = strconv.Quote(file)
		}
		b.WriteString(strings.Join([]string{
			strconv.Itoa(e.Number),
			strconv.FormatInt(e.LBA, 10),
			strconv.Itoa(e.Type),
			strconv.Itoa(e.SectorSize),
			file,
			strconv.FormatInt(e.Offset, 10),
		}, " "))
		b.WriteString("\n")
	}
	return b.String()
}

// ReadGDI parses the descriptor at path.
func ReadGDI(fs afero.Fs, path string) ([]GDIEntry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	entries, err := ParseGDI(f)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewParseError("gdi", path, "no tracks", nil)
	}
	return entries, nil
}

func openGDI(_ context.Context, fs afero.Fs, path string) (Image, error) {
	entries, err := ReadGDI(fs, path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	tracks := make([]Track, 0, len(entries))
	for _, e := range entries {
		info, err := fs.Stat(filepath.Join(dir, e.File))
		if err != nil {
			return nil, errors.NewMissingFileError(e.File, filepath.Base(path))
		}
		if e.SectorSize <= 0 {
			return nil, errors.NewParseError("gdi", path, "invalid sector size", nil)
		}
		t := Track{
			Number:     e.Number,
			File:       e.File,
			Start:      e.LBA,
			Sectors:    info.Size() / int64(e.SectorSize),
			SectorSize: e.SectorSize,
			Audio:      e.Type == gdiAudio,
		}
		if e.Type == gdiData {
			t.Mode = 1
		}
		tracks = append(tracks, t)
	}
	return newTrackImage(fs, dir, GDI, GDROM, tracks), nil
}
