package optical

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
)

// CCDTrack is one [TRACK n] section of a CloneCD descriptor.
type CCDTrack struct {
	Number int
	Mode   int
	Index1 int64
}

// ParseCCD reads the track sections of a CloneCD descriptor.
func ParseCCD(r io.Reader) ([]CCDTrack, error) {
	sc := bufio.NewScanner(r)
	var tracks []CCDTrack
	var cur *CCDTrack
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.ToUpper(strings.Trim(line, "[]"))
			cur = nil
			if num, ok := strings.CutPrefix(section, "TRACK "); ok {
				n, err := strconv.Atoi(strings.TrimSpace(num))
				if err != nil {
					return nil, errors.NewParseError("ccd", "", "invalid track section "+line, err)
				}
				tracks = append(tracks, CCDTrack{Number: n, Index1: -1})
				cur = &tracks[len(tracks)-1]
			}
			continue
		}
		if cur == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "MODE":
			cur.Mode, _ = strconv.Atoi(value)
		case "INDEX 1":
			cur.Index1, _ = strconv.ParseInt(value, 10, 64)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapParse("ccd", "", err)
	}
	return tracks, nil
}

// CompanionFiles returns the data and subchannel files of a CloneCD descriptor.
func CompanionFiles(ccdPath string) (img, sub string) {
	base := strings.TrimSuffix(ccdPath, filepath.Ext(ccdPath))
	return base + ".img", base + ".sub"
}

func openCCD(_ context.Context, fs afero.Fs, path string) (Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	parsed, err := ParseCCD(f)
	_ = f.Close()
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, errors.NewParseError("ccd", path, "no tracks", nil)
	}

	img, sub := CompanionFiles(path)
	info, err := fs.Stat(img)
	if err != nil {
		return nil, errors.NewMissingFileError(filepath.Base(img), filepath.Base(path))
	}
	subName := ""
	if _, err := fs.Stat(sub); err == nil {
		subName = filepath.Base(sub)
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Index1 < parsed[j].Index1 })
	total := info.Size() / constants.RawSectorSize
	media := CDROM
	tracks := make([]Track, 0, len(parsed))
	for i, p := range parsed {
		if p.Index1 < 0 {
			return nil, errors.NewParseError("ccd", path, "track without INDEX 1", nil)
		}
		end := total
		if i+1 < len(parsed) {
			end = parsed[i+1].Index1
		}
		if p.Mode == 2 {
			media = CDROMXA
		}
		tracks = append(tracks, Track{
			Number:     p.Number,
			File:       filepath.Base(img),
			Subchannel: subName,
			Start:      p.Index1,
			Sectors:    end - p.Index1,
			SectorSize: constants.RawSectorSize,
			Offset:     p.Index1 * constants.RawSectorSize,
			Audio:      p.Mode == 0,
			Mode:       p.Mode,
		})
	}
	return newTrackImage(fs, filepath.Dir(path), CCD, media, tracks), nil
}
