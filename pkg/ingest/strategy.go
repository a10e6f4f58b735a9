package ingest

import (
	"context"
	"path/filepath"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/optical"
	"github.com/agentstation/gdcard/pkg/pathops"
	"github.com/agentstation/gdcard/pkg/psxdb"
)

// strategy knows where a format keeps its boot header.
type strategy interface {
	// headerPartition picks the partition holding the header of an opened
	// image. Formats that scan every partition return named=false.
	headerPartition(parts []optical.Partition) (part optical.Partition, named bool, err error)
	// detectForeign reports whether the format may carry PlayStation discs.
	detectForeign() bool
	// dataFiles returns the raw files a marker search should look at, in
	// order, plus every file that belongs to the image.
	dataFiles(ops *pathops.Ops, primary string) (search []string, files []string, err error)
}

// strategyFor returns the parse strategy of f.
func strategyFor(f optical.Format) strategy {
	switch f {
	case optical.GDI:
		return gdiStrategy{}
	case optical.CCD:
		return companionStrategy{data: ".img", sidecar: ".sub"}
	case optical.MDS:
		return companionStrategy{data: ".mdf"}
	case optical.CDI:
		return selfStrategy{}
	}
	panic("ingest: unhandled format " + f.String())
}

// gdiStrategy reads the high-density data track: the first data track is the
// low-density area and is skipped.
type gdiStrategy struct{}

func (gdiStrategy) headerPartition(parts []optical.Partition) (optical.Partition, bool, error) {
	if len(parts) < 2 {
		return optical.Partition{}, true, errors.NewParseError("gdi", "", "no high-density data track", nil)
	}
	return parts[1], true, nil
}

func (gdiStrategy) detectForeign() bool { return false }

func (gdiStrategy) dataFiles(ops *pathops.Ops, primary string) ([]string, []string, error) {
	entries, err := optical.ReadGDI(ops.Fs, primary)
	if err != nil {
		return nil, nil, err
	}
	dir := filepath.Dir(primary)
	files := []string{filepath.Base(primary)}
	var data []string
	for _, e := range entries {
		files = append(files, e.File)
		if !pathops.HasExt(e.File, ".raw") {
			data = append(data, filepath.Join(dir, e.File))
		}
	}
	if len(data) > 0 {
		data = data[1:]
	}
	return data, files, nil
}

// companionStrategy covers descriptors whose sectors live in a sibling file
// with the same stem.
type companionStrategy struct {
	data    string
	sidecar string
}

func (companionStrategy) headerPartition([]optical.Partition) (optical.Partition, bool, error) {
	return optical.Partition{}, false, nil
}

func (companionStrategy) detectForeign() bool { return true }

func (s companionStrategy) dataFiles(ops *pathops.Ops, primary string) ([]string, []string, error) {
	stem := primary[:len(primary)-len(filepath.Ext(primary))]
	data := stem + s.data
	if !ops.FileExists(data) {
		return nil, nil, errors.NewMissingFileError(filepath.Base(data), filepath.Base(primary))
	}
	files := []string{filepath.Base(primary), filepath.Base(data)}
	if s.sidecar != "" && ops.FileExists(stem+s.sidecar) {
		files = append(files, filepath.Base(stem+s.sidecar))
	}
	return []string{data}, files, nil
}

// selfStrategy covers single-file images searched directly.
type selfStrategy struct{}

func (selfStrategy) headerPartition([]optical.Partition) (optical.Partition, bool, error) {
	return optical.Partition{}, false, nil
}

func (selfStrategy) detectForeign() bool { return true }

func (selfStrategy) dataFiles(_ *pathops.Ops, primary string) ([]string, []string, error) {
	return []string{primary}, []string{filepath.Base(primary)}, nil
}

// stageResult is the outcome of one parse stage.
type stageResult struct {
	header *bootheader.Header
	files  []string
	err    error
}

// readHeader reads the boot header of an opened image following s.
func readHeader(ctx context.Context, img optical.Image, s strategy, db *psxdb.DB) (*bootheader.Header, error) {
	parts := img.Partitions()
	if len(parts) == 0 {
		return nil, errors.NewParseError(img.Format().String(), "", "image has no data partitions", nil)
	}

	part, named, err := s.headerPartition(parts)
	if err != nil {
		return nil, err
	}
	if named {
		return headerAt(ctx, img, part)
	}

	if s.detectForeign() && img.Media() == optical.CDROMXA {
		if h, isPS, err := playStationHeader(ctx, img, parts[0], db); isPS {
			return h, err
		}
	}

	var lastErr error
	for i := len(parts) - 1; i >= 0; i-- {
		h, err := headerAt(ctx, img, parts[i])
		if err == nil {
			return h, nil
		}
		if errors.IsCanceled(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func headerAt(ctx context.Context, img optical.Image, part optical.Partition) (*bootheader.Header, error) {
	sector, err := img.ReadSector(ctx, part.Start)
	if err != nil {
		return nil, err
	}
	return bootheader.Decode(sector)
}

// playStationHeader builds the header of a bleem! disc. isPS is false when
// the volume is not a PlayStation filesystem.
func playStationHeader(ctx context.Context, img optical.Image, part optical.Partition, db *psxdb.DB) (*bootheader.Header, bool, error) {
	pvd, err := optical.ReadPVD(ctx, img, part)
	if err != nil {
		return nil, false, nil
	}
	if pvd.ApplicationID != playStationID && pvd.SystemID != playStationID {
		return nil, false, nil
	}

	cnf, err := optical.ExtractFile(ctx, img, part, systemCnf)
	if err != nil {
		return nil, true, err
	}
	if cnf == nil {
		return nil, true, errors.NewParseError("iso9660", systemCnf, "file not found on disc", errors.ErrNotFound)
	}

	serial := psxdb.SerialFromSystemCnf(cnf)
	h := &bootheader.Header{
		Name:          serial,
		ProductNumber: serial,
		Region:        "JUE",
		VGA:           true,
		Disc:          "PS1",
		ReleaseDate:   psxdb.FallbackReleaseDate,
		Special:       bootheader.BleemGame,
	}
	if game, found := db.FindBySerial(serial); found {
		h.Name = game.Name
		h.ReleaseDate = psxdb.FormatReleaseDate(game.ReleaseDate)
	}
	return h, true, nil
}

const (
	playStationID = "PLAYSTATION"
	systemCnf     = "SYSTEM.CNF"
)
