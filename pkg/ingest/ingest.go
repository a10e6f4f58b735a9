// Package ingest turns a folder, image file or archive into a catalog entry
// by locating the game payload and decoding its boot header.
//
// Uncompressed images go through two stages. The native optical reader is
// tried first; when it cannot open the image or yields no header, the raw
// files are searched for the boot header marker instead.
package ingest

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/agentstation/gdcard/pkg/archive"
	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/media"
	"github.com/agentstation/gdcard/pkg/optical"
	"github.com/agentstation/gdcard/pkg/pathops"
	"github.com/agentstation/gdcard/pkg/psxdb"
)

// tosecTags matches the bracketed tag suffix of TOSEC style file names,
// e.g. "Rez (2001)(Sega)(PAL)[!]".
var tosecTags = regexp.MustCompile(`\s*[\(\[].*$`)

// StripTags removes a TOSEC style tag suffix from name.
func StripTags(name string) string {
	if loc := tosecTags.FindStringIndex(name); loc != nil {
		return name[:loc[0]]
	}
	return name
}

// Ingestor creates catalog entries. It never writes to the filesystem.
type Ingestor struct {
	session *media.Session
	ops     *pathops.Ops
	reader  optical.Reader
	lister  archive.Lister
	db      *psxdb.DB
}

// New returns an ingestor for session.
func New(session *media.Session, opts ...Option) *Ingestor {
	in := &Ingestor{
		session: session,
		ops:     session.Ops(),
		reader:  optical.NewNativeReader(session.Fs),
		lister:  archive.New(session.Fs),
		db:      psxdb.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest builds an entry from a folder or a single file.
func (in *Ingestor) Ingest(ctx context.Context, path string) (*catalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = logging.WithPath(ctx, path)
	logger := logging.FromContext(ctx)

	folder, files, err := in.candidates(path)
	if err != nil {
		return nil, err
	}

	entry := catalog.NewEntry(in.session.Limits)
	entry.SetFolder(folder)
	entry.SetFormat(catalog.Uncompressed)

	image, archived, err := in.locate(ctx, folder, files, entry)
	if err != nil {
		return nil, err
	}

	var header *bootheader.Header
	if archived {
		header = entry.Header()
	} else {
		format, _ := optical.FormatOf(image)
		res := in.native(ctx, image, format)
		if res.err != nil {
			if errors.IsCanceled(res.err) {
				return nil, res.err
			}
			logger.Debug().Err(res.err).Str("format", format.String()).Msg("native reader failed, searching raw files")
			second := in.manual(ctx, image, format)
			if second.err != nil {
				return nil, failure(image, format, res.err, second.err)
			}
			res = second
		}
		header = res.header
		entry.SetFiles(res.files)
		entry.SetHeader(header)
		size, err := in.ops.TotalSize(joinAll(folder, entry.Files()))
		if err != nil {
			return nil, err
		}
		entry.SetLength(size)
	}

	entry.SetName(header.Name)
	entry.SetSerial(header.ProductNumber)
	if err := in.applySidecars(folder, entry); err != nil {
		return nil, err
	}

	if in.session.IsUnder(folder) {
		if n, ok := media.ParseSlotDir(filepath.Base(folder)); ok {
			entry.SetSlot(n)
		}
	}

	logger.Debug().
		Str("name", entry.Name()).
		Str("serial", entry.Serial()).
		Str("disc", entry.Disc()).
		Msg("ingested")
	return entry, nil
}

// candidates resolves path into its folder and the files to consider.
func (in *Ingestor) candidates(path string) (string, []string, error) {
	info, err := in.ops.Fs.Stat(path)
	if err != nil {
		return "", nil, errors.WrapIO("stat", path, err)
	}
	if !info.IsDir() {
		return filepath.Dir(path), []string{path}, nil
	}
	files, err := in.ops.ListFiles(path)
	if err != nil {
		return "", nil, err
	}
	return path, files, nil
}

// locate finds the primary image among files. When the only image is still
// packed inside an archive, entry is filled in as an archived entry and
// archived is true.
func (in *Ingestor) locate(ctx context.Context, folder string, files []string, entry *catalog.Entry) (image string, archived bool, err error) {
	for _, f := range files {
		if optical.IsImage(f) {
			return f, false, nil
		}
	}

	var packed string
	for _, f := range files {
		if archive.IsArchive(f) {
			packed = f
			break
		}
	}
	if packed == "" {
		return "", false, errors.NewImageError(folder, "", "no supported image or archive found", nil)
	}

	contents, err := in.lister.List(ctx, packed)
	if err != nil {
		return "", false, err
	}
	inner := ""
	for _, name := range sortedKeys(contents) {
		if optical.IsImage(name) {
			inner = name
			break
		}
	}
	if inner == "" {
		return "", false, errors.NewImageError(packed, "", "archive holds no supported image", nil)
	}

	// Already extracted next to the archive.
	if extracted := filepath.Join(folder, filepath.Base(filepath.FromSlash(inner))); in.ops.FileExists(extracted) {
		return extracted, false, nil
	}

	var total int64
	for _, size := range contents {
		total += size
	}
	name := StripTags(archive.Stem(packed))
	entry.SetFiles([]string{filepath.Base(packed)})
	entry.SetFormat(catalog.Archived)
	entry.SetSourcePath(packed)
	entry.SetLength(total)
	entry.SetHeader(bootheader.Provisional(name))
	return packed, true, nil
}

// native is stage one: the optical reader.
func (in *Ingestor) native(ctx context.Context, image string, format optical.Format) stageResult {
	img, err := in.reader.Open(ctx, image)
	if err != nil {
		return stageResult{err: err}
	}
	defer func() { _ = img.Close() }()

	h, err := readHeader(ctx, img, strategyFor(format), in.db)
	if err != nil {
		return stageResult{err: err}
	}

	files := []string{filepath.Base(image)}
	for _, t := range img.Tracks() {
		files = append(files, t.File, t.Subchannel)
	}
	return stageResult{header: h, files: files}
}

// manual is stage two: a marker search over the raw files.
func (in *Ingestor) manual(ctx context.Context, image string, format optical.Format) stageResult {
	search, files, err := strategyFor(format).dataFiles(in.ops, image)
	if err != nil {
		return stageResult{err: err}
	}

	err = errors.NewParseError(format.String(), image, "no data file to search", errors.ErrNotFound)
	for _, data := range search {
		var h *bootheader.Header
		h, err = in.findIn(ctx, data)
		if err == nil {
			return stageResult{header: h, files: files}
		}
		if errors.IsCanceled(err) {
			break
		}
	}
	return stageResult{err: err}
}

func (in *Ingestor) findIn(ctx context.Context, path string) (*bootheader.Header, error) {
	f, err := in.ops.Fs.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	h, _, err := bootheader.Find(ctx, f)
	return h, err
}

// applySidecars lets name.txt and serial.txt override the decoded values.
func (in *Ingestor) applySidecars(folder string, entry *catalog.Entry) error {
	if name, err := in.ops.ReadTextIfExists(filepath.Join(folder, constants.NameFile)); err != nil {
		return err
	} else if name != "" {
		entry.SetName(name)
	}
	if serial, err := in.ops.ReadTextIfExists(filepath.Join(folder, constants.SerialFile)); err != nil {
		return err
	} else if serial != "" {
		entry.SetSerial(serial)
	}
	return nil
}

// ReadDiscFile extracts name from the filesystem of the header partition of
// the image at path. It returns nil, nil when the file is absent.
func (in *Ingestor) ReadDiscFile(ctx context.Context, path, name string) ([]byte, error) {
	format, ok := optical.FormatOf(path)
	if !ok {
		return nil, errors.WrapImage(path, "", errors.ErrUnsupportedFormat)
	}
	img, err := in.reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = img.Close() }()

	parts := img.Partitions()
	part, named, err := strategyFor(format).headerPartition(parts)
	if err != nil {
		return nil, err
	}
	if named {
		return optical.ExtractFile(ctx, img, part, name)
	}
	for i := len(parts) - 1; i >= 0; i-- {
		if _, err := headerAt(ctx, img, parts[i]); err == nil {
			return optical.ExtractFile(ctx, img, parts[i], name)
		}
	}
	return nil, nil
}

// failure picks the error reported when both stages fail. A missing
// referenced file is reported as such.
func failure(image string, format optical.Format, first, second error) error {
	for _, err := range []error{second, first} {
		var missing *errors.MissingFileError
		if errors.As(err, &missing) {
			return missing
		}
	}
	return errors.NewImageError(image, format.String(), "no boot header found", errors.Join(first, second))
}

func joinAll(folder string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(folder, n)
	}
	return out
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Prefer the shallowest match, then name order.
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "/"), strings.Count(keys[j], "/")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})
	return keys
}
