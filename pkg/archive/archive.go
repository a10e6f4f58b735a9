// Package archive lists and extracts the compressed containers games are
// commonly distributed in (zip, 7z, rar and zstd-compressed tar).
package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/nwaples/rardecode/v2"
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
)

// Kind is an archive container type.
type Kind int

const (
	// Unknown is not an archive.
	Unknown Kind = iota
	// Zip is a .zip archive.
	Zip
	// SevenZip is a .7z archive.
	SevenZip
	// TarZstd is a .tar.zst archive.
	TarZstd
	// Rar is a .rar archive (RAR 1.5 through 5).
	Rar
)

// Extensions lists the recognized archive suffixes.
var Extensions = []string{".zip", ".7z", ".rar", ".tar.zst", ".tzst"}

// KindOf returns the archive kind of path from its suffix.
func KindOf(path string) Kind {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return Zip
	case strings.HasSuffix(lower, ".7z"):
		return SevenZip
	case strings.HasSuffix(lower, ".rar"):
		return Rar
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return TarZstd
	default:
		return Unknown
	}
}

// IsArchive reports whether path has a recognized archive suffix.
func IsArchive(path string) bool { return KindOf(path) != Unknown }

// Stem returns the archive file name without its archive suffix.
func Stem(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Lister lists archive contents as entry name to uncompressed size.
type Lister interface {
	List(ctx context.Context, path string) (map[string]int64, error)
}

// Extractor expands an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Archiver implements Lister and Extractor over an afero.Fs.
type Archiver struct {
	Fs afero.Fs
}

// New returns an Archiver over fs.
func New(fs afero.Fs) *Archiver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Archiver{Fs: fs}
}

type member struct {
	name string
	size int64
	dir  bool
	open func() (io.ReadCloser, error)
}

// List returns the files in the archive at path.
func (a *Archiver) List(ctx context.Context, path string) (map[string]int64, error) {
	out := make(map[string]int64)
	err := a.walk(ctx, path, func(m member) error {
		if !m.dir {
			out[m.name] = m.size
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Extract expands the archive at archivePath into destDir.
func (a *Archiver) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := a.Fs.MkdirAll(destDir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", destDir, err)
	}
	return a.walk(ctx, archivePath, func(m member) error {
		target, err := safeJoin(destDir, m.name)
		if err != nil {
			return err
		}
		if m.dir {
			return errors.WrapIO("create", target, a.Fs.MkdirAll(target, constants.DirPermissions))
		}
		return a.writeMember(m, target)
	})
}

func (a *Archiver) writeMember(m member, target string) error {
	if err := a.Fs.MkdirAll(filepath.Dir(target), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(target), err)
	}
	rc, err := m.open()
	if err != nil {
		return corrupt(m.name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := a.Fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return corrupt(m.name, err)
	}
	return errors.WrapIO("close", target, out.Close())
}

func (a *Archiver) walk(ctx context.Context, path string, fn func(member) error) error {
	f, err := a.Fs.Open(path)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return errors.WrapIO("stat", path, err)
	}

	switch KindOf(path) {
	case Zip:
		return walkZip(ctx, f, info.Size(), path, fn)
	case SevenZip:
		return walk7z(ctx, f, info.Size(), path, fn)
	case Rar:
		return walkRar(ctx, f, path, fn)
	case TarZstd:
		return walkTarZstd(ctx, f, path, fn)
	default:
		return errors.NewValidationError("path", path, "not an archive")
	}
}

func walkZip(ctx context.Context, ra io.ReaderAt, size int64, path string, fn func(member) error) error {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return corrupt(path, err)
	}
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(member{
			name: zf.Name,
			size: int64(zf.UncompressedSize64),
			dir:  zf.FileInfo().IsDir(),
			open: func() (io.ReadCloser, error) { return zf.Open() },
		}); err != nil {
			return err
		}
	}
	return nil
}

func walk7z(ctx context.Context, ra io.ReaderAt, size int64, path string, fn func(member) error) error {
	zr, err := sevenzip.NewReader(ra, size)
	if err != nil {
		return corrupt(path, err)
	}
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(member{
			name: zf.Name,
			size: int64(zf.UncompressedSize),
			dir:  zf.FileInfo().IsDir(),
			open: func() (io.ReadCloser, error) { return zf.Open() },
		}); err != nil {
			return err
		}
	}
	return nil
}

func walkRar(ctx context.Context, r io.Reader, path string, fn func(member) error) error {
	rr, err := rardecode.NewReader(r)
	if err != nil {
		return corrupt(path, err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return corrupt(path, err)
		}
		if err := fn(member{
			name: hdr.Name,
			size: hdr.UnPackedSize,
			dir:  hdr.IsDir,
			open: func() (io.ReadCloser, error) { return io.NopCloser(rr), nil },
		}); err != nil {
			return err
		}
	}
}

func walkTarZstd(ctx context.Context, r io.Reader, path string, fn func(member) error) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return corrupt(path, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return corrupt(path, err)
		}
		if hdr.Typeflag != tar.TypeReg && hdr.Typeflag != tar.TypeDir {
			continue
		}
		if err := fn(member{
			name: hdr.Name,
			size: hdr.Size,
			dir:  hdr.Typeflag == tar.TypeDir,
			open: func() (io.ReadCloser, error) { return io.NopCloser(tr), nil },
		}); err != nil {
			return err
		}
	}
}

// safeJoin joins name below dir and rejects paths that escape it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", errors.NewValidationError("entry", name, "archive entry escapes destination")
	}
	return target, nil
}

func corrupt(name string, err error) error {
	return errors.Join(errors.ErrCorruptArchive, errors.WrapIO("extract", name, err))
}
