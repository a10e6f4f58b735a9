// Package pathops wraps the filesystem primitives the card layout needs
// (exists, move, copy, delete, read, write) over an afero.Fs so that every
// caller can run against the real disk or an in-memory tree.
package pathops

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
)

// Ops performs filesystem operations on Fs.
type Ops struct {
	Fs afero.Fs
}

// New returns Ops over fs, defaulting to the OS filesystem.
func New(fs afero.Fs) *Ops {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Ops{Fs: fs}
}

// Exists reports whether path exists.
func (o *Ops) Exists(path string) bool {
	_, err := o.Fs.Stat(path)
	return err == nil
}

// DirExists reports whether path is a directory.
func (o *Ops) DirExists(path string) bool {
	ok, err := afero.DirExists(o.Fs, path)
	return err == nil && ok
}

// FileExists reports whether path is a regular file.
func (o *Ops) FileExists(path string) bool {
	info, err := o.Fs.Stat(path)
	return err == nil && !info.IsDir()
}

// ListFiles returns the full paths of the regular files in dir, sorted by
// name. Hidden files (dot-prefixed) are skipped.
func (o *Ops) ListFiles(dir string) ([]string, error) {
	return o.list(dir, false)
}

// ListDirs returns the full paths of the subdirectories of dir, sorted by name.
func (o *Ops) ListDirs(dir string) ([]string, error) {
	return o.list(dir, true)
}

func (o *Ops) list(dir string, dirs bool) ([]string, error) {
	infos, err := afero.ReadDir(o.Fs, dir)
	if err != nil {
		return nil, errors.WrapIO("list", dir, err)
	}
	var out []string
	for _, info := range infos {
		if info.IsDir() != dirs || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(dir, info.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Move renames src to dst, falling back to copy and delete when the rename
// fails (different volumes).
func (o *Ops) Move(ctx context.Context, src, dst string) error {
	if err := o.MkdirAll(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := o.Fs.Rename(src, dst); err == nil {
		return nil
	}
	info, err := o.Fs.Stat(src)
	if err != nil {
		return errors.WrapIO("move", src, err)
	}
	if info.IsDir() {
		err = o.CopyDir(ctx, src, dst)
	} else {
		err = o.CopyFile(src, dst)
	}
	if err != nil {
		return err
	}
	return o.RemoveAll(src)
}

// CopyFile copies a single file, creating the destination directory.
func (o *Ops) CopyFile(src, dst string) error {
	in, err := o.Fs.Open(src)
	if err != nil {
		return errors.WrapIO("open", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := o.MkdirAll(filepath.Dir(dst)); err != nil {
		return err
	}
	out, err := o.Fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.WrapIO("copy", dst, err)
	}
	return errors.WrapIO("close", dst, out.Close())
}

// CopyDir copies a directory tree. Cancellation is checked between files.
func (o *Ops) CopyDir(ctx context.Context, src, dst string) error {
	return afero.Walk(o.Fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.WrapIO("walk", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.WrapIO("copy", path, err)
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return o.MkdirAll(target)
		}
		return o.CopyFile(path, target)
	})
}

// Remove deletes a single file. A missing file is not an error.
func (o *Ops) Remove(path string) error {
	if err := o.Fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("delete", path, err)
	}
	return nil
}

// RemoveAll deletes path and everything below it.
func (o *Ops) RemoveAll(path string) error {
	return errors.WrapIO("delete", path, o.Fs.RemoveAll(path))
}

// MkdirAll creates dir and its parents.
func (o *Ops) MkdirAll(dir string) error {
	return errors.WrapIO("create", dir, o.Fs.MkdirAll(dir, constants.DirPermissions))
}

// ReadText reads a text file and trims surrounding whitespace.
func (o *Ops) ReadText(path string) (string, error) {
	data, err := afero.ReadFile(o.Fs, path)
	if err != nil {
		return "", errors.WrapIO("read", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadTextIfExists returns the trimmed contents of path, or "" when it does not exist.
func (o *Ops) ReadTextIfExists(path string) (string, error) {
	if !o.FileExists(path) {
		return "", nil
	}
	return o.ReadText(path)
}

// WriteText writes text to path, creating its directory.
func (o *Ops) WriteText(path, text string) error {
	return o.WriteFile(path, []byte(text))
}

// WriteFile writes data to path, creating its directory.
func (o *Ops) WriteFile(path string, data []byte) error {
	if err := o.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	return errors.WrapIO("write", path, afero.WriteFile(o.Fs, path, data, constants.FilePermissions))
}

// Size returns the size of a file in bytes.
func (o *Ops) Size(path string) (int64, error) {
	info, err := o.Fs.Stat(path)
	if err != nil {
		return 0, errors.WrapIO("stat", path, err)
	}
	return info.Size(), nil
}

// TotalSize sums the sizes of paths.
func (o *Ops) TotalSize(paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		n, err := o.Size(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// FindFold returns the element of files whose base name equals name ignoring case.
func FindFold(files []string, name string) (string, bool) {
	for _, f := range files {
		if strings.EqualFold(filepath.Base(f), name) {
			return f, true
		}
	}
	return "", false
}

// HasExt reports whether path ends with ext, ignoring case. ext includes the dot.
func HasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsUnder reports whether path is root or a descendant of root.
func IsUnder(root, path string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
