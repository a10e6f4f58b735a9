// Package lazycache rebuilds catalog entries from the files written next to
// each game on the card (item.json, name.txt, serial.txt, error.txt) so a
// card can be listed without parsing every disc image.
package lazycache

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/optical"
	"github.com/agentstation/gdcard/pkg/pathops"
)

// Cache reads and writes entry sidecars.
type Cache struct {
	ops    *pathops.Ops
	limits catalog.Limits
}

// New returns a cache over fs.
func New(fs afero.Fs, limits catalog.Limits) *Cache {
	return &Cache{ops: pathops.New(fs), limits: limits}
}

// TryLoad reconstructs the entry stored in folder.
//
// It returns nil, nil on a cache miss: no snapshot and no complete
// name.txt/serial.txt pair, or an unreadable snapshot. An entry carrying a
// recorded error is returned together with an error matching
// ErrCachedFailure. A complete cache without any image file in the folder
// is an error matching ErrNoImageFound.
func (c *Cache) TryLoad(ctx context.Context, folder string, slot int) (*catalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	entry, err := c.loadSnapshot(folder)
	if err != nil {
		logger.Debug().Err(err).Str("folder", folder).Msg("ignoring unreadable snapshot")
		entry = nil
	}
	if entry == nil {
		entry, err = c.loadSidecars(folder)
		if err != nil || entry == nil {
			return nil, err
		}
	}

	entry.SetFolder(folder)
	entry.SetSlot(slot)

	if entry.HasError() {
		return entry, errors.NewCacheError(folder, entry.Err(), errors.ErrCachedFailure)
	}

	files, err := c.ops.ListFiles(folder)
	if err != nil {
		return nil, err
	}
	var image string
	for _, f := range files {
		if optical.IsImage(f) {
			image = f
			break
		}
	}
	if image == "" {
		return nil, errors.NewCacheError(folder, "no supported image in folder", errors.ErrNoImageFound)
	}

	entry.AddFile(filepath.Base(image))
	if entry.Length() == 0 {
		size, err := c.ops.Size(image)
		if err != nil {
			return nil, err
		}
		entry.SetLength(size)
	}
	return entry, nil
}

func (c *Cache) loadSnapshot(folder string) (*catalog.Entry, error) {
	files, err := c.ops.ListFiles(folder)
	if err != nil {
		return nil, err
	}
	path, ok := pathops.FindFold(files, constants.SnapshotFile)
	if !ok {
		return nil, nil
	}
	data, err := afero.ReadFile(c.ops.Fs, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	entry := catalog.NewEntry(c.limits)
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(entry); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return entry, nil
}

func (c *Cache) loadSidecars(folder string) (*catalog.Entry, error) {
	files, err := c.ops.ListFiles(folder)
	if err != nil {
		return nil, err
	}
	read := func(name string) (string, error) {
		path, ok := pathops.FindFold(files, name)
		if !ok {
			return "", nil
		}
		return c.ops.ReadText(path)
	}

	name, err := read(constants.NameFile)
	if err != nil || name == "" {
		return nil, err
	}
	serial, err := read(constants.SerialFile)
	if err != nil || serial == "" {
		return nil, err
	}
	errText, err := read(constants.ErrorFile)
	if err != nil {
		return nil, err
	}

	entry := catalog.NewEntry(c.limits)
	entry.SetFormat(catalog.Uncompressed)
	entry.SetName(name)
	entry.SetSerial(serial)
	entry.SetError(errText)
	return entry, nil
}

// WriteSidecars writes name.txt and serial.txt for entry into folder.
func (c *Cache) WriteSidecars(entry *catalog.Entry, folder string) error {
	if err := c.ops.WriteText(filepath.Join(folder, constants.NameFile), entry.Name()); err != nil {
		return err
	}
	return c.ops.WriteText(filepath.Join(folder, constants.SerialFile), entry.Serial())
}

// WriteSnapshot writes item.json for entry into folder.
func (c *Cache) WriteSnapshot(entry *catalog.Entry, folder string) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapParse("json", constants.SnapshotFile, err)
	}
	return c.ops.WriteFile(filepath.Join(folder, constants.SnapshotFile), data)
}

// WriteError records msg as the failure of folder.
func (c *Cache) WriteError(folder, msg string) error {
	return c.ops.WriteText(filepath.Join(folder, constants.ErrorFile), msg)
}

// ReadError returns the failure recorded in folder, if any.
func (c *Cache) ReadError(folder string) (string, bool, error) {
	path := filepath.Join(folder, constants.ErrorFile)
	if !c.ops.FileExists(path) {
		return "", false, nil
	}
	text, err := c.ops.ReadText(path)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// ClearError removes a recorded failure from folder.
func (c *Cache) ClearError(folder string) error {
	return c.ops.Remove(filepath.Join(folder, constants.ErrorFile))
}
