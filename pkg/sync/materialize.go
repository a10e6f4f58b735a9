package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"

	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/optical"
	"github.com/agentstation/gdcard/pkg/pathops"
)

// ExtractDir returns the scratch folder an archive is extracted into. The
// name is derived from the archive path so a second save reuses it.
func ExtractDir(tempDir, sourcePath string) string {
	return filepath.Join(tempDir, fmt.Sprintf("%s%016x", constants.ExtractPrefix, xxh3.HashString(sourcePath)))
}

func (e *Engine) materializeAll(ctx context.Context, store *catalog.Store, tempDir string, options *Options, result *Result) error {
	logger := logging.FromContext(ctx)
	entries := store.Entries()

	e.reporter.Start(len(entries), "Saving")
	defer e.reporter.Done()

	offset := 0
	for _, entry := range entries {
		if entry.IsMenu() {
			e.reporter.Advance()
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(errors.ErrCanceled, err)
		}

		slot := entry.Slot() - offset
		entry.SetSlot(slot)
		e.reporter.SetText(entry.Name())

		entryCtx := logging.WithSlot(logging.WithEntry(ctx, entry.Name()), slot)
		err := e.materialize(entryCtx, entry, slot, tempDir, options)
		e.reporter.Advance()
		if err == nil {
			result.Placed++
			continue
		}

		err = errors.WrapEntry(entry.Name(), slot, "save", err)
		if !options.Unattended || errors.IsCanceled(err) {
			entry.SetError(err.Error())
			return err
		}

		logger.Warn().Err(err).Str("entry", entry.Name()).Int("slot", slot).Msg("Skipping entry")
		entry.SetError(err.Error())
		entry.SetSlot(0)
		if !e.onMedia(entry) {
			entry.SetLocation(catalog.LocationOther)
		}
		result.Failures = append(result.Failures, EntryFailure{Entry: entry, Name: entry.Name(), Slot: slot, Err: err})
		offset++
	}
	return nil
}

// materialize places entry in slot, either by moving its aside folder back
// or by copying it in from its source.
func (e *Engine) materialize(ctx context.Context, entry *catalog.Entry, slot int, tempDir string, options *Options) error {
	if entry.Header() == nil {
		return errors.WrapImage(entry.Folder(), "", errors.ErrUnreadableImage)
	}
	target, err := e.session.SlotPath(slot)
	if err != nil {
		return err
	}

	fresh := false
	if e.onMedia(entry) {
		// After collection a folder already at target is a leftover
		if entry.Folder() != target && e.ops.DirExists(target) {
			if err := e.ops.RemoveAll(target); err != nil {
				return err
			}
		}
		if err := e.ops.Move(ctx, entry.Folder(), target); err != nil {
			return err
		}
		entry.SetFolder(target)
	} else {
		if err := e.copyNew(ctx, entry, target, tempDir); err != nil {
			if e.ops.DirExists(target) {
				if rmErr := e.ops.RemoveAll(target); rmErr != nil {
					logging.FromContext(ctx).Warn().Err(rmErr).Str("path", target).Msg("Could not remove partial copy")
				}
			}
			return err
		}
		fresh = true
	}

	if err := e.normalize(entry); err != nil {
		return err
	}
	if fresh && e.shouldShrink(entry, options) {
		if err := e.shrink(ctx, entry, tempDir); err != nil {
			return err
		}
	}

	entry.SetError("")
	entry.SetLocation(catalog.LocationMedia)
	if err := e.cache.ClearError(target); err != nil {
		return err
	}
	if err := e.cache.WriteSidecars(entry, target); err != nil {
		return err
	}
	return e.cache.WriteSnapshot(entry, target)
}

// copyNew copies the constituent files of entry into target. Archived
// entries are extracted first and replaced by what the extraction holds.
func (e *Engine) copyNew(ctx context.Context, entry *catalog.Entry, target, tempDir string) error {
	logger := logging.FromContext(ctx)

	source := entry.Folder()
	if entry.Format() == catalog.Archived {
		dir, err := e.extract(ctx, entry, tempDir)
		if err != nil {
			return err
		}
		source = dir
	}

	if e.ops.DirExists(target) {
		if err := e.ops.RemoveAll(target); err != nil {
			return err
		}
	}
	if err := e.ops.MkdirAll(target); err != nil {
		return err
	}
	for _, f := range entry.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.ops.CopyFile(filepath.Join(source, f), filepath.Join(target, f)); err != nil {
			return err
		}
	}

	logger.Debug().Str("from", source).Str("to", target).Int("files", len(entry.Files())).Msg("Copied entry")
	entry.SetFolder(target)
	return nil
}

// extract expands the archive of entry into its extraction folder and
// re-reads the entry from the extracted image. A recorded failure in the
// folder fails without extracting again.
func (e *Engine) extract(ctx context.Context, entry *catalog.Entry, tempDir string) (string, error) {
	logger := logging.FromContext(ctx)
	dir := ExtractDir(tempDir, entry.SourcePath())

	if msg, ok, err := e.cache.ReadError(dir); err != nil {
		return "", err
	} else if ok {
		return "", errors.NewCacheError(dir, msg, errors.ErrCachedFailure)
	}

	fail := func(err error) (string, error) {
		if writeErr := e.cache.WriteError(dir, err.Error()); writeErr != nil {
			logger.Warn().Err(writeErr).Str("path", dir).Msg("Could not record extraction failure")
		}
		return "", err
	}

	if !e.ops.DirExists(dir) {
		if err := e.ops.MkdirAll(dir); err != nil {
			return "", err
		}
		logger.Debug().Str("archive", entry.SourcePath()).Str("to", dir).Msg("Extracting")
		if err := e.extractor.Extract(ctx, entry.SourcePath(), dir); err != nil {
			if errors.IsCanceled(err) {
				_ = e.ops.RemoveAll(dir)
				return "", err
			}
			return fail(err)
		}
	}

	image, err := e.findImage(dir)
	if err != nil {
		return fail(err)
	}
	extracted, err := e.ingestor.Ingest(ctx, image)
	if err != nil {
		return fail(err)
	}

	entry.SetHeader(extracted.Header())
	entry.SetFiles(extracted.Files())
	entry.SetLength(extracted.Length())
	entry.SetFormat(catalog.Uncompressed)
	return extracted.Folder(), nil
}

// findImage returns the shallowest image below dir.
func (e *Engine) findImage(dir string) (string, error) {
	var images []string
	err := afero.Walk(e.ops.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.WrapIO("walk", path, err)
		}
		if !info.IsDir() && optical.IsImage(path) {
			images = append(images, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", errors.WrapImage(dir, "", errors.ErrNoImageFound)
	}
	sort.Slice(images, func(i, j int) bool {
		di, dj := strings.Count(images[i], string(filepath.Separator)), strings.Count(images[j], string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return images[i] < images[j]
	})
	return images[0], nil
}

// normalize renames every constituent file sharing the primary file's stem
// to disc.<ext>.
func (e *Engine) normalize(entry *catalog.Entry) error {
	primary := entry.PrimaryFile()
	if primary == "" {
		return errors.WrapImage(entry.Folder(), "", errors.ErrNoImageFound)
	}
	stem := pathops.Stem(primary)
	if stem == constants.DefaultImageName {
		return nil
	}

	files := entry.Files()
	renamed := make([]string, 0, len(files))
	for _, f := range files {
		if pathops.Stem(f) != stem || filepath.Dir(f) != "." {
			renamed = append(renamed, f)
			continue
		}
		name := constants.DefaultImageName + filepath.Ext(f)
		if err := e.ops.Fs.Rename(filepath.Join(entry.Folder(), f), filepath.Join(entry.Folder(), name)); err != nil {
			return errors.WrapIO("rename", f, err)
		}
		renamed = append(renamed, name)
	}
	entry.SetFiles(renamed)
	return nil
}

func (e *Engine) shouldShrink(entry *catalog.Entry, options *Options) bool {
	if !options.Shrink.Enabled || e.shrinker == nil || entry.Shrunk() || !entry.IsGDI() {
		return false
	}
	if options.Shrink.UseBlacklist && e.blacklist.Contains(entry.Serial()) {
		return false
	}
	return true
}

// shrink runs the shrink tool on the GDI in the entry's folder and replaces
// the folder contents with its output.
func (e *Engine) shrink(ctx context.Context, entry *catalog.Entry, tempDir string) error {
	logger := logging.FromContext(ctx)
	folder := entry.Folder()
	scratch := filepath.Join(tempDir, "shrink_"+entry.ID())
	if err := e.ops.RemoveAll(scratch); err != nil {
		return err
	}
	if err := e.ops.MkdirAll(scratch); err != nil {
		return err
	}
	defer func() { _ = e.ops.RemoveAll(scratch) }()

	if err := e.shrinker.Shrink(ctx, filepath.Join(folder, entry.PrimaryFile()), scratch); err != nil {
		return err
	}

	for _, f := range entry.Files() {
		if err := e.ops.Remove(filepath.Join(folder, f)); err != nil {
			return err
		}
	}
	out, err := e.ops.ListFiles(scratch)
	if err != nil {
		return err
	}
	for _, f := range out {
		if err := e.ops.Move(ctx, f, filepath.Join(folder, filepath.Base(f))); err != nil {
			return err
		}
	}

	if err := Reload(ctx, e.ingestor, clearFiles(entry)); err != nil {
		return err
	}
	if err := e.normalize(entry); err != nil {
		return err
	}
	entry.SetShrunk(true)
	logger.Debug().Int64("length", entry.Length()).Msg("Shrunk image")
	return nil
}

// clearFiles drops the file list so Reload searches the folder.
func clearFiles(entry *catalog.Entry) *catalog.Entry {
	entry.SetFiles(nil)
	return entry
}
