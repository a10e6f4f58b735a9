package gdcard

import (
	"context"
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/gdcard/pkg/catalog"
	pkgerrors "github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/ingest"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/pathops"
)

// RenameBy selects where Rename takes the new name from.
type RenameBy int

const (
	// RenameByHeader uses the product name of the boot header.
	RenameByHeader RenameBy = iota
	// RenameByFolder uses the entry's folder name.
	RenameByFolder
	// RenameByFile uses the primary image file name.
	RenameByFile
)

// String returns the rename source name.
func (r RenameBy) String() string {
	switch r {
	case RenameByHeader:
		return "header"
	case RenameByFolder:
		return "folder"
	case RenameByFile:
		return "file"
	default:
		return "unknown"
	}
}

// ParseRenameBy parses a rename source name.
func ParseRenameBy(s string) (RenameBy, error) {
	for _, r := range []RenameBy{RenameByHeader, RenameByFolder, RenameByFile} {
		if s == r.String() {
			return r, nil
		}
	}
	return 0, pkgerrors.NewValidationError("rename_by", s, "must be header, folder or file")
}

// BatchRename selects the entries renamed by Manager.BatchRename and how.
type BatchRename struct {
	NotOnCard  bool // Rename entries without a slot
	OnCard     bool // Rename entries with a slot
	FolderName bool // Use the folder name instead of the image file name
	ParseTosec bool // Drop a trailing TOSEC tag block
}

// Add ingests each path into the catalog and returns the paths that could
// not be read.
func (m *Manager) Add(ctx context.Context, paths ...string) ([]string, error) {
	release, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	logger := logging.FromContext(ctx)
	var rejected []string
	for _, path := range paths {
		entry, err := m.ingestor.Ingest(ctx, path)
		if err != nil {
			if pkgerrors.IsCanceled(err) {
				return rejected, err
			}
			logger.Warn().Err(err).Str("path", path).Msg("Could not add")
			rejected = append(rejected, path)
			continue
		}
		entry.SetLocation(catalog.LocationOther)
		m.store.Add(entry)
	}
	return rejected, nil
}

// Remove drops entries from the catalog and returns how many were found.
func (m *Manager) Remove(entries ...*catalog.Entry) int {
	n := 0
	for _, e := range entries {
		if m.store.Remove(e) {
			n++
		}
	}
	return n
}

// Search returns the entries whose name or header name contains text.
func (m *Manager) Search(text string) []*catalog.Entry {
	return m.store.Search(text)
}

// ResolveHeaders reads the boot header of every entry that has none.
func (m *Manager) ResolveHeaders(ctx context.Context) error {
	release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()
	return m.engine.ResolveHeaders(ctx, m.store.Entries()...)
}

// Sort orders the catalog by name and disc with the menu first. Headers
// are resolved first; a canceled resolve leaves the order unchanged.
func (m *Manager) Sort(ctx context.Context) error {
	release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()

	if m.store.Len() == 0 {
		return nil
	}
	if err := m.engine.ResolveHeaders(ctx, m.store.Entries()...); err != nil {
		if pkgerrors.IsCanceled(err) {
			logging.FromContext(ctx).Info().Msg("Sort canceled")
			return nil
		}
		return err
	}
	m.store.Sort()
	return nil
}

// Rename renames entries from the chosen source. Renaming by header loads
// missing headers first; a canceled load renames nothing.
func (m *Manager) Rename(ctx context.Context, entries []*catalog.Entry, by RenameBy) error {
	release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()

	if by == RenameByHeader {
		if err := m.engine.ResolveHeaders(ctx, entries...); err != nil {
			if pkgerrors.IsCanceled(err) {
				logging.FromContext(ctx).Info().Msg("Rename canceled")
				return nil
			}
			return err
		}
	}

	for _, e := range entries {
		switch by {
		case RenameByHeader:
			e.SetName(e.Header().Name)
		case RenameByFolder:
			e.SetName(FolderName(e, true))
		case RenameByFile:
			e.SetName(FileName(e, true))
		default:
			return pkgerrors.NewValidationError("rename_by", by, "unknown rename source")
		}
	}
	return nil
}

// BatchRename renames the entries selected by opts and returns how many
// were renamed. The menu entry is never renamed.
func (m *Manager) BatchRename(_ context.Context, opts BatchRename) (int, error) {
	release, err := m.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	count := 0
	for _, e := range m.store.Entries() {
		if e.IsMenu() {
			continue
		}
		onCard := e.Slot() != 0
		if (onCard && !opts.OnCard) || (!onCard && !opts.NotOnCard) {
			continue
		}
		if opts.FolderName {
			e.SetName(FolderName(e, opts.ParseTosec))
		} else {
			e.SetName(FileName(e, opts.ParseTosec))
		}
		count++
	}
	return count, nil
}

// FolderName returns the upper-cased folder name of e, without its TOSEC
// tags when stripTags is set.
func FolderName(e *catalog.Entry, stripTags bool) string {
	return nameFrom(filepath.Base(e.Folder()), stripTags)
}

// FileName returns the upper-cased primary file stem of e, without its
// TOSEC tags when stripTags is set.
func FileName(e *catalog.Entry, stripTags bool) string {
	return nameFrom(pathops.Stem(e.PrimaryFile()), stripTags)
}

func nameFrom(s string, stripTags bool) string {
	s = cases.Upper(language.Und).String(s)
	if stripTags {
		s = ingest.StripTags(s)
	}
	return s
}
