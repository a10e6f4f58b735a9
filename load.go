package gdcard

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	pkgerrors "github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/media"
	pkgsync "github.com/agentstation/gdcard/pkg/sync"
)

type folder struct {
	slot int
	path string
}

// LoadFromMedia replaces the catalog with the games found on the card.
//
// Slot folders and move-aside folders left by an interrupted save are read
// in slot order. Folders that cannot be read are reported together in the
// returned error while every readable folder is kept. The card is never
// written to.
func (m *Manager) LoadFromMedia(ctx context.Context) error {
	release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()

	ctx = logging.WithOperation(ctx, "load")
	logger := logging.FromContext(ctx)

	// Step 1: List candidate folders
	folders, err := m.scan()
	if err != nil {
		return err
	}
	m.store.Clear()

	// Step 2: Read each folder
	var errs []error
	for _, f := range folders {
		entry, err := m.loadFolder(ctx, f)
		if err != nil {
			if pkgerrors.IsCanceled(err) {
				return err
			}
			logger.Warn().Err(err).Str("path", f.path).Msg("Could not read folder")
			errs = append(errs, pkgerrors.WrapEntry(filepath.Base(f.path), f.slot, "load", err))
			continue
		}
		entry.SetLocation(catalog.LocationMedia)
		m.store.Add(entry)
	}

	// Step 3: Detect the menu program
	if kind := m.detectMenuKind(ctx); kind != catalog.MenuNone {
		m.session.MenuKind = kind
	}

	logger.Info().
		Int("entries", m.store.Len()).
		Int("failed", len(errs)).
		Str("menu", m.session.MenuKind.String()).
		Msg("Load completed")
	return pkgerrors.Join(errs...)
}

// scan returns the slot and move-aside folders of the card ordered by slot.
// Move-aside folders sort first.
func (m *Manager) scan() ([]folder, error) {
	dirs, err := m.ops.ListDirs(m.session.Root)
	if err != nil {
		return nil, err
	}
	var out []folder
	for _, dir := range dirs {
		name := filepath.Base(dir)
		if n, ok := media.ParseSlotDir(name); ok {
			out = append(out, folder{slot: n, path: dir})
		} else if _, err := uuid.Parse(name); err == nil {
			out = append(out, folder{slot: 0, path: dir})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].slot < out[j].slot })
	return out, nil
}

// loadFolder reads one folder, from its cache when lazy loading is on.
func (m *Manager) loadFolder(ctx context.Context, f folder) (*catalog.Entry, error) {
	logger := logging.FromContext(ctx)

	if m.config.lazyLoading {
		entry, err := m.cache.TryLoad(ctx, f.path, f.slot)
		switch {
		case err == nil && entry != nil:
			return entry, nil
		case pkgerrors.IsCanceled(err):
			return nil, err
		case pkgerrors.Is(err, pkgerrors.ErrCachedFailure):
			if !m.config.revalidateErrors {
				return nil, err
			}
			logger.Debug().Str("path", f.path).Msg("Revalidating folder with a recorded failure")
		case err != nil:
			logger.Debug().Err(err).Str("path", f.path).Msg("Cache unusable, reading images")
		}
	}

	entry, err := m.ingestor.Ingest(ctx, f.path)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// detectMenuKind names the menu program of the card from the menu entry,
// falling back to the boot header of the entry in slot 01.
func (m *Manager) detectMenuKind(ctx context.Context) catalog.MenuKind {
	if entry := m.store.MenuEntry(); entry != nil {
		return entry.MenuKind()
	}
	for _, entry := range m.store.Entries() {
		if entry.Slot() != constants.MenuSlot {
			continue
		}
		if entry.Header() == nil {
			if err := pkgsync.Reload(ctx, m.ingestor, entry); err != nil {
				logging.FromContext(ctx).Debug().Err(err).Msg("Could not read the slot 01 header")
				return catalog.MenuNone
			}
		}
		return catalog.MenuKindOfName(entry.Header().Name)
	}
	return catalog.MenuNone
}
