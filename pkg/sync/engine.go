package sync

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/agentstation/gdcard/pkg/archive"
	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/ingest"
	"github.com/agentstation/gdcard/pkg/lazycache"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/media"
	"github.com/agentstation/gdcard/pkg/pathops"
	"github.com/agentstation/gdcard/pkg/progress"
	"github.com/agentstation/gdcard/pkg/shrink"
)

// MenuBuilder builds the menu image listing entries.
type MenuBuilder interface {
	Build(ctx context.Context, kind catalog.MenuKind, entries []*catalog.Entry, workDir string) (*catalog.Entry, error)
}

// Engine saves catalogs to the card of one session.
type Engine struct {
	session   *media.Session
	ops       *pathops.Ops
	ingestor  *ingest.Ingestor
	cache     *lazycache.Cache
	extractor archive.Extractor
	menu      MenuBuilder
	shrinker  shrink.Shrinker
	blacklist *shrink.Blacklist
	confirm   progress.Confirmer
	reporter  progress.Reporter
	busy      atomic.Bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithIngestor sets the ingestor used to resolve headers and read extracted archives.
func WithIngestor(in *ingest.Ingestor) EngineOption {
	return func(e *Engine) { e.ingestor = in }
}

// WithExtractor sets the archive extractor.
func WithExtractor(x archive.Extractor) EngineOption {
	return func(e *Engine) { e.extractor = x }
}

// WithShrinker sets the shrink tool and its blacklist.
func WithShrinker(s shrink.Shrinker, blacklist *shrink.Blacklist) EngineOption {
	return func(e *Engine) {
		e.shrinker = s
		e.blacklist = blacklist
	}
}

// WithConfirmer sets the prompt asked before the card is modified.
func WithConfirmer(c progress.Confirmer) EngineOption {
	return func(e *Engine) { e.confirm = c }
}

// WithReporter sets the progress reporter.
func WithReporter(r progress.Reporter) EngineOption {
	return func(e *Engine) { e.reporter = r }
}

// NewEngine returns an engine for session that builds menus with menu.
func NewEngine(session *media.Session, menu MenuBuilder, opts ...EngineOption) *Engine {
	e := &Engine{
		session:  session,
		ops:      session.Ops(),
		cache:    lazycache.New(session.Fs, session.Limits),
		menu:     menu,
		confirm:  progress.Always,
		reporter: progress.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ingestor == nil {
		e.ingestor = ingest.New(session)
	}
	if e.extractor == nil {
		e.extractor = archive.New(session.Fs)
	}
	return e
}

// Busy reports whether a save is running.
func (e *Engine) Busy() bool { return e.busy.Load() }

// Save writes store to the card.
//
// A declined confirmation or a cancellation while headers are resolved
// returns a Result with the matching Outcome and a nil error; the card is
// not touched in either case. In unattended mode a failing entry is
// recorded on the entry and in Result.Failures and the save continues;
// otherwise the first failure is returned and the card is left partially
// migrated.
func (e *Engine) Save(ctx context.Context, store *catalog.Store, opts ...Option) (*Result, error) {
	// Step 0: Reject overlapping saves
	if !e.busy.CompareAndSwap(false, true) {
		return nil, errors.ErrBusy
	}
	defer e.busy.Store(false)

	// Step 1: Parse options
	options := Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Setup context with timeout
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()
	ctx = logging.WithFields(ctx, map[string]any{
		"operation": "save",
		"entries":   store.Len(),
	})
	logger := logging.FromContext(ctx)

	// Step 3: Preconditions
	if err := e.session.Validate(); err != nil {
		return nil, err
	}
	if store.Len() == 0 {
		return nil, errors.ErrEmptyCatalog
	}
	if n := store.MenuCount(); n > 1 {
		return nil, &errors.MenuCountError{Count: n}
	}
	if e.menu == nil {
		return nil, errors.NewConfigError("sync", "no menu builder configured", errors.ErrNotConfigured)
	}

	// Step 4: Confirm
	if !options.AutoApprove {
		ok, err := e.confirm.Confirm(ctx, "Save changes to "+e.session.Root+"?")
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Info().Msg("Save declined")
			return &Result{Outcome: Declined}, nil
		}
	}

	// Step 5: Renumber
	if err := Renumber(store); err != nil {
		return nil, err
	}

	// Step 6: Resolve boot headers
	if err := e.resolveHeaders(ctx, store.Entries(), options); err != nil {
		if errors.IsCanceled(err) {
			logger.Info().Msg("Save canceled while loading file info")
			return &Result{Outcome: Canceled}, nil
		}
		return nil, err
	}

	tempDir := filepath.Join(options.TempDir, constants.TempFolderName)
	if err := e.ops.MkdirAll(tempDir); err != nil {
		return nil, err
	}
	result := &Result{Outcome: Committed, TempDir: tempDir}

	// Step 7: Move aside everything already on the card
	if err := e.moveAside(ctx, store); err != nil {
		return nil, err
	}

	// Step 8: Remove folders no entry refers to
	if err := e.collectGarbage(ctx, store, options.TempDir); err != nil {
		return nil, err
	}

	// Step 9: Materialize every entry into its slot
	if err := e.materializeAll(ctx, store, tempDir, options, result); err != nil {
		return result, err
	}

	// Step 10: Rebuild the menu
	menuEntry, err := e.rebuildMenu(ctx, store, tempDir)
	if err != nil {
		return result, err
	}
	result.Menu = menuEntry

	// Step 11: Clean scratch space
	if options.CleanTemp {
		if err := e.ops.RemoveAll(tempDir); err != nil {
			logger.Warn().Err(err).Str("path", tempDir).Msg("Could not remove scratch folder")
		}
	}

	logger.Info().
		Int("placed", result.Placed).
		Int("failed", len(result.Failures)).
		Msg("Save completed")
	return result, nil
}

// Renumber gives every non-menu entry a consecutive slot starting at 2 in
// catalog order.
func Renumber(store *catalog.Store) error {
	if n := store.MenuCount(); n > 1 {
		return &errors.MenuCountError{Count: n}
	}
	slot := constants.FirstGameSlot
	for _, entry := range store.Entries() {
		if entry.IsMenu() {
			continue
		}
		entry.SetSlot(slot)
		slot++
	}
	return nil
}

// ResolveHeaders reads the boot header of every entry that has none. The
// first failure stops the run.
func (e *Engine) ResolveHeaders(ctx context.Context, entries ...*catalog.Entry) error {
	return e.resolveHeaders(ctx, entries, Defaults().Apply(WithUnattended(false)))
}

func (e *Engine) resolveHeaders(ctx context.Context, entries []*catalog.Entry, options *Options) error {
	var pending []*catalog.Entry
	for _, entry := range entries {
		if entry.Header() == nil {
			pending = append(pending, entry)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	logger := logging.FromContext(ctx)
	e.reporter.Start(len(pending), "Loading file info")
	defer e.reporter.Done()

	for _, entry := range pending {
		if err := progress.Check(ctx, e.reporter); err != nil {
			return err
		}
		e.reporter.SetText(entry.Name())
		if err := Reload(ctx, e.ingestor, entry); err != nil {
			if errors.IsCanceled(err) || !options.Unattended {
				return errors.WrapEntry(entry.Name(), entry.Slot(), "load", err)
			}
			logger.Warn().Err(err).Str("entry", entry.Name()).Msg("Could not read boot header")
			entry.SetError(err.Error())
		}
		e.reporter.Advance()
	}
	return nil
}

// Reload re-reads entry from its folder, replacing its header, files and
// length.
func Reload(ctx context.Context, in *ingest.Ingestor, entry *catalog.Entry) error {
	path := entry.Folder()
	if primary := entry.PrimaryFile(); primary != "" {
		path = filepath.Join(path, primary)
	}
	fresh, err := in.Ingest(ctx, path)
	if err != nil {
		return err
	}
	entry.SetHeader(fresh.Header())
	entry.SetFiles(fresh.Files())
	entry.SetLength(fresh.Length())
	if entry.Serial() == "" {
		entry.SetSerial(fresh.Serial())
	}
	return nil
}

func (e *Engine) onMedia(entry *catalog.Entry) bool {
	return entry.Folder() != "" && e.session.IsUnder(entry.Folder()) && entry.Folder() != e.session.Root
}

func (e *Engine) moveAside(ctx context.Context, store *catalog.Store) error {
	logger := logging.FromContext(ctx)
	for _, entry := range store.Entries() {
		if entry.IsMenu() || !e.onMedia(entry) {
			continue
		}
		aside := e.session.AsidePath(entry.ID())
		if entry.Folder() == aside {
			continue
		}
		if e.ops.DirExists(entry.Folder()) {
			if err := e.ops.Move(ctx, entry.Folder(), aside); err != nil {
				return errors.WrapEntry(entry.Name(), entry.Slot(), "move aside", err)
			}
		}
		logger.Debug().Str("entry", entry.Name()).Str("from", entry.Folder()).Str("to", aside).Msg("Moved aside")
		entry.SetFolder(aside)
	}
	return nil
}

// Keep returns the top-level folder names a save must not delete.
func Keep(store *catalog.Store) map[string]bool {
	keep := make(map[string]bool)
	for _, entry := range store.Entries() {
		if entry.IsMenu() {
			if name, err := media.FormatSlot(entry.Slot()); err == nil {
				keep[name] = true
			}
			continue
		}
		keep[entry.ID()] = true
	}
	return keep
}

// collectGarbage deletes every top-level folder of the card that Keep does
// not list. Folders holding protect are left alone.
func (e *Engine) collectGarbage(ctx context.Context, store *catalog.Store, protect string) error {
	logger := logging.FromContext(ctx)
	keep := Keep(store)

	dirs, err := e.ops.ListDirs(e.session.Root)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if keep[filepath.Base(dir)] || pathops.IsUnder(dir, protect) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug().Str("path", dir).Msg("Removing unused folder")
		if err := e.ops.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rebuildMenu(ctx context.Context, store *catalog.Store, tempDir string) (*catalog.Entry, error) {
	menuDir, err := e.session.SlotPath(constants.MenuSlot)
	if err != nil {
		return nil, err
	}
	if err := e.ops.RemoveAll(menuDir); err != nil {
		return nil, err
	}
	if old := store.MenuEntry(); old != nil {
		store.Remove(old)
	}

	entry, err := e.menu.Build(ctx, e.session.MenuKind, store.Entries(), filepath.Join(tempDir, constants.MenuWorkFolder))
	if err != nil {
		return nil, errors.WrapEntry(e.session.MenuKind.String(), constants.MenuSlot, "build menu", err)
	}
	store.Insert(0, entry)

	if err := e.ops.MkdirAll(menuDir); err != nil {
		return nil, err
	}
	for _, f := range entry.Files() {
		if err := e.ops.CopyFile(filepath.Join(entry.Folder(), f), filepath.Join(menuDir, f)); err != nil {
			return nil, errors.WrapEntry(entry.Name(), constants.MenuSlot, "copy menu", err)
		}
	}
	entry.SetFolder(menuDir)
	entry.SetLocation(catalog.LocationMedia)
	return entry, nil
}
