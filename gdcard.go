// Package gdcard manages the game catalog of a GD-ROM emulator SD card.
//
// A Manager loads the slot folders of a card into an ordered catalog, lets
// the caller add, remove, rename and sort entries, and commits the catalog
// back to the card together with a rebuilt menu image in slot 01.
//
//	m, err := gdcard.New("/media/sd", gdcard.WithMenuKind(catalog.GDMenu))
//	if err != nil {
//		return err
//	}
//	if err := m.LoadFromMedia(ctx); err != nil {
//		log.Print(err) // folders that could not be read are listed here
//	}
//	if _, err := m.Add(ctx, "/games/Shenmue"); err != nil {
//		return err
//	}
//	result, err := m.Save(ctx)
package gdcard

import (
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/catalog"
	pkgerrors "github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/ingest"
	"github.com/agentstation/gdcard/pkg/lazycache"
	"github.com/agentstation/gdcard/pkg/media"
	"github.com/agentstation/gdcard/pkg/menu"
	"github.com/agentstation/gdcard/pkg/pathops"
	pkgsync "github.com/agentstation/gdcard/pkg/sync"
)

// Manager owns the catalog of one card.
type Manager struct {
	config   *config
	session  *media.Session
	store    *catalog.Store
	ops      *pathops.Ops
	ingestor *ingest.Ingestor
	cache    *lazycache.Cache
	engine   *pkgsync.Engine
	busy     atomic.Bool

	*hooks
}

// New returns a Manager for the card mounted at root.
func New(root string, opts ...Option) (*Manager, error) {
	cfg := defaultConfig()
	if err := cfg.apply(opts...); err != nil {
		return nil, pkgerrors.NewConfigError("gdcard", "applying options", err)
	}
	if root == "" {
		return nil, pkgerrors.NewValidationError("root", root, "media root is required")
	}
	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}

	session := media.NewSession(cfg.fs, root, cfg.menuKind)
	session.Limits = cfg.limits

	var ingestOpts []ingest.Option
	if cfg.psxDB != nil {
		ingestOpts = append(ingestOpts, ingest.WithPlayStationDB(cfg.psxDB))
	}
	ingestor := ingest.New(session, ingestOpts...)

	builder := menu.NewBuilder(session, cfg.toolsDir,
		menu.WithTruncate(cfg.truncateMenu),
		menu.WithDebug(cfg.debugMenu),
		menu.WithIngestor(ingestor),
	)
	engine := pkgsync.NewEngine(session, builder,
		pkgsync.WithIngestor(ingestor),
		pkgsync.WithShrinker(cfg.shrinker, cfg.blacklist),
		pkgsync.WithConfirmer(cfg.confirmer),
		pkgsync.WithReporter(cfg.reporter),
	)

	store := catalog.NewStore()
	return &Manager{
		config:   cfg,
		session:  session,
		store:    store,
		ops:      session.Ops(),
		ingestor: ingestor,
		cache:    lazycache.New(cfg.fs, cfg.limits),
		engine:   engine,
		hooks:    newHooks(store),
	}, nil
}

// Store returns the catalog.
func (m *Manager) Store() *catalog.Store { return m.store }

// Entries returns a snapshot of the catalog in slot order.
func (m *Manager) Entries() []*catalog.Entry { return m.store.Entries() }

// Session returns the media session.
func (m *Manager) Session() *media.Session { return m.session }

// MenuKind returns the selected menu program.
func (m *Manager) MenuKind() catalog.MenuKind { return m.session.MenuKind }

// SetMenuKind selects the menu program written by the next Save.
func (m *Manager) SetMenuKind(kind catalog.MenuKind) { m.session.MenuKind = kind }

// Busy reports whether an operation is running.
func (m *Manager) Busy() bool { return m.busy.Load() }

// acquire marks the manager busy. The returned function releases it.
func (m *Manager) acquire() (func(), error) {
	if !m.busy.CompareAndSwap(false, true) {
		return nil, pkgerrors.ErrBusy
	}
	return func() { m.busy.Store(false) }, nil
}
