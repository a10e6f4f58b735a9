package menu

import (
	"context"
	"path/filepath"

	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/gdrom"
	"github.com/agentstation/gdcard/pkg/ingest"
	"github.com/agentstation/gdcard/pkg/logging"
	"github.com/agentstation/gdcard/pkg/media"
	"github.com/agentstation/gdcard/pkg/pathops"
)

// Asset and scratch folder names.
const (
	AssetData    = "menu_data"
	AssetGDI     = "menu_gdi"
	AssetLowData = "menu_low_data"
	AssetIPBin   = "IP.BIN"

	workLowData = "lowdensity_data"
	workData    = "data"
	workGDI     = "menu_gdi"
)

// TrackBuilderFunc returns the track builder for a menu image with the
// given volume identifier.
type TrackBuilderFunc func(volumeID string, truncate bool) gdrom.Builder

// Builder produces menu images from the assets under ToolsDir.
type Builder struct {
	session  *media.Session
	ops      *pathops.Ops
	toolsDir string
	truncate bool
	debug    bool
	tracks   TrackBuilderFunc
	ingestor *ingest.Ingestor
}

// Option configures a Builder.
type Option func(*Builder)

// WithTruncate leaves the high-density track unpadded.
func WithTruncate(v bool) Option {
	return func(b *Builder) { b.truncate = v }
}

// WithDebug writes a copy of the listing to MENU_DEBUG.TXT in the work folder.
func WithDebug(v bool) Option {
	return func(b *Builder) { b.debug = v }
}

// WithTrackBuilder replaces the native GD-ROM track builder.
func WithTrackBuilder(fn TrackBuilderFunc) Option {
	return func(b *Builder) {
		if fn != nil {
			b.tracks = fn
		}
	}
}

// WithIngestor sets the ingestor used to read the built image back.
func WithIngestor(in *ingest.Ingestor) Option {
	return func(b *Builder) {
		if in != nil {
			b.ingestor = in
		}
	}
}

// NewBuilder returns a builder reading assets from toolsDir.
func NewBuilder(session *media.Session, toolsDir string, opts ...Option) *Builder {
	b := &Builder{
		session:  session,
		ops:      session.Ops(),
		toolsDir: toolsDir,
		truncate: true,
	}
	b.tracks = func(volumeID string, truncate bool) gdrom.Builder {
		return gdrom.NewNativeBuilder(session.Fs, volumeID, truncate)
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.ingestor == nil {
		b.ingestor = ingest.New(session)
	}
	return b
}

// AssetDir returns the asset folder of kind.
func (b *Builder) AssetDir(kind catalog.MenuKind) string {
	return filepath.Join(b.toolsDir, kind.String())
}

// Build renders the listing of kind over entries, assembles the menu image
// inside workDir and returns the entry read back from the image. The image
// is left in workDir/menu_gdi.
func (b *Builder) Build(ctx context.Context, kind catalog.MenuKind, entries []*catalog.Entry, workDir string) (*catalog.Entry, error) {
	ctx = logging.WithOperation(ctx, "build_menu")
	logger := logging.FromContext(ctx)

	listName, err := ListFile(kind)
	if err != nil {
		return nil, err
	}
	text, err := Render(kind, entries)
	if err != nil {
		return nil, err
	}

	assets := b.AssetDir(kind)
	for _, required := range []string{filepath.Join(assets, AssetData), filepath.Join(assets, AssetIPBin)} {
		if !b.ops.Exists(required) {
			return nil, errors.NewConfigError("menu", "missing menu asset "+required, errors.NewMissingFileError(filepath.Base(required), assets))
		}
	}

	lowDir := filepath.Join(workDir, workLowData)
	dataDir := filepath.Join(workDir, workData)
	gdiDir := filepath.Join(workDir, workGDI)
	for _, dir := range []string{lowDir, dataDir, gdiDir} {
		if err := b.ops.RemoveAll(dir); err != nil {
			return nil, err
		}
		if err := b.ops.MkdirAll(dir); err != nil {
			return nil, err
		}
	}

	if err := b.ops.CopyDir(ctx, filepath.Join(assets, AssetData), dataDir); err != nil {
		return nil, err
	}
	if dir := filepath.Join(assets, AssetGDI); b.ops.DirExists(dir) {
		if err := b.ops.CopyDir(ctx, dir, gdiDir); err != nil {
			return nil, err
		}
	}
	if dir := filepath.Join(assets, AssetLowData); b.ops.DirExists(dir) {
		if err := b.ops.CopyDir(ctx, dir, lowDir); err != nil {
			return nil, err
		}
	}

	if err := b.ops.WriteText(filepath.Join(lowDir, listName), text); err != nil {
		return nil, err
	}
	if err := b.ops.WriteText(filepath.Join(dataDir, listName), text); err != nil {
		return nil, err
	}
	if b.debug {
		if err := b.ops.WriteText(filepath.Join(workDir, DebugFile), text); err != nil {
			return nil, err
		}
	}

	if err := b.assemble(ctx, kind, lowDir, dataDir, filepath.Join(assets, AssetIPBin), gdiDir); err != nil {
		return nil, err
	}

	entry, err := b.ingestor.Ingest(ctx, gdiDir)
	if err != nil {
		return nil, err
	}
	if !entry.IsMenu() {
		logger.Warn().Str("name", entry.Name()).Str("kind", kind.String()).Msg("menu image does not carry a reserved name")
	}
	logger.Info().Int("items", len(Listable(entries))).Str("kind", kind.String()).Msg("menu image built")
	return entry, nil
}

func (b *Builder) assemble(ctx context.Context, kind catalog.MenuKind, lowDir, dataDir, ipBin, gdiDir string) error {
	tb := b.tracks(VolumeID(kind), b.truncate)

	lowFiles, err := b.ops.ListFiles(lowDir)
	if err != nil {
		return err
	}
	first, err := tb.CreateFirstTrack(ctx, filepath.Join(gdiDir, gdrom.FirstTrackFile), lowFiles)
	if err != nil {
		return err
	}
	tracks := []gdrom.Track{first}

	if audio := filepath.Join(gdiDir, gdrom.AudioTrackFile); b.ops.FileExists(audio) {
		t, err := gdrom.AudioTrack(b.session.Fs, first, audio)
		if err != nil {
			return err
		}
		tracks = append(tracks, t)
	}

	high, err := tb.BuildGDROM(ctx, dataDir, ipBin, nil, gdiDir)
	if err != nil {
		return err
	}
	tracks = append(tracks, high...)

	return tb.UpdateGdiFile(tracks, filepath.Join(gdiDir, gdrom.DescriptorFile))
}
