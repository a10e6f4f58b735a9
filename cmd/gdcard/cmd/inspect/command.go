// Package inspect implements the inspect command.
package inspect

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentstation/gdcard/internal/cmd/output"
	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/ingest"
	"github.com/agentstation/gdcard/pkg/logging"
)

// ArtworkFile is the disc artwork stored in the data track of most games.
const ArtworkFile = "0GDTEX.PVR"

// AppContext defines the interface that the inspect command needs from the app.
type AppContext interface {
	Ingestor() (*ingest.Ingestor, error)
	Fs() afero.Fs
	Logger() *zerolog.Logger
	Format() string
}

// NewCommand creates the inspect command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect PATH...",
		GroupID: "core",
		Short:   "Show the boot headers of images, folders or archives",
		Example: `  gdcard inspect "Crazy Taxi/disc.gdi"
  gdcard inspect rez.7z -o yaml
  gdcard inspect Shenmue/ --gdtex shenmue.pvr`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, args)
		},
	}
	cmd.Flags().String("gdtex", "", "write the disc artwork of a single image to FILE")
	return cmd
}

func run(cmd *cobra.Command, app AppContext, paths []string) error {
	gdtex, err := cmd.Flags().GetString("gdtex")
	if err != nil {
		return err
	}
	if gdtex != "" && len(paths) != 1 {
		return errors.NewValidationError("gdtex", gdtex, "requires exactly one path")
	}
	format, err := output.ParseFormat(app.Format())
	if err != nil {
		return err
	}
	ingestor, err := app.Ingestor()
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), app.Logger())
	var entries []*catalog.Entry
	for _, path := range paths {
		entry, err := ingestor.Ingest(ctx, path)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	if gdtex != "" {
		if err := writeArtwork(cmd, app, ingestor, entries[0], gdtex); err != nil {
			return err
		}
	}

	return output.NewFormatter(output.DetectFormat(string(format))).
		Format(cmd.OutOrStdout(), output.FromCatalog(entries, true))
}

func writeArtwork(cmd *cobra.Command, app AppContext, ingestor *ingest.Ingestor, entry *catalog.Entry, dst string) error {
	if entry.Format() == catalog.Archived {
		return errors.NewValidationError("gdtex", entry.SourcePath(), "artwork cannot be read from an archive")
	}
	image := filepath.Join(entry.Folder(), entry.PrimaryFile())
	data, err := ingestor.ReadDiscFile(cmd.Context(), image, ArtworkFile)
	if err != nil {
		return err
	}
	if data == nil {
		return errors.NewNotFoundError("file", ArtworkFile)
	}
	if err := afero.WriteFile(app.Fs(), dst, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", dst, err)
	}
	app.Logger().Info().Str("path", dst).Int("bytes", len(data)).Msg("Artwork written")
	return nil
}
