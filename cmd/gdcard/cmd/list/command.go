// Package list implements the list command.
package list

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/gdcard"
	"github.com/agentstation/gdcard/internal/cmd/output"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
)

// AppContext defines the interface that the list command needs from the app.
type AppContext interface {
	Manager(opts ...gdcard.Option) (*gdcard.Manager, error)
	Logger() *zerolog.Logger
	Format() string
}

// NewCommand creates the list command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "core",
		Short:   "List the games on the card",
		Long: `List reads the slot folders of the card and prints one row per game.

Folders that cannot be read are reported as warnings; the remaining
games are still listed.`,
		Example: `  gdcard list --sd /media/sd
  gdcard list --sd /media/sd -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app)
		},
	}
	cmd.Flags().Bool("headers", false, "include decoded boot headers in json/yaml output")
	return cmd
}

func run(cmd *cobra.Command, app AppContext) error {
	format, err := output.ParseFormat(app.Format())
	if err != nil {
		return err
	}
	withHeaders, err := cmd.Flags().GetBool("headers")
	if err != nil {
		return err
	}

	manager, err := app.Manager()
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), app.Logger())
	if err := manager.LoadFromMedia(ctx); err != nil {
		if errors.IsCanceled(err) {
			return err
		}
		app.Logger().Warn().Err(err).Msg("Some folders could not be read")
	}

	entries := output.FromCatalog(manager.Entries(), withHeaders)
	return output.NewFormatter(output.DetectFormat(string(format))).Format(cmd.OutOrStdout(), entries)
}
