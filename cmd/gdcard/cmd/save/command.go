// Package save implements the save command.
package save

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/gdcard"
	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
	pkgsync "github.com/agentstation/gdcard/pkg/sync"
)

// AppContext defines the interface that the save command needs from the app.
type AppContext interface {
	Manager(opts ...gdcard.Option) (*gdcard.Manager, error)
	Logger() *zerolog.Logger
}

// Flags holds the catalog edits applied before saving.
type Flags struct {
	Add      []string
	Remove   []int
	Sort     bool
	RenameBy string
	Yes      bool
}

// NewCommand creates the save command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "save",
		GroupID: "core",
		Short:   "Edit the catalog and write it to the card",
		Long: `Save loads the card, applies the requested edits, asks for confirmation
and writes every game to its slot folder. The menu in slot 01 is rebuilt
from the final catalog.

Games that cannot be written are skipped and listed in the summary unless
unattended mode is turned off, in which case the first failure stops the
save.`,
		Example: `  gdcard save --sd /media/sd --add ~/games/Rez.7z --sort
  gdcard save --sd /media/sd --remove 5 --remove 7 --yes
  gdcard save --sd /media/sd --add ~/games/ikaruga --rename-by folder`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, flags)
		},
	}
	cmd.Flags().StringArrayVar(&flags.Add, "add", nil, "add a game from an image, folder or archive (repeatable)")
	cmd.Flags().IntSliceVar(&flags.Remove, "remove", nil, "remove the game in SLOT (repeatable)")
	cmd.Flags().BoolVar(&flags.Sort, "sort", false, "sort the catalog by name")
	cmd.Flags().StringVar(&flags.RenameBy, "rename-by", "", "rename added games by header, folder or file")
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func run(cmd *cobra.Command, app AppContext, flags *Flags) error {
	manager, err := app.Manager(gdcard.WithConfirmer(PromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())))
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), app.Logger())
	if err := Apply(ctx, manager, flags); err != nil {
		return err
	}

	result, err := manager.Save(ctx, pkgsync.WithAutoApprove(flags.Yes))
	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
	}
	return err
}

// Apply loads the card into manager and applies the edits in flags.
func Apply(ctx context.Context, manager *gdcard.Manager, flags *Flags) error {
	logger := logging.FromContext(ctx)

	// Step 1: Load the card
	if err := manager.LoadFromMedia(ctx); err != nil {
		if errors.IsCanceled(err) {
			return err
		}
		logger.Warn().Err(err).Msg("Some folders could not be read")
	}

	// Step 2: Remove slots
	if len(flags.Remove) > 0 {
		var remove []*catalog.Entry
		for _, slot := range flags.Remove {
			entry := bySlot(manager.Entries(), slot)
			if entry == nil {
				return errors.NewValidationError("remove", slot, "no game in this slot")
			}
			remove = append(remove, entry)
		}
		manager.Remove(remove...)
	}

	// Step 3: Add new games
	var added []*catalog.Entry
	manager.OnEntryAdded(func(e *catalog.Entry) { added = append(added, e) })
	rejected, err := manager.Add(ctx, flags.Add...)
	if err != nil {
		return err
	}
	if len(rejected) > 0 {
		logger.Warn().Strs("paths", rejected).Msg("Some games could not be added")
	}

	// Step 4: Rename added games
	if flags.RenameBy != "" {
		by, err := gdcard.ParseRenameBy(flags.RenameBy)
		if err != nil {
			return err
		}
		if err := manager.Rename(ctx, added, by); err != nil {
			return err
		}
	}

	// Step 5: Sort
	if flags.Sort {
		if err := manager.Sort(ctx); err != nil {
			return err
		}
	}
	return nil
}

func bySlot(entries []*catalog.Entry, slot int) *catalog.Entry {
	for _, e := range entries {
		if e.Slot() == slot {
			return e
		}
	}
	return nil
}
