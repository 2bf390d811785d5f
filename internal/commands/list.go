package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/packseal/packseal/internal/storage"
	s3store "github.com/packseal/packseal/internal/storage/s3"
)

// NewListCommand creates the list subcommand.
func NewListCommand(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sealed packages in the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.newStore(cmd)
			if err != nil {
				return err
			}

			infos, err := store.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", info.Name, info.Size, info.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list packages under this prefix")

	return cmd
}

// newStore builds the remote package store from configuration.
func (a *app) newStore(cmd *cobra.Command) (storage.Store, error) {
	if a.cfg.Remote.Bucket == "" {
		return nil, fmt.Errorf("no remote store configured (set remote.bucket)")
	}
	return s3store.New(cmd.Context(), &a.cfg.Remote)
}
