package main

import (
	"github.com/spf13/cobra"

	"github.com/gooddata/gdc/pkg/declarative"
)

func newCloneCmd(g *globalOptions) *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Clone the organization into the layout",
		Long: `Replace analytics/ with the current declarative state of the organization.

In the organization root the whole analytics/ directory is recreated, even
with --workspace. Inside analytics/<subtree> only that subtree is refreshed.
With --commit the refreshed tree is committed when the directory is in a git
repository.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := o.settings(declarative.ActionClone)
			if err != nil {
				return err
			}
			s, err := g.openSession()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c := declarative.NewCloner(s.client, s.transformer, s.instrument, g.logger)
			if s.granular {
				err = c.CloneGranular(ctx, s.dir, settings)
			} else {
				err = c.CloneAll(ctx, s.dir, settings)
			}
			return g.finish(ctx, s, err)
		},
	}

	addRunFlags(cmd.Flags(), &o)
	cmd.Flags().StringVar(&o.commit, "commit", "", "Commit the cloned layout to git with this message")
	return cmd
}
