package main

import (
	"github.com/spf13/cobra"

	"github.com/gooddata/gdc/pkg/declarative"
)

func newDeployCmd(g *globalOptions) *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the layout to the organization",
		Long: `Deploy data sources, user groups, users, workspace data filters and
workspaces from analytics/ to the organization.

Deploying data sources requires ds_creds.yaml next to analytics/, with an
entry for every data source that has a username, a client id or a token
based type. With --workspace only that workspace is deployed; --patch keeps
every other workspace on the server as it is.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := o.settings(declarative.ActionDeploy)
			if err != nil {
				return err
			}
			s, err := g.openSession()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			d := declarative.NewDeployer(s.client, s.transformer, s.instrument, g.logger)
			if s.granular {
				err = d.DeployGranular(ctx, s.dir, settings)
			} else {
				err = d.DeployAll(ctx, s.dir, settings)
			}
			return g.finish(ctx, s, err)
		},
	}

	addRunFlags(cmd.Flags(), &o)
	return cmd
}
