package declarative

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gooddata/gdc/pkg/catalog"
	"github.com/gooddata/gdc/pkg/gdcli"
)

// Deployer pushes the layout to the server.
type Deployer struct {
	api         LayoutAPI
	transformer gdcli.Transformer
	instrument  *Instrument
	logger      *slog.Logger
}

// NewDeployer creates a Deployer.
func NewDeployer(api LayoutAPI, transformer gdcli.Transformer, instrument *Instrument, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{api: api, transformer: transformer, instrument: instrument, logger: logger}
}

// DeployAll deploys every subtree of <root>/analytics, or only the selected
// workspace.
func (d *Deployer) DeployAll(ctx context.Context, root string, s Settings) error {
	if err := checkRoot(root); err != nil {
		return err
	}
	analytics := filepath.Join(root, catalog.LayoutAnalyticsDir)

	if s.Workspace() != "" {
		d.logger.Info("deploying workspace", "workspace", s.Workspace(), "patch", s.Patch())
		if err := d.instrument.Step(ctx, ActionDeploy, StepWorkspace, func(ctx context.Context) error {
			return d.deployWorkspace(ctx, root, s)
		}); err != nil {
			return fmt.Errorf("deploy %s: %w", StepWorkspace, err)
		}
		d.logger.Info("deployed", "workspace", s.Workspace())
		return nil
	}

	d.logger.Info("deploying the whole organization", "root", root)
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepDataSources, func(ctx context.Context) error { return d.deployDataSources(ctx, analytics, s.DataSourceIDs()) }},
		{StepUserGroups, func(ctx context.Context) error { return d.deployUserGroups(ctx, analytics) }},
		{StepUsers, func(ctx context.Context) error { return d.deployUsers(ctx, analytics) }},
		{StepWorkspaceDataFilters, func(ctx context.Context) error { return d.deployWorkspaceDataFilters(ctx, analytics) }},
		{StepWorkspaces, func(ctx context.Context) error { return d.deployWorkspaces(ctx, root, s) }},
	}
	for _, step := range steps {
		if err := d.instrument.Step(ctx, ActionDeploy, step.name, step.fn); err != nil {
			return fmt.Errorf("deploy %s: %w", step.name, err)
		}
	}
	d.logger.Info("deployed")
	return nil
}

// DeployGranular deploys the single subtree <root>/analytics/<name>. The
// workspaces subtree honours the workspace and patch settings.
func (d *Deployer) DeployGranular(ctx context.Context, dir string, s Settings) error {
	target, err := ResolveGranular(dir)
	if err != nil {
		return err
	}

	var (
		step string
		fn   func(context.Context) error
	)
	switch target.Subtree {
	case catalog.LayoutDataSourcesDir:
		step, fn = StepDataSources, func(ctx context.Context) error { return d.deployDataSources(ctx, target.Analytics, s.DataSourceIDs()) }
	case catalog.LayoutUserGroupsDir:
		step, fn = StepUserGroups, func(ctx context.Context) error { return d.deployUserGroups(ctx, target.Analytics) }
	case catalog.LayoutUsersDir:
		step, fn = StepUsers, func(ctx context.Context) error { return d.deployUsers(ctx, target.Analytics) }
	case catalog.LayoutWorkspaceDataFiltersDir:
		step, fn = StepWorkspaceDataFilters, func(ctx context.Context) error { return d.deployWorkspaceDataFilters(ctx, target.Analytics) }
	case catalog.LayoutWorkspacesDir:
		if s.Workspace() != "" {
			step, fn = StepWorkspace, func(ctx context.Context) error { return d.deployWorkspace(ctx, target.Root, s) }
		} else {
			step, fn = StepWorkspaces, func(ctx context.Context) error { return d.deployWorkspaces(ctx, target.Root, s) }
		}
	}

	d.logger.Info("deploying subtree", "subtree", target.Subtree, "analytics", target.Analytics)
	if err := d.instrument.Step(ctx, ActionDeploy, step, fn); err != nil {
		return fmt.Errorf("deploy %s: %w", step, err)
	}
	return nil
}

// deployDataSources requires ds_creds.yaml next to analytics. With ids
// set, only those data sources are deployed.
func (d *Deployer) deployDataSources(ctx context.Context, analytics string, ids []string) error {
	credsPath := filepath.Join(filepath.Dir(analytics), catalog.CredentialsFile)
	if _, err := os.Stat(credsPath); err != nil {
		return fmt.Errorf("%w: deploying %s needs credentials in %s", ErrMissingCredentials, catalog.LayoutDataSourcesDir, credsPath)
	}

	ds, err := catalog.LoadDataSourcesFromDisk(analytics)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		ds = FilterDataSources(d.logger, ds, ids)
	}

	creds, err := catalog.LoadCredentials(credsPath)
	if err != nil {
		return err
	}
	if err := ds.InjectCredentials(creds); err != nil {
		return err
	}
	return d.api.PutDeclarativeDataSources(ctx, ds)
}

func (d *Deployer) deployUserGroups(ctx context.Context, analytics string) error {
	groups, err := catalog.LoadUserGroupsFromDisk(analytics)
	if err != nil {
		return err
	}
	return d.api.PutDeclarativeUserGroups(ctx, groups)
}

func (d *Deployer) deployUsers(ctx context.Context, analytics string) error {
	users, err := catalog.LoadUsersFromDisk(analytics)
	if err != nil {
		return err
	}
	return d.api.PutDeclarativeUsers(ctx, users)
}

func (d *Deployer) deployWorkspaceDataFilters(ctx context.Context, analytics string) error {
	filters, err := catalog.LoadWorkspaceDataFiltersFromDisk(analytics)
	if err != nil {
		return err
	}
	return d.api.PutDeclarativeWorkspaceDataFilters(ctx, filters)
}

// deployWorkspaces replaces all workspaces. The server's workspace data
// filters are fetched first and sent back so they survive the put.
func (d *Deployer) deployWorkspaces(ctx context.Context, root string, s Settings) error {
	local, err := d.transformer.StreamOut(ctx, root)
	if err != nil {
		return err
	}
	prepareModels(local, s)

	filters, err := d.api.GetDeclarativeWorkspaceDataFilters(ctx)
	if err != nil {
		return err
	}
	return d.api.PutDeclarativeWorkspaces(ctx, &catalog.DeclarativeWorkspaces{
		Workspaces:           local.Workspaces,
		WorkspaceDataFilters: filters.WorkspaceDataFilters,
	})
}

// deployWorkspace deploys the selected workspace. With patch it replaces
// only that workspace among the server's workspaces. Without patch the put
// carries just this workspace and no workspace data filters.
func (d *Deployer) deployWorkspace(ctx context.Context, root string, s Settings) error {
	local, err := d.transformer.StreamOut(ctx, root)
	if err != nil {
		return err
	}
	selected, missing := FilterWorkspaces(local, []string{s.Workspace()})
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, s.Workspace())
	}
	selected.WorkspaceDataFilters = nil
	prepareModels(selected, s)
	ws := selected.Workspaces[0]

	if !s.Patch() {
		return d.api.PutDeclarativeWorkspaces(ctx, &catalog.DeclarativeWorkspaces{
			Workspaces:           []catalog.DeclarativeWorkspace{ws},
			WorkspaceDataFilters: []catalog.DeclarativeWorkspaceDataFilter{},
		})
	}

	server, err := d.api.GetDeclarativeWorkspaces(ctx)
	if err != nil {
		return err
	}
	server.Workspaces = patchWorkspace(server.Workspaces, ws)
	return d.api.PutDeclarativeWorkspaces(ctx, server)
}

// patchWorkspace replaces the workspace with the same id, keeping the order
// of the others, or appends ws when it is new.
func patchWorkspace(workspaces []catalog.DeclarativeWorkspace, ws catalog.DeclarativeWorkspace) []catalog.DeclarativeWorkspace {
	out := make([]catalog.DeclarativeWorkspace, 0, len(workspaces)+1)
	replaced := false
	for _, w := range workspaces {
		if w.ID == ws.ID {
			if replaced {
				continue
			}
			w = ws
			replaced = true
		}
		out = append(out, w)
	}
	if !replaced {
		out = append(out, ws)
	}
	return out
}

// prepareModels applies data source remapping and then case folding to the
// workspaces about to be deployed.
func prepareModels(ws *catalog.DeclarativeWorkspaces, s Settings) {
	if mapping := s.DataSourceMapping(); len(mapping) > 0 {
		ws.ModifyMappedDataSource(mapping)
	}
	ws.ChangeTablesColumnsCase(s.ColumnsCase())
}
