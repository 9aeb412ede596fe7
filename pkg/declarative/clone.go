package declarative

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gooddata/gdc/pkg/catalog"
	"github.com/gooddata/gdc/pkg/gdcli"
)

// LayoutAPI is the part of the REST API the orchestrators use.
type LayoutAPI interface {
	GetDeclarativeDataSources(ctx context.Context) (*catalog.DeclarativeDataSources, error)
	PutDeclarativeDataSources(ctx context.Context, ds *catalog.DeclarativeDataSources) error
	GetDeclarativeUserGroups(ctx context.Context) (*catalog.DeclarativeUserGroups, error)
	PutDeclarativeUserGroups(ctx context.Context, g *catalog.DeclarativeUserGroups) error
	GetDeclarativeUsers(ctx context.Context) (*catalog.DeclarativeUsers, error)
	PutDeclarativeUsers(ctx context.Context, u *catalog.DeclarativeUsers) error
	GetDeclarativeWorkspaceDataFilters(ctx context.Context) (*catalog.DeclarativeWorkspaceDataFilters, error)
	PutDeclarativeWorkspaceDataFilters(ctx context.Context, f *catalog.DeclarativeWorkspaceDataFilters) error
	GetDeclarativeWorkspaces(ctx context.Context) (*catalog.DeclarativeWorkspaces, error)
	PutDeclarativeWorkspaces(ctx context.Context, ws *catalog.DeclarativeWorkspaces) error
}

// Step names shared by clone and deploy.
const (
	StepDataSources          = "data sources"
	StepUserGroups           = "user groups"
	StepUsers                = "users"
	StepWorkspaceDataFilters = "workspace data filters"
	StepWorkspaces           = "workspaces"
	StepWorkspace            = "workspace"
	StepCommit               = "commit"
)

// Cloner writes the organization's declarative state into the layout.
type Cloner struct {
	api         LayoutAPI
	transformer gdcli.Transformer
	instrument  *Instrument
	logger      *slog.Logger
}

// NewCloner creates a Cloner.
func NewCloner(api LayoutAPI, transformer gdcli.Transformer, instrument *Instrument, logger *slog.Logger) *Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloner{api: api, transformer: transformer, instrument: instrument, logger: logger}
}

// CloneAll replaces <root>/analytics with the current server state. With a
// workspace selected only that workspace is cloned, but analytics is still
// cleared first.
func (c *Cloner) CloneAll(ctx context.Context, root string, s Settings) error {
	if err := checkRoot(root); err != nil {
		return err
	}
	analytics := filepath.Join(root, catalog.LayoutAnalyticsDir)

	if err := os.RemoveAll(analytics); err != nil {
		return fmt.Errorf("clearing %s: %w", analytics, err)
	}
	if err := catalog.CreateDirectory(analytics); err != nil {
		return err
	}

	if s.Workspace() == "" {
		c.logger.Info("cloning the whole organization", "root", root)
		steps := []struct {
			name string
			fn   func(context.Context) error
		}{
			{StepDataSources, func(ctx context.Context) error { return c.cloneDataSources(ctx, analytics) }},
			{StepUserGroups, func(ctx context.Context) error { return c.cloneUserGroups(ctx, analytics) }},
			{StepUsers, func(ctx context.Context) error { return c.cloneUsers(ctx, analytics) }},
			{StepWorkspaceDataFilters, func(ctx context.Context) error { return c.cloneWorkspaceDataFilters(ctx, analytics) }},
			{StepWorkspaces, func(ctx context.Context) error { return c.cloneWorkspaces(ctx, root) }},
		}
		for _, step := range steps {
			if err := c.instrument.Step(ctx, ActionClone, step.name, step.fn); err != nil {
				return fmt.Errorf("clone %s: %w", step.name, err)
			}
		}
	} else {
		c.logger.Info("cloning workspace", "workspace", s.Workspace())
		if err := c.instrument.Step(ctx, ActionClone, StepWorkspace, func(ctx context.Context) error {
			return c.cloneWorkspace(ctx, root, s.Workspace())
		}); err != nil {
			return fmt.Errorf("clone %s: %w", StepWorkspace, err)
		}
	}

	c.logger.Info("cloning finished")
	return c.commit(ctx, root, s)
}

// CloneGranular refreshes a single subtree <root>/analytics/<name>. The
// subtree is cleared before the step runs.
func (c *Cloner) CloneGranular(ctx context.Context, dir string, s Settings) error {
	target, err := ResolveGranular(dir)
	if err != nil {
		return err
	}
	subtreeDir := filepath.Join(target.Analytics, target.Subtree)
	if err := os.RemoveAll(subtreeDir); err != nil {
		return fmt.Errorf("clearing %s: %w", subtreeDir, err)
	}

	var (
		step string
		fn   func(context.Context) error
	)
	switch target.Subtree {
	case catalog.LayoutDataSourcesDir:
		step, fn = StepDataSources, func(ctx context.Context) error { return c.cloneDataSources(ctx, target.Analytics) }
	case catalog.LayoutUserGroupsDir:
		step, fn = StepUserGroups, func(ctx context.Context) error { return c.cloneUserGroups(ctx, target.Analytics) }
	case catalog.LayoutUsersDir:
		step, fn = StepUsers, func(ctx context.Context) error { return c.cloneUsers(ctx, target.Analytics) }
	case catalog.LayoutWorkspaceDataFiltersDir:
		step, fn = StepWorkspaceDataFilters, func(ctx context.Context) error { return c.cloneWorkspaceDataFilters(ctx, target.Analytics) }
	case catalog.LayoutWorkspacesDir:
		if id := s.Workspace(); id != "" {
			step, fn = StepWorkspace, func(ctx context.Context) error { return c.cloneWorkspace(ctx, target.Root, id) }
		} else {
			step, fn = StepWorkspaces, func(ctx context.Context) error { return c.cloneWorkspaces(ctx, target.Root) }
		}
	}

	c.logger.Info("cloning subtree", "subtree", target.Subtree, "analytics", target.Analytics)
	if err := c.instrument.Step(ctx, ActionClone, step, fn); err != nil {
		return fmt.Errorf("clone %s: %w", step, err)
	}
	return c.commit(ctx, target.Root, s)
}

func (c *Cloner) commit(ctx context.Context, root string, s Settings) error {
	if s.CommitMessage() == "" {
		return nil
	}
	return c.instrument.Step(ctx, ActionClone, StepCommit, func(context.Context) error {
		_, err := commitSnapshot(c.logger, root, s.CommitMessage())
		return err
	})
}

func (c *Cloner) cloneDataSources(ctx context.Context, analytics string) error {
	ds, err := c.api.GetDeclarativeDataSources(ctx)
	if err != nil {
		return err
	}
	return ds.StoreToDisk(analytics)
}

func (c *Cloner) cloneUserGroups(ctx context.Context, analytics string) error {
	groups, err := c.api.GetDeclarativeUserGroups(ctx)
	if err != nil {
		return err
	}
	return groups.StoreToDisk(analytics)
}

func (c *Cloner) cloneUsers(ctx context.Context, analytics string) error {
	users, err := c.api.GetDeclarativeUsers(ctx)
	if err != nil {
		return err
	}
	return users.StoreToDisk(analytics)
}

func (c *Cloner) cloneWorkspaceDataFilters(ctx context.Context, analytics string) error {
	filters, err := c.api.GetDeclarativeWorkspaceDataFilters(ctx)
	if err != nil {
		return err
	}
	return filters.StoreToDisk(analytics)
}

func (c *Cloner) cloneWorkspaces(ctx context.Context, root string) error {
	ws, err := c.api.GetDeclarativeWorkspaces(ctx)
	if err != nil {
		return err
	}
	return c.transformer.StreamIn(ctx, root, ws)
}

func (c *Cloner) cloneWorkspace(ctx context.Context, root, id string) error {
	ws, err := c.api.GetDeclarativeWorkspaces(ctx)
	if err != nil {
		return err
	}
	filtered, missing := FilterWorkspaces(ws, []string{id})
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, strings.Join(missing, ", "))
	}
	return c.transformer.StreamIn(ctx, root, filtered)
}
