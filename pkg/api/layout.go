package api

import (
	"context"

	"github.com/gooddata/gdc/pkg/catalog"
)

const (
	layoutDataSourcesPath          = "/api/v1/layout/dataSources"
	layoutUserGroupsPath           = "/api/v1/layout/userGroups"
	layoutUsersPath                = "/api/v1/layout/users"
	layoutWorkspaceDataFiltersPath = "/api/v1/layout/workspaceDataFilters"
	layoutWorkspacesPath           = "/api/v1/layout/workspaces"
)

// GetDeclarativeDataSources fetches all data sources of the organization.
func (c *Client) GetDeclarativeDataSources(ctx context.Context) (*catalog.DeclarativeDataSources, error) {
	var out catalog.DeclarativeDataSources
	if err := c.getJSON(ctx, layoutDataSourcesPath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutDeclarativeDataSources replaces all data sources. Credentials must
// already be injected.
func (c *Client) PutDeclarativeDataSources(ctx context.Context, ds *catalog.DeclarativeDataSources) error {
	return c.putJSON(ctx, layoutDataSourcesPath, ds.ToAPI())
}

func (c *Client) GetDeclarativeUserGroups(ctx context.Context) (*catalog.DeclarativeUserGroups, error) {
	var out catalog.DeclarativeUserGroups
	if err := c.getJSON(ctx, layoutUserGroupsPath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutDeclarativeUserGroups(ctx context.Context, g *catalog.DeclarativeUserGroups) error {
	return c.putJSON(ctx, layoutUserGroupsPath, g.ToAPI())
}

func (c *Client) GetDeclarativeUsers(ctx context.Context) (*catalog.DeclarativeUsers, error) {
	var out catalog.DeclarativeUsers
	if err := c.getJSON(ctx, layoutUsersPath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutDeclarativeUsers(ctx context.Context, u *catalog.DeclarativeUsers) error {
	return c.putJSON(ctx, layoutUsersPath, u.ToAPI())
}

func (c *Client) GetDeclarativeWorkspaceDataFilters(ctx context.Context) (*catalog.DeclarativeWorkspaceDataFilters, error) {
	var out catalog.DeclarativeWorkspaceDataFilters
	if err := c.getJSON(ctx, layoutWorkspaceDataFiltersPath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutDeclarativeWorkspaceDataFilters(ctx context.Context, f *catalog.DeclarativeWorkspaceDataFilters) error {
	return c.putJSON(ctx, layoutWorkspaceDataFiltersPath, f.ToAPI())
}

// GetDeclarativeWorkspaces fetches all workspaces together with the
// workspace data filters.
func (c *Client) GetDeclarativeWorkspaces(ctx context.Context) (*catalog.DeclarativeWorkspaces, error) {
	var out catalog.DeclarativeWorkspaces
	if err := c.getJSON(ctx, layoutWorkspacesPath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutDeclarativeWorkspaces replaces all workspaces. Workspaces missing from
// ws are deleted on the server.
func (c *Client) PutDeclarativeWorkspaces(ctx context.Context, ws *catalog.DeclarativeWorkspaces) error {
	return c.putJSON(ctx, layoutWorkspacesPath, ws.ToAPI())
}
