package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooddata/gdc/pkg/api"
	"github.com/gooddata/gdc/pkg/api/apitest"
	"github.com/gooddata/gdc/pkg/catalog"
)

func TestClient_SendsAuthAndHeaders(t *testing.T) {
	srv := apitest.NewServer(t)
	c := api.NewClient(srv.URL+"/", apitest.Token, api.WithHeaders(map[string]string{"X-GDC-Tenant": "acme"}))

	_, err := c.GetDeclarativeUsers(context.Background())
	require.NoError(t, err)

	require.Len(t, srv.Requests, 1)
	req := srv.Requests[0]
	assert.Equal(t, "/api/v1/layout/users", req.Path)
	assert.Equal(t, "Bearer "+apitest.Token, req.Header.Get("Authorization"))
	assert.Equal(t, "acme", req.Header.Get("X-GDC-Tenant"))
	_, err = uuid.Parse(req.Header.Get("X-Request-Id"))
	assert.NoError(t, err)
}

func TestClient_RoundTripsEveryCollection(t *testing.T) {
	ctx := context.Background()
	srv := apitest.NewServer(t)
	c := api.NewClient(srv.URL, apitest.Token)

	ds := &catalog.DeclarativeDataSources{DataSources: []catalog.DeclarativeDataSource{
		{ID: "demo-ds", Name: "Demo", Type: "POSTGRESQL", Schema: "demo", Password: "secret"},
	}}
	require.NoError(t, c.PutDeclarativeDataSources(ctx, ds))
	assert.Equal(t, "secret", srv.DataSources.DataSources[0].Password)

	groups := &catalog.DeclarativeUserGroups{UserGroups: []catalog.DeclarativeUserGroup{{ID: "admins", Name: "Admins"}}}
	require.NoError(t, c.PutDeclarativeUserGroups(ctx, groups))
	gotGroups, err := c.GetDeclarativeUserGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, groups, gotGroups)

	users := &catalog.DeclarativeUsers{Users: []catalog.DeclarativeUser{{ID: "admin", UserGroups: []catalog.Identifier{{ID: "admins", Type: "userGroup"}}}}}
	require.NoError(t, c.PutDeclarativeUsers(ctx, users))
	gotUsers, err := c.GetDeclarativeUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, gotUsers)

	wdf := &catalog.DeclarativeWorkspaceDataFilters{WorkspaceDataFilters: []catalog.DeclarativeWorkspaceDataFilter{
		{ID: "region", Title: "Region", ColumnName: "wdf__region", Workspace: catalog.Identifier{ID: "demo", Type: "workspace"}},
	}}
	require.NoError(t, c.PutDeclarativeWorkspaceDataFilters(ctx, wdf))
	gotWdf, err := c.GetDeclarativeWorkspaceDataFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, wdf.WorkspaceDataFilters, gotWdf.WorkspaceDataFilters)

	ws := &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{{ID: "demo", Name: "Demo"}}}
	require.NoError(t, c.PutDeclarativeWorkspaces(ctx, ws))
	gotWs, err := c.GetDeclarativeWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, gotWs.Workspaces, 1)
	assert.Equal(t, "demo", gotWs.Workspaces[0].ID)
	assert.Empty(t, gotWs.WorkspaceDataFilters)

	assert.Equal(t, []string{
		"/api/v1/layout/dataSources",
		"/api/v1/layout/userGroups",
		"/api/v1/layout/users",
		"/api/v1/layout/workspaceDataFilters",
		"/api/v1/layout/workspaces",
	}, srv.Puts())
}

func TestClient_ErrorResponse(t *testing.T) {
	ctx := context.Background()
	srv := apitest.NewServer(t)

	t.Run("unauthorized", func(t *testing.T) {
		c := api.NewClient(srv.URL, "wrong")
		_, err := c.GetDeclarativeWorkspaces(ctx)

		var apiErr *api.Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "invalid bearer token", apiErr.Message)
		assert.Contains(t, err.Error(), "GET /api/v1/layout/workspaces")
	})

	t.Run("server failure", func(t *testing.T) {
		srv.FailPath = "/api/v1/layout/users"
		c := api.NewClient(srv.URL, apitest.Token)
		err := c.PutDeclarativeUsers(ctx, &catalog.DeclarativeUsers{})

		var apiErr *api.Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	})
}

func TestClient_ConnectionError(t *testing.T) {
	c := api.NewClient("http://127.0.0.1:1", apitest.Token)
	_, err := c.GetDeclarativeDataSources(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to")
}
