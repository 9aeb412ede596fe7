package declarative

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooddata/gdc/pkg/api/apitest"
	"github.com/gooddata/gdc/pkg/catalog"
	"github.com/gooddata/gdc/pkg/gdcli"
)

// writeLayout stores a small organization under root/analytics.
func writeLayout(t *testing.T, root string, withCreds bool) {
	t.Helper()
	analytics := filepath.Join(root, "analytics")

	ds := &catalog.DeclarativeDataSources{DataSources: []catalog.DeclarativeDataSource{
		{ID: "demo-ds", Name: "Demo", Type: "POSTGRESQL", Schema: "demo", Username: "demo"},
		{ID: "bq", Name: "BigQuery", Type: "BIGQUERY", Schema: "analytics"},
	}}
	require.NoError(t, ds.StoreToDisk(analytics))
	require.NoError(t, (&catalog.DeclarativeUserGroups{UserGroups: []catalog.DeclarativeUserGroup{{ID: "admins"}}}).StoreToDisk(analytics))
	require.NoError(t, (&catalog.DeclarativeUsers{Users: []catalog.DeclarativeUser{{ID: "admin"}}}).StoreToDisk(analytics))
	require.NoError(t, (&catalog.DeclarativeWorkspaceDataFilters{WorkspaceDataFilters: []catalog.DeclarativeWorkspaceDataFilter{
		{ID: "local-filter", Title: "Local", ColumnName: "wdf__local"},
	}}).StoreToDisk(analytics))

	if withCreds {
		creds := "data_sources:\n  demo-ds: pg-secret\n  bq: bq-token\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, catalog.CredentialsFile), []byte(creds), 0o600))
	}
}

func TestDeployAll_WholeOrganization(t *testing.T) {
	srv := apitest.NewServer(t)
	serverFilters := []catalog.DeclarativeWorkspaceDataFilter{{ID: "server-filter", Title: "Server", ColumnName: "wdf__server"}}
	srv.WorkspaceDataFilters.WorkspaceDataFilters = serverFilters

	root := newOrgRoot(t)
	writeLayout(t, root, true)

	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{workspace("ws1"), workspace("ws2")}}}
	inst := NewInstrument(discardLogger(), "")
	d := NewDeployer(newClient(srv), tr, inst, discardLogger())

	require.NoError(t, d.DeployAll(context.Background(), root, mustSettings(t, ActionDeploy)))

	assert.Equal(t, []string{
		"/api/v1/layout/dataSources",
		"/api/v1/layout/userGroups",
		"/api/v1/layout/users",
		"/api/v1/layout/workspaceDataFilters",
		"/api/v1/layout/workspaces",
	}, srv.Puts())
	assert.Equal(t, []string{StepDataSources, StepUserGroups, StepUsers, StepWorkspaceDataFilters, StepWorkspaces}, stepNames(inst.Reports()))

	require.Len(t, srv.DataSources.DataSources, 2)
	assert.Equal(t, "bq-token", srv.DataSources.DataSources[0].Token)
	assert.Equal(t, "pg-secret", srv.DataSources.DataSources[1].Password)

	// The filters deployed in the previous step are fetched and kept.
	assert.Equal(t, "local-filter", srv.Workspaces.WorkspaceDataFilters[0].ID)
	assert.Len(t, srv.Workspaces.Workspaces, 2)
}

func TestDeployAll_MissingCredentials(t *testing.T) {
	srv := apitest.NewServer(t)
	root := newOrgRoot(t)
	writeLayout(t, root, false)

	d := NewDeployer(newClient(srv), &fakeTransformer{}, NewInstrument(discardLogger(), ""), discardLogger())
	err := d.DeployAll(context.Background(), root, mustSettings(t, ActionDeploy))
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Empty(t, srv.Puts())
}

func TestDeployAll_DataSourceFilter(t *testing.T) {
	srv := apitest.NewServer(t)
	root := newOrgRoot(t)
	writeLayout(t, root, true)

	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{}}
	d := NewDeployer(newClient(srv), tr, NewInstrument(discardLogger(), ""), discardLogger())
	s := mustSettings(t, ActionDeploy, WithDataSources("demo-ds", "unknown"))

	require.NoError(t, d.DeployAll(context.Background(), root, s))
	require.Len(t, srv.DataSources.DataSources, 1)
	assert.Equal(t, "demo-ds", srv.DataSources.DataSources[0].ID)
}

func TestDeployAll_PatchReplacesOnlySelectedWorkspace(t *testing.T) {
	srv := apitest.NewServer(t)
	filters := []catalog.DeclarativeWorkspaceDataFilter{{ID: "region", Title: "Region", ColumnName: "wdf__region"}}
	ws1 := workspace("ws1")
	ws1.Description = "server version"
	srv.Workspaces = catalog.DeclarativeWorkspaces{
		Workspaces:           []catalog.DeclarativeWorkspace{workspace("ws0"), ws1, workspace("ws2")},
		WorkspaceDataFilters: filters,
	}

	local := workspace("ws1")
	local.Description = "local version"
	other := workspace("ws2")
	other.Description = "local ws2 is not deployed"
	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{local, other}}}

	root := newOrgRoot(t)
	d := NewDeployer(newClient(srv), tr, NewInstrument(discardLogger(), ""), discardLogger())
	s := mustSettings(t, ActionDeploy, WithWorkspace("ws1"), WithPatch(true))

	require.NoError(t, d.DeployAll(context.Background(), root, s))

	got := srv.Workspaces.Workspaces
	require.Len(t, got, 3)
	assert.Equal(t, []string{"ws0", "ws1", "ws2"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "local version", got[1].Description)
	assert.Empty(t, got[2].Description)
	assert.Equal(t, filters, srv.Workspaces.WorkspaceDataFilters)
}

func TestDeployAll_PatchAppendsNewWorkspace(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Workspaces = catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{workspace("ws0")}}

	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{workspace("new")}}}
	d := NewDeployer(newClient(srv), tr, NewInstrument(discardLogger(), ""), discardLogger())

	require.NoError(t, d.DeployAll(context.Background(), newOrgRoot(t), mustSettings(t, ActionDeploy, WithWorkspace("new"), WithPatch(true))))
	require.Len(t, srv.Workspaces.Workspaces, 2)
	assert.Equal(t, "new", srv.Workspaces.Workspaces[1].ID)
}

func TestDeployAll_SingleWorkspaceWithoutPatch(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Workspaces = catalog.DeclarativeWorkspaces{
		Workspaces:           []catalog.DeclarativeWorkspace{workspace("ws0"), workspace("ws1")},
		WorkspaceDataFilters: []catalog.DeclarativeWorkspaceDataFilter{{ID: "region", Title: "Region", ColumnName: "wdf__region"}},
	}

	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{workspace("ws1")}}}
	inst := NewInstrument(discardLogger(), "")
	d := NewDeployer(newClient(srv), tr, inst, discardLogger())

	require.NoError(t, d.DeployAll(context.Background(), newOrgRoot(t), mustSettings(t, ActionDeploy, WithWorkspace("ws1"))))

	require.Len(t, srv.Workspaces.Workspaces, 1)
	assert.Equal(t, "ws1", srv.Workspaces.Workspaces[0].ID)
	assert.Empty(t, srv.Workspaces.WorkspaceDataFilters)
	assert.Equal(t, []string{StepWorkspace}, stepNames(inst.Reports()))
}

func TestDeployAll_UnknownWorkspace(t *testing.T) {
	srv := apitest.NewServer(t)
	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{workspace("ws1")}}}
	d := NewDeployer(newClient(srv), tr, NewInstrument(discardLogger(), ""), discardLogger())

	err := d.DeployAll(context.Background(), newOrgRoot(t), mustSettings(t, ActionDeploy, WithWorkspace("nope")))
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
	assert.Empty(t, srv.Puts())
}

func TestDeployAll_AppliesMappingAndCase(t *testing.T) {
	srv := apitest.NewServer(t)
	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{
		workspaceWithModel("ws1", "dev-ds"),
	}}}
	d := NewDeployer(newClient(srv), tr, NewInstrument(discardLogger(), ""), discardLogger())
	s := mustSettings(t, ActionDeploy,
		WithWorkspace("ws1"),
		WithColumnsCase(catalog.CaseUpper),
		WithDataSourceMapping(map[string]string{"dev-ds": "prod-ds"}),
	)

	require.NoError(t, d.DeployAll(context.Background(), newOrgRoot(t), s))

	require.Len(t, srv.Workspaces.Workspaces, 1)
	dataset := srv.Workspaces.Workspaces[0].Model.Ldm.Datasets[0]
	assert.Equal(t, "prod-ds", dataset.DataSourceTableID.DataSourceID)
	assert.Equal(t, "ORDERS", dataset.DataSourceTableID.ID)
	assert.Equal(t, "ORDER_ID", dataset.Attributes[0].SourceColumn)
}

func TestDeployAll_TransformerFailure(t *testing.T) {
	srv := apitest.NewServer(t)
	root := newOrgRoot(t)
	writeLayout(t, root, true)

	tr := &fakeTransformer{err: errors.New("gd stream-out: exit status 1")}
	d := NewDeployer(newClient(srv), tr, NewInstrument(discardLogger(), ""), discardLogger())

	err := d.DeployAll(context.Background(), root, mustSettings(t, ActionDeploy))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy workspaces")
	assert.NotContains(t, srv.Puts(), "/api/v1/layout/workspaces")
}

func TestDeployGranular(t *testing.T) {
	srv := apitest.NewServer(t)
	root := newOrgRoot(t)
	writeLayout(t, root, false)

	inst := NewInstrument(discardLogger(), "")
	d := NewDeployer(newClient(srv), &fakeTransformer{}, inst, discardLogger())

	require.NoError(t, d.DeployGranular(context.Background(), filepath.Join(root, "analytics", "user_groups"), mustSettings(t, ActionDeploy)))
	assert.Equal(t, []string{"/api/v1/layout/userGroups"}, srv.Puts())
	assert.Equal(t, "admins", srv.UserGroups.UserGroups[0].ID)

	err := d.DeployGranular(context.Background(), filepath.Join(root, "analytics", "data_sources"), mustSettings(t, ActionDeploy))
	assert.ErrorIs(t, err, ErrMissingCredentials)

	err = d.DeployGranular(context.Background(), filepath.Join(root, "somewhere", "users"), mustSettings(t, ActionDeploy))
	assert.ErrorIs(t, err, ErrUnsupportedPath)
}

func TestDeployGranular_WorkspacesWithPatch(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Workspaces = catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{workspace("ws0"), workspace("ws1")}}

	root := newOrgRoot(t)
	local := workspace("ws1")
	local.Description = "patched"
	require.NoError(t, (&catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{local}}).StoreToDisk(filepath.Join(root, "analytics")))

	inst := NewInstrument(discardLogger(), "")
	d := NewDeployer(newClient(srv), gdcli.NativeLayout{}, inst, discardLogger())
	s := mustSettings(t, ActionDeploy, WithWorkspace("ws1"), WithPatch(true))

	require.NoError(t, d.DeployGranular(context.Background(), filepath.Join(root, "analytics", "workspaces"), s))
	require.Len(t, srv.Workspaces.Workspaces, 2)
	assert.Equal(t, "patched", srv.Workspaces.Workspaces[1].Description)
	assert.Equal(t, []string{StepWorkspace}, stepNames(inst.Reports()))
}

func TestPatchWorkspace(t *testing.T) {
	in := []catalog.DeclarativeWorkspace{workspace("a"), workspace("b")}
	repl := workspace("a")
	repl.Description = "new"

	out := patchWorkspace(in, repl)
	assert.Equal(t, "new", out[0].Description)
	assert.Empty(t, in[0].Description, "input is not modified")
	assert.Len(t, patchWorkspace(in, workspace("c")), 3)
}

// serverWorkspaces carries keys the model types do not name, at every level.
const serverWorkspaces = `{
  "workspaces": [
    {"id": "ws1", "name": "one", "prefix": "p1"},
    {
      "id": "ws2", "name": "two", "prefix": "p2", "cacheExtraLimit": 1024, "earlyAccessValues": ["beta"],
      "model": {"ldm": {
        "datasets": [{
          "id": "d", "title": "D", "precedence": 2, "grain": [], "references": [],
          "attributes": [{"id": "a", "title": "A", "sourceColumn": "c", "labels": [], "isHidden": true, "locale": "en-US"}]
        }],
        "dateInstances": []
      }}
    }
  ],
  "workspaceDataFilters": [
    {"id": "region", "title": "Region", "columnName": "wdf__region", "workspace": {"id": "ws1", "type": "workspace"},
     "workspaceDataFilterSettings": [], "filterType": "STRING"}
  ]
}`

type workspacesDocument struct {
	Workspaces           []json.RawMessage `json:"workspaces"`
	WorkspaceDataFilters json.RawMessage   `json:"workspaceDataFilters"`
}

func splitWorkspacesDocument(t *testing.T, body []byte) workspacesDocument {
	t.Helper()
	require.NotNil(t, body)
	var doc workspacesDocument
	require.NoError(t, json.Unmarshal(body, &doc))
	return doc
}

func TestDeployAll_PatchSendsOtherWorkspacesUnchanged(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Raw = map[string]string{"/api/v1/layout/workspaces": serverWorkspaces}

	local := workspace("ws1")
	local.Description = "local version"
	tr := &fakeTransformer{out: &catalog.DeclarativeWorkspaces{Workspaces: []catalog.DeclarativeWorkspace{local}}}
	d := NewDeployer(newClient(srv), tr, NewInstrument(discardLogger(), ""), discardLogger())

	require.NoError(t, d.DeployAll(context.Background(), newOrgRoot(t), mustSettings(t, ActionDeploy, WithWorkspace("ws1"), WithPatch(true))))

	want := splitWorkspacesDocument(t, []byte(serverWorkspaces))
	got := splitWorkspacesDocument(t, srv.LastPut("/api/v1/layout/workspaces"))
	require.Len(t, got.Workspaces, 2)
	assert.JSONEq(t, `{"id":"ws1","name":"ws1","description":"local version"}`, string(got.Workspaces[0]))
	assert.JSONEq(t, string(want.Workspaces[1]), string(got.Workspaces[1]))
	assert.JSONEq(t, string(want.WorkspaceDataFilters), string(got.WorkspaceDataFilters))
}

func TestCloneThenDeploy_KeepsWorkspaceDocuments(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Raw = map[string]string{"/api/v1/layout/workspaces": serverWorkspaces}
	root := newOrgRoot(t)

	c := NewCloner(newClient(srv), gdcli.NativeLayout{}, NewInstrument(discardLogger(), ""), discardLogger())
	require.NoError(t, c.CloneAll(context.Background(), root, mustSettings(t, ActionClone)))

	d := NewDeployer(newClient(srv), gdcli.NativeLayout{}, NewInstrument(discardLogger(), ""), discardLogger())
	require.NoError(t, d.DeployGranular(context.Background(), filepath.Join(root, "analytics", "workspaces"), mustSettings(t, ActionDeploy)))

	want := splitWorkspacesDocument(t, []byte(serverWorkspaces))
	got := splitWorkspacesDocument(t, srv.LastPut("/api/v1/layout/workspaces"))
	require.Len(t, got.Workspaces, len(want.Workspaces))
	for i := range want.Workspaces {
		assert.JSONEq(t, string(want.Workspaces[i]), string(got.Workspaces[i]))
	}
}
