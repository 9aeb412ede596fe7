package declarative

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gooddata/gdc/pkg/api"
	"github.com/gooddata/gdc/pkg/api/apitest"
	"github.com/gooddata/gdc/pkg/catalog"
)

// fakeTransformer records stream-in payloads and serves a fixed stream-out.
type fakeTransformer struct {
	streamedIn []*catalog.DeclarativeWorkspaces
	out        *catalog.DeclarativeWorkspaces
	err        error
}

func (f *fakeTransformer) StreamIn(_ context.Context, _ string, ws *catalog.DeclarativeWorkspaces) error {
	f.streamedIn = append(f.streamedIn, ws)
	return f.err
}

func (f *fakeTransformer) StreamOut(_ context.Context, _ string) (*catalog.DeclarativeWorkspaces, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newOrgRoot creates a directory with the gooddata.yaml marker.
func newOrgRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, catalog.RootMarkerFile), []byte("profiles: {}\n"), 0o644))
	return root
}

func newClient(srv *apitest.Server) *api.Client {
	return api.NewClient(srv.URL, apitest.Token, api.WithLogger(discardLogger()))
}

func mustSettings(t *testing.T, action Action, opts ...SettingsOption) Settings {
	t.Helper()
	s, err := NewSettings(action, opts...)
	require.NoError(t, err)
	return s
}

func workspace(id string) catalog.DeclarativeWorkspace {
	return catalog.DeclarativeWorkspace{ID: id, Name: id}
}

func workspaceWithModel(id, dataSourceID string) catalog.DeclarativeWorkspace {
	ws := workspace(id)
	ws.Model = &catalog.DeclarativeModel{Ldm: &catalog.DeclarativeLdm{
		Datasets: []catalog.DeclarativeDataset{{
			ID:    "orders",
			Title: "Orders",
			DataSourceTableID: &catalog.DataSourceTableIdentifier{
				ID: "Orders", DataSourceID: dataSourceID, Type: "dataSource", Path: []string{"Orders"},
			},
			Attributes: []catalog.DeclarativeAttribute{{
				ID: "order_id", Title: "Order", SourceColumn: "Order_Id",
				Labels: []catalog.DeclarativeLabel{},
			}},
		}},
	}}
	return ws
}

func stepNames(reports []StepReport) []string {
	var out []string
	for _, r := range reports {
		out = append(out, r.Step)
	}
	return out
}
