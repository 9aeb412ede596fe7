// Package gdcli converts declarative workspaces between the API model and
// the analytics-as-code layout on disk.
package gdcli

import (
	"context"
	"path/filepath"

	"github.com/gooddata/gdc/pkg/catalog"
)

// Transformer moves workspaces between the declarative model and the
// layout under an organization root.
type Transformer interface {
	// StreamIn writes ws into the layout under root.
	StreamIn(ctx context.Context, root string, ws *catalog.DeclarativeWorkspaces) error
	// StreamOut reads the layout under root back into the declarative model.
	StreamOut(ctx context.Context, root string) (*catalog.DeclarativeWorkspaces, error)
}

// NativeLayout stores workspaces as plain declarative YAML under
// analytics/workspaces without calling gd.
type NativeLayout struct{}

var _ Transformer = NativeLayout{}

func (NativeLayout) StreamIn(_ context.Context, root string, ws *catalog.DeclarativeWorkspaces) error {
	return ws.StoreToDisk(filepath.Join(root, catalog.LayoutAnalyticsDir))
}

func (NativeLayout) StreamOut(_ context.Context, root string) (*catalog.DeclarativeWorkspaces, error) {
	return catalog.LoadWorkspacesFromDisk(filepath.Join(root, catalog.LayoutAnalyticsDir))
}
