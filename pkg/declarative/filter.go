package declarative

import (
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gooddata/gdc/pkg/catalog"
)

// FilterWorkspaces keeps the workspaces whose ids are listed, in the order
// of ids. Workspace data filters are copied unchanged. Ids with no matching
// workspace are returned in missing.
func FilterWorkspaces(ws *catalog.DeclarativeWorkspaces, ids []string) (filtered *catalog.DeclarativeWorkspaces, missing []string) {
	byID := make(map[string]catalog.DeclarativeWorkspace, len(ws.Workspaces))
	for _, w := range ws.Workspaces {
		byID[w.ID] = w
	}

	filtered = &catalog.DeclarativeWorkspaces{WorkspaceDataFilters: ws.WorkspaceDataFilters, Extra: ws.Extra}
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, id := range ids {
		if !seen.Add(id) {
			continue
		}
		w, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		filtered.Workspaces = append(filtered.Workspaces, w)
	}
	return filtered, missing
}

// FilterDataSources keeps the data sources whose ids are listed, in the
// order of ids. Unknown ids are logged and skipped.
func FilterDataSources(logger *slog.Logger, ds *catalog.DeclarativeDataSources, ids []string) *catalog.DeclarativeDataSources {
	logger.Info("processing data sources", "ids", strings.Join(ids, ","))

	byID := make(map[string]catalog.DeclarativeDataSource, len(ds.DataSources))
	for _, d := range ds.DataSources {
		byID[d.ID] = d
	}

	out := &catalog.DeclarativeDataSources{DataSources: []catalog.DeclarativeDataSource{}, Extra: ds.Extra}
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, id := range ids {
		if !seen.Add(id) {
			continue
		}
		d, ok := byID[id]
		if !ok {
			logger.Warn("requested data source not found", "id", id)
			continue
		}
		out.DataSources = append(out.DataSources, d)
	}
	return out
}
