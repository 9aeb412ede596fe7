package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DeclarativeWorkspace is a workspace with its logical data model.
// Analytics, permissions and filters the tool does not transform are kept
// as opaque documents.
type DeclarativeWorkspace struct {
	ID                        string            `json:"id" yaml:"id"`
	Name                      string            `json:"name" yaml:"name"`
	Description               string            `json:"description,omitempty" yaml:"description,omitempty"`
	Parent                    *Identifier       `json:"parent,omitempty" yaml:"parent,omitempty"`
	EarlyAccess               string            `json:"earlyAccess,omitempty" yaml:"earlyAccess,omitempty"`
	Model                     *DeclarativeModel `json:"model,omitempty" yaml:"model,omitempty"`
	Settings                  []Setting         `json:"settings,omitempty" yaml:"settings,omitempty"`
	CustomApplicationSettings []map[string]any  `json:"customApplicationSettings,omitempty" yaml:"customApplicationSettings,omitempty"`
	HierarchyPermissions      []map[string]any  `json:"hierarchyPermissions,omitempty" yaml:"hierarchyPermissions,omitempty"`
	Permissions               []map[string]any  `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	UserDataFilters           []map[string]any  `json:"userDataFilters,omitempty" yaml:"userDataFilters,omitempty"`
	Analytics                 map[string]any    `json:"analytics,omitempty" yaml:"analytics,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// WorkspaceDataFilterSetting restricts one workspace to a set of values.
type WorkspaceDataFilterSetting struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	FilterValues []string   `json:"filterValues" yaml:"filterValues"`
	Workspace    Identifier `json:"workspace" yaml:"workspace"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeWorkspaceDataFilter is a data filter defined on a workspace
// and inherited by its children.
type DeclarativeWorkspaceDataFilter struct {
	ID                          string                       `json:"id" yaml:"id"`
	Title                       string                       `json:"title" yaml:"title"`
	Description                 string                       `json:"description,omitempty" yaml:"description,omitempty"`
	ColumnName                  string                       `json:"columnName" yaml:"columnName"`
	Workspace                   Identifier                   `json:"workspace" yaml:"workspace"`
	WorkspaceDataFilterSettings []WorkspaceDataFilterSetting `json:"workspaceDataFilterSettings" yaml:"workspaceDataFilterSettings"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeWorkspaceDataFilters is the organization's filter collection.
type DeclarativeWorkspaceDataFilters struct {
	WorkspaceDataFilters []DeclarativeWorkspaceDataFilter `json:"workspaceDataFilters" yaml:"workspaceDataFilters"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// ToAPI returns the body of a declarative workspace data filters PUT.
func (f *DeclarativeWorkspaceDataFilters) ToAPI() *DeclarativeWorkspaceDataFilters {
	return &DeclarativeWorkspaceDataFilters{WorkspaceDataFilters: orEmpty(f.WorkspaceDataFilters), Extra: f.Extra}
}

// StoreToDisk writes one file per filter under analytics/workspaces_data_filters.
func (f *DeclarativeWorkspaceDataFilters) StoreToDisk(analyticsDir string) error {
	return storeEntities(filepath.Join(analyticsDir, LayoutWorkspaceDataFiltersDir), f.WorkspaceDataFilters, workspaceDataFilterID)
}

// LoadWorkspaceDataFiltersFromDisk reads analytics/workspaces_data_filters.
func LoadWorkspaceDataFiltersFromDisk(analyticsDir string) (*DeclarativeWorkspaceDataFilters, error) {
	items, err := loadEntities(filepath.Join(analyticsDir, LayoutWorkspaceDataFiltersDir), workspaceDataFilterID)
	if err != nil {
		return nil, err
	}
	return &DeclarativeWorkspaceDataFilters{WorkspaceDataFilters: items}, nil
}

func workspaceDataFilterID(f DeclarativeWorkspaceDataFilter) string { return f.ID }

// DeclarativeWorkspaces is the body of the declarative workspaces layout:
// all workspaces together with the workspace data filters.
type DeclarativeWorkspaces struct {
	Workspaces           []DeclarativeWorkspace           `json:"workspaces" yaml:"workspaces"`
	WorkspaceDataFilters []DeclarativeWorkspaceDataFilter `json:"workspaceDataFilters" yaml:"workspaceDataFilters"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// ToAPI returns the body of a declarative workspaces PUT.
func (w *DeclarativeWorkspaces) ToAPI() *DeclarativeWorkspaces {
	return &DeclarativeWorkspaces{
		Workspaces:           orEmpty(w.Workspaces),
		WorkspaceDataFilters: orEmpty(w.WorkspaceDataFilters),
		Extra:                w.Extra,
	}
}

// ChangeTablesColumnsCase folds table and column names in every workspace model.
func (w *DeclarativeWorkspaces) ChangeTablesColumnsCase(mode CaseMode) {
	for i := range w.Workspaces {
		if w.Workspaces[i].Model != nil {
			w.Workspaces[i].Model.ChangeTablesColumnsCase(mode)
		}
	}
}

// ModifyMappedDataSource remaps data source ids in every workspace model.
func (w *DeclarativeWorkspaces) ModifyMappedDataSource(mapping map[string]string) {
	for i := range w.Workspaces {
		if w.Workspaces[i].Model != nil {
			w.Workspaces[i].Model.ModifyMappedDataSource(mapping)
		}
	}
}

// WorkspacesFolder returns analytics/workspaces.
func WorkspacesFolder(analyticsDir string) string {
	return filepath.Join(analyticsDir, LayoutWorkspacesDir)
}

// StoreToDisk writes each workspace to analytics/workspaces/<id>/<id>.yaml
// and its model to analytics/workspaces/<id>/ldm. Workspace data filters are
// not part of this subtree; see DeclarativeWorkspaceDataFilters.
func (w *DeclarativeWorkspaces) StoreToDisk(analyticsDir string) error {
	root := WorkspacesFolder(analyticsDir)
	if err := CreateDirectory(root); err != nil {
		return err
	}

	for _, ws := range w.Workspaces {
		if err := validateEntityID(ws.ID); err != nil {
			return err
		}
		wsDir := filepath.Join(root, ws.ID)

		model := ws.Model
		ws.Model = model.extraOnly()
		path, _ := EntityFile(wsDir, ws.ID)
		if err := WriteLayoutFile(path, ws); err != nil {
			return err
		}

		if model != nil {
			if err := model.StoreToDisk(wsDir); err != nil {
				return fmt.Errorf("workspace %s: %w", ws.ID, err)
			}
		}
	}
	return nil
}

// LoadWorkspacesFromDisk reads analytics/workspaces. Each workspace directory
// must contain <id>.yaml; the ldm subtree is optional.
func LoadWorkspacesFromDisk(analyticsDir string) (*DeclarativeWorkspaces, error) {
	root := WorkspacesFolder(analyticsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return &DeclarativeWorkspaces{}, nil
		}
		return nil, fmt.Errorf("layout: failed to read %s: %w", root, err)
	}

	var workspaces []DeclarativeWorkspace
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		wsDir := filepath.Join(root, e.Name())

		var ws DeclarativeWorkspace
		path := filepath.Join(wsDir, e.Name()+yamlExt)
		if err := ReadLayoutFile(path, &ws); err != nil {
			return nil, err
		}
		if ws.ID != e.Name() {
			return nil, fmt.Errorf("%w: %s holds workspace %q", ErrIDMismatch, path, ws.ID)
		}

		if _, err := os.Stat(LdmFolder(wsDir)); err == nil {
			model, err := LoadModelFromDisk(wsDir)
			if err != nil {
				return nil, fmt.Errorf("workspace %s: %w", ws.ID, err)
			}
			model.mergeExtra(ws.Model)
			ws.Model = model
		}
		workspaces = append(workspaces, ws)
	}

	sort.SliceStable(workspaces, func(i, j int) bool {
		return workspaces[i].ID < workspaces[j].ID
	})
	return &DeclarativeWorkspaces{Workspaces: workspaces}, nil
}
