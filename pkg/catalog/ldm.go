package catalog

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CaseMode selects how table and column names are folded.
type CaseMode string

const (
	CaseUnchanged CaseMode = ""
	CaseLower     CaseMode = "lower"
	CaseUpper     CaseMode = "upper"
)

// ParseCaseMode parses a --columns-case value.
func ParseCaseMode(s string) (CaseMode, error) {
	switch CaseMode(strings.ToLower(s)) {
	case CaseUnchanged:
		return CaseUnchanged, nil
	case CaseLower:
		return CaseLower, nil
	case CaseUpper:
		return CaseUpper, nil
	default:
		return "", fmt.Errorf("unsupported case %q (supported: lower, upper)", s)
	}
}

// Apply folds name according to the mode.
func (m CaseMode) Apply(name string) string {
	switch m {
	case CaseLower:
		return strings.ToLower(name)
	case CaseUpper:
		return strings.ToUpper(name)
	default:
		return name
	}
}

// DeclarativeLabel is an alternative representation of an attribute.
type DeclarativeLabel struct {
	ID                   string   `json:"id" yaml:"id"`
	Title                string   `json:"title" yaml:"title"`
	Description          string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                 []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	SourceColumn         string   `json:"sourceColumn" yaml:"sourceColumn"`
	SourceColumnDataType string   `json:"sourceColumnDataType,omitempty" yaml:"sourceColumnDataType,omitempty"`
	ValueType            string   `json:"valueType,omitempty" yaml:"valueType,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeAttribute is a dataset attribute mapped to a source column.
type DeclarativeAttribute struct {
	ID                   string             `json:"id" yaml:"id"`
	Title                string             `json:"title" yaml:"title"`
	Description          string             `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                 []string           `json:"tags,omitempty" yaml:"tags,omitempty"`
	SourceColumn         string             `json:"sourceColumn" yaml:"sourceColumn"`
	SourceColumnDataType string             `json:"sourceColumnDataType,omitempty" yaml:"sourceColumnDataType,omitempty"`
	SortColumn           string             `json:"sortColumn,omitempty" yaml:"sortColumn,omitempty"`
	SortDirection        string             `json:"sortDirection,omitempty" yaml:"sortDirection,omitempty"`
	DefaultView          *Identifier        `json:"defaultView,omitempty" yaml:"defaultView,omitempty"`
	Labels               []DeclarativeLabel `json:"labels" yaml:"labels"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeFact is a numeric dataset column.
type DeclarativeFact struct {
	ID                   string   `json:"id" yaml:"id"`
	Title                string   `json:"title" yaml:"title"`
	Description          string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                 []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	SourceColumn         string   `json:"sourceColumn" yaml:"sourceColumn"`
	SourceColumnDataType string   `json:"sourceColumnDataType,omitempty" yaml:"sourceColumnDataType,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeReference links a dataset to another dataset through one or
// more source columns.
type DeclarativeReference struct {
	Identifier            Identifier `json:"identifier" yaml:"identifier"`
	Multivalue            bool       `json:"multivalue" yaml:"multivalue"`
	SourceColumns         []string   `json:"sourceColumns" yaml:"sourceColumns"`
	SourceColumnDataTypes []string   `json:"sourceColumnDataTypes,omitempty" yaml:"sourceColumnDataTypes,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DataSourceTableIdentifier points a dataset at a physical table.
type DataSourceTableIdentifier struct {
	ID           string   `json:"id" yaml:"id"`
	DataSourceID string   `json:"dataSourceId" yaml:"dataSourceId"`
	Type         string   `json:"type" yaml:"type"`
	Path         []string `json:"path,omitempty" yaml:"path,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeDatasetSQL backs a dataset with a SQL statement instead of a table.
type DeclarativeDatasetSQL struct {
	Statement    string `json:"statement" yaml:"statement"`
	DataSourceID string `json:"dataSourceId" yaml:"dataSourceId"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// WorkspaceDataFilterColumn is a column usable by workspace data filters.
type WorkspaceDataFilterColumn struct {
	Name     string `json:"name" yaml:"name"`
	DataType string `json:"dataType" yaml:"dataType"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// WorkspaceDataFilterReference binds a workspace data filter to a dataset column.
type WorkspaceDataFilterReference struct {
	FilterID             Identifier `json:"filterId" yaml:"filterId"`
	FilterColumn         string     `json:"filterColumn" yaml:"filterColumn"`
	FilterColumnDataType string     `json:"filterColumnDataType" yaml:"filterColumnDataType"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeDataset is one dataset of a logical data model.
type DeclarativeDataset struct {
	ID                            string                         `json:"id" yaml:"id"`
	Title                         string                         `json:"title" yaml:"title"`
	Description                   string                         `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                          []string                       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Grain                         []Identifier                   `json:"grain" yaml:"grain"`
	References                    []DeclarativeReference         `json:"references" yaml:"references"`
	DataSourceTableID             *DataSourceTableIdentifier     `json:"dataSourceTableId,omitempty" yaml:"dataSourceTableId,omitempty"`
	SQL                           *DeclarativeDatasetSQL         `json:"sql,omitempty" yaml:"sql,omitempty"`
	Attributes                    []DeclarativeAttribute         `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Facts                         []DeclarativeFact              `json:"facts,omitempty" yaml:"facts,omitempty"`
	WorkspaceDataFilterColumns    []WorkspaceDataFilterColumn    `json:"workspaceDataFilterColumns,omitempty" yaml:"workspaceDataFilterColumns,omitempty"`
	WorkspaceDataFilterReferences []WorkspaceDataFilterReference `json:"workspaceDataFilterReferences,omitempty" yaml:"workspaceDataFilterReferences,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// GranularitiesFormatting controls titles generated for date attributes.
type GranularitiesFormatting struct {
	TitleBase    string `json:"titleBase" yaml:"titleBase"`
	TitlePattern string `json:"titlePattern" yaml:"titlePattern"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeDateDataset is a generated date dimension.
type DeclarativeDateDataset struct {
	ID                      string                  `json:"id" yaml:"id"`
	Title                   string                  `json:"title" yaml:"title"`
	Description             string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                    []string                `json:"tags,omitempty" yaml:"tags,omitempty"`
	Granularities           []string                `json:"granularities" yaml:"granularities"`
	GranularitiesFormatting GranularitiesFormatting `json:"granularitiesFormatting" yaml:"granularitiesFormatting"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeDatasetExtension adds workspace data filter references to a
// dataset inherited from a parent workspace.
type DeclarativeDatasetExtension struct {
	ID                            string                         `json:"id" yaml:"id"`
	WorkspaceDataFilterReferences []WorkspaceDataFilterReference `json:"workspaceDataFilterReferences,omitempty" yaml:"workspaceDataFilterReferences,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeLdm is a logical data model.
type DeclarativeLdm struct {
	Datasets          []DeclarativeDataset          `json:"datasets" yaml:"datasets"`
	DateInstances     []DeclarativeDateDataset      `json:"dateInstances" yaml:"dateInstances"`
	DatasetExtensions []DeclarativeDatasetExtension `json:"datasetExtensions,omitempty" yaml:"datasetExtensions,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// LdmFolder returns <workspace>/ldm.
func LdmFolder(workspaceDir string) string {
	return filepath.Join(workspaceDir, LayoutLdmDir)
}

// StoreToDisk writes datasets, date instances and dataset extensions under
// <workspace>/ldm, one file each.
func (l *DeclarativeLdm) StoreToDisk(workspaceDir string) error {
	ldmDir := LdmFolder(workspaceDir)
	if err := storeEntities(filepath.Join(ldmDir, LayoutDatasetsDir), l.Datasets, datasetID); err != nil {
		return err
	}
	if err := storeEntities(filepath.Join(ldmDir, LayoutDateInstancesDir), l.DateInstances, dateDatasetID); err != nil {
		return err
	}
	if len(l.DatasetExtensions) == 0 {
		return nil
	}
	return storeEntities(filepath.Join(ldmDir, LayoutDatasetExtensionsDir), l.DatasetExtensions, datasetExtensionID)
}

// LoadLdmFromDisk reads <workspace>/ldm.
func LoadLdmFromDisk(workspaceDir string) (*DeclarativeLdm, error) {
	ldmDir := LdmFolder(workspaceDir)

	datasets, err := loadEntities(filepath.Join(ldmDir, LayoutDatasetsDir), datasetID)
	if err != nil {
		return nil, err
	}
	dateInstances, err := loadEntities(filepath.Join(ldmDir, LayoutDateInstancesDir), dateDatasetID)
	if err != nil {
		return nil, err
	}
	extensions, err := loadEntities(filepath.Join(ldmDir, LayoutDatasetExtensionsDir), datasetExtensionID)
	if err != nil {
		return nil, err
	}

	return &DeclarativeLdm{
		Datasets:          orEmpty(datasets),
		DateInstances:     orEmpty(dateInstances),
		DatasetExtensions: extensions,
	}, nil
}

func datasetID(d DeclarativeDataset) string { return d.ID }
func dateDatasetID(d DeclarativeDateDataset) string { return d.ID }
func datasetExtensionID(d DeclarativeDatasetExtension) string { return d.ID }

// DeclarativeModel wraps the logical data model of a workspace.
type DeclarativeModel struct {
	Ldm *DeclarativeLdm `json:"ldm,omitempty" yaml:"ldm,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// StoreToDisk writes the LDM, if any, under <workspace>/ldm.
func (m *DeclarativeModel) StoreToDisk(workspaceDir string) error {
	if m.Ldm == nil {
		return nil
	}
	return m.Ldm.StoreToDisk(workspaceDir)
}

// LoadModelFromDisk reads <workspace>/ldm into a model.
func LoadModelFromDisk(workspaceDir string) (*DeclarativeModel, error) {
	ldm, err := LoadLdmFromDisk(workspaceDir)
	if err != nil {
		return nil, err
	}
	return &DeclarativeModel{Ldm: ldm}, nil
}

// extraOnly returns the parts of m the ldm files do not hold: the extra keys
// of the model and of its LDM. It is nil when there are none.
func (m *DeclarativeModel) extraOnly() *DeclarativeModel {
	if m == nil {
		return nil
	}
	var out DeclarativeModel
	if m.Ldm != nil && len(m.Ldm.Extra) > 0 {
		out.Ldm = &DeclarativeLdm{Extra: m.Ldm.Extra}
	}
	if len(m.Extra) == 0 && out.Ldm == nil {
		return nil
	}
	out.Extra = m.Extra
	return &out
}

// mergeExtra copies the extra keys kept by extraOnly back into m.
func (m *DeclarativeModel) mergeExtra(from *DeclarativeModel) {
	if from == nil {
		return
	}
	m.Extra = from.Extra
	if from.Ldm != nil && m.Ldm != nil {
		m.Ldm.Extra = from.Ldm.Extra
	}
}

// ModifyMappedDataSource rewrites the data source of every dataset table and
// SQL dataset through mapping (old id -> new id).
func (m *DeclarativeModel) ModifyMappedDataSource(mapping map[string]string) {
	if m.Ldm == nil || len(mapping) == 0 {
		return
	}
	for i := range m.Ldm.Datasets {
		ds := &m.Ldm.Datasets[i]
		if ds.DataSourceTableID != nil {
			if to, ok := mapping[ds.DataSourceTableID.DataSourceID]; ok {
				ds.DataSourceTableID.DataSourceID = to
			}
		}
		if ds.SQL != nil {
			if to, ok := mapping[ds.SQL.DataSourceID]; ok {
				ds.SQL.DataSourceID = to
			}
		}
	}
}

// ChangeTablesColumnsCase folds every physical name the model refers to:
// the dataset table id, attribute source and sort columns, label and fact
// source columns, and every reference source column. Applying the same mode
// twice is a no-op.
func (m *DeclarativeModel) ChangeTablesColumnsCase(mode CaseMode) {
	if m.Ldm == nil || mode == CaseUnchanged {
		return
	}
	for i := range m.Ldm.Datasets {
		ds := &m.Ldm.Datasets[i]
		if ds.DataSourceTableID != nil && ds.DataSourceTableID.ID != "" {
			ds.DataSourceTableID.ID = mode.Apply(ds.DataSourceTableID.ID)
		}
		for j := range ds.Attributes {
			attr := &ds.Attributes[j]
			attr.SourceColumn = mode.Apply(attr.SourceColumn)
			attr.SortColumn = mode.Apply(attr.SortColumn)
			for k := range attr.Labels {
				attr.Labels[k].SourceColumn = mode.Apply(attr.Labels[k].SourceColumn)
			}
		}
		for j := range ds.Facts {
			ds.Facts[j].SourceColumn = mode.Apply(ds.Facts[j].SourceColumn)
		}
		for j := range ds.References {
			ref := &ds.References[j]
			for k := range ref.SourceColumns {
				ref.SourceColumns[k] = mode.Apply(ref.SourceColumns[k])
			}
		}
	}
}
