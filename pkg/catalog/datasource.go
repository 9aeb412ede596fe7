package catalog

import (
	"fmt"
	"path/filepath"
)

// Data source types that authenticate with a token instead of a password.
var tokenDataSourceTypes = map[string]bool{
	"BIGQUERY":   true,
	"DATABRICKS": true,
	"MOTHERDUCK": true,
}

// DataSourceParameter is an extra connection parameter.
type DataSourceParameter struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeDataSource is a physical data source connection.
// Secrets are sent on the wire but never written to disk.
type DeclarativeDataSource struct {
	ID                 string                `json:"id" yaml:"id"`
	Name               string                `json:"name" yaml:"name"`
	Type               string                `json:"type" yaml:"type"`
	URL                string                `json:"url,omitempty" yaml:"url,omitempty"`
	Schema             string                `json:"schema" yaml:"schema"`
	Username           string                `json:"username,omitempty" yaml:"username,omitempty"`
	Password           string                `json:"password,omitempty" yaml:"-"`
	Token              string                `json:"token,omitempty" yaml:"-"`
	ClientID           string                `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	ClientSecret       string                `json:"clientSecret,omitempty" yaml:"-"`
	AuthenticationType string                `json:"authenticationType,omitempty" yaml:"authenticationType,omitempty"`
	CacheStrategy      string                `json:"cacheStrategy,omitempty" yaml:"cacheStrategy,omitempty"`
	Parameters         []DataSourceParameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Permissions        []Permission          `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeDataSources is the organization's data source collection.
type DeclarativeDataSources struct {
	DataSources []DeclarativeDataSource `json:"dataSources" yaml:"dataSources"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// ToAPI returns the body of a declarative data sources PUT.
func (d *DeclarativeDataSources) ToAPI() *DeclarativeDataSources {
	return &DeclarativeDataSources{DataSources: orEmpty(d.DataSources), Extra: d.Extra}
}

// DataSourcesFolder returns analytics/data_sources.
func DataSourcesFolder(analyticsDir string) string {
	return filepath.Join(analyticsDir, LayoutDataSourcesDir)
}

// StoreToDisk writes one file per data source under analytics/data_sources.
func (d *DeclarativeDataSources) StoreToDisk(analyticsDir string) error {
	return storeEntities(DataSourcesFolder(analyticsDir), d.DataSources, dataSourceID)
}

// LoadDataSourcesFromDisk reads analytics/data_sources.
func LoadDataSourcesFromDisk(analyticsDir string) (*DeclarativeDataSources, error) {
	items, err := loadEntities(DataSourcesFolder(analyticsDir), dataSourceID)
	if err != nil {
		return nil, err
	}
	return &DeclarativeDataSources{DataSources: items}, nil
}

func dataSourceID(d DeclarativeDataSource) string { return d.ID }

// DataSourceCredentials maps a data source id to its password or token.
type DataSourceCredentials map[string]string

type credentialsFile struct {
	DataSources DataSourceCredentials `yaml:"data_sources"`
}

// LoadCredentials reads a ds_creds.yaml file:
//
//	data_sources:
//	  demo-ds: secret
func LoadCredentials(path string) (DataSourceCredentials, error) {
	var f credentialsFile
	if err := ReadLayoutFile(path, &f); err != nil {
		return nil, err
	}
	if f.DataSources == nil {
		return DataSourceCredentials{}, nil
	}
	return f.DataSources, nil
}

// InjectCredentials sets the secret of every data source from creds. Token
// based types get a token, sources with a client id get a client secret and
// the rest a password. A data source that authenticates (token type,
// username or client id) without an entry is an error; one with nothing to
// authenticate with is left as it is.
func (d *DeclarativeDataSources) InjectCredentials(creds DataSourceCredentials) error {
	for i := range d.DataSources {
		ds := &d.DataSources[i]
		secret, ok := creds[ds.ID]
		if !ok {
			if ds.needsSecret() {
				return fmt.Errorf("catalog: no credentials for data source %q", ds.ID)
			}
			continue
		}
		switch {
		case tokenDataSourceTypes[ds.Type]:
			ds.Token = secret
		case ds.ClientID != "":
			ds.ClientSecret = secret
		default:
			ds.Password = secret
		}
	}
	return nil
}

func (ds *DeclarativeDataSource) needsSecret() bool {
	return tokenDataSourceTypes[ds.Type] || ds.Username != "" || ds.ClientID != ""
}
