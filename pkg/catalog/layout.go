package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixed directory names of the declarative layout.
const (
	LayoutAnalyticsDir            = "analytics"
	LayoutDataSourcesDir          = "data_sources"
	LayoutUserGroupsDir           = "user_groups"
	LayoutUsersDir                = "users"
	LayoutWorkspaceDataFiltersDir = "workspaces_data_filters"
	LayoutWorkspacesDir           = "workspaces"
	LayoutLdmDir                  = "ldm"
	LayoutDatasetsDir             = "datasets"
	LayoutDateInstancesDir        = "date_instances"
	LayoutDatasetExtensionsDir    = "dataset_extensions"

	// RootMarkerFile identifies the organization root directory.
	RootMarkerFile = "gooddata.yaml"

	// CredentialsFile holds data source secrets next to the analytics directory.
	CredentialsFile = "ds_creds.yaml"

	yamlExt = ".yaml"

	// maxLayoutFileSize bounds a single entity file (8 MiB).
	maxLayoutFileSize = 8 << 20
)

// SupportedSubtrees lists the analytics subdirectories that can be cloned or
// deployed on their own.
var SupportedSubtrees = []string{
	LayoutDataSourcesDir,
	LayoutUserGroupsDir,
	LayoutUsersDir,
	LayoutWorkspaceDataFiltersDir,
	LayoutWorkspacesDir,
}

// ErrPathTraversal is returned when an entity id cannot be used as a file name.
var ErrPathTraversal = errors.New("entity id is not a valid file name")

// ErrIDMismatch is returned when an entity file or directory is not named
// after the id it holds.
var ErrIDMismatch = errors.New("file name does not match entity id")

// ErrFileTooLarge is returned when a layout file exceeds maxLayoutFileSize.
var ErrFileTooLarge = errors.New("layout file exceeds maximum allowed size (8 MiB)")

// IsSupportedSubtree reports whether name is one of SupportedSubtrees.
func IsSupportedSubtree(name string) bool {
	for _, s := range SupportedSubtrees {
		if s == name {
			return true
		}
	}
	return false
}

// CreateDirectory creates dir and its parents if missing.
func CreateDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("layout: failed to create %s: %w", dir, err)
	}
	return nil
}

// EntityFile returns the path of the YAML file holding the entity with id.
func EntityFile(dir, id string) (string, error) {
	if err := validateEntityID(id); err != nil {
		return "", err
	}
	return filepath.Join(dir, id+yamlExt), nil
}

func validateEntityID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrPathTraversal, id)
	}
	return nil
}

// WriteLayoutFile marshals v to YAML and writes it atomically to path.
func WriteLayoutFile(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("layout: failed to marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := CreateDirectory(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".layout-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("layout: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("layout: failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("layout: failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("layout: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("layout: failed to rename temp file: %w", err)
	}
	tmpName = ""

	return nil
}

// ReadLayoutFile reads the YAML file at path into v.
func ReadLayoutFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("layout: failed to read %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxLayoutFileSize+1))
	if err != nil {
		return fmt.Errorf("layout: failed to read %s: %w", path, err)
	}
	if int64(len(data)) > maxLayoutFileSize {
		return fmt.Errorf("layout: %s: %w", path, ErrFileTooLarge)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("layout: failed to parse %s: %w", path, err)
	}
	return nil
}

// SortedYAMLFiles returns the *.yaml files directly inside dir, sorted by
// name. A missing directory yields no files.
func SortedYAMLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("layout: failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), yamlExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// storeEntities writes every item to dir/<id>.yaml.
func storeEntities[T any](dir string, items []T, id func(T) string) error {
	if err := CreateDirectory(dir); err != nil {
		return err
	}
	for _, item := range items {
		path, err := EntityFile(dir, id(item))
		if err != nil {
			return err
		}
		if err := WriteLayoutFile(path, item); err != nil {
			return err
		}
	}
	return nil
}

// loadEntities reads every dir/*.yaml file and returns the entities sorted by
// id. Each file must be named after the id it holds.
func loadEntities[T any](dir string, id func(T) string) ([]T, error) {
	files, err := SortedYAMLFiles(dir)
	if err != nil {
		return nil, err
	}

	var items []T
	for _, f := range files {
		var item T
		if err := ReadLayoutFile(f, &item); err != nil {
			return nil, err
		}
		if stem := strings.TrimSuffix(filepath.Base(f), yamlExt); id(item) != stem {
			return nil, fmt.Errorf("%w: %s holds %q", ErrIDMismatch, f, id(item))
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return id(items[i]) < id(items[j])
	})
	return items, nil
}

// orEmpty returns s, or an empty slice when s is nil, so wire bodies carry
// [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
