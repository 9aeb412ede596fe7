// Package declarative clones an organization's declarative state into the
// on-disk layout and deploys the layout back.
package declarative

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/gooddata/gdc/pkg/catalog"
)

var (
	ErrWorkspaceNotFound  = errors.New("requested workspace not found")
	ErrUnsupportedPath    = errors.New("path is not supported")
	ErrNotRoot            = errors.New("not an organization root")
	ErrMissingCredentials = errors.New("data source credentials not found")
	ErrInvalidFlags       = errors.New("invalid flags")
)

// Action is the direction of a run.
type Action string

const (
	ActionClone  Action = "clone"
	ActionDeploy Action = "deploy"
)

// Settings are the options of one run. The zero value clones or deploys
// the whole organization.
type Settings struct {
	workspace         string
	patch             bool
	dataSourceIDs     []string
	columnsCase       catalog.CaseMode
	dataSourceMapping map[string]string
	commitMessage     string
}

// SettingsOption configures Settings.
type SettingsOption func(*Settings)

// WithWorkspace restricts the run to one workspace.
func WithWorkspace(id string) SettingsOption {
	return func(s *Settings) { s.workspace = id }
}

// WithPatch merges the deployed workspace into the server's workspaces
// instead of replacing all of them.
func WithPatch(patch bool) SettingsOption {
	return func(s *Settings) { s.patch = patch }
}

// WithDataSources restricts the data sources step to the given ids.
func WithDataSources(ids ...string) SettingsOption {
	return func(s *Settings) { s.dataSourceIDs = append(s.dataSourceIDs, ids...) }
}

// WithColumnsCase folds table and column names of deployed models.
func WithColumnsCase(mode catalog.CaseMode) SettingsOption {
	return func(s *Settings) { s.columnsCase = mode }
}

// WithDataSourceMapping remaps data source ids of deployed models.
func WithDataSourceMapping(mapping map[string]string) SettingsOption {
	return func(s *Settings) {
		if s.dataSourceMapping == nil {
			s.dataSourceMapping = map[string]string{}
		}
		maps.Copy(s.dataSourceMapping, mapping)
	}
}

// WithCommit records the cloned layout as a git commit with this message.
func WithCommit(message string) SettingsOption {
	return func(s *Settings) { s.commitMessage = message }
}

// NewSettings builds Settings and validates them for action.
func NewSettings(action Action, opts ...SettingsOption) (Settings, error) {
	var s Settings
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.validate(action); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate(action Action) error {
	switch action {
	case ActionClone:
		if s.patch {
			return fmt.Errorf("%w: --patch is not supported by clone", ErrInvalidFlags)
		}
		if len(s.dataSourceIDs) > 0 {
			return fmt.Errorf("%w: --data-source is only supported by deploy", ErrInvalidFlags)
		}
		if s.columnsCase != catalog.CaseUnchanged {
			return fmt.Errorf("%w: --columns-case is only supported by deploy", ErrInvalidFlags)
		}
		if len(s.dataSourceMapping) > 0 {
			return fmt.Errorf("%w: --data-source-mapping is only supported by deploy", ErrInvalidFlags)
		}
	case ActionDeploy:
		if s.patch && s.workspace == "" {
			return fmt.Errorf("%w: --patch requires --workspace", ErrInvalidFlags)
		}
		if s.commitMessage != "" {
			return fmt.Errorf("%w: --commit is only supported by clone", ErrInvalidFlags)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidFlags, action)
	}
	return nil
}

func (s Settings) Workspace() string { return s.workspace }
func (s Settings) Patch() bool       { return s.patch }

// DataSourceIDs returns a copy of the data source filter.
func (s Settings) DataSourceIDs() []string { return slices.Clone(s.dataSourceIDs) }

func (s Settings) ColumnsCase() catalog.CaseMode { return s.columnsCase }

// DataSourceMapping returns a copy of the old to new data source id mapping.
func (s Settings) DataSourceMapping() map[string]string { return maps.Clone(s.dataSourceMapping) }

func (s Settings) CommitMessage() string { return s.commitMessage }
