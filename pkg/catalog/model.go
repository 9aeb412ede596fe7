// Package catalog holds the declarative model of an analytics organization
// and its on-disk YAML layout.
//
// Every type mirrors the server's declarative schema with an explicit field
// set, plus an Extra map for keys the schema has that the type does not
// name. The same camelCase names are used on the wire (JSON) and on disk
// (YAML), so a collection can be fetched, stored, loaded, and put back
// without a separate mapping step or losing fields.
package catalog

// Identifier references another entity by id and type.
type Identifier struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// Assignee is the subject a permission is granted to.
type Assignee = Identifier

// Permission grants a named permission to a user or user group.
type Permission struct {
	Name     string   `json:"name" yaml:"name"`
	Assignee Assignee `json:"assignee" yaml:"assignee"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// Setting is a typed key/value setting attached to a user or workspace.
type Setting struct {
	ID      string         `json:"id" yaml:"id"`
	Type    string         `json:"type,omitempty" yaml:"type,omitempty"`
	Content map[string]any `json:"content,omitempty" yaml:"content,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}
