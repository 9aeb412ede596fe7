package catalog

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Every model type carries an Extra map with the document keys it does not
// declare. On disk they are inlined next to the declared keys; on the wire
// they are merged back into the object. A workspace fetched from the server
// and put back therefore keeps fields this package has no name for.

var declaredKeysCache sync.Map // reflect.Type -> mapset.Set[string]

// declaredKeys returns the JSON names of the fields of struct type t.
func declaredKeys(t reflect.Type) mapset.Set[string] {
	if keys, ok := declaredKeysCache.Load(t); ok {
		return keys.(mapset.Set[string])
	}
	keys := mapset.NewSet[string]()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		keys.Add(name)
	}
	declaredKeysCache.Store(t, keys)
	return keys
}

// marshalWithExtra encodes v, a method-less copy of a model value, and adds
// the extra keys v does not declare.
func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	declared := declaredKeys(reflect.TypeOf(v))
	for k, value := range extra {
		if declared.Contains(k) {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		doc[k] = raw
	}
	return json.Marshal(doc)
}

// unmarshalWithExtra decodes data into v, a pointer to a method-less copy of
// a model type, and collects the undeclared keys into extra. extra stays nil
// when there are none.
func unmarshalWithExtra(data []byte, v any, extra *map[string]any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	declared := declaredKeys(reflect.TypeOf(v).Elem())
	*extra = nil
	for k, raw := range doc {
		if declared.Contains(k) {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if *extra == nil {
			*extra = map[string]any{}
		}
		(*extra)[k] = plainNumbers(value)
	}
	return nil
}

// plainNumbers replaces json.Number with int64 or float64 so that the value
// is written to YAML as a number.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, item := range t {
			t[k] = plainNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = plainNumbers(item)
		}
		return t
	default:
		return v
	}
}

func (i Identifier) MarshalJSON() ([]byte, error) {
	type plain Identifier
	return marshalWithExtra(plain(i), i.Extra)
}

func (i *Identifier) UnmarshalJSON(data []byte) error {
	type plain Identifier
	return unmarshalWithExtra(data, (*plain)(i), &i.Extra)
}

func (p Permission) MarshalJSON() ([]byte, error) {
	type plain Permission
	return marshalWithExtra(plain(p), p.Extra)
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	type plain Permission
	return unmarshalWithExtra(data, (*plain)(p), &p.Extra)
}

func (s Setting) MarshalJSON() ([]byte, error) {
	type plain Setting
	return marshalWithExtra(plain(s), s.Extra)
}

func (s *Setting) UnmarshalJSON(data []byte) error {
	type plain Setting
	return unmarshalWithExtra(data, (*plain)(s), &s.Extra)
}

func (p DataSourceParameter) MarshalJSON() ([]byte, error) {
	type plain DataSourceParameter
	return marshalWithExtra(plain(p), p.Extra)
}

func (p *DataSourceParameter) UnmarshalJSON(data []byte) error {
	type plain DataSourceParameter
	return unmarshalWithExtra(data, (*plain)(p), &p.Extra)
}

func (d DeclarativeDataSource) MarshalJSON() ([]byte, error) {
	type plain DeclarativeDataSource
	return marshalWithExtra(plain(d), d.Extra)
}

func (d *DeclarativeDataSource) UnmarshalJSON(data []byte) error {
	type plain DeclarativeDataSource
	return unmarshalWithExtra(data, (*plain)(d), &d.Extra)
}

func (d DeclarativeDataSources) MarshalJSON() ([]byte, error) {
	type plain DeclarativeDataSources
	return marshalWithExtra(plain(d), d.Extra)
}

func (d *DeclarativeDataSources) UnmarshalJSON(data []byte) error {
	type plain DeclarativeDataSources
	return unmarshalWithExtra(data, (*plain)(d), &d.Extra)
}

func (g DeclarativeUserGroup) MarshalJSON() ([]byte, error) {
	type plain DeclarativeUserGroup
	return marshalWithExtra(plain(g), g.Extra)
}

func (g *DeclarativeUserGroup) UnmarshalJSON(data []byte) error {
	type plain DeclarativeUserGroup
	return unmarshalWithExtra(data, (*plain)(g), &g.Extra)
}

func (g DeclarativeUserGroups) MarshalJSON() ([]byte, error) {
	type plain DeclarativeUserGroups
	return marshalWithExtra(plain(g), g.Extra)
}

func (g *DeclarativeUserGroups) UnmarshalJSON(data []byte) error {
	type plain DeclarativeUserGroups
	return unmarshalWithExtra(data, (*plain)(g), &g.Extra)
}

func (u DeclarativeUser) MarshalJSON() ([]byte, error) {
	type plain DeclarativeUser
	return marshalWithExtra(plain(u), u.Extra)
}

func (u *DeclarativeUser) UnmarshalJSON(data []byte) error {
	type plain DeclarativeUser
	return unmarshalWithExtra(data, (*plain)(u), &u.Extra)
}

func (u DeclarativeUsers) MarshalJSON() ([]byte, error) {
	type plain DeclarativeUsers
	return marshalWithExtra(plain(u), u.Extra)
}

func (u *DeclarativeUsers) UnmarshalJSON(data []byte) error {
	type plain DeclarativeUsers
	return unmarshalWithExtra(data, (*plain)(u), &u.Extra)
}

func (s WorkspaceDataFilterSetting) MarshalJSON() ([]byte, error) {
	type plain WorkspaceDataFilterSetting
	return marshalWithExtra(plain(s), s.Extra)
}

func (s *WorkspaceDataFilterSetting) UnmarshalJSON(data []byte) error {
	type plain WorkspaceDataFilterSetting
	return unmarshalWithExtra(data, (*plain)(s), &s.Extra)
}

func (f DeclarativeWorkspaceDataFilter) MarshalJSON() ([]byte, error) {
	type plain DeclarativeWorkspaceDataFilter
	return marshalWithExtra(plain(f), f.Extra)
}

func (f *DeclarativeWorkspaceDataFilter) UnmarshalJSON(data []byte) error {
	type plain DeclarativeWorkspaceDataFilter
	return unmarshalWithExtra(data, (*plain)(f), &f.Extra)
}

func (f DeclarativeWorkspaceDataFilters) MarshalJSON() ([]byte, error) {
	type plain DeclarativeWorkspaceDataFilters
	return marshalWithExtra(plain(f), f.Extra)
}

func (f *DeclarativeWorkspaceDataFilters) UnmarshalJSON(data []byte) error {
	type plain DeclarativeWorkspaceDataFilters
	return unmarshalWithExtra(data, (*plain)(f), &f.Extra)
}

func (w DeclarativeWorkspace) MarshalJSON() ([]byte, error) {
	type plain DeclarativeWorkspace
	return marshalWithExtra(plain(w), w.Extra)
}

func (w *DeclarativeWorkspace) UnmarshalJSON(data []byte) error {
	type plain DeclarativeWorkspace
	return unmarshalWithExtra(data, (*plain)(w), &w.Extra)
}

func (w DeclarativeWorkspaces) MarshalJSON() ([]byte, error) {
	type plain DeclarativeWorkspaces
	return marshalWithExtra(plain(w), w.Extra)
}

func (w *DeclarativeWorkspaces) UnmarshalJSON(data []byte) error {
	type plain DeclarativeWorkspaces
	return unmarshalWithExtra(data, (*plain)(w), &w.Extra)
}

func (m DeclarativeModel) MarshalJSON() ([]byte, error) {
	type plain DeclarativeModel
	return marshalWithExtra(plain(m), m.Extra)
}

func (m *DeclarativeModel) UnmarshalJSON(data []byte) error {
	type plain DeclarativeModel
	return unmarshalWithExtra(data, (*plain)(m), &m.Extra)
}

// MarshalJSON always sends datasets and dateInstances as lists; the server
// rejects null for either.
func (l DeclarativeLdm) MarshalJSON() ([]byte, error) {
	type plain DeclarativeLdm
	l.Datasets = orEmpty(l.Datasets)
	l.DateInstances = orEmpty(l.DateInstances)
	return marshalWithExtra(plain(l), l.Extra)
}

func (l *DeclarativeLdm) UnmarshalJSON(data []byte) error {
	type plain DeclarativeLdm
	return unmarshalWithExtra(data, (*plain)(l), &l.Extra)
}

func (d DeclarativeDataset) MarshalJSON() ([]byte, error) {
	type plain DeclarativeDataset
	return marshalWithExtra(plain(d), d.Extra)
}

func (d *DeclarativeDataset) UnmarshalJSON(data []byte) error {
	type plain DeclarativeDataset
	return unmarshalWithExtra(data, (*plain)(d), &d.Extra)
}

func (a DeclarativeAttribute) MarshalJSON() ([]byte, error) {
	type plain DeclarativeAttribute
	return marshalWithExtra(plain(a), a.Extra)
}

func (a *DeclarativeAttribute) UnmarshalJSON(data []byte) error {
	type plain DeclarativeAttribute
	return unmarshalWithExtra(data, (*plain)(a), &a.Extra)
}

func (l DeclarativeLabel) MarshalJSON() ([]byte, error) {
	type plain DeclarativeLabel
	return marshalWithExtra(plain(l), l.Extra)
}

func (l *DeclarativeLabel) UnmarshalJSON(data []byte) error {
	type plain DeclarativeLabel
	return unmarshalWithExtra(data, (*plain)(l), &l.Extra)
}

func (f DeclarativeFact) MarshalJSON() ([]byte, error) {
	type plain DeclarativeFact
	return marshalWithExtra(plain(f), f.Extra)
}

func (f *DeclarativeFact) UnmarshalJSON(data []byte) error {
	type plain DeclarativeFact
	return unmarshalWithExtra(data, (*plain)(f), &f.Extra)
}

func (r DeclarativeReference) MarshalJSON() ([]byte, error) {
	type plain DeclarativeReference
	return marshalWithExtra(plain(r), r.Extra)
}

func (r *DeclarativeReference) UnmarshalJSON(data []byte) error {
	type plain DeclarativeReference
	return unmarshalWithExtra(data, (*plain)(r), &r.Extra)
}

func (t DataSourceTableIdentifier) MarshalJSON() ([]byte, error) {
	type plain DataSourceTableIdentifier
	return marshalWithExtra(plain(t), t.Extra)
}

func (t *DataSourceTableIdentifier) UnmarshalJSON(data []byte) error {
	type plain DataSourceTableIdentifier
	return unmarshalWithExtra(data, (*plain)(t), &t.Extra)
}

func (s DeclarativeDatasetSQL) MarshalJSON() ([]byte, error) {
	type plain DeclarativeDatasetSQL
	return marshalWithExtra(plain(s), s.Extra)
}

func (s *DeclarativeDatasetSQL) UnmarshalJSON(data []byte) error {
	type plain DeclarativeDatasetSQL
	return unmarshalWithExtra(data, (*plain)(s), &s.Extra)
}

func (c WorkspaceDataFilterColumn) MarshalJSON() ([]byte, error) {
	type plain WorkspaceDataFilterColumn
	return marshalWithExtra(plain(c), c.Extra)
}

func (c *WorkspaceDataFilterColumn) UnmarshalJSON(data []byte) error {
	type plain WorkspaceDataFilterColumn
	return unmarshalWithExtra(data, (*plain)(c), &c.Extra)
}

func (r WorkspaceDataFilterReference) MarshalJSON() ([]byte, error) {
	type plain WorkspaceDataFilterReference
	return marshalWithExtra(plain(r), r.Extra)
}

func (r *WorkspaceDataFilterReference) UnmarshalJSON(data []byte) error {
	type plain WorkspaceDataFilterReference
	return unmarshalWithExtra(data, (*plain)(r), &r.Extra)
}

func (g GranularitiesFormatting) MarshalJSON() ([]byte, error) {
	type plain GranularitiesFormatting
	return marshalWithExtra(plain(g), g.Extra)
}

func (g *GranularitiesFormatting) UnmarshalJSON(data []byte) error {
	type plain GranularitiesFormatting
	return unmarshalWithExtra(data, (*plain)(g), &g.Extra)
}

func (d DeclarativeDateDataset) MarshalJSON() ([]byte, error) {
	type plain DeclarativeDateDataset
	return marshalWithExtra(plain(d), d.Extra)
}

func (d *DeclarativeDateDataset) UnmarshalJSON(data []byte) error {
	type plain DeclarativeDateDataset
	return unmarshalWithExtra(data, (*plain)(d), &d.Extra)
}

func (e DeclarativeDatasetExtension) MarshalJSON() ([]byte, error) {
	type plain DeclarativeDatasetExtension
	return marshalWithExtra(plain(e), e.Extra)
}

func (e *DeclarativeDatasetExtension) UnmarshalJSON(data []byte) error {
	type plain DeclarativeDatasetExtension
	return unmarshalWithExtra(data, (*plain)(e), &e.Extra)
}
