package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"
)

// FromMap decodes a parsed YAML/JSON document into v. When camelCase is false
// the document keys are snake_case and are normalized before decoding.
// Keys outside the model are kept in the Extra maps.
func FromMap(m map[string]any, camelCase bool, v any) error {
	var doc any = m
	if !camelCase {
		doc = rekey(m, snakeToCamel)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalog: failed to encode document: %w", err)
	}

	if err := json.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("catalog: failed to decode %T: %w", v, err)
	}
	return nil
}

// ToMap encodes v into a generic document with camelCase keys, or snake_case
// keys when camelCase is false.
func ToMap(v any, camelCase bool) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to encode %T: %w", v, err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("catalog: %T is not an object: %w", v, err)
	}
	if camelCase {
		return m, nil
	}
	return rekey(m, camelToSnake).(map[string]any), nil
}

// rekey rewrites every object key in doc with fn. Keys are visited in sorted
// order so that colliding keys resolve the same way on every run.
func rekey(doc any, fn func(string) string) any {
	switch t := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			out[fn(k)] = rekey(t[k], fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = rekey(item, fn)
		}
		return out
	default:
		return doc
	}
}

func snakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
