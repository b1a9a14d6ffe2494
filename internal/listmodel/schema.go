// Exports the discovered roles as a JSON Schema.

package listmodel

import (
	"strings"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the records seen so far as a JSON Schema.
//
// Dotted roles become nested object properties. Attached properties are
// marked read-only. ModelDataRole is not a field and is left out.
func (s *Store) JSONSchema() *jsonschema.Schema {
	s.mu.RLock()
	columns := s.roles.clone()
	idAttribute := s.idAttribute
	s.mu.RUnlock()

	root := &jsonschema.Schema{
		Version:    jsonschema.Version,
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	for _, col := range columns {
		if col.Name == ModelDataRole {
			root.Description = "Records may also be scalars."
			continue
		}
		if col.Name == idAttribute {
			root.Required = append(root.Required, idAttribute)
		}
		parent := root
		parts := strings.Split(col.Name, ".")
		for _, p := range parts[:len(parts)-1] {
			child, ok := parent.Properties.Get(p)
			if !ok {
				child = columnSchema(ColumnTypeObject)
				parent.Properties.Set(p, child)
			} else if child.Properties == nil {
				child.Type = "object"
				child.Properties = jsonschema.NewProperties()
			}
			parent = child
		}
		leaf := parts[len(parts)-1]
		if existing, ok := parent.Properties.Get(leaf); ok {
			// Created as the parent of an earlier dotted role.
			if existing.Type == "" {
				existing.Type = columnSchema(col.Type).Type
			}
			continue
		}
		prop := columnSchema(col.Type)
		if col.Attached {
			prop.ReadOnly = true
			prop.Description = "Attached property."
		}
		parent.Properties.Set(leaf, prop)
	}
	return root
}

// columnSchema maps a column type to a JSON Schema fragment.
func columnSchema(t ColumnType) *jsonschema.Schema {
	switch t {
	case ColumnTypeText:
		return &jsonschema.Schema{Type: "string"}
	case ColumnTypeNumber:
		return &jsonschema.Schema{Type: "number"}
	case ColumnTypeBool:
		return &jsonschema.Schema{Type: "boolean"}
	case ColumnTypeDate:
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	case ColumnTypeObject:
		return &jsonschema.Schema{Type: "object", Properties: jsonschema.NewProperties()}
	case ColumnTypeArray:
		return &jsonschema.Schema{Type: "array"}
	case ColumnTypeUnknown:
		return &jsonschema.Schema{}
	}
	return &jsonschema.Schema{}
}
