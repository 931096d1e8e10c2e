package schema

import (
	"errors"
	"fmt"

	"campus_api/internal/model"
)

// System fields carried by every entity.
const (
	FieldID        = "id"
	FieldIsDeleted = "isDeleted"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldDeletedAt = "deletedAt"
)

func systemFields() []Field {
	return []Field{
		{Name: FieldID, Column: "id", Type: String},
		{Name: FieldIsDeleted, Column: "is_deleted", Type: Bool, Hidden: true},
		{Name: FieldCreatedAt, Column: "created_at", Type: Time},
		{Name: FieldUpdatedAt, Column: "updated_at", Type: Time},
		{Name: FieldDeletedAt, Column: "deleted_at", Type: Time, Hidden: true},
	}
}

// IsSystem reports whether name is maintained by the store rather than by callers.
func IsSystem(name string) bool {
	switch name {
	case FieldID, FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldDeletedAt:
		return true
	}
	return false
}

// Entity is a persisted resource collection.
type Entity struct {
	Name  string
	Table string
	// Fields lists the entity's own attributes; system fields are added by the registry.
	Fields []Field
	// CreatedField drives the default sort order. Empty means insertion order.
	CreatedField string

	index map[string]int
}

// Field returns the field called name.
func (e *Entity) Field(name string) (Field, bool) {
	i, ok := e.index[name]
	if !ok {
		return Field{}, false
	}
	return e.Fields[i], true
}

// Visible returns every field that may appear in API output, in declaration order.
func (e *Entity) Visible() []Field {
	out := make([]Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if !f.Hidden {
			out = append(out, f)
		}
	}
	return out
}

// Writable returns the caller-maintained fields.
func (e *Entity) Writable() []Field {
	out := make([]Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if !IsSystem(f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// Public returns a copy of rec without hidden fields.
func (e *Entity) Public(rec model.Record) model.Record {
	out := make(model.Record, len(rec))
	for k, v := range rec {
		if f, ok := e.Field(k); ok && !f.Hidden {
			out[k] = v
		}
	}
	return out
}

// Registry is the frozen set of entities known to the application.
type Registry struct {
	entities map[string]*Entity
	order    []string
}

// NewRegistry validates defs, adds system fields and freezes the result.
func NewRegistry(defs ...Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(defs))}
	tables := make(map[string]bool, len(defs))

	for _, def := range defs {
		if def.Name == "" || def.Table == "" {
			return nil, errors.New("entity name and table are required")
		}
		if _, dup := r.entities[def.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", def.Name)
		}
		if tables[def.Table] {
			return nil, fmt.Errorf("duplicate table %q", def.Table)
		}
		tables[def.Table] = true

		e := &Entity{
			Name:         def.Name,
			Table:        def.Table,
			CreatedField: def.CreatedField,
		}
		e.Fields = append(systemFields(), def.Fields...)
		e.index = make(map[string]int, len(e.Fields))
		columns := make(map[string]bool, len(e.Fields))
		for i, f := range e.Fields {
			if f.Name == "" || f.Column == "" {
				return nil, fmt.Errorf("entity %s: field name and column are required", def.Name)
			}
			if _, dup := e.index[f.Name]; dup {
				return nil, fmt.Errorf("entity %s: duplicate field %q", def.Name, f.Name)
			}
			if columns[f.Column] {
				return nil, fmt.Errorf("entity %s: duplicate column %q", def.Name, f.Column)
			}
			e.index[f.Name] = i
			columns[f.Column] = true
		}
		if e.CreatedField != "" {
			if _, ok := e.index[e.CreatedField]; !ok {
				return nil, fmt.Errorf("entity %s: unknown created field %q", def.Name, e.CreatedField)
			}
		}

		r.entities[e.Name] = e
		r.order = append(r.order, e.Name)
	}
	return r, nil
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// MustLookup is Lookup for names declared in this package; it panics on unknown names.
func (r *Registry) MustLookup(name string) *Entity {
	e, ok := r.entities[name]
	if !ok {
		panic(fmt.Sprintf("schema: unknown entity %q", name))
	}
	return e
}

// Entities returns all entities in declaration order.
func (r *Registry) Entities() []*Entity {
	out := make([]*Entity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entities[name])
	}
	return out
}
