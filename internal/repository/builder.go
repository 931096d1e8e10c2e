package repository

import (
	"fmt"
	"sort"
	"strings"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/schema"
)

var sqlOperators = map[query.Operator]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// buildWhere renders conditions as a WHERE clause with placeholders numbered from argStart.
func buildWhere(e *schema.Entity, conds []query.Condition, argStart int) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	var where strings.Builder
	args := make([]any, 0, len(conds))
	argCount := argStart

	for i, c := range conds {
		if i == 0 {
			where.WriteString("WHERE ")
		} else {
			where.WriteString(" AND ")
		}
		f, ok := e.Field(c.Field)
		if c.Never || !ok {
			where.WriteString("FALSE")
			continue
		}
		if c.Value == nil {
			if c.Op == query.OpEq {
				where.WriteString(f.Column + " IS NULL")
			} else {
				where.WriteString("FALSE")
			}
			continue
		}
		where.WriteString(fmt.Sprintf("%s %s $%d", f.Column, sqlOperators[c.Op], argCount))
		args = append(args, c.Value)
		argCount++
	}
	return where.String(), args
}

// buildOrderBy renders sort keys. query.Spec only holds known fields, so lookups cannot fail.
func buildOrderBy(e *schema.Entity, keys []query.SortKey) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		f, ok := e.Field(k.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, f.Column+" "+dir)
	}
	if len(parts) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// projection resolves field names to fields, skipping unknown names.
func projection(e *schema.Entity, names []string) []schema.Field {
	out := make([]schema.Field, 0, len(names))
	for _, name := range names {
		if f, ok := e.Field(name); ok {
			out = append(out, f)
		}
	}
	return out
}

func columnList(fields []schema.Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return strings.Join(cols, ", ")
}

// normalizeChanges validates that changes only touch writable fields and
// returns them in canonical form, ordered by field declaration.
func normalizeChanges(e *schema.Entity, changes model.Record) ([]schema.Field, []any, error) {
	for name := range changes {
		f, ok := e.Field(name)
		if !ok || schema.IsSystem(f.Name) {
			return nil, nil, fmt.Errorf("%s: field %q is not writable", e.Name, name)
		}
	}
	var fields []schema.Field
	var values []any
	for _, f := range e.Writable() {
		v, ok := changes[f.Name]
		if !ok {
			continue
		}
		nv, err := f.Normalize(v)
		if err != nil {
			return nil, nil, err
		}
		if nv == nil && f.Required {
			return nil, nil, fmt.Errorf("%w: %s.%s", ErrRequired, e.Name, f.Name)
		}
		fields = append(fields, f)
		values = append(values, nv)
	}
	return fields, values, nil
}

func sortedKeys(rec model.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
