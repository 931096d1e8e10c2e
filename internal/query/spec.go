// Package query turns request parameters into an immutable retrieval spec:
// implicit soft-delete filter, user filters, sort, projection and pagination.
package query

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"campus_api/internal/schema"
)

// Control parameters. They are never treated as filters.
const (
	ParamPage   = "page"
	ParamLimit  = "limit"
	ParamSort   = "sort"
	ParamFields = "fields"
)

// Pagination defaults.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Operator is a comparison applied by a filter condition.
type Operator string

const (
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
)

// ParseOperator returns the operator named s.
func ParseOperator(s string) (Operator, bool) {
	switch op := Operator(s); op {
	case OpEq, OpGt, OpGte, OpLt, OpLte:
		return op, true
	}
	return "", false
}

// Condition restricts results to records whose Field compares to Value under Op.
type Condition struct {
	Field string
	Op    Operator
	Value any
	// Never is set for filters on fields the entity does not expose; such a condition matches nothing.
	Never bool
}

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// Options bound pagination.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// ValidationError reports a malformed query parameter.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

// IsValidation reports whether err was caused by a malformed query parameter.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Spec is an immutable retrieval description. Every refinement returns a new Spec.
type Spec struct {
	entity *schema.Entity
	opts   Options

	enforced []Condition
	filters  []Condition
	sort     []SortKey
	fields   []string
	page     int
	limit    int
}

// New returns a spec over entity that matches every non-deleted record.
func New(entity *schema.Entity, opts Options) Spec {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	return Spec{
		entity:   entity,
		opts:     opts,
		enforced: []Condition{{Field: schema.FieldIsDeleted, Op: OpEq, Value: false}},
		page:     1,
		limit:    opts.DefaultLimit,
	}
}

// Parse applies every recognized parameter in values to a new spec.
func Parse(entity *schema.Entity, values url.Values, opts Options) (Spec, error) {
	s, err := New(entity, opts).Filter(values)
	if err != nil {
		return Spec{}, err
	}
	if s, err = s.Sort(values.Get(ParamSort)); err != nil {
		return Spec{}, err
	}
	if s, err = s.Project(values.Get(ParamFields)); err != nil {
		return Spec{}, err
	}
	return s.Paginate(values.Get(ParamPage), values.Get(ParamLimit))
}

// Entity returns the entity being queried.
func (s Spec) Entity() *schema.Entity { return s.entity }

// Filter adds a condition for every non-control parameter. Keys take the form
// "field" (equality) or "field[op]". Filters on isDeleted are ignored.
func (s Spec) Filter(values url.Values) (Spec, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	added := make([]Condition, 0, len(keys))
	for _, key := range keys {
		switch key {
		case ParamPage, ParamLimit, ParamSort, ParamFields:
			continue
		}
		name, op, err := parseFilterKey(key)
		if err != nil {
			return Spec{}, err
		}
		if name == schema.FieldIsDeleted {
			continue
		}

		f, ok := s.entity.Field(name)
		if !ok || f.Hidden {
			added = append(added, Condition{Field: name, Op: op, Never: true})
			continue
		}
		if f.Type == schema.Bool && op != OpEq {
			return Spec{}, &ValidationError{Param: key, Reason: "boolean fields support equality only"}
		}
		for _, raw := range values[key] {
			v, err := f.Parse(raw)
			if err != nil {
				return Spec{}, &ValidationError{Param: key, Reason: err.Error()}
			}
			added = append(added, Condition{Field: name, Op: op, Value: v})
		}
	}

	out := s.clone()
	out.filters = append(out.filters, added...)
	return out, nil
}

func parseFilterKey(key string) (string, Operator, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.ContainsRune(key, ']') {
			return "", "", &ValidationError{Param: key, Reason: "malformed filter"}
		}
		return key, OpEq, nil
	}
	if open == 0 || !strings.HasSuffix(key, "]") || strings.Count(key, "[") != 1 {
		return "", "", &ValidationError{Param: key, Reason: "malformed filter"}
	}
	op, ok := ParseOperator(key[open+1 : len(key)-1])
	if !ok {
		return "", "", &ValidationError{Param: key, Reason: "unknown operator"}
	}
	return key[:open], op, nil
}

// Enforce adds a server-side equality condition on field. Enforced conditions
// override any user filter on the same field. An unknown field yields a spec
// that matches nothing.
func (s Spec) Enforce(field string, value any) Spec {
	out := s.clone()
	f, ok := s.entity.Field(field)
	if !ok {
		out.enforced = append(out.enforced, Condition{Field: field, Op: OpEq, Never: true})
		return out
	}
	v, err := f.Normalize(value)
	if err != nil {
		out.enforced = append(out.enforced, Condition{Field: field, Op: OpEq, Never: true})
		return out
	}
	out.enforced = append(out.enforced, Condition{Field: field, Op: OpEq, Value: v})
	return out
}

// Sort replaces the sort order with the comma-separated field list in param.
// A leading "-" sorts descending. An empty param restores the default order.
func (s Spec) Sort(param string) (Spec, error) {
	var keys []SortKey
	seen := make(map[string]bool)
	for _, tok := range strings.Split(param, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key := SortKey{Field: tok}
		if strings.HasPrefix(tok, "-") {
			key = SortKey{Field: tok[1:], Desc: true}
		}
		f, ok := s.entity.Field(key.Field)
		if !ok || f.Hidden {
			return Spec{}, &ValidationError{Param: ParamSort, Reason: fmt.Sprintf("unknown field %q", key.Field)}
		}
		if seen[key.Field] {
			return Spec{}, &ValidationError{Param: ParamSort, Reason: fmt.Sprintf("field %q listed twice", key.Field)}
		}
		seen[key.Field] = true
		keys = append(keys, key)
	}

	out := s.clone()
	out.sort = keys
	return out, nil
}

// Project restricts output to the comma-separated field list in param.
// Hidden fields are dropped and id is always returned.
func (s Spec) Project(param string) (Spec, error) {
	var fields []string
	requested := false
	seen := map[string]bool{schema.FieldID: true}
	for _, tok := range strings.Split(param, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		requested = true
		f, ok := s.entity.Field(tok)
		if !ok {
			return Spec{}, &ValidationError{Param: ParamFields, Reason: fmt.Sprintf("unknown field %q", tok)}
		}
		if f.Hidden || seen[tok] {
			continue
		}
		seen[tok] = true
		fields = append(fields, tok)
	}

	out := s.clone()
	out.fields = nil
	if requested {
		out.fields = append([]string{schema.FieldID}, fields...)
	}
	return out, nil
}

// Paginate sets the 1-based page and page size. Empty values keep the defaults.
// Out-of-range values are rejected, never clamped.
func (s Spec) Paginate(page, limit string) (Spec, error) {
	out := s.clone()
	if page != "" {
		n, err := strconv.Atoi(strings.TrimSpace(page))
		if err != nil || n < 1 {
			return Spec{}, &ValidationError{Param: ParamPage, Reason: "must be a positive integer"}
		}
		out.page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(strings.TrimSpace(limit))
		if err != nil || n < 1 {
			return Spec{}, &ValidationError{Param: ParamLimit, Reason: "must be a positive integer"}
		}
		if n > s.opts.MaxLimit {
			return Spec{}, &ValidationError{Param: ParamLimit, Reason: fmt.Sprintf("must not exceed %d", s.opts.MaxLimit)}
		}
		out.limit = n
	}
	if out.page-1 > math.MaxInt/out.limit {
		return Spec{}, &ValidationError{Param: ParamPage, Reason: "out of range"}
	}
	return out, nil
}

// Conditions returns the enforced conditions followed by the user filters on
// fields no enforced condition covers.
func (s Spec) Conditions() []Condition {
	covered := make(map[string]bool, len(s.enforced))
	out := make([]Condition, 0, len(s.enforced)+len(s.filters))
	for _, c := range s.enforced {
		covered[c.Field] = true
		out = append(out, c)
	}
	for _, c := range s.filters {
		if !covered[c.Field] {
			out = append(out, c)
		}
	}
	return out
}

// SortKeys returns the effective order: the requested keys, or the entity's
// creation field descending, with id ascending appended as a tie-breaker.
func (s Spec) SortKeys() []SortKey {
	keys := slices.Clone(s.sort)
	if len(keys) == 0 && s.entity.CreatedField != "" {
		keys = []SortKey{{Field: s.entity.CreatedField, Desc: true}}
	}
	for _, k := range keys {
		if k.Field == schema.FieldID {
			return keys
		}
	}
	return append(keys, SortKey{Field: schema.FieldID})
}

// Fields returns the projected field names, id first.
func (s Spec) Fields() []string {
	if s.fields != nil {
		return slices.Clone(s.fields)
	}
	visible := s.entity.Visible()
	out := make([]string, 0, len(visible))
	for _, f := range visible {
		out = append(out, f.Name)
	}
	return out
}

// Page returns the 1-based page number.
func (s Spec) Page() int { return s.page }

// Take returns the page size.
func (s Spec) Take() int { return s.limit }

// Skip returns the number of records before the page.
func (s Spec) Skip() int { return (s.page - 1) * s.limit }

func (s Spec) clone() Spec {
	out := s
	out.enforced = slices.Clone(s.enforced)
	out.filters = slices.Clone(s.filters)
	out.sort = slices.Clone(s.sort)
	out.fields = slices.Clone(s.fields)
	return out
}
