package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/schema"
)

// MemStore keeps every table in process memory. It backs tests and
// STORE=memory. It follows the Postgres schema built by config.AutoMigrate:
// required fields, unique fields among live rows and NULL ordering.
type MemStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

type memTable struct {
	mu   sync.RWMutex
	rows []model.Record
	byID map[string]int
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

func (s *MemStore) table(name string) *memTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		t = &memTable{byID: make(map[string]int)}
		s.tables[name] = t
	}
	return t
}

func (s *MemStore) Collection(e *schema.Entity) Collection {
	return &memCollection{table: s.table(e.Table), entity: e}
}

func (s *MemStore) Accounts() AccountRepository {
	return &memAccountRepository{table: s.table("accounts")}
}

type memCollection struct {
	table  *memTable
	entity *schema.Entity
}

func (c *memCollection) Entity() *schema.Entity { return c.entity }

func (c *memCollection) Find(_ context.Context, spec query.Spec) ([]model.Record, error) {
	c.table.mu.RLock()
	defer c.table.mu.RUnlock()

	matched := c.table.match(spec.Conditions())
	keys := spec.SortKeys()
	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j], keys) })

	out := []model.Record{}
	skip := spec.Skip()
	if skip >= len(matched) {
		return out, nil
	}
	end := min(skip+spec.Take(), len(matched))
	fields := spec.Fields()
	for _, row := range matched[skip:end] {
		rec := make(model.Record, len(fields))
		for _, name := range fields {
			rec[name] = row[name]
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *memCollection) Count(_ context.Context, spec query.Spec) (int64, error) {
	c.table.mu.RLock()
	defer c.table.mu.RUnlock()
	return int64(len(c.table.match(spec.Conditions()))), nil
}

func (c *memCollection) Get(_ context.Context, id string, vis Visibility) (model.Record, error) {
	c.table.mu.RLock()
	defer c.table.mu.RUnlock()
	row, err := c.table.lookup(id, vis)
	if err != nil {
		return nil, err
	}
	return c.entity.Public(row), nil
}

func (c *memCollection) Insert(_ context.Context, rec model.Record) (model.Record, error) {
	full, err := newRecord(c.entity, rec)
	if err != nil {
		return nil, err
	}

	c.table.mu.Lock()
	defer c.table.mu.Unlock()
	if err := c.table.checkUnique(c.entity, full, ""); err != nil {
		return nil, err
	}
	c.table.byID[full.ID()] = len(c.table.rows)
	c.table.rows = append(c.table.rows, full)
	return c.entity.Public(full), nil
}

func (c *memCollection) Update(_ context.Context, id string, changes model.Record, vis Visibility) (model.Record, error) {
	return c.apply(id, changes, nil, vis)
}

func (c *memCollection) CompareAndUpdate(_ context.Context, id string, expect, changes model.Record) (model.Record, error) {
	return c.apply(id, changes, expect, ExcludeDeleted)
}

func (c *memCollection) apply(id string, changes, expect model.Record, vis Visibility) (model.Record, error) {
	fields, values, err := normalizeChanges(c.entity, changes)
	if err != nil {
		return nil, err
	}

	c.table.mu.Lock()
	defer c.table.mu.Unlock()
	row, err := c.table.lookup(id, vis)
	if err != nil {
		return nil, err
	}
	for name, want := range expect {
		f, ok := c.entity.Field(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown field %q", c.entity.Name, name)
		}
		nv, err := f.Normalize(want)
		if err != nil {
			return nil, err
		}
		if !equal(row[name], nv) {
			return nil, ErrStale
		}
	}

	next := maps.Clone(row)
	for i, f := range fields {
		next[f.Name] = values[i]
	}
	next[schema.FieldUpdatedAt] = now()
	if err := c.table.checkUnique(c.entity, next, id); err != nil {
		return nil, err
	}
	c.table.rows[c.table.byID[id]] = next
	return c.entity.Public(next), nil
}

func (c *memCollection) SoftDelete(_ context.Context, id string) error {
	c.table.mu.Lock()
	defer c.table.mu.Unlock()
	row, err := c.table.lookup(id, ExcludeDeleted)
	if err != nil {
		return err
	}
	ts := now()
	next := maps.Clone(row)
	next[schema.FieldIsDeleted] = true
	next[schema.FieldDeletedAt] = ts
	next[schema.FieldUpdatedAt] = ts
	c.table.rows[c.table.byID[id]] = next
	return nil
}

// lookup returns the stored row; callers hold the table lock.
func (t *memTable) lookup(id string, vis Visibility) (model.Record, error) {
	i, ok := t.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	row := t.rows[i]
	if vis == ExcludeDeleted && row[schema.FieldIsDeleted] == true {
		return nil, ErrNotFound
	}
	return row, nil
}

// match returns the rows satisfying every condition, in insertion order.
func (t *memTable) match(conds []query.Condition) []model.Record {
	var out []model.Record
	for _, row := range t.rows {
		ok := true
		for _, c := range conds {
			if !matches(row, c) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}

// checkUnique enforces unique fields among live rows, like the partial
// unique indexes created by config.AutoMigrate.
func (t *memTable) checkUnique(e *schema.Entity, rec model.Record, selfID string) error {
	for _, f := range e.Fields {
		if !f.Unique || rec[f.Name] == nil {
			continue
		}
		for _, row := range t.rows {
			if row.ID() != selfID && !deleted(row) && equal(row[f.Name], rec[f.Name]) {
				return fmt.Errorf("%w: %s.%s", ErrDuplicate, e.Table, f.Column)
			}
		}
	}
	return nil
}

func deleted(row model.Record) bool {
	d, _ := row[schema.FieldIsDeleted].(bool)
	return d
}

func matches(row model.Record, c query.Condition) bool {
	if c.Never {
		return false
	}
	v := row[c.Field]
	if c.Value == nil {
		return c.Op == query.OpEq && v == nil
	}
	if v == nil {
		return false
	}
	n, ok := compare(v, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case query.OpEq:
		return n == 0
	case query.OpGt:
		return n > 0
	case query.OpGte:
		return n >= 0
	case query.OpLt:
		return n < 0
	case query.OpLte:
		return n <= 0
	}
	return false
}

// less orders rows by keys. NULLs sort after every value ascending, as in Postgres.
func less(a, b model.Record, keys []query.SortKey) bool {
	for _, k := range keys {
		n := compareNullable(a[k.Field], b[k.Field])
		if n == 0 {
			continue
		}
		if k.Desc {
			return n > 0
		}
		return n < 0
	}
	return false
}

func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	n, _ := compare(a, b)
	return n
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	n, ok := compare(a, b)
	return ok && n == 0
}

// compare orders two canonical values of the same type.
func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), true
		case float64:
			return cmp.Compare(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y), true
		case int64:
			return cmp.Compare(x, float64(y)), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

type memAccountRepository struct {
	table *memTable
}

func (r *memAccountRepository) Create(_ context.Context, a *model.Account) error {
	rec := model.Record{
		schema.FieldID:        a.ID,
		schema.FieldIsDeleted: false,
		schema.FieldCreatedAt: a.CreatedAt.UTC(),
		schema.FieldUpdatedAt: a.UpdatedAt.UTC(),
		schema.FieldDeletedAt: nil,
		"email":               derefOrNil(a.Email),
		"username":            derefOrNil(a.Username),
		"phone":               derefOrNil(a.Phone),
		"countryCode":         a.CountryCode,
		"role":                string(a.Role),
		"password":            a.PasswordHash,
	}

	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	if _, dup := r.table.byID[a.ID]; dup {
		return fmt.Errorf("failed to create account: %w: accounts.id", ErrDuplicate)
	}
	for _, field := range []string{"email", "username", "phone"} {
		if rec[field] == nil {
			continue
		}
		for _, row := range r.table.rows {
			if !deleted(row) && equal(row[field], rec[field]) {
				return fmt.Errorf("failed to create account: %w: accounts.%s", ErrDuplicate, field)
			}
		}
	}
	r.table.byID[a.ID] = len(r.table.rows)
	r.table.rows = append(r.table.rows, rec)
	return nil
}

func (r *memAccountRepository) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.findBy("email", email), nil
}

func (r *memAccountRepository) FindByPhone(_ context.Context, phone string) (*model.Account, error) {
	return r.findBy("phone", phone), nil
}

func (r *memAccountRepository) FindByID(_ context.Context, id string) (*model.Account, error) {
	return r.findBy(schema.FieldID, id), nil
}

func (r *memAccountRepository) Exists(_ context.Context, id string) (bool, error) {
	return r.findBy(schema.FieldID, id) != nil, nil
}

func (r *memAccountRepository) findBy(field, value string) *model.Account {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()
	for _, row := range r.table.rows {
		if deleted(row) || row[field] != value {
			continue
		}
		a := &model.Account{
			ID:           row.ID(),
			Email:        stringPtr(row["email"]),
			Username:     stringPtr(row["username"]),
			Phone:        stringPtr(row["phone"]),
			CountryCode:  row.String("countryCode"),
			Role:         model.Role(row.String("role")),
			PasswordHash: row.String("password"),
		}
		a.CreatedAt, _ = row[schema.FieldCreatedAt].(time.Time)
		a.UpdatedAt, _ = row[schema.FieldUpdatedAt].(time.Time)
		return a
	}
	return nil
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
