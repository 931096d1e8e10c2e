package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/schema"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation  = "23505"
	notNullViolation = "23502"
)

// now is the clock used for system timestamps, truncated to Postgres precision.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// PgStore serves collections from Postgres.
type PgStore struct {
	db DBTX
}

// NewPgStore creates a store over db
func NewPgStore(db DBTX) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Collection(e *schema.Entity) Collection {
	return &pgCollection{db: s.db, entity: e}
}

func (s *PgStore) Accounts() AccountRepository {
	return NewAccountRepository(s.db)
}

type pgCollection struct {
	db     DBTX
	entity *schema.Entity
}

func (r *pgCollection) Entity() *schema.Entity { return r.entity }

// Find retrieves one page of records
func (r *pgCollection) Find(ctx context.Context, spec query.Spec) ([]model.Record, error) {
	fields := projection(r.entity, spec.Fields())
	where, args := buildWhere(r.entity, spec.Conditions(), 1)
	argCount := len(args) + 1

	var queryBuilder strings.Builder
	queryBuilder.WriteString(fmt.Sprintf("SELECT %s FROM %s", columnList(fields), r.entity.Table))
	if where != "" {
		queryBuilder.WriteString(" " + where)
	}
	if orderBy := buildOrderBy(r.entity, spec.SortKeys()); orderBy != "" {
		queryBuilder.WriteString(" " + orderBy)
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, spec.Take(), spec.Skip())

	records, err := r.queryRecords(ctx, queryBuilder.String(), args, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", r.entity.Name, err)
	}
	return records, nil
}

// Count returns the number of records matching the query conditions
func (r *pgCollection) Count(ctx context.Context, spec query.Spec) (int64, error) {
	where, args := buildWhere(r.entity, spec.Conditions(), 1)
	sql := "SELECT COUNT(*) FROM " + r.entity.Table
	if where != "" {
		sql += " " + where
	}
	var total int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.entity.Name, err)
	}
	return total, nil
}

// Get retrieves a single record by id
func (r *pgCollection) Get(ctx context.Context, id string, vis Visibility) (model.Record, error) {
	fields := r.entity.Visible()
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", columnList(fields), r.entity.Table)
	if vis == ExcludeDeleted {
		sql += " AND is_deleted = FALSE"
	}
	records, err := r.queryRecords(ctx, sql, []any{id}, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.entity.Name, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// Insert stores a new record
func (r *pgCollection) Insert(ctx context.Context, rec model.Record) (model.Record, error) {
	full, err := newRecord(r.entity, rec)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(r.entity.Fields))
	placeholders := make([]string, 0, len(r.entity.Fields))
	args := make([]any, 0, len(r.entity.Fields))
	for i, f := range r.entity.Fields {
		cols = append(cols, f.Column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, full[f.Name])
	}
	visible := r.entity.Visible()
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.entity.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), columnList(visible))

	records, err := r.queryRecords(ctx, sql, args, visible)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", r.entity.Name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to insert %s: no row returned", r.entity.Name)
	}
	return records[0], nil
}

// Update applies changes to a record and returns the result
func (r *pgCollection) Update(ctx context.Context, id string, changes model.Record, vis Visibility) (model.Record, error) {
	records, err := r.update(ctx, id, changes, nil, vis)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.entity.Name, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// CompareAndUpdate applies changes when the stored record still matches expect
func (r *pgCollection) CompareAndUpdate(ctx context.Context, id string, expect, changes model.Record) (model.Record, error) {
	records, err := r.update(ctx, id, changes, expect, ExcludeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.entity.Name, err)
	}
	if len(records) > 0 {
		return records[0], nil
	}
	if _, err := r.Get(ctx, id, ExcludeDeleted); err != nil {
		return nil, err
	}
	return nil, ErrStale
}

func (r *pgCollection) update(ctx context.Context, id string, changes, expect model.Record, vis Visibility) ([]model.Record, error) {
	fields, values, err := normalizeChanges(r.entity, changes)
	if err != nil {
		return nil, err
	}

	var queryBuilder strings.Builder
	args := make([]any, 0, len(values)+len(expect)+2)
	argCount := 1

	queryBuilder.WriteString("UPDATE " + r.entity.Table + " SET ")
	for i, f := range fields {
		queryBuilder.WriteString(fmt.Sprintf("%s = $%d, ", f.Column, argCount))
		args = append(args, values[i])
		argCount++
	}
	queryBuilder.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argCount, argCount+1))
	args = append(args, now(), id)
	argCount += 2
	if vis == ExcludeDeleted {
		queryBuilder.WriteString(" AND is_deleted = FALSE")
	}

	for _, name := range sortedKeys(expect) {
		f, ok := r.entity.Field(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown field %q", r.entity.Name, name)
		}
		v, err := f.Normalize(expect[name])
		if err != nil {
			return nil, err
		}
		if v == nil {
			queryBuilder.WriteString(" AND " + f.Column + " IS NULL")
			continue
		}
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", f.Column, argCount))
		args = append(args, v)
		argCount++
	}

	visible := r.entity.Visible()
	queryBuilder.WriteString(" RETURNING " + columnList(visible))
	return r.queryRecords(ctx, queryBuilder.String(), args, visible)
}

// SoftDelete flags a record as deleted
func (r *pgCollection) SoftDelete(ctx context.Context, id string) error {
	sql := fmt.Sprintf("UPDATE %s SET is_deleted = TRUE, deleted_at = $1, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE", r.entity.Table)
	tag, err := r.db.Exec(ctx, sql, now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.entity.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgCollection) queryRecords(ctx context.Context, sql string, args []any, fields []schema.Field) ([]model.Record, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		if len(values) != len(fields) {
			return nil, fmt.Errorf("expected %d columns, got %d", len(fields), len(values))
		}
		rec := make(model.Record, len(fields))
		for i, f := range fields {
			if rec[f.Name], err = f.Normalize(values[i]); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return records, nil
}

// newRecord validates rec and fills in the system fields of a fresh record.
func newRecord(e *schema.Entity, rec model.Record) (model.Record, error) {
	fields, values, err := normalizeChanges(e, rec)
	if err != nil {
		return nil, err
	}
	ts := now()
	full := model.Record{
		schema.FieldID:        uuid.NewString(),
		schema.FieldIsDeleted: false,
		schema.FieldCreatedAt: ts,
		schema.FieldUpdatedAt: ts,
		schema.FieldDeletedAt: nil,
	}
	for _, f := range e.Writable() {
		full[f.Name] = nil
	}
	for i, f := range fields {
		full[f.Name] = values[i]
	}
	for _, f := range e.Writable() {
		if f.Required && full[f.Name] == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrRequired, e.Name, f.Name)
		}
	}
	return full, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case notNullViolation:
			return fmt.Errorf("%w: %s.%s", ErrRequired, pgErr.TableName, pgErr.ColumnName)
		}
	}
	return err
}
