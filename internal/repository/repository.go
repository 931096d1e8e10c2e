package repository

import (
	"context"
	"errors"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/schema"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrStale is returned by CompareAndUpdate when the record no longer holds the expected values.
	ErrStale = errors.New("record was modified concurrently")
	// ErrRequired is returned when a write leaves a required field empty.
	ErrRequired = errors.New("required field missing")
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Visibility selects whether soft-deleted records are addressable.
type Visibility int

const (
	ExcludeDeleted Visibility = iota
	IncludeDeleted
)

// Collection stores the records of one entity.
type Collection interface {
	Entity() *schema.Entity
	// Find returns the page of records described by spec, projected to spec.Fields().
	Find(ctx context.Context, spec query.Spec) ([]model.Record, error)
	// Count returns the number of records matching spec's conditions, ignoring pagination.
	Count(ctx context.Context, spec query.Spec) (int64, error)
	Get(ctx context.Context, id string, vis Visibility) (model.Record, error)
	// Insert assigns id and timestamps and returns the stored record.
	Insert(ctx context.Context, rec model.Record) (model.Record, error)
	Update(ctx context.Context, id string, changes model.Record, vis Visibility) (model.Record, error)
	// CompareAndUpdate applies changes only if every field in expect still holds its value.
	CompareAndUpdate(ctx context.Context, id string, expect, changes model.Record) (model.Record, error)
	// SoftDelete flags the record deleted; it stays addressable with IncludeDeleted.
	SoftDelete(ctx context.Context, id string) error
}

// Store hands out collections and the account repository over one backend.
type Store interface {
	Collection(entity *schema.Entity) Collection
	Accounts() AccountRepository
}
