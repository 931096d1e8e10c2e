package repository

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/schema"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PgStore) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgStore(mock)
}

func mustEntity(t *testing.T, name string) *schema.Entity {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	return reg.MustLookup(name)
}

const pointageColumns = "id, created_at, updated_at, pointage_date, user_id, matiere_id"

func TestPgCollection_Find(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Pointages)
	spec, err := query.Parse(e, url.Values{"matiere": {"M1"}}, query.Options{})
	require.NoError(t, err)

	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT " + pointageColumns + " FROM pointages WHERE is_deleted = $1 AND matiere_id = $2 ORDER BY created_at DESC, id ASC LIMIT $3 OFFSET $4").
		WithArgs(false, "M1", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at", "pointage_date", "user_id", "matiere_id"}).
			AddRow("p1", ts, ts, ts, "u1", "M1"))

	records, err := store.Collection(e).Find(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.Record{
		"id": "p1", "createdAt": ts, "updatedAt": ts, "date": ts, "user": "u1", "matiere": "M1",
	}, records[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_FindProjectionAndNever(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Pointages)
	spec, err := query.Parse(e, url.Values{"planet": {"mars"}, "fields": {"user"}, "sort": {"user"}, "page": {"3"}, "limit": {"5"}}, query.Options{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, user_id FROM pointages WHERE is_deleted = $1 AND FALSE ORDER BY user_id ASC, id ASC LIMIT $2 OFFSET $3").
		WithArgs(false, 5, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id"}))

	records, err := store.Collection(e).Find(context.Background(), spec)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_Count(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Evaluations)
	spec, err := query.Parse(e, url.Values{"noteDS[gte]": {"10"}}, query.Options{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT(*) FROM evaluations WHERE is_deleted = $1 AND note_ds >= $2").
		WithArgs(false, 10.0).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	total, err := store.Collection(e).Count(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_Get(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Pointages)

	mock.ExpectQuery("SELECT " + pointageColumns + " FROM pointages WHERE id = $1 AND is_deleted = FALSE").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at", "pointage_date", "user_id", "matiere_id"}))

	_, err := store.Collection(e).Get(context.Background(), "missing", ExcludeDeleted)
	assert.ErrorIs(t, err, ErrNotFound)

	ts := time.Now().UTC()
	mock.ExpectQuery("SELECT " + pointageColumns + " FROM pointages WHERE id = $1").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at", "pointage_date", "user_id", "matiere_id"}).
			AddRow("p1", ts, ts, ts, "u1", "M1"))

	rec, err := store.Collection(e).Get(context.Background(), "p1", IncludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, "p1", rec.ID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_Insert(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Formations)
	ts := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO formations (id, is_deleted, created_at, updated_at, deleted_at, code_formation, name_formation) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at, code_formation, name_formation").
		WithArgs(pgxmock.AnyArg(), false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "L3", "Licence 3").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at", "code_formation", "name_formation"}).
			AddRow("f1", ts, ts, "L3", "Licence 3"))

	rec, err := store.Collection(e).Insert(context.Background(), model.Record{"codeFormation": "L3", "nameFormation": "Licence 3"})
	require.NoError(t, err)
	assert.Equal(t, "L3", rec["codeFormation"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_InsertDuplicate(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Formations)

	mock.ExpectQuery("INSERT INTO formations (id, is_deleted, created_at, updated_at, deleted_at, code_formation, name_formation) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at, code_formation, name_formation").
		WithArgs(pgxmock.AnyArg(), false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "L3", "Licence 3").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "formations_code_formation_key"})

	_, err := store.Collection(e).Insert(context.Background(), model.Record{"codeFormation": "L3", "nameFormation": "Licence 3"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_InsertNotNullViolation(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Formations)

	mock.ExpectQuery("INSERT INTO formations (id, is_deleted, created_at, updated_at, deleted_at, code_formation, name_formation) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at, code_formation, name_formation").
		WithArgs(pgxmock.AnyArg(), false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "L3", "Licence 3").
		WillReturnError(&pgconn.PgError{Code: "23502", TableName: "formations", ColumnName: "name_formation"})

	_, err := store.Collection(e).Insert(context.Background(), model.Record{"codeFormation": "L3", "nameFormation": "Licence 3"})
	assert.ErrorIs(t, err, ErrRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_InsertMissingRequiredSkipsQuery(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Formations)

	_, err := store.Collection(e).Insert(context.Background(), model.Record{"codeFormation": "L3"})
	assert.ErrorIs(t, err, ErrRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_InsertRejectsSystemFields(t *testing.T) {
	_, store := newMockStore(t)
	e := mustEntity(t, schema.Formations)

	_, err := store.Collection(e).Insert(context.Background(), model.Record{"codeFormation": "L3", "isDeleted": true})
	assert.Error(t, err)
}

func TestPgCollection_UpdateNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Pointages)

	mock.ExpectQuery("UPDATE pointages SET matiere_id = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE RETURNING " + pointageColumns).
		WithArgs("M2", pgxmock.AnyArg(), "p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at", "pointage_date", "user_id", "matiere_id"}))

	_, err := store.Collection(e).Update(context.Background(), "p1", model.Record{"matiere": "M2"}, ExcludeDeleted)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_CompareAndUpdateStale(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Orders)
	orderColumns := "id, created_at, updated_at, customer_id, deliverer_id, order_date, status, from_address, to_address, price"
	cols := []string{"id", "created_at", "updated_at", "customer_id", "deliverer_id", "order_date", "status", "from_address", "to_address", "price"}
	ts := time.Now().UTC()

	mock.ExpectQuery("UPDATE orders SET deliverer_id = $1, status = $2, updated_at = $3 WHERE id = $4 AND is_deleted = FALSE AND status = $5 RETURNING " + orderColumns).
		WithArgs("d1", "accepted", pgxmock.AnyArg(), "o1", "pending").
		WillReturnRows(pgxmock.NewRows(cols))
	mock.ExpectQuery("SELECT " + orderColumns + " FROM orders WHERE id = $1 AND is_deleted = FALSE").
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("o1", ts, ts, "c1", "d2", ts, "accepted", "A", "B", 1500.0))

	_, err := store.Collection(e).CompareAndUpdate(context.Background(), "o1",
		model.Record{"status": "pending"},
		model.Record{"status": "accepted", "deliverer": "d1"})
	assert.ErrorIs(t, err, ErrStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCollection_SoftDelete(t *testing.T) {
	mock, store := newMockStore(t)
	e := mustEntity(t, schema.Pointages)
	sql := "UPDATE pointages SET is_deleted = TRUE, deleted_at = $1, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE"

	mock.ExpectExec(sql).WithArgs(pgxmock.AnyArg(), "p1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sql).WithArgs(pgxmock.AnyArg(), "p1").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(sql).WithArgs(pgxmock.AnyArg(), "p2").WillReturnError(errors.New("connection reset"))

	coll := store.Collection(e)
	assert.NoError(t, coll.SoftDelete(context.Background(), "p1"))
	assert.ErrorIs(t, coll.SoftDelete(context.Background(), "p1"), ErrNotFound)
	err := coll.SoftDelete(context.Background(), "p2")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
