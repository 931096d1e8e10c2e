package repository

import (
	"context"
	"errors"
	"fmt"

	"campus_api/internal/model"

	"github.com/jackc/pgx/v5"
)

// AccountRepository defines operations for account data
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByPhone(ctx context.Context, phone string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type accountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, email, username, phone, country_code, role, password_hash, created_at, updated_at`

// Create inserts a new account; ID and timestamps are assigned by the caller
func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	sql := `INSERT INTO accounts (id, email, username, phone, country_code, role, password_hash, is_deleted, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)`
	_, err := r.db.Exec(ctx, sql, a.ID, a.Email, a.Username, a.Phone, a.CountryCode, string(a.Role), a.PasswordHash, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", mapPgError(err))
	}
	return nil
}

// FindByEmail retrieves an active account by email
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1 AND is_deleted = FALSE`, email)
}

// FindByPhone retrieves an active account by phone number
func (r *accountRepository) FindByPhone(ctx context.Context, phone string) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = $1 AND is_deleted = FALSE`, phone)
}

// FindByID retrieves an active account by ID
func (r *accountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND is_deleted = FALSE`, id)
}

// Exists reports whether an active account has the given ID
func (r *accountRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	sql := `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND is_deleted = FALSE)`
	if err := r.db.QueryRow(ctx, sql, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

func (r *accountRepository) findOne(ctx context.Context, sql string, arg string) (*model.Account, error) {
	a := &model.Account{}
	var role string
	err := r.db.QueryRow(ctx, sql, arg).Scan(
		&a.ID, &a.Email, &a.Username, &a.Phone, &a.CountryCode, &role, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found is not an error for this contract
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	a.Role = model.Role(role)
	return a, nil
}
