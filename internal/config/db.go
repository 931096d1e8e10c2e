package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"campus_api/internal/schema"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, sslMode)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database
func ConnectDB(ctx context.Context, cfg *DBConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	// Retry connecting to the database a few times
	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				logger.Info("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn("failed to connect to database",
			"attempt", i+1, "max_attempts", maxRetries, "retry_in", retryInterval, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// Execer runs a statement without returning rows.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MigrationSQL renders idempotent DDL creating one table per registered entity.
func MigrationSQL(reg *schema.Registry) string {
	var b strings.Builder
	for _, e := range reg.Entities() {
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", e.Table)
		for i, f := range e.Fields {
			b.WriteString("\t" + columnDDL(f))
			if i < len(e.Fields)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(");\n")
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_is_deleted ON %s(is_deleted);\n", e.Table, e.Table)
		// Soft-deleted rows release their unique values.
		for _, f := range e.Fields {
			if f.Unique {
				fmt.Fprintf(&b, "CREATE UNIQUE INDEX IF NOT EXISTS uq_%s_%s ON %s(%s) WHERE is_deleted = FALSE;\n",
					e.Table, f.Column, e.Table, f.Column)
			}
		}
		if e.CreatedField != "" {
			if f, ok := e.Field(e.CreatedField); ok {
				fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);\n", e.Table, f.Column, e.Table, f.Column)
			}
		}
	}
	return b.String()
}

func columnDDL(f schema.Field) string {
	switch f.Name {
	case schema.FieldID:
		return f.Column + " TEXT PRIMARY KEY"
	case schema.FieldIsDeleted:
		return f.Column + " BOOLEAN NOT NULL DEFAULT FALSE"
	case schema.FieldCreatedAt, schema.FieldUpdatedAt:
		return f.Column + " TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP"
	}
	col := f.Column + " " + f.Type.SQLType()
	if f.Required {
		col += " NOT NULL"
	}
	return col
}

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer, reg *schema.Registry, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, MigrationSQL(reg)); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	logger.Info("AutoMigrate applied successfully", "tables", len(reg.Entities()))
	return nil
}
