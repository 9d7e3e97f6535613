package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/IulianH/CloudHatch-sub000/refresh/migrations"
)

// PostgresStore is a PostgreSQL-backed Store over database/sql with the pgx
// driver. Rotation runs inside one transaction so revoke-old and create-new
// are applied as a unit; the conditional UPDATE/DELETE on the old row gives
// single-winner semantics under concurrent refreshes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn with the pgx driver, applies the embedded
// migrations, and returns the store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("refresh: db open error: %w", err)
	}

	store := NewPostgresStoreFromDB(db)
	if err := store.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("refresh: migration error: %w", err)
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an existing handle without running
// migrations; the caller owns the handle's lifecycle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunMigrations applies the embedded goose migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// Close closes the underlying handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO refresh_tokens
			(token, user_id, session_id, idx, session_created_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.Token, rec.UserID, rec.SessionID, rec.Index,
		rec.SessionCreatedAt, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*Record, error) {
	query := `
		SELECT token, user_id, session_id, idx, session_created_at,
		       created_at, expires_at, revoked_at, replaced_by_hash, compromised
		FROM refresh_tokens
		WHERE token = $1
	`
	return scanRecord(s.db.QueryRowContext(ctx, query, token))
}

func (s *PostgresStore) Rotate(ctx context.Context, oldToken string, next *Record, keepRevoked bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	if keepRevoked {
		res, err = tx.ExecContext(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = $2, replaced_by_hash = $3
			WHERE token = $1 AND revoked_at IS NULL AND NOT compromised
		`, oldToken, time.Now(), TokenHash(next.Token))
	} else {
		res, err = tx.ExecContext(ctx, `
			DELETE FROM refresh_tokens
			WHERE token = $1 AND revoked_at IS NULL AND NOT compromised
		`, oldToken)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrTokenNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens
			(token, user_id, session_id, idx, session_created_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, next.Token, next.UserID, next.SessionID, next.Index,
		next.SessionCreatedAt, next.CreatedAt, next.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) MarkCompromised(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET compromised = true, revoked_at = COALESCE(revoked_at, $2)
		WHERE token = $1
	`, token, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(affected), nil
}

// DeleteExpired removes rows whose lifetime elapsed before now; a periodic
// caller keeps the table from accumulating dead chains.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(affected), nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	rec := &Record{}
	var revokedAt sql.NullTime
	var replacedBy sql.NullString

	err := row.Scan(&rec.Token, &rec.UserID, &rec.SessionID, &rec.Index,
		&rec.SessionCreatedAt, &rec.CreatedAt, &rec.ExpiresAt,
		&revokedAt, &replacedBy, &rec.Compromised)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revokedAt.Valid {
		rec.RevokedAt = revokedAt.Time
	}
	if replacedBy.Valid {
		rec.ReplacedByHash = replacedBy.String
	}
	return rec, nil
}
