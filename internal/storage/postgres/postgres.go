// Package postgres provides a PostgreSQL-backed record store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
)

// uniqueViolationErrCode is the SQLSTATE reported when an insert hits the
// unique index on short_code.
const uniqueViolationErrCode = "23505"

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

type urlDB struct {
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	VisitCount  int64      `db:"visit_count"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		VisitCount:  u.VisitCount,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
	}
}

// Store persists URL records in the urls table. Uniqueness of short codes is
// enforced by the table's unique constraint, so Put doubles as the
// compare-and-insert primitive the service relies on.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Put(ctx context.Context, url *entity.URL) error {
	const op = "storage.postgres.Store.Put"
	const query = `INSERT INTO urls(short_code, original_url, visit_count, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		url.ShortCode, url.OriginalURL, url.VisitCount, url.CreatedAt, url.ExpiresAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%s: %w", op, entity.ErrDuplicateKey)
		}

		return fmt.Errorf("%s: failed to insert url record: %w", op, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.postgres.Store.Get"
	const query = `SELECT short_code, original_url, visit_count, created_at, expires_at
		FROM urls
		WHERE short_code = $1`

	var url urlDB

	if err := s.db.GetContext(ctx, &url, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to select url record: %w", op, err)
	}

	return url.toEntity(), nil
}

// Touch increments the visit count and reads the updated record in a single
// statement, so concurrent visits never lose an increment.
func (s *Store) Touch(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.postgres.Store.Touch"
	const query = `UPDATE urls
		SET visit_count = visit_count + 1
		WHERE short_code = $1
		RETURNING short_code, original_url, visit_count, created_at, expires_at`

	var url urlDB

	if err := s.db.GetContext(ctx, &url, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to increment visit count: %w", op, err)
	}

	return url.toEntity(), nil
}

func (s *Store) Delete(ctx context.Context, shortCode string) error {
	const op = "storage.postgres.Store.Delete"
	const query = `DELETE FROM urls WHERE short_code = $1`

	res, err := s.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to read affected rows: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}
