package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is matched by every DuplicateError.
	ErrDuplicate = errors.New("duplicate")
)

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already exists"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// DBTX is satisfied by pgxpool.Pool, pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a DBTX that can open transactions.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the unit of work the services run against.
type Store interface {
	Users() UserRepository
	Messages() MessageRepository
	// WithinTx runs fn inside one transaction. The Store handed to fn is bound
	// to it; the transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type postgresStore struct {
	db   DBTX
	pool Pool
}

// NewPostgresStore returns a Postgres-backed Store.
func NewPostgresStore(pool Pool) Store {
	return &postgresStore{db: pool, pool: pool}
}

func (s *postgresStore) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *postgresStore) Messages() MessageRepository {
	return NewMessageRepository(s.db)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&postgresStore{db: tx, pool: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps driver errors onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &DuplicateError{Field: constraintField(pgErr.ConstraintName)}
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

func constraintField(constraint string) string {
	switch {
	case strings.Contains(constraint, "username"):
		return "username"
	case strings.Contains(constraint, "email"):
		return "email"
	}
	return constraint
}
