package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/internal/utils"
	"github.com/dkhromov/syncline/migrations"
)

// sqliteKV is the SQLite-backed KeyValue store. One table, one row per
// namespaced key; schema managed by the embedded goose migrations.
type sqliteKV struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteKV opens (creating if necessary) the SQLite database at dsn,
// runs pending schema migrations, and returns a durable KeyValue store.
func NewSQLiteKV(ctx context.Context, dsn string, log *logger.Logger) (KeyValue, error) {
	if err := createLocalDBFileIfNotExists(dsn); err != nil {
		log.Err(err).Str("func", "NewSQLiteKV").Msg("error creating database file")
		return nil, fmt.Errorf("error creating database file: %w", err)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Err(err).Str("func", "NewSQLiteKV").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to DB: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewSQLiteKV").Msg("error connecting database (ping)")
		return nil, err
	}

	if err = migrations.Migrate(conn); err != nil {
		log.Err(err).Str("func", "NewSQLiteKV").Msg("error migrating database schema")
		return nil, err
	}
	log.Debug().Str("func", "NewSQLiteKV").Msg("connected to database successfully")

	return &sqliteKV{db: conn, logger: log}, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		if dir := filepath.Dir(dbFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("error creating DB directory: %w", err)
			}
		}
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	// file already exists
	return nil
}

func (s *sqliteKV) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("value").
		From("kv_entries").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return value, nil
}

func (s *sqliteKV) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := sq.Insert("kv_entries").
		Columns("key", "value", "updated_at").
		Values(key, value, utils.NowMillis()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

func (s *sqliteKV) Remove(ctx context.Context, key string) error {
	return s.MultiRemove(ctx, []string{key})
}

func (s *sqliteKV) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sq.Delete("kv_entries").
		Where(sq.Eq{"key": keys}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

// Close releases the underlying database handle. The facade discovers it
// via io.Closer since KeyValue itself carries no lifecycle.
func (s *sqliteKV) Close() error {
	return s.db.Close()
}
