package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/affiliate"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLiteStore keeps the snapshot in a local SQLite file.
type SQLiteStore struct {
	conn   *sqlite.Conn
	logger *zap.Logger
	mu     sync.Mutex
}

// NewSQLiteStore opens or creates the database at path and ensures the table exists.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	err = sqlitex.ExecuteTransient(conn, `
		CREATE TABLE IF NOT EXISTS affiliates (
			user_id INTEGER PRIMARY KEY
		)
	`, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		conn:   conn,
		logger: logger.Named("sqlite_snapshot"),
	}, nil
}

// Swap reads and clears the stored set inside an immediate transaction, runs fn,
// and writes its result before committing. Any error rolls the transaction back.
func (s *SQLiteStore) Swap(ctx context.Context, fn affiliate.SwapFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// BEGIN IMMEDIATE takes the write lock up front so concurrent runs serialise
	if err := sqlitex.ExecuteTransient(s.conn, "BEGIN IMMEDIATE", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}

		if rbErr := sqlitex.ExecuteTransient(s.conn, "ROLLBACK", nil); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
	}()

	previous := affiliate.NewSet()

	err = sqlitex.ExecuteTransient(s.conn, "SELECT user_id FROM affiliates", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			previous.Add(snowflake.ID(stmt.ColumnInt64(0)))
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to read affiliates: %w", err)
	}

	if err = sqlitex.ExecuteTransient(s.conn, "DELETE FROM affiliates", nil); err != nil {
		return fmt.Errorf("failed to clear affiliates: %w", err)
	}

	current, err := fn(ctx, previous)
	if err != nil {
		return err
	}

	for _, userID := range current.Sorted() {
		err = sqlitex.Execute(s.conn, "INSERT INTO affiliates (user_id) VALUES (?)", &sqlitex.ExecOptions{
			Args: []any{int64(userID)},
		})
		if err != nil {
			return fmt.Errorf("failed to insert affiliate: %w", err)
		}
	}

	if err = sqlitex.ExecuteTransient(s.conn, "COMMIT", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Stored affiliate snapshot",
		zap.Int("previous", previous.Len()),
		zap.Int("current", current.Len()))

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
