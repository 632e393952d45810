package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/IntelliTect/Coalesce-sub010/internal/logger"
)

// Manager runs units of work inside database transactions.
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// WithTransaction executes fn within a transaction. It commits when fn returns
// nil and rolls back on error or panic. Nothing is retried: fn may have
// observable effects that must not run twice.
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("rollback_failed", logger.Fields(ctx, map[string]any{
				"error": rbErr.Error(),
				"cause": err.Error(),
			}))
		}
		if IsRetryableError(err) {
			logger.Warn("retry_suppressed", logger.Fields(ctx, map[string]any{
				"error": err.Error(),
			}))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
