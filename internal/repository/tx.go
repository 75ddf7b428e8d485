package repository

import (
	"context"
	"database/sql"
)

// inTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.  Repositories expose it so services can group several
// repository calls into one atomic unit.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
