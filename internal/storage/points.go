package storage

import (
	"context"
	"database/sql"
	"errors"

	"rewear/internal/models"

	"github.com/google/uuid"
)

const (
	updatePointsQuery     = `UPDATE content.profiles SET points_balance = points_balance + $1, updated_at = NOW() WHERE id = $2;`
	insertLedgerQuery     = `INSERT INTO content.points_ledger (profile_id, delta, reason, item_id, swap_id) VALUES ($1, $2, $3, $4, $5);`
	getPointsBalanceQuery = `SELECT points_balance FROM content.profiles WHERE id = $1;`
	getLedgerQuery        = `SELECT id, profile_id, delta, reason, item_id, swap_id, created_at FROM content.points_ledger WHERE profile_id = $1 ORDER BY created_at DESC, id DESC;`
)

type ledgerMove struct {
	profileID uuid.UUID
	delta     int
	reason    string
	itemID    *uuid.UUID
	swapID    *uuid.UUID
}

// movePoints adjusts a balance and records the movement in the ledger.
// A debit below zero fails with ErrInsufficientPoints.
func (postgresql *PostgreSQL) movePoints(ctx context.Context, tx *sql.Tx, m ledgerMove) error {
	result, err := tx.ExecContext(ctx, updatePointsQuery, m.delta, m.profileID)
	if err != nil {
		err = classify(err)
		if !errors.Is(err, ErrInsufficientPoints) {
			postgresql.log.Sugar().Errorf("Failed to execute a query updatePointsQuery: %s", err)
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in updatePointsQuery: %s", err)
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, insertLedgerQuery, m.profileID, m.delta, m.reason, m.itemID, m.swapID); err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query insertLedgerQuery: %s", err)
		return err
	}

	return nil
}

// GetPoints returns the current balance and the full ledger history of a profile, newest first.
func (postgresql *PostgreSQL) GetPoints(ctx context.Context, userID uuid.UUID) (*models.PointsResponse, error) {
	tx, err := postgresql.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	points := &models.PointsResponse{}
	err = tx.QueryRowContext(ctx, getPointsBalanceQuery, userID).Scan(&points.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getPointsBalanceQuery: %s", err)
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, getLedgerQuery, userID)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getLedgerQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	points.History = make([]models.LedgerEntry, 0)
	for rows.Next() {
		entry := models.LedgerEntry{}
		if err := rows.Scan(&entry.ID, &entry.ProfileID, &entry.Delta, &entry.Reason, &entry.ItemID, &entry.SwapID, &entry.CreatedAt); err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan ledger entry in GetPoints method: %s", err)
			return nil, err
		}
		points.History = append(points.History, entry)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in GetPoints method: %s", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return points, nil
}
