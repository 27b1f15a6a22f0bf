package storage

import (
	"context"
	"database/sql"
	"errors"

	"rewear/internal/models"

	"github.com/google/uuid"
)

const (
	swapColumns = `id, requester_user_id, responder_user_id, requester_item_id, responder_item_id, message, status,
		cancelled_by, version, created_at, updated_at, accepted_at, cancelled_at, completed_at`

	createSwapQuery    = `INSERT INTO content.swaps (id, requester_user_id, responder_user_id, requester_item_id, responder_item_id, message) VALUES ($1, $2, $3, $4, $5, $6) RETURNING status, version, created_at, updated_at;`
	getSwapQuery       = `SELECT ` + swapColumns + ` FROM content.swaps WHERE id = $1;`
	listAllSwapsQuery  = `SELECT ` + swapColumns + ` FROM content.swaps ORDER BY created_at DESC;`
	listUserSwapsQuery = `SELECT ` + swapColumns + ` FROM content.swaps WHERE requester_user_id = $1 OR responder_user_id = $1 ORDER BY created_at DESC;`

	transitionSwapQuery = `UPDATE content.swaps SET
		status = $1::text,
		version = version + 1,
		updated_at = $2::timestamptz,
		accepted_at = CASE WHEN $1::text = 'accepted' THEN $2::timestamptz ELSE accepted_at END,
		cancelled_at = CASE WHEN $1::text = 'cancelled' THEN $2::timestamptz ELSE cancelled_at END,
		completed_at = CASE WHEN $1::text = 'completed' THEN $2::timestamptz ELSE completed_at END,
		cancelled_by = CASE WHEN $1::text = 'cancelled' THEN $3::uuid ELSE cancelled_by END
		WHERE id = $4 AND version = $5 AND status = $6
		RETURNING ` + swapColumns + `;`

	swapItemsQuery = `UPDATE content.items SET
		status = 'swapped',
		acquired_by = CASE WHEN id = $1 THEN $3::uuid ELSE $4::uuid END,
		acquired_at = $5,
		updated_at = $5
		WHERE id IN ($1, $2) AND status = 'available'
		RETURNING id, points_cost;`

	cancelOpenSwapsQuery = `UPDATE content.swaps SET
		status = 'cancelled',
		cancelled_by = NULL,
		cancelled_at = NOW(),
		updated_at = NOW(),
		version = version + 1
		WHERE id <> $1 AND status IN ('requested', 'accepted')
		AND (requester_item_id = ANY($2::uuid[]) OR responder_item_id = ANY($2::uuid[]));`
)

func scanSwap(scanner interface{ Scan(...any) error }) (*models.Swap, error) {
	swap := &models.Swap{}
	err := scanner.Scan(
		&swap.ID, &swap.RequesterUserID, &swap.ResponderUserID, &swap.RequesterItemID, &swap.ResponderItemID,
		&swap.Message, &swap.Status, &swap.CancelledBy, &swap.Version, &swap.CreatedAt, &swap.UpdatedAt,
		&swap.AcceptedAt, &swap.CancelledAt, &swap.CompletedAt)
	if err != nil {
		return nil, err
	}
	return swap, nil
}

// CreateSwap inserts a new swap proposal in the requested state.
func (postgresql *PostgreSQL) CreateSwap(ctx context.Context, swap *models.Swap) error {
	err := postgresql.db.QueryRowContext(ctx, createSwapQuery, swap.ID, swap.RequesterUserID, swap.ResponderUserID,
		swap.RequesterItemID, swap.ResponderItemID, swap.Message).Scan(&swap.Status, &swap.Version, &swap.CreatedAt, &swap.UpdatedAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createSwapQuery: %s", err)
		return classify(err)
	}
	return nil
}

// GetSwap retrieves a swap by ID.
func (postgresql *PostgreSQL) GetSwap(ctx context.Context, swapID uuid.UUID) (*models.Swap, error) {
	swap, err := scanSwap(postgresql.db.QueryRowContext(ctx, getSwapQuery, swapID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getSwapQuery: %s", err)
		return nil, err
	}
	return swap, nil
}

// ListSwaps returns the swaps userID takes part in, or every swap when userID is nil, newest first.
func (postgresql *PostgreSQL) ListSwaps(ctx context.Context, userID *uuid.UUID) ([]models.Swap, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID == nil {
		rows, err = postgresql.db.QueryContext(ctx, listAllSwapsQuery)
	} else {
		rows, err = postgresql.db.QueryContext(ctx, listUserSwapsQuery, *userID)
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listSwapsQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	const initialSwapsCapacity = 10
	swaps := make([]models.Swap, 0, initialSwapsCapacity)
	for rows.Next() {
		swap, err := scanSwap(rows)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan swap in ListSwaps method: %s", err)
			return nil, err
		}
		swaps = append(swaps, *swap)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListSwaps method: %s", err)
		return swaps, err
	}

	return swaps, nil
}

// TransitionSwap persists a status change guarded by the swap's current status and version.
// Completing a swap additionally marks both items swapped, settles the points difference
// between them and cancels every other open swap that references either item, all in one
// transaction.
func (postgresql *PostgreSQL) TransitionSwap(ctx context.Context, t models.SwapTransition) (*models.TransitionResult, error) {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	swap, err := scanSwap(tx.QueryRowContext(ctx, transitionSwapQuery, t.ToStatus, t.At, t.CancelledBy, t.SwapID, t.Version, t.FromStatus))
	if errors.Is(err, sql.ErrNoRows) {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM content.swaps WHERE id = $1;`, t.SwapID).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, ErrStaleState
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query transitionSwapQuery: %s", err)
		return nil, err
	}

	result := &models.TransitionResult{Swap: swap}
	if t.ToStatus == models.SwapCompleted {
		if err := postgresql.completeSwap(ctx, tx, swap, result); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return result, nil
}

func (postgresql *PostgreSQL) completeSwap(ctx context.Context, tx *sql.Tx, swap *models.Swap, result *models.TransitionResult) error {
	rows, err := tx.QueryContext(ctx, swapItemsQuery, swap.RequesterItemID, swap.ResponderItemID,
		swap.ResponderUserID, swap.RequesterUserID, swap.UpdatedAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query swapItemsQuery: %s", err)
		return err
	}

	costs := make(map[uuid.UUID]int, 2)
	for rows.Next() {
		var (
			itemID uuid.UUID
			cost   int
		)
		if err := rows.Scan(&itemID, &cost); err != nil {
			rows.Close()
			postgresql.log.Sugar().Errorf("Failed to scan item in completeSwap method: %s", err)
			return err
		}
		costs[itemID] = cost
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if len(costs) != 2 {
		return ErrItemUnavailable
	}

	// The party receiving the more expensive item pays the difference.
	diff := costs[swap.ResponderItemID] - costs[swap.RequesterItemID]
	payer, payee := swap.RequesterUserID, swap.ResponderUserID
	if diff < 0 {
		diff = -diff
		payer, payee = payee, payer
	}
	if diff > 0 {
		debit := ledgerMove{profileID: payer, delta: -diff, reason: models.LedgerSwapSettlementDebit, swapID: &swap.ID}
		if err := postgresql.movePoints(ctx, tx, debit); err != nil {
			return err
		}
		credit := ledgerMove{profileID: payee, delta: diff, reason: models.LedgerSwapSettlementCredit, swapID: &swap.ID}
		if err := postgresql.movePoints(ctx, tx, credit); err != nil {
			return err
		}
	}
	result.PointsMoved = diff

	cancelled, err := postgresql.cancelOpenSwaps(ctx, tx, swap.ID, swap.RequesterItemID, swap.ResponderItemID)
	if err != nil {
		return err
	}
	result.CancelledSwaps = int(cancelled)

	return nil
}

// cancelOpenSwaps cancels, without an acting party, every open swap other than exceptID
// that references one of itemIDs.
func (postgresql *PostgreSQL) cancelOpenSwaps(ctx context.Context, tx *sql.Tx, exceptID uuid.UUID, itemIDs ...uuid.UUID) (int64, error) {
	ids := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		ids = append(ids, id.String())
	}

	res, err := tx.ExecContext(ctx, cancelOpenSwapsQuery, exceptID, ids)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query cancelOpenSwapsQuery: %s", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in cancelOpenSwapsQuery: %s", err)
		return 0, err
	}
	return n, nil
}
