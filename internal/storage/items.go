package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rewear/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	itemColumns = `i.id, i.user_id, i.title, i.description, i.category, i.type, i.size, i.condition, i.tags,
		ARRAY(SELECT im.url FROM content.item_images im WHERE im.item_id = i.id ORDER BY im.position),
		i.status, i.points_cost, i.created_at, p.username, p.avatar_url`
	itemFrom = ` FROM content.items i JOIN content.profiles p ON p.id = i.user_id`

	createItemQuery      = `INSERT INTO content.items (id, user_id, title, description, category, type, size, condition, tags, status, points_cost) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING created_at;`
	createItemImageQuery = `INSERT INTO content.item_images (item_id, position, url) VALUES ($1, $2, $3);`
	getItemQuery         = `SELECT ` + itemColumns + itemFrom + ` WHERE i.id = $1;`
	moderateItemQuery    = `UPDATE content.items SET status = $1, updated_at = NOW() WHERE id = $2 AND status = 'pending_approval' RETURNING user_id, points_cost;`
	redeemItemQuery      = `UPDATE content.items SET status = 'swapped', acquired_by = $1, acquired_at = NOW(), updated_at = NOW() WHERE id = $2 AND status = 'available' AND user_id <> $1 RETURNING points_cost;`
	itemExistsQuery      = `SELECT status FROM content.items WHERE id = $1;`
)

// scanItem reads one row selected with itemColumns.
func scanItem(scanner interface{ Scan(...any) error }, typeMap *pgtype.Map) (*models.Item, error) {
	item := &models.Item{Owner: &models.PublicProfile{}}
	err := scanner.Scan(
		&item.ID, &item.UserID, &item.Title, &item.Description, &item.Category, &item.Type,
		&item.Size, &item.Condition, typeMap.SQLScanner(&item.Tags), typeMap.SQLScanner(&item.Images),
		&item.Status, &item.PointsCost, &item.CreatedAt, &item.Owner.Username, &item.Owner.AvatarURL)
	if err != nil {
		return nil, err
	}
	item.Owner.ID = item.UserID
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.Images == nil {
		item.Images = []string{}
	}
	return item, nil
}

// CreateItem inserts a listing together with its ordered image URLs.
func (postgresql *PostgreSQL) CreateItem(ctx context.Context, item *models.Item) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, createItemQuery, item.ID, item.UserID, item.Title, item.Description,
		item.Category, item.Type, item.Size, item.Condition, item.Tags, item.Status, item.PointsCost).Scan(&item.CreatedAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createItemQuery: %s", err)
		return classify(err)
	}

	for position, url := range item.Images {
		if _, err := tx.ExecContext(ctx, createItemImageQuery, item.ID, position, url); err != nil {
			postgresql.log.Sugar().Errorf("Failed to execute a query createItemImageQuery: %s", err)
			return err
		}
	}

	return tx.Commit()
}

// GetItem retrieves a listing with its images and owner's public profile.
func (postgresql *PostgreSQL) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	item, err := scanItem(postgresql.db.QueryRowContext(ctx, getItemQuery, itemID), pgtype.NewMap())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getItemQuery: %s", err)
		return nil, err
	}
	return item, nil
}

// ListItems returns the listings matching filter, newest first.
func (postgresql *PostgreSQL) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	query, args := buildListItemsQuery(filter)

	rows, err := postgresql.db.QueryContext(ctx, query, args...)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listItemsQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	const initialItemsCapacity = 20
	items := make([]models.Item, 0, initialItemsCapacity)
	typeMap := pgtype.NewMap()

	for rows.Next() {
		item, err := scanItem(rows, typeMap)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan item in ListItems method: %s", err)
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListItems method: %s", err)
		return items, err
	}

	return items, nil
}

func buildListItemsQuery(filter models.ItemFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Status != "" {
		add("i.status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add("i.category = $%d", filter.Category)
	}
	if filter.Tag != "" {
		add("$%d = ANY(i.tags)", filter.Tag)
	}
	if filter.OwnerID != nil {
		add("i.user_id = $%d", *filter.OwnerID)
	}
	if filter.ExcludeID != nil {
		add("i.user_id <> $%d", *filter.ExcludeID)
	}
	if filter.AcquiredBy != nil {
		add("i.acquired_by = $%d", *filter.AcquiredBy)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + itemColumns + itemFrom)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	if filter.AcquiredBy != nil {
		sb.WriteString(" ORDER BY i.acquired_at DESC, i.created_at DESC")
	} else {
		sb.WriteString(" ORDER BY i.created_at DESC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	return sb.String(), args
}

// ModerateItem moves a pending listing to available or rejected.
// Approval credits the owner the listing's points cost in the same transaction.
func (postgresql *PostgreSQL) ModerateItem(ctx context.Context, itemID uuid.UUID, to models.ItemStatus) (*models.Item, error) {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		ownerID    uuid.UUID
		pointsCost int
	)
	err = tx.QueryRowContext(ctx, moderateItemQuery, to, itemID).Scan(&ownerID, &pointsCost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, postgresql.missingOrStale(ctx, tx, itemID)
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query moderateItemQuery: %s", err)
		return nil, err
	}

	if to == models.ItemAvailable && pointsCost > 0 {
		entry := ledgerMove{profileID: ownerID, delta: pointsCost, reason: models.LedgerListingApproved, itemID: &itemID}
		if err := postgresql.movePoints(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return postgresql.GetItem(ctx, itemID)
}

// RedeemItem transfers an available listing to userID in exchange for its points cost.
// Open swaps that reference the item are cancelled.
func (postgresql *PostgreSQL) RedeemItem(ctx context.Context, itemID, userID uuid.UUID) (*models.Item, error) {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var pointsCost int
	err = tx.QueryRowContext(ctx, redeemItemQuery, userID, itemID).Scan(&pointsCost)
	if errors.Is(err, sql.ErrNoRows) {
		err = postgresql.missingOrStale(ctx, tx, itemID)
		if errors.Is(err, ErrStaleState) {
			return nil, ErrItemUnavailable
		}
		return nil, err
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query redeemItemQuery: %s", err)
		return nil, err
	}

	if pointsCost > 0 {
		entry := ledgerMove{profileID: userID, delta: -pointsCost, reason: models.LedgerRedemption, itemID: &itemID}
		if err := postgresql.movePoints(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if _, err := postgresql.cancelOpenSwaps(ctx, tx, uuid.Nil, itemID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return postgresql.GetItem(ctx, itemID)
}

// missingOrStale tells a missing item apart from one whose status no longer matches.
func (postgresql *PostgreSQL) missingOrStale(ctx context.Context, tx *sql.Tx, itemID uuid.UUID) error {
	var status string
	err := tx.QueryRowContext(ctx, itemExistsQuery, itemID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query itemExistsQuery: %s", err)
		return err
	}
	return ErrStaleState
}
