package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewear/internal/models"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/blob"
	"rewear/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardLimit = 4
	cleanupTimeout = 10 * time.Second
)

// CreateItem validates a new listing, uploads its images and stores it.
// The owner is always the caller.
func (app *App) CreateItem(ctx context.Context, session auth.Session, req models.CreateItemRequest) (*models.Item, error) {
	item := &models.Item{
		ID:          uuid.New(),
		UserID:      session.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Type:        strings.TrimSpace(req.Type),
		Size:        strings.TrimSpace(req.Size),
		Condition:   strings.TrimSpace(req.Condition),
		Tags:        models.NormalizeTags(req.Tags),
		PointsCost:  req.PointsCost,
	}

	if missing := missingItemFields(item); len(missing) > 0 {
		return nil, newError(ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if req.PointsCost > app.opts.MaxPointsCost {
		return nil, newError(ErrValidation, "points_cost must not exceed %d", app.opts.MaxPointsCost)
	}
	if len(req.Images) > app.opts.MaxImagesPerItem {
		return nil, newError(ErrValidation, "at most %d images are allowed", app.opts.MaxImagesPerItem)
	}

	images := make([]blob.Image, 0, len(req.Images))
	for i, encoded := range req.Images {
		img, err := blob.DecodeImage(encoded, app.opts.MaxImageBytes)
		if err != nil {
			return nil, newError(ErrValidation, "image %d: %s", i, err)
		}
		images = append(images, img)
	}

	if item.PointsCost <= 0 {
		item.PointsCost = defaultPointsCost(item.Condition)
	}
	item.Status = models.ItemPendingApproval
	if app.opts.ModerationPolicy == ModerationAuto {
		item.Status = models.ItemAvailable
	}

	keys, urls, err := app.uploadImages(ctx, item, images)
	if err != nil {
		return nil, err
	}
	item.Images = urls

	if err := app.db.CreateItem(ctx, item); err != nil {
		app.deleteBlobs(keys)
		return nil, app.storageError("create item", err)
	}

	app.metrics.ItemTransition(string(item.Status))
	app.log.Sugar().Infof("Created item %s with status %s", item.ID, item.Status)
	return item, nil
}

func missingItemFields(item *models.Item) []string {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"title", item.Title},
		{"description", item.Description},
		{"category", item.Category},
		{"type", item.Type},
		{"size", item.Size},
		{"condition", item.Condition},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// uploadImages stores images in parallel under items/<owner>/<item>/<index>.<ext>
// and returns their keys and public URLs in input order. On failure, whatever was
// uploaded is deleted.
func (app *App) uploadImages(ctx context.Context, item *models.Item, images []blob.Image) ([]string, []string, error) {
	keys := make([]string, len(images))
	urls := make([]string, len(images))
	if len(images) == 0 {
		return keys, urls, nil
	}
	if app.blobs == nil {
		return nil, nil, newError(ErrUpstream, "image storage is not configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		keys[i] = fmt.Sprintf("items/%s/%s/%d.%s", item.UserID, item.ID, i, img.Ext)
		g.Go(func() error {
			url, err := app.blobs.Put(gctx, keys[i], img.Reader(), int64(len(img.Data)), img.ContentType)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		app.log.Sugar().Errorf("Failed to upload item images: %s", err)
		app.deleteBlobs(keys)
		return nil, nil, newError(ErrUpstream, "image upload failed")
	}
	return keys, urls, nil
}

// deleteBlobs removes uploaded objects on a best-effort basis.
func (app *App) deleteBlobs(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := app.blobs.Delete(ctx, key); err != nil {
			app.log.Sugar().Warnf("Failed to delete blob %s: %s", key, err)
		}
	}
}

// BrowseItems lists available items, newest first. Signed-in callers do not see
// their own listings when the browse-exclude-own policy is on.
func (app *App) BrowseItems(ctx context.Context, session *auth.Session, category, tag string) ([]models.Item, error) {
	filter := models.ItemFilter{
		Status:   models.ItemAvailable,
		Category: strings.TrimSpace(category),
		Tag:      strings.TrimSpace(tag),
	}
	if session != nil && app.opts.BrowseExcludeOwn {
		filter.ExcludeID = &session.UserID
	}

	items, err := app.db.ListItems(ctx, filter)
	if err != nil {
		return nil, app.upstream("browse items", err)
	}
	return items, nil
}

// GetItem returns one item. Items that are not available are visible only to their owner and admins.
func (app *App) GetItem(ctx context.Context, session *auth.Session, id string) (*models.Item, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, newError(ErrNotFound, "item not found")
	}

	item, err := app.db.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ErrNotFound, "item not found")
		}
		return nil, app.upstream("get item", err)
	}

	if item.Status != models.ItemAvailable {
		if session == nil || (session.UserID != item.UserID && !session.IsAdmin()) {
			return nil, newError(ErrNotFound, "item not found")
		}
	}
	return item, nil
}

// MyItems lists the caller's items in every status, newest first.
func (app *App) MyItems(ctx context.Context, session auth.Session) ([]models.Item, error) {
	items, err := app.db.ListItems(ctx, models.ItemFilter{OwnerID: &session.UserID})
	if err != nil {
		return nil, app.upstream("my items", err)
	}
	return items, nil
}

// AdminListItems lists every item, optionally narrowed to one status.
func (app *App) AdminListItems(ctx context.Context, status string) ([]models.Item, error) {
	filter := models.ItemFilter{}
	if status != "" {
		filter.Status = models.ItemStatus(status)
		if !filter.Status.Valid() {
			return nil, newError(ErrValidation, "unknown status %q", status)
		}
	}

	items, err := app.db.ListItems(ctx, filter)
	if err != nil {
		return nil, app.upstream("admin list items", err)
	}
	return items, nil
}

// ModerateItem approves or rejects a pending listing. Approval credits the owner the item's points cost.
func (app *App) ModerateItem(ctx context.Context, id, status string) (*models.Item, error) {
	to := models.ItemStatus(status)
	if to != models.ItemAvailable && to != models.ItemRejected {
		return nil, newError(ErrValidation, "status must be %q or %q", models.ItemAvailable, models.ItemRejected)
	}
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, newError(ErrNotFound, "item not found")
	}

	item, err := app.db.ModerateItem(ctx, itemID, to)
	switch {
	case errors.Is(err, storage.ErrStaleState):
		return nil, newError(ErrConflict, "item is not pending approval")
	case err != nil:
		return nil, app.storageError("moderate item", err)
	}

	app.metrics.ItemTransition(string(to))
	if to == models.ItemAvailable {
		app.metrics.PointsMoved(item.PointsCost)
	}
	app.log.Sugar().Infof("Moderated item %s to %s", item.ID, to)
	return item, nil
}

// RedeemItem buys an available item with the caller's points.
func (app *App) RedeemItem(ctx context.Context, session auth.Session, id string) (*models.Item, error) {
	item, err := app.GetItem(ctx, &session, id)
	if err != nil {
		return nil, err
	}
	if item.UserID == session.UserID {
		return nil, newError(ErrValidation, "you cannot redeem your own item")
	}
	if !CanTransitionItem(item.Status, models.ItemSwapped) {
		return nil, newError(ErrConflict, "item is not available")
	}

	redeemed, err := app.db.RedeemItem(ctx, item.ID, session.UserID)
	if err != nil {
		return nil, app.storageError("redeem item", err)
	}

	app.metrics.ItemTransition(string(models.ItemSwapped))
	app.metrics.PointsMoved(redeemed.PointsCost)
	app.log.Sugar().Infof("User %s redeemed item %s", session.UserID, redeemed.ID)
	return redeemed, nil
}
