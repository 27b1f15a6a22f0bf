package app

import (
	"context"
	"encoding/base64"
	"math"
	"testing"

	"rewear/internal/models"
	"rewear/internal/storage"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func validItemRequest() models.CreateItemRequest {
	return models.CreateItemRequest{
		Title:       "Denim jacket",
		Description: "Barely worn",
		Category:    "Women",
		Type:        "Outerwear",
		Size:        "S",
		Condition:   "Like New",
		Tags:        models.TagInput{"denim", " blue ", "denim"},
		Images: []string{
			base64.StdEncoding.EncodeToString(pngBytes),
			"data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		},
	}
}

func TestCreateItem(t *testing.T) {
	env := newTestEnv(t, Options{})
	caller := userSession(uuid.New())

	var stored *models.Item
	env.db.EXPECT().CreateItem(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item *models.Item) error {
			stored = item
			return nil
		})

	item, err := env.app.CreateItem(context.Background(), caller, validItemRequest())
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, caller.UserID, item.UserID)
	assert.Equal(t, models.ItemPendingApproval, item.Status)
	assert.Equal(t, 150, item.PointsCost)
	assert.Equal(t, []string{"denim", "blue"}, item.Tags)
	require.Len(t, item.Images, 2)
	assert.Equal(t, "https://cdn.test/items/"+caller.UserID.String()+"/"+item.ID.String()+"/0.png", item.Images[0])
	assert.Equal(t, "https://cdn.test/items/"+caller.UserID.String()+"/"+item.ID.String()+"/1.jpg", item.Images[1])
	assert.Equal(t, 2, env.blobs.Len())
}

func TestCreateItemAutoPublish(t *testing.T) {
	env := newTestEnv(t, Options{ModerationPolicy: ModerationAuto})
	env.db.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(nil)

	req := validItemRequest()
	req.PointsCost = 75
	item, err := env.app.CreateItem(context.Background(), userSession(uuid.New()), req)
	require.NoError(t, err)
	assert.Equal(t, models.ItemAvailable, item.Status)
	assert.Equal(t, 75, item.PointsCost)
}

func TestCreateItemValidation(t *testing.T) {
	env := newTestEnv(t, Options{MaxImagesPerItem: 1})
	caller := userSession(uuid.New())

	missing := validItemRequest()
	missing.Title = "   "
	_, err := env.app.CreateItem(context.Background(), caller, missing)
	assertKind(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "title")

	tooMany := validItemRequest()
	_, err = env.app.CreateItem(context.Background(), caller, tooMany)
	assertKind(t, err, ErrValidation)

	badImage := validItemRequest()
	badImage.Images = []string{"not base64!"}
	_, err = env.app.CreateItem(context.Background(), caller, badImage)
	assertKind(t, err, ErrValidation)

	assert.Equal(t, 0, env.blobs.Len())
}

func TestCreateItemPointsCostLimit(t *testing.T) {
	env := newTestEnv(t, Options{MaxPointsCost: 500})
	caller := userSession(uuid.New())

	for _, cost := range []int{501, math.MaxInt32 + 1} {
		req := validItemRequest()
		req.PointsCost = cost
		_, err := env.app.CreateItem(context.Background(), caller, req)
		assertKind(t, err, ErrValidation)
	}
	assert.Equal(t, 0, env.blobs.Len())

	env.db.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(nil)
	req := validItemRequest()
	req.PointsCost = 500
	item, err := env.app.CreateItem(context.Background(), caller, req)
	require.NoError(t, err)
	assert.Equal(t, 500, item.PointsCost)
}

func TestCreateItemCleansUpOnStorageFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.db.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(assert.AnError)

	_, err := env.app.CreateItem(context.Background(), userSession(uuid.New()), validItemRequest())
	assertKind(t, err, ErrUpstream)
	assert.Equal(t, 0, env.blobs.Len())
}

func TestBrowseItems(t *testing.T) {
	env := newTestEnv(t, Options{BrowseExcludeOwn: true})
	caller := userSession(uuid.New())

	env.db.EXPECT().ListItems(gomock.Any(), models.ItemFilter{Status: models.ItemAvailable, Category: "Kids"}).
		Return([]models.Item{}, nil)
	_, err := env.app.BrowseItems(context.Background(), nil, "Kids", "")
	require.NoError(t, err)

	env.db.EXPECT().ListItems(gomock.Any(), models.ItemFilter{Status: models.ItemAvailable, Tag: "summer", ExcludeID: &caller.UserID}).
		Return([]models.Item{}, nil)
	_, err = env.app.BrowseItems(context.Background(), &caller, "", "summer")
	require.NoError(t, err)
}

func TestGetItemVisibility(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := userSession(uuid.New())
	stranger := userSession(uuid.New())
	admin := adminSession()
	pending := &models.Item{ID: uuid.New(), UserID: owner.UserID, Status: models.ItemPendingApproval}

	env.db.EXPECT().GetItem(gomock.Any(), pending.ID).Return(pending, nil).Times(4)

	_, err := env.app.GetItem(context.Background(), nil, pending.ID.String())
	assertKind(t, err, ErrNotFound)

	_, err = env.app.GetItem(context.Background(), &stranger, pending.ID.String())
	assertKind(t, err, ErrNotFound)

	got, err := env.app.GetItem(context.Background(), &owner, pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)

	_, err = env.app.GetItem(context.Background(), &admin, pending.ID.String())
	require.NoError(t, err)

	_, err = env.app.GetItem(context.Background(), nil, "not-a-uuid")
	assertKind(t, err, ErrNotFound)
}

func TestModerateItem(t *testing.T) {
	env := newTestEnv(t, Options{})
	itemID := uuid.New()

	_, err := env.app.ModerateItem(context.Background(), itemID.String(), "swapped")
	assertKind(t, err, ErrValidation)

	env.db.EXPECT().ModerateItem(gomock.Any(), itemID, models.ItemAvailable).Return(nil, storage.ErrStaleState)
	_, err = env.app.ModerateItem(context.Background(), itemID.String(), "available")
	assertKind(t, err, ErrConflict)

	env.db.EXPECT().ModerateItem(gomock.Any(), itemID, models.ItemRejected).Return(nil, storage.ErrNotFound)
	_, err = env.app.ModerateItem(context.Background(), itemID.String(), "rejected")
	assertKind(t, err, ErrNotFound)

	approved := &models.Item{ID: itemID, Status: models.ItemAvailable, PointsCost: 100}
	env.db.EXPECT().ModerateItem(gomock.Any(), itemID, models.ItemAvailable).Return(approved, nil)
	got, err := env.app.ModerateItem(context.Background(), itemID.String(), "available")
	require.NoError(t, err)
	assert.Equal(t, models.ItemAvailable, got.Status)
}

func TestRedeemItem(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := userSession(uuid.New())
	buyer := userSession(uuid.New())
	item := &models.Item{ID: uuid.New(), UserID: owner.UserID, Status: models.ItemAvailable, PointsCost: 100}

	env.db.EXPECT().GetItem(gomock.Any(), item.ID).Return(item, nil).Times(3)

	_, err := env.app.RedeemItem(context.Background(), owner, item.ID.String())
	assertKind(t, err, ErrValidation)

	env.db.EXPECT().RedeemItem(gomock.Any(), item.ID, buyer.UserID).Return(nil, storage.ErrInsufficientPoints)
	_, err = env.app.RedeemItem(context.Background(), buyer, item.ID.String())
	assertKind(t, err, ErrConflict)

	redeemed := *item
	redeemed.Status = models.ItemSwapped
	env.db.EXPECT().RedeemItem(gomock.Any(), item.ID, buyer.UserID).Return(&redeemed, nil)
	got, err := env.app.RedeemItem(context.Background(), buyer, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.ItemSwapped, got.Status)
}

func TestAdminListItems(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.app.AdminListItems(context.Background(), "bogus")
	assertKind(t, err, ErrValidation)

	env.db.EXPECT().ListItems(gomock.Any(), models.ItemFilter{Status: models.ItemPendingApproval}).Return([]models.Item{}, nil)
	_, err = env.app.AdminListItems(context.Background(), "pending_approval")
	require.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, Options{})
	caller := userSession(uuid.New())

	listing := models.Item{ID: uuid.New()}
	acquired := models.Item{ID: uuid.New()}
	env.db.EXPECT().ListItems(gomock.Any(), models.ItemFilter{OwnerID: &caller.UserID, Limit: 4}).Return([]models.Item{listing}, nil)
	env.db.EXPECT().ListItems(gomock.Any(), models.ItemFilter{AcquiredBy: &caller.UserID, Limit: 4}).Return([]models.Item{acquired}, nil)

	resp, err := env.app.Dashboard(context.Background(), caller)
	require.NoError(t, err)
	assert.Equal(t, []models.Item{listing}, resp.MyListings)
	assert.Equal(t, []models.Item{acquired}, resp.MyPurchases)
}
