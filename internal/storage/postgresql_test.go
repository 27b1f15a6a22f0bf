package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"rewear/internal/models"
	"rewear/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// PostgreSQLTestSuite runs against a real database named by TEST_DATABASE_URI.
type PostgreSQLTestSuite struct {
	suite.Suite
	db  *PostgreSQL
	ctx context.Context
}

func TestPostgreSQLSuite(t *testing.T) {
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	db, err := NewPostgreSQL(uri, logger.Nop())
	if err != nil {
		t.Fatalf("connect to test database: %s", err)
	}
	defer db.Close()

	suite.Run(t, &PostgreSQLTestSuite{db: db})
}

func (s *PostgreSQLTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.Require().NoError(s.db.Migrate(s.ctx))
}

func (s *PostgreSQLTestSuite) newAccount(balance int) *models.Profile {
	id := uuid.New()
	suffix := id.String()[:8]
	identity := &models.Identity{ID: id, Email: suffix + "@example.com", PasswordHash: "hash"}
	profile := &models.Profile{ID: id, Username: "user_" + suffix, Email: identity.Email, Role: models.RoleUser}
	s.Require().NoError(s.db.CreateAccount(s.ctx, identity, profile))

	if balance > 0 {
		_, err := s.db.db.ExecContext(s.ctx, `UPDATE content.profiles SET points_balance = $1 WHERE id = $2`, balance, id)
		s.Require().NoError(err)
	}
	return profile
}

func (s *PostgreSQLTestSuite) newItem(owner uuid.UUID, status models.ItemStatus, cost int) *models.Item {
	item := &models.Item{
		ID: uuid.New(), UserID: owner, Title: "Jacket", Description: "Warm", Category: "Men",
		Type: "Outerwear", Size: "M", Condition: "Used", Tags: []string{"winter", "wool"},
		Images: []string{"https://cdn/0.jpg", "https://cdn/1.jpg"}, Status: status, PointsCost: cost,
	}
	s.Require().NoError(s.db.CreateItem(s.ctx, item))
	return item
}

func (s *PostgreSQLTestSuite) TestDuplicateUsername() {
	p := s.newAccount(0)

	id := uuid.New()
	identity := &models.Identity{ID: id, Email: id.String()[:8] + "@example.com", PasswordHash: "hash"}
	profile := &models.Profile{ID: id, Username: p.Username, Email: identity.Email, Role: models.RoleUser}
	s.ErrorIs(s.db.CreateAccount(s.ctx, identity, profile), ErrUsernameTaken)

	_, err := s.db.GetIdentityByEmail(s.ctx, identity.Email)
	s.ErrorIs(err, ErrNotFound, "identity must roll back with the profile")
}

func (s *PostgreSQLTestSuite) TestItemRoundTrip() {
	owner := s.newAccount(0)
	item := s.newItem(owner.ID, models.ItemPendingApproval, 150)

	got, err := s.db.GetItem(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal([]string{"winter", "wool"}, got.Tags)
	s.Equal(item.Images, got.Images)
	s.Equal(owner.Username, got.Owner.Username)

	approved, err := s.db.ModerateItem(s.ctx, item.ID, models.ItemAvailable)
	s.Require().NoError(err)
	s.Equal(models.ItemAvailable, approved.Status)

	_, err = s.db.ModerateItem(s.ctx, item.ID, models.ItemRejected)
	s.ErrorIs(err, ErrStaleState)

	points, err := s.db.GetPoints(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Equal(150, points.Balance)
	s.Require().Len(points.History, 1)
	s.Equal(models.LedgerListingApproved, points.History[0].Reason)

	items, err := s.db.ListItems(s.ctx, models.ItemFilter{Status: models.ItemAvailable, Tag: "wool", OwnerID: &owner.ID})
	s.Require().NoError(err)
	s.Len(items, 1)
}

func (s *PostgreSQLTestSuite) TestRedeemInsufficientPoints() {
	owner := s.newAccount(0)
	buyer := s.newAccount(10)
	item := s.newItem(owner.ID, models.ItemAvailable, 100)

	_, err := s.db.RedeemItem(s.ctx, item.ID, buyer.ID)
	s.ErrorIs(err, ErrInsufficientPoints)

	got, err := s.db.GetItem(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(models.ItemAvailable, got.Status)
}

func (s *PostgreSQLTestSuite) TestCompleteSwap() {
	alice := s.newAccount(0)
	bob := s.newAccount(100)
	x := s.newItem(alice.ID, models.ItemAvailable, 200)
	y := s.newItem(bob.ID, models.ItemAvailable, 150)
	z := s.newItem(alice.ID, models.ItemAvailable, 100)

	swap := &models.Swap{ID: uuid.New(), RequesterUserID: bob.ID, ResponderUserID: alice.ID, RequesterItemID: y.ID, ResponderItemID: x.ID}
	s.Require().NoError(s.db.CreateSwap(s.ctx, swap))
	s.ErrorIs(s.db.CreateSwap(s.ctx, &models.Swap{ID: uuid.New(), RequesterUserID: bob.ID, ResponderUserID: alice.ID, RequesterItemID: y.ID, ResponderItemID: x.ID}), ErrOpenSwapExists)

	other := &models.Swap{ID: uuid.New(), RequesterUserID: bob.ID, ResponderUserID: alice.ID, RequesterItemID: y.ID, ResponderItemID: z.ID}
	s.Require().NoError(s.db.CreateSwap(s.ctx, other))

	now := time.Now()
	res, err := s.db.TransitionSwap(s.ctx, models.SwapTransition{SwapID: swap.ID, FromStatus: models.SwapRequested, ToStatus: models.SwapAccepted, Version: swap.Version, At: now})
	s.Require().NoError(err)
	s.NotNil(res.Swap.AcceptedAt)

	_, err = s.db.TransitionSwap(s.ctx, models.SwapTransition{SwapID: swap.ID, FromStatus: models.SwapRequested, ToStatus: models.SwapAccepted, Version: swap.Version, At: now})
	s.ErrorIs(err, ErrStaleState)

	res, err = s.db.TransitionSwap(s.ctx, models.SwapTransition{SwapID: swap.ID, FromStatus: models.SwapAccepted, ToStatus: models.SwapCompleted, Version: res.Swap.Version, At: now})
	s.Require().NoError(err)
	s.Equal(models.SwapCompleted, res.Swap.Status)
	s.Equal(50, res.PointsMoved)
	s.Equal(1, res.CancelledSwaps)

	for _, id := range []uuid.UUID{x.ID, y.ID} {
		item, err := s.db.GetItem(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(models.ItemSwapped, item.Status)
	}

	bobPoints, err := s.db.GetPoints(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Equal(50, bobPoints.Balance)
	alicePoints, err := s.db.GetPoints(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(50, alicePoints.Balance)

	cancelled, err := s.db.GetSwap(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(models.SwapCancelled, cancelled.Status)
	s.Nil(cancelled.CancelledBy)

	acquired, err := s.db.ListItems(s.ctx, models.ItemFilter{AcquiredBy: &bob.ID, Limit: 4})
	s.Require().NoError(err)
	s.Require().Len(acquired, 1)
	s.Equal(x.ID, acquired[0].ID)
}
