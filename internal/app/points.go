package app

import (
	"context"

	"rewear/internal/models"
	"rewear/internal/pkg/auth"
)

// Points returns the caller's balance and ledger history.
func (app *App) Points(ctx context.Context, session auth.Session) (*models.PointsResponse, error) {
	points, err := app.db.GetPoints(ctx, session.UserID)
	if err != nil {
		return nil, app.storageError("get points", err)
	}
	return points, nil
}

// Dashboard returns the caller's most recent listings and acquisitions.
func (app *App) Dashboard(ctx context.Context, session auth.Session) (*models.DashboardResponse, error) {
	listings, err := app.db.ListItems(ctx, models.ItemFilter{OwnerID: &session.UserID, Limit: dashboardLimit})
	if err != nil {
		return nil, app.upstream("dashboard listings", err)
	}

	acquired, err := app.db.ListItems(ctx, models.ItemFilter{AcquiredBy: &session.UserID, Limit: dashboardLimit})
	if err != nil {
		return nil, app.upstream("dashboard acquisitions", err)
	}

	return &models.DashboardResponse{MyListings: listings, MyPurchases: acquired}, nil
}
