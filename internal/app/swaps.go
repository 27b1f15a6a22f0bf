package app

import (
	"context"
	"strings"

	"rewear/internal/models"
	"rewear/internal/pkg/auth"

	"github.com/google/uuid"
)

// CreateSwap proposes exchanging one of the caller's available items for one of the responder's.
func (app *App) CreateSwap(ctx context.Context, session auth.Session, req models.CreateSwapRequest) (*models.Swap, error) {
	if strings.TrimSpace(req.ResponderUserID) == "" || strings.TrimSpace(req.RequesterItemID) == "" || strings.TrimSpace(req.ResponderItemID) == "" {
		return nil, newError(ErrValidation, "responder_user_id, requester_item_id and responder_item_id are required")
	}

	responderID, err1 := uuid.Parse(strings.TrimSpace(req.ResponderUserID))
	requesterItemID, err2 := uuid.Parse(strings.TrimSpace(req.RequesterItemID))
	responderItemID, err3 := uuid.Parse(strings.TrimSpace(req.ResponderItemID))
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, newError(ErrValidation, "ids must be valid UUIDs")
	}
	if responderID == session.UserID {
		return nil, newError(ErrValidation, "you cannot swap with yourself")
	}
	if requesterItemID == responderItemID {
		return nil, newError(ErrValidation, "the two items must differ")
	}

	requesterItem, err := app.db.GetItem(ctx, requesterItemID)
	if err != nil {
		return nil, app.storageError("get requester item", err)
	}
	responderItem, err := app.db.GetItem(ctx, responderItemID)
	if err != nil {
		return nil, app.storageError("get responder item", err)
	}

	if requesterItem.UserID != session.UserID {
		return nil, newError(ErrForbidden, "you can only offer your own items")
	}
	if responderItem.UserID != responderID {
		return nil, newError(ErrValidation, "responder item does not belong to the responder")
	}
	if requesterItem.Status != models.ItemAvailable || responderItem.Status != models.ItemAvailable {
		return nil, newError(ErrConflict, "both items must be available")
	}

	swap := &models.Swap{
		ID:              uuid.New(),
		RequesterUserID: session.UserID,
		ResponderUserID: responderID,
		RequesterItemID: requesterItemID,
		ResponderItemID: responderItemID,
		Message:         strings.TrimSpace(req.Message),
	}
	if err := app.db.CreateSwap(ctx, swap); err != nil {
		return nil, app.storageError("create swap", err)
	}

	app.metrics.SwapTransition(string(swap.Status))
	app.log.Sugar().Infof("User %s requested swap %s", session.UserID, swap.ID)
	return swap, nil
}

// GetSwap returns a swap visible to its parties and admins.
func (app *App) GetSwap(ctx context.Context, session auth.Session, id string) (*models.Swap, error) {
	swap, err := app.loadSwap(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := actorFor(session, swap); !ok {
		return nil, newError(ErrForbidden, "you are not a party to this swap")
	}
	return swap, nil
}

// AdminGetSwap returns any swap.
func (app *App) AdminGetSwap(ctx context.Context, id string) (*models.Swap, error) {
	return app.loadSwap(ctx, id)
}

// MySwaps lists swaps where the caller is requester or responder, newest first.
func (app *App) MySwaps(ctx context.Context, session auth.Session) ([]models.Swap, error) {
	swaps, err := app.db.ListSwaps(ctx, &session.UserID)
	if err != nil {
		return nil, app.upstream("my swaps", err)
	}
	return swaps, nil
}

// AdminListSwaps lists every swap, newest first.
func (app *App) AdminListSwaps(ctx context.Context) ([]models.Swap, error) {
	swaps, err := app.db.ListSwaps(ctx, nil)
	if err != nil {
		return nil, app.upstream("admin list swaps", err)
	}
	return swaps, nil
}

// UpdateSwapStatus moves a swap along the state machine on behalf of a party,
// or of an admin who is not a party.
func (app *App) UpdateSwapStatus(ctx context.Context, session auth.Session, id, status string) (*models.Swap, error) {
	return app.updateSwapStatus(ctx, session, id, status, false)
}

// AdminUpdateSwapStatus moves a swap along the state machine with admin authority.
func (app *App) AdminUpdateSwapStatus(ctx context.Context, session auth.Session, id, status string) (*models.Swap, error) {
	if !session.IsAdmin() {
		return nil, newError(ErrForbidden, "admin role required")
	}
	return app.updateSwapStatus(ctx, session, id, status, true)
}

func (app *App) updateSwapStatus(ctx context.Context, session auth.Session, id, status string, asAdmin bool) (*models.Swap, error) {
	to := models.SwapStatus(status)
	switch to {
	case models.SwapAccepted, models.SwapRejected, models.SwapCancelled, models.SwapCompleted:
	default:
		return nil, newError(ErrValidation, "status must be one of accepted, rejected, cancelled, completed")
	}

	swap, err := app.loadSwap(ctx, id)
	if err != nil {
		return nil, err
	}

	actor := ActorAdmin
	if !asAdmin {
		var ok bool
		if actor, ok = actorFor(session, swap); !ok {
			return nil, newError(ErrForbidden, "you are not a party to this swap")
		}
	}

	if !CanTransitionSwap(swap.Status, to) {
		return nil, newError(ErrConflict, "cannot move swap from %s to %s", swap.Status, to)
	}
	if !SwapActorAllowed(to, actor) {
		return nil, newError(ErrForbidden, "only the responder can accept or reject a swap")
	}

	transition := models.SwapTransition{
		SwapID:     swap.ID,
		FromStatus: swap.Status,
		ToStatus:   to,
		Version:    swap.Version,
		At:         app.now().UTC(),
	}
	if to == models.SwapCancelled && actor != ActorAdmin {
		transition.CancelledBy = &session.UserID
	}

	result, err := app.db.TransitionSwap(ctx, transition)
	if err != nil {
		return nil, app.storageError("transition swap", err)
	}

	app.metrics.SwapTransition(string(to))
	if to == models.SwapCompleted {
		app.metrics.ItemTransition(string(models.ItemSwapped))
		app.metrics.ItemTransition(string(models.ItemSwapped))
		app.metrics.PointsMoved(result.PointsMoved)
		for i := 0; i < result.CancelledSwaps; i++ {
			app.metrics.SwapTransition(string(models.SwapCancelled))
		}
	}
	app.log.Sugar().Infof("Swap %s moved from %s to %s by %s", swap.ID, swap.Status, to, session.UserID)
	return result.Swap, nil
}

func (app *App) loadSwap(ctx context.Context, id string) (*models.Swap, error) {
	swapID, err := uuid.Parse(id)
	if err != nil {
		return nil, newError(ErrNotFound, "swap not found")
	}
	swap, err := app.db.GetSwap(ctx, swapID)
	if err != nil {
		return nil, app.storageError("get swap", err)
	}
	return swap, nil
}

// actorFor works out which part the caller plays in swap. Parties act as parties
// even when they are admins.
func actorFor(session auth.Session, swap *models.Swap) (Actor, bool) {
	switch {
	case session.UserID == swap.RequesterUserID:
		return ActorRequester, true
	case session.UserID == swap.ResponderUserID:
		return ActorResponder, true
	case session.IsAdmin():
		return ActorAdmin, true
	default:
		return 0, false
	}
}
