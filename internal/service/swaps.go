package service

import (
	"context"
	"net/http"

	"rewear/internal/models"

	"github.com/go-chi/chi/v5"
)

// createSwapHandler proposes exchanging one of the caller's items for another user's item.
func (handlers *handlers) createSwapHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	var swapRequest models.CreateSwapRequest
	if !handlers.readJSON(res, req, &swapRequest) {
		return
	}

	swap, err := handlers.app.CreateSwap(ctx, session, swapRequest)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusCreated, swap)
}

// mySwapsHandler lists swaps where the caller is either party.
func (handlers *handlers) mySwapsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	swaps, err := handlers.app.MySwaps(ctx, session)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, swaps)
}

func (handlers *handlers) getSwapHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	swap, err := handlers.app.GetSwap(ctx, session, chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, swap)
}

// updateSwapHandler moves a swap the caller is party to into the requested status.
func (handlers *handlers) updateSwapHandler(res http.ResponseWriter, req *http.Request) {
	handlers.transitionSwap(res, req, false)
}

func (handlers *handlers) adminListSwapsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	swaps, err := handlers.app.AdminListSwaps(ctx)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, swaps)
}

func (handlers *handlers) adminGetSwapHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	swap, err := handlers.app.AdminGetSwap(ctx, chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, swap)
}

// adminUpdateSwapHandler moves any swap into the requested status on behalf of an admin.
func (handlers *handlers) adminUpdateSwapHandler(res http.ResponseWriter, req *http.Request) {
	handlers.transitionSwap(res, req, true)
}

func (handlers *handlers) transitionSwap(res http.ResponseWriter, req *http.Request, asAdmin bool) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	var statusRequest models.StatusRequest
	if !handlers.readJSON(res, req, &statusRequest) {
		return
	}

	update := handlers.app.UpdateSwapStatus
	if asAdmin {
		update = handlers.app.AdminUpdateSwapStatus
	}

	swap, err := update(ctx, session, chi.URLParam(req, "id"), statusRequest.Status)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, swap)
}
