package service

import (
	"context"
	"net/http"

	"rewear/internal/models"

	"github.com/go-chi/chi/v5"
)

// browseItemsHandler lists available items, optionally filtered by the category and tag query parameters.
func (handlers *handlers) browseItemsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	query := req.URL.Query()
	items, err := handlers.app.BrowseItems(ctx, optionalSessionFrom(req), query.Get("category"), query.Get("tag"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, items)
}

// getItemHandler returns one item if it is visible to the caller.
// Admins reach it through the listings namespace as well.
func (handlers *handlers) getItemHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	item, err := handlers.app.GetItem(ctx, optionalSessionFrom(req), chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, item)
}

// createItemHandler creates a listing owned by the caller.
func (handlers *handlers) createItemHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	var createRequest models.CreateItemRequest
	if !handlers.readJSON(res, req, &createRequest) {
		return
	}

	item, err := handlers.app.CreateItem(ctx, session, createRequest)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusCreated, item)
}

func (handlers *handlers) myItemsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	items, err := handlers.app.MyItems(ctx, session)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, items)
}

// redeemItemHandler acquires an available item for its points cost.
func (handlers *handlers) redeemItemHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	item, err := handlers.app.RedeemItem(ctx, session, chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, item)
}

// adminListItemsHandler lists items in any status, filtered by the status query parameter.
func (handlers *handlers) adminListItemsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	items, err := handlers.app.AdminListItems(ctx, req.URL.Query().Get("status"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, items)
}

// moderateItemHandler approves or rejects a pending item.
func (handlers *handlers) moderateItemHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var statusRequest models.StatusRequest
	if !handlers.readJSON(res, req, &statusRequest) {
		return
	}

	item, err := handlers.app.ModerateItem(ctx, chi.URLParam(req, "id"), statusRequest.Status)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, item)
}
