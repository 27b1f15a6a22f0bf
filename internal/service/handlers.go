// Package service contains the HTTP handlers of the clothing-exchange API.
// It parses requests, calls the business logic in the app package, maps the
// app's error kinds to HTTP status codes, and writes JSON responses.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"rewear/internal/app"
	"rewear/internal/models"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/logger"
)

const requestTimeout = 10 * time.Second

// handlers aggregates dependencies needed by HTTP handlers,
// including the application business logic, the logger and the session cookie helper.
type handlers struct {
	app     *app.App
	log     *logger.Logger
	cookies *auth.CookieHelper
}

// newHandlers initializes a new handlers instance with the provided dependencies.
func newHandlers(app *app.App, l *logger.Logger, cookies *auth.CookieHelper) *handlers {
	if cookies == nil {
		cookies = auth.NewCookieHelper(auth.CookieConfig{})
	}
	return &handlers{app: app, log: l, cookies: cookies}
}

// healthHandler reports that the process is serving requests.
func (handlers *handlers) healthHandler(res http.ResponseWriter, _ *http.Request) {
	writeJSON(res, http.StatusOK, models.MessageResponse{Message: "ok"})
}

// registerHandler creates an account and its profile.
func (handlers *handlers) registerHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var registerRequest models.RegisterRequest
	if !handlers.readJSON(res, req, &registerRequest) {
		return
	}

	registerResponse, err := handlers.app.Register(ctx, registerRequest)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusCreated, registerResponse)
}

// loginHandler checks credentials, sets the session cookie and returns the caller's profile.
// The token is also returned in the Authorization header for non-browser clients.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var loginRequest models.LoginRequest
	if !handlers.readJSON(res, req, &loginRequest) {
		return
	}

	result, err := handlers.app.Login(ctx, loginRequest)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	handlers.cookies.SetSessionCookie(res, result.Token, result.CookieMaxAge)
	res.Header().Set("Authorization", "Bearer "+result.Token)
	writeJSON(res, http.StatusOK, result.Response)
}

// logoutHandler revokes the presented session and always clears the cookie.
func (handlers *handlers) logoutHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	err := handlers.app.Logout(ctx, auth.TokenFromRequest(req))
	handlers.cookies.ClearSessionCookie(res)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, models.MessageResponse{Message: "logged out"})
}

func (handlers *handlers) meHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	me, err := handlers.app.Me(ctx, session)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, me)
}

// avatarHandler accepts a multipart upload in the "file" field and stores it as the caller's avatar.
// The content type is sniffed from the bytes, not taken from the part header.
func (handlers *handlers) avatarHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	maxBytes := int64(handlers.app.MaxImageBytes())
	req.Body = http.MaxBytesReader(res, req.Body, maxBytes+1<<20)
	if err := req.ParseMultipartForm(maxBytes); err != nil {
		writeErrorResponse(res, "invalid multipart form", "validation", http.StatusBadRequest)
		return
	}

	file, _, err := req.FormFile("file")
	if err != nil {
		writeErrorResponse(res, "file is required", "validation", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeErrorResponse(res, err.Error(), "validation", http.StatusBadRequest)
		return
	}

	avatar, err := handlers.app.UploadAvatar(ctx, session, data, http.DetectContentType(data))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, avatar)
}

func (handlers *handlers) pointsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	points, err := handlers.app.Points(ctx, session)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, points)
}

// dashboardHandler returns the caller's latest listings and acquisitions.
func (handlers *handlers) dashboardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	session, ok := handlers.session(res, req)
	if !ok {
		return
	}

	dashboard, err := handlers.app.Dashboard(ctx, session)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, dashboard)
}

// session returns the session attached by requireSession.
func (handlers *handlers) session(res http.ResponseWriter, req *http.Request) (auth.Session, bool) {
	session, ok := auth.SessionFromContext(req.Context())
	if !ok {
		writeErrorResponse(res, "authentication required", "unauthenticated", http.StatusUnauthorized)
	}
	return session, ok
}

// optionalSessionFrom returns the session attached by optionalSession, or nil for anonymous callers.
func optionalSessionFrom(req *http.Request) *auth.Session {
	session, ok := auth.SessionFromContext(req.Context())
	if !ok {
		return nil
	}
	return &session
}

// readJSON decodes the request body into v and answers 400 when that fails.
func (handlers *handlers) readJSON(res http.ResponseWriter, req *http.Request, v any) bool {
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), "validation", http.StatusBadRequest)
		return false
	}

	if err = json.Unmarshal(requestBody, v); err != nil {
		writeErrorResponse(res, "invalid JSON body", "validation", http.StatusBadRequest)
		return false
	}
	return true
}

// writeAppError maps an application error kind to its HTTP status.
// Errors without a kind are logged and reported as internal failures.
func (handlers *handlers) writeAppError(res http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, app.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, app.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, app.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, app.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, app.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, app.ErrRateLimited):
		status, kind = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, app.ErrUpstream):
		status, kind = http.StatusBadGateway, "upstream"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		handlers.log.Sugar().Errorf("Unhandled error: %s", err)
		message = "internal server error"
	}
	writeErrorResponse(res, message, kind, status)
}

func writeJSON(res http.ResponseWriter, statusCode int, v any) {
	result, err := json.Marshal(v)
	if err != nil {
		writeErrorResponse(res, err.Error(), "internal", http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	res.Write(result)
}

func writeErrorResponse(res http.ResponseWriter, errorInfo, kind string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo, Kind: kind})
}
