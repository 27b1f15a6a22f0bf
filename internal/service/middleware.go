package service

import (
	"net/http"

	"rewear/internal/app"
	"rewear/internal/pkg/auth"
)

// requireSession resolves the caller's session and rejects the request when that fails.
func (service *Service) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		session, err := service.app.ResolveSession(req.Context(), auth.TokenFromRequest(req))
		if err != nil {
			service.handlers.writeAppError(res, err)
			return
		}
		next.ServeHTTP(res, req.WithContext(auth.WithSession(req.Context(), session)))
	})
}

// optionalSession attaches the caller's session when one resolves and serves the request anonymously otherwise.
func (service *Service) optionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		token := auth.TokenFromRequest(req)
		if token != "" {
			if session, err := service.app.ResolveSession(req.Context(), token); err == nil {
				req = req.WithContext(auth.WithSession(req.Context(), session))
			}
		}
		next.ServeHTTP(res, req)
	})
}

// requireAdmin rejects callers whose resolved session lacks the admin role.
func (service *Service) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		session, ok := auth.SessionFromContext(req.Context())
		if !ok {
			service.handlers.writeAppError(res, &app.Error{Kind: app.ErrUnauthenticated, Message: "authentication required"})
			return
		}
		if !session.IsAdmin() {
			service.handlers.writeAppError(res, &app.Error{Kind: app.ErrForbidden, Message: "admin role required"})
			return
		}
		next.ServeHTTP(res, req)
	})
}
