package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"rewear/internal/models"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/blob"
	"rewear/internal/pkg/security"
	"rewear/internal/storage"

	"github.com/google/uuid"
)

// Register creates an identity and its profile. The role is always user.
func (app *App) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	switch {
	case email == "" || req.Password == "" || username == "":
		return nil, newError(ErrValidation, "email, password and username are required")
	case !strings.Contains(email, "@"):
		return nil, newError(ErrValidation, "email is invalid")
	case strings.Contains(username, "@"):
		return nil, newError(ErrValidation, "username must not contain @")
	case len(req.Password) < security.MinPasswordLength:
		return nil, newError(ErrValidation, "password must be at least %d characters", security.MinPasswordLength)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		app.log.Sugar().Errorf("Failed to hash password: %s", err)
		return nil, newError(ErrValidation, "password cannot be used")
	}

	id := uuid.New()
	identity := &models.Identity{ID: id, Email: email, PasswordHash: hash}
	profile := &models.Profile{
		ID:          id,
		Username:    username,
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        models.RoleUser,
	}

	if err := app.db.CreateAccount(ctx, identity, profile); err != nil {
		return nil, app.storageError("create account", err)
	}

	app.log.Sugar().Infof("Registered user %s", id)
	return &models.RegisterResponse{
		Message: "account created, you can now log in",
		User:    models.UserSummary{ID: id, Email: email, Username: username},
	}, nil
}

// Login checks credentials and issues a session token.
// Every credential failure yields the same generic error.
func (app *App) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" || req.Password == "" {
		return nil, newError(ErrValidation, "email or username and password are required")
	}

	if app.limiter != nil && !app.limiter.Allow(ctx, "login:"+identifier) {
		return nil, newError(ErrRateLimited, "too many login attempts, try again later")
	}

	var (
		identity *models.Identity
		err      error
	)
	if strings.Contains(identifier, "@") {
		identity, err = app.db.GetIdentityByEmail(ctx, strings.ToLower(identifier))
	} else {
		identity, err = app.db.GetIdentityByUsername(ctx, identifier)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, app.upstream("login lookup", err)
	}

	if err := security.CheckPassword(identity.PasswordHash, req.Password); err != nil {
		return nil, errInvalidCredentials
	}

	profile, err := app.db.GetProfile(ctx, identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrForbidden, "profile missing")
	}
	if err != nil {
		return nil, app.upstream("login profile", err)
	}

	ttl, cookieMaxAge := app.opts.SessionTTL, time.Duration(0)
	if req.RememberMe {
		ttl, cookieMaxAge = app.opts.RememberMeTTL, app.opts.RememberMeTTL
	}

	token, claims, err := app.tokens.GenerateToken(identity.ID, ttl)
	if err != nil {
		app.log.Sugar().Errorf("Failed to sign token: %s", err)
		return nil, err
	}

	return &models.LoginResult{
		Token:        token,
		ExpiresAt:    claims.ExpiresAt.Time,
		CookieMaxAge: cookieMaxAge,
		Response: models.LoginResponse{
			User:    models.UserSummary{ID: identity.ID, Email: identity.Email},
			Profile: profile,
		},
	}, nil
}

// Logout revokes the presented token until it would have expired.
// Invalid or missing tokens are ignored.
func (app *App) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := app.tokens.ParseToken(token)
	if err != nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := app.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		app.log.Sugar().Errorf("Failed to revoke token: %s", err)
		return newError(ErrUpstream, "could not end the session")
	}
	return nil
}

// ResolveSession turns a session token into the caller's identity and role.
func (app *App) ResolveSession(ctx context.Context, token string) (auth.Session, error) {
	if token == "" {
		return auth.Session{}, newError(ErrUnauthenticated, "authentication required")
	}

	claims, err := app.tokens.ParseToken(token)
	if err != nil {
		return auth.Session{}, newError(ErrUnauthenticated, "invalid or expired session")
	}

	revoked, err := app.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		app.log.Sugar().Errorf("Failed to check token revocation: %s", err)
		return auth.Session{}, newError(ErrUpstream, "session store is unavailable")
	}
	if revoked {
		return auth.Session{}, newError(ErrUnauthenticated, "invalid or expired session")
	}

	userID := uuid.MustParse(claims.UserID)
	profile, err := app.db.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return auth.Session{}, newError(ErrForbidden, "profile missing")
	}
	if err != nil {
		return auth.Session{}, app.upstream("resolve session", err)
	}

	return auth.Session{
		UserID:    userID,
		Role:      profile.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Me returns the caller's account summary and profile.
func (app *App) Me(ctx context.Context, session auth.Session) (*models.MeResponse, error) {
	profile, err := app.db.GetProfile(ctx, session.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrForbidden, "profile missing")
	}
	if err != nil {
		return nil, app.upstream("me", err)
	}

	return &models.MeResponse{
		User:    models.UserSummary{ID: profile.ID, Email: profile.Email, Username: profile.Username},
		Profile: profile,
	}, nil
}

// UploadAvatar stores a new avatar image for the caller and returns its URL.
func (app *App) UploadAvatar(ctx context.Context, session auth.Session, data []byte, contentType string) (*models.AvatarResponse, error) {
	if len(data) == 0 {
		return nil, newError(ErrValidation, "file is required")
	}
	if len(data) > app.opts.MaxImageBytes {
		return nil, newError(ErrValidation, "file exceeds %d bytes", app.opts.MaxImageBytes)
	}
	ext, ok := blob.ExtensionFor(contentType)
	if !ok {
		return nil, newError(ErrValidation, "unsupported image type %q", contentType)
	}
	if app.blobs == nil {
		return nil, newError(ErrUpstream, "image storage is not configured")
	}

	key := "avatars/" + session.UserID.String() + "." + ext
	img := blob.Image{Data: data, ContentType: contentType, Ext: ext}
	url, err := app.blobs.Put(ctx, key, img.Reader(), int64(len(data)), contentType)
	if err != nil {
		app.log.Sugar().Errorf("Failed to upload avatar: %s", err)
		return nil, newError(ErrUpstream, "image upload failed")
	}

	if err := app.db.UpdateAvatar(ctx, session.UserID, url); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ErrForbidden, "profile missing")
		}
		return nil, app.upstream("update avatar", err)
	}

	return &models.AvatarResponse{AvatarURL: url}, nil
}

// SetRole assigns a role to a user. It is reserved for operators.
func (app *App) SetRole(ctx context.Context, username string, role models.Role) error {
	if !role.Valid() {
		return newError(ErrValidation, "unknown role %q", role)
	}
	if err := app.db.SetRole(ctx, strings.TrimSpace(username), role); err != nil {
		return app.storageError("set role", err)
	}
	app.log.Sugar().Infof("Set role of %s to %s", username, role)
	return nil
}
