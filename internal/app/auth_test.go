package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"rewear/internal/models"
	"rewear/internal/pkg/ratelimit"
	"rewear/internal/pkg/security"
	"rewear/internal/storage"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	testCases := []struct {
		name      string
		req       models.RegisterRequest
		setupMock func()
		wantKind  error
	}{
		{
			name:     "missing username",
			req:      models.RegisterRequest{Email: "a@example.com", Password: "secret1"},
			wantKind: ErrValidation,
		},
		{
			name:     "short password",
			req:      models.RegisterRequest{Email: "a@example.com", Password: "12345", Username: "alice"},
			wantKind: ErrValidation,
		},
		{
			name:     "username with at sign",
			req:      models.RegisterRequest{Email: "a@example.com", Password: "secret1", Username: "a@b"},
			wantKind: ErrValidation,
		},
		{
			name: "duplicate username",
			req:  models.RegisterRequest{Email: "a@example.com", Password: "secret1", Username: "alice"},
			setupMock: func() {
				env.db.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return(storage.ErrUsernameTaken)
			},
			wantKind: ErrConflict,
		},
		{
			name: "database down",
			req:  models.RegisterRequest{Email: "a@example.com", Password: "secret1", Username: "alice"},
			setupMock: func() {
				env.db.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))
			},
			wantKind: ErrUpstream,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setupMock != nil {
				tc.setupMock()
			}
			_, err := env.app.Register(ctx, tc.req)
			assertKind(t, err, tc.wantKind)
		})
	}
}

func TestRegisterAlwaysCreatesUserRole(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.db.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, identity *models.Identity, profile *models.Profile) error {
			assert.Equal(t, identity.ID, profile.ID)
			assert.Equal(t, "bob@example.com", identity.Email)
			assert.NotEqual(t, "secret1", identity.PasswordHash)
			assert.Equal(t, models.RoleUser, profile.Role)
			return nil
		})

	resp, err := env.app.Register(context.Background(), models.RegisterRequest{
		Email: " Bob@Example.com ", Password: "secret1", Username: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", resp.User.Username)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	hash, err := security.HashPassword("correct-horse")
	require.NoError(t, err)
	identity := &models.Identity{ID: uuid.New(), Email: "alice@example.com", PasswordHash: hash}

	env.db.EXPECT().GetIdentityByUsername(gomock.Any(), "ghost").Return(nil, storage.ErrNotFound)
	_, unknownErr := env.app.Login(ctx, models.LoginRequest{Email: "ghost", Password: "whatever"})

	env.db.EXPECT().GetIdentityByUsername(gomock.Any(), "alice").Return(identity, nil)
	_, wrongErr := env.app.Login(ctx, models.LoginRequest{Email: "alice", Password: "wrong-password"})

	assertKind(t, unknownErr, ErrUnauthenticated)
	assertKind(t, wrongErr, ErrUnauthenticated)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, "invalid credentials", wrongErr.Error())
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, Options{SessionTTL: time.Hour, RememberMeTTL: 48 * time.Hour})
	ctx := context.Background()

	hash, err := security.HashPassword("correct-horse")
	require.NoError(t, err)
	identity := &models.Identity{ID: uuid.New(), Email: "alice@example.com", PasswordHash: hash}
	profile := &models.Profile{ID: identity.ID, Username: "alice", Role: models.RoleUser}

	env.db.EXPECT().GetIdentityByEmail(gomock.Any(), "alice@example.com").Return(identity, nil).Times(2)
	env.db.EXPECT().GetProfile(gomock.Any(), identity.ID).Return(profile, nil).Times(2)

	result, err := env.app.Login(ctx, models.LoginRequest{Email: "Alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Zero(t, result.CookieMaxAge)
	assert.Equal(t, profile, result.Response.Profile)

	claims, err := env.tokens.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID.String(), claims.UserID)

	remembered, err := env.app.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "correct-horse", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, remembered.CookieMaxAge)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, Options{})
	limiter, err := ratelimit.NewMemoryFixedWindowLimiter(1, time.Hour)
	require.NoError(t, err)
	env.app.limiter = limiter

	env.db.EXPECT().GetIdentityByUsername(gomock.Any(), "alice").Return(nil, storage.ErrNotFound)
	_, err = env.app.Login(context.Background(), models.LoginRequest{Email: "alice", Password: "x"})
	assertKind(t, err, ErrUnauthenticated)

	_, err = env.app.Login(context.Background(), models.LoginRequest{Email: "alice", Password: "x"})
	assertKind(t, err, ErrRateLimited)
}

func TestResolveSession(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	userID := uuid.New()

	token, _, err := env.tokens.GenerateToken(userID, time.Hour)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		_, err := env.app.ResolveSession(ctx, "")
		assertKind(t, err, ErrUnauthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.app.ResolveSession(ctx, "garbage")
		assertKind(t, err, ErrUnauthenticated)
	})

	t.Run("profile missing", func(t *testing.T) {
		env.db.EXPECT().GetProfile(gomock.Any(), userID).Return(nil, storage.ErrNotFound)
		_, err := env.app.ResolveSession(ctx, token)
		assertKind(t, err, ErrForbidden)
		assert.Equal(t, "profile missing", err.Error())
	})

	t.Run("resolved", func(t *testing.T) {
		env.db.EXPECT().GetProfile(gomock.Any(), userID).Return(&models.Profile{ID: userID, Role: models.RoleAdmin}, nil)
		session, err := env.app.ResolveSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, userID, session.UserID)
		assert.True(t, session.IsAdmin())
	})

	t.Run("revoked after logout", func(t *testing.T) {
		require.NoError(t, env.app.Logout(ctx, token))
		_, err := env.app.ResolveSession(ctx, token)
		assertKind(t, err, ErrUnauthenticated)
	})
}

func TestLogoutIgnoresInvalidTokens(t *testing.T) {
	env := newTestEnv(t, Options{})
	assert.NoError(t, env.app.Logout(context.Background(), ""))
	assert.NoError(t, env.app.Logout(context.Background(), "garbage"))
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t, Options{MaxImageBytes: 16})
	session := userSession(uuid.New())
	ctx := context.Background()

	_, err := env.app.UploadAvatar(ctx, session, []byte("hello"), "text/plain")
	assertKind(t, err, ErrValidation)

	_, err = env.app.UploadAvatar(ctx, session, make([]byte, 17), "image/png")
	assertKind(t, err, ErrValidation)

	wantURL := "https://cdn.test/avatars/" + session.UserID.String() + ".png"
	env.db.EXPECT().UpdateAvatar(gomock.Any(), session.UserID, wantURL).Return(nil)

	resp, err := env.app.UploadAvatar(ctx, session, []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, wantURL, resp.AvatarURL)
	assert.Equal(t, 1, env.blobs.Len())
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t, Options{})

	err := env.app.SetRole(context.Background(), "alice", models.Role("root"))
	assertKind(t, err, ErrValidation)

	env.db.EXPECT().SetRole(gomock.Any(), "ghost", models.RoleAdmin).Return(storage.ErrNotFound)
	err = env.app.SetRole(context.Background(), "ghost", models.RoleAdmin)
	assertKind(t, err, ErrNotFound)
}
