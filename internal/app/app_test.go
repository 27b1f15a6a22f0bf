package app

import (
	"errors"
	"testing"
	"time"

	"rewear/internal/models"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/blob"
	"rewear/internal/pkg/logger"
	"rewear/internal/pkg/metrics"
	"rewear/internal/storage/mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type testEnv struct {
	app     *App
	db      *mocks.MockStorage
	blobs   *blob.MemoryStore
	revoker *auth.MemoryTokenRevoker
	tokens  *auth.TokenManager
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	env := &testEnv{
		db:      mocks.NewMockStorage(ctrl),
		blobs:   blob.NewMemoryStore("https://cdn.test"),
		revoker: auth.NewMemoryTokenRevoker(),
		tokens:  auth.NewTokenManager("test-secret"),
	}
	env.app = NewApp(env.db, logger.Nop(), Deps{
		Tokens:  env.tokens,
		Revoker: env.revoker,
		Blobs:   env.blobs,
		Metrics: metrics.New(),
	}, opts)
	env.app.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return env
}

func userSession(id uuid.UUID) auth.Session {
	return auth.Session{UserID: id, Role: models.RoleUser}
}

func adminSession() auth.Session {
	return auth.Session{UserID: uuid.New(), Role: models.RoleAdmin}
}

// assertKind checks that err is an *Error of the given kind.
func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	var appErr *Error
	if assert.True(t, errors.As(err, &appErr), "expected *app.Error, got %v", err) {
		assert.ErrorIs(t, err, kind)
	}
}
