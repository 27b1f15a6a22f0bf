// Package app provides the core business logic of the clothing-exchange marketplace.
// It resolves sessions, governs the item and swap lifecycles with their authorization
// rules, and keeps the points ledger consistent. Persistence goes through the storage
// package, image bytes through the blob package, and every failure is reported as an
// *Error tagged with one of the package's error kinds.
package app

import (
	"time"

	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/blob"
	"rewear/internal/pkg/logger"
	"rewear/internal/pkg/metrics"
	"rewear/internal/pkg/ratelimit"
	"rewear/internal/storage"
)

// ModerationAuto publishes new items immediately; any other policy holds them for approval.
const ModerationAuto = "auto"

// Options tunes application policies.
type Options struct {
	ModerationPolicy string
	BrowseExcludeOwn bool
	SessionTTL       time.Duration
	RememberMeTTL    time.Duration
	MaxImagesPerItem int
	MaxImageBytes    int
	MaxPointsCost    int
}

// Deps holds the collaborators of App. Revoker defaults to an in-memory revoker
// and a nil Limiter disables login rate limiting.
type Deps struct {
	Tokens  *auth.TokenManager
	Revoker auth.TokenRevoker
	Limiter ratelimit.Limiter
	Blobs   blob.Store
	Metrics *metrics.Metrics
}

// App encapsulates the application logic and dependencies required to process requests.
type App struct {
	db      storage.Storage // Database storage layer for persistent data operations.
	log     *logger.Logger  // Logger for logging application events and errors.
	tokens  *auth.TokenManager
	revoker auth.TokenRevoker
	limiter ratelimit.Limiter
	blobs   blob.Store
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

// NewApp creates and returns a new instance of App with the provided storage, logger and collaborators.
func NewApp(db storage.Storage, log *logger.Logger, deps Deps, opts Options) *App {
	if deps.Revoker == nil {
		deps.Revoker = auth.NewMemoryTokenRevoker()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.RememberMeTTL <= 0 {
		opts.RememberMeTTL = 30 * 24 * time.Hour
	}
	if opts.MaxImagesPerItem <= 0 {
		opts.MaxImagesPerItem = 8
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 5 << 20
	}
	if opts.MaxPointsCost <= 0 {
		opts.MaxPointsCost = 1000
	}

	return &App{
		db:      db,
		log:     log,
		tokens:  deps.Tokens,
		revoker: deps.Revoker,
		limiter: deps.Limiter,
		blobs:   deps.Blobs,
		metrics: deps.Metrics,
		opts:    opts,
		now:     time.Now,
	}
}

// MaxImageBytes is the largest accepted image or avatar upload.
func (app *App) MaxImageBytes() int {
	return app.opts.MaxImageBytes
}
