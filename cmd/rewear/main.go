package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rewear/internal/app"
	"rewear/internal/config"
	"rewear/internal/models"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/blob"
	"rewear/internal/pkg/logger"
	"rewear/internal/pkg/metrics"
	"rewear/internal/pkg/ratelimit"
	"rewear/internal/service"
	"rewear/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

func main() {
	root := &cli.Command{
		Name:  "rewear",
		Usage: "Clothing exchange marketplace API",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			setRoleCommand(),
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			return runServer(ctx)
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Apply migrations and run the HTTP server",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return runServer(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and exit",
		Action: func(ctx context.Context, _ *cli.Command) error {
			l, db, err := openStorage()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return err
			}
			l.Info("migrations applied")
			return nil
		},
	}
}

func setRoleCommand() *cli.Command {
	return &cli.Command{
		Name:  "set-role",
		Usage: "Grant or revoke the admin role",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true, Usage: "profile username"},
			&cli.StringFlag{Name: "role", Value: string(models.RoleAdmin), Usage: "user or admin"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			l, db, err := openStorage()
			if err != nil {
				return err
			}
			defer db.Close()

			application := app.NewApp(db, l, app.Deps{}, app.Options{})
			if err := application.SetRole(ctx, c.String("username"), models.Role(c.String("role"))); err != nil {
				return err
			}
			fmt.Printf("%s is now %s\n", c.String("username"), c.String("role"))
			return nil
		},
	}
}

func openStorage() (*logger.Logger, *storage.PostgreSQL, error) {
	l, err := logger.CreateLogger(config.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := storage.NewPostgreSQL(config.DatabaseURI, l)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return l, db, nil
}

func runServer(ctx context.Context) error {
	if err := config.ValidateJWTSecret(config.Environment, config.JWTSecret); err != nil {
		return err
	}

	l, db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	deps, closeDeps, err := buildDeps(ctx, l)
	if err != nil {
		return err
	}
	defer closeDeps()

	application := app.NewApp(db, l, deps, app.Options{
		ModerationPolicy: config.ModerationPolicy,
		BrowseExcludeOwn: config.BrowseExcludeOwn,
		SessionTTL:       config.SessionTTL,
		RememberMeTTL:    config.RememberMeTTL,
		MaxImagesPerItem: config.MaxImagesPerItem,
		MaxImageBytes:    config.MaxImageBytes,
		MaxPointsCost:    config.MaxPointsCost,
	})

	cookies := auth.NewCookieHelper(auth.CookieConfig{
		Secure:   config.CookieSecure,
		SameSite: auth.ParseSameSite(config.CookieSameSite),
	})
	service := service.NewService(application, config.ServerRunAddress, l, deps.Metrics, cookies)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.ServerRunAddress, Handler: service.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	l.Sugar().Infof("Listening on %s", config.ServerRunAddress)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()
	return nil
}

// buildDeps wires the token store, the login limiter and the blob backend.
// Redis backs revocation and rate limiting when configured; otherwise both stay in-process.
func buildDeps(ctx context.Context, l *logger.Logger) (app.Deps, func(), error) {
	deps := app.Deps{
		Tokens:  auth.NewTokenManager(config.JWTSecret),
		Metrics: metrics.New(),
	}
	closeDeps := func() {}

	if config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr, Password: config.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return deps, closeDeps, fmt.Errorf("connect to redis: %w", err)
		}
		closeDeps = func() { client.Close() }

		limiter, err := ratelimit.NewRedisFixedWindowLimiter(client, "rewear:login", config.LoginRateLimit, config.LoginRateWindow)
		if err != nil {
			return deps, closeDeps, err
		}
		deps.Revoker = auth.NewRedisTokenRevoker(client)
		deps.Limiter = limiter
		l.Info("using redis for session revocation and login rate limiting")
	} else {
		limiter, err := ratelimit.NewMemoryFixedWindowLimiter(config.LoginRateLimit, config.LoginRateWindow)
		if err != nil {
			return deps, closeDeps, err
		}
		deps.Revoker = auth.NewMemoryTokenRevoker()
		deps.Limiter = limiter
	}

	blobs, err := newBlobStore()
	if err != nil {
		return deps, closeDeps, err
	}
	deps.Blobs = blobs
	l.Sugar().Infof("Using %s blob storage", config.BlobBackend)

	return deps, closeDeps, nil
}

func newBlobStore() (blob.Store, error) {
	switch config.BlobBackend {
	case config.BlobBackendCloudinary:
		return blob.NewCloudinaryStore(config.CloudinaryCloudName, config.CloudinaryAPIKey, config.CloudinaryAPISecret, config.CloudinaryFolder)
	case config.BlobBackendMinIO:
		return blob.NewMinioStore(config.MinIOEndpoint, config.MinIOAccessKey, config.MinIOSecretKey,
			config.MinIOBucket, config.MinIOPublicURL, config.MinIOUseSSL)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", config.BlobBackend)
	}
}
