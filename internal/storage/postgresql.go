// Package storage provides primitives for connecting to and interacting with data storage systems.
// It defines the Storage interface along with a PostgreSQL implementation that manages accounts and
// profiles, clothing listings and their images, swap proposals, and the points ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rewear/internal/models"
	"rewear/internal/pkg/logger"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	createIdentityQuery        = `INSERT INTO content.identities (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at;`
	createProfileQuery         = `INSERT INTO content.profiles (id, username, email, display_name, role) VALUES ($1, $2, $3, $4, $5) RETURNING created_at;`
	getIdentityByEmailQuery    = `SELECT id, email, password_hash, created_at FROM content.identities WHERE email = $1;`
	getIdentityByUsernameQuery = `SELECT i.id, i.email, i.password_hash, i.created_at FROM content.identities i JOIN content.profiles p ON p.id = i.id WHERE p.username = $1;`
	getProfileQuery            = `SELECT id, username, email, display_name, avatar_url, points_balance, role, created_at FROM content.profiles WHERE id = $1;`
	updateAvatarQuery          = `UPDATE content.profiles SET avatar_url = $1, updated_at = NOW() WHERE id = $2;`
	setRoleQuery               = `UPDATE content.profiles SET role = $1, updated_at = NOW() WHERE username = $2;`
)

//go:generate mockgen -source=postgresql.go -destination=mocks/mock_storage.go -package=mocks

// Storage defines the methods required for data storage operations.
type Storage interface {
	// Close closes the database connection.
	Close()

	// Account and profile methods.
	CreateAccount(ctx context.Context, identity *models.Identity, profile *models.Profile) error
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetIdentityByUsername(ctx context.Context, username string) (*models.Identity, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error
	SetRole(ctx context.Context, username string, role models.Role) error

	// Item methods.
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	ModerateItem(ctx context.Context, itemID uuid.UUID, to models.ItemStatus) (*models.Item, error)
	RedeemItem(ctx context.Context, itemID, userID uuid.UUID) (*models.Item, error)

	// Swap methods.
	CreateSwap(ctx context.Context, swap *models.Swap) error
	GetSwap(ctx context.Context, swapID uuid.UUID) (*models.Swap, error)
	ListSwaps(ctx context.Context, userID *uuid.UUID) ([]models.Swap, error)
	TransitionSwap(ctx context.Context, t models.SwapTransition) (*models.TransitionResult, error)

	// Points methods.
	GetPoints(ctx context.Context, userID uuid.UUID) (*models.PointsResponse, error)
}

// PostgreSQL implements the Storage interface using a PostgreSQL database.
type PostgreSQL struct {
	db  *sql.DB        // Connection to the database.
	log *logger.Logger // Logger for recording events and errors.
}

// NewPostgreSQL creates a new PostgreSQL instance with the provided connection string and logger.
// It opens the connection and pings the database to ensure connectivity.
func NewPostgreSQL(configDBString string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// Ping checks that the database is reachable.
func (postgresql *PostgreSQL) Ping(ctx context.Context) error {
	return postgresql.db.PingContext(ctx)
}

// CreateAccount inserts the identity and its profile in one transaction,
// so a failed profile insert never leaves an orphan identity behind.
func (postgresql *PostgreSQL) CreateAccount(ctx context.Context, identity *models.Identity, profile *models.Profile) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, createIdentityQuery, identity.ID, identity.Email, identity.PasswordHash).Scan(&identity.CreatedAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createIdentityQuery: %s", err)
		return classify(err)
	}

	err = tx.QueryRowContext(ctx, createProfileQuery, profile.ID, profile.Username, profile.Email, profile.DisplayName, profile.Role).Scan(&profile.CreatedAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createProfileQuery: %s", err)
		return classify(err)
	}

	return tx.Commit()
}

// GetIdentityByEmail looks up login credentials by email address.
func (postgresql *PostgreSQL) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return postgresql.getIdentity(ctx, getIdentityByEmailQuery, email)
}

// GetIdentityByUsername looks up login credentials through the profile's username.
func (postgresql *PostgreSQL) GetIdentityByUsername(ctx context.Context, username string) (*models.Identity, error) {
	return postgresql.getIdentity(ctx, getIdentityByUsernameQuery, username)
}

func (postgresql *PostgreSQL) getIdentity(ctx context.Context, query, arg string) (*models.Identity, error) {
	identity := &models.Identity{}

	err := postgresql.db.QueryRowContext(ctx, query, arg).Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute an identity lookup: %s", err)
		return nil, err
	}

	return identity, nil
}

// GetProfile retrieves the profile of the given user.
func (postgresql *PostgreSQL) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}

	err := postgresql.db.QueryRowContext(ctx, getProfileQuery, userID).Scan(
		&profile.ID, &profile.Username, &profile.Email, &profile.DisplayName,
		&profile.AvatarURL, &profile.PointsBalance, &profile.Role, &profile.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getProfileQuery: %s", err)
		return nil, err
	}

	return profile, nil
}

// UpdateAvatar stores a new avatar URL on the profile.
func (postgresql *PostgreSQL) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	return postgresql.execOne(ctx, "updateAvatarQuery", updateAvatarQuery, avatarURL, userID)
}

// SetRole assigns a role to the profile with the given username.
func (postgresql *PostgreSQL) SetRole(ctx context.Context, username string, role models.Role) error {
	return postgresql.execOne(ctx, "setRoleQuery", setRoleQuery, role, username)
}

// execOne runs a statement that must affect exactly one row.
func (postgresql *PostgreSQL) execOne(ctx context.Context, name, query string, args ...any) error {
	result, err := postgresql.db.ExecContext(ctx, query, args...)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query %s: %s", name, err)
		return classify(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in %s: %s", name, err)
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
