// Package models defines the data structures used throughout the application.
// It includes the persisted profile, item, swap and points ledger records,
// and the request and response payloads of the HTTP API.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role of a profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ItemStatus is the lifecycle state of a listing.
type ItemStatus string

const (
	ItemPendingApproval ItemStatus = "pending_approval"
	ItemAvailable       ItemStatus = "available"
	ItemRejected        ItemStatus = "rejected"
	ItemSwapped         ItemStatus = "swapped"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPendingApproval, ItemAvailable, ItemRejected, ItemSwapped:
		return true
	}
	return false
}

// SwapStatus is the lifecycle state of a swap proposal.
type SwapStatus string

const (
	SwapRequested SwapStatus = "requested"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCancelled SwapStatus = "cancelled"
	SwapCompleted SwapStatus = "completed"
)

// Terminal reports whether no further transition is possible from s.
func (s SwapStatus) Terminal() bool {
	return s == SwapRejected || s == SwapCancelled || s == SwapCompleted
}

// Identity holds the login credentials of an account.
// It is a separate record from the public Profile and shares its ID.
type Identity struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile is the public face of an account.
type Profile struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	PointsBalance int       `json:"points_balance"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

// PublicProfile is the subset of a profile shown next to listings.
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// Item is a clothing listing.
type Item struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Type        string         `json:"type"`
	Size        string         `json:"size"`
	Condition   string         `json:"condition"`
	Tags        []string       `json:"tags"`
	Images      []string       `json:"images"`
	Status      ItemStatus     `json:"status"`
	PointsCost  int            `json:"points_cost"`
	CreatedAt   time.Time      `json:"created_at"`
	Owner       *PublicProfile `json:"owner,omitempty"`
}

// ItemFilter narrows a browse query.
type ItemFilter struct {
	Category   string
	Tag        string
	Status     ItemStatus
	OwnerID    *uuid.UUID
	ExcludeID  *uuid.UUID
	AcquiredBy *uuid.UUID
	Limit      int
}

// Swap is a proposal to exchange two items between two users.
type Swap struct {
	ID              uuid.UUID  `json:"id"`
	RequesterUserID uuid.UUID  `json:"requester_user_id"`
	ResponderUserID uuid.UUID  `json:"responder_user_id"`
	RequesterItemID uuid.UUID  `json:"requester_item_id"`
	ResponderItemID uuid.UUID  `json:"responder_item_id"`
	Message         string     `json:"message,omitempty"`
	Status          SwapStatus `json:"status"`
	CancelledBy     *uuid.UUID `json:"cancelled_by,omitempty"`
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// SwapTransition describes a status change to be persisted.
// The write only succeeds when the stored row still has FromStatus and Version.
type SwapTransition struct {
	SwapID      uuid.UUID
	FromStatus  SwapStatus
	ToStatus    SwapStatus
	Version     int
	CancelledBy *uuid.UUID
	At          time.Time
}

// TransitionResult reports what a persisted swap transition changed.
type TransitionResult struct {
	Swap           *Swap
	PointsMoved    int
	CancelledSwaps int
}

// Ledger entry reasons.
const (
	LedgerListingApproved      = "listing_approved"
	LedgerRedemption           = "redemption"
	LedgerSwapSettlementDebit  = "swap_settlement_debit"
	LedgerSwapSettlementCredit = "swap_settlement_credit"
)

// LedgerEntry records a single change of a profile's points balance.
type LedgerEntry struct {
	ID        int64      `json:"id"`
	ProfileID uuid.UUID  `json:"profile_id"`
	Delta     int        `json:"delta"`
	Reason    string     `json:"reason"`
	ItemID    *uuid.UUID `json:"item_id,omitempty"`
	SwapID    *uuid.UUID `json:"swap_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// RegisterRequest represents the registration request payload.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// RegisterResponse represents the registration response payload.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// UserSummary identifies an account in auth responses.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username,omitempty"`
}

// LoginRequest represents the login request payload.
// Email may hold either an email address or a username.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse represents the login response payload.
type LoginResponse struct {
	User    UserSummary `json:"user"`
	Profile *Profile    `json:"profile"`
}

// LoginResult is what the application hands back to the transport after a login.
// A zero CookieMaxAge asks for a browser-session cookie.
type LoginResult struct {
	Token        string
	ExpiresAt    time.Time
	CookieMaxAge time.Duration
	Response     LoginResponse
}

// MeResponse represents the /auth/me response payload.
type MeResponse struct {
	User    UserSummary `json:"user"`
	Profile *Profile    `json:"profile"`
}

// MessageResponse carries a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error response payload.
type ErrorResponse struct {
	Errors string `json:"errors"`
	Kind   string `json:"kind,omitempty"`
}

// CreateItemRequest represents the item creation payload.
// Any owner field sent by the client is ignored.
type CreateItemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	Size        string   `json:"size"`
	Condition   string   `json:"condition"`
	Tags        TagInput `json:"tags"`
	Images      []string `json:"images"`
	PointsCost  int      `json:"points_cost"`
}

// StatusRequest carries a requested status for moderation and swap updates.
type StatusRequest struct {
	Status string `json:"status"`
}

// CreateSwapRequest represents the swap creation payload.
type CreateSwapRequest struct {
	ResponderUserID string `json:"responder_user_id"`
	RequesterItemID string `json:"requester_item_id"`
	ResponderItemID string `json:"responder_item_id"`
	Message         string `json:"message"`
}

// AvatarResponse is returned after an avatar upload.
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// PointsResponse represents the caller's points balance and history.
type PointsResponse struct {
	Balance int           `json:"balance"`
	History []LedgerEntry `json:"history"`
}

// DashboardResponse holds the caller's recent listings and acquisitions.
type DashboardResponse struct {
	MyListings  []Item `json:"myListings"`
	MyPurchases []Item `json:"myPurchases"`
}
