package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

// Role is the single application role stored on a user.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// CanOrganize reports whether the role may create and manage events.
func (r Role) CanOrganize() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// User represents a registered user together with their public profile.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url"`
	City         string    `json:"city"`
	Bio          string    `json:"bio"`
	Interests    []string  `json:"interests"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
// The display name starts out as the account name.
func NewUser(email, name string, role Role, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:       email,
		Name:        name,
		Role:        role,
		DisplayName: name,
		Interests:   []string{},
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// Author returns the public author card for the user.
func (u *User) Author() Author {
	name := u.DisplayName
	if name == "" {
		name = u.Name
	}
	return Author{ID: u.ID, Name: name, AvatarURL: u.AvatarURL}
}

// Profile holds the editable profile fields of a user.
type Profile struct {
	DisplayName string
	AvatarURL   string
	City        string
	Bio         string
	Interests   []string
}

// Apply copies the profile onto u.
func (p Profile) Apply(u *User) {
	u.DisplayName = p.DisplayName
	u.AvatarURL = p.AvatarURL
	u.City = p.City
	u.Bio = p.Bio
	u.Interests = p.Interests
	if u.Interests == nil {
		u.Interests = []string{}
	}
}

// UserEvents groups the events a user is involved with.
// swagger:model UserEvents
type UserEvents struct {
	Registered []*Event `json:"registered"`
	Favorited  []*Event `json:"favorited"`
	Organized  []*Event `json:"organized"`
}

// PasswordHasher salts and hashes passwords and checks them against stored hashes.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenClaims is the authenticated identity carried by an access token.
type TokenClaims struct {
	UserID    string
	Email     string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// TokenRevoker keeps revoked token ids until the token would have expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	UpdateRole(ctx context.Context, userID string, role Role) error
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (token string, user *User, err error)
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	Logout(ctx context.Context, claims *TokenClaims) error
}

// UserService defines the business logic for the current user's profile.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, profile Profile) (*User, error)
	ListMyEvents(ctx context.Context, userID string) (*UserEvents, error)
	// UpgradeToOrganizer grants the organizer role and returns a token carrying it.
	UpgradeToOrganizer(ctx context.Context, userID string) (token string, user *User, err error)
}
