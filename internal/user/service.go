package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"

	profile "github.com/ovaphlow/pitchfork/service-gig-auth/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/token"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/utilities"
)

const (
	DefaultProfileAttempts = 2
	rollbackTimeout        = 5 * time.Second
	// password used only to produce the digest compared against for unknown emails
	dummyPassword = "gig-auth-dummy-password"
)

// IdentityStore persists users. Lookups return sql.ErrNoRows when nothing matches;
// Create reports ErrDuplicateEmail or ErrDuplicatePhone on a uniqueness conflict.
type IdentityStore interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// ProfileStore persists role profiles, at most one per user.
type ProfileStore interface {
	CreateOrganizer(ctx context.Context, p *profile.OrganizerProfile) error
	CreateWorker(ctx context.Context, p *profile.WorkerProfile) error
	OrganizerByUserID(ctx context.Context, userID string) (*profile.OrganizerProfile, error)
	WorkerByUserID(ctx context.Context, userID string) (*profile.WorkerProfile, error)
}

// TokenIssuer mints and checks bearer tokens.
type TokenIssuer interface {
	Issue(userID, role string, version int64) (string, time.Time, error)
	Verify(token string) (*token.Claims, error)
}

// IDSource hands out unique record ids.
type IDSource interface {
	NewID() string
}

type idFunc func() string

func (f idFunc) NewID() string { return f() }

// AuthResult is what a successful register or login hands back.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

// UserService orchestrates registration, login and token authentication.
type UserService struct {
	users           IdentityStore
	profiles        ProfileStore
	tokens          TokenIssuer
	hasher          PasswordHasher
	ids             IDSource
	logger          *zap.SugaredLogger
	now             func() time.Time
	profileAttempts int
	dummyHash       string
}

type Option func(*UserService)

func WithHasher(h PasswordHasher) Option {
	return func(s *UserService) { s.hasher = h }
}

func WithIDSource(ids IDSource) Option {
	return func(s *UserService) { s.ids = ids }
}

func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

// WithProfileAttempts bounds how often profile creation is tried per registration.
func WithProfileAttempts(n int) Option {
	return func(s *UserService) {
		if n > 0 {
			s.profileAttempts = n
		}
	}
}

func NewUserService(users IdentityStore, profiles ProfileStore, tokens TokenIssuer, logger *zap.SugaredLogger, opts ...Option) (*UserService, error) {
	s := &UserService{
		users:           users,
		profiles:        profiles,
		tokens:          tokens,
		hasher:          BcryptHasher{Cost: 12},
		ids:             idFunc(utilities.NewSnowflakeID),
		logger:          logger,
		now:             time.Now,
		profileAttempts: DefaultProfileAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	h, err := s.hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	s.dummyHash = h
	return s, nil
}

// LoginInput is an email/password pair.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required.Error("Please provide email and password"), is.EmailFormat.Error("Valid email is required")),
		validation.Field(&in.Password, validation.Required.Error("Please provide email and password")),
	)
}

// Login checks credentials and issues a token. Unknown email and wrong password
// both yield ErrInvalidCredentials after the same amount of hashing work.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		var errs validation.Errors
		if errors.As(err, &errs) {
			return nil, toValidationError(errs)
		}
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.hasher.Verify(s.dummyHash, in.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		s.logger.Debugw("login rejected", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}

	at := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, at); err != nil {
		s.logger.Warnw("update last login failed", "user_id", u.ID, "err", err)
	} else {
		u.LastLoginAt = &at
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		if h, err := s.hasher.Hash(in.Password); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, u.ID, h); err != nil {
				s.logger.Warnw("rehash password failed", "user_id", u.ID, "err", err)
			}
		}
	}

	tok, exp, err := s.tokens.Issue(u.ID, string(u.Role), u.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

// Authenticate resolves a bearer token to its current identity. Tokens minted
// before the identity's last deactivation or reactivation are rejected.
func (s *UserService) Authenticate(ctx context.Context, tokenString string) (*entity.User, error) {
	claims, err := s.tokens.Verify(strings.TrimSpace(tokenString))
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	// an inactive identity cannot hold a valid token, whatever its version
	if claims.Version != u.TokenVersion || claims.Role != string(u.Role) || !u.IsActive {
		return nil, ErrInvalidToken
	}
	return u, nil
}

// Profile returns the role profile linked to u, or nil when none exists.
func (s *UserService) Profile(ctx context.Context, u *entity.User) (any, error) {
	var (
		p   any
		err error
	)
	switch u.Role {
	case entity.RoleOrganizer:
		p, err = s.profiles.OrganizerByUserID(ctx, u.ID)
	case entity.RoleWorker:
		p, err = s.profiles.WorkerByUserID(ctx, u.ID)
	default:
		return nil, ErrInvalidRole
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

// Deactivate blocks logins for email and invalidates its outstanding tokens.
func (s *UserService) Deactivate(ctx context.Context, email string) error {
	return s.setActive(ctx, email, false)
}

// Reactivate re-enables logins for email. Tokens issued before deactivation stay invalid.
func (s *UserService) Reactivate(ctx context.Context, email string) error {
	return s.setActive(ctx, email, true)
}

func (s *UserService) setActive(ctx context.Context, email string, active bool) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.users.SetActive(ctx, u.ID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Infow("account status changed", "user_id", u.ID, "active", active)
	return nil
}
