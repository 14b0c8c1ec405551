// Package services contains the core business logic. This file
// implements AuthService: registration, login, session resolution, and
// profile updates, with throttling and audit on the authentication
// paths.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threelizards/safe-variables/internal/common"
	"github.com/threelizards/safe-variables/internal/cryptox"
	"github.com/threelizards/safe-variables/internal/logging"
	"github.com/threelizards/safe-variables/internal/server/audit"
	"github.com/threelizards/safe-variables/internal/server/auth"
	"github.com/threelizards/safe-variables/internal/server/models"
	"github.com/threelizards/safe-variables/internal/server/ratelimit"
	"github.com/threelizards/safe-variables/internal/server/repositories/repomanager"
)

const maxEmailLength = 254

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Rate limits applied to the authentication endpoints, per client IP.
const (
	registerLimit  = 5
	loginLimit     = 10
	authRateWindow = 15 * time.Minute
)

// ClientInfo identifies the remote caller for throttling and audit.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Session is the success payload of registration and login.
type Session struct {
	Token string
	User  *models.User
}

// RegisterRequest carries the registration input.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// ProfileUpdate carries the mutable profile attributes.
type ProfileUpdate struct {
	Name      string
	Bio       string
	Company   string
	Position  string
	AvatarURL string
	Phone     string
	Location  string
	Website   string
	Linkedin  string
	Github    string
	Timezone  string
}

type AuthService struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	codec   *auth.TokenCodec
	limiter *ratelimit.Limiter
	audit   *audit.Recorder
	logger  logging.Logger
	now     func() time.Time
}

func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, codec *auth.TokenCodec,
	limiter *ratelimit.Limiter, recorder *audit.Recorder, logger logging.Logger) *AuthService {
	return &AuthService{
		db:      db,
		repos:   repos,
		codec:   codec,
		limiter: limiter,
		audit:   recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates a user from validated input and returns an
// authenticated session. The password must pass the strength validator;
// email uniqueness is decided by the storage unique index.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*Session, error) {
	if res := s.limiter.Check("register", client.IP, registerLimit, authRateWindow); !res.Allowed {
		return nil, &common.RateLimitError{RetryAfter: res.ResetAt.Sub(s.now())}
	}

	email := NormalizeEmail(req.Email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: invalid email format", common.ErrorValidation)
	}

	if strength := cryptox.EvaluatePassword(req.Password); !strength.Valid {
		return nil, fmt.Errorf("%w: weak password: %s",
			common.ErrorValidation, strings.Join(strength.Reasons, ", "))
	}

	digest, err := cryptox.HashPassword(req.Password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: digest,
		Name:         strings.TrimSpace(req.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repos.Users(s.db).Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.audit.Write(ctx, audit.Record{
				Action:    audit.ActionRegisterFailed,
				Resource:  "user",
				IP:        client.IP,
				UserAgent: client.UserAgent,
				Success:   false,
				Details:   map[string]any{"reason": "email_exists", "email": email},
			})
			return nil, common.ErrorEmailTaken
		}
		s.logger.Error(ctx, "user creation failed", "error", err)
		return nil, common.ErrorInternal
	}

	token, err := s.codec.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.audit.Write(ctx, audit.Record{
		Actor:      user.ID,
		Action:     audit.ActionRegisterSuccess,
		Resource:   "user",
		ResourceID: user.ID,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return &Session{Token: token, User: user}, nil
}

// Login verifies credentials and returns a session. A missing user and
// a wrong password produce the identical ErrInvalidCredentials outcome,
// so callers cannot enumerate accounts. Every outcome yields exactly
// one audit record.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*Session, error) {
	if res := s.limiter.Check("login", client.IP, loginLimit, authRateWindow); !res.Allowed {
		s.audit.Write(ctx, audit.Record{
			Action:    audit.ActionLoginRateLimited,
			Resource:  "user",
			IP:        client.IP,
			UserAgent: client.UserAgent,
			Success:   false,
		})
		return nil, &common.RateLimitError{RetryAfter: res.ResetAt.Sub(s.now())}
	}

	email = NormalizeEmail(email)

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "user lookup failed", "error", err)
			return nil, common.ErrorInternal
		}
		// burn a comparable amount of work before answering so the
		// missing-user path does not return noticeably faster
		cryptox.VerifyPassword(password, dummyDigest)
		return nil, s.failLogin(ctx, email, client)
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		return nil, s.failLogin(ctx, email, client)
	}

	token, err := s.codec.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.audit.Write(ctx, audit.Record{
		Actor:      user.ID,
		Action:     audit.ActionLoginSuccess,
		Resource:   "user",
		ResourceID: user.ID,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return &Session{Token: token, User: user}, nil
}

// dummyDigest is a bcrypt digest of a throwaway value, used to equalize
// work between "user not found" and "wrong password".
var dummyDigest, _ = cryptox.HashPassword("timing-equalizer")

func (s *AuthService) failLogin(ctx context.Context, email string, client ClientInfo) error {
	s.audit.Write(ctx, audit.Record{
		Action:    audit.ActionLoginFailed,
		Resource:  "user",
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Success:   false,
		Details:   map[string]any{"email": email},
	})
	return common.ErrInvalidCredentials
}

// ResolveSession turns a session token back into the user it was issued
// to. Expired and invalid tokens, and tokens for vanished users, all
// read as ErrorUnauthorized.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.codec.Resolve(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			s.logger.Debug(ctx, "session token expired")
		}
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Logout records the event. Tokens are stateless, so the server keeps
// no revocation bookkeeping: an issued token stays valid until expiry.
func (s *AuthService) Logout(ctx context.Context, userID string, client ClientInfo) {
	s.audit.Write(ctx, audit.Record{
		Actor:      userID,
		Action:     audit.ActionLogout,
		Resource:   "user",
		ResourceID: userID,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Success:    true,
	})
}

// UpdateProfile applies the mutable profile attributes to the caller's
// own record.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate, client ClientInfo) (*models.User, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	user.Name = strings.TrimSpace(upd.Name)
	user.Bio = upd.Bio
	user.Company = upd.Company
	user.Position = upd.Position
	user.AvatarURL = upd.AvatarURL
	user.Phone = upd.Phone
	user.Location = upd.Location
	user.Website = upd.Website
	user.Linkedin = upd.Linkedin
	user.Github = upd.Github
	user.Timezone = upd.Timezone
	user.UpdatedAt = s.now().UTC()

	if err := repo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "profile update failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.audit.Write(ctx, audit.Record{
		Actor:      userID,
		Action:     audit.ActionProfileUpdated,
		Resource:   "user",
		ResourceID: userID,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return user, nil
}

// NormalizeEmail lower-cases and trims an email so lookups and the
// unique index are effectively case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return len(email) <= maxEmailLength && emailRe.MatchString(email)
}
