package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/session"
)

const tokenIssuer = "citas-backend"

// Login is the result of a successful sign-in.
type Login struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Client identifies the caller for the access log.
type Client struct {
	IP        string
	UserAgent string
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService signs admins in and out. Tokens are HS256 JWTs whose jti is a
// server-side session id; the session slides forward on every request and
// the token itself expires after MaxAge.
type AuthService struct {
	DB         *gorm.DB
	Repo       AdminRepo
	Sessions   session.Store
	Workspaces *Workspaces
	Secret     []byte
	TTL        time.Duration // idle expiry, extended on each request
	MaxAge     time.Duration // absolute token lifetime
	Clock      Clock
	Cost       int // bcrypt cost
}

// NewAuthService returns a service with a 24h sliding session and a 7 day
// token lifetime.
func NewAuthService(db *gorm.DB, r AdminRepo, sessions session.Store, ws *Workspaces, secret []byte) *AuthService {
	return &AuthService{
		DB:         db,
		Repo:       r,
		Sessions:   sessions,
		Workspaces: ws,
		Secret:     secret,
		TTL:        24 * time.Hour,
		MaxAge:     7 * 24 * time.Hour,
		Clock:      time.Now,
		Cost:       bcrypt.DefaultCost,
	}
}

// Login checks the credentials, opens a session and issues its token. Every
// attempt is written to the access log.
func (s *AuthService) Login(ctx context.Context, username, password string, c Client) (*Login, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.Repo.GetAdminByUsername(ctx, s.DB, username)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		s.record(ctx, username, domain.AccessLoginFailed, c)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, storeError(msgLoadFailed, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.record(ctx, username, domain.AccessLoginFailed, c)
		return nil, ErrInvalidCredentials
	}

	now := s.Clock.now()
	sess := &session.Session{
		ID:        uuid.NewString(),
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: now,
	}
	if err := s.Sessions.Set(ctx, sess, s.TTL); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	expires := now.Add(s.MaxAge)
	token, err := s.sign(sess, now, expires)
	if err != nil {
		_ = s.Sessions.Clear(ctx, sess.ID)
		return nil, err
	}

	s.record(ctx, u.Username, domain.AccessLoginSucceeded, c)
	log.Info().Str("username", u.Username).Msg("admin signed in")
	return &Login{Token: token, ExpiresAt: expires, Username: u.Username, Role: u.Role}, nil
}

func (s *AuthService) sign(sess *session.Session, now, expires time.Time) (string, error) {
	claims := adminClaims{
		Role: sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate validates a bearer token and extends its session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	var claims adminClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Clock.now),
	)
	if err != nil || claims.ID == "" {
		return nil, ErrSessionExpired
	}

	sess, err := s.Sessions.Get(ctx, claims.ID)
	if errors.Is(err, session.ErrNotFound) {
		if s.Workspaces != nil {
			s.Workspaces.Drop(claims.ID)
		}
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := s.Sessions.Set(ctx, sess, s.TTL); err != nil {
		log.Warn().Err(err).Str("username", sess.Username).Msg("session not extended")
	}
	if s.Workspaces != nil {
		s.Workspaces.Touch(sess.ID)
	}
	return sess, nil
}

// Sweep removes expired sessions from stores that do not expire them on
// their own, and drops workspaces left idle longer than TTL. It returns the
// number of workspaces dropped.
func (s *AuthService) Sweep() int {
	if sw, ok := s.Sessions.(interface{ Sweep() int }); ok {
		if n := sw.Sweep(); n > 0 {
			log.Debug().Int("removed", n).Msg("expired sessions removed")
		}
	}
	if s.Workspaces == nil {
		return 0
	}
	return s.Workspaces.DropIdle(s.TTL)
}

// Logout ends the session and records the event.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session, c Client) error {
	if err := s.EndSession(ctx, sess.ID); err != nil {
		return err
	}
	s.record(ctx, sess.Username, domain.AccessLogout, c)
	return nil
}

// EndSession drops the session and its workspace without logging an access
// event. Used when the store rejects the operator's calls.
func (s *AuthService) EndSession(ctx context.Context, sessionID string) error {
	if s.Workspaces != nil {
		s.Workspaces.Drop(sessionID)
	}
	if err := s.Sessions.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CreateAdmin provisions an operator account.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password, email, role string) (*domain.AdminUser, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < 8 {
		return nil, ErrWeakPassword
	}
	if role = strings.TrimSpace(role); role == "" {
		role = "admin"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.AdminUser{
		Username:     username,
		PasswordHash: string(hash),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Role:         role,
	}
	if err := s.Repo.CreateAdmin(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAdminExists
		}
		return nil, err
	}
	return u, nil
}

// SetPassword replaces an operator's password.
func (s *AuthService) SetPassword(ctx context.Context, username, password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Repo.UpdateAdminPassword(ctx, s.DB, strings.ToLower(strings.TrimSpace(username)), string(hash))
}

// AccessLog returns the latest authentication events, newest first.
func (s *AuthService) AccessLog(ctx context.Context, limit int) ([]domain.AccessLog, error) {
	return s.Repo.ListAccess(ctx, s.DB, limit)
}

func (s *AuthService) record(ctx context.Context, username, action string, c Client) {
	if err := s.Repo.RecordAccess(ctx, s.DB, username, action, c.IP, c.UserAgent); err != nil {
		log.Warn().Err(err).Str("username", username).Str("action", action).Msg("access log not written")
	}
}
