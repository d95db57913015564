package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/developlogy/sitebuilder/app/jobs"
	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/pkg/auth"
	"github.com/developlogy/sitebuilder/pkg/cache"
	"github.com/developlogy/sitebuilder/pkg/event"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
	"github.com/developlogy/sitebuilder/pkg/queue"
)

// AuthState is the state of one sign-in attempt.
type AuthState string

const (
	StateUnauthenticated AuthState = "unauthenticated"
	StateLinkSent        AuthState = "link_sent"
	StateVerifying       AuthState = "verifying"
	StateAuthenticated   AuthState = "authenticated"
	StateFailed          AuthState = "failed"
)

var authTransitions = map[AuthState][]AuthState{
	StateUnauthenticated: {StateLinkSent},
	StateLinkSent:        {StateVerifying, StateFailed},
	StateVerifying:       {StateAuthenticated, StateFailed},
}

func (s AuthState) canTransition(next AuthState) bool {
	for _, allowed := range authTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrLoginFailed is returned for any sign-in attempt that cannot complete:
// a bad or expired token, a wrong code, or an attempt already used.
var ErrLoginFailed = fmt.Errorf("sign-in link is invalid or has already been used: %w", models.ErrUnauthenticated)

// LoginAttempt is one magic-link sign-in. Its id is the jti of the link
// token.
type LoginAttempt struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	State     AuthState `json:"state"`
	CodeHash  string    `json:"codeHash,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *LoginAttempt) transition(next AuthState) error {
	if !a.State.canTransition(next) {
		return fmt.Errorf("login attempt %s: %s -> %s: %w", a.ID, a.State, next, ErrLoginFailed)
	}
	a.State = next
	metrics.AuthTransitions.WithLabelValues(string(next)).Inc()
	return nil
}

// AuthSession is what a successful sign-in hands back to the client.
type AuthSession struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Dispatcher queues background jobs. *queue.Manager satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// AuthService runs magic-link sign-in. Attempts and revoked sessions live in
// the cache store.
type AuthService struct {
	users   repositories.UserRepository
	store   cache.Store
	jobs    Dispatcher
	bus     *event.Bus
	baseURL string
	now     Clock
	code    func() (string, error)
}

func NewAuthService(users repositories.UserRepository, store cache.Store, jobs Dispatcher, bus *event.Bus, baseURL string, now Clock) *AuthService {
	if bus == nil {
		bus = event.Default()
	}
	return &AuthService{
		users:   users,
		store:   store,
		jobs:    jobs,
		bus:     bus,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     clockOr(now),
		code:    sixDigitCode,
	}
}

func attemptKey(id string) string  { return "auth:attempt:" + id }
func claimKey(id string) string    { return "auth:claim:" + id }
func revokedKey(jti string) string { return "auth:revoked:" + jti }

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *AuthService) saveAttempt(ctx context.Context, a *LoginAttempt) error {
	ttl := a.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.store.Set(ctx, attemptKey(a.ID), a, ttl); err != nil {
		return models.Storage("auth attempt set", err)
	}
	return nil
}

// Attempt returns a stored sign-in attempt.
func (s *AuthService) Attempt(ctx context.Context, id string) (*LoginAttempt, error) {
	var a LoginAttempt
	ok, err := s.store.Get(ctx, attemptKey(id), &a)
	if err != nil {
		return nil, models.Storage("auth attempt get", err)
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

// RequestLink starts a sign-in for email: it signs a magic-link token,
// generates a one-time code and queues the email carrying both.
func (s *AuthService) RequestLink(ctx context.Context, email string) (*LoginAttempt, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, models.NewValidationError("email", "is required")
	}
	if !models.ValidEmail(email) {
		return nil, models.NewValidationError("email", "must be a valid email address")
	}

	now := s.now()
	token, claims, err := auth.Issue(auth.Claims{Email: email, Purpose: auth.PurposeMagicLink}, auth.MagicLinkTTL, now)
	if err != nil {
		return nil, fmt.Errorf("request link: sign token: %w", err)
	}
	code, err := s.code()
	if err != nil {
		return nil, fmt.Errorf("request link: code: %w", err)
	}
	hash, err := auth.HashCode(code)
	if err != nil {
		return nil, fmt.Errorf("request link: hash code: %w", err)
	}

	a := &LoginAttempt{
		ID:        claims.ID,
		Email:     email,
		State:     StateUnauthenticated,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := a.transition(StateLinkSent); err != nil {
		return nil, err
	}
	if err := s.saveAttempt(ctx, a); err != nil {
		return nil, err
	}

	link := s.baseURL + "/auth/verify?token=" + url.QueryEscape(token)
	if err := s.jobs.Dispatch(ctx, &jobs.SendMagicLink{Email: email, Link: link, Code: code, ExpiresAt: a.ExpiresAt}); err != nil {
		return nil, fmt.Errorf("request link: queue mail: %w", err)
	}

	logger.WithCtx(ctx).Info("magic link requested", "attempt_id", a.ID)
	out := *a
	out.CodeHash = ""
	return &out, nil
}

// Verify completes the attempt a magic-link token belongs to.
func (s *AuthService) Verify(ctx context.Context, token string) (*AuthSession, error) {
	claims, err := auth.ValidateToken(token, auth.PurposeMagicLink, s.now())
	if err != nil {
		logger.WithCtx(ctx).Warn("magic link rejected", "error", err)
		return nil, ErrLoginFailed
	}
	return s.verify(ctx, claims.ID, func(a *LoginAttempt) string {
		if a.Email != models.NormalizeEmail(claims.Email) {
			return "token email does not match"
		}
		return ""
	})
}

// VerifyCode completes an attempt with the six-digit code from the email.
// A wrong code fails the attempt for good.
func (s *AuthService) VerifyCode(ctx context.Context, attemptID, code string) (*AuthSession, error) {
	if attemptID == "" {
		return nil, models.NewValidationError("attemptId", "is required")
	}
	if strings.TrimSpace(code) == "" {
		return nil, models.NewValidationError("code", "is required")
	}
	return s.verify(ctx, attemptID, func(a *LoginAttempt) string {
		if !auth.CheckCode(a.CodeHash, strings.TrimSpace(code)) {
			return "wrong code"
		}
		return ""
	})
}

// verify moves an attempt through verifying to authenticated or failed.
// check returns a failure reason, or "" to accept. Only the first caller
// for an attempt gets past the claim; every later call fails.
func (s *AuthService) verify(ctx context.Context, attemptID string, check func(*LoginAttempt) string) (*AuthSession, error) {
	a, err := s.Attempt(ctx, attemptID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrLoginFailed
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(a.ExpiresAt) {
		return nil, ErrLoginFailed
	}

	claimed, err := s.store.SetNX(ctx, claimKey(a.ID), true, a.ExpiresAt.Sub(s.now()))
	if err != nil {
		return nil, models.Storage("auth claim", err)
	}
	if !claimed {
		return nil, ErrLoginFailed
	}
	if err := a.transition(StateVerifying); err != nil {
		return nil, err
	}
	if err := s.saveAttempt(ctx, a); err != nil {
		return nil, err
	}

	if reason := check(a); reason != "" {
		return nil, s.fail(ctx, a, reason)
	}

	user, created, err := s.findOrCreateUser(ctx, a.Email)
	if err != nil {
		_ = s.fail(ctx, a, "user lookup failed")
		return nil, err
	}
	token, claims, err := auth.GenerateToken(user.ID, user.Email, s.now())
	if err != nil {
		_ = s.fail(ctx, a, "session token failed")
		return nil, fmt.Errorf("verify: sign session: %w", err)
	}

	a.UserID = user.ID
	if err := a.transition(StateAuthenticated); err != nil {
		return nil, err
	}
	if err := s.saveAttempt(ctx, a); err != nil {
		return nil, err
	}

	logger.WithCtx(ctx).Info("user signed in", "user_id", user.ID, "attempt_id", a.ID, "new_user", created)
	s.bus.Fire(ctx, EventUserSignedIn, SignedIn{UserID: user.ID, Email: user.Email, New: created})
	return &AuthSession{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

func (s *AuthService) fail(ctx context.Context, a *LoginAttempt, reason string) error {
	a.Reason = reason
	if err := a.transition(StateFailed); err != nil {
		return err
	}
	if err := s.saveAttempt(ctx, a); err != nil {
		return err
	}
	logger.WithCtx(ctx).Warn("sign-in failed", "attempt_id", a.ID, "reason", reason)
	return ErrLoginFailed
}

func (s *AuthService) findOrCreateUser(ctx context.Context, email string) (*models.User, bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}
	user = &models.User{Email: email, CreatedAt: s.now()}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// CurrentUser returns the signed-in user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	user, err := s.users.Find(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrUnauthenticated
	}
	return user, err
}

// SignOut revokes the session token described by claims until it would
// have expired anyway.
func (s *AuthService) SignOut(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return models.ErrUnauthenticated
	}
	ttl := auth.SessionTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.store.Set(ctx, revokedKey(claims.ID), true, ttl); err != nil {
		return models.Storage("auth revoke", err)
	}
	logger.WithCtx(ctx).Info("user signed out", "user_id", claims.UserID)
	return nil
}

// IsRevoked reports whether a session token id was signed out. Lookup
// errors count as not revoked.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	var revoked bool
	ok, err := s.store.Get(ctx, revokedKey(jti), &revoked)
	if err != nil {
		logger.WithCtx(ctx).Warn("auth: revocation lookup failed", "error", err)
		return false
	}
	return ok && revoked
}
