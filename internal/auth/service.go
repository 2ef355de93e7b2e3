// Package auth implements email and password identity: sign-up with an
// emailed verification code, sign-in into a bearer-token session, and
// password reset.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/smartgrocery/internal/model"
	"github.com/dukerupert/smartgrocery/internal/store"
)

const (
	MinPasswordLength = 6
	maxCodeAttempts   = 5
)

var (
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("Email not verified. Please verify your email to log in.")
	ErrInvalidCode        = errors.New("code is incorrect or has expired")
	ErrTooManyAttempts    = errors.New("too many incorrect attempts, please request a new code")
)

// Mailer delivers verification and reset codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, code string) error
}

type Service struct {
	users      *store.UserStore
	sessions   *store.SessionStore
	codes      *store.CodeStore
	mailer     Mailer
	tokens     *Tokens
	logger     *slog.Logger
	bcryptCost int
	logCodes   bool
}

type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithCodeLogging logs codes whose email could not be sent. Development only.
func WithCodeLogging(enabled bool) Option {
	return func(s *Service) {
		s.logCodes = enabled
	}
}

func NewService(users *store.UserStore, sessions *store.SessionStore, codes *store.CodeStore, mailer Mailer, tokens *Tokens, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:      users,
		sessions:   sessions,
		codes:      codes,
		mailer:     mailer,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignInResult is returned on a successful sign-in.
type SignInResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// SignUp creates an unverified account and emails a verification code.
func (s *Service) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}

	if err := s.sendCode(ctx, email, model.PurposeVerify); err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", "user_id", user.ID)
	return user, nil
}

// ResendVerification issues a fresh verification code for an unverified
// account. Unknown or already verified emails are accepted silently.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.Verified() {
		return nil
	}
	return s.sendCode(ctx, email, model.PurposeVerify)
}

func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.checkCode(ctx, email, code, model.PurposeVerify); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCode
	}
	return s.users.MarkVerified(ctx, user.ID)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified() {
		return nil, ErrEmailNotVerified
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Sign(user.ID, user.Email, sess.Token, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s.logger.Info("user signed in", "user_id", user.ID, "session_id", sess.ID)
	return &SignInResult{Token: token, ExpiresAt: sess.ExpiresAt, User: user}, nil
}

// RequestPasswordReset emails a reset code. Unknown emails are accepted
// silently so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.sendCode(ctx, email, model.PurposeReset)
}

// ResetPassword sets a new password and revokes every session of the user.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := s.checkCode(ctx, email, code, model.PurposeReset); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPasswordHash(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	// The code proved ownership of the address.
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}
	if err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return err
	}
	s.logger.Info("password reset", "user_id", user.ID)
	return nil
}

func (s *Service) SignOut(ctx context.Context, sessionID int64) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Authenticate resolves a bearer token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (AuthContext, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return AuthContext{}, err
	}
	sess, err := s.sessions.GetByToken(ctx, claims.ID)
	if err != nil {
		return AuthContext{}, err
	}
	if sess == nil || sess.UserID != claims.UserID {
		return AuthContext{}, ErrInvalidToken
	}
	return AuthContext{UserID: sess.UserID, SessionID: sess.ID, Email: claims.Email}, nil
}

// Cleanup removes expired sessions and codes.
func (s *Service) Cleanup(ctx context.Context) error {
	sessions, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	codes, err := s.codes.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if sessions > 0 || codes > 0 {
		s.logger.Debug("expired auth records removed", "sessions", sessions, "codes", codes)
	}
	return nil
}

func (s *Service) sendCode(ctx context.Context, email, purpose string) error {
	vc, err := s.codes.Create(ctx, email, purpose)
	if err != nil {
		return err
	}

	if purpose == model.PurposeReset {
		err = s.mailer.SendPasswordReset(ctx, email, vc.Code)
	} else {
		err = s.mailer.SendVerificationCode(ctx, email, vc.Code)
	}
	if err != nil {
		s.logger.Error("send code", "purpose", purpose, "error", err)
		if s.logCodes {
			s.logger.Info("undelivered code", "email", email, "purpose", purpose, "code", vc.Code)
		}
	}
	return nil
}

// checkCode validates code against the latest pending code, counting
// failed attempts.
func (s *Service) checkCode(ctx context.Context, email, code, purpose string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidCode
	}

	pending, err := s.codes.GetPending(ctx, email, purpose)
	if err != nil {
		return err
	}
	if pending == nil {
		return ErrInvalidCode
	}

	if pending.Attempts >= maxCodeAttempts {
		return s.burn(ctx, pending.ID, ErrTooManyAttempts)
	}

	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		attempts, err := s.codes.IncrementAttempts(ctx, pending.ID)
		if err != nil {
			s.logger.Error("increment attempts", "error", err)
		}
		if attempts >= maxCodeAttempts {
			return s.burn(ctx, pending.ID, ErrTooManyAttempts)
		}
		return ErrInvalidCode
	}

	return s.burn(ctx, pending.ID, nil)
}

// burn marks a code used and returns outcome joined with any store failure.
func (s *Service) burn(ctx context.Context, id int64, outcome error) error {
	if err := s.codes.MarkUsed(ctx, id); err != nil {
		s.logger.Error("burn code", "code_id", id, "error", err)
		return errors.Join(outcome, err)
	}
	return outcome
}
