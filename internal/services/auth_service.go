package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/auth"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/events"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"go.uber.org/zap"
)

type AuthService struct {
	store    repositories.Store
	tokens   *TokenLedger
	sessions *SessionService
	mailer   Mailer
	activity *activity
	cfg      *config.Config
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	store repositories.Store,
	tokens *TokenLedger,
	sessions *SessionService,
	mailer Mailer,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		activity: newActivity(store, publisher, log),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     *string
}

// Register creates an unverified user and mails a verification link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	name := normalizeName(in.Name)

	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hash, Name: name}
	var token *models.VerificationToken
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return fmt.Errorf("email already registered: %w", ErrConflict)
			}
			return fmt.Errorf("create user: %w", err)
		}
		token, err = s.tokens.Issue(ctx, tx, email, models.TokenPurposeVerifyEmail)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.sendVerification(ctx, email, token.Token)
	s.activity.record(ctx, activityEntry{
		userID:     user.ID,
		action:     models.AuditUserRegistered,
		entityType: "user",
		entityID:   user.ID,
		event:      events.EventUserRegistered,
	})
	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate returns ErrInvalidCredentials for both an unknown email and a
// wrong password; both paths pay for one bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalidInput("email and password are required")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		auth.BurnPasswordCheck(password, s.cfg.BcryptCost)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ClientMeta is recorded on the session for the account's device list.
type ClientMeta struct {
	UserAgent string
	IP        string
}

type LoginResult struct {
	User    *models.User
	Session *models.Session
	// Token is a bearer JWT bound to Session.
	Token string
}

func (s *AuthService) Login(ctx context.Context, email, password string, meta ClientMeta) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, user.ID, meta.UserAgent, meta.IP)
	if err != nil {
		return nil, err
	}
	jwtToken, err := auth.GenerateJWT(s.cfg.JWTSecret, user.ID, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", sess.ID.String()),
	)
	return &LoginResult{User: user, Session: sess, Token: jwtToken}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// VerifyEmail redeems a verification token and flips the owner's verified flag.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	var user *models.User
	_, err := s.tokens.Redeem(ctx, token, models.TokenPurposeVerifyEmail,
		func(tx repositories.Store, t *models.VerificationToken) error {
			u, err := tx.Users().MarkVerifiedByEmail(ctx, t.Email, s.now())
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("no user for token email: %w", ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("mark verified: %w", err)
			}
			user = u
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.activity.record(ctx, activityEntry{
		userID:     user.ID,
		action:     models.AuditUserVerified,
		entityType: "user",
		entityID:   user.ID,
		event:      events.EventUserVerified,
	})
	return user, nil
}

// ResendVerification mails a fresh token when the account exists and is not
// yet verified. It reports success either way.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	token, err := s.tokens.Issue(ctx, s.store, email, models.TokenPurposeVerifyEmail)
	if err != nil {
		return err
	}
	s.sendVerification(ctx, email, token.Token)
	return nil
}

// RequestPasswordReset mails a reset link when the account exists. It reports
// success either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	_, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := s.tokens.Issue(ctx, s.store, email, models.TokenPurposeResetPassword)
	if err != nil {
		return err
	}
	link := s.cfg.AppURL + "/auth/reset-password?token=" + token.Token
	if err := s.mailer.SendPasswordReset(ctx, email, link); err != nil {
		s.log.Warn("failed to send password reset email", zap.Error(err))
	}
	return nil
}

// ResetPassword redeems a reset token, stores the new hash and signs the user
// out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var user *models.User
	_, err = s.tokens.Redeem(ctx, token, models.TokenPurposeResetPassword,
		func(tx repositories.Store, t *models.VerificationToken) error {
			u, err := tx.Users().GetByEmail(ctx, t.Email)
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("no user for token email: %w", ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("lookup user: %w", err)
			}
			if err := tx.Users().UpdatePassword(ctx, u.ID, hash, s.now()); err != nil {
				return fmt.Errorf("update password: %w", err)
			}
			user = u
			return nil
		})
	if err != nil {
		return err
	}

	if _, err := s.sessions.RevokeAll(ctx, user.ID, uuid.Nil); err != nil {
		s.log.Error("failed to revoke sessions after password reset",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	s.activity.record(ctx, activityEntry{
		userID:     user.ID,
		action:     models.AuditUserPasswordChanged,
		entityType: "user",
		entityID:   user.ID,
		meta:       map[string]any{"via": "reset"},
	})
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, email, token string) {
	if err := s.mailer.SendVerification(ctx, email, VerificationLink(s.cfg.AppURL, token)); err != nil {
		s.log.Warn("failed to send verification email", zap.Error(err))
	}
}

// VerificationLink is the URL mailed to users; it hits the verify endpoint
// directly, which redirects to the sign-in page.
func VerificationLink(appURL, token string) string {
	return appURL + "/api/v1/auth/verify?token=" + token
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
