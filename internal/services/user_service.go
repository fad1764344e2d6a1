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

const maxActivityLimit = 200

type UserService struct {
	store    repositories.Store
	tokens   *TokenLedger
	sessions *SessionService
	mailer   Mailer
	activity *activity
	cfg      *config.Config
	log      *zap.Logger
	now      func() time.Time
}

func NewUserService(
	store repositories.Store,
	tokens *TokenLedger,
	sessions *SessionService,
	mailer Mailer,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *UserService {
	return &UserService{
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

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateProfileInput holds the fields to change; nil means unchanged.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

// UpdateProfile applies a partial update. A new email clears the verified
// flag, drops tokens issued for the old address and mails a fresh link.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	if in.Name == nil && in.Email == nil {
		return nil, invalidInput("nothing to update")
	}

	var newEmail string
	if in.Email != nil {
		newEmail = strings.TrimSpace(*in.Email)
		if err := validateEmail(newEmail); err != nil {
			return nil, err
		}
	}

	var (
		user         *models.User
		emailChanged bool
		token        *models.VerificationToken
	)
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.Users().LockByID(ctx, userID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("user: %w", ErrNotFound)
			}
			return fmt.Errorf("lock user: %w", err)
		}
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		if in.Name != nil {
			u.Name = normalizeName(in.Name)
		}

		oldEmail := u.Email
		if in.Email != nil && newEmail != oldEmail {
			other, err := tx.Users().GetByEmail(ctx, newEmail)
			if err == nil && other.ID != u.ID {
				return fmt.Errorf("email already in use: %w", ErrConflict)
			}
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("lookup email: %w", err)
			}
			u.Email = newEmail
			u.EmailVerified = false
			emailChanged = true
		}

		u.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, u); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return fmt.Errorf("email already in use: %w", ErrConflict)
			}
			return fmt.Errorf("update user: %w", err)
		}

		if emailChanged {
			if _, err := tx.Tokens().DeleteByEmail(ctx, oldEmail, models.TokenPurposeVerifyEmail); err != nil {
				return fmt.Errorf("drop old tokens: %w", err)
			}
			token, err = s.tokens.Issue(ctx, tx, u.Email, models.TokenPurposeVerifyEmail)
			if err != nil {
				return err
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if emailChanged {
		link := VerificationLink(s.cfg.AppURL, token.Token)
		if err := s.mailer.SendVerification(ctx, user.Email, link); err != nil {
			s.log.Warn("failed to send verification email", zap.Error(err))
		}
	}

	fields := []string{}
	if in.Name != nil {
		fields = append(fields, "name")
	}
	if emailChanged {
		fields = append(fields, "email")
	}
	s.activity.record(ctx, activityEntry{
		userID:     user.ID,
		action:     models.AuditUserProfileUpdated,
		entityType: "user",
		entityID:   user.ID,
		event:      events.EventUserUpdated,
		meta:       map[string]any{"fields": fields},
	})
	return user, nil
}

// ChangePassword replaces the password and revokes every other session of the
// user, keeping currentSession signed in.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentSession uuid.UUID, current, next string) error {
	if current == "" {
		return invalidInput("current password is required")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.Users().UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.sessions.RevokeAll(ctx, userID, currentSession)
	if err != nil {
		s.log.Error("failed to revoke sessions after password change",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
	s.activity.record(ctx, activityEntry{
		userID:     userID,
		action:     models.AuditUserPasswordChanged,
		entityType: "user",
		entityID:   userID,
		meta:       map[string]any{"via": "profile", "sessions_revoked": revoked},
	})
	return nil
}

// DeleteAccount removes the user with every wallet, upload and session, and
// the tokens outstanding for their email.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.sessions.RevokeAll(ctx, userID, uuid.Nil); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("user: %w", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		for _, purpose := range []string{models.TokenPurposeVerifyEmail, models.TokenPurposeResetPassword} {
			if _, err := tx.Tokens().DeleteByEmail(ctx, u.Email, purpose); err != nil {
				return fmt.Errorf("drop tokens: %w", err)
			}
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.activity.record(ctx, activityEntry{
		userID:     userID,
		action:     models.AuditUserDeleted,
		entityType: "user",
		entityID:   userID,
	})
	s.log.Info("account deleted", zap.String("user_id", userID.String()))
	return nil
}

// Activity returns the user's audit trail, newest first.
func (s *UserService) Activity(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > maxActivityLimit {
		limit = 50
	}
	logs, err := s.store.Audit().ListByActor(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return logs, nil
}
