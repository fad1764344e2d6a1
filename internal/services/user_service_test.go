package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfileName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	updated, err := env.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: strPtr("Alice")})
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, "Alice", *updated.Name)
	assert.Equal(t, "alice@example.com", updated.Email)

	_, err = env.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.users.UpdateProfile(ctx, uuid.New(), UpdateProfileInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileEmailResetsVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	_, err := env.auth.VerifyEmail(ctx, env.mailer.lastToken(t, "verify", "alice@example.com"))
	require.NoError(t, err)

	updated, err := env.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: strPtr("alice@new.example.com")})
	require.NoError(t, err)
	assert.False(t, updated.EmailVerified)
	assert.Equal(t, "alice@new.example.com", updated.Email)

	verified, err := env.auth.VerifyEmail(ctx, env.mailer.lastToken(t, "verify", "alice@new.example.com"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, verified.ID)
	assert.True(t, verified.EmailVerified)
}

func TestUpdateProfileEmailDropsOldTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "bob@example.com")
	oldToken := env.mailer.lastToken(t, "verify", "bob@example.com")

	_, err := env.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: strPtr("bob@new.example.com")})
	require.NoError(t, err)

	_, err = env.auth.VerifyEmail(ctx, oldToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	env.register(t, "bob@example.com")

	_, err := env.users.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Email: strPtr("bob@example.com")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.users.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Email: strPtr("broken")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// same address is not a change
	same, err := env.users.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Email: strPtr("alice@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", same.Email)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	current, err := env.auth.Login(ctx, "alice@example.com", "password123", ClientMeta{})
	require.NoError(t, err)
	other, err := env.auth.Login(ctx, "alice@example.com", "password123", ClientMeta{})
	require.NoError(t, err)

	err = env.users.ChangePassword(ctx, u.ID, current.Session.ID, "wrong-password", "new-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, env.users.ChangePassword(ctx, u.ID, current.Session.ID, "password123", "new-password-1"))

	_, err = env.sessions.Resolve(ctx, current.Session.Token)
	assert.NoError(t, err)
	_, err = env.sessions.Resolve(ctx, other.Session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.auth.Authenticate(ctx, "alice@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestDeleteAccountCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")
	tok := env.mailer.lastToken(t, "verify", "alice@example.com")

	login, err := env.auth.Login(ctx, "alice@example.com", "password123", ClientMeta{})
	require.NoError(t, err)
	_, err = env.wallets.Connect(ctx, u.ID, walletAddr(1), models.WalletTypeMetaMask)
	require.NoError(t, err)
	_, err = env.uploads.Create(ctx, u.ID, CreateUploadInput{FileName: "a", FileSize: 1, FileType: "t"})
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteAccount(ctx, u.ID))

	_, err = env.users.GetProfile(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.sessions.Resolve(ctx, login.Session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.store.Tokens().Take(ctx, tok, models.TokenPurposeVerifyEmail)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	wallets, err := env.wallets.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, wallets)
	uploads, err := env.uploads.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, uploads)

	assert.ErrorIs(t, env.users.DeleteAccount(ctx, u.ID), ErrNotFound)
}

func TestActivityListsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")
	_, err := env.wallets.Connect(ctx, u.ID, walletAddr(1), models.WalletTypeMetaMask)
	require.NoError(t, err)

	logs, err := env.users.Activity(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditWalletConnected, logs[0].Action)
	assert.Equal(t, models.AuditUserRegistered, logs[1].Action)
}

func TestChangePasswordKeepsConcurrentVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")
	verifyToken := env.mailer.lastToken(t, "verify", "alice@example.com")

	hooked := &hookedStore{Store: env.store}
	hooked.afterUserByID = func() {
		_, err := env.auth.VerifyEmail(ctx, verifyToken)
		require.NoError(t, err)
	}
	users := NewUserService(hooked, env.tokens, env.sessions, env.mailer, env.publisher, env.cfg, zap.NewNop())
	users.now = env.clock.Now

	require.NoError(t, users.ChangePassword(ctx, u.ID, uuid.Nil, "password123", "newpassword456"))

	got, err := env.users.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)

	_, err = env.auth.Authenticate(ctx, "alice@example.com", "newpassword456")
	assert.NoError(t, err)
}

func TestResetPasswordLeavesProfileColumns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "bob@example.com")
	_, err := env.users.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: strPtr("Bob")})
	require.NoError(t, err)

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "bob@example.com"))
	require.NoError(t, env.auth.ResetPassword(ctx, env.mailer.lastToken(t, "reset", "bob@example.com"), "newpassword456"))

	got, err := env.users.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Bob", *got.Name)
	assert.Equal(t, "bob@example.com", got.Email)
}
