package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repositories.Store) error {
		u := &models.User{Email: "a@example.com", PasswordHash: "x"}
		require.NoError(t, tx.Users().Create(ctx, u))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithTx(ctx, func(tx repositories.Store) error {
		return tx.Users().Create(ctx, &models.User{Email: "a@example.com"})
	})
	require.NoError(t, err)

	u, err := s.Users().GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &models.User{Email: "a@example.com"}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Wallets().Create(ctx, &models.Wallet{UserID: u.ID, Address: "0x01", IsPrimary: true}))
	require.NoError(t, s.Uploads().Create(ctx, &models.UploadRecord{UserID: u.ID, FileName: "f", FileSize: 1, FileType: "t"}))
	require.NoError(t, s.Sessions().Create(ctx, &models.Session{UserID: u.ID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, s.Users().Delete(ctx, u.ID))

	wallets, _ := s.Wallets().ListByUser(ctx, u.ID)
	uploads, _ := s.Uploads().ListByUser(ctx, u.ID)
	_, err := s.Sessions().GetByToken(ctx, "tok")
	assert.Empty(t, wallets)
	assert.Empty(t, uploads)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestWalletOrderingUsesInsertionOnTies(t *testing.T) {
	ctx := context.Background()
	s := New()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	u := &models.User{Email: "a@example.com"}
	require.NoError(t, s.Users().Create(ctx, u))
	for _, addr := range []string{"0x03", "0x01", "0x02"} {
		require.NoError(t, s.Wallets().Create(ctx, &models.Wallet{UserID: u.ID, Address: addr}))
	}

	wallets, err := s.Wallets().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	assert.Equal(t, "0x03", wallets[0].Address)
	assert.Equal(t, "0x02", wallets[2].Address)
}
