package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lifevault/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestCreateUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice@example.com")

	tests := []struct {
		name string
		in   CreateUploadInput
	}{
		{"missing name", CreateUploadInput{FileSize: 10, FileType: "application/pdf"}},
		{"zero size", CreateUploadInput{FileName: "a.pdf", FileType: "application/pdf"}},
		{"negative size", CreateUploadInput{FileName: "a.pdf", FileSize: -1, FileType: "application/pdf"}},
		{"missing type", CreateUploadInput{FileName: "a.pdf", FileSize: 10}},
		{"bad status", CreateUploadInput{FileName: "a.pdf", FileSize: 10, FileType: "application/pdf", Status: "lost"}},
		{"bad metadata", CreateUploadInput{FileName: "a.pdf", FileSize: 10, FileType: "application/pdf", Metadata: json.RawMessage(`{`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.uploads.Create(context.Background(), u.ID, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCreateUploadKeepsValuesAsGiven(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	rec, err := env.uploads.Create(ctx, u.ID, CreateUploadInput{
		FileName:           "labs.pdf",
		FileSize:           2048,
		FileType:           "application/pdf",
		BaseValue:          dec("12.50"),
		ScarcityMultiplier: dec("1.2"),
		TotalValue:         dec("15.000000001"),
		Metadata:           json.RawMessage(`{"category":"labs","pages":3}`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCompleted, rec.Status)
	assert.Equal(t, "15.000000001", rec.TotalValue.Decimal.String())
	assert.False(t, rec.MonthlyYield.Valid)
	require.NotNil(t, rec.Metadata)
	assert.JSONEq(t, `{"category":"labs","pages":3}`, *rec.Metadata)

	got, err := env.uploads.Get(ctx, u.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestListUploadsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	for _, name := range []string{"a", "b", "c"} {
		_, err := env.uploads.Create(ctx, u.ID, CreateUploadInput{FileName: name, FileSize: 1, FileType: "text/plain"})
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	recs, err := env.uploads.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].FileName)
	assert.Equal(t, "a", recs[2].FileName)
}

func TestDeleteUploadIsOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	bob := env.register(t, "bob@example.com")

	rec, err := env.uploads.Create(ctx, alice.ID, CreateUploadInput{FileName: "a", FileSize: 1, FileType: "t"})
	require.NoError(t, err)

	_, err = env.uploads.Delete(ctx, bob.ID, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.uploads.Get(ctx, bob.ID, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := env.uploads.Delete(ctx, alice.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, id)

	_, err = env.uploads.Delete(ctx, alice.ID, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	inputs := []CreateUploadInput{
		{FileName: "a", FileSize: 1, FileType: "t", TotalValue: dec("10.10"), MonthlyYield: dec("0.5")},
		{FileName: "b", FileSize: 1, FileType: "t", TotalValue: dec("2.05")},
		{FileName: "c", FileSize: 1, FileType: "t"},
	}
	for _, in := range inputs {
		_, err := env.uploads.Create(ctx, u.ID, in)
		require.NoError(t, err)
	}

	sum, err := env.uploads.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Count)
	assert.True(t, sum.TotalValue.Equal(decimal.RequireFromString("12.15")), sum.TotalValue.String())
	assert.True(t, sum.MonthlyYield.Equal(decimal.RequireFromString("0.5")))

	empty, err := env.uploads.Summary(ctx, env.register(t, "bob@example.com").ID)
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.True(t, empty.TotalValue.IsZero())
}

func TestCreateUploadKeepsFullPrecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	rec, err := env.uploads.Create(ctx, u.ID, CreateUploadInput{
		FileName:               "scan.png",
		FileSize:               1,
		FileType:               "image/png",
		CompletenessMultiplier: dec("1.23456"),
		TotalValue:             dec("123456789012345.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1.23456", rec.CompletenessMultiplier.Decimal.String())
	assert.Equal(t, "123456789012345.5", rec.TotalValue.Decimal.String())
}

func TestCreateUploadRejectsUnstorableValue(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice@example.com")

	_, err := env.uploads.Create(context.Background(), u.ID, CreateUploadInput{
		FileName:  "a.pdf",
		FileSize:  1,
		FileType:  "application/pdf",
		BaseValue: dec("1e-20000"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateUploadForDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")
	require.NoError(t, env.users.DeleteAccount(ctx, u.ID))

	_, err := env.uploads.Create(ctx, u.ID, CreateUploadInput{FileName: "a.pdf", FileSize: 1, FileType: "application/pdf"})
	assert.ErrorIs(t, err, ErrNotFound)
}
