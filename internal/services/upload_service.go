package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/events"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UploadService struct {
	store    repositories.Store
	activity *activity
	log      *zap.Logger
}

func NewUploadService(store repositories.Store, publisher events.Publisher, log *zap.Logger) *UploadService {
	return &UploadService{
		store:    store,
		activity: newActivity(store, publisher, log),
		log:      log,
	}
}

// CreateUploadInput mirrors what the client computed when it vaulted a file.
// Valuation fields are stored as given.
type CreateUploadInput struct {
	FileName       string
	FileSize       int64
	FileType       string
	EncryptionHash *string
	Status         string

	BaseValue              decimal.NullDecimal
	CompletenessMultiplier decimal.NullDecimal
	ScarcityMultiplier     decimal.NullDecimal
	DemandMultiplier       decimal.NullDecimal
	TotalValue             decimal.NullDecimal
	MonthlyYield           decimal.NullDecimal

	Metadata json.RawMessage
}

func (s *UploadService) Create(ctx context.Context, userID uuid.UUID, in CreateUploadInput) (*models.UploadRecord, error) {
	name := strings.TrimSpace(in.FileName)
	fileType := strings.TrimSpace(in.FileType)
	if name == "" || fileType == "" || in.FileSize <= 0 {
		return nil, invalidInput("file_name, file_size and file_type are required")
	}

	status := in.Status
	if status == "" {
		status = models.UploadStatusCompleted
	}
	if !models.IsValidUploadStatus(status) {
		return nil, invalidInput("unknown status %q", status)
	}

	rec := &models.UploadRecord{
		UserID:                 userID,
		FileName:               name,
		FileSize:               in.FileSize,
		FileType:               fileType,
		EncryptionHash:         in.EncryptionHash,
		Status:                 status,
		BaseValue:              in.BaseValue,
		CompletenessMultiplier: in.CompletenessMultiplier,
		ScarcityMultiplier:     in.ScarcityMultiplier,
		DemandMultiplier:       in.DemandMultiplier,
		TotalValue:             in.TotalValue,
		MonthlyYield:           in.MonthlyYield,
	}

	if meta := strings.TrimSpace(string(in.Metadata)); meta != "" && meta != "null" {
		if !json.Valid([]byte(meta)) {
			return nil, invalidInput("metadata must be valid JSON")
		}
		rec.Metadata = &meta
	}

	if err := s.store.Uploads().Create(ctx, rec); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		if errors.Is(err, repositories.ErrOutOfRange) {
			return nil, invalidInput("valuation value out of range")
		}
		return nil, fmt.Errorf("create upload: %w", err)
	}

	meta := map[string]any{"file_name": rec.FileName, "file_size": rec.FileSize}
	if rec.TotalValue.Valid {
		meta["total_value"] = rec.TotalValue.Decimal.String()
	}
	s.activity.record(ctx, activityEntry{
		userID:     userID,
		action:     models.AuditUploadCreated,
		entityType: "upload",
		entityID:   rec.ID,
		event:      events.EventUploadCreated,
		meta:       meta,
	})
	return rec, nil
}

// List returns the user's uploads, newest first.
func (s *UploadService) List(ctx context.Context, userID uuid.UUID) ([]models.UploadRecord, error) {
	recs, err := s.store.Uploads().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return recs, nil
}

func (s *UploadService) Get(ctx context.Context, userID, id uuid.UUID) (*models.UploadRecord, error) {
	rec, err := s.store.Uploads().GetForUser(ctx, userID, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("upload: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return rec, nil
}

// Delete removes one of the user's uploads; another user's record reads as
// not found.
func (s *UploadService) Delete(ctx context.Context, userID, id uuid.UUID) (uuid.UUID, error) {
	deleted, err := s.store.Uploads().DeleteForUser(ctx, userID, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("upload: %w", ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("delete upload: %w", err)
	}

	s.activity.record(ctx, activityEntry{
		userID:     userID,
		action:     models.AuditUploadDeleted,
		entityType: "upload",
		entityID:   deleted,
		event:      events.EventUploadDeleted,
	})
	return deleted, nil
}

func (s *UploadService) Summary(ctx context.Context, userID uuid.UUID) (*models.UploadSummary, error) {
	sum, err := s.store.Uploads().SummaryByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("upload summary: %w", err)
	}
	return sum, nil
}
