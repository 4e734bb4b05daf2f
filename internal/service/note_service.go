package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/mapper"
	"github.com/tailaid/tailaid-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NoteService struct {
	db        *gorm.DB
	noteRepo  *repository.NoteRepository
	alertRepo *repository.AlertRepository
	logger    *zap.Logger
}

func NewNoteService(
	db *gorm.DB,
	noteRepo *repository.NoteRepository,
	alertRepo *repository.AlertRepository,
	logger *zap.Logger,
) *NoteService {
	return &NoteService{
		db:        db,
		noteRepo:  noteRepo,
		alertRepo: alertRepo,
		logger:    logger,
	}
}

// Create posts a note on an alert and copies its non-empty text, eta and
// instructions onto the alert in the same transaction
func (s *NoteService) Create(ctx context.Context, req *domain.CreateNoteRequest) (*domain.NoteDTO, error) {
	alertID, err := uuid.Parse(strings.TrimSpace(req.AlertID))
	if err != nil {
		return nil, ErrAlertNotFound
	}

	note := &domain.Note{
		AlertID:      alertID,
		Text:         strings.TrimSpace(req.Text),
		ETA:          strings.TrimSpace(req.ETA),
		Instructions: strings.TrimSpace(req.Instructions),
	}

	if userCtx, ok := auth.FromContext(ctx); ok && userCtx.UserID != auth.SystemUserID {
		authorID := userCtx.UserID
		note.AuthorID = &authorID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		alerts := s.alertRepo.WithTx(tx)

		if _, err := alerts.GetByID(ctx, alertID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return fmt.Errorf("failed to get alert: %w", err)
		}

		if err := s.noteRepo.WithTx(tx).Create(ctx, note); err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}

		if _, err := alerts.Update(ctx, alertID, noteChanges(note)); err != nil {
			return fmt.Errorf("failed to update alert from note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("note added",
		zap.String("note_id", note.ID.String()),
		zap.String("alert_id", alertID.String()),
	)

	dto := mapper.ToNoteDTO(note)
	return &dto, nil
}

func noteChanges(note *domain.Note) domain.AlertChanges {
	var changes domain.AlertChanges
	if note.Text != "" {
		changes.CustomNote = &note.Text
	}
	if note.ETA != "" {
		changes.ETA = &note.ETA
	}
	if note.Instructions != "" {
		changes.Instructions = &note.Instructions
	}
	return changes
}

// ListByAlert returns the notes on an alert, newest first. An id that is not
// a UUID cannot match any alert and yields an empty list.
func (s *NoteService) ListByAlert(ctx context.Context, alertID string) ([]domain.NoteDTO, error) {
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return nil, fmt.Errorf("%w: alertId is required", ErrInvalidInput)
	}

	id, err := uuid.Parse(alertID)
	if err != nil {
		return []domain.NoteDTO{}, nil
	}

	notes, err := s.noteRepo.ListByAlert(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return mapper.ToNoteDTOs(notes), nil
}
