package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tailaid/tailaid-api/internal/domain"
	"gorm.io/gorm"
)

type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *NoteRepository) WithTx(tx *gorm.DB) *NoteRepository {
	return &NoteRepository{db: tx}
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) error {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("creating note: %w", err)
	}
	return nil
}

// ListByAlert returns the notes on an alert, newest first
func (r *NoteRepository) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]domain.Note, error) {
	var notes []domain.Note
	err := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("listing notes for alert %s: %w", alertID, err)
	}
	return notes, nil
}

func (r *NoteRepository) DeleteByAlert(ctx context.Context, alertID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).Delete(&domain.Note{}).Error; err != nil {
		return fmt.Errorf("deleting notes for alert %s: %w", alertID, err)
	}
	return nil
}
