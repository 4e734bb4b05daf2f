package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tailaid/tailaid-api/internal/domain"
	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *AlertRepository) WithTx(tx *gorm.DB) *AlertRepository {
	return &AlertRepository{db: tx}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("creating alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	var alert domain.Alert
	err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", id, err)
	}
	return &alert, nil
}

// List returns alerts matching the filter, newest report first
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	var alerts []domain.Alert

	query := r.db.WithContext(ctx).Model(&domain.Alert{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Order("reported_at DESC").Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}

// Update applies the non-nil fields of changes and bumps updated_at.
// Returns gorm.ErrRecordNotFound when no alert has the id.
func (r *AlertRepository) Update(ctx context.Context, id uuid.UUID, changes domain.AlertChanges) (*domain.Alert, error) {
	updates := changesToColumns(changes)
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&domain.Alert{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("updating alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

func changesToColumns(c domain.AlertChanges) map[string]interface{} {
	updates := map[string]interface{}{}

	if c.Type != nil {
		updates["type"] = *c.Type
	}
	if c.Description != nil {
		updates["description"] = *c.Description
	}
	if c.Status != nil {
		updates["status"] = *c.Status
	}
	if c.AcceptedBy != nil {
		updates["accepted_by"] = *c.AcceptedBy
	}
	if c.AcceptedByName != nil {
		updates["accepted_by_name"] = *c.AcceptedByName
	}
	if c.AcceptedByRole != nil {
		updates["accepted_by_role"] = *c.AcceptedByRole
	}
	if c.AcceptedAt != nil {
		updates["accepted_at"] = c.AcceptedAt.UTC()
	}
	if c.CustomNote != nil {
		updates["custom_note"] = *c.CustomNote
	}
	if c.ETA != nil {
		updates["eta"] = *c.ETA
	}
	if c.Instructions != nil {
		updates["instructions"] = *c.Instructions
	}

	return updates
}

// SetPhoto records where an uploaded photo was stored
func (r *AlertRepository) SetPhoto(ctx context.Context, id uuid.UUID, path, contentType string) error {
	err := r.db.WithContext(ctx).Model(&domain.Alert{}).Where("id = ?", id).Updates(map[string]interface{}{
		"photo_path":         path,
		"photo_content_type": contentType,
		"updated_at":         time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("setting alert photo: %w", err)
	}
	return nil
}

// Accept marks a pending alert as accepted. It reports false without error
// when the alert does not exist or is no longer pending, so concurrent
// acceptances cannot both win.
func (r *AlertRepository) Accept(ctx context.Context, id uuid.UUID, acceptance domain.AlertAcceptance) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Alert{}).
		Where("id = ? AND status = ?", id, domain.AlertStatusPending).
		Updates(map[string]interface{}{
			"status":           domain.AlertStatusAccepted,
			"accepted_by":      acceptance.AcceptedBy,
			"accepted_by_name": acceptance.AcceptedByName,
			"accepted_by_role": acceptance.AcceptedByRole,
			"accepted_at":      acceptance.AcceptedAt.UTC(),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("accepting alert: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkEscalated stamps escalated_at on pending alerts reported before
// olderThan that have not been escalated yet, returning how many changed
func (r *AlertRepository) MarkEscalated(ctx context.Context, olderThan, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Alert{}).
		Where("status = ? AND escalated_at IS NULL AND reported_at < ?", domain.AlertStatusPending, olderThan.UTC()).
		Updates(map[string]interface{}{
			"escalated_at": now.UTC(),
			"updated_at":   now.UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("escalating alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes the alert. Returns gorm.ErrRecordNotFound when no alert has the id.
func (r *AlertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Alert{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
