package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/mapper"
	"github.com/tailaid/tailaid-api/internal/repository"
	"github.com/tailaid/tailaid-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AlertService struct {
	db            *gorm.DB
	alertRepo     *repository.AlertRepository
	noteRepo      *repository.NoteRepository
	storage       storage.Storage
	maxPhotoBytes int64
	logger        *zap.Logger
	now           func() time.Time
}

func NewAlertService(
	db *gorm.DB,
	alertRepo *repository.AlertRepository,
	noteRepo *repository.NoteRepository,
	store storage.Storage,
	maxPhotoBytes int64,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		db:            db,
		alertRepo:     alertRepo,
		noteRepo:      noteRepo,
		storage:       store,
		maxPhotoBytes: maxPhotoBytes,
		logger:        logger,
		now:           time.Now,
	}
}

// Create reports a new pending alert. The reporter defaults to the
// authenticated user when the request omits it.
func (s *AlertService) Create(ctx context.Context, req *domain.CreateAlertRequest) (*domain.AlertDTO, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		if userCtx, ok := auth.FromContext(ctx); ok {
			userID = userCtx.UserID.String()
		}
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	upload, externalURL, err := parsePhoto(req.Photo, s.maxPhotoBytes)
	if err != nil {
		return nil, err
	}

	alertType := domain.AlertType(req.Type)
	if alertType == "" {
		alertType = domain.AlertTypeInjury
	}

	alert := &domain.Alert{
		UserID:      userID,
		Type:        alertType,
		Description: strings.TrimSpace(req.Description),
		PhotoURL:    externalURL,
		Status:      domain.AlertStatusPending,
		Timestamp:   s.now().UTC(),
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	if upload != nil {
		if err := s.attachPhoto(ctx, alert, upload); err != nil {
			if delErr := s.alertRepo.Delete(ctx, alert.ID); delErr != nil {
				s.logger.Error("failed to remove alert after photo upload failure",
					zap.String("alert_id", alert.ID.String()),
					zap.Error(delErr))
			}
			return nil, err
		}
	}

	s.logger.Info("alert created",
		zap.String("alert_id", alert.ID.String()),
		zap.String("type", string(alert.Type)),
		zap.Bool("has_photo", alert.HasStoredPhoto() || alert.PhotoURL != ""),
	)

	dto := mapper.ToAlertDTO(alert)
	return &dto, nil
}

func (s *AlertService) attachPhoto(ctx context.Context, alert *domain.Alert, upload *photoUpload) error {
	folder := "alerts/" + alert.ID.String()

	path, _, err := s.storage.Upload(ctx, folder, upload.ext, upload.contentType, bytes.NewReader(upload.data))
	if err != nil {
		return fmt.Errorf("failed to store photo: %w", err)
	}

	if err := s.alertRepo.SetPhoto(ctx, alert.ID, path, upload.contentType); err != nil {
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			s.logger.Warn("failed to remove orphaned photo", zap.String("path", path), zap.Error(delErr))
		}
		return fmt.Errorf("failed to record photo: %w", err)
	}

	alert.PhotoPath = path
	alert.PhotoContentType = upload.contentType
	return nil
}

// List returns alerts, newest report first. Empty arguments match everything.
func (s *AlertService) List(ctx context.Context, userID, status string) ([]domain.AlertDTO, error) {
	if status != "" && !domain.IsValidAlertStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	alerts, err := s.alertRepo.List(ctx, domain.AlertFilter{
		UserID: strings.TrimSpace(userID),
		Status: domain.AlertStatus(status),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return mapper.ToAlertDTOs(alerts), nil
}

func (s *AlertService) getAlert(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	alert, err := s.alertRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

func (s *AlertService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AlertDTO, error) {
	alert, err := s.getAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := mapper.ToAlertDTO(alert)
	return &dto, nil
}

// Update merges the provided fields into the alert. Moving an alert to
// accepted stamps acceptedAt when it was not accepted before, and needs the
// accepting facility either in the request or from the caller's token.
func (s *AlertService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateAlertRequest) (*domain.AlertDTO, error) {
	changes := domain.AlertChanges{
		Description:    req.Description,
		AcceptedBy:     req.AcceptedBy,
		AcceptedByName: req.AcceptedByName,
		AcceptedByRole: req.AcceptedByRole,
		CustomNote:     req.CustomNote,
		ETA:            req.ETA,
		Instructions:   req.Instructions,
	}

	if req.Type != nil {
		t := domain.AlertType(*req.Type)
		changes.Type = &t
	}

	if req.Status != nil {
		if !domain.IsValidAlertStatus(*req.Status) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		status := domain.AlertStatus(*req.Status)
		changes.Status = &status

		if status == domain.AlertStatusAccepted {
			current, err := s.getAlert(ctx, id)
			if err != nil {
				return nil, err
			}
			if err := s.fillAcceptance(ctx, current, &changes); err != nil {
				return nil, err
			}
			if current.AcceptedAt == nil {
				now := s.now().UTC()
				changes.AcceptedAt = &now
			}
		}
	}

	alert, err := s.alertRepo.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	s.logger.Info("alert updated",
		zap.String("alert_id", alert.ID.String()),
		zap.String("status", string(alert.Status)),
	)

	dto := mapper.ToAlertDTO(alert)
	return &dto, nil
}

// fillAcceptance completes the acceptedBy fields for a move to accepted.
// Missing fields come from an authenticated facility, then from the stored
// alert. All three must end up set.
func (s *AlertService) fillAcceptance(ctx context.Context, current *domain.Alert, changes *domain.AlertChanges) error {
	var caller domain.AlertAcceptance
	if userCtx, ok := auth.FromContext(ctx); ok && (userCtx.IsFacility() || userCtx.IsAdmin()) {
		caller = domain.AlertAcceptance{
			AcceptedBy:     userCtx.Email,
			AcceptedByName: userCtx.Name,
			AcceptedByRole: userCtx.Role.Label(),
		}
	}

	complete := fillField(&changes.AcceptedBy, caller.AcceptedBy, current.AcceptedBy) &&
		fillField(&changes.AcceptedByName, caller.AcceptedByName, current.AcceptedByName) &&
		fillField(&changes.AcceptedByRole, caller.AcceptedByRole, current.AcceptedByRole)
	if !complete {
		return fmt.Errorf("%w: accepting an alert requires acceptedBy, acceptedByName and acceptedByRole", ErrInvalidInput)
	}
	return nil
}

// fillField sets a blank field to fallback. It reports false when the field
// is still blank and nothing is stored for it.
func fillField(field **string, fallback, stored string) bool {
	if *field != nil && strings.TrimSpace(**field) != "" {
		return true
	}
	if fallback != "" {
		*field = &fallback
		return true
	}
	*field = nil
	return stored != ""
}

// Accept assigns a pending alert to the authenticated facility. Only one
// facility can win; later attempts get ErrAlertAlreadyAccepted.
func (s *AlertService) Accept(ctx context.Context, id uuid.UUID) (*domain.AlertDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.IsFacility() && !userCtx.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	acceptance := domain.AlertAcceptance{
		AcceptedBy:     userCtx.Email,
		AcceptedByName: userCtx.Name,
		AcceptedByRole: userCtx.Role.Label(),
		AcceptedAt:     s.now().UTC(),
	}

	accepted, err := s.alertRepo.Accept(ctx, id, acceptance)
	if err != nil {
		return nil, fmt.Errorf("failed to accept alert: %w", err)
	}

	alert, err := s.getAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, ErrAlertAlreadyAccepted
	}

	s.logger.Info("alert accepted",
		zap.String("alert_id", alert.ID.String()),
		zap.String("accepted_by", acceptance.AcceptedBy),
		zap.String("role", acceptance.AcceptedByRole),
	)

	dto := mapper.ToAlertDTO(alert)
	return &dto, nil
}

// Delete removes an alert with its notes and stored photo. Only the reporter
// or an admin may delete.
func (s *AlertService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	alert, err := s.getAlert(ctx, id)
	if err != nil {
		return err
	}

	if !userCtx.IsAdmin() && !userCtx.Owns(alert.UserID) {
		return ErrPermissionDenied
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.noteRepo.WithTx(tx).DeleteByAlert(ctx, id); err != nil {
			return fmt.Errorf("failed to delete notes: %w", err)
		}
		if err := s.alertRepo.WithTx(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return fmt.Errorf("failed to delete alert: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if alert.HasStoredPhoto() {
		if err := s.storage.Delete(ctx, alert.PhotoPath); err != nil {
			s.logger.Warn("failed to delete alert photo",
				zap.String("alert_id", id.String()),
				zap.String("path", alert.PhotoPath),
				zap.Error(err))
		}
	}

	s.logger.Info("alert deleted",
		zap.String("alert_id", id.String()),
		zap.String("deleted_by", userCtx.UserID.String()),
	)

	return nil
}

// OpenPhoto returns the stored photo for an alert and its content type.
// The caller must close the reader.
func (s *AlertService) OpenPhoto(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	alert, err := s.getAlert(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !alert.HasStoredPhoto() {
		return nil, "", ErrPhotoNotFound
	}

	rc, err := s.storage.Download(ctx, alert.PhotoPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrPhotoNotFound
		}
		return nil, "", fmt.Errorf("failed to open photo: %w", err)
	}

	contentType := alert.PhotoContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// EscalateStale flags pending alerts reported more than maxAge ago. The
// caller reports the count.
func (s *AlertService) EscalateStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	now := s.now().UTC()

	n, err := s.alertRepo.MarkEscalated(ctx, now.Add(-maxAge), now)
	if err != nil {
		return 0, fmt.Errorf("failed to escalate alerts: %w", err)
	}
	return n, nil
}
