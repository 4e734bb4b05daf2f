package mapper

import (
	"fmt"
	"math"
	"time"

	"github.com/tailaid/tailaid-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

// AlertPhotoRoute is where stored alert photos are served from
const AlertPhotoRoute = "/api/v1/alerts/%s/photo"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		RoleLabel: user.Role.Label(),
		Address:   user.Address,
		Latitude:  user.Latitude,
		Longitude: user.Longitude,
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
}

// ToAlertDTO converts Alert to AlertDTO. Stored photos are exposed through the
// photo route, external photo links are passed through unchanged.
func ToAlertDTO(alert *domain.Alert) domain.AlertDTO {
	dto := domain.AlertDTO{
		ID:             alert.ID,
		UserID:         alert.UserID,
		Type:           alert.Type,
		Description:    alert.Description,
		Photo:          alert.PhotoURL,
		Status:         alert.Status,
		AcceptedBy:     alert.AcceptedBy,
		AcceptedByName: alert.AcceptedByName,
		AcceptedByRole: alert.AcceptedByRole,
		AcceptedAt:     formatTimePtr(alert.AcceptedAt),
		CustomNote:     alert.CustomNote,
		ETA:            alert.ETA,
		Instructions:   alert.Instructions,
		Escalated:      alert.EscalatedAt != nil,
		EscalatedAt:    formatTimePtr(alert.EscalatedAt),
		Timestamp:      formatTime(alert.Timestamp),
		CreatedAt:      formatTime(alert.CreatedAt),
		UpdatedAt:      formatTime(alert.UpdatedAt),
	}

	if alert.HasStoredPhoto() {
		dto.Photo = fmt.Sprintf(AlertPhotoRoute, alert.ID)
	}

	return dto
}

// ToAlertDTOs converts a slice of alerts
func ToAlertDTOs(alerts []domain.Alert) []domain.AlertDTO {
	dtos := make([]domain.AlertDTO, len(alerts))
	for i := range alerts {
		dtos[i] = ToAlertDTO(&alerts[i])
	}
	return dtos
}

// ToNoteDTO converts Note to NoteDTO
func ToNoteDTO(note *domain.Note) domain.NoteDTO {
	return domain.NoteDTO{
		ID:           note.ID,
		AlertID:      note.AlertID,
		AuthorID:     note.AuthorID,
		Text:         note.Text,
		ETA:          note.ETA,
		Instructions: note.Instructions,
		CreatedAt:    formatTime(note.CreatedAt),
	}
}

func ToNoteDTOs(notes []domain.Note) []domain.NoteDTO {
	dtos := make([]domain.NoteDTO, len(notes))
	for i := range notes {
		dtos[i] = ToNoteDTO(&notes[i])
	}
	return dtos
}

// ToFacilityDTO converts a facility user to FacilityDTO. A nil distance is
// omitted from the response; otherwise it is rounded to one decimal.
func ToFacilityDTO(user *domain.User, distanceKm *float64) domain.FacilityDTO {
	dto := domain.FacilityDTO{
		ID:        user.ID,
		Name:      user.Name,
		Type:      user.Role.FacilityType(),
		Role:      user.Role,
		Email:     user.Email,
		Phone:     user.Phone,
		Address:   user.Address,
		Latitude:  user.Latitude,
		Longitude: user.Longitude,
	}

	if distanceKm != nil {
		rounded := math.Round(*distanceKm*10) / 10
		dto.DistanceKm = &rounded
	}

	return dto
}
