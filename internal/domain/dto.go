package domain

import "github.com/google/uuid"

// UserDTO is the public view of a user; the password hash never leaves the service
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      UserRole  `json:"role"`
	RoleLabel string    `json:"roleLabel"`
	Address   string    `json:"address,omitempty"`
	Latitude  *float64  `json:"lat,omitempty"`
	Longitude *float64  `json:"lng,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	User      UserDTO `json:"user"`
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
}

type AlertDTO struct {
	ID             uuid.UUID   `json:"id"`
	UserID         string      `json:"userId"`
	Type           AlertType   `json:"type"`
	Description    string      `json:"description"`
	Photo          string      `json:"photo,omitempty"`
	Status         AlertStatus `json:"status"`
	AcceptedBy     string      `json:"acceptedBy,omitempty"`
	AcceptedByName string      `json:"acceptedByName,omitempty"`
	AcceptedByRole string      `json:"acceptedByRole,omitempty"`
	AcceptedAt     string      `json:"acceptedAt,omitempty"`
	CustomNote     string      `json:"customNote,omitempty"`
	ETA            string      `json:"eta,omitempty"`
	Instructions   string      `json:"instructions,omitempty"`
	Escalated      bool        `json:"escalated"`
	EscalatedAt    string      `json:"escalatedAt,omitempty"`
	Timestamp      string      `json:"timestamp"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt"`
}

type NoteDTO struct {
	ID           uuid.UUID  `json:"id"`
	AlertID      uuid.UUID  `json:"alertId"`
	AuthorID     *uuid.UUID `json:"authorId,omitempty"`
	Text         string     `json:"text"`
	ETA          string     `json:"eta,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	CreatedAt    string     `json:"createdAt"`
}

// FacilityDTO is a hospital or rescue center in the directory
type FacilityDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Role       UserRole  `json:"role"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	Latitude   *float64  `json:"lat,omitempty"`
	Longitude  *float64  `json:"lng,omitempty"`
	DistanceKm *float64  `json:"distanceKm,omitempty"`
}

// SignupRequest creates an account
type SignupRequest struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,min=6,max=72"`
	Phone     string   `json:"phone" validate:"required,max=50"`
	Role      string   `json:"role" validate:"omitempty,oneof=user hospital rescue rescue_center"`
	Address   string   `json:"address" validate:"max=500"`
	Latitude  *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateAlertRequest reports an emergency. Photo is a data URL or an http(s) URL.
type CreateAlertRequest struct {
	UserID      string `json:"userId" validate:"max=255"`
	Type        string `json:"type" validate:"omitempty,oneof=injury medical mistreatment"`
	Description string `json:"description" validate:"required,max=5000"`
	Photo       string `json:"photo"`
	Status      string `json:"status" validate:"omitempty,oneof=pending"`
}

// UpdateAlertRequest is a partial update; omitted fields are left untouched
type UpdateAlertRequest struct {
	Type           *string `json:"type" validate:"omitempty,oneof=injury medical mistreatment"`
	Description    *string `json:"description" validate:"omitempty,max=5000"`
	Status         *string `json:"status" validate:"omitempty,oneof=pending accepted resolved"`
	AcceptedBy     *string `json:"acceptedBy" validate:"omitempty,max=255"`
	AcceptedByName *string `json:"acceptedByName" validate:"omitempty,max=200"`
	AcceptedByRole *string `json:"acceptedByRole" validate:"omitempty,max=100"`
	CustomNote     *string `json:"customNote" validate:"omitempty,max=2000"`
	ETA            *string `json:"eta" validate:"omitempty,max=100"`
	Instructions   *string `json:"instructions" validate:"omitempty,max=2000"`
}

type CreateNoteRequest struct {
	AlertID      string `json:"alertId" validate:"required"`
	Text         string `json:"text" validate:"required_without_all=ETA Instructions,max=2000"`
	ETA          string `json:"eta" validate:"max=100"`
	Instructions string `json:"instructions" validate:"max=2000"`
}

// SuccessResponse acknowledges an operation without a resource body
type SuccessResponse struct {
	Success bool `json:"success"`
}
