package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel holds the id and audit timestamps shared by every collection
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an id so inserts work the same on postgres and sqlite
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// UserRole is the account type chosen at signup
type UserRole string

const (
	RoleUser         UserRole = "user"
	RoleHospital     UserRole = "hospital"
	RoleRescueCenter UserRole = "rescue_center"
	// RoleAdmin is only held by the API key system user
	RoleAdmin UserRole = "admin"
)

// FacilityRoles are the roles that receive and accept alerts
func FacilityRoles() []UserRole {
	return []UserRole{RoleHospital, RoleRescueCenter}
}

// ParseUserRole normalizes a signup role. An empty role means a regular user and
// "rescue" is accepted as an alias of rescue_center.
func ParseUserRole(s string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user":
		return RoleUser, true
	case "hospital":
		return RoleHospital, true
	case "rescue", "rescue_center":
		return RoleRescueCenter, true
	default:
		return "", false
	}
}

// ParseFacilityType maps the facility filter values used by clients to a role
func ParseFacilityType(s string) (UserRole, bool) {
	switch strings.TrimSpace(s) {
	case "Hospital", "hospital":
		return RoleHospital, true
	case "Rescue Center", "rescue_center", "rescue":
		return RoleRescueCenter, true
	default:
		return "", false
	}
}

// IsFacility reports whether the role belongs to a hospital or rescue center
func (r UserRole) IsFacility() bool {
	return r == RoleHospital || r == RoleRescueCenter
}

// Label is the human-readable role shown on accepted alerts
func (r UserRole) Label() string {
	switch r {
	case RoleHospital:
		return "Hospital / Vet"
	case RoleRescueCenter:
		return "Rescue Center"
	case RoleAdmin:
		return "Administrator"
	default:
		return "User"
	}
}

// FacilityType is the short display type used by the facility directory
func (r UserRole) FacilityType() string {
	switch r {
	case RoleHospital:
		return "Hospital"
	case RoleRescueCenter:
		return "Rescue Center"
	default:
		return "Facility"
	}
}

// User is a reporter, hospital or rescue center account
type User struct {
	BaseModel
	Name         string   `gorm:"type:varchar(200);not null"`
	Email        string   `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string   `gorm:"type:varchar(255);not null;column:password_hash"`
	Phone        string   `gorm:"type:varchar(50)"`
	Role         UserRole `gorm:"type:varchar(50);not null;default:'user';index"`
	Address      string   `gorm:"type:varchar(500)"`
	Latitude     *float64
	Longitude    *float64
}

// HasLocation reports whether both coordinates are set
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// AlertType classifies an emergency
type AlertType string

const (
	AlertTypeInjury       AlertType = "injury"
	AlertTypeMedical      AlertType = "medical"
	AlertTypeMistreatment AlertType = "mistreatment"
)

// AlertStatus tracks an alert from report to resolution
type AlertStatus string

const (
	AlertStatusPending  AlertStatus = "pending"
	AlertStatusAccepted AlertStatus = "accepted"
	AlertStatusResolved AlertStatus = "resolved"
)

// IsValidAlertStatus reports whether s is a known status
func IsValidAlertStatus(s string) bool {
	switch AlertStatus(s) {
	case AlertStatusPending, AlertStatusAccepted, AlertStatusResolved:
		return true
	}
	return false
}

// Alert is an injured-animal emergency report
type Alert struct {
	BaseModel
	// UserID is the reporter; older clients send an email here instead of an id
	UserID           string      `gorm:"type:varchar(255);not null;index"`
	Type             AlertType   `gorm:"type:varchar(50);not null;default:'injury'"`
	Description      string      `gorm:"type:text;not null"`
	PhotoURL         string      `gorm:"type:varchar(2000);column:photo_url"`
	PhotoPath        string      `gorm:"type:varchar(500);column:photo_path"`
	PhotoContentType string      `gorm:"type:varchar(100);column:photo_content_type"`
	Status           AlertStatus `gorm:"type:varchar(50);not null;default:'pending';index"`
	AcceptedBy       string      `gorm:"type:varchar(255);column:accepted_by"`
	AcceptedByName   string      `gorm:"type:varchar(200);column:accepted_by_name"`
	AcceptedByRole   string      `gorm:"type:varchar(100);column:accepted_by_role"`
	AcceptedAt       *time.Time  `gorm:"column:accepted_at"`
	CustomNote       string      `gorm:"type:text;column:custom_note"`
	ETA              string      `gorm:"type:varchar(100);column:eta"`
	Instructions     string      `gorm:"type:text"`
	EscalatedAt      *time.Time  `gorm:"column:escalated_at;index"`
	// Timestamp is when the emergency was reported
	Timestamp time.Time `gorm:"column:reported_at;not null;index"`
}

// HasStoredPhoto reports whether the photo lives in our storage backend
func (a *Alert) HasStoredPhoto() bool {
	return a.PhotoPath != ""
}

// AlertFilter narrows alert listings; empty fields match everything
type AlertFilter struct {
	UserID string
	Status AlertStatus
}

// AlertChanges is a partial update; nil fields are left untouched
type AlertChanges struct {
	Type           *AlertType
	Description    *string
	Status         *AlertStatus
	AcceptedBy     *string
	AcceptedByName *string
	AcceptedByRole *string
	AcceptedAt     *time.Time
	CustomNote     *string
	ETA            *string
	Instructions   *string
}

// IsEmpty reports whether no field is set
func (c AlertChanges) IsEmpty() bool {
	return c.Type == nil && c.Description == nil && c.Status == nil &&
		c.AcceptedBy == nil && c.AcceptedByName == nil && c.AcceptedByRole == nil &&
		c.AcceptedAt == nil && c.CustomNote == nil && c.ETA == nil && c.Instructions == nil
}

// AlertAcceptance records which facility took an alert
type AlertAcceptance struct {
	AcceptedBy     string
	AcceptedByName string
	AcceptedByRole string
	AcceptedAt     time.Time
}

// Note is a status message a facility posts on an alert
type Note struct {
	BaseModel
	AlertID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	AuthorID     *uuid.UUID `gorm:"type:uuid"`
	Text         string     `gorm:"type:text"`
	ETA          string     `gorm:"type:varchar(100);column:eta"`
	Instructions string     `gorm:"type:text"`
}
