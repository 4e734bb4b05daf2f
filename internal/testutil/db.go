// Package testutil provides in-memory stores and fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tailaid/tailaid-api/internal/database"
	"github.com/tailaid/tailaid-api/internal/domain"
	"gorm.io/gorm"
)

// SetupTestDB opens an isolated in-memory store with the schema applied.
// Each call gets its own database, closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := database.OpenMemory("test-" + uuid.NewString())
	require.NoError(t, err, "failed to open in-memory test database")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn.DB
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// CreateTestUser inserts a user with the given role. The password hash is a
// placeholder and will not verify.
func CreateTestUser(t *testing.T, db *gorm.DB, name, email string, role domain.UserRole) *domain.User {
	t.Helper()

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Phone:        "555-0100",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestFacility inserts a hospital or rescue center, optionally located
func CreateTestFacility(t *testing.T, db *gorm.DB, name string, role domain.UserRole, lat, lng *float64) *domain.User {
	t.Helper()

	user := &domain.User{
		Name:         name,
		Email:        uuid.NewString() + "@facility.example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
		Address:      name + " street 1",
		Latitude:     lat,
		Longitude:    lng,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestAlert inserts a pending injury alert reported at the given time
func CreateTestAlert(t *testing.T, db *gorm.DB, userID string, reportedAt time.Time) *domain.Alert {
	t.Helper()

	alert := &domain.Alert{
		UserID:      userID,
		Type:        domain.AlertTypeInjury,
		Description: "Injured dog near the park",
		Status:      domain.AlertStatusPending,
		Timestamp:   reportedAt.UTC(),
	}
	require.NoError(t, db.Create(alert).Error)
	return alert
}
