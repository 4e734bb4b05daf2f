package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/repository"
	"github.com/tailaid/tailaid-api/internal/testutil"
	"gorm.io/gorm"
)

func TestAlertRepository_ListFiltersAndOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	oldest := testutil.CreateTestAlert(t, db, "ada@example.com", now.Add(-2*time.Hour))
	newest := testutil.CreateTestAlert(t, db, "ada@example.com", now)
	other := testutil.CreateTestAlert(t, db, "bob@example.com", now.Add(-time.Hour))

	all, err := repo.List(ctx, domain.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID)
	assert.Equal(t, other.ID, all[1].ID)
	assert.Equal(t, oldest.ID, all[2].ID)

	mine, err := repo.List(ctx, domain.AlertFilter{UserID: "ada@example.com"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = repo.Accept(ctx, other.ID, domain.AlertAcceptance{AcceptedBy: "vet", AcceptedAt: now})
	require.NoError(t, err)

	accepted, err := repo.List(ctx, domain.AlertFilter{Status: domain.AlertStatusAccepted})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, other.ID, accepted[0].ID)
}

func TestAlertRepository_UpdateMergesFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	ctx := context.Background()

	alert := testutil.CreateTestAlert(t, db, "ada@example.com", time.Now().Add(-time.Minute))

	eta := "20 min"
	updated, err := repo.Update(ctx, alert.ID, domain.AlertChanges{ETA: &eta})
	require.NoError(t, err)

	assert.Equal(t, "20 min", updated.ETA)
	assert.Equal(t, alert.Description, updated.Description)
	assert.Equal(t, domain.AlertStatusPending, updated.Status)
	assert.False(t, updated.UpdatedAt.Before(alert.UpdatedAt))
}

func TestAlertRepository_UpdateUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)

	note := "hello"
	_, err := repo.Update(context.Background(), uuid.New(), domain.AlertChanges{CustomNote: &note})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAlertRepository_AcceptOnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	ctx := context.Background()

	alert := testutil.CreateTestAlert(t, db, "ada@example.com", time.Now())
	acceptance := domain.AlertAcceptance{
		AcceptedBy:     "vet@example.com",
		AcceptedByName: "City Vet",
		AcceptedByRole: domain.RoleHospital.Label(),
		AcceptedAt:     time.Now(),
	}

	ok, err := repo.Accept(ctx, alert.ID, acceptance)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Accept(ctx, alert.ID, domain.AlertAcceptance{AcceptedBy: "rescue@example.com", AcceptedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusAccepted, got.Status)
	assert.Equal(t, "vet@example.com", got.AcceptedBy)
	assert.Equal(t, "Hospital / Vet", got.AcceptedByRole)
	assert.NotNil(t, got.AcceptedAt)

	ok, err = repo.Accept(ctx, uuid.New(), acceptance)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAlertRepository_MarkEscalated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	stale := testutil.CreateTestAlert(t, db, "ada@example.com", now.Add(-30*time.Minute))
	fresh := testutil.CreateTestAlert(t, db, "ada@example.com", now.Add(-time.Minute))

	n, err := repo.MarkEscalated(ctx, now.Add(-15*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.EscalatedAt)

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EscalatedAt)

	n, err = repo.MarkEscalated(ctx, now.Add(-15*time.Minute), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAlertRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAlertRepository(db)
	ctx := context.Background()

	alert := testutil.CreateTestAlert(t, db, "ada@example.com", time.Now())

	require.NoError(t, repo.Delete(ctx, alert.ID))

	_, err := repo.GetByID(ctx, alert.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, alert.ID), gorm.ErrRecordNotFound)
}
