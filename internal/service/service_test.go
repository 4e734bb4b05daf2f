package service_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/repository"
	"github.com/tailaid/tailaid-api/internal/service"
	"github.com/tailaid/tailaid-api/internal/storage"
	"github.com/tailaid/tailaid-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
}

type fixture struct {
	db         *gorm.DB
	store      *storage.MemoryStorage
	tokens     *auth.TokenManager
	users      *service.UserService
	alerts     *service.AlertService
	notes      *service.NoteService
	facilities *service.FacilityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	tokens, err := auth.NewTokenManager("test-secret", "tailaid-test", time.Hour)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	store := storage.NewMemoryStorage()

	return &fixture{
		db:         db,
		store:      store,
		tokens:     tokens,
		users:      service.NewUserService(userRepo, tokens, 4, logger),
		alerts:     service.NewAlertService(db, alertRepo, noteRepo, store, 1<<20, logger),
		notes:      service.NewNoteService(db, noteRepo, alertRepo, logger),
		facilities: service.NewFacilityService(userRepo, logger),
	}
}

func asUser(ctx context.Context, user *domain.User) context.Context {
	return auth.WithUserContext(ctx, &auth.UserContext{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		AuthType: auth.AuthTypeJWT,
	})
}

func asAdmin(ctx context.Context) context.Context {
	return auth.WithUserContext(ctx, &auth.UserContext{
		UserID:   auth.SystemUserID,
		Name:     "System",
		Role:     domain.RoleAdmin,
		AuthType: auth.AuthTypeAPIKey,
	})
}
