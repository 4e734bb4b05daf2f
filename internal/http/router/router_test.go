package router_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/config"
	"github.com/tailaid/tailaid-api/internal/database"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/http/handler"
	"github.com/tailaid/tailaid-api/internal/http/middleware"
	"github.com/tailaid/tailaid-api/internal/http/router"
	"github.com/tailaid/tailaid-api/internal/repository"
	"github.com/tailaid/tailaid-api/internal/service"
	"github.com/tailaid/tailaid-api/internal/storage"
	"github.com/tailaid/tailaid-api/internal/testutil"
	"go.uber.org/zap"
)

const testAPIKey = "test-api-key"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "TailAid API", Environment: "development"},
		Server: config.ServerConfig{RequestTimeout: 10},
		CORS: config.CORSConfig{
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Security: config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
		RateLimit: config.RateLimitConfig{
			Enabled:                true,
			RequestsPerMinute:      1000,
			LoginRequestsPerMinute: 1000,
		},
	}
}

func setupServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := testConfig()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)

	tokens, err := auth.NewTokenManager("router-test-secret", "tailaid-test", time.Hour)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	store := storage.NewMemoryStorage()
	const maxPhotoBytes = 1 << 20

	userService := service.NewUserService(userRepo, tokens, 4, logger)
	alertService := service.NewAlertService(db, alertRepo, noteRepo, store, maxPhotoBytes, logger)
	noteService := service.NewNoteService(db, noteRepo, alertRepo, logger)
	facilityService := service.NewFacilityService(userRepo, logger)

	rt := router.NewRouter(
		cfg,
		logger,
		&database.Connection{DB: db, Driver: config.DriverMemory},
		auth.NewMiddleware(tokens, testAPIKey, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		router.Handlers{
			User:     handler.NewUserHandler(userService, logger),
			Auth:     handler.NewAuthHandler(userService, logger),
			Alert:    handler.NewAlertHandler(alertService, maxPhotoBytes, logger),
			Note:     handler.NewNoteHandler(noteService, logger),
			Facility: handler.NewFacilityHandler(facilityService, logger),
		},
	)
	return rt.Setup()
}

type request struct {
	method string
	path   string
	body   interface{}
	token  string
	apiKey string
}

func do(t *testing.T, h http.Handler, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.apiKey != "" {
		r.Header.Set("x-api-key", req.apiKey)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func signup(t *testing.T, h http.Handler, name, email, role string) domain.AuthResponse {
	t.Helper()
	rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/users", body: map[string]interface{}{
		"name":     name,
		"email":    email,
		"password": "secret123",
		"phone":    "+47 900 00 000",
		"role":     role,
		"lat":      59.91,
		"lng":      10.75,
	}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[domain.AuthResponse](t, rr)
}

func createAlert(t *testing.T, h http.Handler, token string, body map[string]interface{}) domain.AlertDTO {
	t.Helper()
	rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/alerts", body: body, token: token})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[domain.AlertDTO](t, rr)
}

func TestHealth(t *testing.T) {
	h := setupServer(t)

	rr := do(t, h, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))

	rr = do(t, h, request{method: http.MethodGet, path: "/health/db"})
	require.Equal(t, http.StatusOK, rr.Code)
	db := decode[map[string]interface{}](t, rr)
	assert.Equal(t, "healthy", db["status"])
	assert.Equal(t, config.DriverMemory, db["driver"])

	rr = do(t, h, request{method: http.MethodGet, path: "/health/ready"})
	require.Equal(t, http.StatusOK, rr.Code)
	ready := decode[map[string]interface{}](t, rr)
	assert.Equal(t, "healthy", ready["status"])
}

func TestUnknownRoute(t *testing.T) {
	h := setupServer(t)

	rr := do(t, h, request{method: http.MethodGet, path: "/api/v1/nope"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, domain.ErrorTypeNotFound, decode[domain.APIError](t, rr).Type)
}

func TestSignupAndLogin(t *testing.T) {
	h := setupServer(t)

	res := signup(t, h, "Kari Nordmann", "Kari@Example.com", "")
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "kari@example.com", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.NotContains(t, do(t, h, request{method: http.MethodGet, path: "/api/v1/users?email=kari@example.com"}).Body.String(), "password")

	t.Run("duplicate email", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/users", body: map[string]string{
			"name": "Other", "email": "kari@example.com", "password": "secret123", "phone": "1",
		}})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("validation errors name fields", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/users", body: map[string]string{
			"email": "not-an-email", "password": "123",
		}})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		apiErr := decode[domain.APIError](t, rr)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "email")
		assert.Contains(t, apiErr.Errors, "password")
		assert.Contains(t, apiErr.Errors, "name")
	})

	t.Run("password over bcrypt byte limit", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/users", body: map[string]string{
			"name": "Åse", "email": "ase@example.com", "password": strings.Repeat("é", 40), "phone": "1",
		}})
		assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	})

	t.Run("malformed json", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/users", body: "{not json"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("login", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
			"email": "kari@example.com", "password": "secret123",
		}})
		require.Equal(t, http.StatusOK, rr.Code)
		login := decode[domain.AuthResponse](t, rr)

		rr = do(t, h, request{method: http.MethodGet, path: "/api/v1/auth/me", token: login.Token})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, res.User.ID, decode[domain.UserDTO](t, rr).ID)
	})

	t.Run("login wrong password", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
			"email": "kari@example.com", "password": "wrong-password",
		}})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("me without token", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodGet, path: "/api/v1/auth/me"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestGetUserByEmail(t *testing.T) {
	h := setupServer(t)
	signup(t, h, "Kari Nordmann", "kari@example.com", "")

	rr := do(t, h, request{method: http.MethodGet, path: "/api/v1/users?email=KARI@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Kari Nordmann", decode[domain.UserDTO](t, rr).Name)

	assert.Equal(t, http.StatusBadRequest, do(t, h, request{method: http.MethodGet, path: "/api/v1/users"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, request{method: http.MethodGet, path: "/api/v1/users?email=nobody@example.com"}).Code)
}

func TestAlertLifecycle(t *testing.T) {
	h := setupServer(t)

	reporter := signup(t, h, "Kari Nordmann", "kari@example.com", "user")
	hospital := signup(t, h, "Oslo Dyreklinikk", "klinikk@example.com", "hospital")
	rescue := signup(t, h, "Dyrevernet", "dyrevern@example.com", "rescue")

	alert := createAlert(t, h, reporter.Token, map[string]interface{}{
		"description": "Injured cat by the road",
	})
	assert.Equal(t, reporter.User.ID.String(), alert.UserID)
	assert.Equal(t, domain.AlertTypeInjury, alert.Type)
	assert.Equal(t, domain.AlertStatusPending, alert.Status)
	assert.NotEmpty(t, alert.Timestamp)

	path := "/api/v1/alerts/" + alert.ID.String()

	t.Run("list and get", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodGet, path: "/api/v1/alerts?status=pending"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]domain.AlertDTO](t, rr), 1)

		rr = do(t, h, request{method: http.MethodGet, path: "/api/v1/alerts?userId=" + reporter.User.ID.String()})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]domain.AlertDTO](t, rr), 1)

		assert.Equal(t, http.StatusBadRequest, do(t, h, request{method: http.MethodGet, path: "/api/v1/alerts?status=lost"}).Code)
		assert.Equal(t, http.StatusOK, do(t, h, request{method: http.MethodGet, path: path}).Code)
		assert.Equal(t, http.StatusNotFound, do(t, h, request{method: http.MethodGet, path: "/api/v1/alerts/not-a-uuid"}).Code)
	})

	t.Run("partial update", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPut, path: path, body: map[string]string{"type": "medical"}})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		updated := decode[domain.AlertDTO](t, rr)
		assert.Equal(t, domain.AlertTypeMedical, updated.Type)
		assert.Equal(t, "Injured cat by the road", updated.Description)
	})

	t.Run("anonymous update to accepted needs a facility", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPut, path: path, body: map[string]string{"status": "accepted"}})
		assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

		rr = do(t, h, request{method: http.MethodGet, path: path})
		assert.Equal(t, domain.AlertStatusPending, decode[domain.AlertDTO](t, rr).Status)
	})

	t.Run("regular users cannot accept", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: path + "/accept", token: reporter.Token})
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = do(t, h, request{method: http.MethodPost, path: path + "/accept"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("facility accepts once", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: path + "/accept", token: hospital.Token})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		accepted := decode[domain.AlertDTO](t, rr)
		assert.Equal(t, domain.AlertStatusAccepted, accepted.Status)
		assert.Equal(t, "Oslo Dyreklinikk", accepted.AcceptedByName)
		assert.Equal(t, "Hospital / Vet", accepted.AcceptedByRole)
		assert.NotEmpty(t, accepted.AcceptedAt)

		rr = do(t, h, request{method: http.MethodPost, path: path + "/accept", token: rescue.Token})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("notes", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/notes", token: hospital.Token, body: map[string]string{
			"alertId":      alert.ID.String(),
			"text":         "On our way",
			"eta":          "15 minutes",
			"instructions": "Keep the cat warm",
		}})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		note := decode[domain.NoteDTO](t, rr)
		require.NotNil(t, note.AuthorID)
		assert.Equal(t, hospital.User.ID, *note.AuthorID)

		rr = do(t, h, request{method: http.MethodGet, path: "/api/v1/notes?alertId=" + alert.ID.String()})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]domain.NoteDTO](t, rr), 1)

		rr = do(t, h, request{method: http.MethodGet, path: path})
		updated := decode[domain.AlertDTO](t, rr)
		assert.Equal(t, "On our way", updated.CustomNote)
		assert.Equal(t, "15 minutes", updated.ETA)
		assert.Equal(t, "Keep the cat warm", updated.Instructions)

		assert.Equal(t, http.StatusBadRequest, do(t, h, request{method: http.MethodGet, path: "/api/v1/notes"}).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, request{method: http.MethodPost, path: "/api/v1/notes", body: map[string]string{
			"alertId": alert.ID.String(),
		}}).Code)
	})

	t.Run("only the owner deletes", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(t, h, request{method: http.MethodDelete, path: path}).Code)
		assert.Equal(t, http.StatusForbidden, do(t, h, request{method: http.MethodDelete, path: path, token: hospital.Token}).Code)
		assert.Equal(t, http.StatusNoContent, do(t, h, request{method: http.MethodDelete, path: path, token: reporter.Token}).Code)
		assert.Equal(t, http.StatusNotFound, do(t, h, request{method: http.MethodGet, path: path}).Code)

		rr := do(t, h, request{method: http.MethodGet, path: "/api/v1/notes?alertId=" + alert.ID.String()})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode[[]domain.NoteDTO](t, rr))
	})
}

func TestCreateAlert_AnonymousNeedsUserID(t *testing.T) {
	h := setupServer(t)

	rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/alerts", body: map[string]string{
		"description": "Dog with a hurt paw",
	}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	alert := createAlert(t, h, "", map[string]interface{}{
		"userId":      "guest@example.com",
		"description": "Dog with a hurt paw",
		"type":        "mistreatment",
	})
	assert.Equal(t, "guest@example.com", alert.UserID)
	assert.Equal(t, domain.AlertTypeMistreatment, alert.Type)
}

func TestAlertPhoto(t *testing.T) {
	h := setupServer(t)
	reporter := signup(t, h, "Kari Nordmann", "kari@example.com", "")

	alert := createAlert(t, h, reporter.Token, map[string]interface{}{
		"description": "Bird with a broken wing",
		"photo":       "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader),
	})
	photoPath := "/api/v1/alerts/" + alert.ID.String() + "/photo"
	assert.Equal(t, photoPath, alert.Photo)

	rr := do(t, h, request{method: http.MethodGet, path: photoPath})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rr.Body.Bytes())

	t.Run("linked photos are kept as urls", func(t *testing.T) {
		linked := createAlert(t, h, reporter.Token, map[string]interface{}{
			"description": "Fox caught in a fence",
			"photo":       "https://images.example.com/fox.jpg",
		})
		assert.Equal(t, "https://images.example.com/fox.jpg", linked.Photo)
		assert.Equal(t, http.StatusNotFound, do(t, h, request{method: http.MethodGet, path: "/api/v1/alerts/" + linked.ID.String() + "/photo"}).Code)
	})

	t.Run("non image data is rejected", func(t *testing.T) {
		rr := do(t, h, request{method: http.MethodPost, path: "/api/v1/alerts", token: reporter.Token, body: map[string]string{
			"description": "Not a picture",
			"photo":       "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text, not an image")),
		}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAdminAPIKey(t *testing.T) {
	h := setupServer(t)
	reporter := signup(t, h, "Kari Nordmann", "kari@example.com", "")
	alert := createAlert(t, h, reporter.Token, map[string]interface{}{"description": "Stray dog limping"})

	rr := do(t, h, request{method: http.MethodGet, path: "/api/v1/auth/me", apiKey: testAPIKey})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.RoleAdmin, decode[domain.UserDTO](t, rr).Role)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, request{method: http.MethodGet, path: "/api/v1/auth/me", apiKey: "wrong"}).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, request{method: http.MethodDelete, path: "/api/v1/alerts/" + alert.ID.String(), apiKey: testAPIKey}).Code)
}

func TestFacilities(t *testing.T) {
	h := setupServer(t)
	signup(t, h, "Kari Nordmann", "kari@example.com", "")
	signup(t, h, "Oslo Dyreklinikk", "klinikk@example.com", "hospital")
	signup(t, h, "Dyrevernet", "dyrevern@example.com", "rescue_center")

	rr := do(t, h, request{method: http.MethodGet, path: "/api/v1/facilities"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.FacilityDTO](t, rr), 2)

	rr = do(t, h, request{method: http.MethodGet, path: "/api/v1/facilities?type=Hospital"})
	require.Equal(t, http.StatusOK, rr.Code)
	hospitals := decode[[]domain.FacilityDTO](t, rr)
	require.Len(t, hospitals, 1)
	assert.Equal(t, "Hospital", hospitals[0].Type)

	rr = do(t, h, request{method: http.MethodGet, path: "/api/v1/facilities?q=dyrev&lat=59.91&lng=10.75"})
	require.Equal(t, http.StatusOK, rr.Code)
	near := decode[[]domain.FacilityDTO](t, rr)
	require.Len(t, near, 1)
	require.NotNil(t, near[0].DistanceKm)
	assert.InDelta(t, 0, *near[0].DistanceKm, 0.05)

	assert.Equal(t, http.StatusBadRequest, do(t, h, request{method: http.MethodGet, path: "/api/v1/facilities?type=zoo"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, request{method: http.MethodGet, path: "/api/v1/facilities?lat=59.91"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, request{method: http.MethodGet, path: "/api/v1/facilities?lat=abc&lng=1"}).Code)
}
