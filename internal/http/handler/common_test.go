package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrAlertNotFound, http.StatusNotFound},
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrPhotoNotFound, http.StatusNotFound},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrAlertAlreadyAccepted, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrPermissionDenied, http.StatusForbidden},
		{service.ErrPhotoTooLarge, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("%w: userId is required", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidStatus, http.StatusBadRequest},
		{service.ErrInvalidPhoto, http.StatusBadRequest},
		{service.ErrInvalidFacilityType, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			respondServiceError(rr, zap.NewNop(), tt.err, "fallback")
			assert.Equal(t, tt.want, rr.Code)

			var body domain.APIError
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Status)
			assert.Equal(t, tt.err.Error(), body.Detail)
		})
	}
}

func TestRespondServiceError_UnexpectedIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rr := httptest.NewRecorder()

	respondServiceError(rr, zap.New(core), errors.New("connection reset"), "Failed to list alerts")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection reset")
	assert.Equal(t, 1, logs.FilterMessage("Failed to list alerts").Len())
}

func TestDecodeAndValidate(t *testing.T) {
	decode := func(body string, limit int64) (*httptest.ResponseRecorder, bool) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dst domain.LoginRequest
		return rr, decodeAndValidate(rr, req, &dst, limit)
	}

	rr, ok := decode(`{"email":"kari@example.com","password":"x"}`, defaultMaxBodyBytes)
	assert.True(t, ok)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, ok = decode("", defaultMaxBodyBytes)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Request body is required")

	rr, ok = decode(`{"email":`, defaultMaxBodyBytes)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, ok = decode(`{"email":"kari@example.com","password":"`+strings.Repeat("x", 64)+`"}`, 16)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	rr, ok = decode(`{"email":"nope"}`, defaultMaxBodyBytes)
	assert.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body domain.APIError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "Must be a valid email address", body.Errors["email"])
	assert.Equal(t, "password is required", body.Errors["password"])
}

func TestParseCoordinate(t *testing.T) {
	v, ok, err := parseCoordinate("59.91", 90)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 59.91, v, 1e-9)

	_, ok, err = parseCoordinate("", 90)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = parseCoordinate("91", 90)
	assert.Error(t, err)

	_, _, err = parseCoordinate("north", 90)
	assert.Error(t, err)
}
