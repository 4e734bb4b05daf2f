package handler

import (
	"io"
	"net/http"

	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/service"
	"go.uber.org/zap"
)

type AlertHandler struct {
	alertService *service.AlertService
	// maxBodyBytes bounds create requests, which may carry a base64 photo
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewAlertHandler sizes the create body limit to fit a base64 photo of maxPhotoBytes
func NewAlertHandler(alertService *service.AlertService, maxPhotoBytes int64, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		maxBodyBytes: maxPhotoBytes*4/3 + defaultMaxBodyBytes,
		logger:       logger,
	}
}

// List godoc
// @Summary List alerts
// @Description Alerts ordered by report time, newest first
// @Tags Alerts
// @Produce json
// @Param userId query string false "Reporter id or email"
// @Param status query string false "Status" Enums(pending, accepted, resolved)
// @Success 200 {array} domain.AlertDTO
// @Failure 400 {object} domain.APIError
// @Router /alerts [get]
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	alerts, err := h.alertService.List(r.Context(), q.Get("userId"), q.Get("status"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list alerts")
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

// Create godoc
// @Summary Report an emergency
// @Description Creates a pending alert. The photo may be an image data URL or an http(s) link.
// @Tags Alerts
// @Accept json
// @Produce json
// @Param request body domain.CreateAlertRequest true "Alert"
// @Success 201 {object} domain.AlertDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Router /alerts [post]
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAlertRequest
	if !decodeAndValidate(w, r, &req, h.maxBodyBytes) {
		return
	}

	alert, err := h.alertService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create alert")
		return
	}

	respondJSON(w, http.StatusCreated, alert)
}

// GetByID godoc
// @Summary Get an alert
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} domain.AlertDTO
// @Failure 404 {object} domain.APIError
// @Router /alerts/{id} [get]
func (h *AlertHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	alert, err := h.alertService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get alert")
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// Update godoc
// @Summary Update an alert
// @Description Partial update; omitted fields are left unchanged
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param request body domain.UpdateAlertRequest true "Fields to change"
// @Success 200 {object} domain.AlertDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /alerts/{id} [put]
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateAlertRequest
	if !decodeAndValidate(w, r, &req, defaultMaxBodyBytes) {
		return
	}

	alert, err := h.alertService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update alert")
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// Delete godoc
// @Summary Delete an alert
// @Description Removes the alert, its notes and photo. Reporter or admin only.
// @Tags Alerts
// @Param id path string true "Alert ID"
// @Success 204
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /alerts/{id} [delete]
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	if err := h.alertService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete alert")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Accept godoc
// @Summary Accept an alert
// @Description A hospital or rescue center takes a pending alert. Only the first acceptance wins.
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} domain.AlertDTO
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Already accepted"
// @Security BearerAuth
// @Router /alerts/{id}/accept [post]
func (h *AlertHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	alert, err := h.alertService.Accept(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to accept alert")
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// Photo godoc
// @Summary Download an alert photo
// @Tags Alerts
// @Produce image/png,image/jpeg,image/gif,image/webp
// @Param id path string true "Alert ID"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Router /alerts/{id}/photo [get]
func (h *AlertHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	rc, contentType, err := h.alertService.OpenPhoto(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load photo")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("photo stream interrupted", zap.String("alert_id", id.String()), zap.Error(err))
	}
}
