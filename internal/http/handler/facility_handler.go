package handler

import (
	"net/http"
	"strconv"

	"github.com/tailaid/tailaid-api/internal/service"
	"go.uber.org/zap"
)

type FacilityHandler struct {
	facilityService *service.FacilityService
	logger          *zap.Logger
}

func NewFacilityHandler(facilityService *service.FacilityService, logger *zap.Logger) *FacilityHandler {
	return &FacilityHandler{
		facilityService: facilityService,
		logger:          logger,
	}
}

// List godoc
// @Summary List hospitals and rescue centers
// @Description With lat and lng, results carry distanceKm and are ordered nearest first
// @Tags Facilities
// @Produce json
// @Param type query string false "Facility type" Enums(Hospital, Rescue Center, hospital, rescue_center, rescue)
// @Param q query string false "Name contains (case-insensitive)"
// @Param lat query number false "Origin latitude"
// @Param lng query number false "Origin longitude"
// @Success 200 {array} domain.FacilityDTO
// @Failure 400 {object} domain.APIError
// @Router /facilities [get]
func (h *FacilityHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, latOK, err := parseCoordinate(query.Get("lat"), 90)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lat must be a number between -90 and 90")
		return
	}
	lng, lngOK, err := parseCoordinate(query.Get("lng"), 180)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lng must be a number between -180 and 180")
		return
	}
	if latOK != lngOK {
		respondWithError(w, http.StatusBadRequest, "lat and lng must be given together")
		return
	}

	q := service.FacilityQuery{
		Type: query.Get("type"),
		Name: query.Get("q"),
	}
	if latOK {
		q.Latitude = &lat
		q.Longitude = &lng
	}

	facilities, err := h.facilityService.List(r.Context(), q)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list facilities")
		return
	}

	respondJSON(w, http.StatusOK, facilities)
}

// parseCoordinate parses an optional coordinate bounded by ±limit
func parseCoordinate(raw string, limit float64) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	if v < -limit || v > limit {
		return 0, false, strconv.ErrRange
	}
	return v, true, nil
}
