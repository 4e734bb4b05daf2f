package handler

import (
	"net/http"

	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/service"
	"go.uber.org/zap"
)

type NoteHandler struct {
	noteService *service.NoteService
	logger      *zap.Logger
}

func NewNoteHandler(noteService *service.NoteService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		logger:      logger,
	}
}

// List godoc
// @Summary List notes on an alert
// @Tags Notes
// @Produce json
// @Param alertId query string true "Alert ID"
// @Success 200 {array} domain.NoteDTO
// @Failure 400 {object} domain.APIError
// @Router /notes [get]
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteService.ListByAlert(r.Context(), r.URL.Query().Get("alertId"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list notes")
		return
	}

	respondJSON(w, http.StatusOK, notes)
}

// Create godoc
// @Summary Add a note to an alert
// @Description Also copies the note's text, eta and instructions onto the alert
// @Tags Notes
// @Accept json
// @Produce json
// @Param request body domain.CreateNoteRequest true "Note"
// @Success 201 {object} domain.NoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /notes [post]
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if !decodeAndValidate(w, r, &req, defaultMaxBodyBytes) {
		return
	}

	note, err := h.noteService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create note")
		return
	}

	respondJSON(w, http.StatusCreated, note)
}
