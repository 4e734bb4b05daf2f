package handler

import (
	"net/http"
	"strings"

	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// Signup godoc
// @Summary Register an account
// @Description Create a reporter, hospital or rescue center account. Role "rescue" is accepted as rescue_center.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body domain.SignupRequest true "Signup details"
// @Success 201 {object} domain.AuthResponse
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Email already registered"
// @Router /users [post]
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !decodeAndValidate(w, r, &req, defaultMaxBodyBytes) {
		return
	}

	resp, err := h.userService.Signup(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// GetByEmail godoc
// @Summary Look up a user by email
// @Tags Users
// @Produce json
// @Param email query string true "Email address"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /users [get]
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), email)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
