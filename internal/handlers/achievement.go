package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/services"
)

type AchievementHandler struct {
	achievements *services.AchievementService
	userRepo     *repository.UserRepo
}

func NewAchievementHandler(achievements *services.AchievementService, userRepo *repository.UserRepo) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, userRepo: userRepo}
}

func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	achievements, err := h.achievements.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": achievements})
}

// Grant mints and records a milestone for the caller in one request. The
// response only returns 201 once the transaction is confirmed and the grant
// row is written.
func (h *AchievementHandler) Grant(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	milestoneKey := chi.URLParam(r, "key")

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if user.WalletAddress == nil || *user.WalletAddress == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No wallet address on file", r))
		return
	}

	achievement, err := h.achievements.Grant(r.Context(), userID, *user.WalletAddress, milestoneKey)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, achievement)
}
