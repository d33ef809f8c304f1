package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/services"
	"studyhub-backend/internal/websocket"
	"studyhub-backend/internal/worker"
)

type StudySessionHandler struct {
	sessions *services.SessionService
	streaks  *services.StreakService
	userRepo *repository.UserRepo
	redis    *redis.Client
}

func NewStudySessionHandler(sessions *services.SessionService, streaks *services.StreakService, userRepo *repository.UserRepo, redisClient *redis.Client) *StudySessionHandler {
	return &StudySessionHandler{
		sessions: sessions,
		streaks:  streaks,
		userRepo: userRepo,
		redis:    redisClient,
	}
}

type createSessionRequest struct {
	Subject         string    `json:"subject"`
	Topic           string    `json:"topic"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (h *StudySessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.sessions.Create(r.Context(), userID, req.Subject, req.Topic, req.ScheduledAt, req.DurationMinutes)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *StudySessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessions, err := h.sessions.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *StudySessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	session, err := h.sessions.Get(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *StudySessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Start)
}

func (h *StudySessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Pause)
}

func (h *StudySessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Resume)
}

func (h *StudySessionHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, uuid.UUID) (*models.StudySession, error)) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	session, err := op(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.publish(r.Context(), userID, models.WSMessage{
		Type: "session_update",
		Payload: models.SessionEvent{
			SessionID:           session.ID,
			Status:              session.Status,
			TotalElapsedSeconds: session.TotalElapsedSeconds,
		},
	})

	writeJSON(w, http.StatusOK, session)
}

// Complete finishes a session, credits the day's streak, and queues an
// early-finish achievement mint when the user has a wallet on file. The
// streak update is part of the request; the mint is not.
func (h *StudySessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	session, endedEarly, err := h.sessions.Complete(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	streak, err := h.streaks.Credit(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if endedEarly {
		h.enqueueEarlyFinishMint(r.Context(), userID)
	}

	h.publish(r.Context(), userID, models.WSMessage{
		Type: "session_update",
		Payload: models.SessionEvent{
			SessionID:           session.ID,
			Status:              session.Status,
			TotalElapsedSeconds: session.TotalElapsedSeconds,
		},
	})
	h.publish(r.Context(), userID, models.WSMessage{
		Type: "streak_update",
		Payload: models.StreakEvent{
			CurrentStreak: streak.CurrentStreak,
			LongestStreak: streak.LongestStreak,
		},
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"streak":  streak,
	})
}

func (h *StudySessionHandler) enqueueEarlyFinishMint(ctx context.Context, userID uuid.UUID) {
	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("Failed to load user %s for mint enqueue: %v", userID, err)
		return
	}
	if user.WalletAddress == nil || *user.WalletAddress == "" {
		return
	}

	job := models.MintJob{
		UserID:        userID,
		WalletAddress: *user.WalletAddress,
		MilestoneKey:  services.MilestoneKeyFastLearner,
	}
	if err := worker.Enqueue(ctx, h.redis, job); err != nil {
		log.Printf("Failed to enqueue mint job for user %s: %v", userID, err)
	}
}

func (h *StudySessionHandler) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.redis.Publish(ctx, websocket.ChannelPrefix+userID.String(), data).Err(); err != nil {
		log.Printf("Failed to publish %s event for user %s: %v", msg.Type, userID, err)
	}
}
