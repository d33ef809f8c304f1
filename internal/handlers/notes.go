package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/services"
)

type NoteHandler struct {
	noteRepo *repository.NoteRepo
	sessions *services.SessionService
}

func NewNoteHandler(noteRepo *repository.NoteRepo, sessions *services.SessionService) *NoteHandler {
	return &NoteHandler{noteRepo: noteRepo, sessions: sessions}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Content is required", r))
		return
	}

	// Ownership check rides on the session lookup.
	if _, err := h.sessions.Get(r.Context(), userID, sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	note := &models.StudyNote{
		UserID:    userID,
		SessionID: sessionID,
		Content:   req.Content,
	}
	if err := h.noteRepo.Create(r.Context(), note); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save note", r))
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	if _, err := h.sessions.Get(r.Context(), userID, sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	notes, err := h.noteRepo.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load notes", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	noteID, err := uuid.Parse(chi.URLParam(r, "noteID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Content is required", r))
		return
	}

	note := h.loadOwned(w, r, userID, noteID)
	if note == nil {
		return
	}

	if err := h.noteRepo.Update(r.Context(), noteID, req.Content); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update note", r))
		return
	}

	note.Content = req.Content
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	noteID, err := uuid.Parse(chi.URLParam(r, "noteID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
		return
	}

	note := h.loadOwned(w, r, userID, noteID)
	if note == nil {
		return
	}

	if err := h.noteRepo.Delete(r.Context(), noteID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete note", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

// loadOwned fetches the note and writes the error response itself when the
// note is missing or owned by someone else.
func (h *NoteHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID, noteID uuid.UUID) *models.StudyNote {
	note, err := h.noteRepo.GetByID(r.Context(), noteID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Note not found", r))
		return nil
	}
	if note.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Note belongs to another user", r))
		return nil
	}
	return note
}
