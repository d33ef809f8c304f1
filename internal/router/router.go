package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	studySessionHandler *handlers.StudySessionHandler,
	achievementHandler *handlers.AchievementHandler,
	userHandler *handlers.UserHandler,
	noteHandler *handlers.NoteHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Study Session Routes ────
		r.Route("/study-sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", studySessionHandler.Create)
			r.Get("/", studySessionHandler.List)
			r.Get("/{id}", studySessionHandler.Get)
			r.Post("/{id}/start", studySessionHandler.Start)
			r.Post("/{id}/pause", studySessionHandler.Pause)
			r.Post("/{id}/resume", studySessionHandler.Resume)
			r.Post("/{id}/complete", studySessionHandler.Complete)

			r.Post("/{id}/notes", noteHandler.Create)
			r.Get("/{id}/notes", noteHandler.ListBySession)
		})

		// ──── Note Routes ────
		r.Route("/notes", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Put("/{noteID}", noteHandler.Update)
			r.Delete("/{noteID}", noteHandler.Delete)
		})

		// ──── Achievement Routes ────
		r.Route("/achievements", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", achievementHandler.List)
			r.Post("/{key}/grant", achievementHandler.Grant)
		})

		// ──── User Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Put("/me", userHandler.UpdateMe)
			r.Put("/password", userHandler.ChangePassword)
			r.Put("/wallet", userHandler.SetWallet)
			r.Get("/streak", userHandler.GetStreak)
			r.Delete("/me", userHandler.DeleteMe)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
