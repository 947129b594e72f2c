package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"livepoll/internal/container"
	"livepoll/internal/middleware"
	"livepoll/pkg/errors"
)

// NewRouter configures and returns the HTTP router
func NewRouter(container *container.Container) *chi.Mux {
	cfg := container.GetConfig()
	log := container.GetLogger()
	authService := container.GetAuthService()

	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins), log))
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	healthHandler := NewHealthHandler(container)
	sessionHandler := NewSessionHandler(container)
	liveHandler := NewLiveHandler(container)
	adminHandler := NewAdminHandler(container)
	pollHandler := NewPollHandler(container)

	r.Get("/health", healthHandler.Check)

	timeout := chiMiddleware.Timeout(30 * time.Second)

	r.Route("/api", func(r chi.Router) {
		r.With(timeout).Post("/participants", sessionHandler.CreateParticipant)

		r.Route("/sessions", func(r chi.Router) {
			// the live socket outlives any request timeout
			r.Get("/{code}/live", liveHandler.Watch)

			r.Group(func(r chi.Router) {
				r.Use(timeout)

				r.Post("/join", sessionHandler.Join)
				r.Get("/{code}", sessionHandler.Get)
				r.Post("/{code}/votes", sessionHandler.Vote)
				r.Get("/{code}/voters/{voterId}", sessionHandler.HasVoted)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(timeout)

			r.Get("/status", adminHandler.Status)
			r.Post("/register", adminHandler.Register)
			r.Post("/login", adminHandler.Login)
			r.Post("/verify-otp", adminHandler.VerifyOTP)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(authService, log))

				r.Post("/logout", adminHandler.Logout)
				r.Get("/profile", adminHandler.GetProfile)
				r.Put("/profile", adminHandler.UpdateProfile)

				r.Get("/polls", pollHandler.ListPolls)
				r.Post("/polls", pollHandler.CreatePoll)
				r.Post("/polls/{pollId}/launch", pollHandler.LaunchSession)

				r.Get("/sessions", pollHandler.ListSessions)
				r.Get("/sessions/current", pollHandler.CurrentSession)
				r.Get("/sessions/{code}", pollHandler.GetSession)
				r.Post("/sessions/{code}/end", pollHandler.EndSession)
				r.Post("/sessions/{code}/visibility", pollHandler.ToggleVisibility)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errors.NewNotFoundError("Endpoint not found", nil), log)
	})

	log.Info("Router configured successfully")
	return r
}
