package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"intervi-api/internal/config"
	"intervi-api/internal/handler"
	"intervi-api/internal/metrics"
	"intervi-api/internal/middleware"
	"intervi-api/internal/model"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Interview *handler.InterviewHandler
	Analytics *handler.AnalyticsHandler
	Question  *handler.QuestionHandler
	Realtime  *handler.RealtimeHandler
	System    *handler.SystemHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(m))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)
	r.Use(middleware.BodyLimit(cfg.BodyLimit))

	r.NotFound(h.System.NotFound)
	r.MethodNotAllowed(h.System.MethodNotAllowed)

	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(api chi.Router) {
		// The websocket route hijacks the connection, which the buffered
		// timeout writer does not support.
		api.Get("/realtime/ws", h.Realtime.Connect)

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))

			api.Get("/health", h.System.Health)
			api.Get("/ping", h.System.Ping)
			api.Get("/demo", h.System.Demo)

			api.Route("/auth", func(auth chi.Router) {
				auth.Post("/register", h.Auth.Register)
				auth.Post("/login", h.Auth.Login)
				auth.Post("/refresh", h.Auth.Refresh)
				auth.Post("/logout", h.Auth.Logout)
				auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
			})

			api.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)

				protected.Route("/interviews", func(interviews chi.Router) {
					interviews.Get("/domains", h.Interview.Domains)
					interviews.Post("/sessions", h.Interview.Create)
					interviews.Get("/sessions", h.Interview.List)
					interviews.Get("/sessions/{sessionId}", h.Interview.Get)
					interviews.Patch("/sessions/{sessionId}/metrics", h.Interview.UpdateMetrics)
					interviews.Patch("/sessions/{sessionId}/status", h.Interview.UpdateStatus)
				})

				protected.Route("/analytics", func(analytics chi.Router) {
					analytics.Get("/dashboard", h.Analytics.Dashboard)
					analytics.Get("/sessions/{sessionId}", h.Analytics.Session)
					analytics.With(authMiddleware.RequireRoles(model.RoleAdmin)).
						Get("/users/{userId}/dashboard", h.Analytics.UserDashboard)
				})

				protected.Route("/mcq", func(mcq chi.Router) {
					mcq.Get("/questions", h.Question.List)
					mcq.Post("/questions/{questionId}/answer", h.Question.Answer)
				})

				protected.Post("/realtime/handshake", h.Realtime.Handshake)
			})
		})
	})

	return r
}
