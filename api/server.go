/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/teachers/*       Teacher management and salary reads
  /api/students         Roster management
  /api/lessons/*        Lesson and obligation fact ingestion
  /api/settings/*       Obligation percent configuration
  /api/salaries/*       Salary generation and finalization
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Teacher routes
		r.Route("/teachers", func(r chi.Router) {
			r.Get("/", h.ListTeachers)
			r.Post("/", h.SaveTeacher)
			r.Get("/{id}", h.GetTeacher)
			r.Get("/{id}/salaries", h.ListSalaries)
			r.Get("/{id}/salaries/{year}/{month}", h.GetBreakdown)
		})

		// Roster routes
		r.Post("/students", h.SaveStudent)

		// Lesson and fact routes
		r.Route("/lessons", func(r chi.Router) {
			r.Post("/", h.SaveLesson)
			r.Get("/{id}", h.GetLesson)
			r.Post("/{id}/attendance", h.MarkAttendance)
			r.Post("/{id}/feedback", h.AddFeedback)
			r.Post("/{id}/messages", h.RecordMessage)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/obligations", h.GetObligationSettings)
			r.Put("/obligations", h.UpdateObligationSettings)
		})

		// Salary routes
		r.Route("/salaries", func(r chi.Router) {
			r.Post("/generate", h.GenerateSalary)
			r.Post("/generate-all", h.GenerateAllSalaries)
			r.Post("/{id}/pay", h.MarkPaid)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
