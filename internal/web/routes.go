package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/web/handlers"
	"github.com/facegate/facegate/internal/web/middleware"
)

// indexDropper adapts the optimized strategy's index set to the handlers'
// invalidator interface.
type indexDropper struct {
	optimized *recognition.OptimizedStrategy
}

func (d indexDropper) Invalidate(scope tenant.Scope) {
	d.optimized.DropIndex(scope)
}

func (s *Server) setupRoutes() {
	invalidators := []handlers.RosterInvalidator{s.deps.Cache}
	if s.deps.Optimized != nil {
		invalidators = append(invalidators, indexDropper{optimized: s.deps.Optimized})
	}

	scanHandler := handlers.NewScanHandler(s.config, s.deps.Coordinator, s.deps.Recorder)
	membersHandler := handlers.NewMembersHandler(s.deps.Members, invalidators...)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Attendance)
	cacheHandler := handlers.NewCacheHandler(s.deps.Cache, invalidators[1:]...)
	healthHandler := handlers.NewHealthHandler(s.deps.Members,
		func() string { return s.deps.Coordinator.Mode().String() })

	// Health check (no auth required)
	s.router.Get("/api/v1/health", healthHandler.Get)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.AuthToken))
		r.Use(middleware.WithTenant())

		// Scanning
		r.Post("/scan", scanHandler.Scan)

		// Members
		r.Get("/members", membersHandler.List)
		r.Post("/members", membersHandler.Create)
		r.Get("/members/{id}", membersHandler.Get)
		r.Put("/members/{id}", membersHandler.Update)
		r.Delete("/members/{id}", membersHandler.Delete)

		// Attendance
		r.Get("/attendance/today", attendanceHandler.Today)

		// Cache administration
		r.Get("/cache/stats", cacheHandler.Stats)
		r.Get("/cache/stats/all", cacheHandler.AllStats)
		r.Post("/cache/invalidate", cacheHandler.Invalidate)
	})
}
