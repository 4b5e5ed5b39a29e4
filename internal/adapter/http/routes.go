package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/bandungair/udara/internal/middleware"
)

// MountRoutes registers all API routes on the router. Authentication is
// enforced by the Auth middleware installed ahead of these routes; admin
// endpoints additionally require the admin role.
func (h *Handlers) MountRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Get("/me", h.Me)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/change-password", h.ChangePassword)
		})

		r.Route("/weather", func(r chi.Router) {
			r.Get("/health", h.WeatherHealth)
			r.Post("/recommendation", h.RecommendFromData)
			r.Post("/from-google-sheets", h.RecommendFromSheets)
			r.Post("/from-csv", h.RecommendFromCSV)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/public", h.PublicDashboard)
			r.Post("/tips", h.Tips)
			r.Get("/heatmap", h.Heatmap)
			r.Get("/table", h.Table)
			r.Get("/stats", h.DashboardStats)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/dashboard", h.AdminDashboard)
			r.Get("/users", h.ListUsers)
			r.Delete("/users/{id}", h.DeleteUser)
			r.Post("/cache/clear", h.ClearCache)
			r.Post("/cache/refresh", h.RefreshSheet)
		})
	})
}
