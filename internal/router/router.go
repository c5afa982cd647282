package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/hivecinema/hive/internal/handler"
	"github.com/hivecinema/hive/internal/middleware"
	"github.com/hivecinema/hive/internal/model"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Movies      *handler.MovieHandler
	Cinemas     *handler.CinemaHandler
	Auditoriums *handler.AuditoriumHandler
	Showtimes   *handler.ShowtimeHandler
	Tickets     *handler.TicketHandler
}

// Register mounts all routes on the provided Echo instance.  Anonymous reads
// and the payment webhook live outside the authenticated groups; catalog
// writes require the organizer or admin role and ticket operations any
// authenticated principal.  Resource-level ownership and approval checks run
// inside the handlers, after authentication but before any state change.
func Register(e *echo.Echo, h Handlers, jwtSecret []byte) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")

	// Anonymous catalog reads.
	api.GET("/movies", h.Movies.List)
	api.GET("/movies/:id", h.Movies.Get)
	api.GET("/cinemas", h.Cinemas.List)
	api.GET("/cinemas/:id", h.Cinemas.Get)
	api.GET("/auditoriums", h.Auditoriums.List)
	api.GET("/auditoriums/:id", h.Auditoriums.Get)
	api.GET("/auditoriums/cinema/:cinemaId", h.Auditoriums.ListByCinema)
	api.GET("/showtimes/:id/seatmap", h.Showtimes.SeatMap)

	// Payment webhook; authenticity is established at the provider edge.
	api.POST("/tickets/payment/success", h.Tickets.PaymentSuccess)

	auth := middleware.JWTAuth(jwtSecret)

	// Catalog and scheduling writes.
	organizer := api.Group("", auth, middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	organizer.POST("/movies", h.Movies.Create)
	organizer.PUT("/movies/:id", h.Movies.Update)
	organizer.DELETE("/movies/:id", h.Movies.Delete)
	organizer.POST("/cinemas", h.Cinemas.Create)
	organizer.PUT("/cinemas/:id", h.Cinemas.Update)
	organizer.PATCH("/cinemas/:id/status", h.Cinemas.UpdateStatus)
	organizer.DELETE("/cinemas/:id", h.Cinemas.Delete)
	organizer.POST("/auditoriums", h.Auditoriums.Create)
	organizer.PUT("/auditoriums/:id", h.Auditoriums.Update)
	organizer.DELETE("/auditoriums/:id", h.Auditoriums.Delete)
	organizer.POST("/showtimes", h.Showtimes.Create)
	organizer.PUT("/showtimes/:id", h.Showtimes.Update)
	organizer.DELETE("/showtimes/:id", h.Showtimes.Delete)

	// Ticket operations for any authenticated principal.
	tickets := api.Group("/tickets", auth)
	tickets.POST("/reserve", h.Tickets.Reserve)
	tickets.GET("/my-bookings", h.Tickets.MyBookings)
}
