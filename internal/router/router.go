package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/studioflow/class-booking/internal/handler"
	"github.com/studioflow/class-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check and the public calendar
// browse endpoints. Guests can inspect the schedule before logging in.
func RegisterRoutes(e *echo.Echo, browse *handler.BrowseHandler) {
	// Load balancers and monitoring systems probe this endpoint.
	e.GET("/healthz", handler.Health)

	e.GET("/v1/classes", browse.ListClasses)
	e.GET("/v1/classes/:id", browse.GetClass)
}

// RegisterMember registers the member-facing booking endpoints under
// /v1 behind JWT authentication. Both MEMBER and ADMIN roles may call
// them; the rate limiter wraps the mutating routes so a retry loop in a
// client cannot hammer the coordinator.
func RegisterMember(e *echo.Echo, m *handler.MemberHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("MEMBER", "ADMIN"))

	g.POST("/classes/:id/book", m.BookClass, limiter)
	g.DELETE("/classes/:id/booking", m.CancelBooking, limiter)
	g.POST("/classes/:id/waitlist", m.JoinWaitlist, limiter)
	g.DELETE("/classes/:id/waitlist", m.LeaveWaitlist, limiter)

	g.GET("/me/bookings", m.MyBookings)
	g.GET("/me/credits", m.MyCredits)
}

// RegisterAdmin registers operator endpoints under /v1/admin. The
// RequireRole("ADMIN") gate here is the single authorization boundary
// for Admin* operations and DeleteClass.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.POST("/classes", a.CreateClass)
	g.DELETE("/classes/:id", a.DeleteClass)
	g.GET("/classes/:id/roster", a.Roster)
	g.POST("/classes/:id/users/:user_id", a.AddUser)
	g.DELETE("/classes/:id/users/:user_id", a.RemoveUser)
	g.POST("/users/:id/credits", a.TopUp)
}
