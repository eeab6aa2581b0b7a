package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/handler"
	"github.com/kavelio/studio-booking/internal/middleware"
)

// RegisterStaff registers the endpoints reserved for the STAFF role:
// catalog management, refunds and front-desk check-in.
func RegisterStaff(e *echo.Echo, cat *handler.CatalogHandler, p *handler.PaymentHandler, ci *handler.CheckinHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STAFF"),
	)

	g.POST("/activities", cat.CreateActivity)
	g.POST("/slots", cat.CreateSlot)

	g.POST("/bookings/:id/refund", p.Refund)

	g.POST("/checkin/verify", ci.Verify)
	g.GET("/checkin/groups/:id", ci.GroupAttendance)
}
