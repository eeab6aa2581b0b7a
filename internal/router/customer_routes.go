package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/handler"
	"github.com/kavelio/studio-booking/internal/middleware"
)

// RegisterCustomer registers the booking lifecycle endpoints. All of them
// require a valid JWT; staff tokens are accepted too so the front desk can
// act on a customer's behalf.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, p *handler.PaymentHandler, w *handler.WaitlistHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "STAFF"),
	)

	g.POST("/slots/:id/reserve", b.Reserve)
	g.POST("/slots/:id/waitlist", w.Join)

	g.GET("/bookings", b.MyBookings)
	g.GET("/bookings/:id", b.GetBooking)
	g.POST("/bookings/:id/cancel", b.Cancel)
	g.POST("/bookings/:id/reschedule", b.Reschedule)
	g.POST("/bookings/:id/pay", p.CreateOrder)
}
