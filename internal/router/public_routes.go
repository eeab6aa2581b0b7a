package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/handler"
)

// RegisterPublic registers the unauthenticated browse endpoints so guests
// can inspect the catalog and schedule before signing up. The cache
// middleware is supplied by the caller and may be a pass-through.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/activities", h.ListActivities)
	g.GET("/activities/:id/slots", h.ListSlots)
	g.GET("/slots/:id", h.GetSlot)
}

// RegisterWebhooks registers the payment gateway callback endpoint. It is
// unauthenticated on purpose: the gateway signature inside the payload is
// the only credential these requests carry.
func RegisterWebhooks(e *echo.Echo, p *handler.PaymentHandler) {
	e.POST("/v1/payments/webhook/:gateway", p.Webhook)
}
