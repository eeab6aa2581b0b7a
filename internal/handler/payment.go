package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/payment"
	"github.com/kavelio/studio-booking/internal/policy"
	"github.com/kavelio/studio-booking/internal/repository"
)

// PaymentHandler fronts the payment bridge: order creation for customers,
// signed webhooks from the gateways, and staff-initiated refunds.
type PaymentHandler struct {
	Bridge   *payment.Bridge
	Rules    *policy.Engine
	Bookings *repository.BookingRepo
	Slots    *repository.SlotRepo
}

type createOrderReq struct {
	Gateway string `json:"gateway"`
}

// CreateOrder handles POST /v1/bookings/:id/pay. The returned payment row
// carries the gateway order id the client completes checkout against.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil || req.Gateway == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gateway required"})
	}

	p, err := h.Bridge.CreateOrder(c.Request().Context(), bookingID, req.Gateway, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, payment.ErrNotPayable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not payable"})
		case errors.Is(err, payment.ErrUnknownGateway):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown gateway"})
		case errors.Is(err, payment.ErrGatewayFailure):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "order creation failed"})
		}
	}
	return c.JSON(http.StatusCreated, p)
}

type razorpayWebhook struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type plainWebhook struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Webhook handles POST /v1/payments/webhook/:gateway. Each gateway ships
// its credentials in a different shape, so the callback is assembled here
// and handed to the bridge, which verifies the signature before touching
// anything. The endpoint is unauthenticated; the signature is the auth.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	gateway := strings.ToLower(c.Param("gateway"))
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	cb := payment.Callback{Gateway: gateway, RawBody: body}
	switch gateway {
	case "razorpay":
		var w razorpayWebhook
		if err := json.Unmarshal(body, &w); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		cb.OrderID = w.OrderID
		cb.PaymentID = w.PaymentID
		cb.Signature = w.Signature
	case "stripe":
		var w plainWebhook
		if err := json.Unmarshal(body, &w); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		cb.OrderID = w.OrderID
		cb.PaymentID = w.PaymentID
		cb.Signature = c.Request().Header.Get("Stripe-Signature")
	case "phonepe":
		var w plainWebhook
		if err := json.Unmarshal(body, &w); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		cb.OrderID = w.OrderID
		cb.PaymentID = w.PaymentID
		cb.Signature = c.Request().Header.Get("X-VERIFY")
	default:
		var w plainWebhook
		if err := json.Unmarshal(body, &w); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		cb.OrderID = w.OrderID
		cb.PaymentID = w.PaymentID
		cb.Signature = w.Signature
	}

	res, err := h.Bridge.Confirm(c.Request().Context(), cb)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownGateway):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown gateway"})
		case errors.Is(err, payment.ErrSignatureMismatch):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "signature verification failed"})
		case errors.Is(err, repository.ErrPaymentNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown order"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
		}
	}
	return c.JSON(http.StatusOK, res)
}

type refundReq struct {
	AmountCents *uint32 `json:"amount_cents"`
	Reason      string  `json:"reason"`
}

// Refund handles POST /v1/bookings/:id/refund (STAFF). When no amount is
// given the policy tier for the booking's slot decides it.
func (h *PaymentHandler) Refund(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req refundReq
	_ = c.Bind(&req)
	if req.Reason == "" {
		req.Reason = "refunded by staff"
	}

	ctx := c.Request().Context()
	booking, err := h.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var amount uint32
	if req.AmountCents != nil {
		amount = *req.AmountCents
	} else {
		slot, err := h.Slots.GetByID(ctx, booking.SlotID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		amount = h.Rules.RefundAmountCents(booking.TotalAmountCents, slot.StartsAt)
	}

	res, err := h.Bridge.Refund(ctx, bookingID, amount, req.Reason, actorID)
	if err != nil {
		return refundError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
