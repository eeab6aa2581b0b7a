package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/payment"
	"github.com/kavelio/studio-booking/internal/policy"
	"github.com/kavelio/studio-booking/internal/repository"
	"github.com/kavelio/studio-booking/internal/reservation"
	"github.com/kavelio/studio-booking/internal/waitlist"
)

// BookingHandler exposes the reservation lifecycle over HTTP: reserve,
// list, cancel and reschedule. Seat mutations all go through the
// coordinator; money leaves through the payment bridge.
type BookingHandler struct {
	Coordinator *reservation.Coordinator
	Bridge      *payment.Bridge
	Rules       *policy.Engine
	Waitlist    *waitlist.Service
	Bookings    *repository.BookingRepo
	Slots       *repository.SlotRepo
	Activities  *repository.ActivityRepo
}

type reserveReq struct {
	AttendeeCount uint32 `json:"attendee_count"`
}

// Reserve handles POST /v1/slots/:id/reserve. The price is taken from the
// activity catalog at reservation time, per seat.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AttendeeCount == 0 {
		req.AttendeeCount = 1
	}

	ctx := c.Request().Context()
	slot, err := h.Slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	activity, err := h.Activities.GetByID(ctx, slot.ActivityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	booking, err := h.Coordinator.Reserve(ctx, reservation.ReserveParams{
		SlotID:           slotID,
		UserID:           userID,
		AttendeeCount:    req.AttendeeCount,
		TotalAmountCents: activity.PriceCents * req.AttendeeCount,
	})
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrInsufficientCapacity):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats available"})
		case errors.Is(err, reservation.ErrSlotNotBookable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot is not open for booking"})
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
		}
	}
	return c.JSON(http.StatusCreated, booking)
}

// MyBookings handles GET /v1/bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

// GetBooking handles GET /v1/bookings/:id. Customers only see their own.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.Bookings.GetByID(c.Request().Context(), bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if booking.UserID != userID && !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, booking)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /v1/bookings/:id/cancel. A paid booking is refunded
// through the gateway at the policy rate before its seats are released;
// an unpaid one is simply cancelled. Freed seats are offered to the
// waitlist either way.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req cancelReq
	_ = c.Bind(&req)
	if req.Reason == "" {
		req.Reason = "cancelled by user"
	}

	ctx := c.Request().Context()
	booking, err := h.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if booking.UserID != userID && !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if booking.PaymentStatus == model.PaymentPaid {
		slot, err := h.Slots.GetByID(ctx, booking.SlotID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		amount := h.Rules.RefundAmountCents(booking.TotalAmountCents, slot.StartsAt)
		res, err := h.Bridge.Refund(ctx, bookingID, amount, req.Reason, userID)
		if err != nil {
			return refundError(c, err)
		}
		h.promote(ctx, booking.SlotID)
		return c.JSON(http.StatusOK, echo.Map{
			"status":       "refunded",
			"amount_cents": res.AmountCents,
			"refund_ref":   res.RefundRef,
		})
	}

	if err := h.Coordinator.Cancel(ctx, bookingID, userID, req.Reason); err != nil {
		if errors.Is(err, reservation.ErrInvalidState) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not cancellable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	h.promote(ctx, booking.SlotID)
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

type rescheduleReq struct {
	NewSlotID uint64 `json:"new_slot_id"`
}

// Reschedule handles POST /v1/bookings/:id/reschedule.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req rescheduleReq
	if err := c.Bind(&req); err != nil || req.NewSlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_slot_id required"})
	}

	ctx := c.Request().Context()
	booking, err := h.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	oldSlotID := booking.SlotID

	if err := h.Coordinator.Reschedule(ctx, bookingID, req.NewSlotID, userID); err != nil {
		switch {
		case errors.Is(err, reservation.ErrNotOwner):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, reservation.ErrPolicyViolation):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		case errors.Is(err, reservation.ErrInsufficientCapacity):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats in the new slot"})
		case errors.Is(err, reservation.ErrSlotNotBookable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "new slot is not open for booking"})
		case errors.Is(err, reservation.ErrInvalidState):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot be rescheduled"})
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reschedule failed"})
		}
	}
	h.promote(ctx, oldSlotID)
	return c.JSON(http.StatusOK, echo.Map{"status": "rescheduled", "slot_id": req.NewSlotID})
}

// promote offers freed seats to the slot's waitlist. Failure here never
// fails the request that freed the seats.
func (h *BookingHandler) promote(ctx context.Context, slotID uint64) {
	if h.Waitlist == nil {
		return
	}
	if _, err := h.Waitlist.Promote(ctx, slotID); err != nil {
		log.Printf("waitlist promote for slot %d: %v", slotID, err)
	}
}

func refundError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, payment.ErrRefundExceedsPaid):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "refund exceeds amount paid"})
	case errors.Is(err, payment.ErrGatewayFailure):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
	case errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no completed payment for booking"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refund failed"})
	}
}
