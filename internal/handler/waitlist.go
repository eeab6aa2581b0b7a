package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/repository"
	"github.com/kavelio/studio-booking/internal/waitlist"
)

// WaitlistHandler lets customers queue for full slots.
type WaitlistHandler struct {
	Waitlist *waitlist.Service
}

type joinWaitlistReq struct {
	Seats uint32 `json:"seats"`
}

// Join handles POST /v1/slots/:id/waitlist.
func (h *WaitlistHandler) Join(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req joinWaitlistReq
	_ = c.Bind(&req)
	if req.Seats == 0 {
		req.Seats = 1
	}

	entry, err := h.Waitlist.Join(c.Request().Context(), slotID, userID, req.Seats)
	if err != nil {
		switch {
		case errors.Is(err, waitlist.ErrSlotNotFull):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot still has seats, book directly"})
		case errors.Is(err, waitlist.ErrSlotClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot is not open"})
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "waitlist join failed"})
		}
	}
	return c.JSON(http.StatusCreated, entry)
}
