package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/qrtoken"
)

// CheckinHandler is the front-desk surface: staff scan QR tokens at the
// door and check group attendance. Scanner failures map onto short status
// strings the scanning device can branch on.
type CheckinHandler struct {
	Tokens *qrtoken.Service
}

type verifyReq struct {
	Token string `json:"token"`
}

// Verify handles POST /v1/checkin/verify (STAFF).
func (h *CheckinHandler) Verify(c echo.Context) error {
	scannerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "not-found", "error": "token required"})
	}

	rec, err := h.Tokens.Verify(c.Request().Context(), req.Token, scannerID)
	if err != nil {
		switch {
		case errors.Is(err, qrtoken.ErrExpired):
			return c.JSON(http.StatusGone, echo.Map{"status": "expired"})
		case errors.Is(err, qrtoken.ErrAlreadyConsumed):
			return c.JSON(http.StatusConflict, echo.Map{"status": "used"})
		case errors.Is(err, qrtoken.ErrBookingNotConfirmed):
			return c.JSON(http.StatusConflict, echo.Map{"status": "invalid", "error": "booking not active"})
		case errors.Is(err, qrtoken.ErrInvalidToken):
			return c.JSON(http.StatusNotFound, echo.Map{"status": "not-found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "valid", "attendance": rec})
}

// GroupAttendance handles GET /v1/checkin/groups/:id (STAFF), reporting
// what share of a group token's members have scanned in.
func (h *CheckinHandler) GroupAttendance(c echo.Context) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group id"})
	}
	pct, err := h.Tokens.GroupAttendance(c.Request().Context(), groupID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"group_id": groupID, "attendance_percent": pct})
}
