package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/repository"
)

// CatalogHandler serves the activity catalog and slot schedule: public
// browse endpoints plus the staff-only create operations.
type CatalogHandler struct {
	Activities *repository.ActivityRepo
	Slots      *repository.SlotRepo
}

func NewCatalogHandler(activities *repository.ActivityRepo, slots *repository.SlotRepo) *CatalogHandler {
	if activities == nil || slots == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Activities: activities, Slots: slots}
}

// ListActivities handles GET /v1/activities.
func (h *CatalogHandler) ListActivities(c echo.Context) error {
	items, err := h.Activities.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"activities": items})
}

// ListSlots handles GET /v1/activities/:id/slots. Only upcoming,
// non-cancelled slots are returned.
func (h *CatalogHandler) ListSlots(c echo.Context) error {
	activityID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Activities.GetByID(ctx, activityID); err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	slots, err := h.Slots.ListByActivity(ctx, activityID, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// GetSlot handles GET /v1/slots/:id.
func (h *CatalogHandler) GetSlot(c echo.Context) error {
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	slot, err := h.Slots.GetByID(c.Request().Context(), slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, slot)
}

type createActivityReq struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	PriceCents   uint32  `json:"price_cents"`
	DurationMin  uint32  `json:"duration_min"`
	InstructorID *uint64 `json:"instructor_id"`
}

// CreateActivity handles POST /v1/activities (STAFF).
func (h *CatalogHandler) CreateActivity(c echo.Context) error {
	var req createActivityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.DurationMin == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and duration_min required"})
	}
	a := &model.Activity{
		Title:        req.Title,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		DurationMin:  req.DurationMin,
		InstructorID: req.InstructorID,
	}
	if err := h.Activities.Create(c.Request().Context(), a); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create activity failed"})
	}
	return c.JSON(http.StatusCreated, a)
}

type createSlotReq struct {
	ActivityID   uint64    `json:"activity_id"`
	InstructorID *uint64   `json:"instructor_id"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Capacity     uint32    `json:"capacity"`
	Location     string    `json:"location"`
}

// CreateSlot handles POST /v1/slots (STAFF).
func (h *CatalogHandler) CreateSlot(c echo.Context) error {
	var req createSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ActivityID == 0 || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "activity_id and capacity required"})
	}
	if !req.EndsAt.After(req.StartsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}
	ctx := c.Request().Context()
	if _, err := h.Activities.GetByID(ctx, req.ActivityID); err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	s := &model.Slot{
		ActivityID:   req.ActivityID,
		InstructorID: req.InstructorID,
		StartsAt:     req.StartsAt.UTC(),
		EndsAt:       req.EndsAt.UTC(),
		Capacity:     req.Capacity,
		Location:     req.Location,
	}
	if err := h.Slots.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slot failed"})
	}
	return c.JSON(http.StatusCreated, s)
}
