// Package handler defines HTTP handlers; this file implements the
// operator endpoints. Role gating to ADMIN happens in middleware, so
// these handlers only deal with request shape and coordinator calls.
package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/studioflow/class-booking/internal/cache"
	"github.com/studioflow/class-booking/internal/repository"
	"github.com/studioflow/class-booking/internal/service"
)

// AdminHandler bundles the coordinator and repositories for operator
// actions: manual class creation, roster management on behalf of
// members, cascade deletion and credit top-ups.
type AdminHandler struct {
	Coordinator     *service.Coordinator
	ClassRepo       *repository.ClassRepo
	ReservationRepo *repository.ReservationRepo
	WaitlistRepo    *repository.WaitlistRepo
	ViewCache       *cache.ViewCache
}

// NewAdminHandler constructs an AdminHandler with the provided
// dependencies. All must be non-nil.
func NewAdminHandler(coord *service.Coordinator, classRepo *repository.ClassRepo, reservationRepo *repository.ReservationRepo, waitlistRepo *repository.WaitlistRepo, viewCache *cache.ViewCache) *AdminHandler {
	if coord == nil || classRepo == nil || reservationRepo == nil || waitlistRepo == nil || viewCache == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Coordinator:     coord,
		ClassRepo:       classRepo,
		ReservationRepo: reservationRepo,
		WaitlistRepo:    waitlistRepo,
		ViewCache:       viewCache,
	}
}

// CreateClassRequest is the body of POST /v1/admin/classes.
type CreateClassRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"max=2000"`
	StartsAt    string `json:"starts_at" validate:"required"`
	Capacity    int    `json:"capacity" validate:"required,gt=0"`
}

// CreateClass handles POST /v1/admin/classes. Sessions are normally
// produced upstream by the schedule generator; this endpoint covers
// manual additions. Returns 201 with the created session's ID.
func (h *AdminHandler) CreateClass(c echo.Context) error {
	var req CreateClassRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	rec := repository.ClassRecord{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    startsAt.UTC(),
		Capacity:    req.Capacity,
		CreatedAt:   time.Now().UTC(),
	}
	ctx := c.Request().Context()
	if err := h.ClassRepo.Create(ctx, &rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.ViewCache.ClassChanged(ctx, rec.ID, rec.StartsAt)
	return c.JSON(http.StatusCreated, echo.Map{"id": rec.ID})
}

// DeleteClass handles DELETE /v1/admin/classes/:id. Every booked member
// is refunded one credit, the waitlist is cleared without refunds and
// the session is removed, all in one transaction.
func (h *AdminHandler) DeleteClass(c echo.Context) error {
	res, err := h.Coordinator.DeleteClass(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// AddUser handles POST /v1/admin/classes/:id/users/:user_id. The ledger
// effects match a member booking with admin reason codes.
func (h *AdminHandler) AddUser(c echo.Context) error {
	res, err := h.Coordinator.AdminAddUser(c.Request().Context(), c.Param("id"), c.Param("user_id"))
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// RemoveUser handles DELETE /v1/admin/classes/:id/users/:user_id. The
// member is refunded and waitlist promotion runs exactly as for a
// member cancellation.
func (h *AdminHandler) RemoveUser(c echo.Context) error {
	res, err := h.Coordinator.AdminRemoveUser(c.Request().Context(), c.Param("id"), c.Param("user_id"))
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Roster handles GET /v1/admin/classes/:id/roster and returns booked
// members plus the current waitlist in promotion order.
func (h *AdminHandler) Roster(c echo.Context) error {
	classID := c.Param("id")
	ctx := c.Request().Context()
	if _, err := h.ClassRepo.GetByID(ctx, classID); err != nil {
		return writeCoordinatorError(c, err)
	}
	booked, err := h.ReservationRepo.ListByClass(ctx, classID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	waiting, err := h.WaitlistRepo.ListByClass(ctx, classID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booked": booked, "waitlist": waiting})
}

// TopUpRequest is the body of POST /v1/admin/users/:id/credits.
type TopUpRequest struct {
	Delta int `json:"delta" validate:"required,ne=0"`
}

// TopUp handles POST /v1/admin/users/:id/credits, applying a signed
// credit adjustment with the ADMIN_TOP_UP audit reason.
func (h *AdminHandler) TopUp(c echo.Context) error {
	var req TopUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	res, err := h.Coordinator.AdminTopUp(c.Request().Context(), c.Param("id"), req.Delta)
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
