package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studioflow/class-booking/internal/model"
	"github.com/studioflow/class-booking/internal/repository"
	"github.com/studioflow/class-booking/internal/service"
)

// MemberHandler groups the coordinator and read repositories needed for
// member-initiated booking operations. All methods assume JWT
// authentication and role validation have already been performed by
// middleware; they may return 401 if the user ID cannot be extracted
// from the context. Every mutation goes through the coordinator so
// capacity, reservations and credits move together.
type MemberHandler struct {
	Coordinator     *service.Coordinator
	ReservationRepo *repository.ReservationRepo
	CreditRepo      *repository.CreditRepo
}

// NewMemberHandler constructs a MemberHandler with the provided
// dependencies. All must be non-nil.
func NewMemberHandler(coord *service.Coordinator, reservationRepo *repository.ReservationRepo, creditRepo *repository.CreditRepo) *MemberHandler {
	if coord == nil || reservationRepo == nil || creditRepo == nil {
		panic("nil dependency passed to NewMemberHandler")
	}
	return &MemberHandler{Coordinator: coord, ReservationRepo: reservationRepo, CreditRepo: creditRepo}
}

// BookClass handles POST /v1/classes/:id/book. On success it returns
// 201 Created with the updated occupancy and the member's new balance.
// A full class returns 422; the member should join the waitlist instead.
func (h *MemberHandler) BookClass(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Coordinator.BookClass(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// CancelBooking handles DELETE /v1/classes/:id/booking. The refund and
// any waitlist promotion happen in the same transaction; the response
// reports who, if anyone, was promoted into the freed slot.
func (h *MemberHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Coordinator.CancelBooking(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// JoinWaitlist handles POST /v1/classes/:id/waitlist and returns the
// member's queue position.
func (h *MemberHandler) JoinWaitlist(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Coordinator.JoinWaitlist(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// LeaveWaitlist handles DELETE /v1/classes/:id/waitlist.
func (h *MemberHandler) LeaveWaitlist(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Coordinator.LeaveWaitlist(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MyBookings handles GET /v1/me/bookings and lists the member's active
// bookings with class details, ordered by start time.
func (h *MemberHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.ReservationRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// MyCredits handles GET /v1/me/credits and returns the member's balance
// together with the full adjustment history backing it.
func (h *MemberHandler) MyCredits(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	balance, err := h.CreditRepo.GetBalance(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	ledger, err := h.CreditRepo.ListLedger(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	account := model.CreditAccount{UserID: userID, Balance: balance}
	return c.JSON(http.StatusOK, echo.Map{"account": account, "ledger": ledger})
}
