package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studioflow/class-booking/internal/cache"
	"github.com/studioflow/class-booking/internal/model"
	"github.com/studioflow/class-booking/internal/repository"
)

// BrowseHandler serves the read-side calendar endpoints. Month listings
// go through the view cache; everything else reads the catalog
// directly. These paths never mutate state.
type BrowseHandler struct {
	ClassRepo *repository.ClassRepo
	ViewCache *cache.ViewCache
}

// NewBrowseHandler constructs a BrowseHandler with the provided
// dependencies. The view cache must be non-nil (it degrades internally
// when Redis is down).
func NewBrowseHandler(classRepo *repository.ClassRepo, viewCache *cache.ViewCache) *BrowseHandler {
	if classRepo == nil || viewCache == nil {
		panic("nil dependency passed to NewBrowseHandler")
	}
	return &BrowseHandler{ClassRepo: classRepo, ViewCache: viewCache}
}

// ListClasses handles GET /v1/classes?month=YYYY-MM. It returns all
// class sessions in the requested month (default: the current month),
// served from the view cache when a fresh snapshot exists.
func (h *BrowseHandler) ListClasses(c echo.Context) error {
	monthStr := c.QueryParam("month")
	var month time.Time
	if monthStr == "" {
		now := time.Now().UTC()
		month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		var err error
		month, err = time.Parse("2006-01", monthStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid month, want YYYY-MM"})
		}
	}

	ctx := c.Request().Context()
	if classes, ok := h.ViewCache.GetMonth(ctx, month); ok {
		return c.JSON(http.StatusOK, echo.Map{"classes": classes, "cached": true})
	}

	records, err := h.ClassRepo.ListByRange(ctx, month, month.AddDate(0, 1, 0))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	classes := make([]model.ClassSession, 0, len(records))
	for _, rec := range records {
		classes = append(classes, toModel(rec))
	}
	h.ViewCache.PutMonth(ctx, month, classes)
	return c.JSON(http.StatusOK, echo.Map{"classes": classes})
}

// GetClass handles GET /v1/classes/:id and returns a single session.
func (h *BrowseHandler) GetClass(c echo.Context) error {
	rec, err := h.ClassRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeCoordinatorError(c, err)
	}
	return c.JSON(http.StatusOK, toModel(*rec))
}

func toModel(rec repository.ClassRecord) model.ClassSession {
	return model.ClassSession{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		StartsAt:    rec.StartsAt,
		Capacity:    rec.Capacity,
		Occupancy:   rec.Occupancy,
		CreatedAt:   rec.CreatedAt,
	}
}
