package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioflow/class-booking/internal/database"
	"github.com/studioflow/class-booking/internal/repository"
	"github.com/studioflow/class-booking/internal/service"
)

func newTestMemberHandler(t *testing.T) (*MemberHandler, *repository.ClassRepo) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	classes := repository.NewClassRepo(db)
	reservations := repository.NewReservationRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	credits := repository.NewCreditRepo(db)
	coord := service.NewCoordinator(db, classes, reservations, waitlist, credits, nil, nil)
	return NewMemberHandler(coord, reservations, credits), classes
}

// doBook performs POST /v1/classes/:id/book as the given user and
// returns the recorder.
func doBook(t *testing.T, h *MemberHandler, userID, classID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(classID)
	c.Set("user_id", userID)
	require.NoError(t, h.BookClass(c))
	return rec
}

func TestBookClass_HTTPStatusMapping(t *testing.T) {
	// GIVEN: a class with capacity 1
	// THEN: first booking 201, duplicate 409, full 422, unknown class 404
	h, classes := newTestMemberHandler(t)
	classID := uuid.NewString()
	err := classes.Create(context.Background(), &repository.ClassRecord{
		ID:        classID,
		Name:      "Spin",
		StartsAt:  time.Now().UTC().Add(time.Hour),
		Capacity:  1,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, doBook(t, h, "alice", classID).Code)
	assert.Equal(t, http.StatusConflict, doBook(t, h, "alice", classID).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, doBook(t, h, "bob", classID).Code)
	assert.Equal(t, http.StatusNotFound, doBook(t, h, "bob", uuid.NewString()).Code)
}

func TestBookClass_MissingUserIDIsUnauthorized(t *testing.T) {
	h, _ := newTestMemberHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, h.BookClass(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
