package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/repository"
	"github.com/kirei-app/kirei-api/internal/service"
)

func TestReservationListServesFromRepo(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewReservationHandler(
		repository.NewReservationRepo(db),
		service.NewReservationCache(nil, 0), // cache disabled, always a miss
		zap.NewNop().Sugar(),
	)

	mock.ExpectQuery(`FROM reservations WHERE user_id=\$1`).
		WithArgs(uint64(9)).
		WillReturnRows(reservationRow(model.StatusConfirmed, 8000))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/reservations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("actor", middleware.Actor{UserID: 9, Role: model.RoleCustomer})

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"menu_name":"cut and color"`)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestReservationGetHidesForeignRows(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewReservationHandler(
		repository.NewReservationRepo(db),
		service.NewReservationCache(nil, 0),
		zap.NewNop().Sugar(),
	)

	mock.ExpectQuery(`FROM reservations WHERE id=\$1 AND user_id=\$2`).
		WithArgs(uint64(11), uint64(777)).
		WillReturnRows(sqlmock.NewRows(reservationCols))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/reservations/:id")
	c.SetParamNames("id")
	c.SetParamValues("11")
	c.Set("actor", middleware.Actor{UserID: 777, Role: model.RoleCustomer})

	// A reservation owned by someone else looks exactly like a missing one.
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
