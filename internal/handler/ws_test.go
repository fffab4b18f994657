package handler

import (
	"database/sql"
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
)

func wsCtx(t *testing.T, target string, actor *middleware.Actor) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != nil {
		c.Set("actor", *actor)
	}
	return c, rec
}

// Room authorization runs before the websocket upgrade, so the denial
// paths are testable without a hijackable connection.

func TestWSServeRequiresActor(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewWSHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := wsCtx(t, "/v1/ws", nil)
	require.NoError(t, h.Serve(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWSServeRejectsBadShopID(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewWSHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := wsCtx(t, "/v1/ws?shop=abc", &middleware.Actor{UserID: 42, Role: model.RoleShop})
	require.NoError(t, h.Serve(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWSServeRejectsForeignShopRoom(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewWSHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	mock.ExpectQuery(`SELECT owner_id FROM shops`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(777))

	c, rec := wsCtx(t, "/v1/ws?shop=3", &middleware.Actor{UserID: 42, Role: model.RoleShop})
	require.NoError(t, h.Serve(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWSServeUnknownShop(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewWSHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	mock.ExpectQuery(`SELECT owner_id FROM shops`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	c, rec := wsCtx(t, "/v1/ws?shop=99", &middleware.Actor{UserID: 42, Role: model.RoleShop})
	require.NoError(t, h.Serve(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
