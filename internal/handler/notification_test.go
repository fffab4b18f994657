package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/config"
	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/realtime"
	"github.com/kirei-app/kirei-api/internal/repository"
)

func newTestHub() *realtime.Hub {
	return realtime.NewHub(config.RealtimeConfig{
		HeartbeatTimeout: time.Minute,
		SweepInterval:    time.Minute,
		WriteTimeout:     time.Second,
	}, zap.NewNop().Sugar())
}

func sendCtx(t *testing.T, body string, actor middleware.Actor) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/send", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("actor", actor)
	return c, rec
}

func TestSendToOwnUserRoom(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := sendCtx(t, `{"target_type":"user","target_id":7,"message":"hello"}`,
		middleware.Actor{UserID: 7, Role: model.RoleCustomer})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	// No live connection in the room; at-most-once delivery reports zero.
	assert.Contains(t, rec.Body.String(), `"delivered":0`)
	assert.Contains(t, rec.Body.String(), `"room":"user-7"`)
}

func TestSendToForeignUserForbidden(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := sendCtx(t, `{"target_type":"user","target_id":99,"message":"hello"}`,
		middleware.Actor{UserID: 7, Role: model.RoleCustomer})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSendToAdminRoomRequiresAdmin(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	for _, role := range []string{model.RoleCustomer, model.RoleShop} {
		c, rec := sendCtx(t, `{"target_type":"admin","message":"hello"}`,
			middleware.Actor{UserID: 7, Role: role})
		require.NoError(t, h.Send(c))
		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
	}

	c, rec := sendCtx(t, `{"target_type":"admin","message":"hello"}`,
		middleware.Actor{UserID: 1, Role: model.RoleAdmin})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"room":"admin-reservations"`)
}

func TestSendBroadcastRequiresAdmin(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := sendCtx(t, `{"target_type":"broadcast","message":"maintenance at noon"}`,
		middleware.Actor{UserID: 7, Role: model.RoleShop})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSendToOwnedShopRoom(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	mock.ExpectQuery(`SELECT owner_id FROM shops`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(42))

	c, rec := sendCtx(t, `{"target_type":"shop","target_id":3,"message":"staff meeting"}`,
		middleware.Actor{UserID: 42, Role: model.RoleShop})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"room":"shop-3"`)
}

func TestSendToForeignShopForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	mock.ExpectQuery(`SELECT owner_id FROM shops`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(777))

	c, rec := sendCtx(t, `{"target_type":"shop","target_id":3,"message":"hi"}`,
		middleware.Actor{UserID: 42, Role: model.RoleShop})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSendRejectsUnknownTarget(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := sendCtx(t, `{"target_type":"everyone","message":"hi"}`,
		middleware.Actor{UserID: 1, Role: model.RoleAdmin})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_target")
}

func TestSendRequiresMessage(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := sendCtx(t, `{"target_type":"user","target_id":7,"message":"  "}`,
		middleware.Actor{UserID: 7, Role: model.RoleCustomer})
	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepReportsCounts(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewNotificationHandler(newTestHub(), repository.NewShopRepo(db), zap.NewNop().Sugar())

	c, rec := sendCtx(t, "", middleware.Actor{UserID: 1, Role: model.RoleAdmin})
	require.NoError(t, h.Sweep(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"swept":0`)
	assert.Contains(t, rec.Body.String(), `"connections":0`)
}
