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

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/repository"
)

func sessionCtx(t *testing.T, method, target, body string, actor middleware.Actor) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("actor", actor)
	return c, rec
}

var sessionCols = []string{
	"id", "user_id", "device", "ip_address", "issued_at", "expires_at",
	"last_used_at", "revoked_at", "revoke_reason",
}

func TestSessionListFlagsCurrent(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewSessionHandler(repository.NewSessionRepo(db), zap.NewNop().Sugar())

	now := time.Now()
	mock.ExpectQuery(`FROM sessions`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("sess-a", 7, "iphone", "10.0.0.1", now, now.Add(time.Hour), now, nil, nil).
			AddRow("sess-b", 7, "laptop", "10.0.0.2", now, now.Add(time.Hour), now, nil, nil))

	c, rec := sessionCtx(t, http.MethodGet, "/v1/sessions", "",
		middleware.Actor{UserID: 7, Role: model.RoleCustomer, SessionID: "sess-b"})
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"id":"sess-b","device":"laptop"`)
	assert.Contains(t, body, `"max_sessions":5`)
	// Only sess-b is the current session.
	assert.Equal(t, 1, strings.Count(body, `"current":true`))
}

func TestRevokeOneMissingSession(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewSessionHandler(repository.NewSessionRepo(db), zap.NewNop().Sugar())

	mock.ExpectExec(`UPDATE sessions SET revoked_at=NOW\(\)`).
		WithArgs("revoked_by_user", "sess-x", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := sessionCtx(t, http.MethodDelete, "/", "",
		middleware.Actor{UserID: 7, Role: model.RoleCustomer, SessionID: "sess-a"})
	c.SetPath("/v1/sessions/:id")
	c.SetParamNames("id")
	c.SetParamValues("sess-x")

	require.NoError(t, h.RevokeOne(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_not_found")
}

func TestRevokeOneActiveSession(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewSessionHandler(repository.NewSessionRepo(db), zap.NewNop().Sugar())

	mock.ExpectExec(`UPDATE sessions SET revoked_at=NOW\(\)`).
		WithArgs("revoked_by_user", "sess-a", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := sessionCtx(t, http.MethodDelete, "/", "",
		middleware.Actor{UserID: 7, Role: model.RoleCustomer})
	c.SetPath("/v1/sessions/:id")
	c.SetParamNames("id")
	c.SetParamValues("sess-a")

	require.NoError(t, h.RevokeOne(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRevokeOthersKeepsCurrentByDefault(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewSessionHandler(repository.NewSessionRepo(db), zap.NewNop().Sugar())

	mock.ExpectExec(`UPDATE sessions SET revoked_at=NOW\(\)`).
		WithArgs("revoked_by_user", uint64(7), "sess-current").
		WillReturnResult(sqlmock.NewResult(0, 4))

	c, rec := sessionCtx(t, http.MethodPost, "/", `{}`,
		middleware.Actor{UserID: 7, Role: model.RoleCustomer, SessionID: "sess-current"})
	require.NoError(t, h.RevokeOthers(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"revoked":4`)
	assert.Contains(t, rec.Body.String(), `"failed":0`)
	assert.Contains(t, rec.Body.String(), `"kept":"sess-current"`)
}

func TestRevokeOthersHonorsExplicitExclusion(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewSessionHandler(repository.NewSessionRepo(db), zap.NewNop().Sugar())

	mock.ExpectExec(`UPDATE sessions SET revoked_at=NOW\(\)`).
		WithArgs("revoked_by_user", uint64(7), "sess-other").
		WillReturnResult(sqlmock.NewResult(0, 2))

	c, rec := sessionCtx(t, http.MethodPost, "/", `{"exclude_session_id":"sess-other"}`,
		middleware.Actor{UserID: 7, Role: model.RoleCustomer, SessionID: "sess-current"})
	require.NoError(t, h.RevokeOthers(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kept":"sess-other"`)
}

func TestInsightsRiskGrading(t *testing.T) {
	cases := []struct {
		name                      string
		active, devices, ips      int
		wantRisk                  string
		excessive, diverse, multi bool
	}{
		{"quiet account", 2, 1, 1, "low", false, false, false},
		{"one flag", 6, 1, 1, "elevated", true, false, false},
		{"all flags", 8, 5, 4, "high", true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			h := NewSessionHandler(repository.NewSessionRepo(db), zap.NewNop().Sugar())

			mock.ExpectQuery(`COUNT\(DISTINCT device\)`).
				WithArgs(uint64(7)).
				WillReturnRows(sqlmock.NewRows([]string{"active_sessions", "distinct_devices", "distinct_ips"}).
					AddRow(tc.active, tc.devices, tc.ips))

			c, rec := sessionCtx(t, http.MethodGet, "/", "",
				middleware.Actor{UserID: 7, Role: model.RoleCustomer})
			require.NoError(t, h.Insights(c))
			assert.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, `"risk":"`+tc.wantRisk+`"`)
			assert.Contains(t, body, `"excessive_session_count":`+boolStr(tc.excessive))
			assert.Contains(t, body, `"high_device_diversity":`+boolStr(tc.diverse))
			assert.Contains(t, body, `"multiple_locations":`+boolStr(tc.multi))
		})
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
