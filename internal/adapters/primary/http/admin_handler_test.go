package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	stdhttp "net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastAlert(t *testing.T) {
	app := newTestApp()
	_, adminToken := app.registerAdmin(t)

	body := `{"title":"Scheduled Maintenance","body":"The gym closes early on Friday."}`
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/admin/alerts", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	var dto NotificationDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dto))
	assert.Equal(t, "Scheduled Maintenance", dto.Title)
	assert.Equal(t, "system_alert", dto.Category)
	assert.True(t, dto.AdminBroadcast)
}

func TestBroadcastAlert_MemberForbidden(t *testing.T) {
	app := newTestApp()
	_, memberToken := app.registerUser(t)

	body := `{"title":"Not allowed"}`
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/admin/alerts", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+memberToken)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)
}

func TestBroadcastAlert_TitleRequired(t *testing.T) {
	app := newTestApp()
	_, adminToken := app.registerAdmin(t)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/admin/alerts", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
}
