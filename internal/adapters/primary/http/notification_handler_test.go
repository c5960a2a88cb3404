package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	stdhttp "net/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// seedNotification persists a notification for the given recipient (or the
// admin group when recipientID is nil).
func seedNotification(t *testing.T, app *testApp, recipientID *uuid.UUID, title string) *domain.Notification {
	t.Helper()

	notification, err := app.notifService.Create(context.Background(), ports.CreateNotificationParams{
		RecipientID:    recipientID,
		AdminBroadcast: recipientID == nil,
		Category:       domain.CategorySystemAlert,
		Title:          title,
	})
	require.NoError(t, err)
	return notification
}

func TestListNotifications(t *testing.T) {
	app := newTestApp()
	user, token := app.registerUser(t)
	other, _ := app.registerUser(t)

	seedNotification(t, app, &user.ID, "for me")
	seedNotification(t, app, &other.ID, "for someone else")

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response ListResponse[NotificationDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, "for me", response.Data[0].Title)
}

func TestListNotifications_Unauthorized(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/v1/notifications", nil)
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

func TestListNotifications_BroadcastFeedRequiresAdmin(t *testing.T) {
	app := newTestApp()
	_, memberToken := app.registerUser(t)
	_, adminToken := app.registerAdmin(t)

	seedNotification(t, app, nil, "maintenance window")

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/v1/notifications?broadcast=true", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	recorder := httptest.NewRecorder()
	app.router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)

	req = httptest.NewRequest(stdhttp.MethodGet, "/api/v1/notifications?broadcast=true", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	recorder = httptest.NewRecorder()
	app.router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response ListResponse[NotificationDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.NotEmpty(t, response.Data)
	for _, dto := range response.Data {
		assert.True(t, dto.AdminBroadcast)
	}
}

func TestMarkRead(t *testing.T) {
	app := newTestApp()
	user, token := app.registerUser(t)

	first := seedNotification(t, app, &user.ID, "first")
	second := seedNotification(t, app, &user.ID, "second")

	body := fmt.Sprintf(`{"ids":[%q,%q]}`, first.ID, second.ID)
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/notifications/read", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response struct {
		Data MarkReadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.EqualValues(t, 2, response.Data.Updated)

	// Marking the same ids again transitions nothing.
	req = httptest.NewRequest(stdhttp.MethodPost, "/api/v1/notifications/read", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	recorder = httptest.NewRecorder()
	app.router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var repeat struct {
		Data MarkReadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&repeat))
	assert.Zero(t, repeat.Data.Updated)
}

func TestMarkRead_ForeignNotificationUntouched(t *testing.T) {
	app := newTestApp()
	_, token := app.registerUser(t)
	other, _ := app.registerUser(t)

	foreign := seedNotification(t, app, &other.ID, "not yours")

	body := fmt.Sprintf(`{"ids":[%q]}`, foreign.ID)
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/notifications/read", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response struct {
		Data MarkReadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Zero(t, response.Data.Updated)
}

func TestMarkAllRead(t *testing.T) {
	app := newTestApp()
	user, token := app.registerUser(t)

	seedNotification(t, app, &user.ID, "one")
	seedNotification(t, app, &user.ID, "two")

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/notifications/read-all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response struct {
		Data MarkReadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.EqualValues(t, 2, response.Data.Updated)
}

func TestDeleteNotification_AdminOnly(t *testing.T) {
	app := newTestApp()
	user, memberToken := app.registerUser(t)
	_, adminToken := app.registerAdmin(t)

	notification := seedNotification(t, app, &user.ID, "to delete")

	path := "/api/v1/notifications/" + notification.ID.String()

	req := httptest.NewRequest(stdhttp.MethodDelete, path, nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	recorder := httptest.NewRecorder()
	app.router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)

	req = httptest.NewRequest(stdhttp.MethodDelete, path, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	recorder = httptest.NewRecorder()
	app.router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusNoContent, recorder.Code)

	// Deleting again reports not found.
	req = httptest.NewRequest(stdhttp.MethodDelete, path, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	recorder = httptest.NewRecorder()
	app.router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusNotFound, recorder.Code)
}

func TestDeleteNotification_InvalidID(t *testing.T) {
	app := newTestApp()
	_, adminToken := app.registerAdmin(t)

	req := httptest.NewRequest(stdhttp.MethodDelete, "/api/v1/notifications/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
}
