package http

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	stdhttp "net/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	app := newTestApp()

	email := uuid.NewString() + "@example.com"
	body := fmt.Sprintf(`{"fullName":"Jamie Rivers","email":%q,"password":"Password1!"}`, email)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	var response TokenResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, email, response.User.Email)
	assert.Equal(t, "member", response.User.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := newTestApp()
	user, _ := app.registerUser(t)

	body := fmt.Sprintf(`{"fullName":"Someone Else","email":%q,"password":"Password1!"}`, user.Email)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusConflict, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "USER_EXISTS", response.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/auth/register", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

	var response ValidationErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Contains(t, response.Fields, "email")
	assert.Contains(t, response.Fields, "password")
}

func TestLogin(t *testing.T) {
	app := newTestApp()
	user, _ := app.registerUser(t)

	body := fmt.Sprintf(`{"email":%q,"password":"Password1!"}`, user.Email)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.NotEmpty(t, response.Data.Token)
	assert.Equal(t, user.ID.String(), response.Data.User.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	app := newTestApp()
	user, _ := app.registerUser(t)

	body := fmt.Sprintf(`{"email":%q,"password":"WrongPassword1"}`, user.Email)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "INVALID_CREDENTIALS", response.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	app := newTestApp()

	body := fmt.Sprintf(`{"email":%q,"password":"Password1!"}`, uuid.NewString()+"@example.com")

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	app.router.ServeHTTP(recorder, req)

	// Unknown emails are indistinguishable from bad passwords.
	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}
