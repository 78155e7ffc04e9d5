package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/session"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
	"github.com/dmitrijs2005/accountkeeper/internal/server/users"
)

type captureMailer struct {
	mu         sync.Mutex
	resetToken string
	password   string
}

func (m *captureMailer) SendResetPassword(_ context.Context, _ *models.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetToken = token
	return nil
}

func (m *captureMailer) SendPassword(_ context.Context, _ *models.User, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.password = password
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	handler *Handler
	dir     *users.Service
	mail    *captureMailer
	pinger  *fakePinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rm := repomanager.NewKVRepositoryManager(store.NewMemoryBackend())
	issuer, err := auth.NewIssuer(rm.RefreshTokens(), rm.Users(), auth.Options{
		Secret:     "test-secret",
		Algorithm:  "HS256",
		Audience:   "accountkeeper",
		Issuer:     "accountkeeper",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	mail := &captureMailer{}
	dir := users.NewService(rm, issuer, mail, logging.Discard(), users.Options{PasswordTokenTTL: time.Hour})
	pinger := &fakePinger{}

	h := NewHandler(dir, issuer, session.NewValidator(issuer, rm.Users()), pinger, logging.Discard(), Options{
		CORSOrigins: []string{"https://app.example"},
	})
	return &testEnv{handler: h, dir: dir, mail: mail, pinger: pinger}
}

func (e *testEnv) addUser(t *testing.T, email, password, role string) string {
	t.Helper()
	res, err := e.dir.New(context.Background(), users.NewUser{Email: email, Firstname: "John", Lastname: "Doe", Role: role}, password)
	require.NoError(t, err)
	return res.ID
}

type credentials struct {
	access  string
	refresh string
	xsrf    string
}

func (e *testEnv) do(t *testing.T, method, path string, body any, creds *credentials) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if creds != nil {
		if creds.access != "" {
			req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: creds.access})
		}
		if creds.refresh != "" {
			req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: creds.refresh})
		}
		if creds.xsrf != "" {
			req.Header.Set(common.XsrfTokenHeaderName, creds.xsrf)
		}
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signIn(t *testing.T, email, password string) *credentials {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users/signIn", map[string]string{
		"authMethod": "emailAuth", "email": email, "password": password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return credentialsFrom(t, rec)
}

func credentialsFrom(t *testing.T, rec *httptest.ResponseRecorder) *credentials {
	t.Helper()
	var body sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	c := &credentials{xsrf: body.XsrfToken}
	for _, ck := range rec.Result().Cookies() {
		switch ck.Name {
		case common.AccessTokenCookieName:
			c.access = ck.Value
		case common.RefreshTokenCookieName:
			c.refresh = ck.Value
		}
	}
	return c
}

func errorName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Name
}

func TestSignIn_Scenario(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "john@doe.com", "pass1234", "admin")

	rec := env.do(t, http.MethodPost, "/api/users/signIn", map[string]string{
		"authMethod": "emailAuth", "email": "john@doe.com", "password": "pass1234",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, rec.Header().Values("Set-Cookie"), 2)
	for _, c := range cookies {
		assert.True(t, c.HttpOnly, c.Name)
		assert.True(t, c.Secure, c.Name)
		assert.Equal(t, http.SameSiteNoneMode, c.SameSite, c.Name)
		assert.Equal(t, "/api/", c.Path, c.Name)
	}

	var body sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.XsrfToken)
	assert.True(t, body.IsAuth)
	assert.Equal(t, int64(15*60*1000), body.AccessTokenExpiresIn)
	assert.Equal(t, int64(60*60*1000), body.RefreshTokenExpiresIn)
	require.NotNil(t, body.User)
	assert.Equal(t, "john@doe.com", body.User.Email)
	assert.NotContains(t, rec.Body.String(), "hashedPassword")
	assert.NotContains(t, rec.Body.String(), "salt")

	rec = env.do(t, http.MethodPost, "/api/users/signIn", map[string]string{
		"authMethod": "emailAuth", "email": "john@doe.com", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "BadCredentials", errorName(t, rec))
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestSignIn_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.addUser(t, "john@doe.com", "pass1234", "admin")
	user, err := env.dir.Get(context.Background(), users.Lookup{ID: id})
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   any
		status int
		errNm  string
	}{
		{"unknown method", map[string]string{"authMethod": "smsAuth", "email": "john@doe.com", "password": "pass1234"}, http.StatusUnauthorized, "AuthMethodNotRecognized"},
		{"missing password", map[string]string{"authMethod": "emailAuth", "email": "john@doe.com"}, http.StatusBadRequest, "MissingRequiredParameter"},
		{"missing email", map[string]string{"authMethod": "emailAuth", "password": "x"}, http.StatusBadRequest, "MissingRequiredParameter"},
		{"missing token", map[string]string{"authMethod": "streamLineAuth", "password": "x"}, http.StatusBadRequest, "MissingRequiredParameter"},
		{"not json", "{", http.StatusBadRequest, "MissingRequiredParameter"},
		{"unknown email", map[string]string{"authMethod": "emailAuth", "email": "x@doe.com", "password": "pass1234"}, http.StatusUnauthorized, "BadCredentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/users/signIn", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.errNm, errorName(t, rec))
		})
	}

	rec := env.do(t, http.MethodPost, "/api/users/signIn", map[string]string{
		"authMethod": "streamLineAuth", "token": user.URLToken, "password": "pass1234",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "john@doe.com", "pass1234", "admin")
	creds := env.signIn(t, "john@doe.com", "pass1234")

	rec := env.do(t, http.MethodGet, "/api/users/refreshToken", nil, &credentials{refresh: creds.refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := credentialsFrom(t, rec)
	assert.NotEqual(t, creds.refresh, next.refresh)
	assert.NotEqual(t, creds.xsrf, next.xsrf)

	rec = env.do(t, http.MethodGet, "/api/users/refreshToken", nil, &credentials{refresh: creds.refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "InvalidToken", errorName(t, rec))

	rec = env.do(t, http.MethodGet, "/api/users/refreshToken", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MissingRefreshToken", errorName(t, rec))

	rec = env.do(t, http.MethodGet, "/api/users/getAuth", nil, next)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetAuth(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "john@doe.com", "pass1234", "admin")
	creds := env.signIn(t, "john@doe.com", "pass1234")

	rec := env.do(t, http.MethodGet, "/api/users/getAuth", nil, creds)
	require.Equal(t, http.StatusOK, rec.Code)
	var body authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.IsAuth)
	assert.Equal(t, "john@doe.com", body.User.Email)

	tests := []struct {
		name  string
		creds *credentials
		errNm string
	}{
		{"no credentials", nil, "MissingAccessToken"},
		{"no xsrf", &credentials{access: creds.access}, "MissingAccessToken"},
		{"mismatched xsrf", &credentials{access: creds.access, xsrf: "forged"}, "InvalidToken"},
		{"garbage token", &credentials{access: "garbage", xsrf: creds.xsrf}, "InvalidToken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/users/getAuth", nil, tt.creds)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.errNm, errorName(t, rec))
		})
	}
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "john@doe.com", "pass1234", "admin")
	admin := env.signIn(t, "john@doe.com", "pass1234")

	rec := env.do(t, http.MethodPost, "/api/users", map[string]any{
		"email": "jane@doe.com", "firstname": "Jane", "lastname": "Doe", "role": "customer",
		"sendPasswordByEmail": true,
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var added users.AddResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.True(t, added.UserAdded)
	require.Len(t, env.mail.password, 12)

	// the generated password works
	env.signIn(t, "jane@doe.com", env.mail.password)

	rec = env.do(t, http.MethodPost, "/api/users", map[string]any{
		"email": "jane@doe.com", "role": "customer", "password": "x",
	}, admin)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "UserAlreadyExists", errorName(t, rec))

	rec = env.do(t, http.MethodPost, "/api/users", map[string]any{"email": "nope", "role": "customer"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users", map[string]any{"email": "a@b.co", "role": "root"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users?role=customer", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, added.ID, list[0].ID)

	rec = env.do(t, http.MethodGet, "/api/users", nil, admin)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = env.do(t, http.MethodPut, "/api/users/"+added.ID, map[string]any{"email": "jane.doe@doe.com", "role": "admin"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"userUpdated":true,"id":"`+added.ID+`"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/users/"+added.ID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "jane.doe@doe.com", got.Email)
	assert.Equal(t, models.RoleAdmin, got.Role)

	rec = env.do(t, http.MethodDelete, "/api/users/"+added.ID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userDeleted":true,"id":"`+added.ID+`"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/users/"+added.ID, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UserDoesNotExist", errorName(t, rec))
}

func TestCustomerPermissions(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.addUser(t, "john@doe.com", "pass1234", "admin")
	selfID := env.addUser(t, "jane@doe.com", "pass1234", "customer")
	customer := env.signIn(t, "jane@doe.com", "pass1234")

	rec := env.do(t, http.MethodGet, "/api/users", nil, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "UserNotAuthorized", errorName(t, rec))

	rec = env.do(t, http.MethodDelete, "/api/users/"+adminID, nil, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/users/"+selfID, map[string]any{"firstname": "Janet", "password": "newpass"}, customer)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.signIn(t, "jane@doe.com", "newpass")

	rec = env.do(t, http.MethodPut, "/api/users/"+selfID, map[string]any{"email": "other@doe.com"}, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/users/"+selfID, map[string]any{"role": "admin"}, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/users/"+adminID, map[string]any{"firstname": "X"}, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users", map[string]any{"email": "x@doe.com", "role": "customer"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetPassword_Scenario(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "john@doe.com", "pass1234", "admin")

	rec := env.do(t, http.MethodPost, "/api/users/askResetPassword", map[string]string{"email": "john@doe.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, env.mail.resetToken)

	rec = env.do(t, http.MethodPut, "/api/users/resetPassword", map[string]string{
		"token": env.mail.resetToken, "password": "brandnew",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"passwordReset":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/users/signIn", map[string]string{
		"authMethod": "emailAuth", "email": "john@doe.com", "password": "pass1234",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.signIn(t, "john@doe.com", "brandnew")
}

func TestResetPassword_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users/askResetPassword", map[string]string{"email": "nobody@doe.com"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/users/askResetPassword", "{", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/users/resetPassword", map[string]string{"token": "nope", "password": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MissingPasswordToken", errorName(t, rec))

	rec = env.do(t, http.MethodPut, "/api/users/resetPassword", map[string]string{"password": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MissingPasswordToken", errorName(t, rec))

	rec = env.do(t, http.MethodPut, "/api/users/resetPassword", map[string]string{"token": "t"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/users/signIn", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), common.XsrfTokenHeaderName)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.pinger.err = errors.New("down")
	rec = env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "john@doe.com", "pass1234", "admin")
	env.signIn(t, "john@doe.com", "pass1234")

	rec := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.True(t, strings.Contains(out, `accountkeeper_api_http_requests_total{method="POST",route="POST /api/users/signIn",status="200"} 1`), out)
	assert.Contains(t, out, `accountkeeper_auth_sign_ins_total{method="emailAuth",outcome="ok"} 1`)
}
