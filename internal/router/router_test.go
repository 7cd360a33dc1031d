package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spmukhedkar/user-role-system-server/internal/auth"
	"github.com/spmukhedkar/user-role-system-server/internal/handler"
	"github.com/spmukhedkar/user-role-system-server/internal/observe"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
	"github.com/spmukhedkar/user-role-system-server/internal/service"
)

type testServer struct {
	e          *echo.Echo
	users      service.UserService
	roles      service.RoleService
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens := auth.NewJWTService("secret", time.Hour)
	registry := auth.NewSessionRegistry(store.Sessions())
	roles := service.NewRoleService(store.Roles(), nil, time.Minute)
	users := service.NewUserService(store.Users(), store, roles, auth.NewPasswordHasher(bcrypt.MinCost), tokens, registry, "IN")
	gate := auth.NewGate(tokens, store.Users(), registry, auth.DefaultAdminRole)

	prom, err := observe.NewPrometheusProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = prom.Shutdown(context.Background()) })

	e := New(Deps{
		Gate:           gate,
		Users:          handler.NewUserHandler(users),
		Roles:          handler.NewRoleHandler(roles),
		Metrics:        prom.Metrics,
		MetricsHandler: prom.Handler(),
	})

	ctx := context.Background()
	adminRole, err := roles.EnsureRole(ctx, auth.DefaultAdminRole)
	require.NoError(t, err)
	root, err := users.Signup(ctx, service.SignupInput{UserName: "root", Password: "r00t", UserRoles: adminRole.ID.String()})
	require.NoError(t, err)

	return &testServer{e: e, users: users, roles: roles, adminToken: root.Token}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAccountFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v2/users/signup", "", map[string]string{"userName": "alice", "password": "p1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var signup handler.AuthResponse
	decode(t, rec, &signup)
	assert.Equal(t, "User Saved Successfully", signup.Message)
	assert.False(t, signup.User.Authorize)
	assert.NotContains(t, rec.Body.String(), "password")
	t1 := signup.Token

	rec = s.do(t, http.MethodPost, "/api/v2/users/signin", "", map[string]string{"userName": "alice", "password": "p1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var signin handler.AuthResponse
	decode(t, rec, &signin)
	t2 := signin.Token
	assert.NotEqual(t, t1, t2)

	rec = s.do(t, http.MethodPost, "/api/v2/users/signout", t1, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Signout Successful"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v2/users/me", t1, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v2/users/signout", t1, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v2/users/me", t2, nil).Code)

	rec = s.do(t, http.MethodPost, "/api/v2/users/changeAuthorizeStatus", s.adminToken,
		map[string]interface{}{"userId": signup.User.ID.String(), "authorize": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v2/users/getUsersByAuthType?authType=true", s.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list handler.UsersResponse
	decode(t, rec, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "alice", list.Users[0].UserName)
	assert.True(t, list.Users[0].Authorize)
}

func TestSigninMissingParameters(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "no password", body: map[string]string{"userName": "root"}},
		{name: "no userName", body: map[string]string{"password": "r00t"}},
		{name: "empty body", body: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v2/users/signin", "", tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "MISSING_PARAMETERS")
		})
	}
}

func TestSigninBadCredentials(t *testing.T) {
	s := newTestServer(t)

	wrong := s.do(t, http.MethodPost, "/api/v2/users/signin", "", map[string]string{"userName": "root", "password": "nope"})
	unknown := s.do(t, http.MethodPost, "/api/v2/users/signin", "", map[string]string{"userName": "ghost", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestChangeAuthorizeStatus(t *testing.T) {
	s := newTestServer(t)
	res, err := s.users.Signup(context.Background(), service.SignupInput{UserName: "bob", Password: "pw"})
	require.NoError(t, err)
	id := res.User.ID.String()

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{name: "missing authorize", body: map[string]interface{}{"userId": id}, want: http.StatusUnauthorized},
		{name: "missing userId", body: map[string]interface{}{"authorize": true}, want: http.StatusUnauthorized},
		{name: "unknown user", body: map[string]interface{}{"userId": "00000000-0000-0000-0000-000000000001", "authorize": true}, want: http.StatusNotFound},
		{name: "grant", body: map[string]interface{}{"userId": id, "authorize": true}, want: http.StatusOK},
		{name: "false is a value", body: map[string]interface{}{"userId": id, "authorize": false}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v2/users/changeAuthorizeStatus", s.adminToken, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestGateOnAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	member, err := s.users.Signup(context.Background(), service.SignupInput{UserName: "bob", Password: "pw"})
	require.NoError(t, err)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v2/roles/getAllRoles"},
		{http.MethodPost, "/api/v2/roles/createRole"},
		{http.MethodGet, "/api/v2/users/getUsersByAuthType?authType=all"},
		{http.MethodPost, "/api/v2/users/changeAuthorizeStatus"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, s.do(t, r.method, r.path, "", nil).Code)
			assert.Equal(t, http.StatusUnauthorized, s.do(t, r.method, r.path, "not-a-token", nil).Code)
			assert.Equal(t, http.StatusForbidden, s.do(t, r.method, r.path, member.Token, nil).Code)
		})
	}
}

func TestRoles(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v2/roles/createRole", s.adminToken, map[string]string{"name": "editor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created handler.RoleResponse
	decode(t, rec, &created)
	assert.Equal(t, "editor", created.Role.Name)

	rec = s.do(t, http.MethodPost, "/api/v2/roles/createRole", s.adminToken, map[string]string{"name": "editor"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v2/roles/getAllRoles", s.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list handler.RolesResponse
	decode(t, rec, &list)
	assert.Equal(t, 2, list.Count)

	rec = s.do(t, http.MethodPost, "/api/v2/users/signup", "",
		map[string]string{"userName": "carol", "password": "pw", "userRoles": created.Role.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var signup handler.AuthResponse
	decode(t, rec, &signup)
	assert.Equal(t, "editor", signup.User.RoleName)
}

func TestGetUsersByAuthTypeRejectsUnknownType(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v2/users/getUsersByAuthType?authType=maybe", s.adminToken, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)

	dup := s.do(t, http.MethodPost, "/api/v2/users/signup", "", map[string]string{"userName": "root", "password": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, dup.Code)

	long := s.do(t, http.MethodPost, "/api/v2/users/signup", "", map[string]string{"userName": "dave", "password": string(bytes.Repeat([]byte("a"), 80))})
	assert.Equal(t, http.StatusUnprocessableEntity, long.Code)

	// 40 characters but 80 bytes
	wide := s.do(t, http.MethodPost, "/api/v2/users/signup", "", map[string]string{"userName": "erin", "password": strings.Repeat("é", 40)})
	assert.Equal(t, http.StatusUnprocessableEntity, wide.Code)
	var body map[string]string
	decode(t, wide, &body)
	assert.Equal(t, "PASSWORD_TOO_LONG", body["code"])

	fits := s.do(t, http.MethodPost, "/api/v2/users/signup", "", map[string]string{"userName": "erin", "password": strings.Repeat("é", 36)})
	assert.Equal(t, http.StatusCreated, fits.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/users/signup", bytes.NewBufferString("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v2/users/signin", nil)
	req.Header.Set(echo.HeaderOrigin, "http://example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), echo.HeaderAuthorization)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)

	s.do(t, http.MethodPost, "/api/v2/users/signout", "", nil)
	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_gate_decisions")
	assert.Contains(t, rec.Body.String(), "http_server_requests")
}
