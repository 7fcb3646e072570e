package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []FieldError    `json:"errors"`
	Error   string          `json:"error"`
}

func newTestMux(t *testing.T, f *fixture, dev bool) *http.ServeMux {
	t.Helper()
	h := NewHandler(f.svc, zap.NewNop().Sugar(), dev)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register/{role}", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.Handle("GET /auth/me", h.RequireAuth(http.HandlerFunc(h.Me)))
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body, bearer string) (int, testResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.NotContains(t, rec.Body.String(), "$2a$")
	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

const workerBody = `{
	"fullName": "Asha Rao",
	"email": "asha@example.com",
	"phone": "9876543210",
	"password": "s3cret-pass",
	"confirmPassword": "s3cret-pass",
	"dateOfBirth": "1998-04-12T00:00:00.000Z",
	"gender": "female",
	"location": "Pune",
	"skills": "ushering, anchoring",
	"experience": "intermediate"
}`

func TestHandlerRegisterLoginMe(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f, false)

	code, resp := do(t, mux, http.MethodPost, "/auth/register/worker", workerBody, "")
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.True(t, resp.Success)
	assert.Equal(t, "Registration successful", resp.Message)

	var reg struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "worker", reg.User["role"])
	assert.Equal(t, "+919876543210", reg.User["phone"])
	assert.Equal(t, "unverified", reg.User["kycStatus"])

	code, resp = do(t, mux, http.MethodPost, "/auth/login", `{"email":"asha@example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful", resp.Message)

	code, resp = do(t, mux, http.MethodGet, "/auth/me", "", reg.Token)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		User    map[string]any `json:"user"`
		Profile map[string]any `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.Equal(t, "asha@example.com", me.User["email"])
	assert.Equal(t, true, me.User["isActive"])
	require.NotNil(t, me.Profile)
	assert.Equal(t, "intermediate", me.Profile["experienceLevel"])
	assert.Equal(t, []any{"ushering", "anchoring"}, me.Profile["skills"])
	assert.Equal(t, "Pune", me.Profile["location"].(map[string]any)["city"])
}

func TestHandlerRegisterOrganizerStringAddress(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f, false)
	body := `{"fullName":"Vikram Shah","email":"v@example.com","phone":"+918765432109",
		"password":"s3cret-pass","confirmPassword":"s3cret-pass",
		"organizationName":"Acme Events","organizationType":"ngo","address":"12 MG Road, Pune"}`

	code, resp := do(t, mux, http.MethodPost, "/auth/register/organizer", body, "")
	require.Equal(t, http.StatusCreated, code, resp.Errors)
	assert.Equal(t, 1, f.profiles.count())
}

func TestHandlerRegisterFailures(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f, false)

	code, resp := do(t, mux, http.MethodPost, "/auth/register/admin", workerBody, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid role specified", resp.Message)
	assert.False(t, resp.Success)

	code, resp = do(t, mux, http.MethodPost, "/auth/register/worker", `{"email":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, resp.Errors)

	code, _ = do(t, mux, http.MethodPost, "/auth/register/worker", workerBody, "")
	require.Equal(t, http.StatusCreated, code)
	code, resp = do(t, mux, http.MethodPost, "/auth/register/worker", workerBody, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already registered", resp.Message)

	code, _ = do(t, mux, http.MethodPost, "/auth/register/worker", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandlerLoginFailures(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f, false)
	code, _ := do(t, mux, http.MethodPost, "/auth/register/worker", workerBody, "")
	require.Equal(t, http.StatusCreated, code)

	code, resp := do(t, mux, http.MethodPost, "/auth/login", `{"email":"asha@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please provide email and password", resp.Message)

	code, resp = do(t, mux, http.MethodPost, "/auth/login", `{"email":"asha-at-example","password":"bad-pass-1"}`, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Valid email is required", resp.Message)

	code, wrong := do(t, mux, http.MethodPost, "/auth/login", `{"email":"asha@example.com","password":"bad-pass-1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, unknown := do(t, mux, http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"bad-pass-1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, wrong, unknown)
	assert.Equal(t, "Invalid credentials", wrong.Message)

	require.NoError(t, f.svc.Deactivate(context.Background(), "asha@example.com"))
	code, resp = do(t, mux, http.MethodPost, "/auth/login", `{"email":"asha@example.com","password":"s3cret-pass"}`, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Account has been deactivated", resp.Message)
}

func TestHandlerMeRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f, false)

	code, resp := do(t, mux, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, no token", resp.Message)

	code, _ = do(t, mux, http.MethodGet, "/auth/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, code)

	tok, _, err := f.tokens.Issue("999", "worker", 1)
	require.NoError(t, err)
	code, resp = do(t, mux, http.MethodGet, "/auth/me", "", tok)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", resp.Message)
}

func TestHandlerInternalErrorDiagnostics(t *testing.T) {
	for _, dev := range []bool{false, true} {
		f := newFixture(t, WithProfileAttempts(1))
		f.profiles.failN = -1
		f.profiles.failErr = errors.New("pq: connection refused")
		mux := newTestMux(t, f, dev)

		code, resp := do(t, mux, http.MethodPost, "/auth/register/worker", workerBody, "")
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "Server error during registration", resp.Message)
		if dev {
			assert.Contains(t, resp.Error, "connection refused")
		} else {
			assert.Empty(t, resp.Error)
		}
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := BearerToken(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "bearer abc.def")
	tok, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	_, ok = BearerToken(req)
	assert.False(t, ok)
}
