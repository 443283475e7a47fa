package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ekinsu/auth-service/internal/auth"
	"github.com/ekinsu/auth-service/internal/config"
	"github.com/ekinsu/auth-service/internal/handler"
	"github.com/ekinsu/auth-service/internal/model"
	"github.com/ekinsu/auth-service/internal/repository"
	"github.com/ekinsu/auth-service/internal/router"
)

// memDirectory and memLedger stand in for the MySQL stores so the
// whole HTTP surface can be exercised in-process.
type memDirectory struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (d *memDirectory) Save(_ context.Context, u *model.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for email, existing := range d.byEmail {
		if email == u.Email && existing.ID != u.ID {
			return repository.ErrEmailExists
		}
		if existing.ID == u.ID && email != u.Email {
			delete(d.byEmail, email)
		}
	}
	cp := *u
	d.byEmail[u.Email] = &cp
	return nil
}

func (d *memDirectory) DeleteByEmail(_ context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byEmail, email)
	return nil
}

func (d *memDirectory) ExistsByEmail(_ context.Context, email string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.byEmail[email]
	return ok, nil
}

func (d *memDirectory) List(_ context.Context, offset, limit int) ([]model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.User
	for _, u := range d.byEmail {
		out = append(out, *u)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memLedger struct {
	mu   sync.Mutex
	rows map[string]*model.IssuedToken
}

func (l *memLedger) Register(_ context.Context, tok model.IssuedToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[tok.ID] = &tok
	return nil
}

func (l *memLedger) RotateForUser(_ context.Context, userID, keepID string, tokens ...model.IssuedToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, row := range l.rows {
		if row.UserID == userID && row.ID != keepID {
			row.Revoked = true
			row.Expired = true
		}
	}
	for _, tok := range tokens {
		cp := tok
		l.rows[tok.ID] = &cp
	}
	return nil
}

func (l *memLedger) RevokeAllForUser(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, row := range l.rows {
		if row.UserID == userID {
			row.Revoked = true
			row.Expired = true
		}
	}
	return nil
}

func (l *memLedger) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[tokenID]
	if !ok {
		return true, nil
	}
	return row.Revoked || row.Expired, nil
}

func (l *memLedger) Sweep(_ context.Context) (int64, error) { return 0, nil }

func newTestServer(t *testing.T) (*echo.Echo, *auth.Service) {
	t.Helper()
	codec, err := auth.NewCodec("server-test-secret", 15*time.Minute, 24*time.Hour, time.Now)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	svc := auth.NewService(
		&memDirectory{byEmail: map[string]*model.User{}},
		&memLedger{rows: map[string]*model.IssuedToken{}},
		codec, 4)

	e := echo.New()
	router.Register(e, router.Deps{
		Svc:     svc,
		Policy:  auth.NewPolicy(),
		Auth:    handler.NewAuthHandler(svc, nil, nil),
		Users:   handler.NewUserHandler(svc, nil),
		RateCfg: config.RateLimitConfig{Enabled: false},
	})
	return e, svc
}

func doJSON(e *echo.Echo, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type tokenPartResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authBody struct {
	User struct {
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	} `json:"user"`
	Access  tokenPartResp `json:"access"`
	Refresh tokenPartResp `json:"refresh"`
}

func signUpBody() map[string]string {
	return map[string]string{
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"email":        "ada@example.com",
		"password":     "pass1234",
		"phone_number": "555-123-4567",
	}
}

func mustSignUp(t *testing.T, e *echo.Echo) authBody {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/v1/auth/signup", "", signUpBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign-up status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body authBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode sign-up response: %v", err)
	}
	return body
}

func TestSignUpEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	body := mustSignUp(t, e)
	if body.User.Email != "ada@example.com" {
		t.Errorf("email = %q", body.User.Email)
	}
	if body.Access.Token == "" || body.Refresh.Token == "" {
		t.Fatal("response missing tokens")
	}
	if !body.Refresh.Expires.After(body.Access.Expires) {
		t.Error("refresh expiry not beyond access expiry")
	}

	if rec := doJSON(e, http.MethodPost, "/v1/auth/signup", "", signUpBody()); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate sign-up status = %d, want 409", rec.Code)
	}

	bad := signUpBody()
	bad["email"] = "nope"
	if rec := doJSON(e, http.MethodPost, "/v1/auth/signup", "", bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid sign-up status = %d, want 400", rec.Code)
	}
}

func TestSignInEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	mustSignUp(t, e)

	rec := doJSON(e, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "ada@example.com", "password": "pass1234"})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "ada@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "ghost@example.com", "password": "pass1234"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown email status = %d, want 404", rec.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	first := mustSignUp(t, e)

	rec := doJSON(e, http.MethodPost, "/v1/auth/refresh", first.Refresh.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	var next authBody
	if err := json.Unmarshal(rec.Body.Bytes(), &next); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if next.Refresh.Token != first.Refresh.Token {
		t.Fatal("refresh token changed across refresh")
	}
	if next.Access.Token == first.Access.Token {
		t.Fatal("access token not reissued")
	}

	// The access token cannot drive a refresh.
	if rec := doJSON(e, http.MethodPost, "/v1/auth/refresh", next.Access.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token status = %d, want 401", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/v1/auth/refresh", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh without token status = %d, want 401", rec.Code)
	}
}

func TestLogoutAndProtectedRoutes(t *testing.T) {
	e, _ := newTestServer(t)
	pair := mustSignUp(t, e)

	rec := doJSON(e, http.MethodGet, "/v1/me", pair.Access.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/v1/me status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(e, http.MethodGet, "/v1/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("/v1/me without token status = %d, want 401", rec.Code)
	}

	if rec := doJSON(e, http.MethodPost, "/v1/auth/logout", pair.Access.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/v1/me", pair.Access.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("/v1/me after logout status = %d, want 401", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/v1/auth/refresh", pair.Refresh.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", rec.Code)
	}
}

func TestAdminGating(t *testing.T) {
	e, svc := newTestServer(t)
	user := mustSignUp(t, e)

	// Plain users cannot reach user management.
	if rec := doJSON(e, http.MethodGet, "/v1/users", user.Access.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("list as USER status = %d, want 403", rec.Code)
	}
	if rec := doJSON(e, http.MethodDelete, "/v1/users/ada@example.com", user.Access.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("delete as USER status = %d, want 403", rec.Code)
	}

	_, err := svc.CreateUser(context.Background(), "seed", auth.CreateUserRequest{
		FirstName:   "Root",
		LastName:    "Admin",
		Email:       "root@example.com",
		Password:    "rootpass1",
		PhoneNumber: "5551234567",
		Roles:       []model.Role{model.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	rec := doJSON(e, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "root@example.com", "password": "rootpass1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin sign-in status = %d", rec.Code)
	}
	var admin authBody
	if err := json.Unmarshal(rec.Body.Bytes(), &admin); err != nil {
		t.Fatalf("decode admin sign-in: %v", err)
	}

	if rec := doJSON(e, http.MethodGet, "/v1/users", admin.Access.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("list as ADMIN status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(e, http.MethodGet, "/v1/users/ada@example.com", admin.Access.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("get user as ADMIN status = %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodDelete, "/v1/users/ada@example.com", admin.Access.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete as ADMIN status = %d, want 204", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/v1/users/ada@example.com", admin.Access.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted user status = %d, want 404", rec.Code)
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	pair := mustSignUp(t, e)

	rec := doJSON(e, http.MethodPut, "/v1/me/password", pair.Access.Token,
		map[string]string{"current_password": "pass1234", "new_password": "fresh5678"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("change password status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Old session and old password are both dead.
	if rec := doJSON(e, http.MethodGet, "/v1/me", pair.Access.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("/v1/me after password change status = %d, want 401", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "ada@example.com", "password": "pass1234"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("sign-in with old password status = %d, want 401", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "ada@example.com", "password": "fresh5678"})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in with new password status = %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}
