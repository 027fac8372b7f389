package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"library-backend/internal/platform/clock"
)

type memStore struct{ accounts map[string]*Account }

func newMemStore() *memStore { return &memStore{accounts: map[string]*Account{}} }

func (m *memStore) GetByID(_ context.Context, id string) (*Account, error) {
	return m.accounts[id], nil
}

func (m *memStore) Create(_ context.Context, a *Account) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := m.accounts[id]; !ok {
		return 0, nil
	}
	delete(m.accounts, id)
	return 1, nil
}

var secret = []byte("test-secret")

func newService(store AccountStore) *Service {
	return NewService(store, secret, time.Hour, clock.Real{}, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(newMemStore())
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "librarian", "correct horse", RoleStaff))
	assert.ErrorIs(t, svc.Register(ctx, "librarian", "x", RoleStaff), ErrAlreadyExists)

	_, err := svc.Login(ctx, "librarian", "wrong")
	assert.ErrorIs(t, err, ErrBadLogin)

	signed, err := svc.Login(ctx, "librarian", "correct horse")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) { return secret, nil })
	require.NoError(t, err)
	assert.Equal(t, "librarian", claims["sub"])
	assert.Equal(t, RoleStaff, claims["role"])
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	err := newService(newMemStore()).Register(context.Background(), "x", "password1", "superuser")
	assert.Error(t, err)
}

func TestDisabledAccountCannotLogin(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	require.NoError(t, svc.Register(context.Background(), "old", "password1", RoleStaff))
	store.accounts["old"].IsDisabled = true

	_, err := svc.Login(context.Background(), "old", "password1")
	assert.ErrorIs(t, err, ErrBadLogin)
}

func TestDeleteUnknownAccount(t *testing.T) {
	assert.ErrorIs(t, newService(newMemStore()).Delete(context.Background(), "ghost"), ErrNotFound)
}

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "role": role, "exp": exp.Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func guarded(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", RequireAuth(secret))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/secret", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxUserIDKey)) })
	return r
}

func call(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := guarded()

	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, signToken(t, RoleStaff, time.Now().Add(-time.Minute))).Code)

	w := call(r, signToken(t, RoleStaff, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRequireAuthRejectsOtherAlgorithms(t *testing.T) {
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(guarded(), none).Code)
}

func TestRequireRole(t *testing.T) {
	r := guarded(RoleAdmin)
	assert.Equal(t, http.StatusForbidden, call(r, signToken(t, RoleStaff, time.Now().Add(time.Hour))).Code)
	assert.Equal(t, http.StatusOK, call(r, signToken(t, RoleAdmin, time.Now().Add(time.Hour))).Code)
}

func TestLoginHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newService(newMemStore())
	require.NoError(t, svc.Register(context.Background(), "admin", "password1", RoleAdmin))

	r := gin.New()
	RegisterRoutes(r, r, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"id":"admin","password":"password1"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"id":"admin","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/accounts", strings.NewReader(`{"id":"admin","password":"password2"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_KEY")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/auth/accounts/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoreGetByIDMissingReturnsNil(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectQuery("SELECT id, password_hash, role, is_disabled, created_at FROM staff_accounts").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash", "role", "is_disabled", "created_at"}))

	acct, err := NewStore(sqlx.NewDb(raw, "mysql")).GetByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, acct)
	assert.NoError(t, mock.ExpectationsWereMet())
}
