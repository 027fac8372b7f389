package regions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/ids"
)

type memRepo struct {
	rows       map[string]Region
	referenced map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]Region{}, referenced: map[string]bool{}}
}

func (m *memRepo) Insert(_ context.Context, r *Region) error {
	m.rows[r.ID] = *r
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*Region, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("Region", id)
	}
	return &r, nil
}

func (m *memRepo) GetMany(_ context.Context, ids []string) ([]Region, error) {
	out := []Region{}
	for _, id := range ids {
		if r, ok := m.rows[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) List(context.Context) ([]Region, error) {
	out := []Region{}
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) Update(_ context.Context, r *Region) error {
	m.rows[r.ID] = *r
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) (int64, error) {
	if m.referenced[id] {
		return 0, apperr.BusinessRule("Cannot delete region referenced by producers or wines")
	}
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.rows[id]
	return ok, nil
}

func newService(repo Repository) *Service {
	clk := clock.NewFixed(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return NewService(repo, clk, ids.NewULID(), zap.NewNop())
}

func strp(s string) *string { return &s }

func TestCreateAndPartialUpdate(t *testing.T) {
	svc := newService(newMemRepo())
	ctx := context.Background()

	r, err := svc.Create(ctx, CreateRequest{Name: "Bordeaux", Country: "France", Climate: strp("Maritime")})
	require.NoError(t, err)
	assert.Len(t, r.ID, 26)
	assert.Nil(t, r.Description)

	got, err := svc.Update(ctx, r.ID, UpdateRequest{Description: strp("Left bank")})
	require.NoError(t, err)
	assert.Equal(t, "Bordeaux", got.Name)
	assert.Equal(t, "Maritime", *got.Climate)
	assert.Equal(t, "Left bank", *got.Description)

	_, err = svc.Update(ctx, "missing", UpdateRequest{Name: strp("x")})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestDelete(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	ctx := context.Background()

	r, err := svc.Create(ctx, CreateRequest{Name: "Rioja", Country: "Spain"})
	require.NoError(t, err)

	repo.referenced[r.ID] = true
	err = svc.Delete(ctx, r.ID)
	assert.True(t, apperr.Is(err, apperr.CodeBusinessRule))

	repo.referenced[r.ID] = false
	require.NoError(t, svc.Delete(ctx, r.ID))
	err = svc.Delete(ctx, r.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	assert.Equal(t, "Region not found with id: "+r.ID, err.(*apperr.APIError).Message)
}

func TestLookup(t *testing.T) {
	svc := newService(newMemRepo())
	ctx := context.Background()
	a, _ := svc.Create(ctx, CreateRequest{Name: "Mosel", Country: "Germany"})

	m, err := svc.Lookup(ctx, []string{a.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, m, 1)
	assert.Equal(t, "Mosel", m[a.ID].Name)
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), newService(newMemRepo()))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/api/v1/regions", `{"name":"Napa","country":"USA"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res RegionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "/api/v1/regions/"+res.ID, w.Header().Get("Location"))

	w = do(http.MethodPost, "/api/v1/regions", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"country":"is required"`)

	w = do(http.MethodPut, "/api/v1/regions/"+res.ID, `{"climate":"Warm"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"climate":"Warm"`)

	w = do(http.MethodGet, "/api/v1/regions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), res.ID)

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/api/v1/regions/"+res.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/api/v1/regions/"+res.ID, "").Code)
}

func TestStoreDeleteReferenced(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	s := NewStore(sqlx.NewDb(raw, "mysql"))

	mock.ExpectExec(`DELETE FROM regions WHERE id = \?`).WithArgs("r1").
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
	mock.ExpectExec(`DELETE FROM regions WHERE id = \?`).WithArgs("r2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = s.Delete(context.Background(), "r1")
	assert.True(t, apperr.Is(err, apperr.CodeBusinessRule))

	n, err := s.Delete(context.Background(), "r2")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetManySkipsEmpty(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	s := NewStore(sqlx.NewDb(raw, "mysql"))

	got, err := s.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	mock.ExpectQuery(`SELECT (.+) FROM regions WHERE id IN \(\?, \?\)`).WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "country", "description", "climate", "created_at", "updated_at"}).
			AddRow("a", "Douro", "Portugal", nil, nil, time.Now(), time.Now()))
	got, err = s.GetMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Climate.Valid)
}
