package labels

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/clock"
)

type nopTx struct{ readOnly int }

func (t *nopTx) RunInTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
func (t *nopTx) ReadOnly(ctx context.Context, fn func(context.Context) error) error {
	t.readOnly++
	return fn(ctx)
}

type fakeRepo struct {
	rows []Row
	got  books.Filter
}

func (f *fakeRepo) Rows(_ context.Context, filter books.Filter) ([]Row, error) {
	f.got = filter
	return f.rows, nil
}

func strp(s string) *string { return &s }

func newTestService(rows ...Row) (*Service, *fakeRepo, *nopTx) {
	repo := &fakeRepo{rows: rows}
	tx := &nopTx{}
	clk := clock.NewFixed(time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC))
	return NewService(repo, tx, clk, zap.NewNop()), repo, tx
}

func TestExportUTF8WithHeader(t *testing.T) {
	svc, _, tx := newTestService(
		Row{ISBN: "978-0141439518", Title: "Pride and Prejudice", Author: "Jane Austen", Location: strp("A-1"), Status: "AVAILABLE"},
		Row{ISBN: "978-0000000002", Title: "Untitled, draft", Author: "Anon", Status: "BORROWED"},
	)

	f, err := svc.Export(context.Background(), books.Filter{}, Options{Encoding: EncodingUTF8, Header: true})
	require.NoError(t, err)
	assert.Equal(t, 1, tx.readOnly)
	assert.Equal(t, 2, f.Rows)
	assert.Equal(t, "book-labels-20240401.csv", f.Name)
	assert.Equal(t, "text/csv; charset=utf-8", f.ContentType)
	assert.Equal(t,
		"isbn,title,author,location,status\n"+
			"978-0141439518,Pride and Prejudice,Jane Austen,A-1,AVAILABLE\n"+
			"978-0000000002,\"Untitled, draft\",Anon,,BORROWED\n",
		string(f.Data))
}

func TestExportCP932(t *testing.T) {
	svc, _, _ := newTestService(
		Row{ISBN: "978-4101010014", Title: "吾輩は猫である", Author: "夏目 漱石", Location: strp("文庫-3"), Status: "AVAILABLE"},
	)

	f, err := svc.Export(context.Background(), books.Filter{}, Options{Encoding: EncodingCP932})
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=Shift_JIS", f.ContentType)
	assert.NotContains(t, string(f.Data), "吾輩")

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(f.Data), japanese.ShiftJIS.NewDecoder()))
	require.NoError(t, err)
	assert.Equal(t, "978-4101010014,吾輩は猫である,夏目 漱石,文庫-3,AVAILABLE\n", string(decoded))
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"": EncodingUTF8, "UTF-8": EncodingUTF8, "sjis": EncodingCP932, "CP932": EncodingCP932} {
		got, err := ParseEncoding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEncoding("latin1")
	assert.Error(t, err)
}

func TestStoreRowsJoinsAuthors(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	s := NewStore(sqlx.NewDb(raw, "mysql"))

	mock.ExpectQuery("SELECT `b`.`isbn`, `b`.`title`, CONCAT\\(a.first_name, ' ', a.last_name\\) AS `author`, `b`.`location`, `b`.`status` FROM `books` AS `b` INNER JOIN `authors` AS `a` ON \\(`a`.`id` = `b`.`author_id`\\) WHERE \\(`b`.`status` = \\?\\) ORDER BY `b`.`location` ASC, `b`.`title` ASC").
		WithArgs("AVAILABLE").
		WillReturnRows(sqlmock.NewRows([]string{"isbn", "title", "author", "location", "status"}).
			AddRow("978-0141439518", "Emma", "Jane Austen", nil, "AVAILABLE"))

	rows, err := s.Rows(context.Background(), books.Filter{Status: books.StatusAvailable})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Location)
	assert.Equal(t, "Jane Austen", rows[0].Author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, repo, _ := newTestService(Row{ISBN: "978-0141439518", Title: "Emma", Author: "Jane Austen", Status: "AVAILABLE"})
	r := gin.New()
	RegisterRoutes(r.Group("/api"), svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/labels.csv?status=available&genre=Classic&header=false", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="book-labels-20240401.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", w.Header().Get("X-Label-Count"))
	assert.Equal(t, "978-0141439518,Emma,Jane Austen,,AVAILABLE\n", w.Body.String())
	assert.Equal(t, books.Filter{Status: books.StatusAvailable, Genre: "Classic"}, repo.got)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/labels.csv?encoding=ebcdic", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
