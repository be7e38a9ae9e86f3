package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbridge/internal/normalize"
)

type fakeExec struct {
	responses map[string][]normalize.Row
	errs      map[string]error
	queries   []string
}

func (f *fakeExec) Execute(_ context.Context, query string, desired ...string) ([]normalize.Row, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if rows, ok := f.responses[query]; ok {
		if len(desired) > 0 {
			filtered := make([]normalize.Row, len(rows))
			for i, row := range rows {
				filtered[i] = normalize.Filter(row, desired)
			}
			return filtered, nil
		}
		return rows, nil
	}
	return []normalize.Row{{"description": "successful"}}, nil
}

func newTestServer(exec *fakeExec) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(exec, slog.Default()).Routes(r)
	return r
}

func TestHandlerCreateOrAlterWarehouse(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW WAREHOUSES LIKE 'W1' ": {},
	}}
	server := newTestServer(exec)

	body := `{"name": "W1", "warehouse_size": "SMALL", "auto_suspend": 60}`
	req := httptest.NewRequest(http.MethodPut, "/api/v2/warehouses", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, exec.queries,
		"CREATE WAREHOUSE W1 WAREHOUSE_SIZE = SMALL AUTO_SUSPEND = 60 ")

	var result []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []map[string]any{{"description": "successful"}}, result)
}

func TestHandlerActionPath(t *testing.T) {
	exec := &fakeExec{}
	server := newTestServer(exec)

	req := httptest.NewRequest(http.MethodPost,
		"/api/v2/databases/DB1/schemas/SCH1/tasks/T1:resume", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ALTER TASK DB1.SCH1.T1 RESUME "}, exec.queries)
}

func TestHandlerListDatabases(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW DATABASES LIKE 'FOO%' ": {
			{"name": "FOO1", "is_default": "N", "is_current": "Y"},
		},
		`SHOW PARAMETERS IN DATABASE "FOO1" `: {},
	}}
	server := newTestServer(exec)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/databases?like=FOO%25", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "FOO1", rows[0]["name"])
	assert.Equal(t, true, rows[0]["is_current"])
}

func TestHandlerNotFoundEnvelope(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW DATABASES LIKE 'MISSING' ": {},
	}}
	server := newTestServer(exec)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/databases/MISSING", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "404", envelope["error_code"])
	assert.Nil(t, envelope["request_id"])
	msg, _ := envelope["message"].(string)
	assert.Contains(t, msg, "error:")
	assert.Contains(t, msg, "details:")
}

func TestHandlerMalformedBody(t *testing.T) {
	server := newTestServer(&fakeExec{})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/databases", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "400", envelope["error_code"])
}

func TestHandlerUnknownRoute(t *testing.T) {
	server := newTestServer(&fakeExec{})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/widgets", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDropWithIfExists(t *testing.T) {
	exec := &fakeExec{}
	server := newTestServer(exec)

	req := httptest.NewRequest(http.MethodDelete, "/api/v2/databases/DB1?createMode=ifExists", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"DROP DATABASE IF EXISTS DB1"}, exec.queries)
}
