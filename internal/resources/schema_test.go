package resources

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbridge/internal/bridge"
	"snowbridge/internal/normalize"
)

func TestSchemaCreateStatements(t *testing.T) {
	tests := []struct {
		name  string
		query map[string]string
		body  map[string]any
		want  string
	}{
		{
			name:  "with managed access",
			query: map[string]string{},
			body:  map[string]any{"name": "sch1", "managed_access": true, "comment": "c"},
			want:  "CREATE SCHEMA DB1.SCH1 WITH MANAGED ACCESS COMMENT = 'c' ",
		},
		{
			name:  "transient if not exists",
			query: map[string]string{"createMode": "ifNotExists"},
			body:  map[string]any{"name": "sch1", "kind": "TRANSIENT"},
			want:  "CREATE TRANSIENT SCHEMA IF NOT EXISTS DB1.SCH1 ",
		},
		{
			name:  "clone",
			query: map[string]string{},
			body: map[string]any{
				"name":  "sch2",
				"clone": map[string]any{"source": "sch1"},
			},
			want: "CREATE SCHEMA DB1.SCH2 CLONE DB1.SCH1 ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExec{}
			req := &bridge.Request{
				Method: http.MethodPost,
				Path:   "/api/v2/databases/DB1/schemas",
				Query:  tt.query,
				Body:   tt.body,
			}
			_, err := Dispatch(context.Background(), req, exec)
			require.NoError(t, err)
			require.Len(t, exec.queries, 1)
			assert.Equal(t, tt.want, exec.queries[0])
		})
	}
}

func TestSchemaShowScopesToDatabase(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW SCHEMAS LIKE 'S%' IN DATABASE DB1 ": {
			{"name": "SCH1", "is_default": "N", "is_current": "Y", "comment": ""},
		},
		`SHOW PARAMETERS IN SCHEMA DB1."SCH1" `: {
			{"key": "PIPE_EXECUTION_PAUSED", "value": "false", "type": "BOOLEAN"},
		},
	}}
	req := &bridge.Request{
		Method: http.MethodGet,
		Path:   "/api/v2/databases/DB1/schemas",
		Query:  map[string]string{"like": "S%"},
	}
	result, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	rows, ok := result.([]normalize.Row)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0]["is_current"])
	assert.Equal(t, false, rows[0]["pipe_execution_paused"])
	assert.Nil(t, rows[0]["comment"])
}

func TestSchemaUpsertDiffs(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW SCHEMAS LIKE 'SCH1' IN DATABASE DB1 ": {
			{"name": "SCH1"},
		},
		`SHOW PARAMETERS IN SCHEMA DB1."SCH1" `: {},
	}}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/databases/DB1/schemas/SCH1",
		Query:  map[string]string{},
		Body:   map[string]any{"name": "SCH1", "comment": "fresh"},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	require.Len(t, exec.queries, 3)
	assert.Equal(t, "ALTER SCHEMA DB1.SCH1 SET COMMENT = 'fresh' ", exec.queries[2])
}

func TestSchemaDrop(t *testing.T) {
	exec := &fakeExec{}
	req := &bridge.Request{
		Method: http.MethodDelete,
		Path:   "/api/v2/databases/DB1/schemas/SCH1",
		Query:  map[string]string{"ifExists": "true"},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	assert.Equal(t, []string{"DROP SCHEMA IF EXISTS DB1.SCH1"}, exec.queries)
}
