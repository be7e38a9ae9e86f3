package resources

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/normalize"
)

func TestDatabaseListNormalizes(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW DATABASES LIKE 'FOO%' ": {{
			"name":       "FOO1",
			"is_default": "Y",
			"is_current": "N",
			"comment":    "",
		}},
		`SHOW PARAMETERS IN DATABASE "FOO1" `: {
			{"key": "DATA_RETENTION_TIME_IN_DAYS", "value": "1", "type": "NUMBER"},
			{"key": "LOG_LEVEL", "value": "", "type": "STRING"},
		},
	}}
	req := &bridge.Request{
		Method: http.MethodGet,
		Path:   "/api/v2/databases",
		Query:  map[string]string{"like": "FOO%"},
	}
	result, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	assert.Equal(t, "SHOW DATABASES LIKE 'FOO%' ", exec.queries[0])
	rows, ok := result.([]normalize.Row)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0]["is_default"])
	assert.Equal(t, false, rows[0]["is_current"])
	assert.Nil(t, rows[0]["comment"])
	assert.Equal(t, 1, rows[0]["data_retention_time_in_days"])
	assert.Nil(t, rows[0]["log_level"])
}

func TestDatabaseDropIfExists(t *testing.T) {
	exec := &fakeExec{}
	req := &bridge.Request{
		Method: http.MethodDelete,
		Path:   "/api/v2/databases/DB1",
		Query:  map[string]string{"createMode": "ifExists"},
	}
	result, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	assert.Equal(t, []string{"DROP DATABASE IF EXISTS DB1"}, exec.queries)
	assert.Equal(t, []normalize.Row{{"description": "successful"}}, result)
}

func TestDatabaseCreateStatements(t *testing.T) {
	tests := []struct {
		name  string
		query map[string]string
		body  map[string]any
		want  string
	}{
		{
			name:  "plain",
			query: map[string]string{},
			body:  map[string]any{"name": "DB1", "comment": "c1", "data_retention_time_in_days": float64(7)},
			want:  "CREATE DATABASE DB1 COMMENT = 'c1' DATA_RETENTION_TIME_IN_DAYS = 7 ",
		},
		{
			name:  "or replace transient",
			query: map[string]string{"createMode": "orReplace"},
			body:  map[string]any{"name": "DB1", "kind": "TRANSIENT"},
			want:  "CREATE OR REPLACE TRANSIENT DATABASE DB1 ",
		},
		{
			name:  "if not exists",
			query: map[string]string{"createMode": "ifNotExists"},
			body:  map[string]any{"name": "DB1"},
			want:  "CREATE DATABASE IF NOT EXISTS DB1 ",
		},
		{
			name:  "from share",
			query: map[string]string{},
			body:  map[string]any{"name": "DB1", "from_share": "PRV.SHR"},
			want:  "CREATE DATABASE DB1 FROM SHARE PRV.SHR ",
		},
		{
			name:  "clone with point of time",
			query: map[string]string{},
			body: map[string]any{
				"name": "DB2",
				"clone": map[string]any{
					"source": "db1",
					"point_of_time": map[string]any{
						"reference":          "at",
						"point_of_time_type": "offset",
						"when":               float64(-120),
					},
				},
			},
			want: "CREATE DATABASE DB2 CLONE DB1 AT (OFFSET => -120) ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExec{}
			req := &bridge.Request{
				Method: http.MethodPost,
				Path:   "/api/v2/databases",
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

func TestDatabaseUpsertDiffs(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW DATABASES LIKE 'DB1' ": {{"name": "DB1", "comment": "old"}},
		`SHOW PARAMETERS IN DATABASE "DB1" `: {
			{"key": "LOG_LEVEL", "value": "INFO", "type": "STRING"},
		},
	}}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/databases/DB1",
		Query:  map[string]string{},
		Body:   map[string]any{"name": "DB1", "comment": "new"},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	require.Len(t, exec.queries, 4)
	assert.Equal(t, "ALTER DATABASE DB1 UNSET LOG_LEVEL ", exec.queries[2])
	assert.Equal(t, "ALTER DATABASE DB1 SET COMMENT = 'new' ", exec.queries[3])
}

func TestDatabaseUpsertRejectsReadOnly(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW DATABASES LIKE 'DB1' ":          {{"name": "DB1"}},
		`SHOW PARAMETERS IN DATABASE "DB1" `: {},
	}}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/databases/DB1",
		Query:  map[string]string{},
		Body:   map[string]any{"name": "DB1", "owner": "ACCOUNTADMIN"},
	}
	_, err := Dispatch(context.Background(), req, exec)
	var br *domain.BadRequestError
	require.ErrorAs(t, err, &br)
	// The probe ran, no ALTER did.
	assert.Len(t, exec.queries, 2)
}

func TestDatabaseActions(t *testing.T) {
	tests := []struct {
		action string
		body   map[string]any
		want   string
	}{
		{action: "undrop", want: "UNDROP DATABASE DB1 "},
		{action: "primary", want: "ALTER DATABASE DB1 PRIMARY "},
		{action: "refresh", want: "ALTER DATABASE DB1 REFRESH "},
		{
			action: "enable_replication",
			body:   map[string]any{"accounts": []any{"ORG1.ACC1", "ORG1.ACC2"}},
			want:   "ALTER DATABASE DB1 ENABLE REPLICATION TO ACCOUNTS ORG1.ACC1, ORG1.ACC2 ",
		},
		{
			action: "disable_failover",
			body:   map[string]any{"accounts": []any{"ORG1.ACC1"}},
			want:   "ALTER DATABASE DB1 DISABLE FAILOVER TO ACCOUNTS ORG1.ACC1 ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			exec := &fakeExec{}
			req := &bridge.Request{
				Method: http.MethodPost,
				Path:   "/api/v2/databases/DB1",
				Action: tt.action,
				Query:  map[string]string{},
				Body:   tt.body,
			}
			_, err := Dispatch(context.Background(), req, exec)
			require.NoError(t, err)
			require.Len(t, exec.queries, 1)
			assert.Equal(t, tt.want, exec.queries[0])
		})
	}
}

func TestDatabaseGetNotFound(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW DATABASES LIKE 'DB9' ": {},
	}}
	req := &bridge.Request{Method: http.MethodGet, Path: "/api/v2/databases/DB9", Query: map[string]string{}}
	_, err := Dispatch(context.Background(), req, exec)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}
