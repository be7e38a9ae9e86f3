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

func TestImageRepositoryCreate(t *testing.T) {
	tests := []struct {
		name  string
		query map[string]string
		want  string
	}{
		{
			name:  "plain",
			query: map[string]string{},
			want:  "CREATE IMAGE REPOSITORY DB1.SCH1.R1 ",
		},
		{
			name:  "if not exists",
			query: map[string]string{"createMode": "ifNotExists"},
			want:  "CREATE IMAGE REPOSITORY IF NOT EXISTS DB1.SCH1.R1 ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExec{}
			req := &bridge.Request{
				Method: http.MethodPost,
				Path:   "/api/v2/databases/DB1/schemas/SCH1/image-repositories",
				Query:  tt.query,
				Body:   map[string]any{"name": "r1"},
			}
			_, err := Dispatch(context.Background(), req, exec)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, exec.queries)
		})
	}
}

func TestImageRepositoryShowAndFetch(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW IMAGE REPOSITORIES LIKE 'R%' IN SCHEMA DB1.SCH1 ": {
			{"name": "R1", "repository_url": "org.registry/db1/sch1/r1"},
		},
	}}
	req := &bridge.Request{
		Method: http.MethodGet,
		Path:   "/api/v2/databases/DB1/schemas/SCH1/image-repositories",
		Query:  map[string]string{"like": "R%"},
	}
	result, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	rows, ok := result.([]normalize.Row)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "R1", rows[0]["name"])

	exec = &fakeExec{responses: map[string][]normalize.Row{
		"SHOW IMAGE REPOSITORIES LIKE 'R1' IN SCHEMA DB1.SCH1 ": {
			{"name": "R1"},
		},
	}}
	req = &bridge.Request{
		Method: http.MethodGet,
		Path:   "/api/v2/databases/DB1/schemas/SCH1/image-repositories/R1",
		Query:  map[string]string{},
	}
	result, err = Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	row, ok := result.(normalize.Row)
	require.True(t, ok)
	assert.Equal(t, "R1", row["name"])
}

func TestImageRepositoryFetchMissing(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW IMAGE REPOSITORIES LIKE 'R1' IN SCHEMA DB1.SCH1 ": {},
	}}
	req := &bridge.Request{
		Method: http.MethodGet,
		Path:   "/api/v2/databases/DB1/schemas/SCH1/image-repositories/R1",
		Query:  map[string]string{},
	}
	_, err := Dispatch(context.Background(), req, exec)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestImageRepositoryUpsertUnsupported(t *testing.T) {
	exec := &fakeExec{}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/databases/DB1/schemas/SCH1/image-repositories/R1",
		Query:  map[string]string{},
		Body:   map[string]any{"name": "R1"},
	}
	_, err := Dispatch(context.Background(), req, exec)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, exec.queries)
}

func TestImageRepositoryDrop(t *testing.T) {
	exec := &fakeExec{}
	req := &bridge.Request{
		Method: http.MethodDelete,
		Path:   "/api/v2/databases/DB1/schemas/SCH1/image-repositories/R1",
		Query:  map[string]string{"createMode": "ifExists"},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	assert.Equal(t, []string{"DROP IMAGE REPOSITORY IF EXISTS DB1.SCH1.R1"}, exec.queries)
}
