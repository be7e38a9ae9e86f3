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

func TestComputePoolCreateStatement(t *testing.T) {
	exec := &fakeExec{}
	req := &bridge.Request{
		Method: http.MethodPost,
		Path:   "/api/v2/compute-pools",
		Query:  map[string]string{},
		Body: map[string]any{
			"name":            "cp1",
			"min_nodes":       float64(1),
			"max_nodes":       float64(3),
			"instance_family": "CPU_X64_XS",
			"auto_resume":     true,
			"comment":         "ml pool",
		},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE COMPUTE POOL CP1 MIN_NODES = 1 MAX_NODES = 3 INSTANCE_FAMILY = CPU_X64_XS AUTO_RESUME = true COMMENT = 'ml pool' ",
		exec.queries[0])
}

func TestComputePoolCreateMissingRequired(t *testing.T) {
	exec := &fakeExec{}
	req := &bridge.Request{
		Method: http.MethodPost,
		Path:   "/api/v2/compute-pools",
		Query:  map[string]string{},
		Body:   map[string]any{"name": "cp1", "min_nodes": float64(1)},
	}
	_, err := Dispatch(context.Background(), req, exec)
	var br *domain.BadRequestError
	require.ErrorAs(t, err, &br)
	assert.Empty(t, exec.queries)
}

func TestComputePoolUpsertRejectsInstanceFamilyChange(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW COMPUTE POOLS LIKE 'CP1' ": {{
			"name":            "CP1",
			"min_nodes":       "1",
			"max_nodes":       "3",
			"instance_family": "CPU_X64_XS",
			"auto_resume":     "true",
		}},
	}}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/compute-pools/CP1",
		Query:  map[string]string{},
		Body: map[string]any{
			"name":            "CP1",
			"min_nodes":       float64(1),
			"max_nodes":       float64(3),
			"instance_family": "CPU_X64_M",
		},
	}
	_, err := Dispatch(context.Background(), req, exec)
	var br *domain.BadRequestError
	require.ErrorAs(t, err, &br)
	assert.Len(t, exec.queries, 1)
}

func TestComputePoolUpsertAltersNodes(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW COMPUTE POOLS LIKE 'CP1' ": {{
			"name":            "CP1",
			"min_nodes":       "1",
			"max_nodes":       "3",
			"instance_family": "CPU_X64_XS",
			"auto_resume":     "true",
		}},
	}}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/compute-pools/CP1",
		Query:  map[string]string{},
		Body: map[string]any{
			"name":            "CP1",
			"min_nodes":       float64(2),
			"max_nodes":       float64(3),
			"instance_family": "CPU_X64_XS",
		},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	require.Len(t, exec.queries, 2)
	assert.Equal(t, "ALTER COMPUTE POOL CP1 SET MIN_NODES = 2 ", exec.queries[1])
}

func TestComputePoolUpsertSetsNewComment(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW COMPUTE POOLS LIKE 'CP1' ": {{
			"name":            "CP1",
			"min_nodes":       "1",
			"max_nodes":       "3",
			"instance_family": "CPU_X64_XS",
			"auto_resume":     "true",
			"comment":         "",
		}},
	}}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/compute-pools/CP1",
		Query:  map[string]string{},
		Body: map[string]any{
			"name":            "CP1",
			"min_nodes":       float64(1),
			"max_nodes":       float64(3),
			"instance_family": "CPU_X64_XS",
			"comment":         "hello",
		},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	require.Len(t, exec.queries, 2)
	assert.Equal(t, "ALTER COMPUTE POOL CP1 SET COMMENT = 'hello' ", exec.queries[1])
}

func TestComputePoolUpsertAbsentCommentIsNoop(t *testing.T) {
	exec := &fakeExec{responses: map[string][]normalize.Row{
		"SHOW COMPUTE POOLS LIKE 'CP1' ": {{
			"name":            "CP1",
			"min_nodes":       "1",
			"max_nodes":       "3",
			"instance_family": "CPU_X64_XS",
			"auto_resume":     "true",
			"comment":         "",
		}},
	}}
	req := &bridge.Request{
		Method: http.MethodPut,
		Path:   "/api/v2/compute-pools/CP1",
		Query:  map[string]string{},
		Body: map[string]any{
			"name":            "CP1",
			"min_nodes":       float64(1),
			"max_nodes":       float64(3),
			"instance_family": "CPU_X64_XS",
		},
	}
	_, err := Dispatch(context.Background(), req, exec)
	require.NoError(t, err)
	assert.Len(t, exec.queries, 1)
}

func TestComputePoolActions(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{action: "resume", want: "ALTER COMPUTE POOL CP1 RESUME "},
		{action: "suspend", want: "ALTER COMPUTE POOL CP1 SUSPEND "},
		{action: "stopallservices", want: "ALTER COMPUTE POOL CP1 STOP ALL "},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			exec := &fakeExec{}
			req := &bridge.Request{
				Method: http.MethodPost,
				Path:   "/api/v2/compute-pools/CP1",
				Action: tt.action,
				Query:  map[string]string{},
			}
			_, err := Dispatch(context.Background(), req, exec)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, exec.queries)
		})
	}
}
