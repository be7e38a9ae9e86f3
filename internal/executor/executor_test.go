package executor

import (
	"context"
	"testing"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbridge/internal/domain"
	"snowbridge/internal/normalize"
)

func TestConstructResponse(t *testing.T) {
	t.Run("status row collapses", func(t *testing.T) {
		rows := []normalize.Row{{"status": "Warehouse W1 successfully created."}}
		got := ConstructResponse(rows, nil)
		assert.Equal(t, []normalize.Row{{"description": "successful"}}, got)
	})

	t.Run("status alongside other fields survives", func(t *testing.T) {
		rows := []normalize.Row{{"status": "ok", "name": "X"}}
		got := ConstructResponse(rows, nil)
		assert.Equal(t, rows, got)
	})

	t.Run("desired filter applies with explicit nulls", func(t *testing.T) {
		rows := []normalize.Row{{"name": "WH1", "state": "STARTED", "extra": 1}}
		got := ConstructResponse(rows, []string{"name", "owner"})
		assert.Equal(t, []normalize.Row{{"name": "WH1", "owner": nil}}, got)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		got := ConstructResponse(nil, nil)
		require.NotNil(t, got)
		assert.Len(t, got, 0)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		number int
		want   any
	}{
		{name: "already exists", number: 2002, want: &domain.ConflictError{}},
		{name: "not found", number: 2003, want: &domain.NotFoundError{}},
		{name: "insufficient privileges", number: 3001, want: &domain.ForbiddenError{}},
		{name: "auth failed", number: 390100, want: &domain.UnauthorizedError{}},
		{name: "session expired", number: 390112, want: &domain.UnauthorizedError{}},
		{name: "transport failure", number: 261001, want: &domain.BadGatewayError{}},
		{name: "compilation error", number: 1003, want: &domain.BadRequestError{}},
		{name: "unclassified", number: 500000, want: &domain.InternalError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(&gosnowflake.SnowflakeError{
				Number:   tt.number,
				SQLState: "42000",
				QueryID:  "qid-1",
				Message:  "boom",
			}, "SHOW DATABASES")
			require.Error(t, err)
			assert.IsType(t, tt.want, err)
		})
	}

	t.Run("diagnostics carried", func(t *testing.T) {
		err := Classify(&gosnowflake.SnowflakeError{Number: 2003, SQLState: "02000", QueryID: "q9", Message: "does not exist"}, "DROP DATABASE DB1")
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
		require.NotNil(t, nf.Diag)
		assert.Equal(t, 2003, nf.Diag.ErrNo)
		assert.Equal(t, "DROP DATABASE DB1", nf.Diag.Query)
		assert.Equal(t, "02000", nf.Diag.SQLState)
		assert.Equal(t, "q9", nf.Diag.QueryID)
	})

	t.Run("deadline maps to gateway timeout", func(t *testing.T) {
		err := Classify(context.DeadlineExceeded, "SELECT 1")
		assert.IsType(t, &domain.GatewayTimeoutError{}, err)
	})
}

func TestIsSessionExpired(t *testing.T) {
	raw := &gosnowflake.SnowflakeError{Number: 390112, Message: "session expired"}
	assert.True(t, IsSessionExpired(raw))
	assert.True(t, IsSessionExpired(Classify(raw, "SELECT 1")))
	assert.False(t, IsSessionExpired(Classify(&gosnowflake.SnowflakeError{Number: 390100}, "SELECT 1")))
}
