package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/reconcile"
)

func TestStmtBuilder(t *testing.T) {
	s := newStmt("CREATE", "", "WAREHOUSE", "W1")
	s.addf("AUTO_SUSPEND = %d", 60)
	assert.Equal(t, "CREATE WAREHOUSE W1 AUTO_SUSPEND = 60 ", s.String())
}

func TestParseCreateMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    createMode
		wantErr bool
	}{
		{raw: "", want: modeErrorIfExists},
		{raw: "errorIfExists", want: modeErrorIfExists},
		{raw: "ifNotExists", want: modeIfNotExists},
		{raw: "IFNOTEXISTS", want: modeIfNotExists},
		{raw: "orReplace", want: modeOrReplace},
		{raw: "replace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := &bridge.Request{Query: map[string]string{}}
			if tt.raw != "" {
				req.Query["createMode"] = tt.raw
			}
			got, err := parseCreateMode(req)
			if tt.wantErr {
				var br *domain.BadRequestError
				require.ErrorAs(t, err, &br)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDropIfExists(t *testing.T) {
	assert.True(t, dropIfExists(&bridge.Request{Query: map[string]string{"ifExists": "true"}}))
	assert.True(t, dropIfExists(&bridge.Request{Query: map[string]string{"createMode": "ifExists"}}))
	assert.False(t, dropIfExists(&bridge.Request{Query: map[string]string{}}))
}

func TestAddShowFilters(t *testing.T) {
	req := &bridge.Request{Query: map[string]string{
		"history":    "true",
		"like":       "FOO%",
		"startsWith": "F",
		"showLimit":  "10",
		"fromName":   "BAR",
	}}
	s := newStmt("SHOW DATABASES")
	require.NoError(t, addShowFilters(s, req, true))
	assert.Equal(t, "SHOW DATABASES HISTORY LIKE 'FOO%' STARTS WITH 'F' LIMIT 10 FROM 'BAR' ", s.String())

	s = newStmt("SHOW DATABASES")
	require.Error(t, addShowFilters(s, &bridge.Request{Query: map[string]string{"showLimit": "ten"}}, true))
}

func TestBodyName(t *testing.T) {
	name, err := bodyName(map[string]any{"name": "w1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "W1", name)

	_, err = bodyName(map[string]any{"name": "w2"}, "W1")
	var br *domain.BadRequestError
	require.ErrorAs(t, err, &br)

	_, err = bodyName(map[string]any{}, "")
	require.ErrorAs(t, err, &br)
}

func TestPointOfTimeClause(t *testing.T) {
	clause, err := pointOfTimeClause(map[string]any{
		"reference":          "at",
		"point_of_time_type": "timestamp",
		"when":               "2024-01-01 00:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "AT (TIMESTAMP => '2024-01-01 00:00:00')", clause)

	clause, err = pointOfTimeClause(map[string]any{
		"reference":          "before",
		"point_of_time_type": "offset",
		"when":               float64(-3600),
	})
	require.NoError(t, err)
	assert.Equal(t, "BEFORE (OFFSET => -3600)", clause)

	_, err = pointOfTimeClause(map[string]any{"reference": "around"})
	var br *domain.BadRequestError
	require.ErrorAs(t, err, &br)
}

func TestAddScalarStatements(t *testing.T) {
	var plan reconcile.Plan
	addScalarStatements(&plan, "ALTER DATABASE", "DB1", []reconcile.Change{
		{Name: "comment", Value: "'x'"},
		{Name: "log_level", Unset: true},
	})
	assert.Equal(t, []string{
		"ALTER DATABASE DB1 UNSET LOG_LEVEL ",
		"ALTER DATABASE DB1 SET COMMENT = 'x' ",
	}, plan.Statements)
}
