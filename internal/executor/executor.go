// Package executor runs generated statements against the backend and maps
// native failures onto the bridge error taxonomy.
package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"

	"github.com/snowflakedb/gosnowflake"

	"snowbridge/internal/domain"
	"snowbridge/internal/normalize"
)

// Executor runs one statement and returns its result rows. When desired
// field names are given, each row is filtered down to exactly those fields.
type Executor interface {
	Execute(ctx context.Context, query string, desired ...string) ([]normalize.Row, error)
}

// SQLExecutor is the production Executor over a database/sql pool.
type SQLExecutor struct {
	db     *sql.DB
	logger *slog.Logger
}

// New wraps a pool. A nil logger falls back to slog.Default.
func New(db *sql.DB, logger *slog.Logger) *SQLExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLExecutor{db: db, logger: logger}
}

// Execute runs the statement and scans every row into a name-keyed map.
// A single row whose only field is "status" collapses into the generic
// success row, since DDL acknowledgements carry no object data.
func (e *SQLExecutor) Execute(ctx context.Context, query string, desired ...string) ([]normalize.Row, error) {
	e.logger.Debug("executing statement", "query", query)
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, Classify(err, query)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, Classify(err, query)
	}

	var out []normalize.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, Classify(err, query)
		}
		row := make(normalize.Row, len(cols))
		for i, col := range cols {
			row[col] = coerce(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err, query)
	}
	return ConstructResponse(out, desired), nil
}

// ConstructResponse collapses status-only acknowledgements and applies the
// desired-field filter.
func ConstructResponse(rows []normalize.Row, desired []string) []normalize.Row {
	if len(rows) == 1 && len(rows[0]) == 1 {
		if _, ok := rows[0]["status"]; ok {
			return []normalize.Row{{"description": "successful"}}
		}
	}
	if len(desired) > 0 {
		filtered := make([]normalize.Row, len(rows))
		for i, row := range rows {
			filtered[i] = normalize.Filter(row, desired)
		}
		return filtered
	}
	if rows == nil {
		return []normalize.Row{}
	}
	return rows
}

func coerce(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Native error numbers with fixed status mappings.
const (
	errObjectAlreadyExists = 2002
	errObjectNotFound      = 2003
	errInsufficientPrivs   = 3001
	errSessionExpired      = 390112
)

// Classify converts a driver error into the bridge taxonomy, attaching the
// statement text and backend diagnostics.
func Classify(err error, query string) error {
	var se *gosnowflake.SnowflakeError
	if errors.As(err, &se) {
		diag := &domain.Diagnostics{
			ErrNo:    se.Number,
			Query:    query,
			SQLState: se.SQLState,
			QueryID:  se.QueryID,
		}
		switch {
		case se.Number == errObjectAlreadyExists:
			return &domain.ConflictError{Message: se.Message, Diag: diag}
		case se.Number == errObjectNotFound:
			return &domain.NotFoundError{Message: se.Message, Diag: diag}
		case se.Number == errInsufficientPrivs:
			return &domain.ForbiddenError{Message: se.Message, Diag: diag}
		case se.Number >= 390100 && se.Number <= 390199:
			return &domain.UnauthorizedError{Message: se.Message, Diag: diag}
		case se.Number >= 260000 && se.Number <= 269999:
			// Client-side transport failures: connect, request, chunk
			// download.
			return &domain.BadGatewayError{Message: se.Message, Diag: diag}
		case se.Number >= 1000 && se.Number < 100000:
			// Compilation and execution errors from the statement itself.
			return &domain.BadRequestError{Message: se.Message, Diag: diag}
		default:
			return &domain.InternalError{Message: se.Message, Diag: diag}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.GatewayTimeoutError{Message: err.Error(), Diag: &domain.Diagnostics{Query: query}}
	}
	if errors.Is(err, driver.ErrBadConn) {
		return &domain.UnavailableError{Message: err.Error(), Diag: &domain.Diagnostics{Query: query}}
	}
	return &domain.InternalError{Message: err.Error(), Diag: &domain.Diagnostics{Query: query}}
}

// IsSessionExpired reports whether the error is the expired-session
// rejection that a token renewal can recover from.
func IsSessionExpired(err error) bool {
	var ue *domain.UnauthorizedError
	if errors.As(err, &ue) && ue.Diag != nil {
		return ue.Diag.ErrNo == errSessionExpired
	}
	var se *gosnowflake.SnowflakeError
	return errors.As(err, &se) && se.Number == errSessionExpired
}
