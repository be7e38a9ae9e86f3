package session

import (
	"context"
	"log/slog"

	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
)

// Credentials is the authentication collaborator. Token is attached to
// every backend call by the driver; Renew obtains a fresh token after
// the backend reports the current one expired.
type Credentials interface {
	Token() string
	Renew(ctx context.Context) error
}

// RenewingExecutor wraps an executor and retries a statement exactly
// once after renewing expired credentials. Any other failure, and a
// second expiry after a successful renewal, surface unchanged.
type RenewingExecutor struct {
	inner  executor.Executor
	creds  Credentials
	logger *slog.Logger
}

func NewRenewingExecutor(inner executor.Executor, creds Credentials, logger *slog.Logger) *RenewingExecutor {
	return &RenewingExecutor{inner: inner, creds: creds, logger: logger}
}

func (r *RenewingExecutor) Execute(ctx context.Context, query string, desired ...string) ([]normalize.Row, error) {
	rows, err := r.inner.Execute(ctx, query, desired...)
	if err == nil || !executor.IsSessionExpired(err) {
		return rows, err
	}

	r.logger.InfoContext(ctx, "session expired, renewing credentials")
	if renewErr := r.creds.Renew(ctx); renewErr != nil {
		return nil, renewErr
	}
	return r.inner.Execute(ctx, query, desired...)
}
