package session

import (
	"context"
	"log/slog"
	"sync"

	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
)

// PoolExecutor defers pool creation to the first statement, so the
// server can start before the backend is reachable.
type PoolExecutor struct {
	mgr    *Manager
	logger *slog.Logger

	mu   sync.Mutex
	exec executor.Executor
}

func NewPoolExecutor(mgr *Manager, logger *slog.Logger) *PoolExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PoolExecutor{mgr: mgr, logger: logger}
}

func (p *PoolExecutor) Execute(ctx context.Context, query string, desired ...string) ([]normalize.Row, error) {
	exec, err := p.executor(ctx)
	if err != nil {
		return nil, err
	}
	return exec.Execute(ctx, query, desired...)
}

func (p *PoolExecutor) executor(ctx context.Context) (executor.Executor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exec != nil {
		return p.exec, nil
	}
	db, err := p.mgr.DB(ctx)
	if err != nil {
		return nil, &domain.UnavailableError{Message: "backend is unreachable: " + err.Error()}
	}
	p.exec = executor.New(db, p.logger)
	return p.exec, nil
}
