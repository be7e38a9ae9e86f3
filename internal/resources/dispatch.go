package resources

import (
	"context"

	"snowbridge/internal/bridge"
	"snowbridge/internal/executor"
)

// Dispatch routes a normalized request to its translator. The result is
// either a single object, a list of objects, or an empty list.
func Dispatch(ctx context.Context, req *bridge.Request, exec executor.Executor) (any, error) {
	kind, err := bridge.Resolve(req.Path)
	if err != nil {
		return nil, err
	}
	segs := bridge.PathSegments(req.Path)
	switch kind {
	case bridge.KindDatabase:
		return (&databaseResource{exec: exec}).handle(ctx, req, segs)
	case bridge.KindSchema:
		return (&schemaResource{exec: exec}).handle(ctx, req, segs)
	case bridge.KindTable:
		return (&tableResource{exec: exec}).handle(ctx, req, segs)
	case bridge.KindTask:
		return (&taskResource{exec: exec}).handle(ctx, req, segs)
	case bridge.KindWarehouse:
		return (&warehouseResource{exec: exec}).handle(ctx, req, segs)
	case bridge.KindComputePool:
		return (&computePoolResource{exec: exec}).handle(ctx, req, segs)
	case bridge.KindService:
		return (&serviceResource{exec: exec}).handle(ctx, req, segs)
	case bridge.KindImageRepository:
		return (&imageRepositoryResource{exec: exec}).handle(ctx, req, segs)
	}
	return nil, errUnsupported(req)
}
