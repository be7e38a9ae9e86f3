package resources

import (
	"context"
	"net/http"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
	"snowbridge/internal/sqlgen"
)

type imageRepositoryResource struct {
	exec executor.Executor
}

func (r *imageRepositoryResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
	schema, err := schemaHandleFromPath(segs)
	if err != nil {
		return nil, err
	}
	isCollection := len(segs) == 7
	var name string
	if !isCollection {
		if name, err = normalizeName(segs[7]); err != nil {
			return nil, err
		}
	}
	switch {
	case req.Method == http.MethodGet && isCollection:
		return r.show(ctx, req, schema)
	case req.Method == http.MethodGet:
		res, err := r.describe(ctx, schema, name)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			return nil, domain.ErrNotFound("image repository %s does not exist", schema.Qualify(name))
		}
		return res.Row, nil
	case req.Method == http.MethodPost && isCollection && req.Action == "":
		return r.create(ctx, req, schema)
	case req.Method == http.MethodPut:
		// The repository object carries no alterable state, so upsert has
		// no alter arm.
		return nil, domain.ErrNotFound("image repositories do not support create-or-alter")
	case req.Method == http.MethodDelete && !isCollection:
		return r.drop(ctx, req, schema, name)
	}
	return nil, errUnsupported(req)
}

func (r *imageRepositoryResource) show(ctx context.Context, req *bridge.Request, schema SchemaHandle) ([]normalize.Row, error) {
	s := newStmt("SHOW IMAGE REPOSITORIES")
	if err := addShowFilters(s, req, false); err != nil {
		return nil, err
	}
	s.add("IN SCHEMA " + schema.String())
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []normalize.Row{}
	}
	return rows, nil
}

func (r *imageRepositoryResource) describe(ctx context.Context, schema SchemaHandle, name string) (describeResult, error) {
	s := newStmt("SHOW IMAGE REPOSITORIES")
	s.add("LIKE " + sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	s.add("IN SCHEMA " + schema.String())
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return describeResult{}, err
	}
	if len(rows) == 0 {
		return describeResult{}, nil
	}
	return describeResult{Found: true, Row: rows[0]}, nil
}

func (r *imageRepositoryResource) create(ctx context.Context, req *bridge.Request, schema SchemaHandle) ([]normalize.Row, error) {
	if req.Body == nil {
		return nil, domain.ErrBadRequest("a request body is required to create an image repository")
	}
	name, err := bodyName(req.Body, "")
	if err != nil {
		return nil, err
	}
	mode, err := parseCreateMode(req)
	if err != nil {
		return nil, err
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("IMAGE REPOSITORY").add(mode.ifNotExists())
	s.add(schema.Qualify(name))
	return r.exec.Execute(ctx, s.String())
}

func (r *imageRepositoryResource) drop(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	qualified := schema.Qualify(name)
	stmtText := "DROP IMAGE REPOSITORY " + qualified
	if dropIfExists(req) {
		stmtText = "DROP IMAGE REPOSITORY IF EXISTS " + qualified
	}
	return r.exec.Execute(ctx, stmtText)
}
