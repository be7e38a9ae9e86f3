package resources

import (
	"context"
	"net/http"
	"strings"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
	"snowbridge/internal/reconcile"
	"snowbridge/internal/sqlgen"
)

type schemaResource struct {
	exec executor.Executor
}

var schemaProps = []reconcile.Property{
	{Name: "kind", Class: reconcile.Immutable},
	{Name: "managed_access", Class: reconcile.Immutable},
	{Name: "comment", Class: reconcile.Optional, Quoted: true},
	{Name: "default_ddl_collation", Class: reconcile.Optional, Quoted: true},
	{Name: "data_retention_time_in_days", Class: reconcile.Optional},
	{Name: "max_data_extension_time_in_days", Class: reconcile.Optional},
	{Name: "log_level", Class: reconcile.Optional, Quoted: true},
	{Name: "trace_level", Class: reconcile.Optional, Quoted: true},
	{Name: "suspend_task_after_num_failures", Class: reconcile.Optional},
	{Name: "user_task_managed_initial_warehouse_size", Class: reconcile.Optional, Quoted: true},
	{Name: "user_task_timeout_ms", Class: reconcile.Optional},
	{Name: "pipe_execution_paused", Class: reconcile.Optional},
	{Name: "created_on", Class: reconcile.ReadOnly},
	{Name: "is_default", Class: reconcile.ReadOnly},
	{Name: "is_current", Class: reconcile.ReadOnly},
	{Name: "owner", Class: reconcile.ReadOnly},
	{Name: "options", Class: reconcile.ReadOnly},
	{Name: "dropped_on", Class: reconcile.ReadOnly},
	{Name: "owner_role_type", Class: reconcile.ReadOnly},
}

var schemaParameters = map[string]bool{
	"data_retention_time_in_days":              true,
	"max_data_extension_time_in_days":          true,
	"default_ddl_collation":                    true,
	"log_level":                                true,
	"trace_level":                              true,
	"suspend_task_after_num_failures":          true,
	"user_task_managed_initial_warehouse_size": true,
	"user_task_timeout_ms":                     true,
	"pipe_execution_paused":                    true,
}

var schemaTransforms = map[string]func(any) any{
	"is_default":            normalize.YNBool,
	"is_current":            normalize.YNBool,
	"pipe_execution_paused": normalize.TrueFalseBool,
	"comment":               normalize.EmptyToNull,
}

func (r *schemaResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
	db, err := databaseHandleFromPath(segs)
	if err != nil {
		return nil, err
	}
	isCollection := len(segs) == 5
	var name string
	if !isCollection {
		if name, err = normalizeName(segs[5]); err != nil {
			return nil, err
		}
	}
	switch {
	case req.Method == http.MethodGet && isCollection:
		return r.show(ctx, req, db)
	case req.Method == http.MethodGet:
		res, err := r.describe(ctx, db, name)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			return nil, domain.ErrNotFound("schema %s.%s does not exist", db.Name, name)
		}
		return res.Row, nil
	case req.Method == http.MethodPost && isCollection && req.Action == "":
		return r.create(ctx, req, db, "")
	case req.Method == http.MethodPut:
		return r.createOrAlter(ctx, req, db, name)
	case req.Method == http.MethodDelete && !isCollection:
		return r.drop(ctx, req, db, name)
	}
	return nil, errUnsupported(req)
}

func (r *schemaResource) show(ctx context.Context, req *bridge.Request, db DatabaseHandle) ([]normalize.Row, error) {
	s := newStmt("SHOW SCHEMAS")
	if err := addShowFilters(s, req, true); err != nil {
		return nil, err
	}
	s.add("IN DATABASE " + db.Name)
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Row, 0, len(rows))
	for _, row := range rows {
		obj, err := r.normalizeRow(ctx, db, row)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (r *schemaResource) normalizeRow(ctx context.Context, db DatabaseHandle, row normalize.Row) (normalize.Row, error) {
	normalize.Apply(row, schemaTransforms)
	name, _ := row["name"].(string)
	qualified := db.Name + "." + sqlgen.DoubleQuoteName(name)
	params, err := r.exec.Execute(ctx, newStmt("SHOW PARAMETERS IN SCHEMA", qualified).String())
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		key, _ := p["key"].(string)
		key = strings.ToLower(key)
		if !schemaParameters[key] {
			continue
		}
		typ, _ := p["type"].(string)
		v, err := normalize.ParameterValue(typ, p["value"])
		if err != nil {
			return nil, domain.ErrInternal("parameter %s: %s", key, err.Error())
		}
		row[key] = v
	}
	normalize.Drop(row, "retention_time", "budget")
	return row, nil
}

func (r *schemaResource) describe(ctx context.Context, db DatabaseHandle, name string) (describeResult, error) {
	s := newStmt("SHOW SCHEMAS")
	s.add("LIKE " + sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	s.add("IN DATABASE " + db.Name)
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return describeResult{}, err
	}
	if len(rows) == 0 {
		return describeResult{}, nil
	}
	obj, err := r.normalizeRow(ctx, db, rows[0])
	if err != nil {
		return describeResult{}, err
	}
	return describeResult{Found: true, Row: obj}, nil
}

func (r *schemaResource) create(ctx context.Context, req *bridge.Request, db DatabaseHandle, pathName string) ([]normalize.Row, error) {
	stmtText, err := r.createStatement(req, db, pathName)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *schemaResource) createStatement(req *bridge.Request, db DatabaseHandle, pathName string) (string, error) {
	body := req.Body
	if body == nil {
		return "", domain.ErrBadRequest("a request body is required to create a schema")
	}
	name, err := bodyName(body, pathName)
	if err != nil {
		return "", err
	}
	mode, err := parseCreateMode(req)
	if err != nil {
		return "", err
	}
	if clone, ok := body["clone"].(map[string]any); ok {
		return r.cloneStatement(db, mode, name, clone)
	}
	s := newStmt("CREATE").add(mode.orReplace())
	if kind, ok := bodyString(body, "kind"); ok && strings.EqualFold(kind, "transient") {
		s.add("TRANSIENT")
	}
	s.add("SCHEMA").add(mode.ifNotExists()).add(db.Name + "." + name)
	if managed, ok := body["managed_access"].(bool); ok && managed {
		s.add("WITH MANAGED ACCESS")
	}
	if err := appendAssignments(s, body, schemaProps); err != nil {
		return "", err
	}
	return s.String(), nil
}

func (r *schemaResource) cloneStatement(db DatabaseHandle, mode createMode, name string, clone map[string]any) (string, error) {
	source, ok := bodyString(clone, "source")
	if !ok {
		return "", domain.ErrBadRequest("clone requires a source schema")
	}
	src, err := normalizeName(source)
	if err != nil {
		return "", err
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("SCHEMA").add(mode.ifNotExists())
	s.add(db.Name + "." + name)
	s.add("CLONE " + db.Name + "." + src)
	if pot, ok := clone["point_of_time"].(map[string]any); ok {
		clause, err := pointOfTimeClause(pot)
		if err != nil {
			return "", err
		}
		s.add(clause)
	}
	return s.String(), nil
}

func (r *schemaResource) createOrAlter(ctx context.Context, req *bridge.Request, db DatabaseHandle, pathName string) ([]normalize.Row, error) {
	if req.Body == nil {
		return nil, domain.ErrBadRequest("a request body is required")
	}
	name, err := bodyName(req.Body, pathName)
	if err != nil {
		return nil, err
	}
	res, err := r.describe(ctx, db, name)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return r.create(ctx, req, db, name)
	}
	changes, err := reconcile.DiffScalars(req.Body, res.Row, schemaProps)
	if err != nil {
		return nil, err
	}
	var plan reconcile.Plan
	addScalarStatements(&plan, "ALTER SCHEMA", db.Name+"."+name, changes)
	return plan.Apply(ctx, r.exec)
}

func (r *schemaResource) drop(ctx context.Context, req *bridge.Request, db DatabaseHandle, name string) ([]normalize.Row, error) {
	qualified := db.Name + "." + name
	stmtText := "DROP SCHEMA " + qualified
	if dropIfExists(req) {
		stmtText = "DROP SCHEMA IF EXISTS " + qualified
	}
	return r.exec.Execute(ctx, stmtText)
}
