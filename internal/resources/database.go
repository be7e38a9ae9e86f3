package resources

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
	"snowbridge/internal/reconcile"
	"snowbridge/internal/sqlgen"
)

type databaseResource struct {
	exec executor.Executor
}

// databaseProps classifies every database property the surface accepts.
// Table order is statement order.
var databaseProps = []reconcile.Property{
	{Name: "kind", Class: reconcile.Immutable},
	{Name: "comment", Class: reconcile.Optional, Quoted: true},
	{Name: "default_ddl_collation", Class: reconcile.Optional, Quoted: true},
	{Name: "data_retention_time_in_days", Class: reconcile.Optional},
	{Name: "max_data_extension_time_in_days", Class: reconcile.Optional},
	{Name: "log_level", Class: reconcile.Optional, Quoted: true},
	{Name: "trace_level", Class: reconcile.Optional, Quoted: true},
	{Name: "suspend_task_after_num_failures", Class: reconcile.Optional},
	{Name: "user_task_managed_initial_warehouse_size", Class: reconcile.Optional, Quoted: true},
	{Name: "user_task_timeout_ms", Class: reconcile.Optional},
	{Name: "serverless_task_min_statement_size", Class: reconcile.Optional, Quoted: true},
	{Name: "serverless_task_max_statement_size", Class: reconcile.Optional, Quoted: true},
	{Name: "created_on", Class: reconcile.ReadOnly},
	{Name: "is_default", Class: reconcile.ReadOnly},
	{Name: "is_current", Class: reconcile.ReadOnly},
	{Name: "origin", Class: reconcile.ReadOnly},
	{Name: "owner", Class: reconcile.ReadOnly},
	{Name: "options", Class: reconcile.ReadOnly},
	{Name: "dropped_on", Class: reconcile.ReadOnly},
	{Name: "owner_role_type", Class: reconcile.ReadOnly},
}

// databaseParameters are the SHOW PARAMETERS keys merged into every
// database object.
var databaseParameters = map[string]bool{
	"data_retention_time_in_days":              true,
	"max_data_extension_time_in_days":          true,
	"default_ddl_collation":                    true,
	"log_level":                                true,
	"trace_level":                              true,
	"suspend_task_after_num_failures":          true,
	"user_task_managed_initial_warehouse_size": true,
	"user_task_timeout_ms":                     true,
	"serverless_task_min_statement_size":       true,
	"serverless_task_max_statement_size":       true,
}

var databaseTransforms = map[string]func(any) any{
	"is_default": normalize.YNBool,
	"is_current": normalize.YNBool,
	"comment":    normalize.EmptyToNull,
}

func (r *databaseResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
	isCollection := len(segs) == 3
	var name string
	if !isCollection {
		var err error
		if name, err = normalizeName(segs[3]); err != nil {
			return nil, err
		}
	}
	switch {
	case req.Method == http.MethodGet && isCollection:
		return r.show(ctx, req)
	case req.Method == http.MethodGet:
		res, err := r.describe(ctx, name)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			return nil, domain.ErrNotFound("database %s does not exist", name)
		}
		return res.Row, nil
	case req.Method == http.MethodPost && isCollection && req.Action == "":
		return r.create(ctx, req, "")
	case req.Method == http.MethodPost && !isCollection && req.Action != "":
		return r.action(ctx, req, name)
	case req.Method == http.MethodPut:
		return r.createOrAlter(ctx, req, name)
	case req.Method == http.MethodDelete && !isCollection:
		return r.drop(ctx, req, name)
	}
	return nil, errUnsupported(req)
}

func (r *databaseResource) show(ctx context.Context, req *bridge.Request) ([]normalize.Row, error) {
	s := newStmt("SHOW DATABASES")
	if err := addShowFilters(s, req, true); err != nil {
		return nil, err
	}
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Row, 0, len(rows))
	for _, row := range rows {
		obj, err := r.normalizeRow(ctx, row)
		if err != nil {
			// A database dropped between SHOW and the parameter lookup is
			// skipped, not fatal.
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// normalizeRow shapes one SHOW row and merges its parameter values.
func (r *databaseResource) normalizeRow(ctx context.Context, row normalize.Row) (normalize.Row, error) {
	normalize.Apply(row, databaseTransforms)
	name, _ := row["name"].(string)
	params, err := r.exec.Execute(ctx, newStmt("SHOW PARAMETERS IN DATABASE", sqlgen.DoubleQuoteName(name)).String())
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		key, _ := p["key"].(string)
		key = strings.ToLower(key)
		if !databaseParameters[key] {
			continue
		}
		typ, _ := p["type"].(string)
		v, err := normalize.ParameterValue(typ, p["value"])
		if err != nil {
			return nil, domain.ErrInternal("parameter %s: %s", key, err.Error())
		}
		row[key] = v
	}
	normalize.Drop(row, "retention_time", "budget", "resource_group")
	return row, nil
}

func (r *databaseResource) describe(ctx context.Context, name string) (describeResult, error) {
	s := newStmt("SHOW DATABASES")
	s.add("LIKE " + sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return describeResult{}, err
	}
	if len(rows) == 0 {
		return describeResult{}, nil
	}
	obj, err := r.normalizeRow(ctx, rows[0])
	if err != nil {
		return describeResult{}, err
	}
	return describeResult{Found: true, Row: obj}, nil
}

func (r *databaseResource) create(ctx context.Context, req *bridge.Request, pathName string) ([]normalize.Row, error) {
	stmtText, err := r.createStatement(req, pathName)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *databaseResource) createStatement(req *bridge.Request, pathName string) (string, error) {
	body := req.Body
	if body == nil {
		return "", domain.ErrBadRequest("a request body is required to create a database")
	}
	name, err := bodyName(body, pathName)
	if err != nil {
		return "", err
	}
	mode, err := parseCreateMode(req)
	if err != nil {
		return "", err
	}
	if share, ok := bodyString(body, "from_share"); ok {
		s := newStmt("CREATE").add(mode.orReplace()).add("DATABASE").add(mode.ifNotExists()).add(name)
		s.add("FROM SHARE " + share)
		return s.String(), nil
	}
	if clone, ok := body["clone"].(map[string]any); ok {
		return r.cloneStatement(mode, name, clone)
	}
	s := newStmt("CREATE").add(mode.orReplace())
	if kind, ok := bodyString(body, "kind"); ok && strings.EqualFold(kind, "transient") {
		s.add("TRANSIENT")
	}
	s.add("DATABASE").add(mode.ifNotExists()).add(name)
	if err := appendAssignments(s, body, databaseProps); err != nil {
		return "", err
	}
	return s.String(), nil
}

func (r *databaseResource) cloneStatement(mode createMode, name string, clone map[string]any) (string, error) {
	source, ok := bodyString(clone, "source")
	if !ok {
		return "", domain.ErrBadRequest("clone requires a source database")
	}
	src, err := normalizeName(source)
	if err != nil {
		return "", err
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("DATABASE").add(mode.ifNotExists()).add(name)
	s.add("CLONE " + src)
	if pot, ok := clone["point_of_time"].(map[string]any); ok {
		clause, err := pointOfTimeClause(pot)
		if err != nil {
			return "", err
		}
		s.add(clause)
	}
	return s.String(), nil
}

func (r *databaseResource) createOrAlter(ctx context.Context, req *bridge.Request, pathName string) ([]normalize.Row, error) {
	if req.Body == nil {
		return nil, domain.ErrBadRequest("a request body is required")
	}
	name, err := bodyName(req.Body, pathName)
	if err != nil {
		return nil, err
	}
	res, err := r.describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return r.create(ctx, req, name)
	}
	changes, err := reconcile.DiffScalars(req.Body, res.Row, databaseProps)
	if err != nil {
		return nil, err
	}
	var plan reconcile.Plan
	addScalarStatements(&plan, "ALTER DATABASE", name, changes)
	return plan.Apply(ctx, r.exec)
}

func (r *databaseResource) drop(ctx context.Context, req *bridge.Request, name string) ([]normalize.Row, error) {
	stmtText := "DROP DATABASE " + name
	if dropIfExists(req) {
		stmtText = "DROP DATABASE IF EXISTS " + name
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *databaseResource) action(ctx context.Context, req *bridge.Request, name string) ([]normalize.Row, error) {
	switch req.Action {
	case "undrop":
		return r.exec.Execute(ctx, newStmt("UNDROP DATABASE", name).String())
	case "enable_replication":
		return r.replication(ctx, req, name, "ENABLE REPLICATION")
	case "disable_replication":
		return r.replication(ctx, req, name, "DISABLE REPLICATION")
	case "enable_failover":
		return r.replication(ctx, req, name, "ENABLE FAILOVER")
	case "disable_failover":
		return r.replication(ctx, req, name, "DISABLE FAILOVER")
	case "primary":
		return r.exec.Execute(ctx, newStmt("ALTER DATABASE", name, "PRIMARY").String())
	case "refresh":
		return r.exec.Execute(ctx, newStmt("ALTER DATABASE", name, "REFRESH").String())
	}
	return nil, errUnsupported(req)
}

func (r *databaseResource) replication(ctx context.Context, req *bridge.Request, name, verb string) ([]normalize.Row, error) {
	accounts, err := stringList(req.Body, "accounts")
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrBadRequest("%s requires at least one account", strings.ToLower(verb))
	}
	s := newStmt("ALTER DATABASE", name, verb, "TO ACCOUNTS")
	s.add(strings.Join(accounts, ", "))
	return r.exec.Execute(ctx, s.String())
}
