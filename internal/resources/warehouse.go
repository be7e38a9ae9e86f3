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

type warehouseResource struct {
	exec executor.Executor
}

// warehouseProps in statement order. initially_suspended only makes sense
// at creation.
var warehouseProps = []reconcile.Property{
	{Name: "warehouse_type", Class: reconcile.Optional},
	{Name: "warehouse_size", Class: reconcile.Optional},
	{Name: "scaling_policy", Class: reconcile.Optional},
	{Name: "auto_suspend", Class: reconcile.Optional},
	{Name: "auto_resume", Class: reconcile.Optional},
	{Name: "initially_suspended", Class: reconcile.Immutable},
	{Name: "resource_monitor", Class: reconcile.Optional},
	{Name: "comment", Class: reconcile.Optional, Quoted: true},
	{Name: "enable_query_acceleration", Class: reconcile.Optional},
	{Name: "query_acceleration_max_scale_factor", Class: reconcile.Optional},
	{Name: "max_cluster_count", Class: reconcile.Optional},
	{Name: "min_cluster_count", Class: reconcile.Optional},
	{Name: "max_concurrency_level", Class: reconcile.Optional},
	{Name: "statement_queued_timeout_in_seconds", Class: reconcile.Optional},
	{Name: "statement_timeout_in_seconds", Class: reconcile.Optional},
}

var warehouseParameters = map[string]bool{
	"max_concurrency_level":               true,
	"statement_queued_timeout_in_seconds": true,
	"statement_timeout_in_seconds":        true,
}

var warehouseTransforms = map[string]func(any) any{
	"is_default":                          normalize.YNBool,
	"is_current":                          normalize.YNBool,
	"auto_resume":                         normalize.TrueFalseBool,
	"enable_query_acceleration":           normalize.TrueFalseBool,
	"auto_suspend":                        normalize.Int,
	"query_acceleration_max_scale_factor": normalize.Int,
	"max_cluster_count":                   normalize.Int,
	"min_cluster_count":                   normalize.Int,
	"started_clusters":                    normalize.Int,
	"running":                             normalize.Int,
	"queued":                              normalize.Int,
	"comment":                             normalize.EmptyToNull,
}

func (r *warehouseResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
	isCollection := len(segs) == 3
	var name string
	var err error
	if !isCollection {
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
			return nil, domain.ErrNotFound("warehouse %s does not exist", name)
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

func (r *warehouseResource) show(ctx context.Context, req *bridge.Request) ([]normalize.Row, error) {
	s := newStmt("SHOW WAREHOUSES")
	if err := addShowFilters(s, req, false); err != nil {
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
			// Warehouses dropped or revoked mid-listing are skipped.
			var nf *domain.NotFoundError
			var br *domain.BadRequestError
			if errors.As(err, &nf) || errors.As(err, &br) {
				continue
			}
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (r *warehouseResource) normalizeRow(ctx context.Context, row normalize.Row) (normalize.Row, error) {
	if v, ok := row["size"]; ok {
		row["warehouse_size"] = canonicalWarehouseSize(v)
	}
	if v, ok := row["type"]; ok {
		row["warehouse_type"] = v
	}
	normalize.Apply(row, warehouseTransforms)
	name, _ := row["name"].(string)
	params, err := r.exec.Execute(ctx, newStmt("SHOW PARAMETERS IN WAREHOUSE", sqlgen.DoubleQuoteName(name)).String())
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		key, _ := p["key"].(string)
		key = strings.ToLower(key)
		if !warehouseParameters[key] {
			continue
		}
		typ, _ := p["type"].(string)
		v, err := normalize.ParameterValue(typ, p["value"])
		if err != nil {
			return nil, domain.ErrInternal("parameter %s: %s", key, err.Error())
		}
		row[key] = v
	}
	normalize.Drop(row, "size", "type", "budget", "resource_group")
	return row, nil
}

// canonicalWarehouseSize folds the display spelling (X-Small) onto the
// property spelling (XSMALL).
func canonicalWarehouseSize(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return strings.ToUpper(strings.ReplaceAll(s, "-", ""))
}

func (r *warehouseResource) describe(ctx context.Context, name string) (describeResult, error) {
	s := newStmt("SHOW WAREHOUSES")
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

func (r *warehouseResource) create(ctx context.Context, req *bridge.Request, pathName string) ([]normalize.Row, error) {
	stmtText, err := r.createStatement(req, pathName)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *warehouseResource) createStatement(req *bridge.Request, pathName string) (string, error) {
	body := req.Body
	if body == nil {
		return "", domain.ErrBadRequest("a request body is required to create a warehouse")
	}
	name, err := bodyName(body, pathName)
	if err != nil {
		return "", err
	}
	mode, err := parseCreateMode(req)
	if err != nil {
		return "", err
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("WAREHOUSE").add(mode.ifNotExists()).add(name)
	if v, ok := body["initially_suspended"]; ok && v != nil {
		s.addf("INITIALLY_SUSPENDED = %s", sqlgen.FormatValue(v))
	}
	if err := appendAssignments(s, body, warehouseProps); err != nil {
		return "", err
	}
	return s.String(), nil
}

func (r *warehouseResource) createOrAlter(ctx context.Context, req *bridge.Request, pathName string) ([]normalize.Row, error) {
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
	if !isAnUpdate(req.Body) {
		return successRows(), nil
	}
	changes, err := reconcile.DiffScalars(req.Body, res.Row, warehouseProps)
	if err != nil {
		return nil, err
	}
	var plan reconcile.Plan
	addScalarStatements(&plan, "ALTER WAREHOUSE", name, changes)
	return plan.Apply(ctx, r.exec)
}

func (r *warehouseResource) drop(ctx context.Context, req *bridge.Request, name string) ([]normalize.Row, error) {
	stmtText := "DROP WAREHOUSE " + name
	if dropIfExists(req) {
		stmtText = "DROP WAREHOUSE IF EXISTS " + name
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *warehouseResource) action(ctx context.Context, req *bridge.Request, name string) ([]normalize.Row, error) {
	ifExists := ""
	if dropIfExists(req) {
		ifExists = "IF EXISTS"
	}
	switch req.Action {
	case "resume":
		return r.exec.Execute(ctx, newStmt("ALTER WAREHOUSE", ifExists, name, "RESUME").String())
	case "suspend":
		return r.exec.Execute(ctx, newStmt("ALTER WAREHOUSE", ifExists, name, "SUSPEND").String())
	case "abort":
		return r.exec.Execute(ctx, newStmt("ALTER WAREHOUSE", ifExists, name, "ABORT ALL QUERIES").String())
	case "rename":
		if req.Body == nil {
			return nil, domain.ErrBadRequest("rename requires a body with the new name")
		}
		newName, err := bodyName(req.Body, "")
		if err != nil {
			return nil, err
		}
		return r.exec.Execute(ctx, newStmt("ALTER WAREHOUSE", ifExists, name, "RENAME TO", newName).String())
	}
	return nil, errUnsupported(req)
}
