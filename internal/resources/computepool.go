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

type computePoolResource struct {
	exec executor.Executor
}

var computePoolProps = []reconcile.Property{
	{Name: "min_nodes", Class: reconcile.Required},
	{Name: "max_nodes", Class: reconcile.Required},
	{Name: "instance_family", Class: reconcile.Immutable},
	{Name: "auto_resume", Class: reconcile.Optional},
	{Name: "auto_suspend_secs", Class: reconcile.Optional},
	{Name: "comment", Class: reconcile.Optional, Quoted: true},
	{Name: "created_on", Class: reconcile.ReadOnly},
	{Name: "state", Class: reconcile.ReadOnly},
	{Name: "num_services", Class: reconcile.ReadOnly},
	{Name: "num_jobs", Class: reconcile.ReadOnly},
	{Name: "owner", Class: reconcile.ReadOnly},
	{Name: "active_nodes", Class: reconcile.ReadOnly},
	{Name: "idle_nodes", Class: reconcile.ReadOnly},
}

var computePoolTransforms = map[string]func(any) any{
	"auto_resume":       normalize.TrueFalseBool,
	"min_nodes":         normalize.Int,
	"max_nodes":         normalize.Int,
	"active_nodes":      normalize.Int,
	"idle_nodes":        normalize.Int,
	"num_services":      normalize.Int,
	"num_jobs":          normalize.Int,
	"auto_suspend_secs": normalize.Int,
	"comment":           normalize.EmptyToNull,
}

func (r *computePoolResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
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
			return nil, domain.ErrNotFound("compute pool %s does not exist", name)
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

func (r *computePoolResource) show(ctx context.Context, req *bridge.Request) ([]normalize.Row, error) {
	s := newStmt("SHOW COMPUTE POOLS")
	if err := addShowFilters(s, req, false); err != nil {
		return nil, err
	}
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Row, 0, len(rows))
	for _, row := range rows {
		normalize.Apply(row, computePoolTransforms)
		out = append(out, row)
	}
	return out, nil
}

func (r *computePoolResource) describe(ctx context.Context, name string) (describeResult, error) {
	s := newStmt("SHOW COMPUTE POOLS")
	s.add("LIKE " + sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return describeResult{}, err
	}
	if len(rows) == 0 {
		return describeResult{}, nil
	}
	row := rows[0]
	normalize.Apply(row, computePoolTransforms)
	return describeResult{Found: true, Row: row}, nil
}

func (r *computePoolResource) create(ctx context.Context, req *bridge.Request, pathName string) ([]normalize.Row, error) {
	stmtText, err := r.createStatement(req, pathName)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *computePoolResource) createStatement(req *bridge.Request, pathName string) (string, error) {
	body := req.Body
	if body == nil {
		return "", domain.ErrBadRequest("a request body is required to create a compute pool")
	}
	name, err := bodyName(body, pathName)
	if err != nil {
		return "", err
	}
	mode, err := parseCreateMode(req)
	if err != nil {
		return "", err
	}
	for _, required := range []string{"min_nodes", "max_nodes", "instance_family"} {
		if v, ok := body[required]; !ok || v == nil {
			return "", domain.ErrBadRequest("required property %s is missing", required)
		}
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("COMPUTE POOL").add(mode.ifNotExists()).add(name)
	s.addf("MIN_NODES = %s", sqlgen.FormatValue(body["min_nodes"]))
	s.addf("MAX_NODES = %s", sqlgen.FormatValue(body["max_nodes"]))
	s.addf("INSTANCE_FAMILY = %s", strings.ToUpper(sqlgen.FormatValue(body["instance_family"])))
	if v, ok := body["auto_resume"]; ok && v != nil {
		s.addf("AUTO_RESUME = %s", sqlgen.FormatValue(v))
	}
	if v, ok := body["auto_suspend_secs"]; ok && v != nil {
		s.addf("AUTO_SUSPEND_SECS = %s", sqlgen.FormatValue(v))
	}
	if v, ok := bodyString(body, "comment"); ok {
		s.addf("COMMENT = %s", sqlgen.QuoteValue(v))
	}
	return s.String(), nil
}

func (r *computePoolResource) createOrAlter(ctx context.Context, req *bridge.Request, pathName string) ([]normalize.Row, error) {
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
	// Absent optional properties fall back to their creation defaults
	// instead of UNSET, which the pool object does not support.
	desired := make(map[string]any, len(req.Body)+2)
	for k, v := range req.Body {
		desired[k] = v
	}
	if _, ok := desired["auto_resume"]; !ok {
		desired["auto_resume"] = true
	}
	// A current comment normalized to nil never produces an UNSET on its
	// own, so a supplied comment always diffs into a SET.
	if res.Row["comment"] == nil {
		normalize.Drop(res.Row, "comment")
	}
	changes, err := reconcile.DiffScalars(desired, res.Row, computePoolProps)
	if err != nil {
		return nil, err
	}
	var plan reconcile.Plan
	addScalarStatements(&plan, "ALTER COMPUTE POOL", name, changes)
	return plan.Apply(ctx, r.exec)
}

func (r *computePoolResource) drop(ctx context.Context, req *bridge.Request, name string) ([]normalize.Row, error) {
	stmtText := "DROP COMPUTE POOL " + name
	if dropIfExists(req) {
		stmtText = "DROP COMPUTE POOL IF EXISTS " + name
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *computePoolResource) action(ctx context.Context, req *bridge.Request, name string) ([]normalize.Row, error) {
	switch req.Action {
	case "resume":
		return r.exec.Execute(ctx, newStmt("ALTER COMPUTE POOL", name, "RESUME").String())
	case "suspend":
		return r.exec.Execute(ctx, newStmt("ALTER COMPUTE POOL", name, "SUSPEND").String())
	case "stopallservices":
		return r.exec.Execute(ctx, newStmt("ALTER COMPUTE POOL", name, "STOP ALL").String())
	}
	return nil, errUnsupported(req)
}
