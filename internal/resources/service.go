package resources

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
	"snowbridge/internal/sqlgen"
)

type serviceResource struct {
	exec executor.Executor
}

var serviceTransforms = map[string]func(any) any{
	"auto_resume":   normalize.TrueFalseBool,
	"min_instances": normalize.Int,
	"max_instances": normalize.Int,
	"comment":       normalize.EmptyToNull,
}

func (r *serviceResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
	schema, err := schemaHandleFromPath(segs)
	if err != nil {
		return nil, err
	}
	isCollection := len(segs) == 7
	var name, sub string
	if !isCollection {
		if name, err = normalizeName(segs[7]); err != nil {
			return nil, err
		}
	}
	if len(segs) > 8 {
		sub = segs[8]
	}
	switch {
	case req.Method == http.MethodGet && isCollection:
		return r.show(ctx, req, schema)
	case req.Method == http.MethodGet && sub == "status":
		return r.status(ctx, req, schema, name)
	case req.Method == http.MethodGet && sub == "logs":
		return r.logs(ctx, req, schema, name)
	case req.Method == http.MethodGet && sub == "":
		res, err := r.describe(ctx, schema, name)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			return nil, domain.ErrNotFound("service %s does not exist", schema.Qualify(name))
		}
		return res.Row, nil
	case req.Method == http.MethodPost && isCollection && req.Action == "":
		return r.create(ctx, req, schema)
	case req.Method == http.MethodPost && !isCollection && req.Action != "":
		return r.action(ctx, req, schema, name)
	case req.Method == http.MethodDelete && !isCollection:
		return r.drop(ctx, req, schema, name)
	}
	return nil, errUnsupported(req)
}

func (r *serviceResource) show(ctx context.Context, req *bridge.Request, schema SchemaHandle) ([]normalize.Row, error) {
	s := newStmt("SHOW SERVICES")
	if err := addShowFilters(s, req, false); err != nil {
		return nil, err
	}
	s.add("IN SCHEMA " + schema.String())
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Row, 0, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		obj, err := r.describeRow(ctx, schema, sqlgen.DoubleQuoteName(name), row)
		if err != nil {
			// A service dropped between SHOW and DESCRIBE is skipped, not
			// fatal.
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

// describeRow enriches a SHOW row with the DESCRIBE output, which carries
// the specification and instance counts the listing lacks.
func (r *serviceResource) describeRow(ctx context.Context, schema SchemaHandle, name string, row normalize.Row) (normalize.Row, error) {
	descRows, err := r.exec.Execute(ctx, newStmt("DESCRIBE SERVICE", schema.Qualify(name)).String())
	if err != nil {
		return nil, err
	}
	if len(descRows) > 0 {
		for k, v := range descRows[0] {
			row[k] = v
		}
	}
	if spec, ok := row["spec"].(string); ok && spec != "" {
		row["spec"] = normalize.Row{"spec_type": "from_inline", "spec_text": spec}
	}
	normalize.Apply(row, serviceTransforms)
	return row, nil
}

func (r *serviceResource) describe(ctx context.Context, schema SchemaHandle, name string) (describeResult, error) {
	s := newStmt("SHOW SERVICES")
	s.add("LIKE " + sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	s.add("IN SCHEMA " + schema.String())
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return describeResult{}, err
	}
	if len(rows) == 0 {
		return describeResult{}, nil
	}
	obj, err := r.describeRow(ctx, schema, name, rows[0])
	if err != nil {
		return describeResult{}, err
	}
	return describeResult{Found: true, Row: obj}, nil
}

func (r *serviceResource) create(ctx context.Context, req *bridge.Request, schema SchemaHandle) ([]normalize.Row, error) {
	stmtText, err := r.createStatement(req, schema)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *serviceResource) createStatement(req *bridge.Request, schema SchemaHandle) (string, error) {
	body := req.Body
	if body == nil {
		return "", domain.ErrBadRequest("a request body is required to create a service")
	}
	name, err := bodyName(body, "")
	if err != nil {
		return "", err
	}
	mode, err := parseCreateMode(req)
	if err != nil {
		return "", err
	}
	pool, ok := bodyString(body, "compute_pool")
	if !ok {
		return "", domain.ErrBadRequest("required property compute_pool is missing")
	}
	poolName, err := normalizeName(pool)
	if err != nil {
		return "", err
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("SERVICE").add(mode.ifNotExists())
	s.add(schema.Qualify(name))
	s.add("IN COMPUTE POOL " + poolName)
	spec, _ := body["spec"].(map[string]any)
	if spec == nil {
		return "", domain.ErrBadRequest("required property spec is missing")
	}
	switch specType, _ := bodyString(spec, "spec_type"); specType {
	case "from_inline":
		text, ok := bodyString(spec, "spec_text")
		if !ok {
			return "", domain.ErrBadRequest("an inline spec requires spec_text")
		}
		s.add("FROM SPECIFICATION $$" + text + "$$")
	case "from_file":
		stage, ok := bodyString(spec, "stage")
		if !ok {
			return "", domain.ErrBadRequest("a staged spec requires a stage")
		}
		file, ok := bodyString(spec, "spec_file")
		if !ok {
			return "", domain.ErrBadRequest("a staged spec requires spec_file")
		}
		s.add("FROM @" + stage)
		s.addf("SPECIFICATION_FILE = %s", sqlgen.QuoteValue(file))
	default:
		return "", domain.ErrBadRequest("spec_type must be from_inline or from_file")
	}
	if v, ok := body["min_instances"]; ok && v != nil {
		s.addf("MIN_INSTANCES = %s", sqlgen.FormatValue(v))
	}
	if v, ok := body["max_instances"]; ok && v != nil {
		s.addf("MAX_INSTANCES = %s", sqlgen.FormatValue(v))
	}
	if v, ok := body["auto_resume"]; ok && v != nil {
		s.addf("AUTO_RESUME = %s", sqlgen.FormatValue(v))
	}
	if v, ok := bodyString(body, "query_warehouse"); ok {
		wh, err := normalizeName(v)
		if err != nil {
			return "", err
		}
		s.addf("QUERY_WAREHOUSE = %s", wh)
	}
	if v, ok := bodyString(body, "comment"); ok {
		s.addf("COMMENT = %s", sqlgen.QuoteValue(v))
	}
	return s.String(), nil
}

func (r *serviceResource) drop(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	qualified := schema.Qualify(name)
	stmtText := "DROP SERVICE " + qualified
	if dropIfExists(req) {
		stmtText = "DROP SERVICE IF EXISTS " + qualified
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *serviceResource) action(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	ifExists := ""
	if dropIfExists(req) {
		ifExists = "IF EXISTS"
	}
	switch req.Action {
	case "resume":
		return r.exec.Execute(ctx, newStmt("ALTER SERVICE", ifExists, schema.Qualify(name), "RESUME").String())
	case "suspend":
		return r.exec.Execute(ctx, newStmt("ALTER SERVICE", ifExists, schema.Qualify(name), "SUSPEND").String())
	}
	return nil, errUnsupported(req)
}

// status calls the service status function, forwarding the caller's
// readiness timeout.
func (r *serviceResource) status(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	timeout := 0
	if v, ok := req.QueryValue("timeout"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, domain.ErrBadRequest("timeout must be an integer, got %q", v)
		}
		timeout = n
	}
	s := newStmt().addf("CALL SYSTEM$GET_SERVICE_STATUS('%s', %d)",
		sqlgen.UnquoteName(schema.Database)+"."+sqlgen.UnquoteName(schema.Name)+"."+sqlgen.UnquoteName(name), timeout)
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	return lowerAllKeys(rows), nil
}

func (r *serviceResource) logs(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	instanceID, ok := req.QueryValue("instanceId")
	if !ok {
		return nil, domain.ErrBadRequest("instanceId is required")
	}
	container, ok := req.QueryValue("containerName")
	if !ok {
		return nil, domain.ErrBadRequest("containerName is required")
	}
	s := newStmt().addf("CALL SYSTEM$GET_SERVICE_LOGS('%s', '%s', '%s')",
		sqlgen.UnquoteName(schema.Database)+"."+sqlgen.UnquoteName(schema.Name)+"."+sqlgen.UnquoteName(name),
		instanceID, container)
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	return lowerAllKeys(rows), nil
}

func lowerAllKeys(rows []normalize.Row) []normalize.Row {
	out := make([]normalize.Row, len(rows))
	for i, row := range rows {
		out[i] = normalize.LowerKeys(row)
	}
	return out
}
