package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
	"snowbridge/internal/reconcile"
	"snowbridge/internal/sqlgen"
)

type taskResource struct {
	exec executor.Executor
}

// taskScalarProps are the properties reconciled through the shared SET and
// UNSET closure. Schedule, config, predecessors, session parameters,
// condition and definition all have bespoke handling.
var taskScalarProps = []reconcile.Property{
	{Name: "warehouse", Class: reconcile.Optional},
	{Name: "allow_overlapping_execution", Class: reconcile.Optional},
	{Name: "error_integration", Class: reconcile.Optional, Quoted: true},
	{Name: "suspend_task_after_num_failures", Class: reconcile.Optional},
	{Name: "comment", Class: reconcile.Optional, Quoted: true},
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var taskTransforms = map[string]func(any) any{
	"allow_overlapping_execution":     normalize.TrueFalseBool,
	"suspend_task_after_num_failures": normalize.Int,
	"comment":                         normalize.EmptyToNull,
	"condition":                       normalize.EmptyToNull,
	"error_integration":               nullLiteralToNil,
}

func nullLiteralToNil(v any) any {
	if v == "" || v == "null" {
		return nil
	}
	return v
}

func (r *taskResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
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
	case req.Method == http.MethodGet && sub == "dependents":
		return r.dependents(ctx, schema, name)
	case req.Method == http.MethodGet && sub == "current_graphs":
		return r.graphs(ctx, schema, name, "CURRENT_TASK_GRAPHS")
	case req.Method == http.MethodGet && sub == "complete_graphs":
		return r.graphs(ctx, schema, name, "COMPLETE_TASK_GRAPHS")
	case req.Method == http.MethodGet && sub == "":
		res, err := r.describe(ctx, schema, name, true)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			return nil, domain.ErrNotFound("task %s does not exist", schema.Qualify(name))
		}
		return res.Row, nil
	case req.Method == http.MethodPost && isCollection && req.Action == "":
		return r.create(ctx, req, schema, "")
	case req.Method == http.MethodPost && !isCollection && req.Action != "":
		return r.action(ctx, req, schema, name)
	case req.Method == http.MethodPut && !isCollection:
		return r.createOrAlter(ctx, req, schema, name)
	case req.Method == http.MethodDelete && !isCollection:
		return r.drop(ctx, req, schema, name)
	}
	return nil, errUnsupported(req)
}

func (r *taskResource) show(ctx context.Context, req *bridge.Request, schema SchemaHandle) ([]normalize.Row, error) {
	s := newStmt("SHOW TASKS")
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
		obj, err := r.normalizeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (r *taskResource) normalizeRow(row normalize.Row) (normalize.Row, error) {
	normalize.Apply(row, taskTransforms)
	row["predecessors"] = normalize.BracketList(row["predecessors"])
	if sched, ok := row["schedule"].(string); ok {
		row["schedule"] = parseScheduleText(sched)
	}
	if cfg, ok := row["config"].(string); ok {
		if cfg == "" || cfg == "null" {
			row["config"] = nil
		} else {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(cfg), &parsed); err != nil {
				return nil, domain.ErrInternal("task config is not valid JSON: %s", err.Error())
			}
			row["config"] = parsed
		}
	}
	return row, nil
}

// parseScheduleText inverts the SCHEDULE property rendering.
func parseScheduleText(s string) any {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "USING CRON ") {
		rest := strings.TrimPrefix(s, "USING CRON ")
		i := strings.LastIndex(rest, " ")
		if i < 0 {
			return normalize.Row{"schedule_type": "CRON_TYPE", "cron_expr": rest}
		}
		return normalize.Row{
			"schedule_type": "CRON_TYPE",
			"cron_expr":     rest[:i],
			"timezone":      rest[i+1:],
		}
	}
	var minutes int
	if _, err := fmt.Sscanf(s, "%d MINUTE", &minutes); err == nil {
		return normalize.Row{"schedule_type": "MINUTES_TYPE", "minutes": minutes}
	}
	return s
}

func (r *taskResource) describe(ctx context.Context, schema SchemaHandle, name string, deep bool) (describeResult, error) {
	s := newStmt("SHOW TASKS")
	s.add("LIKE " + sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	s.add("IN SCHEMA " + schema.String())
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return describeResult{}, err
	}
	if len(rows) == 0 {
		return describeResult{}, nil
	}
	obj, err := r.normalizeRow(rows[0])
	if err != nil {
		return describeResult{}, err
	}
	if deep {
		if err := r.mergeParameters(ctx, schema, name, obj); err != nil {
			return describeResult{}, err
		}
	}
	return describeResult{Found: true, Row: obj}, nil
}

// mergeParameters folds SHOW PARAMETERS output into the object: the three
// task-scoped properties become top-level fields, everything else set at
// TASK level lands in session_parameters.
func (r *taskResource) mergeParameters(ctx context.Context, schema SchemaHandle, name string, obj normalize.Row) error {
	params, err := r.exec.Execute(ctx, newStmt("SHOW PARAMETERS IN TASK", schema.Qualify(name)).String())
	if err != nil {
		return err
	}
	session := normalize.Row{}
	for _, p := range params {
		if level, _ := p["level"].(string); level != "TASK" {
			continue
		}
		key, _ := p["key"].(string)
		typ, _ := p["type"].(string)
		v, err := normalize.ParameterValue(typ, p["value"])
		if err != nil {
			return domain.ErrInternal("parameter %s: %s", key, err.Error())
		}
		switch key {
		case "SUSPEND_TASK_AFTER_NUM_FAILURES":
			obj["suspend_task_after_num_failures"] = v
		case "USER_TASK_MANAGED_INITIAL_WAREHOUSE_SIZE":
			obj["user_task_managed_initial_warehouse_size"] = v
		case "USER_TASK_TIMEOUT_MS":
			obj["user_task_timeout_ms"] = v
		default:
			session[strings.ToLower(key)] = v
		}
	}
	if len(session) > 0 {
		obj["session_parameters"] = session
	}
	return nil
}

func (r *taskResource) create(ctx context.Context, req *bridge.Request, schema SchemaHandle, pathName string) ([]normalize.Row, error) {
	stmtText, err := r.createStatement(req, schema, pathName)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *taskResource) createStatement(req *bridge.Request, schema SchemaHandle, pathName string) (string, error) {
	body := req.Body
	if body == nil {
		return "", domain.ErrBadRequest("a request body is required to create a task")
	}
	name, err := bodyName(body, pathName)
	if err != nil {
		return "", err
	}
	definition, ok := bodyString(body, "definition")
	if !ok {
		return "", domain.ErrBadRequest("required property definition is missing")
	}
	mode, err := parseCreateMode(req)
	if err != nil {
		return "", err
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("TASK").add(mode.ifNotExists())
	s.add(schema.Qualify(name))
	if wh, ok := bodyString(body, "warehouse"); ok {
		whName, err := normalizeName(wh)
		if err != nil {
			return "", err
		}
		s.addf("WAREHOUSE = %s", whName)
	} else if size, ok := bodyString(body, "user_task_managed_initial_warehouse_size"); ok {
		s.addf("USER_TASK_MANAGED_INITIAL_WAREHOUSE_SIZE = %s", sqlgen.QuoteValue(size))
	}
	if sched, ok := body["schedule"].(map[string]any); ok {
		clause, err := scheduleClause(sched)
		if err != nil {
			return "", err
		}
		s.addf("SCHEDULE = %s", clause)
	}
	if cfg, ok := body["config"].(map[string]any); ok {
		encoded, err := json.Marshal(cfg)
		if err != nil {
			return "", domain.ErrBadRequest("config is not valid JSON: %s", err.Error())
		}
		s.addf("CONFIG = %s", sqlgen.QuoteValue(string(encoded)))
	}
	if v, ok := body["allow_overlapping_execution"]; ok && v != nil {
		s.addf("ALLOW_OVERLAPPING_EXECUTION = %s", sqlgen.FormatValue(v))
	}
	if v, ok := bodyString(body, "error_integration"); ok {
		s.addf("ERROR_INTEGRATION = %s", sqlgen.QuoteValue(v))
	}
	if v, ok := body["suspend_task_after_num_failures"]; ok && v != nil {
		s.addf("SUSPEND_TASK_AFTER_NUM_FAILURES = %s", sqlgen.FormatValue(v))
	}
	if v, ok := bodyString(body, "comment"); ok {
		s.addf("COMMENT = %s", sqlgen.QuoteValue(v))
	}
	if sp, ok := body["session_parameters"].(map[string]any); ok {
		for _, k := range sortedKeys(sp) {
			s.addf("%s = %s", strings.ToUpper(k), sqlgen.QuoteValue(sp[k]))
		}
	}
	preds, err := stringList(body, "predecessors")
	if err != nil {
		return "", err
	}
	if len(preds) > 0 {
		qualified := make([]string, len(preds))
		for i, p := range preds {
			q, err := qualifyPredecessor(schema, p)
			if err != nil {
				return "", err
			}
			qualified[i] = q
		}
		s.add("AFTER " + strings.Join(qualified, ", "))
	}
	if cond, ok := bodyString(body, "condition"); ok {
		s.add("WHEN " + cond)
	}
	s.add("AS " + definition)
	return s.String(), nil
}

// scheduleClause renders the schedule property as a quoted SCHEDULE value,
// validating CRON expressions before anything executes.
func scheduleClause(sched map[string]any) (string, error) {
	switch t, _ := bodyString(sched, "schedule_type"); t {
	case "MINUTES_TYPE":
		minutes := sched["minutes"]
		if minutes == nil {
			return "", domain.ErrBadRequest("a minutes schedule requires minutes")
		}
		return sqlgen.QuoteValue(sqlgen.FormatValue(minutes) + " MINUTE"), nil
	case "CRON_TYPE":
		expr, ok := bodyString(sched, "cron_expr")
		if !ok {
			return "", domain.ErrBadRequest("a cron schedule requires cron_expr")
		}
		if _, err := cronParser.Parse(expr); err != nil {
			return "", domain.ErrBadRequest("invalid cron expression %q: %s", expr, err.Error())
		}
		tz, _ := bodyString(sched, "timezone")
		if tz == "" {
			tz = "UTC"
		}
		return sqlgen.QuoteValue("USING CRON " + expr + " " + tz), nil
	default:
		return "", domain.ErrBadRequest("schedule_type must be MINUTES_TYPE or CRON_TYPE")
	}
}

func qualifyPredecessor(schema SchemaHandle, name string) (string, error) {
	parts := sqlgen.SplitObjectName(name)
	last, err := normalizeName(parts[len(parts)-1])
	if err != nil {
		return "", err
	}
	return schema.Qualify(last), nil
}

// predecessorKey canonicalizes a predecessor reference to its final name
// part so qualified and bare spellings compare equal.
func predecessorKey(name string) string {
	parts := sqlgen.SplitObjectName(name)
	return strings.ToUpper(sqlgen.UnquoteName(parts[len(parts)-1]))
}

func (r *taskResource) createOrAlter(ctx context.Context, req *bridge.Request, schema SchemaHandle, pathName string) ([]normalize.Row, error) {
	body := req.Body
	if body == nil {
		return nil, domain.ErrBadRequest("a request body is required")
	}
	name, err := bodyName(body, pathName)
	if err != nil {
		return nil, err
	}
	if _, ok := bodyString(body, "definition"); !ok {
		return nil, domain.ErrBadRequest("required property definition is missing")
	}
	res, err := r.describe(ctx, schema, name, true)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return r.create(ctx, req, schema, name)
	}
	plan, err := r.alterPlan(schema, name, body, res.Row)
	if err != nil {
		return nil, err
	}
	rows, err := plan.Apply(ctx, r.exec)
	if err != nil {
		return nil, domain.ErrInternal("could not fully apply the task changes, some statements may already have taken effect: %s", err.Error())
	}
	return rows, nil
}

// alterPlan builds the UNSET statement, the SET statement, and the
// structural statements, in that order.
func (r *taskResource) alterPlan(schema SchemaHandle, name string, desired, current normalize.Row) (*reconcile.Plan, error) {
	qualified := schema.Qualify(name)

	if size, ok := bodyString(desired, "user_task_managed_initial_warehouse_size"); ok {
		if cur, _ := current["user_task_managed_initial_warehouse_size"].(string); cur != "" && !strings.EqualFold(cur, size) {
			return nil, domain.ErrBadRequest("user_task_managed_initial_warehouse_size cannot be changed after creation")
		}
	}

	var unsetParts, setParts []string

	changes, err := reconcile.DiffScalars(desired, current, taskScalarProps)
	if err != nil {
		return nil, err
	}
	set, unset := reconcile.Split(changes)
	for _, c := range unset {
		unsetParts = append(unsetParts, strings.ToUpper(c.Name))
	}
	for _, c := range set {
		setParts = append(setParts, fmt.Sprintf("%s = %s", strings.ToUpper(c.Name), c.Value))
	}

	// Schedule.
	desiredSched, hasSched := desired["schedule"].(map[string]any)
	if hasSched {
		clause, err := scheduleClause(desiredSched)
		if err != nil {
			return nil, err
		}
		currentClause := ""
		if cs, ok := current["schedule"].(normalize.Row); ok {
			if c, err := scheduleClause(cs); err == nil {
				currentClause = c
			}
		}
		if clause != currentClause {
			setParts = append(setParts, "SCHEDULE = "+clause)
		}
	} else if current["schedule"] != nil {
		unsetParts = append(unsetParts, "SCHEDULE")
	}

	// Config.
	if cfg, ok := desired["config"].(map[string]any); ok {
		encoded, err := json.Marshal(cfg)
		if err != nil {
			return nil, domain.ErrBadRequest("config is not valid JSON: %s", err.Error())
		}
		currentEncoded := ""
		if cc, ok := current["config"].(map[string]any); ok {
			b, _ := json.Marshal(cc)
			currentEncoded = string(b)
		}
		if string(encoded) != currentEncoded {
			setParts = append(setParts, "CONFIG = "+sqlgen.QuoteValue(string(encoded)))
		}
	} else if current["config"] != nil {
		unsetParts = append(unsetParts, "CONFIG")
	}

	// Session parameters.
	desiredSession, _ := desired["session_parameters"].(map[string]any)
	currentSession, _ := current["session_parameters"].(normalize.Row)
	for _, k := range sortedKeys(currentSession) {
		if _, ok := desiredSession[k]; !ok {
			unsetParts = append(unsetParts, strings.ToUpper(k))
		}
	}
	for _, k := range sortedKeys(desiredSession) {
		dv := sqlgen.QuoteValue(desiredSession[k])
		if cv, ok := currentSession[k]; !ok || sqlgen.QuoteValue(cv) != dv {
			setParts = append(setParts, fmt.Sprintf("%s = %s", strings.ToUpper(k), dv))
		}
	}

	plan := &reconcile.Plan{}
	if len(unsetParts) > 0 {
		plan.Add(newStmt("ALTER TASK", qualified, "UNSET", strings.Join(unsetParts, ", ")).String())
	}
	if len(setParts) > 0 {
		s := newStmt("ALTER TASK", qualified, "SET")
		for _, p := range setParts {
			s.add(p)
		}
		plan.Add(s.String())
	}

	// Predecessors: absent names are removed, new names are added.
	desiredPreds, err := stringList(desired, "predecessors")
	if err != nil {
		return nil, err
	}
	currentPreds, _ := current["predecessors"].([]string)
	removed, added := reconcile.DiffDependencies(desiredPreds, currentPreds, predecessorKey)
	if len(removed) > 0 {
		qualifiedRemoved := make([]string, len(removed))
		for i, p := range removed {
			q, err := qualifyPredecessor(schema, p)
			if err != nil {
				return nil, err
			}
			qualifiedRemoved[i] = q
		}
		plan.Add(newStmt("ALTER TASK", qualified, "REMOVE AFTER", strings.Join(qualifiedRemoved, ", ")).String())
	}
	if len(added) > 0 {
		qualifiedAdded := make([]string, len(added))
		for i, p := range added {
			q, err := qualifyPredecessor(schema, p)
			if err != nil {
				return nil, err
			}
			qualifiedAdded[i] = q
		}
		plan.Add(newStmt("ALTER TASK", qualified, "ADD AFTER", strings.Join(qualifiedAdded, ", ")).String())
	}

	// Condition.
	desiredCond, hasCond := bodyString(desired, "condition")
	currentCond, _ := current["condition"].(string)
	switch {
	case hasCond && desiredCond != currentCond:
		plan.Add(newStmt("ALTER TASK", qualified, "MODIFY WHEN", desiredCond).String())
	case !hasCond && currentCond != "":
		plan.Add(newStmt("ALTER TASK", qualified, "MODIFY WHEN 1=1").String())
	}

	// Definition.
	desiredDef, _ := bodyString(desired, "definition")
	if currentDef, _ := current["definition"].(string); desiredDef != currentDef {
		plan.Add(newStmt("ALTER TASK", qualified, "MODIFY AS", desiredDef).String())
	}
	return plan, nil
}

func (r *taskResource) drop(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	qualified := schema.Qualify(name)
	stmtText := "DROP TASK " + qualified
	if dropIfExists(req) {
		stmtText = "DROP TASK IF EXISTS " + qualified
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *taskResource) action(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	qualified := schema.Qualify(name)
	switch req.Action {
	case "resume":
		return r.exec.Execute(ctx, newStmt("ALTER TASK", qualified, "RESUME").String())
	case "suspend":
		return r.exec.Execute(ctx, newStmt("ALTER TASK", qualified, "SUSPEND").String())
	case "execute":
		s := newStmt("EXECUTE TASK", qualified)
		if req.QueryFlag("retryLast") {
			s.add("RETRY LAST")
		}
		return r.exec.Execute(ctx, s.String())
	}
	return nil, errUnsupported(req)
}

func (r *taskResource) dependents(ctx context.Context, schema SchemaHandle, name string) ([]normalize.Row, error) {
	fullName := sqlgen.UnquoteName(schema.Database) + "." + sqlgen.UnquoteName(schema.Name) + "." + sqlgen.UnquoteName(name)
	s := newStmt().addf(
		"SELECT * FROM TABLE(%s.INFORMATION_SCHEMA.TASK_DEPENDENTS(TASK_NAME => %s, RECURSIVE => true))",
		schema.Database, sqlgen.QuoteValue(fullName))
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Row, 0, len(rows))
	for _, row := range rows {
		obj, err := r.normalizeRow(normalize.LowerKeys(row))
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (r *taskResource) graphs(ctx context.Context, schema SchemaHandle, name, function string) ([]normalize.Row, error) {
	s := newStmt().addf(
		"SELECT * FROM TABLE(%s.INFORMATION_SCHEMA.%s(ROOT_TASK_NAME => %s))",
		schema.Database, function, sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Row, 0, len(rows))
	for _, raw := range rows {
		row := normalize.LowerKeys(raw)
		dbName, _ := row["database_name"].(string)
		schemaName, _ := row["schema_name"].(string)
		if dbName != "" && !strings.EqualFold(dbName, sqlgen.UnquoteName(schema.Database)) {
			continue
		}
		if schemaName != "" && !strings.EqualFold(schemaName, sqlgen.UnquoteName(schema.Name)) {
			continue
		}
		normalize.Apply(row, map[string]func(any) any{
			"first_error_code": normalize.Int,
		})
		out = append(out, row)
	}
	return out, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
