package resources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/normalize"
	"snowbridge/internal/reconcile"
	"snowbridge/internal/sqlgen"
)

type tableResource struct {
	exec executor.Executor
}

var tableScalarProps = []reconcile.Property{
	{Name: "data_retention_time_in_days", Class: reconcile.Optional},
	{Name: "max_data_extension_time_in_days", Class: reconcile.Optional},
	{Name: "change_tracking", Class: reconcile.Optional},
	{Name: "enable_schema_evolution", Class: reconcile.Optional},
	{Name: "default_ddl_collation", Class: reconcile.Optional, Quoted: true},
	{Name: "comment", Class: reconcile.Optional, Quoted: true},
}

var tableTransforms = map[string]func(any) any{
	"change_tracking":         normalize.OnOffBool,
	"search_optimization":     normalize.OnOffBool,
	"automatic_clustering":    normalize.OnOffBool,
	"enable_schema_evolution": normalize.YNBool,
	"rows":                    normalize.Int,
	"bytes":                   normalize.Int,
	"comment":                 normalize.EmptyToNull,
}

// sysConstraintRe matches backend-assigned constraint names, which signal
// that the user never named the constraint.
var sysConstraintRe = regexp.MustCompile(
	`^SYS_CONSTRAINT_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// tableColumn is one column of the desired or current table definition.
type tableColumn struct {
	Name          string
	Datatype      string
	Nullable      bool
	Collate       string
	Default       string
	Autoincrement bool
	Comment       string
	PrimaryKey    bool
	Unique        bool
}

// tableConstraint is an out-of-line key constraint. Inline column
// constraints are consolidated into this form before diffing.
type tableConstraint struct {
	Name    string
	Type    string // PRIMARY KEY or UNIQUE
	Columns []string
}

func (c tableConstraint) key() string {
	if c.Type == "PRIMARY KEY" {
		return "PRIMARY KEY"
	}
	cols := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = strings.ToUpper(sqlgen.UnquoteName(col))
	}
	return "UNIQUE:" + strings.Join(cols, ",")
}

func (c tableConstraint) sql() string {
	cols := strings.Join(c.Columns, ", ")
	if c.Name != "" {
		return fmt.Sprintf("CONSTRAINT %s %s (%s)", sqlgen.DoubleQuoteName(c.Name), c.Type, cols)
	}
	return fmt.Sprintf("%s (%s)", c.Type, cols)
}

func (r *tableResource) handle(ctx context.Context, req *bridge.Request, segs []string) (any, error) {
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
		res, err := r.describe(ctx, schema, name, true)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			return nil, domain.ErrNotFound("table %s does not exist", schema.Qualify(name))
		}
		return tableWireRow(res.Row), nil
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

func (r *tableResource) show(ctx context.Context, req *bridge.Request, schema SchemaHandle) ([]normalize.Row, error) {
	s := newStmt("SHOW")
	if !req.QueryFlag("deep") {
		s.add("TERSE")
	}
	s.add("TABLES")
	if err := addShowFilters(s, req, true); err != nil {
		return nil, err
	}
	s.add("IN SCHEMA " + schema.String())
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Row, 0, len(rows))
	for _, row := range rows {
		if dropped, _ := row["dropped_on"].(string); dropped != "" {
			continue
		}
		if row["is_external"] == "Y" || row["is_event"] == "Y" || row["is_hybrid"] == "Y" {
			continue
		}
		normalize.Apply(row, tableTransforms)
		r.normalizeBaseRow(row)
		out = append(out, row)
	}
	return out, nil
}

// normalizeBaseRow applies the renames and list parsing shared by show and
// describe.
func (r *tableResource) normalizeBaseRow(row normalize.Row) {
	if v, ok := row["retention_time"]; ok {
		row["data_retention_time_in_days"] = normalize.Int(v)
	}
	if v, ok := row["cluster_by"].(string); ok {
		row["cluster_by"] = parseClusterBy(v)
	}
	normalize.Drop(row, "retention_time", "is_external", "is_event", "is_hybrid", "is_dynamic", "is_iceberg", "budget")
}

// parseClusterBy strips the LINEAR(...) wrapper and splits the expressions.
func parseClusterBy(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return []string{}
	}
	if strings.HasPrefix(strings.ToUpper(v), "LINEAR(") && strings.HasSuffix(v, ")") {
		v = v[len("LINEAR(") : len(v)-1]
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *tableResource) describe(ctx context.Context, schema SchemaHandle, name string, deep bool) (describeResult, error) {
	s := newStmt("SHOW TABLES")
	s.add("LIKE " + sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	s.add("IN SCHEMA " + schema.String())
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return describeResult{}, err
	}
	if len(rows) == 0 {
		return describeResult{}, nil
	}
	row := rows[0]
	normalize.Apply(row, tableTransforms)
	r.normalizeBaseRow(row)
	if deep {
		columns, err := r.fetchColumns(ctx, schema, name)
		if err != nil {
			return describeResult{}, err
		}
		row["columns"] = columns
		constraints, err := r.fetchConstraints(ctx, schema, name)
		if err != nil {
			return describeResult{}, err
		}
		row["constraints"] = constraints
	}
	return describeResult{Found: true, Row: row}, nil
}

func (r *tableResource) fetchColumns(ctx context.Context, schema SchemaHandle, name string) ([]tableColumn, error) {
	s := newStmt().addf(
		"SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT, IS_IDENTITY, COLLATION_NAME, COMMENT FROM %s.INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = %s AND TABLE_NAME = %s ORDER BY ORDINAL_POSITION",
		schema.Database,
		sqlgen.QuoteValue(sqlgen.UnquoteName(schema.Name)),
		sqlgen.QuoteValue(sqlgen.UnquoteName(name)))
	rows, err := r.exec.Execute(ctx, s.String())
	if err != nil {
		return nil, err
	}
	columns := make([]tableColumn, 0, len(rows))
	for _, raw := range rows {
		row := normalize.LowerKeys(raw)
		col := tableColumn{
			Name:          str(row["column_name"]),
			Datatype:      sqlgen.NormalizeDatatype(str(row["data_type"])),
			Nullable:      str(row["is_nullable"]) != "NO",
			Default:       str(row["column_default"]),
			Autoincrement: str(row["is_identity"]) == "YES",
			Collate:       str(row["collation_name"]),
			Comment:       str(row["comment"]),
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (r *tableResource) fetchConstraints(ctx context.Context, schema SchemaHandle, name string) ([]tableConstraint, error) {
	var out []tableConstraint
	for _, kind := range []struct{ show, typ string }{
		{"SHOW PRIMARY KEYS IN TABLE", "PRIMARY KEY"},
		{"SHOW UNIQUE KEYS IN TABLE", "UNIQUE"},
	} {
		rows, err := r.exec.Execute(ctx, newStmt(kind.show, schema.Qualify(name)).String())
		if err != nil {
			return nil, err
		}
		grouped := map[string][]normalize.Row{}
		var order []string
		for _, row := range rows {
			cname := str(row["constraint_name"])
			if _, ok := grouped[cname]; !ok {
				order = append(order, cname)
			}
			grouped[cname] = append(grouped[cname], row)
		}
		for _, cname := range order {
			members := grouped[cname]
			sort.Slice(members, func(i, j int) bool {
				return normalize.Int(members[i]["key_sequence"]).(int) < normalize.Int(members[j]["key_sequence"]).(int)
			})
			cols := make([]string, len(members))
			for i, m := range members {
				cols[i] = str(m["column_name"])
			}
			out = append(out, tableConstraint{Name: cname, Type: kind.typ, Columns: cols})
		}
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// wire renders the column in its response shape. The struct itself stays
// internal to the diff and never marshals directly.
func (c tableColumn) wire() normalize.Row {
	return normalize.Row{
		"name":          c.Name,
		"datatype":      c.Datatype,
		"nullable":      c.Nullable,
		"collate":       normalize.EmptyToNull(c.Collate),
		"default":       normalize.EmptyToNull(c.Default),
		"autoincrement": c.Autoincrement,
		"comment":       normalize.EmptyToNull(c.Comment),
	}
}

func (c tableConstraint) wire() normalize.Row {
	return normalize.Row{
		"name":            normalize.EmptyToNull(c.Name),
		"constraint_type": c.Type,
		"column_names":    c.Columns,
	}
}

// tableWireRow swaps the diffing structs in a deep describe row for their
// response shapes.
func tableWireRow(row normalize.Row) normalize.Row {
	if cols, ok := row["columns"].([]tableColumn); ok {
		out := make([]normalize.Row, len(cols))
		for i, c := range cols {
			out[i] = c.wire()
		}
		row["columns"] = out
	}
	if cons, ok := row["constraints"].([]tableConstraint); ok {
		out := make([]normalize.Row, len(cons))
		for i, c := range cons {
			out[i] = c.wire()
		}
		row["constraints"] = out
	}
	return row
}

func (r *tableResource) create(ctx context.Context, req *bridge.Request, schema SchemaHandle, pathName string) ([]normalize.Row, error) {
	stmtText, err := r.createStatement(req, schema, pathName)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *tableResource) createStatement(req *bridge.Request, schema SchemaHandle, pathName string) (string, error) {
	body := req.Body
	if body == nil {
		return "", domain.ErrBadRequest("a request body is required to create a table")
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
		return r.cloneStatement(schema, mode, name, clone)
	}
	columns, constraints, err := parseDesiredColumns(body)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", domain.ErrBadRequest("a table requires at least one column")
	}
	s := newStmt("CREATE").add(mode.orReplace())
	if kind := canonicalTableKind(body); kind != "PERMANENT" {
		s.add(kind)
	}
	s.add("TABLE").add(mode.ifNotExists()).add(schema.Qualify(name))
	var defs []string
	for _, c := range columns {
		defs = append(defs, columnSQL(c))
	}
	for _, c := range constraints {
		defs = append(defs, c.sql())
	}
	s.add("(" + strings.Join(defs, ", ") + ")")
	if clusterBy, err := stringList(body, "cluster_by"); err != nil {
		return "", err
	} else if len(clusterBy) > 0 {
		s.add("CLUSTER BY (" + strings.Join(clusterBy, ", ") + ")")
	}
	if err := appendAssignments(s, body, tableScalarProps); err != nil {
		return "", err
	}
	return s.String(), nil
}

func (r *tableResource) cloneStatement(schema SchemaHandle, mode createMode, name string, clone map[string]any) (string, error) {
	source, ok := bodyString(clone, "source")
	if !ok {
		return "", domain.ErrBadRequest("clone requires a source table")
	}
	src, err := normalizeName(source)
	if err != nil {
		return "", err
	}
	s := newStmt("CREATE").add(mode.orReplace()).add("TABLE").add(mode.ifNotExists())
	s.add(schema.Qualify(name))
	s.add("CLONE " + schema.Qualify(src))
	if pot, ok := clone["point_of_time"].(map[string]any); ok {
		clause, err := pointOfTimeClause(pot)
		if err != nil {
			return "", err
		}
		s.add(clause)
	}
	return s.String(), nil
}

// canonicalTableKind folds the kind spellings, treating TEMP and TEMPORARY
// as the same kind.
func canonicalTableKind(body map[string]any) string {
	kind, _ := bodyString(body, "kind")
	kind = strings.ToUpper(kind)
	switch kind {
	case "", "PERMANENT", "TABLE":
		return "PERMANENT"
	case "TEMP", "TEMPORARY":
		return "TEMPORARY"
	}
	return kind
}

func parseDesiredColumns(body map[string]any) ([]tableColumn, []tableConstraint, error) {
	rawCols, ok := body["columns"].([]any)
	if !ok {
		return nil, nil, domain.ErrBadRequest("required property columns is missing")
	}
	var columns []tableColumn
	var constraints []tableConstraint
	for _, rc := range rawCols {
		m, ok := rc.(map[string]any)
		if !ok {
			return nil, nil, domain.ErrBadRequest("each column must be an object")
		}
		col, err := columnFromBody(m)
		if err != nil {
			return nil, nil, err
		}
		// Inline key constraints become out-of-line constraints over one
		// column, so both spellings diff identically.
		if col.PrimaryKey {
			constraints = append(constraints, tableConstraint{Type: "PRIMARY KEY", Columns: []string{col.Name}})
			col.PrimaryKey = false
		}
		if col.Unique {
			constraints = append(constraints, tableConstraint{Type: "UNIQUE", Columns: []string{col.Name}})
			col.Unique = false
		}
		columns = append(columns, col)
	}
	if rawCons, ok := body["constraints"].([]any); ok {
		for _, rc := range rawCons {
			m, ok := rc.(map[string]any)
			if !ok {
				return nil, nil, domain.ErrBadRequest("each constraint must be an object")
			}
			c, err := constraintFromBody(m)
			if err != nil {
				return nil, nil, err
			}
			constraints = append(constraints, c)
		}
	}
	pks := 0
	for _, c := range constraints {
		if c.Type == "PRIMARY KEY" {
			pks++
		}
	}
	if pks > 1 {
		return nil, nil, domain.ErrBadRequest("a table can carry at most one primary key")
	}
	return columns, constraints, nil
}

func columnFromBody(m map[string]any) (tableColumn, error) {
	name, ok := bodyString(m, "name")
	if !ok {
		return tableColumn{}, domain.ErrBadRequest("every column requires a name")
	}
	normalized, err := normalizeName(name)
	if err != nil {
		return tableColumn{}, err
	}
	datatype, ok := bodyString(m, "datatype")
	if !ok {
		return tableColumn{}, domain.ErrBadRequest("column %s requires a datatype", normalized)
	}
	col := tableColumn{
		Name:     normalized,
		Datatype: sqlgen.NormalizeDatatype(datatype),
		Nullable: true,
	}
	if v, ok := m["nullable"].(bool); ok {
		col.Nullable = v
	}
	col.Collate, _ = bodyString(m, "collate")
	col.Default, _ = bodyString(m, "default")
	if v, ok := m["autoincrement"].(bool); ok {
		col.Autoincrement = v
	}
	col.Comment, _ = bodyString(m, "comment")
	if v, ok := m["primary_key"].(bool); ok {
		col.PrimaryKey = v
	}
	if v, ok := m["unique"].(bool); ok {
		col.Unique = v
	}
	return col, nil
}

func constraintFromBody(m map[string]any) (tableConstraint, error) {
	typ, _ := bodyString(m, "constraint_type")
	typ = strings.ToUpper(typ)
	if typ == "PRIMARYKEY" {
		typ = "PRIMARY KEY"
	}
	if typ != "PRIMARY KEY" && typ != "UNIQUE" {
		return tableConstraint{}, domain.ErrBadRequest("unsupported constraint type %q", typ)
	}
	cols, err := stringList(m, "column_names")
	if err != nil {
		return tableConstraint{}, err
	}
	if len(cols) == 0 {
		return tableConstraint{}, domain.ErrBadRequest("a %s constraint requires column_names", strings.ToLower(typ))
	}
	normalized := make([]string, len(cols))
	for i, c := range cols {
		if normalized[i], err = normalizeName(c); err != nil {
			return tableConstraint{}, err
		}
	}
	name, _ := bodyString(m, "name")
	return tableConstraint{Name: name, Type: typ, Columns: normalized}, nil
}

func columnSQL(c tableColumn) string {
	var b strings.Builder
	b.WriteString(c.Name + " " + c.Datatype)
	if c.Collate != "" {
		b.WriteString(" COLLATE " + sqlgen.QuoteValue(c.Collate))
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT " + c.Default)
	} else if c.Autoincrement {
		b.WriteString(" AUTOINCREMENT")
	}
	if c.Comment != "" {
		b.WriteString(" COMMENT " + sqlgen.QuoteValue(c.Comment))
	}
	return b.String()
}

func (r *tableResource) createOrAlter(ctx context.Context, req *bridge.Request, schema SchemaHandle, pathName string) ([]normalize.Row, error) {
	body := req.Body
	if body == nil {
		return nil, domain.ErrBadRequest("a request body is required")
	}
	name, err := bodyName(body, pathName)
	if err != nil {
		return nil, err
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
		return nil, domain.ErrInternal("could not fully apply the table changes, some statements may already have taken effect: %s", err.Error())
	}
	return rows, nil
}

func (r *tableResource) alterPlan(schema SchemaHandle, name string, desired, current normalize.Row) (*reconcile.Plan, error) {
	qualified := schema.Qualify(name)

	if kind := canonicalTableKind(desired); kind != canonicalTableKind(current) {
		return nil, domain.ErrBadRequest("table kind cannot be changed from %s to %s",
			canonicalTableKind(current), kind)
	}

	plan := &reconcile.Plan{}
	changes, err := reconcile.DiffScalars(desired, current, tableScalarProps)
	if err != nil {
		return nil, err
	}
	addScalarStatements(plan, "ALTER TABLE", qualified, changes)

	desiredCols, desiredCons, err := parseDesiredColumns(desired)
	if err != nil {
		return nil, err
	}
	currentCols, _ := current["columns"].([]tableColumn)
	if err := addColumnStatements(plan, qualified, desiredCols, currentCols); err != nil {
		return nil, err
	}

	currentCons, _ := current["constraints"].([]tableConstraint)
	addConstraintStatements(plan, qualified, desiredCons, currentCons)

	desiredCluster, err := stringList(desired, "cluster_by")
	if err != nil {
		return nil, err
	}
	currentCluster, _ := current["cluster_by"].([]string)
	switch {
	case len(desiredCluster) > 0 && strings.Join(desiredCluster, ",") != strings.Join(currentCluster, ","):
		plan.Add(newStmt("ALTER TABLE", qualified, "CLUSTER BY ("+strings.Join(desiredCluster, ", ")+")").String())
	case len(desiredCluster) == 0 && len(currentCluster) > 0:
		plan.Add(newStmt("ALTER TABLE", qualified, "DROP CLUSTERING KEY").String())
	}
	return plan, nil
}

// addColumnStatements diffs columns positionally. Columns never drop: a
// shorter desired list is rejected outright.
func addColumnStatements(plan *reconcile.Plan, qualified string, desired, current []tableColumn) error {
	diff := reconcile.DiffOrderedList(desired, current, func(a, b tableColumn) bool {
		return a == b
	})
	if len(diff.Removed) > 0 {
		names := make([]string, len(diff.Removed))
		for i, c := range diff.Removed {
			names[i] = c.Name
		}
		return domain.ErrBadRequest("desired state omits existing columns %s and columns cannot be dropped",
			strings.Join(names, ", "))
	}
	var modifies []string
	for _, pair := range diff.Modified {
		d, c := pair.Desired, pair.Current
		if d.Name != c.Name {
			plan.Add(newStmt("ALTER TABLE", qualified, "RENAME COLUMN", c.Name, "TO", d.Name).String())
			c.Name = d.Name
			if d == c {
				continue
			}
		}
		if d.Collate != c.Collate {
			return domain.ErrBadRequest("collation of column %s cannot be changed", d.Name)
		}
		if d.Autoincrement != c.Autoincrement {
			return domain.ErrBadRequest("autoincrement of column %s cannot be changed", d.Name)
		}
		if d.Datatype != c.Datatype {
			modifies = append(modifies, fmt.Sprintf("COLUMN %s SET DATA TYPE %s", d.Name, d.Datatype))
		}
		if d.Nullable != c.Nullable {
			if d.Nullable {
				modifies = append(modifies, fmt.Sprintf("COLUMN %s DROP NOT NULL", d.Name))
			} else {
				modifies = append(modifies, fmt.Sprintf("COLUMN %s SET NOT NULL", d.Name))
			}
		}
		if d.Default != c.Default {
			if d.Default == "" {
				modifies = append(modifies, fmt.Sprintf("COLUMN %s DROP DEFAULT", d.Name))
			} else {
				modifies = append(modifies, fmt.Sprintf("COLUMN %s SET DEFAULT %s", d.Name, d.Default))
			}
		}
		if d.Comment != c.Comment {
			if d.Comment == "" {
				modifies = append(modifies, fmt.Sprintf("COLUMN %s UNSET COMMENT", d.Name))
			} else {
				modifies = append(modifies, fmt.Sprintf("COLUMN %s COMMENT %s", d.Name, sqlgen.QuoteValue(d.Comment)))
			}
		}
	}
	if len(modifies) > 0 {
		plan.Add(newStmt("ALTER TABLE", qualified, "MODIFY", strings.Join(modifies, ", ")).String())
	}
	for _, c := range diff.Added {
		plan.Add(newStmt("ALTER TABLE", qualified, "ADD COLUMN", columnSQL(c)).String())
	}
	return nil
}

// addConstraintStatements diffs key constraints by column tuple. A current
// constraint under a system-generated name matches an unnamed desired one
// with no change; an unnamed desired constraint over a user-named current
// one recreates it to shed the name.
func addConstraintStatements(plan *reconcile.Plan, qualified string, desired, current []tableConstraint) {
	diff := reconcile.DiffKeyedSet(desired, current, tableConstraint.key)
	for _, c := range diff.Removed {
		plan.Add(dropConstraintStatement(qualified, c))
	}
	for _, pair := range diff.Matched {
		d, c := pair.Desired, pair.Current
		switch {
		case d.Name == "" && sysConstraintRe.MatchString(c.Name):
			// The user never named it and the backend auto-named it.
		case d.Name == "":
			plan.Add(dropConstraintStatement(qualified, c))
			plan.Add(newStmt("ALTER TABLE", qualified, "ADD", d.sql()).String())
		case d.Name != c.Name:
			plan.Add(newStmt("ALTER TABLE", qualified,
				"RENAME CONSTRAINT", sqlgen.DoubleQuoteName(c.Name), "TO", sqlgen.DoubleQuoteName(d.Name)).String())
		}
	}
	for _, d := range diff.Added {
		plan.Add(newStmt("ALTER TABLE", qualified, "ADD", d.sql()).String())
	}
}

func dropConstraintStatement(qualified string, c tableConstraint) string {
	if c.Type == "PRIMARY KEY" {
		return newStmt("ALTER TABLE", qualified, "DROP PRIMARY KEY").String()
	}
	return newStmt("ALTER TABLE", qualified, "DROP CONSTRAINT", sqlgen.DoubleQuoteName(c.Name)).String()
}

func (r *tableResource) drop(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	qualified := schema.Qualify(name)
	stmtText := "DROP TABLE " + qualified
	if dropIfExists(req) {
		stmtText = "DROP TABLE IF EXISTS " + qualified
	}
	return r.exec.Execute(ctx, stmtText)
}

func (r *tableResource) action(ctx context.Context, req *bridge.Request, schema SchemaHandle, name string) ([]normalize.Row, error) {
	qualified := schema.Qualify(name)
	switch req.Action {
	case "undrop":
		return r.exec.Execute(ctx, newStmt("UNDROP TABLE", qualified).String())
	case "swapwith":
		target, ok := req.QueryValue("targetName")
		if !ok || target == "" {
			return nil, domain.ErrBadRequest("swapwith requires a targetName")
		}
		targetName, err := normalizeName(target)
		if err != nil {
			return nil, err
		}
		return r.exec.Execute(ctx, newStmt("ALTER TABLE", qualified, "SWAP WITH", schema.Qualify(targetName)).String())
	case "suspend_recluster":
		return r.exec.Execute(ctx, newStmt("ALTER TABLE", qualified, "SUSPEND RECLUSTER").String())
	case "resume_recluster":
		return r.exec.Execute(ctx, newStmt("ALTER TABLE", qualified, "RESUME RECLUSTER").String())
	}
	return nil, errUnsupported(req)
}
