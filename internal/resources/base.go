// Package resources holds one translator per resource kind. Each translator
// parses the request path, dispatches on verb and action, builds dialect
// statements, and shapes the normalized result.
package resources

import (
	"fmt"
	"strconv"
	"strings"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/normalize"
	"snowbridge/internal/reconcile"
	"snowbridge/internal/sqlgen"
)

// stmt accumulates space-terminated statement fragments, matching the
// generated-statement surface where every clause ends in a space.
type stmt struct {
	b strings.Builder
}

func newStmt(fragments ...string) *stmt {
	s := &stmt{}
	for _, f := range fragments {
		s.add(f)
	}
	return s
}

func (s *stmt) add(fragment string) *stmt {
	if fragment != "" {
		s.b.WriteString(fragment)
		s.b.WriteString(" ")
	}
	return s
}

func (s *stmt) addf(format string, args ...any) *stmt {
	return s.add(fmt.Sprintf(format, args...))
}

func (s *stmt) String() string { return s.b.String() }

// createMode selects the conflict behavior of a create statement.
type createMode int

const (
	modeErrorIfExists createMode = iota
	modeIfNotExists
	modeOrReplace
)

// createModeAliases is the case-folding lookup table for the createMode
// query parameter. Keys are lower-cased once here; lookups lower-case the
// input.
var createModeAliases = map[string]createMode{
	"errorifexists": modeErrorIfExists,
	"ifnotexists":   modeIfNotExists,
	"orreplace":     modeOrReplace,
}

func parseCreateMode(req *bridge.Request) (createMode, error) {
	raw, ok := req.QueryValue("createMode")
	if !ok || raw == "" {
		return modeErrorIfExists, nil
	}
	mode, ok := createModeAliases[strings.ToLower(raw)]
	if !ok {
		return 0, domain.ErrBadRequest("unsupported createMode: %s", raw)
	}
	return mode, nil
}

// orReplace and ifNotExists render the two positions a create mode can
// occupy in a CREATE statement.
func (m createMode) orReplace() string {
	if m == modeOrReplace {
		return "OR REPLACE"
	}
	return ""
}

func (m createMode) ifNotExists() string {
	if m == modeIfNotExists {
		return "IF NOT EXISTS"
	}
	return ""
}

// dropIfExists reports whether a DELETE should tolerate absence. Both the
// ifExists flag and createMode=ifExists spell it.
func dropIfExists(req *bridge.Request) bool {
	if req.QueryFlag("ifExists") {
		return true
	}
	raw, _ := req.QueryValue("createMode")
	return strings.ToLower(raw) == "ifexists"
}

// addShowFilters appends the shared SHOW clauses in their fixed order:
// HISTORY, LIKE, STARTS WITH, LIMIT, FROM.
func addShowFilters(s *stmt, req *bridge.Request, allowHistory bool) error {
	if allowHistory && req.QueryFlag("history") {
		s.add("HISTORY")
	}
	if v, ok := req.QueryValue("like"); ok && v != "" {
		s.add("LIKE " + sqlgen.QuoteValue(v))
	}
	if v, ok := req.QueryValue("startsWith"); ok && v != "" {
		s.add("STARTS WITH " + sqlgen.QuoteValue(v))
	}
	if v, ok := req.QueryValue("showLimit"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.ErrBadRequest("showLimit must be an integer, got %q", v)
		}
		s.addf("LIMIT %d", n)
	}
	if v, ok := req.QueryValue("fromName"); ok && v != "" {
		s.add("FROM " + sqlgen.QuoteValue(v))
	}
	return nil
}

// normalizeName wraps identifier normalization errors as client errors.
func normalizeName(name string) (string, error) {
	n, err := sqlgen.NormalizeName(name)
	if err != nil {
		return "", domain.ErrBadRequest("%s", err.Error())
	}
	return n, nil
}

// DatabaseHandle names the database a schema-scoped translator works in.
type DatabaseHandle struct {
	Name string
}

// SchemaHandle names the schema a schema-nested translator works in.
type SchemaHandle struct {
	Database string
	Name     string
}

// Qualify builds the fully qualified name of an object in the schema.
func (s SchemaHandle) Qualify(name string) string {
	return s.Database + "." + s.Name + "." + name
}

// String renders the schema's own qualified name.
func (s SchemaHandle) String() string {
	return s.Database + "." + s.Name
}

func databaseHandleFromPath(segs []string) (DatabaseHandle, error) {
	// .../databases/<db>/...
	name, err := normalizeName(segs[3])
	if err != nil {
		return DatabaseHandle{}, err
	}
	return DatabaseHandle{Name: name}, nil
}

func schemaHandleFromPath(segs []string) (SchemaHandle, error) {
	// .../databases/<db>/schemas/<schema>/...
	db, err := databaseHandleFromPath(segs)
	if err != nil {
		return SchemaHandle{}, err
	}
	name, err := normalizeName(segs[5])
	if err != nil {
		return SchemaHandle{}, err
	}
	return SchemaHandle{Database: db.Name, Name: name}, nil
}

// describeResult is the explicit found/not-found outcome of a describe
// probe; callers branch on Found instead of catching NotFound.
type describeResult struct {
	Found bool
	Row   normalize.Row
}

// bodyName extracts and normalizes the required name property, checking it
// against the path instance name when one is present.
func bodyName(body map[string]any, pathName string) (string, error) {
	raw, ok := body["name"].(string)
	if !ok || raw == "" {
		return "", domain.ErrBadRequest("required property name is missing")
	}
	name, err := normalizeName(raw)
	if err != nil {
		return "", err
	}
	if pathName != "" && name != pathName {
		return "", domain.ErrBadRequest("name %s in the body does not match %s in the path", name, pathName)
	}
	return name, nil
}

func bodyString(body map[string]any, key string) (string, bool) {
	v, ok := body[key].(string)
	return v, ok && v != ""
}

// isAnUpdate reports whether the desired state carries anything beyond the
// identity properties, so a no-op upsert can skip the ALTER entirely.
func isAnUpdate(body map[string]any) bool {
	for k := range body {
		if k != "name" && k != "tag" {
			return true
		}
	}
	return false
}

func errUnsupported(req *bridge.Request) error {
	if req.Action != "" {
		return domain.ErrBadRequest("unsupported action %s for %s %s", req.Action, req.Method, req.Path)
	}
	return domain.ErrBadRequest("unsupported operation %s %s", req.Method, req.Path)
}

// singleObject unwraps a one-row result for singleton GETs.
func singleObject(rows []normalize.Row, name string) (normalize.Row, error) {
	if len(rows) == 0 {
		return nil, domain.ErrNotFound("%s does not exist", name)
	}
	return rows[0], nil
}

// successRows is the canonical acknowledgement result.
func successRows() []normalize.Row {
	return []normalize.Row{{"description": "successful"}}
}

func renderValue(v any, quoted bool) string {
	if quoted {
		return sqlgen.QuoteValue(v)
	}
	return sqlgen.FormatValue(v)
}

// appendAssignments emits `NAME = value` fragments for every settable
// property present in the body, in table order.
func appendAssignments(s *stmt, body map[string]any, props []reconcile.Property) error {
	for _, p := range props {
		v, ok := body[p.Name]
		if !ok || v == nil {
			continue
		}
		switch p.Class {
		case reconcile.ReadOnly:
			return domain.ErrBadRequest("property %s is read-only and cannot be supplied", p.Name)
		case reconcile.Immutable:
			continue
		}
		s.addf("%s = %s", strings.ToUpper(p.Name), renderValue(v, p.Quoted))
	}
	return nil
}

// addScalarStatements turns a scalar diff into the UNSET-then-SET statement
// pair for one object. Either statement is omitted when it has no work.
func addScalarStatements(plan *reconcile.Plan, alterPrefix, name string, changes []reconcile.Change) {
	set, unset := reconcile.Split(changes)
	if len(unset) > 0 {
		names := make([]string, len(unset))
		for i, c := range unset {
			names[i] = strings.ToUpper(c.Name)
		}
		plan.Add(newStmt(alterPrefix, name, "UNSET", strings.Join(names, ", ")).String())
	}
	if len(set) > 0 {
		s := newStmt(alterPrefix, name, "SET")
		for _, c := range set {
			s.addf("%s = %s", strings.ToUpper(c.Name), c.Value)
		}
		plan.Add(s.String())
	}
}

// pointOfTimeClause renders the AT/BEFORE clause of a clone request.
func pointOfTimeClause(pot map[string]any) (string, error) {
	ref, _ := bodyString(pot, "reference")
	ref = strings.ToUpper(ref)
	if ref != "AT" && ref != "BEFORE" {
		return "", domain.ErrBadRequest("point_of_time reference must be at or before, got %q", ref)
	}
	typ, _ := bodyString(pot, "point_of_time_type")
	typ = strings.ToUpper(typ)
	when := pot["when"]
	switch typ {
	case "TIMESTAMP", "STATEMENT":
		return fmt.Sprintf("%s (%s => %s)", ref, typ, sqlgen.QuoteValue(when)), nil
	case "OFFSET":
		return fmt.Sprintf("%s (OFFSET => %s)", ref, sqlgen.FormatValue(when)), nil
	}
	return "", domain.ErrBadRequest("unsupported point_of_time_type %q", typ)
}

// stringList pulls an optional list-of-strings property from the body.
func stringList(body map[string]any, key string) ([]string, error) {
	if body == nil {
		return nil, nil
	}
	raw, ok := body[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, domain.ErrBadRequest("property %s must be a list of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, domain.ErrBadRequest("property %s must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}
