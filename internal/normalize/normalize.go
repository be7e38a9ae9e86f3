// Package normalize coerces raw SHOW/DESCRIBE output fields into the typed
// values the REST surface returns.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// YNBool maps the Y/N flag convention to a boolean.
func YNBool(v any) any {
	return v == "Y"
}

// OnOffBool maps the ON/OFF flag convention to a boolean.
func OnOffBool(v any) any {
	return v == "ON"
}

// TrueFalseBool maps the TRUE/FALSE flag convention to a boolean.
func TrueFalseBool(v any) any {
	s, ok := v.(string)
	if !ok {
		return v == true
	}
	return strings.EqualFold(s, "true")
}

// Int parses a numeric string field. Non-numeric or empty values pass
// through unchanged.
func Int(v any) any {
	switch t := v.(type) {
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
		return v
	case float64:
		return int(t)
	default:
		return v
	}
}

// EmptyToNull replaces an empty string with an explicit null, used for
// comment-like fields where the backend reports absence as "".
func EmptyToNull(v any) any {
	if v == "" {
		return nil
	}
	return v
}

// BracketList parses the "[a, b, c]" list rendering into a string slice.
// "[]", "" and nil all yield an empty slice.
func BracketList(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" || s == "[]" {
		return []string{}
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		item = strings.Trim(item, `"`)
		if item != "" {
			out = append(out, item)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// ParameterValue types a SHOW PARAMETERS value according to the parameter's
// declared type.
func ParameterValue(typ string, value any) (any, error) {
	switch {
	case typ == "NUMBER":
		if value == nil || value == "" {
			return nil, nil
		}
		switch t := value.(type) {
		case string:
			n, err := strconv.Atoi(t)
			if err != nil {
				return nil, fmt.Errorf("parameter value %q is not a number", t)
			}
			return n, nil
		case float64:
			return int(t), nil
		case int:
			return t, nil
		}
		return nil, fmt.Errorf("parameter value %v is not a number", value)
	case strings.HasPrefix(typ, "NUMBER("):
		if value == nil || value == "" {
			return nil, nil
		}
		switch t := value.(type) {
		case string:
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter value %q is not numeric", t)
			}
			return f, nil
		case float64:
			return t, nil
		}
		return nil, fmt.Errorf("parameter value %v is not numeric", value)
	case typ == "BOOLEAN":
		if value == nil || value == "" {
			return nil, nil
		}
		if value == true {
			return true, nil
		}
		if s, ok := value.(string); ok && strings.EqualFold(s, "true") {
			return true, nil
		}
		return false, nil
	case typ == "STRING":
		if value == nil || value == "" {
			return nil, nil
		}
		return value, nil
	default:
		return nil, fmt.Errorf("unrecognized parameter type %q", typ)
	}
}

// Apply runs each named transform over the row in place, skipping fields the
// row does not carry.
func Apply(row Row, transforms map[string]func(any) any) {
	for field, fn := range transforms {
		if v, ok := row[field]; ok {
			row[field] = fn(v)
		}
	}
}

// Filter returns a copy of the row restricted to the given fields; fields
// the row lacks come back as explicit nulls.
func Filter(row Row, fields []string) Row {
	out := make(Row, len(fields))
	for _, f := range fields {
		if v, ok := row[f]; ok {
			out[f] = v
		} else {
			out[f] = nil
		}
	}
	return out
}

// LowerKeys returns a copy of the row with every key lower-cased.
func LowerKeys(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Drop removes the named fields from the row in place.
func Drop(row Row, fields ...string) {
	for _, f := range fields {
		delete(row, f)
	}
}
