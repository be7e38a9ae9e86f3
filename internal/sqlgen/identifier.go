// Package sqlgen builds identifier, literal, and datatype fragments for the
// backend SQL dialect.
package sqlgen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const doubleQuote = `"`

var (
	// alreadyQuotedRe matches names the caller quoted themselves.
	alreadyQuotedRe = regexp.MustCompile(`^".+"$`)
	// bareNameRe matches names that are valid without quoting; these
	// case-fold to upper case.
	bareNameRe = regexp.MustCompile(`^[_A-Za-z]+[_A-Za-z0-9$]*$`)
)

const (
	bareIDPattern   = `([a-zA-Z_][\w$]{0,255})`
	quotedIDPattern = `("([^"]|""){1,255}")`
	idPattern       = `(` + bareIDPattern + `|` + quotedIDPattern + `)`
)

// objectNameRe accepts fully or partially qualified object names, including
// the db..name form with an elided schema.
var objectNameRe = regexp.MustCompile(
	`^((` + idPattern + `\.){0,2}|(` + idPattern + `\.\.))` + idPattern + `$`)

// EscapeQuotes doubles embedded double-quote characters (standard SQL).
func EscapeQuotes(s string) string {
	return strings.ReplaceAll(s, doubleQuote, doubleQuote+doubleQuote)
}

// NormalizeName returns the canonical form of an identifier. Already-quoted
// names pass through after validating their embedded quotes, bare names
// case-fold to upper case, anything else is wrapped in double quotes.
// Idempotent: NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(name string) (string, error) {
	if alreadyQuotedRe.MatchString(name) {
		return validateQuotedName(name)
	}
	if bareNameRe.MatchString(name) {
		return EscapeQuotes(strings.ToUpper(name)), nil
	}
	return doubleQuote + EscapeQuotes(name) + doubleQuote, nil
}

func validateQuotedName(name string) (string, error) {
	inner := name[1 : len(name)-1]
	if strings.Contains(strings.ReplaceAll(inner, doubleQuote+doubleQuote, ""), doubleQuote) {
		return "", fmt.Errorf("invalid identifier %s: embedded double quotes must be escaped when the name itself is double quoted", name)
	}
	return name, nil
}

// UnquoteName strips one pair of surrounding double quotes, if present.
func UnquoteName(name string) string {
	if len(name) > 1 && name[0] == '"' && name[len(name)-1] == '"' {
		return name[1 : len(name)-1]
	}
	return name
}

// DoubleQuoteName wraps a name in double quotes unconditionally, escaping
// embedded quotes. Empty names pass through empty.
func DoubleQuoteName(name string) string {
	if name == "" {
		return name
	}
	return doubleQuote + EscapeQuotes(name) + doubleQuote
}

// ValidateObjectName checks a possibly qualified object name.
func ValidateObjectName(name string) error {
	if !objectNameRe.MatchString(name) {
		return fmt.Errorf("the object name '%s' is invalid", name)
	}
	return nil
}

// SplitObjectName breaks a qualified name into its identifier parts,
// respecting quoted segments that may contain dots.
func SplitObjectName(name string) []string {
	var parts []string
	var b strings.Builder
	inQuotes := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			b.WriteByte(c)
		case c == '.' && !inQuotes:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	parts = append(parts, b.String())
	return parts
}

// FormatValue renders a property value for direct interpolation into a
// statement. JSON-decoded numbers render without an exponent.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// QuoteValue single-quotes string values, doubling embedded single quotes.
// A string already wrapped in single quotes is re-quoted from its inner
// text. Non-string values render via FormatValue; nil renders empty.
func QuoteValue(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return FormatValue(v)
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// IsSingleQuoted reports whether the value is already wrapped in single
// quotes.
func IsSingleQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}
