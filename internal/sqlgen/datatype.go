package sqlgen

import "strings"

// datatypeAliases maps whole canonicalized type names to their storage form.
var datatypeAliases = map[string]string{
	"INT":             "NUMBER(38,0)",
	"INTEGER":         "NUMBER(38,0)",
	"BIGINT":          "NUMBER(38,0)",
	"SMALLINT":        "NUMBER(38,0)",
	"TINYINT":         "NUMBER(38,0)",
	"BYTEINT":         "NUMBER(38,0)",
	"NUMBER":          "NUMBER(38,0)",
	"DOUBLE":          "FLOAT",
	"DOUBLEPRECISION": "FLOAT",
	"REAL":            "FLOAT",
	"STRING":          "VARCHAR(16777216)",
	"TEXT":            "VARCHAR(16777216)",
	"VARCHAR":         "VARCHAR(16777216)",
	"CHAR":            "VARCHAR(1)",
	"CHARACTER":       "VARCHAR(1)",
	"VARBINARY":       "BINARY",
}

// datatypeRewrites substitutes alias tokens inside parameterized types,
// e.g. DECIMAL(10,2) to NUMBER(10,2).
var datatypeRewrites = [][2]string{
	{"DECIMAL", "NUMBER"},
	{"NUMERIC", "NUMBER"},
	{"STRING", "VARCHAR"},
	{"TEXT", "VARCHAR"},
}

// NormalizeDatatype canonicalizes a column datatype so that two spellings of
// the same storage type compare equal.
func NormalizeDatatype(dt string) string {
	dt = strings.ReplaceAll(strings.ToUpper(dt), " ", "")
	if canonical, ok := datatypeAliases[dt]; ok {
		return canonical
	}
	for _, r := range datatypeRewrites {
		dt = strings.ReplaceAll(dt, r[0], r[1])
	}
	return dt
}
