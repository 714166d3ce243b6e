package db

import (
	"bytes"
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// SQLite's built-in lower() only folds ASCII. Replace it on every connection
// so LOWER() agrees with PostgreSQL for non-ASCII text.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("lower", 1, lowerUnicode)
}

func lowerUnicode(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return bytes.ToLower(v), nil
	default:
		return v, nil
	}
}
