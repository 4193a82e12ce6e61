package batch

import (
	"fmt"
	"strings"
)

// SQLType identifies the declared type of a target column.
// It is used to pick the typed NULL bound for a column.
type SQLType int

const (
	Null SQLType = iota
	Boolean
	TinyInt
	SmallInt
	Integer
	BigInt
	Real
	Float
	Double
	Decimal
	Char
	Varchar
	Text
	Binary
	Blob
	Date
	Time
	Timestamp
	JSON
	Other
)

var sqlTypeNames = [...]string{
	Null:      "NULL",
	Boolean:   "BOOLEAN",
	TinyInt:   "TINYINT",
	SmallInt:  "SMALLINT",
	Integer:   "INTEGER",
	BigInt:    "BIGINT",
	Real:      "REAL",
	Float:     "FLOAT",
	Double:    "DOUBLE",
	Decimal:   "DECIMAL",
	Char:      "CHAR",
	Varchar:   "VARCHAR",
	Text:      "TEXT",
	Binary:    "BINARY",
	Blob:      "BLOB",
	Date:      "DATE",
	Time:      "TIME",
	Timestamp: "TIMESTAMP",
	JSON:      "JSON",
	Other:     "OTHER",
}

func (t SQLType) String() string {
	if t < 0 || int(t) >= len(sqlTypeNames) {
		return fmt.Sprintf("SQLType(%d)", int(t))
	}
	return sqlTypeNames[t]
}

// IsFloating reports whether the type holds IEEE-754 values.
func (t SQLType) IsFloating() bool {
	return t == Real || t == Float || t == Double
}

// IsInteger reports whether the type holds whole numbers.
func (t SQLType) IsInteger() bool {
	return t == TinyInt || t == SmallInt || t == Integer || t == BigInt
}

// ParseSQLType parses a type code name such as "REAL" or "double".
func ParseSQLType(name string) (SQLType, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, s := range sqlTypeNames {
		if s == n {
			return SQLType(i), nil
		}
	}
	return Other, fmt.Errorf("unknown sql type %q", name)
}

// TypeFromDatabaseName maps a driver-reported column type name
// (sql.ColumnType.DatabaseTypeName) to a SQLType. MySQL and PostgreSQL
// spellings are recognized; anything else maps to Other.
func TypeFromDatabaseName(name string) SQLType {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "UNSIGNED ")

	switch n {
	case "BOOL", "BOOLEAN", "BIT":
		return Boolean
	case "TINYINT":
		return TinyInt
	case "SMALLINT", "INT2", "YEAR":
		return SmallInt
	case "INT", "INTEGER", "MEDIUMINT", "INT4", "SERIAL":
		return Integer
	case "BIGINT", "INT8", "BIGSERIAL":
		return BigInt
	case "FLOAT", "FLOAT4", "REAL":
		return Real
	case "DOUBLE", "FLOAT8", "DOUBLE PRECISION":
		return Double
	case "DECIMAL", "NUMERIC":
		return Decimal
	case "CHAR", "BPCHAR":
		return Char
	case "VARCHAR", "ENUM", "SET":
		return Varchar
	case "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT":
		return Text
	case "BINARY", "VARBINARY", "BYTEA":
		return Binary
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return Blob
	case "DATE":
		return Date
	case "TIME", "TIMETZ":
		return Time
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ":
		return Timestamp
	case "JSON", "JSONB":
		return JSON
	}
	return Other
}
