package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeFromDatabaseName(t *testing.T) {
	tests := map[string]SQLType{
		"FLOAT":            Real,
		"float4":           Real,
		"DOUBLE":           Double,
		"FLOAT8":           Double,
		"DOUBLE PRECISION": Double,
		"UNSIGNED BIGINT":  BigInt,
		"INT":              Integer,
		"DECIMAL":          Decimal,
		"VARCHAR":          Varchar,
		"TIMESTAMPTZ":      Timestamp,
		"DATETIME":         Timestamp,
		"BYTEA":            Binary,
		"JSONB":            JSON,
		"GEOMETRY":         Other,
	}
	for name, want := range tests {
		assert.Equal(t, want, TypeFromDatabaseName(name), name)
	}
}

func TestParseSQLType(t *testing.T) {
	got, err := ParseSQLType(" real ")
	require.NoError(t, err)
	assert.Equal(t, Real, got)

	got, err = ParseSQLType("DOUBLE")
	require.NoError(t, err)
	assert.Equal(t, Double, got)

	_, err = ParseSQLType("quadruple")
	assert.Error(t, err)
}

func TestSQLTypeString(t *testing.T) {
	assert.Equal(t, "REAL", Real.String())
	assert.Equal(t, "SQLType(99)", SQLType(99).String())
	assert.True(t, Float.IsFloating())
	assert.False(t, Decimal.IsFloating())
}
