package security

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyIdentifier   = errors.New("identifier is empty")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrSystemSchema      = errors.New("loading into a system schema is not allowed")
)

// maxIdentifierLength is the MySQL limit; PostgreSQL allows 63.
const maxIdentifierLength = 64

var systemSchemas = []string{
	"INFORMATION_SCHEMA", "MYSQL", "PERFORMANCE_SCHEMA", "SYS", "PG_CATALOG",
}

// ValidateTable checks a load target of the form "table" or "schema.table".
//  1. Each part must be a plain identifier (see ValidateIdentifier).
//  2. At most one schema qualifier.
//  3. The schema must not be a system schema.
func ValidateTable(name string) error {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return errors.New("too many qualifiers in table name: " + name)
	}
	for _, p := range parts {
		if err := ValidateIdentifier(p); err != nil {
			return err
		}
	}
	if len(parts) == 2 {
		schema := strings.ToUpper(parts[0])
		for _, s := range systemSchemas {
			if schema == s {
				return ErrSystemSchema
			}
		}
	}
	return nil
}

// ValidateIdentifier accepts letters, digits, '_' and '$', not starting
// with a digit, up to 64 bytes.
func ValidateIdentifier(name string) error {
	if name == "" {
		return ErrEmptyIdentifier
	}
	if len(name) > maxIdentifierLength {
		return errors.New("identifier too long: " + name)
	}
	for i := 0; i < len(name); i++ {
		if !isIdentByte(name[i], i == 0) {
			return fmt.Errorf("%w: %s", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

func isIdentByte(b byte, first bool) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '_', b == '$':
		return true
	case b >= '0' && b <= '9':
		return !first
	}
	return false
}
