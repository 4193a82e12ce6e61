package driver

import "fmt"

// New returns the driver registered under name.
func New(name, dsn string) (Driver, error) {
	switch name {
	case "mysql":
		return NewMySQLDriver(dsn), nil
	case "postgres", "postgresql":
		return NewPostgresDriver(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", name)
	}
}
