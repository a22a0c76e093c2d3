package state

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Dialect captures the per-database differences of the store.
type Dialect struct {
	Name         string // config name, also the migrations subdirectory
	DriverName   string // database/sql driver
	GooseDialect string
	Placeholder  func(n int) string
}

var (
	sqliteDialect = Dialect{
		Name:         DriverSQLite,
		DriverName:   "sqlite",
		GooseDialect: "sqlite3",
		Placeholder:  func(int) string { return "?" },
	}
	postgresDialect = Dialect{
		Name:         DriverPostgres,
		DriverName:   "pgx",
		GooseDialect: "postgres",
		Placeholder:  func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

func dialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite, "sqlite3":
		return sqliteDialect, nil
	case DriverPostgres, "postgresql", "pgx":
		return postgresDialect, nil
	}
	return Dialect{}, &UnknownDriverError{Driver: driver}
}

// NormalizeDriver maps a driver name or alias to DriverSQLite or DriverPostgres.
func NormalizeDriver(driver string) (string, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

// rebind rewrites '?' placeholders for the dialect.
func (d Dialect) rebind(query string) string {
	if d.Name == DriverSQLite {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UnknownDriverError is returned when the configured store driver is not supported.
type UnknownDriverError struct {
	Driver string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown store driver %q\nAvailable drivers: [%s %s]\nHint: Check store.driver in insightql.yaml",
		e.Driver, DriverSQLite, DriverPostgres)
}
