package importer

import (
	"fmt"
	"strings"
)

// MissingInputError is returned when one or more required input files are
// absent. All required files must be present simultaneously; partial input is
// rejected before any table is parsed.
type MissingInputError struct {
	Missing []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input files: %s", strings.Join(e.Missing, ", "))
}

// SchemaError is fatal: a required column is absent from a table header. The
// whole import is aborted.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: required column %q missing from header", e.Table, e.Column)
}
