package schema

import (
	"strconv"
	"strings"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

// cell returns the trimmed value of a column.
func cell(row tabular.Row, column string) string {
	return strings.TrimSpace(row[column])
}

// cellInt parses a column as an integer, tolerating thousands separators
// and currency spacing the way spreadsheet exports produce them.
func cellInt(row tabular.Row, column string) (int, error) {
	v := cell(row, column)
	if v == "" {
		return 0, strconv.ErrSyntax
	}
	v = strings.ReplaceAll(v, ",", "")
	return strconv.Atoi(v)
}

// optCell returns a pointer to the trimmed value, or nil when the cell is
// empty. Empty means absent for optional fields, never a literal "".
func optCell(row tabular.Row, column string) *string {
	v := cell(row, column)
	if v == "" {
		return nil
	}
	return &v
}

// optString renders an optional field back to its cell: absent becomes "".
func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
