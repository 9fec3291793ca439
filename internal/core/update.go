package core

import (
	"fmt"
	"strings"
)

// updateStatement builds a parameterized UPDATE from optional fields.
// Column and table names come only from constants in this package; every
// value travels as a bind parameter.
type updateStatement struct {
	table string
	sets  []string
	args  []any
}

func newUpdate(table string) *updateStatement {
	return &updateStatement{table: table}
}

func (u *updateStatement) set(column string, value any) *updateStatement {
	u.args = append(u.args, value)
	u.sets = append(u.sets, fmt.Sprintf("%s = $%d", column, len(u.args)))
	return u
}

// setRaw appends a value-free assignment such as "updated_at = NOW()".
func (u *updateStatement) setRaw(assignment string) *updateStatement {
	u.sets = append(u.sets, assignment)
	return u
}

// setOpt sets column only when v is non-nil.
func setOpt[T any](u *updateStatement, column string, v *T) {
	if v != nil {
		u.set(column, *v)
	}
}

// empty reports whether no caller-supplied field was set.
func (u *updateStatement) empty() bool {
	return len(u.args) == 0
}

// build renders "UPDATE table SET ... WHERE key = $n".
func (u *updateStatement) build(keyColumn string, key any) (string, []any) {
	args := append(append([]any{}, u.args...), key)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", u.table, strings.Join(u.sets, ", "), keyColumn, len(args))
	return sql, args
}
