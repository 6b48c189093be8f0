/*
predicates.go - Shared WHERE-clause builder

The gateway's filter model is a conjunction of equality, range (gte/lte),
set-membership, and null-check predicates. Every filtered query builds its
clause here so the semantics cannot drift between tables.
*/
package sqlite

import "strings"

type cond struct {
	expr string
	args []any
}

func eq(column string, v any) cond {
	return cond{expr: column + " = ?", args: []any{v}}
}

func gte(column string, v any) cond {
	return cond{expr: column + " >= ?", args: []any{v}}
}

func lte(column string, v any) cond {
	return cond{expr: column + " <= ?", args: []any{v}}
}

// in matches any of vals. An empty set matches nothing, which keeps
// "filter by zero carers" from silently widening to all rows.
func in(column string, vals []string) cond {
	if len(vals) == 0 {
		return cond{expr: "1 = 0"}
	}
	placeholders := strings.Repeat("?, ", len(vals)-1) + "?"
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return cond{expr: column + " IN (" + placeholders + ")", args: args}
}

func isNull(column string, null bool) cond {
	if null {
		return cond{expr: column + " IS NULL"}
	}
	return cond{expr: column + " IS NOT NULL"}
}

// whereClause joins conditions conjunctively. No conditions means no
// clause.
func whereClause(conds []cond) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	exprs := make([]string, len(conds))
	var args []any
	for i, c := range conds {
		exprs[i] = c.expr
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(exprs, " AND "), args
}
