package database

import (
	"strings"

	"github.com/uptrace/bun"
)

// OrderDirection represents sort direction
type OrderDirection string

const (
	ASC  OrderDirection = "ASC"
	DESC OrderDirection = "DESC"
)

// condition is a rendered WHERE fragment with bun placeholders
type condition struct {
	sql  string
	args []any
}

func columnCondition(column, operator string, value any) condition {
	switch operator {
	case "IS NULL", "IS NOT NULL":
		return condition{sql: "? " + operator, args: []any{bun.Ident(column)}}
	case "IN":
		return condition{sql: "? IN (?)", args: []any{bun.Ident(column), bun.In(value)}}
	default:
		return condition{sql: "? " + operator + " ?", args: []any{bun.Ident(column), value}}
	}
}

// QueryBuilder composes catalog and order queries over a bun pool or transaction.
// Conditions are ANDed together; Or opens a parenthesised OR group.
type QueryBuilder[T any] struct {
	db bun.IDB

	where     []condition
	orderBy   []condition
	relations []string
	limit     int
	offset    int
}

// Query starts a builder for T. db may be the pool or a transaction.
func Query[T any](db bun.IDB) *QueryBuilder[T] {
	return &QueryBuilder[T]{db: db}
}

// Where adds column = value
func (q *QueryBuilder[T]) Where(column string, value any) *QueryBuilder[T] {
	return q.WhereOp(column, "=", value)
}

func (q *QueryBuilder[T]) WhereOp(column, operator string, value any) *QueryBuilder[T] {
	q.where = append(q.where, columnCondition(column, operator, value))
	return q
}

func (q *QueryBuilder[T]) WhereIn(column string, values any) *QueryBuilder[T] {
	return q.WhereOp(column, "IN", values)
}

func (q *QueryBuilder[T]) WhereNull(column string) *QueryBuilder[T] {
	return q.WhereOp(column, "IS NULL", nil)
}

func (q *QueryBuilder[T]) OrderBy(column string, direction OrderDirection) *QueryBuilder[T] {
	q.orderBy = append(q.orderBy, condition{sql: "? " + string(direction), args: []any{bun.Ident(column)}})
	return q
}

// Limit caps the result set; zero means no limit
func (q *QueryBuilder[T]) Limit(limit int) *QueryBuilder[T] {
	q.limit = limit
	return q
}

func (q *QueryBuilder[T]) Offset(offset int) *QueryBuilder[T] {
	q.offset = offset
	return q
}

// Relation preloads a bun relation on select
func (q *QueryBuilder[T]) Relation(relation string) *QueryBuilder[T] {
	q.relations = append(q.relations, relation)
	return q
}

// Or starts a group whose conditions are joined by OR. End closes it.
func (q *QueryBuilder[T]) Or() *OrGroup[T] {
	return &OrGroup[T]{parent: q}
}

// OrGroup collects alternatives for a single parenthesised WHERE term
type OrGroup[T any] struct {
	parent *QueryBuilder[T]
	terms  []condition
}

func (g *OrGroup[T]) Where(column string, value any) *OrGroup[T] {
	return g.WhereOp(column, "=", value)
}

func (g *OrGroup[T]) WhereOp(column, operator string, value any) *OrGroup[T] {
	g.terms = append(g.terms, columnCondition(column, operator, value))
	return g
}

// End folds the group into the parent query. An empty group adds nothing.
func (g *OrGroup[T]) End() *QueryBuilder[T] {
	if len(g.terms) == 0 {
		return g.parent
	}
	parts := make([]string, len(g.terms))
	var args []any
	for i, term := range g.terms {
		parts[i] = term.sql
		args = append(args, term.args...)
	}
	g.parent.where = append(g.parent.where, condition{
		sql:  "(" + strings.Join(parts, " OR ") + ")",
		args: args,
	})
	return g.parent
}
