// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"fmt"
	"strconv"
	"strings"

	"cmsmini/internal/listing"
)

// field maps a logical listing field onto SQL. eq is the column compared
// for OpEq and OpIsNull; contains is a predicate template for OpContains
// with %s standing for the placeholder.
type field struct {
	eq       string
	contains string
}

// schema describes how one table answers listing queries.
type schema struct {
	table  string
	alias  string
	fields map[string]field
}

// compiled is a listing query rendered to SQL fragments.
type compiled struct {
	where string // empty or "WHERE ..."
	order string // "ORDER BY ..."
	args  []any
}

// limitOffset appends LIMIT/OFFSET placeholders and returns the fragment
// with its complete argument list.
func (c compiled) limitOffset(q listing.QuerySpec) (string, []any) {
	n := len(c.args)
	args := append(append([]any{}, c.args...), q.Limit(), q.Skip)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// compile translates q for s. Field names outside s are rejected, so only
// whitelisted columns ever reach the SQL text.
func compile(s schema, q listing.QuerySpec) (compiled, error) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, f := range q.Filters {
		def, ok := s.fields[f.Field]
		if !ok {
			return compiled{}, fmt.Errorf("%s: unknown filter field %q", s.table, f.Field)
		}
		switch f.Op {
		case listing.OpEq:
			if def.eq == "" {
				return compiled{}, fmt.Errorf("%s: field %q does not support equality", s.table, f.Field)
			}
			conds = append(conds, def.eq+" = "+next(f.Value))
		case listing.OpIsNull:
			if def.eq == "" {
				return compiled{}, fmt.Errorf("%s: field %q does not support null checks", s.table, f.Field)
			}
			conds = append(conds, def.eq+" IS NULL")
		case listing.OpContains:
			if def.contains == "" {
				return compiled{}, fmt.Errorf("%s: field %q does not support containment", s.table, f.Field)
			}
			conds = append(conds, fmt.Sprintf(def.contains, next(f.Value)))
		default:
			return compiled{}, fmt.Errorf("%s: unsupported operator %d", s.table, f.Op)
		}
	}

	if q.Search != nil {
		ph := next("%" + escapeLike(q.Search.Term) + "%")
		var ors []string
		for _, name := range q.Search.Fields {
			def, ok := s.fields[name]
			if !ok || def.eq == "" {
				return compiled{}, fmt.Errorf("%s: unknown search field %q", s.table, name)
			}
			ors = append(ors, def.eq+" ILIKE "+ph)
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}

	var order []string
	for _, sf := range q.Sort {
		def, ok := s.fields[sf.Field]
		if !ok || def.eq == "" {
			return compiled{}, fmt.Errorf("%s: unknown sort field %q", s.table, sf.Field)
		}
		// Missing values rank lowest in both directions.
		if sf.Desc {
			order = append(order, def.eq+" DESC NULLS LAST")
		} else {
			order = append(order, def.eq+" ASC NULLS FIRST")
		}
	}
	// Stable pagination across equal sort keys.
	order = append(order, s.alias+".id ASC")

	out := compiled{
		order: "ORDER BY " + strings.Join(order, ", "),
		args:  args,
	}
	if len(conds) > 0 {
		out.where = "WHERE " + strings.Join(conds, " AND ")
	}
	return out, nil
}

// escapeLike escapes LIKE metacharacters so search terms match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
