// Package match decides whether a record satisfies a query.
//
// Rules, applied to every key of the query (all must hold):
//
//   - the record must have the key, there is no "exists" operator;
//   - a map in the query is a subset pattern for a map in the record;
//   - a list in the query must equal the record list exactly, in order;
//   - any other value must be equal to the record value.
package match

import (
	"github.com/fulldump/docfile/value"
)

// Matches reports whether record satisfies query. A nil or empty query
// matches every record.
func Matches(record, query *value.Map) bool {
	if query.Len() == 0 {
		return true
	}
	return subset(record, query)
}

func subset(record, query *value.Map) bool {
	ok := true
	query.Range(func(key string, qv value.Value) bool {
		rv, exists := record.Get(key)
		ok = exists && Value(rv, qv)
		return ok
	})
	return ok
}

// Value matches a single record value rv against a query value qv.
func Value(rv, qv value.Value) bool {
	switch qv.Kind() {
	case value.KindMap:
		rm, ok := rv.AsMap()
		if !ok {
			return false
		}
		qm, _ := qv.AsMap()
		return subset(rm, qm)
	case value.KindList:
		rl, ok := rv.AsList()
		if !ok {
			return false
		}
		ql, _ := qv.AsList()
		return exactList(rl, ql)
	default:
		return scalar(rv, qv)
	}
}

// exactList never matches partially, not even for maps inside the list.
func exactList(rl, ql []value.Value) bool {
	if len(rl) != len(ql) {
		return false
	}
	for i := range ql {
		if !value.Equal(rl[i], ql[i]) {
			return false
		}
	}
	return true
}

func scalar(rv, qv value.Value) bool {
	if rv.Kind() != qv.Kind() {
		return false
	}
	switch qv.Kind() {
	case value.KindNull:
		return true
	case value.KindBool:
		r, _ := rv.AsBool()
		q, _ := qv.AsBool()
		return r == q
	case value.KindNumber:
		r, _ := rv.AsNumber()
		q, _ := qv.AsNumber()
		return r == q
	case value.KindString:
		r, _ := rv.AsString()
		q, _ := qv.AsString()
		return r == q
	}
	return false
}
