package database

import (
	"strconv"
	"strings"
)

// rebind rewrites a query written with sqlite/mysql-style "?"
// placeholders into postgres-style "$1", "$2", ... placeholders when
// driver is DriverPostgres; sqlite/any other driver is returned
// unchanged. Every query in this package is written once using "?" and
// rebound per-driver at the call site, rather than maintained as two
// parallel copies.
func rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
