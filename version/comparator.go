// Package version defines the total order over version tokens.
//
// Every accepted mutation carries an opaque version token. The store
// only ever compares tokens, so the ordering is pluggable: feeds that
// emit zero-padded strings, raw integers, or composite offsets all
// work as long as the comparator is a total order.
package version

import (
	"strconv"
	"strings"
)

// Comparator imposes a total order on version tokens.
//
// Compare returns a negative number when a orders before b, zero when
// they are equal, and a positive number when a orders after b. The
// empty string is the zero version and must order before every
// non-empty token.
type Comparator interface {
	Compare(a, b string) int
}

// ComparatorFunc adapts a plain function to a Comparator.
type ComparatorFunc func(a, b string) int

func (f ComparatorFunc) Compare(a, b string) int { return f(a, b) }

// Lexicographic compares tokens as plain strings. Suitable for feeds
// that emit fixed-width, zero-padded versions.
var Lexicographic Comparator = ComparatorFunc(strings.Compare)

// Numeric compares tokens as base-10 integers. The empty token orders
// before everything; a malformed token orders after every well-formed
// one so it can never unblock a waiter early.
var Numeric Comparator = ComparatorFunc(func(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	av, aerr := strconv.ParseInt(a, 10, 64)
	bv, berr := strconv.ParseInt(b, 10, 64)
	if aerr != nil || berr != nil {
		if aerr != nil && berr != nil {
			return strings.Compare(a, b)
		}
		if aerr != nil {
			return 1
		}
		return -1
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
})
