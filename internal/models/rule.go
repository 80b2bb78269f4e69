package models

import "strings"

// Rule is a single numbered entry in the live rulebook.
//
// IDs are unique across the live rule set. By convention the initial
// immutable rules occupy the 100 band and the initial mutable rules the
// 200 band, but transmutation can flip the Mutable flag of any rule
// regardless of its number.
type Rule struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Mutable bool   `json:"mutable"`
}

// Valid reports whether the rule satisfies the structural invariants:
// a positive id and non-empty text after trimming.
func (r Rule) Valid() bool {
	return r.ID > 0 && strings.TrimSpace(r.Text) != ""
}
