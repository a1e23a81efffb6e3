package model

import "strings"

// MaxNameLength bounds operation and action names loaded from the rule
// relation. Longer values are silently truncated, never rejected.
const MaxNameLength = 100

// Rule declares one fault to inject: when a statement whose command tag
// matches Operation is about to run, the named action fires with Sec as
// its parameter. At most one rule exists per operation; the persistent
// key enforces that.
type Rule struct {
	Operation string
	Action    string
	Sec       int
}

// MatchesOperation reports whether the rule applies to the given command
// tag. Operation names match case-insensitively.
func (r Rule) MatchesOperation(tag string) bool {
	return strings.EqualFold(r.Operation, tag)
}

// Truncate bounds s to at most max runes. A zero or negative max leaves
// s untouched.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
