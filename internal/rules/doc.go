// Package rules models the audit checks applied to lab sign-in sessions.
//
// A Rule pairs a named predicate with either a manual-review flag or an
// automatic corrective default. Rule sets are immutable once loaded and are
// always evaluated in declaration order. Built-in daily and weekly sets can
// be overridden by a YAML rule-set file.
package rules
