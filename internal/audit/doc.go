// Package audit runs scheduled and ad hoc audits over the lab session
// database. It fetches session records from the remote source, evaluates
// the configured rule set in declaration order, applies corrective
// updates under optimistic concurrency, and hands the resulting report
// to the export writer.
package audit
