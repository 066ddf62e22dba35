// Package analysis runs the side-effect and speculation predicates over a set
// of named root operations and assembles a report.
//
// Roots are analysed concurrently (bounded by Options.Concurrency); the
// predicates themselves are pure, so no synchronization is needed beyond
// collecting results. Reports are ordered by root name and carry a content
// hash that does not depend on the run ID, the concurrency limit or the
// order roots were supplied in.
//
// Roots nested deeper than Options.MaxDepth produce a DepthWarning. The
// predicates recurse once per nesting level; the warning flags inputs that
// come close to exhausting the goroutine stack.
package analysis
