// Package identify drives one identification run: scan the start path into
// candidates, query strategies per candidate in configured order, then score,
// extract coordinates, render purls and rank the surviving matches.
//
// Candidates are processed one at a time, most specific first. Within a
// candidate, exact strategies run before fuzzy ones, and fuzzy strategies only
// run when no exact hit was found. An exact hit from an official organisation
// with enough visits stops the whole loop; that decision travels back as an
// explicit signal from the per-candidate step.
//
// Collaborators live in slots that are built on first use from their factory
// and memoized, so a run that never needs, say, license detection never
// constructs it. Provider and candidate failures degrade to zero hits; only
// setup failures, contract violations raised by the scanner and cancellation
// reach the caller.
package identify
