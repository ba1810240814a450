// Package aggregates defines domain-facing aggregate contracts.
//
// The progress engine is the only aggregate: every learner-facing write (progress rows,
// grants, summary, applied-event ledger) happens inside one of its write methods.
package aggregates
