// Package aggregates holds the write boundaries of the service.
//
// The progress engine composes the progress and rewards modules over table-level repos and
// owns the transaction: learner lock, ledger check, aggregation, rule evaluation, grants and
// summary projection either all commit or all roll back.
package aggregates
