// Package engine implements the reconciliation pass: it scans every entity
// table for pending status keywords in fixed dependency order, drives the
// matching handler through its verb, and commits the outcome back to the
// store. A failing entity is marked with diagnostic text and the pass moves
// on; only infrastructure failures abort a pass.
package engine
