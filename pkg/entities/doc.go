// Package entities implements one handler per provisionable entity kind.
// A handler instance serves exactly one row for exactly one pass: Load
// fetches the row with its joined parent context, the verb methods converge
// external artifacts through the service collaborators, and the memoized
// data providers keep each artifact context computed once per pass.
package entities
