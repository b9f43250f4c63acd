// Package remote mirrors generated configuration artifacts to secondary
// hosts over SSH. Writes happen locally first; publishing is a fan-out of
// the finished files, so a remote failure never leaves a half-written file
// on the primary.
package remote
