// Package draw computes Secret Santa assignment sets.
//
// An assignment set must be a derangement (nobody gives to themselves) and a
// bijection (everybody receives exactly one gift). Engine searches random
// permutations for a derangement and falls back to a rotation by one, which
// is a derangement for every n >= 2. Verify checks both properties over any
// assignment set without access to the engine.
package draw
