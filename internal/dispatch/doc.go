// Package dispatch maps extended facts to named output units.
//
// Each generator looks at one comparer projection of an extended fact. The
// dispatcher keeps the projection hash and the units produced for every
// item; an item whose projection did not change reuses its previous units
// without rendering. A change that only affects one projection therefore
// re-renders only the units that depend on it.
//
// Rendering failures never escape: the failed unit is replaced by an
// auto-generated header and a comment carrying the error.
package dispatch
