// Package ir provides the value types that flow between ecsgen stages.
//
// This package contains type definitions and pure helpers only. Every other
// internal package imports ir; ir imports nothing internal.
//
// Key design constraints:
//   - Facts are immutable once published. Builders confine mutation to
//     construction scope.
//   - Value equality drives incrementality. Every fact has a hand-written
//     Equal and a Canonical form whose hash agrees with it.
//   - Sequences (component fields, system triggers) are order-significant.
//     Sets (identity sets, events) are sorted and deduplicated so that equal
//     sets compare equal regardless of discovery order.
//   - TypeIdentity compares by FullName only (ordinal, case-sensitive).
package ir
