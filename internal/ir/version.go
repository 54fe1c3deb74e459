package ir

// Version constants for the fact schema and the generator.
const (
	// FactVersion is the fact schema version. Bump it when Canonical forms
	// change so persisted manifests stop matching.
	FactVersion = "1"

	// GeneratorVersion is the ecsgen version stamped into generated headers.
	GeneratorVersion = "0.1.0"
)
