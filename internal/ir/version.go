package ir

// Version constants for generated artifacts.
const (
	// DescriptionVersion is the behavior description schema version.
	DescriptionVersion = "1"

	// GeneratorVersion is the sched2bt generator version.
	GeneratorVersion = "0.1.0"
)
