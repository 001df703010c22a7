package ir

// Version constants for the table format and the synthesizer.
const (
	// TableVersion is the serialized table schema version.
	TableVersion = "1"

	// SynthVersion is the synthesizer version recorded with cached runs.
	SynthVersion = "0.1.0"
)
