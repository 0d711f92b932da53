package ir

// Version constants for the graph snapshot format and the tool.
const (
	// FormatVersion is the snapshot format version. Readers accept any
	// snapshot whose format version satisfies ^1 semver compatibility.
	FormatVersion = "1.0.0"

	// ToolVersion is the loom tool version recorded in snapshots and debug
	// databases.
	ToolVersion = "0.1.0"
)
