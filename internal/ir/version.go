package ir

// Version constants for the IR schema and analyzer.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// AnalyzerVersion is the sidefx analyzer version.
	AnalyzerVersion = "0.1.0"
)
