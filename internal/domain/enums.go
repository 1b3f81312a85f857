// Package domain defines the core domain models for the langfuse service.
package domain

// ObservationType represents the kind of an observation.
type ObservationType string

const (
	ObservationTypeSpan       ObservationType = "SPAN"
	ObservationTypeGeneration ObservationType = "GENERATION"
	ObservationTypeEvent      ObservationType = "EVENT"
)

// ObservationLevel represents the severity level of an observation.
type ObservationLevel string

const (
	ObservationLevelDebug   ObservationLevel = "DEBUG"
	ObservationLevelDefault ObservationLevel = "DEFAULT"
	ObservationLevelWarning ObservationLevel = "WARNING"
	ObservationLevelError   ObservationLevel = "ERROR"
)

// Verbosity controls how much of an observation's input/output is returned.
type Verbosity string

const (
	VerbosityCompact   Verbosity = "compact"
	VerbosityTruncated Verbosity = "truncated"
	VerbosityFull      Verbosity = "full"
)

// ParseVerbosity maps a query value to a Verbosity. Empty means full.
func ParseVerbosity(s string) (Verbosity, bool) {
	switch Verbosity(s) {
	case "", VerbosityFull:
		return VerbosityFull, true
	case VerbosityTruncated:
		return VerbosityTruncated, true
	case VerbosityCompact:
		return VerbosityCompact, true
	}
	return "", false
}

// ScoreDataType represents the data type of a score.
type ScoreDataType string

const (
	ScoreDataTypeNumeric     ScoreDataType = "NUMERIC"
	ScoreDataTypeCategorical ScoreDataType = "CATEGORICAL"
	ScoreDataTypeBoolean     ScoreDataType = "BOOLEAN"
)

// ScoreAggregateType is the shape of an aggregated score.
type ScoreAggregateType string

const (
	ScoreAggregateNumeric     ScoreAggregateType = "NUMERIC"
	ScoreAggregateCategorical ScoreAggregateType = "CATEGORICAL"
)
