package domain

import "time"

// Observation is a single recorded unit of work (span, generation, event) within a trace.
// Input, Output and Metadata hold decoded JSON or, for opaque blobs, the raw string.
type Observation struct {
	ID                  string           `json:"id"`
	ProjectID           string           `json:"projectId"`
	TraceID             string           `json:"traceId"`
	Type                ObservationType  `json:"type"`
	Name                string           `json:"name,omitempty"`
	StartTime           time.Time        `json:"startTime"`
	EndTime             *time.Time       `json:"endTime,omitempty"`
	ParentObservationID string           `json:"parentObservationId,omitempty"`
	Level               ObservationLevel `json:"level,omitempty"`
	StatusMessage       string           `json:"statusMessage,omitempty"`
	Model               string           `json:"model,omitempty"`
	InternalModelID     string           `json:"internalModelId,omitempty"`
	Input               any              `json:"input,omitempty"`
	Output              any              `json:"output,omitempty"`
	Metadata            any              `json:"metadata,omitempty"`
	Usage               *Usage           `json:"usage,omitempty"`
	TotalCost           *float64         `json:"totalCost,omitempty"`
}

// Usage represents token usage for a generation.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// ObservationQuery identifies an observation for lookup.
// StartTime narrows the scan window in stores partitioned by time.
type ObservationQuery struct {
	ID        string
	ProjectID string
	TraceID   string
	StartTime *time.Time
}

// Trace is a collection of observations representing one logical execution.
type Trace struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Input     any       `json:"input,omitempty"`
	Output    any       `json:"output,omitempty"`
	Metadata  any       `json:"metadata,omitempty"`
}
