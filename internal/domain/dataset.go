package domain

import "time"

// Dataset groups items used to run experiments.
type Dataset struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DatasetItem is one example in a dataset.
type DatasetItem struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	DatasetID      string    `json:"datasetId"`
	Input          any       `json:"input,omitempty"`
	ExpectedOutput any       `json:"expectedOutput,omitempty"`
	Metadata       any       `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DatasetRun is a named execution of a dataset.
type DatasetRun struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	DatasetID string    `json:"datasetId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// DatasetRunItem links a dataset item to the trace/observation produced for it in a run.
type DatasetRunItem struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	DatasetRunID  string    `json:"datasetRunId"`
	DatasetItemID string    `json:"datasetItemId"`
	TraceID       string    `json:"traceId"`
	ObservationID string    `json:"observationId,omitempty"`
	Latency       *float64  `json:"latency,omitempty"`
	TotalCost     *float64  `json:"totalCost,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Score is a single scoring event attached to a trace or observation.
type Score struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"projectId"`
	TraceID       string        `json:"traceId"`
	ObservationID string        `json:"observationId,omitempty"`
	Name          string        `json:"name"`
	DataType      ScoreDataType `json:"dataType"`
	Value         *float64      `json:"value,omitempty"`
	StringValue   string        `json:"stringValue,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ValueCount is one category and how often it was observed.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ScoreAggregate summarizes possibly repeated scoring events for one run item.
// Numeric aggregates carry Average; categorical ones carry ValueCounts in first-seen order.
type ScoreAggregate struct {
	Type        ScoreAggregateType `json:"type"`
	Average     *float64           `json:"average,omitempty"`
	Values      []float64          `json:"values,omitempty"`
	ValueCounts []ValueCount       `json:"valueCounts,omitempty"`
}

// RunItem is a dataset run item enriched with IO, metadata and aggregated scores.
// It is the unit of the CSV export.
type RunItem struct {
	DatasetItemID  string                    `json:"datasetItemId"`
	TraceID        string                    `json:"traceId"`
	ObservationID  string                    `json:"observationId,omitempty"`
	CreatedAt      time.Time                 `json:"createdAt"`
	Latency        *float64                  `json:"latency,omitempty"`
	TotalCost      *float64                  `json:"totalCost,omitempty"`
	Input          any                       `json:"input,omitempty"`
	ExpectedOutput any                       `json:"expectedOutput,omitempty"`
	TraceOutput    any                       `json:"traceOutput,omitempty"`
	Metadata       any                       `json:"metadata,omitempty"`
	Scores         map[string]ScoreAggregate `json:"scores,omitempty"`
}
