package domain

import "time"

// GetObservationParams is the query for fetching a single observation.
type GetObservationParams struct {
	ID        string
	ProjectID string
	TraceID   string
	StartTime *time.Time
	Verbosity Verbosity
}

// Query returns the store-level lookup key.
func (p GetObservationParams) Query() ObservationQuery {
	return ObservationQuery{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		TraceID:   p.TraceID,
		StartTime: p.StartTime,
	}
}

// URLFormRequest is the decomposed webhook URL as entered in the configuration form.
type URLFormRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=split url path"`
	Host string `json:"host,omitempty"`
	Port string `json:"port,omitempty" validate:"omitempty,numeric"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// UpsertRemoteExperimentRequest creates or replaces a dataset's remote experiment config.
// Either URL or Form must be set; URL wins when both are.
type UpsertRemoteExperimentRequest struct {
	ProjectID      string          `json:"-"`
	DatasetID      string          `json:"-"`
	URL            string          `json:"url,omitempty"`
	Form           *URLFormRequest `json:"form,omitempty"`
	DefaultPayload string          `json:"defaultPayload"`
}

// TriggerRemoteExperimentRequest optionally overrides the stored default payload.
type TriggerRemoteExperimentRequest struct {
	Payload string `json:"payload,omitempty"`
}

// TriggerRemoteExperimentResponse reports the remote endpoint's answer.
type TriggerRemoteExperimentResponse struct {
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
}

// ParseURLRequest asks for a URL to be split into host, port and path.
type ParseURLRequest struct {
	URL string `json:"url" validate:"required"`
}

// URLPartsResponse is a decomposed URL.
type URLPartsResponse struct {
	Host string `json:"host"`
	Port string `json:"port"`
	Path string `json:"path"`
}

// ComposeURLResponse is a composed absolute URL.
type ComposeURLResponse struct {
	URL string `json:"url"`
}

// ExportResponse describes a CSV export uploaded to blob storage.
type ExportResponse struct {
	Key  string `json:"key"`
	Rows int    `json:"rows"`
}
