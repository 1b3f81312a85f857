package domain

import "time"

// RemoteExperimentConfig is the webhook a dataset triggers to run an experiment remotely.
// There is at most one per (project, dataset).
type RemoteExperimentConfig struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	DatasetID      string    `json:"datasetId"`
	URL            string    `json:"url"`
	DefaultPayload string    `json:"defaultPayload"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RemoteExperimentTrigger is the body POSTed to a remote experiment URL.
type RemoteExperimentTrigger struct {
	ProjectID   string `json:"projectId"`
	DatasetID   string `json:"datasetId"`
	DatasetName string `json:"datasetName"`
	Payload     any    `json:"payload"`
}
