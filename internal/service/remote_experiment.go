package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rezaarrazi-sqe/langfuse/internal/adapter/experiment"
	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/metrics"
	"github.com/rezaarrazi-sqe/langfuse/internal/webhookurl"
	"github.com/rezaarrazi-sqe/langfuse/policy"
)

// EndpointCatalog is what path mode offers.
type EndpointCatalog struct {
	BaseURLConfigured bool                  `json:"baseUrlConfigured"`
	Endpoints         []webhookurl.Endpoint `json:"endpoints"`
}

// RemoteExperimentEndpoints returns the configured endpoint catalog.
func (s *Service) RemoteExperimentEndpoints() EndpointCatalog {
	endpoints := s.defaults.Endpoints
	if endpoints == nil {
		endpoints = []webhookurl.Endpoint{}
	}
	return EndpointCatalog{BaseURLConfigured: s.defaults.Configured(), Endpoints: endpoints}
}

// ResolveRemoteExperimentURL turns form state into an absolute URL. Path mode
// uses the configured base host and fails with webhookurl.ErrMissingBaseURL
// when there is none.
func (s *Service) ResolveRemoteExperimentURL(form webhookurl.Form) (string, error) {
	raw, err := form.Resolve(s.defaults)
	if err != nil {
		return "", err
	}
	return absoluteURL(raw)
}

// UpsertRemoteExperiment validates and stores a dataset's webhook.
// Invalid input never reaches the store.
func (s *Service) UpsertRemoteExperiment(ctx context.Context, req *domain.UpsertRemoteExperimentRequest) (*domain.RemoteExperimentConfig, error) {
	payload := strings.TrimSpace(req.DefaultPayload)
	if payload != "" && !json.Valid([]byte(payload)) {
		return nil, &domain.ValidationError{Field: "defaultPayload", Message: "must be valid JSON"}
	}

	target, err := s.requestURL(req)
	if err != nil {
		return nil, &domain.ValidationError{Field: "url", Message: err.Error(), Err: err}
	}
	if err := s.policy.EvaluateWebhookURL(ctx, target); err != nil {
		var denied *policy.DeniedError
		if errors.As(err, &denied) {
			return nil, &domain.ValidationError{Field: "url", Message: strings.Join(denied.Reasons, "; "), Err: err}
		}
		return nil, fmt.Errorf("failed to evaluate url policy: %w", err)
	}

	dataset, err := s.store.GetDataset(ctx, req.ProjectID, req.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	if dataset == nil {
		return nil, &domain.NotFoundError{Resource: "dataset", ID: req.DatasetID, ProjectID: req.ProjectID}
	}

	cfg := &domain.RemoteExperimentConfig{
		ProjectID:      req.ProjectID,
		DatasetID:      req.DatasetID,
		URL:            target,
		DefaultPayload: payload,
	}
	if err := s.store.UpsertRemoteExperimentConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save remote experiment: %w", err)
	}
	s.logger.Info().
		Str("project_id", cfg.ProjectID).
		Str("dataset_id", cfg.DatasetID).
		Str("url", cfg.URL).
		Msg("remote experiment saved")
	return cfg, nil
}

func (s *Service) requestURL(req *domain.UpsertRemoteExperimentRequest) (string, error) {
	if strings.TrimSpace(req.URL) != "" {
		return absoluteURL(req.URL)
	}
	if req.Form == nil {
		return "", webhookurl.ErrEmptyURL
	}
	mode, err := webhookurl.ParseMode(req.Form.Mode)
	if err != nil {
		return "", err
	}
	return s.ResolveRemoteExperimentURL(webhookurl.Form{
		Mode: mode,
		Host: req.Form.Host,
		Port: req.Form.Port,
		Path: req.Form.Path,
		URL:  req.Form.URL,
	})
}

// absoluteURL keeps raw when it already has a scheme and host, and otherwise
// rebuilds it from its parsed parts.
func absoluteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return raw, nil
	}
	parts, err := webhookurl.Parse(raw)
	if err != nil {
		return "", err
	}
	return webhookurl.Compose(parts.Host, parts.Port, parts.Path), nil
}

// GetRemoteExperiment returns a dataset's webhook config.
func (s *Service) GetRemoteExperiment(ctx context.Context, projectID, datasetID string) (*domain.RemoteExperimentConfig, error) {
	cfg, err := s.store.GetRemoteExperimentConfig(ctx, projectID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get remote experiment: %w", err)
	}
	if cfg == nil {
		return nil, &domain.NotFoundError{Resource: "remote experiment", ID: datasetID, ProjectID: projectID}
	}
	return cfg, nil
}

// DeleteRemoteExperiment removes a dataset's webhook config.
func (s *Service) DeleteRemoteExperiment(ctx context.Context, projectID, datasetID string) error {
	removed, err := s.store.DeleteRemoteExperimentConfig(ctx, projectID, datasetID)
	if err != nil {
		return fmt.Errorf("failed to delete remote experiment: %w", err)
	}
	if !removed {
		return &domain.NotFoundError{Resource: "remote experiment", ID: datasetID, ProjectID: projectID}
	}
	return nil
}

// TriggerRemoteExperiment POSTs the dataset's experiment request to its webhook.
// payloadOverride replaces the stored default payload when non-empty.
func (s *Service) TriggerRemoteExperiment(ctx context.Context, projectID, datasetID, payloadOverride string) (*domain.TriggerRemoteExperimentResponse, error) {
	cfg, err := s.GetRemoteExperiment(ctx, projectID, datasetID)
	if err != nil {
		return nil, err
	}
	dataset, err := s.store.GetDataset(ctx, projectID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	if dataset == nil {
		return nil, &domain.NotFoundError{Resource: "dataset", ID: datasetID, ProjectID: projectID}
	}

	payload := strings.TrimSpace(payloadOverride)
	if payload == "" {
		payload = cfg.DefaultPayload
	}
	var body any
	if payload != "" {
		if !json.Valid([]byte(payload)) {
			return nil, &domain.ValidationError{Field: "payload", Message: "must be valid JSON"}
		}
		body = json.RawMessage(payload)
	}

	status, err := s.trigger.Trigger(ctx, cfg.URL, &domain.RemoteExperimentTrigger{
		ProjectID:   projectID,
		DatasetID:   datasetID,
		DatasetName: dataset.Name,
		Payload:     body,
	})
	resp := &domain.TriggerRemoteExperimentResponse{URL: cfg.URL, StatusCode: status}
	if err != nil {
		var statusErr *experiment.StatusError
		if errors.As(err, &statusErr) {
			metrics.RemoteExperimentTriggers.WithLabelValues("rejected").Inc()
		} else {
			metrics.RemoteExperimentTriggers.WithLabelValues("error").Inc()
		}
		s.logger.Warn().Err(err).
			Str("project_id", projectID).
			Str("dataset_id", datasetID).
			Msg("remote experiment trigger failed")
		return resp, err
	}
	metrics.RemoteExperimentTriggers.WithLabelValues("ok").Inc()
	return resp, nil
}
