package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rezaarrazi-sqe/langfuse/internal/config"
	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/repository"
	"github.com/rezaarrazi-sqe/langfuse/internal/shaping"
	"github.com/rezaarrazi-sqe/langfuse/internal/tiered"
	"github.com/rezaarrazi-sqe/langfuse/internal/webhookurl"
)

// Uploader stores export files.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ExperimentTrigger calls a remote experiment webhook.
type ExperimentTrigger interface {
	Trigger(ctx context.Context, url string, req *domain.RemoteExperimentTrigger) (int, error)
}

// URLPolicy decides whether a webhook target may be stored.
type URLPolicy interface {
	EvaluateWebhookURL(ctx context.Context, raw string) error
}

// Deps are the collaborators of a Service. Events and Uploader may be nil.
type Deps struct {
	Store     repository.Store
	Events    repository.EventStore
	Uploader  Uploader
	Trigger   ExperimentTrigger
	Policy    URLPolicy
	Config    *config.Config
	Endpoints []webhookurl.Endpoint
	Logger    zerolog.Logger
}

type Service struct {
	store        repository.Store
	events       repository.EventStore
	uploader     Uploader
	trigger      ExperimentTrigger
	policy       URLPolicy
	config       *config.Config
	defaults     webhookurl.Defaults
	limits       shaping.Limits
	logger       zerolog.Logger
	observations *tiered.Lookup[domain.ObservationQuery, *domain.Observation]
}

func New(deps Deps) *Service {
	s := &Service{
		store:    deps.Store,
		events:   deps.Events,
		uploader: deps.Uploader,
		trigger:  deps.Trigger,
		policy:   deps.Policy,
		config:   deps.Config,
		defaults: deps.Config.WebhookDefaults(deps.Endpoints),
		limits: shaping.Limits{
			TruncatedChars: deps.Config.Observations.TruncateChars,
			CompactChars:   deps.Config.Observations.CompactChars,
		},
		logger: deps.Logger.With().Str("component", "service").Logger(),
	}
	if deps.Config.Observations.PrimaryEnabled && deps.Events == nil {
		s.logger.Warn().Msg("primary observation store enabled without a postgres connection; using legacy store only")
	}
	s.observations = s.newObservationLookup()
	return s
}
