package service

import (
	"context"
	"errors"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/metrics"
	"github.com/rezaarrazi-sqe/langfuse/internal/shaping"
	"github.com/rezaarrazi-sqe/langfuse/internal/tiered"
)

const (
	tierPrimary = "primary"
	tierLegacy  = "legacy"
)

func (s *Service) newObservationLookup() *tiered.Lookup[domain.ObservationQuery, *domain.Observation] {
	primary := tiered.Tier[domain.ObservationQuery, *domain.Observation]{
		Name:        tierPrimary,
		Consistency: tiered.EventuallyConsistent,
		Disabled:    s.events == nil || !s.config.Observations.PrimaryEnabled,
		Fetch: func(ctx context.Context, q domain.ObservationQuery) (*domain.Observation, error) {
			return s.events.GetObservation(ctx, q)
		},
	}
	legacy := tiered.Tier[domain.ObservationQuery, *domain.Observation]{
		Name:        tierLegacy,
		Consistency: tiered.Authoritative,
		Fetch: func(ctx context.Context, q domain.ObservationQuery) (*domain.Observation, error) {
			obs, err := s.store.GetObservation(ctx, q)
			if err != nil {
				return nil, err
			}
			if obs == nil {
				return nil, domain.ErrNotFound
			}
			return obs, nil
		},
	}

	isNotFound := func(err error) bool { return errors.Is(err, domain.ErrNotFound) }
	return tiered.New(isNotFound, primary, legacy).OnOutcome(func(tier string, outcome tiered.Outcome) {
		metrics.ObservationLookups.WithLabelValues(tier, string(outcome)).Inc()
		if tier == tierPrimary && outcome == tiered.OutcomeMiss {
			s.logger.Debug().Str("tier", tier).Msg("observation not in primary store, falling back")
		}
	})
}

// GetObservation looks the observation up in the primary event store (when
// enabled) and then the legacy store, and shapes its input/output for the
// requested verbosity.
func (s *Service) GetObservation(ctx context.Context, params domain.GetObservationParams) (*domain.Observation, error) {
	if params.ID == "" {
		return nil, &domain.ValidationError{Field: "observationId", Message: "is required"}
	}
	if params.ProjectID == "" {
		return nil, &domain.ValidationError{Field: "projectId", Message: "is required"}
	}
	verbosity := params.Verbosity
	if verbosity == "" {
		verbosity = domain.VerbosityFull
	}

	obs, err := s.observations.Get(ctx, params.Query())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.NotFoundError{Resource: "observation", ID: params.ID, ProjectID: params.ProjectID}
	}
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, &domain.NotFoundError{Resource: "observation", ID: params.ID, ProjectID: params.ProjectID}
	}

	return shaping.Apply(obs, verbosity, s.limits), nil
}
