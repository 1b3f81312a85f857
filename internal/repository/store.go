// Package repository defines the storage interfaces and implementations.
package repository

import (
	"context"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

// Store defines the interface for relational persistence.
// Getters return (nil, nil) when the row does not exist.
type Store interface {
	// Trace operations
	CreateTrace(ctx context.Context, trace *domain.Trace) error
	ListTraces(ctx context.Context, projectID string, traceIDs []string) ([]domain.Trace, error)

	// Observation operations
	CreateObservation(ctx context.Context, obs *domain.Observation) error
	GetObservation(ctx context.Context, q domain.ObservationQuery) (*domain.Observation, error)

	// Dataset operations
	CreateDataset(ctx context.Context, dataset *domain.Dataset) error
	GetDataset(ctx context.Context, projectID, datasetID string) (*domain.Dataset, error)
	CreateDatasetItem(ctx context.Context, item *domain.DatasetItem) error
	ListDatasetItems(ctx context.Context, projectID, datasetID string) ([]domain.DatasetItem, error)

	// Dataset run operations
	CreateDatasetRun(ctx context.Context, run *domain.DatasetRun) error
	GetDatasetRun(ctx context.Context, projectID, datasetID, runID string) (*domain.DatasetRun, error)
	CreateDatasetRunItem(ctx context.Context, item *domain.DatasetRunItem) error
	ListDatasetRunItems(ctx context.Context, projectID, runID string) ([]domain.DatasetRunItem, error)

	// Score operations
	CreateScore(ctx context.Context, score *domain.Score) error
	ListScores(ctx context.Context, projectID string, traceIDs []string) ([]domain.Score, error)

	// Remote experiment operations
	UpsertRemoteExperimentConfig(ctx context.Context, cfg *domain.RemoteExperimentConfig) error
	GetRemoteExperimentConfig(ctx context.Context, projectID, datasetID string) (*domain.RemoteExperimentConfig, error)
	DeleteRemoteExperimentConfig(ctx context.Context, projectID, datasetID string) (bool, error)

	// Lifecycle
	Close() error
}

// EventStore reads observations from the event table.
// A missing observation is reported as domain.ErrNotFound.
type EventStore interface {
	GetObservation(ctx context.Context, q domain.ObservationQuery) (*domain.Observation, error)
	Close()
}
