package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedDataset creates dataset d1 named "qa" with items i1 and i2 in project p1.
func SeedDataset(t *testing.T, s repository.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := s.CreateDataset(ctx, &domain.Dataset{ID: "d1", ProjectID: "p1", Name: "qa", CreatedAt: now}); err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	items := []domain.DatasetItem{
		{ID: "i1", ProjectID: "p1", DatasetID: "d1", Input: map[string]any{"q": "2+2"}, ExpectedOutput: "4", CreatedAt: now},
		{ID: "i2", ProjectID: "p1", DatasetID: "d1", Input: map[string]any{"q": "capital of France"}, ExpectedOutput: "Paris",
			Metadata: map[string]any{"difficulty": "easy"}, CreatedAt: now.Add(time.Minute)},
	}
	for i := range items {
		if err := s.CreateDatasetItem(ctx, &items[i]); err != nil {
			t.Fatalf("CreateDatasetItem: %v", err)
		}
	}
}
