package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/repository"
)

type eventAppender interface {
	AppendObservation(ctx context.Context, obs *domain.Observation) error
}

type seeder struct {
	store     repository.Store
	events    eventAppender
	projectID string
	now       time.Time
}

type summary struct {
	DatasetID string
	RunIDs    []string
	Items     int
	Events    int
}

var demoItems = []struct {
	question string
	answer   string
}{
	{"What is 2 + 2?", "4"},
	{"Name the capital of France.", "Paris"},
	{"Translate \"hello\" to Spanish.", "hola"},
}

func (s *seeder) seed(ctx context.Context, runs int) (*summary, error) {
	dataset := &domain.Dataset{
		ID:          uuid.NewString(),
		ProjectID:   s.projectID,
		Name:        "demo-" + s.now.Format("20060102-150405"),
		Description: "Seeded demo dataset",
		CreatedAt:   s.now,
	}
	if err := s.store.CreateDataset(ctx, dataset); err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	out := &summary{DatasetID: dataset.ID}

	items := make([]domain.DatasetItem, 0, len(demoItems))
	for i, d := range demoItems {
		item := domain.DatasetItem{
			ID:             uuid.NewString(),
			ProjectID:      s.projectID,
			DatasetID:      dataset.ID,
			Input:          map[string]any{"question": d.question},
			ExpectedOutput: d.answer,
			Metadata:       map[string]any{"index": i},
			CreatedAt:      s.now.Add(time.Duration(i) * time.Second),
		}
		if err := s.store.CreateDatasetItem(ctx, &item); err != nil {
			return nil, fmt.Errorf("create dataset item: %w", err)
		}
		items = append(items, item)
	}
	out.Items = len(items)

	for r := 0; r < runs; r++ {
		run := &domain.DatasetRun{
			ID:        uuid.NewString(),
			ProjectID: s.projectID,
			DatasetID: dataset.ID,
			Name:      fmt.Sprintf("run-%d", r+1),
			CreatedAt: s.now.Add(time.Duration(r) * time.Minute),
		}
		if err := s.store.CreateDatasetRun(ctx, run); err != nil {
			return nil, fmt.Errorf("create dataset run: %w", err)
		}
		out.RunIDs = append(out.RunIDs, run.ID)

		for i, item := range items {
			n, err := s.seedRunItem(ctx, run, item, demoItems[i].answer, r, i)
			if err != nil {
				return nil, err
			}
			out.Events += n
		}
	}
	return out, nil
}

// seedRunItem records one traced execution of item with a generation and scores.
func (s *seeder) seedRunItem(ctx context.Context, run *domain.DatasetRun, item domain.DatasetItem, answer string, r, i int) (int, error) {
	start := run.CreatedAt.Add(time.Duration(i) * 5 * time.Second)
	end := start.Add(time.Duration(800+100*i) * time.Millisecond)
	correct := (r+i)%3 != 0
	output := answer
	if !correct {
		output = "I am not sure."
	}

	trace := &domain.Trace{
		ID:        uuid.NewString(),
		ProjectID: s.projectID,
		Name:      "dataset-run-item",
		Timestamp: start,
		Input:     item.Input,
		Output:    output,
	}
	if err := s.store.CreateTrace(ctx, trace); err != nil {
		return 0, fmt.Errorf("create trace: %w", err)
	}

	cost := 0.00042 * float64(i+1)
	obs := &domain.Observation{
		ID:        uuid.NewString(),
		ProjectID: s.projectID,
		TraceID:   trace.ID,
		Type:      domain.ObservationTypeGeneration,
		Name:      "answer",
		StartTime: start,
		EndTime:   &end,
		Level:     domain.ObservationLevelDefault,
		Model:     "gpt-4o-mini",
		Input:     item.Input,
		Output:    output,
		Usage:     &domain.Usage{Input: 20 + i, Output: 5, Total: 25 + i},
		TotalCost: &cost,
	}
	if err := s.store.CreateObservation(ctx, obs); err != nil {
		return 0, fmt.Errorf("create observation: %w", err)
	}
	events := 0
	if s.events != nil {
		if err := s.events.AppendObservation(ctx, obs); err != nil {
			return 0, fmt.Errorf("append observation event: %w", err)
		}
		events++
	}

	latency := end.Sub(start).Seconds()
	if err := s.store.CreateDatasetRunItem(ctx, &domain.DatasetRunItem{
		ID:            uuid.NewString(),
		ProjectID:     s.projectID,
		DatasetRunID:  run.ID,
		DatasetItemID: item.ID,
		TraceID:       trace.ID,
		Latency:       &latency,
		TotalCost:     &cost,
		CreatedAt:     end,
	}); err != nil {
		return 0, fmt.Errorf("create dataset run item: %w", err)
	}

	accuracy := 0.0
	if correct {
		accuracy = 1
	}
	tone := "neutral"
	if i == 1 {
		tone = "friendly"
	}
	scores := []domain.Score{
		{Name: "accuracy", DataType: domain.ScoreDataTypeNumeric, Value: &accuracy},
		{Name: "tone", DataType: domain.ScoreDataTypeCategorical, StringValue: tone},
		{Name: "exact_match", DataType: domain.ScoreDataTypeBoolean, Value: &accuracy},
	}
	for _, sc := range scores {
		sc.ID = uuid.NewString()
		sc.ProjectID = s.projectID
		sc.TraceID = trace.ID
		sc.Timestamp = end
		if err := s.store.CreateScore(ctx, &sc); err != nil {
			return 0, fmt.Errorf("create score %s: %w", sc.Name, err)
		}
	}
	return events, nil
}
