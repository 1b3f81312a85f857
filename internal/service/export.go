package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rezaarrazi-sqe/langfuse/internal/adapter/blob"
	"github.com/rezaarrazi-sqe/langfuse/internal/csvexport"
	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/metrics"
)

const csvContentType = "text/csv; charset=utf-8"

// CSVExport is a rendered run export.
type CSVExport struct {
	FileName string
	Content  string
	Rows     int
}

// ListRunItems loads a run's items joined with their dataset item, trace
// output and aggregated scores.
func (s *Service) ListRunItems(ctx context.Context, projectID, datasetID, runID string) (*domain.Dataset, *domain.DatasetRun, []domain.RunItem, error) {
	dataset, err := s.store.GetDataset(ctx, projectID, datasetID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	if dataset == nil {
		return nil, nil, nil, &domain.NotFoundError{Resource: "dataset", ID: datasetID, ProjectID: projectID}
	}
	run, err := s.store.GetDatasetRun(ctx, projectID, datasetID, runID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get dataset run: %w", err)
	}
	if run == nil {
		return nil, nil, nil, &domain.NotFoundError{Resource: "dataset run", ID: runID, ProjectID: projectID}
	}

	runItems, err := s.store.ListDatasetRunItems(ctx, projectID, runID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list run items: %w", err)
	}
	if len(runItems) == 0 {
		return dataset, run, nil, nil
	}

	datasetItems, err := s.store.ListDatasetItems(ctx, projectID, datasetID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list dataset items: %w", err)
	}
	itemsByID := make(map[string]domain.DatasetItem, len(datasetItems))
	for _, it := range datasetItems {
		itemsByID[it.ID] = it
	}

	traceIDs := uniqueTraceIDs(runItems)
	traces, err := s.store.ListTraces(ctx, projectID, traceIDs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list traces: %w", err)
	}
	tracesByID := make(map[string]domain.Trace, len(traces))
	for _, t := range traces {
		tracesByID[t.ID] = t
	}

	scores, err := s.store.ListScores(ctx, projectID, traceIDs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list scores: %w", err)
	}
	scoresByTarget := make(map[scoreTarget][]domain.Score)
	for _, sc := range scores {
		key := scoreTarget{traceID: sc.TraceID, observationID: sc.ObservationID}
		scoresByTarget[key] = append(scoresByTarget[key], sc)
	}

	items := make([]domain.RunItem, 0, len(runItems))
	for _, ri := range runItems {
		item := domain.RunItem{
			DatasetItemID: ri.DatasetItemID,
			TraceID:       ri.TraceID,
			ObservationID: ri.ObservationID,
			CreatedAt:     ri.CreatedAt,
			Latency:       ri.Latency,
			TotalCost:     ri.TotalCost,
		}
		if di, ok := itemsByID[ri.DatasetItemID]; ok {
			item.Input = di.Input
			item.ExpectedOutput = di.ExpectedOutput
			item.Metadata = di.Metadata
		}
		if t, ok := tracesByID[ri.TraceID]; ok {
			item.TraceOutput = t.Output
		}
		item.Scores = AggregateScores(scoresByTarget[scoreTarget{traceID: ri.TraceID, observationID: ri.ObservationID}])
		items = append(items, item)
	}
	return dataset, run, items, nil
}

// ExportRunItemsCSV renders a run's items as CSV.
func (s *Service) ExportRunItemsCSV(ctx context.Context, projectID, datasetID, runID string) (*CSVExport, error) {
	dataset, run, items, err := s.ListRunItems(ctx, projectID, datasetID, runID)
	if err != nil {
		return nil, err
	}
	metrics.CSVExportRows.Observe(float64(len(items)))
	return &CSVExport{
		FileName: csvexport.FileName(dataset.Name, run.Name),
		Content:  csvexport.ToCSV(items),
		Rows:     len(items),
	}, nil
}

// UploadRunItemsCSV renders a run's CSV and stores it in blob storage.
func (s *Service) UploadRunItemsCSV(ctx context.Context, projectID, datasetID, runID string) (*domain.ExportResponse, error) {
	if s.uploader == nil {
		return nil, domain.ErrStorageNotConfigured
	}
	export, err := s.ExportRunItemsCSV(ctx, projectID, datasetID, runID)
	if err != nil {
		return nil, err
	}

	key := blob.ExportKey(projectID, datasetID, runID)
	if err := s.uploader.Put(ctx, key, []byte(export.Content), csvContentType); err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}
	s.logger.Info().
		Str("project_id", projectID).
		Str("run_id", runID).
		Str("key", key).
		Int("rows", export.Rows).
		Msg("uploaded run export")
	return &domain.ExportResponse{Key: key, Rows: export.Rows}, nil
}

// scoreTarget is what a score is attached to. An empty observationID means the trace itself.
type scoreTarget struct {
	traceID       string
	observationID string
}

func uniqueTraceIDs(items []domain.DatasetRunItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.TraceID == "" || seen[it.TraceID] {
			continue
		}
		seen[it.TraceID] = true
		ids = append(ids, it.TraceID)
	}
	return ids
}

// AggregateScores groups scoring events by name. Numeric scores average their
// values; categorical and boolean scores count labels in first-seen order.
// Events whose type disagrees with the first event of the same name are ignored.
func AggregateScores(scores []domain.Score) map[string]domain.ScoreAggregate {
	if len(scores) == 0 {
		return nil
	}
	aggs := make(map[string]domain.ScoreAggregate)
	for _, sc := range scores {
		kind := domain.ScoreAggregateCategorical
		if sc.DataType == domain.ScoreDataTypeNumeric {
			kind = domain.ScoreAggregateNumeric
		}
		agg, ok := aggs[sc.Name]
		if !ok {
			agg = domain.ScoreAggregate{Type: kind}
		} else if agg.Type != kind {
			continue
		}

		if kind == domain.ScoreAggregateNumeric {
			if sc.Value == nil {
				continue
			}
			agg.Values = append(agg.Values, *sc.Value)
			avg := mean(agg.Values)
			agg.Average = &avg
		} else {
			agg.ValueCounts = countLabel(agg.ValueCounts, scoreLabel(sc))
		}
		aggs[sc.Name] = agg
	}
	return aggs
}

func scoreLabel(sc domain.Score) string {
	if sc.StringValue != "" {
		return sc.StringValue
	}
	if sc.Value == nil {
		return ""
	}
	if sc.DataType == domain.ScoreDataTypeBoolean {
		if *sc.Value != 0 {
			return "True"
		}
		return "False"
	}
	return strconv.FormatFloat(*sc.Value, 'f', -1, 64)
}

func countLabel(counts []domain.ValueCount, label string) []domain.ValueCount {
	for i := range counts {
		if counts[i].Value == label {
			counts[i].Count++
			return counts
		}
	}
	return append(counts, domain.ValueCount{Value: label, Count: 1})
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
