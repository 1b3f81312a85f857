package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/tests/helpers"
)

func f64(v float64) *float64 { return &v }

func seedRunWithScores(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	helpers.SeedDataset(t, env.store)
	now := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, env.store.CreateDatasetRun(ctx, &domain.DatasetRun{ID: "r1", ProjectID: "p1", DatasetID: "d1", Name: "baseline", CreatedAt: now}))
	require.NoError(t, env.store.CreateTrace(ctx, &domain.Trace{ID: "t1", ProjectID: "p1", Timestamp: now, Output: "4"}))
	require.NoError(t, env.store.CreateTrace(ctx, &domain.Trace{ID: "t2", ProjectID: "p1", Timestamp: now, Output: map[string]any{"answer": "Lyon"}}))
	require.NoError(t, env.store.CreateDatasetRunItem(ctx, &domain.DatasetRunItem{
		ID: "ri1", ProjectID: "p1", DatasetRunID: "r1", DatasetItemID: "i1", TraceID: "t1", Latency: f64(1.5), CreatedAt: now.Add(time.Second),
	}))
	require.NoError(t, env.store.CreateDatasetRunItem(ctx, &domain.DatasetRunItem{
		ID: "ri2", ProjectID: "p1", DatasetRunID: "r1", DatasetItemID: "i2", TraceID: "t2", CreatedAt: now,
	}))

	scores := []domain.Score{
		{ID: "s1", TraceID: "t1", Name: "accuracy", DataType: domain.ScoreDataTypeNumeric, Value: f64(1)},
		{ID: "s2", TraceID: "t1", Name: "accuracy", DataType: domain.ScoreDataTypeNumeric, Value: f64(0.5)},
		{ID: "s3", TraceID: "t2", Name: "verdict", DataType: domain.ScoreDataTypeCategorical, StringValue: "fail"},
		{ID: "s4", TraceID: "t2", ObservationID: "o9", Name: "span-only", DataType: domain.ScoreDataTypeNumeric, Value: f64(3)},
	}
	for i := range scores {
		scores[i].ProjectID = "p1"
		scores[i].Timestamp = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, env.store.CreateScore(ctx, &scores[i]))
	}
}

func TestListRunItemsJoinsAndAggregates(t *testing.T) {
	env := newTestEnv(t)
	seedRunWithScores(t, env)

	dataset, run, items, err := env.svc.ListRunItems(context.Background(), "p1", "d1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "qa", dataset.Name)
	assert.Equal(t, "baseline", run.Name)
	require.Len(t, items, 2)

	// newest first
	first, second := items[0], items[1]
	assert.Equal(t, "i1", first.DatasetItemID)
	assert.Equal(t, "4", first.ExpectedOutput)
	assert.Equal(t, "4", first.TraceOutput)
	require.Contains(t, first.Scores, "accuracy")
	require.NotNil(t, first.Scores["accuracy"].Average)
	assert.Equal(t, 0.75, *first.Scores["accuracy"].Average)

	assert.Equal(t, "i2", second.DatasetItemID)
	assert.Equal(t, map[string]any{"difficulty": "easy"}, second.Metadata)
	assert.Equal(t, []domain.ValueCount{{Value: "fail", Count: 1}}, second.Scores["verdict"].ValueCounts)
	assert.NotContains(t, second.Scores, "span-only")
}

func TestExportRunItemsCSV(t *testing.T) {
	env := newTestEnv(t)
	seedRunWithScores(t, env)

	export, err := env.svc.ExportRunItemsCSV(context.Background(), "p1", "d1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "qa-baseline.csv", export.FileName)
	assert.Equal(t, 2, export.Rows)

	lines := strings.Split(export.Content, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], ",Score: accuracy,Score: verdict"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "i1,t1,,2024-06-02T09:00:01.000Z,1.5,,"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], ",0.75,"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",,fail"), lines[2])
}

func TestExportRunItemsCSVEmptyRun(t *testing.T) {
	env := newTestEnv(t)
	helpers.SeedDataset(t, env.store)
	require.NoError(t, env.store.CreateDatasetRun(context.Background(), &domain.DatasetRun{ID: "r1", ProjectID: "p1", DatasetID: "d1", Name: "empty", CreatedAt: time.Now()}))

	export, err := env.svc.ExportRunItemsCSV(context.Background(), "p1", "d1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "", export.Content)
	assert.Zero(t, export.Rows)
}

func TestExportRunItemsCSVNotFound(t *testing.T) {
	env := newTestEnv(t)
	helpers.SeedDataset(t, env.store)

	_, err := env.svc.ExportRunItemsCSV(context.Background(), "p1", "nope", "r1")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "dataset", nf.Resource)

	_, err = env.svc.ExportRunItemsCSV(context.Background(), "p1", "d1", "nope")
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "dataset run", nf.Resource)
}

func TestUploadRunItemsCSV(t *testing.T) {
	up := &fakeUploader{}
	env := newTestEnv(t, withUploader(up))
	seedRunWithScores(t, env)

	resp, err := env.svc.UploadRunItemsCSV(context.Background(), "p1", "d1", "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Rows)
	assert.True(t, strings.HasPrefix(resp.Key, "exports/p1/d1/r1/"), resp.Key)
	assert.Equal(t, resp.Key, up.key)
	assert.Equal(t, "text/csv; charset=utf-8", up.contentType)
	assert.True(t, strings.HasPrefix(string(up.data), "Dataset Item ID,"))
}

func TestUploadRunItemsCSVWithoutStorage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UploadRunItemsCSV(context.Background(), "p1", "d1", "r1")
	assert.ErrorIs(t, err, domain.ErrStorageNotConfigured)
}

func TestUploadRunItemsCSVUploadFailure(t *testing.T) {
	up := &fakeUploader{err: errors.New("bucket gone")}
	env := newTestEnv(t, withUploader(up))
	seedRunWithScores(t, env)

	_, err := env.svc.UploadRunItemsCSV(context.Background(), "p1", "d1", "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestAggregateScores(t *testing.T) {
	scores := []domain.Score{
		{Name: "accuracy", DataType: domain.ScoreDataTypeNumeric, Value: f64(0.2)},
		{Name: "accuracy", DataType: domain.ScoreDataTypeNumeric, Value: f64(0.4)},
		{Name: "accuracy", DataType: domain.ScoreDataTypeCategorical, StringValue: "ignored"},
		{Name: "passed", DataType: domain.ScoreDataTypeBoolean, Value: f64(1)},
		{Name: "passed", DataType: domain.ScoreDataTypeBoolean, Value: f64(0)},
		{Name: "passed", DataType: domain.ScoreDataTypeBoolean, Value: f64(1)},
		{Name: "tone", DataType: domain.ScoreDataTypeCategorical, StringValue: "neutral"},
		{Name: "empty", DataType: domain.ScoreDataTypeNumeric},
	}

	aggs := AggregateScores(scores)

	acc := aggs["accuracy"]
	assert.Equal(t, domain.ScoreAggregateNumeric, acc.Type)
	assert.Equal(t, []float64{0.2, 0.4}, acc.Values)
	require.NotNil(t, acc.Average)
	assert.InDelta(t, 0.3, *acc.Average, 1e-9)

	passed := aggs["passed"]
	assert.Equal(t, domain.ScoreAggregateCategorical, passed.Type)
	assert.Equal(t, []domain.ValueCount{{Value: "True", Count: 2}, {Value: "False", Count: 1}}, passed.ValueCounts)

	assert.Equal(t, []domain.ValueCount{{Value: "neutral", Count: 1}}, aggs["tone"].ValueCounts)
	assert.Nil(t, aggs["empty"].Average)
	assert.Nil(t, AggregateScores(nil))
}
