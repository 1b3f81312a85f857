package csvexport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

func f64(v float64) *float64 { return &v }

const baseHeader = "Dataset Item ID,Trace ID,Observation ID,Created At,Latency (s),Total Cost,Input,Expected Output,Trace Output,Metadata"

func TestToCSVEmpty(t *testing.T) {
	assert.Equal(t, "", ToCSV(nil))
	assert.Equal(t, "", ToCSV([]domain.RunItem{}))
}

func TestToCSVWithoutScoresHasOnlyBaseColumns(t *testing.T) {
	out := ToCSV([]domain.RunItem{{DatasetItemID: "item-1", TraceID: "trace-1"}})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, baseHeader, lines[0])
	assert.Equal(t, `item-1,trace-1,,,,,"","","",""`, lines[1])
}

func TestToCSVSparseScores(t *testing.T) {
	items := []domain.RunItem{
		{
			DatasetItemID: "a",
			TraceID:       "t-a",
			Scores: map[string]domain.ScoreAggregate{
				"accuracy": {Type: domain.ScoreAggregateNumeric, Average: f64(0.9)},
			},
		},
		{DatasetItemID: "b", TraceID: "t-b"},
	}

	lines := strings.Split(ToCSV(items), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, baseHeader+",Score: accuracy", lines[0])
	assert.Equal(t, 1, strings.Count(lines[0], "Score: accuracy"))

	rowA := strings.Split(lines[1], ",")
	rowB := strings.Split(lines[2], ",")
	assert.Equal(t, "0.9", rowA[len(rowA)-1])
	assert.Equal(t, "", rowB[len(rowB)-1])
	assert.Len(t, rowB, len(BaseColumns)+1)
}

func TestToCSVScoreColumnsSortedAndUnioned(t *testing.T) {
	items := []domain.RunItem{
		{Scores: map[string]domain.ScoreAggregate{"zeta": {Type: domain.ScoreAggregateNumeric, Average: f64(1)}}},
		{Scores: map[string]domain.ScoreAggregate{
			"alpha": {Type: domain.ScoreAggregateNumeric, Average: f64(2)},
			"zeta":  {Type: domain.ScoreAggregateNumeric, Average: f64(3)},
		}},
	}
	header := strings.Split(ToCSV(items), "\n")[0]
	assert.True(t, strings.HasSuffix(header, ",Score: alpha,Score: zeta"), header)
}

func TestToCSVCategoricalUsesMostFrequentLabel(t *testing.T) {
	items := []domain.RunItem{{
		Scores: map[string]domain.ScoreAggregate{
			"verdict": {Type: domain.ScoreAggregateCategorical, ValueCounts: []domain.ValueCount{
				{Value: "fail", Count: 1},
				{Value: "pass", Count: 3},
				{Value: "skip", Count: 3},
			}},
			"weird": {Type: "HISTOGRAM"},
		},
	}}
	lines := strings.Split(ToCSV(items), "\n")
	assert.True(t, strings.HasSuffix(lines[1], ",pass,"), lines[1])
}

func TestToCSVQuoting(t *testing.T) {
	items := []domain.RunItem{{
		DatasetItemID: "a,b",
		TraceID:       `say "hi"`,
		Input:         map[string]any{"q": "plain"},
		Metadata:      "a,b",
	}}
	row := strings.Split(ToCSV(items), "\n")[1]

	assert.True(t, strings.HasPrefix(row, `"a,b","say ""hi""",`), row)
	assert.Contains(t, row, `"{""q"":""plain""}"`)
	assert.True(t, strings.HasSuffix(row, `,"a,b"`), row)
}

func TestToCSVJSONNormalization(t *testing.T) {
	items := []domain.RunItem{{
		Input:          `{ "a" : [1, 2] }`,
		ExpectedOutput: "not json at all",
		TraceOutput:    []any{"x", 1.5},
		Metadata:       map[string]any{"html": "<b>&</b>"},
	}}
	row := strings.Split(ToCSV(items), "\n")[1]
	assert.Contains(t, row, `"{""a"":[1,2]}"`)
	assert.Contains(t, row, `"not json at all"`)
	assert.Contains(t, row, `"[""x"",1.5]"`)
	assert.Contains(t, row, `"{""html"":""<b>&</b>""}"`)
}

func TestToCSVUnencodableFallsBackToText(t *testing.T) {
	items := []domain.RunItem{{Input: make(chan int)}}
	assert.NotPanics(t, func() { ToCSV(items) })
}

func TestToCSVFormatsTimestampsAndNumbers(t *testing.T) {
	created := time.Date(2024, 3, 5, 10, 30, 0, 123000000, time.FixedZone("CET", 3600))
	items := []domain.RunItem{{
		DatasetItemID: "i",
		TraceID:       "t",
		ObservationID: "o",
		CreatedAt:     created,
		Latency:       f64(1.25),
		TotalCost:     f64(0.0004),
	}}
	row := strings.Split(ToCSV(items), "\n")[1]
	assert.True(t, strings.HasPrefix(row, "i,t,o,2024-03-05T09:30:00.123Z,1.25,0.0004,"), row)
}

func TestToCSVNoTrailingNewline(t *testing.T) {
	out := ToCSV([]domain.RunItem{{DatasetItemID: "x"}, {DatasetItemID: "y"}})
	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.Len(t, strings.Split(out, "\n"), 3)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "qa_set-run_1_final.csv", FileName("qa set", "run #1/final"))
	assert.Equal(t, "export-export.csv", FileName("", "  "))
}
