// Package csvexport renders dataset run items as a CSV document.
//
// Score columns are discovered from the data: one pass collects every score
// name, a second pass projects each row onto that frozen column set. Cells of
// the JSON columns are always quoted; other cells are quoted only when needed.
package csvexport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

// ScoreColumnPrefix prefixes every discovered score column.
const ScoreColumnPrefix = "Score: "

// BaseColumns are emitted for every export, in this order.
var BaseColumns = []string{
	"Dataset Item ID",
	"Trace ID",
	"Observation ID",
	"Created At",
	"Latency (s)",
	"Total Cost",
	"Input",
	"Expected Output",
	"Trace Output",
	"Metadata",
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ToCSV renders items. Empty input yields the empty string. It never fails:
// malformed values degrade to literal text or blank cells.
func ToCSV(items []domain.RunItem) string {
	if len(items) == 0 {
		return ""
	}

	names := ScoreNames(items)
	header := make([]string, 0, len(BaseColumns)+len(names))
	for _, c := range BaseColumns {
		header = append(header, escape(c))
	}
	for _, n := range names {
		header = append(header, escape(ScoreColumnPrefix+n))
	}

	lines := make([]string, 0, len(items)+1)
	lines = append(lines, strings.Join(header, ","))
	for _, item := range items {
		lines = append(lines, strings.Join(row(item, names), ","))
	}
	return strings.Join(lines, "\n")
}

// ScoreNames returns the sorted union of score names across items.
func ScoreNames(items []domain.RunItem) []string {
	set := make(map[string]struct{})
	for _, item := range items {
		for name := range item.Scores {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func row(item domain.RunItem, names []string) []string {
	cells := []string{
		escape(item.DatasetItemID),
		escape(item.TraceID),
		escape(item.ObservationID),
		escape(formatTime(item.CreatedAt)),
		escape(formatFloat(item.Latency)),
		escape(formatFloat(item.TotalCost)),
		quote(normalizeJSON(item.Input)),
		quote(normalizeJSON(item.ExpectedOutput)),
		quote(normalizeJSON(item.TraceOutput)),
		quote(normalizeJSON(item.Metadata)),
	}
	for _, name := range names {
		agg, ok := item.Scores[name]
		if !ok {
			cells = append(cells, "")
			continue
		}
		cells = append(cells, escape(ScoreValue(agg)))
	}
	return cells
}

// ScoreValue renders an aggregate: the average for numeric scores, the most
// frequent label for categorical ones, blank otherwise.
func ScoreValue(agg domain.ScoreAggregate) string {
	switch agg.Type {
	case domain.ScoreAggregateNumeric:
		return formatFloat(agg.Average)
	case domain.ScoreAggregateCategorical:
		best, bestCount := "", 0
		for _, vc := range agg.ValueCounts {
			if vc.Count > bestCount {
				best, bestCount = vc.Value, vc.Count
			}
		}
		return best
	}
	return ""
}

// normalizeJSON renders v as compact single-line JSON. Strings holding JSON
// are re-serialized; other strings are kept as they are.
func normalizeJSON(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return reencode(t)
	case []byte:
		return reencode(string(t))
	case json.RawMessage:
		return reencode(string(t))
	}
	if s, ok := encode(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

func reencode(s string) string {
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	if out, ok := encode(decoded); ok {
		return out
	}
	return s
}

func encode(v any) (string, bool) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", false
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), true
}

// quote always wraps s in double quotes, doubling inner quotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// escape quotes s only when it holds a delimiter, quote or line break.
func escape(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return quote(s)
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoMillis)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName builds the download name for a run's export.
func FileName(datasetName, runName string) string {
	clean := func(s string) string {
		s = unsafeFileChars.ReplaceAllString(strings.TrimSpace(s), "_")
		if s == "" {
			return "export"
		}
		return s
	}
	return clean(datasetName) + "-" + clean(runName) + ".csv"
}
