package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func readRecords(t *testing.T, path string) []Record {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())
	return records
}

func export(t *testing.T, path string, stubs ...tracetest.SpanStub) {
	t.Helper()
	exporter, err := NewFileExporter(path)
	require.NoError(t, err)
	spans := make([]sdktrace.ReadOnlySpan, 0, len(stubs))
	for _, s := range stubs {
		spans = append(spans, s.Snapshot())
	}
	require.NoError(t, exporter.ExportSpans(context.Background(), spans))
	require.NoError(t, exporter.Shutdown(context.Background()))
}

func TestNewFileExporter_CreatesParentDirectories(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "nested", "dir", "traces.jsonl")

	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	_, err = os.Stat(tracePath)
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))
}

func TestFileExporter_HighlightRecord(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	export(t, tracePath, tracetest.SpanStub{
		Name:      SpanPrefixHighlight + "block",
		StartTime: start,
		EndTime:   start.Add(250 * time.Millisecond),
		Status:    sdktrace.Status{Code: codes.Error, Description: "no lexer"},
		Attributes: []attribute.KeyValue{
			attribute.String(AttrRequestID, "req-1"),
			attribute.String(AttrLanguage, "go"),
			attribute.String(AttrLexer, "Go"),
			attribute.Int(AttrBlockRunes, 42),
			attribute.Int(AttrSpanCount, 7),
			attribute.Bool(AttrCacheHit, false),
		},
		Events: []sdktrace.Event{
			{Name: EventCacheMiss, Time: start},
			{Name: "exception", Time: start},
		},
	})

	records := readRecords(t, tracePath)
	require.Len(t, records, 1)
	rec := records[0]

	require.Equal(t, "highlight", rec.Stage)
	require.Equal(t, "block", rec.Op)
	require.True(t, start.Equal(rec.Start))
	require.InDelta(t, 250.0, rec.Millis, 0.001)
	require.Equal(t, "no lexer", rec.Error)
	require.Equal(t, &HighlightInfo{
		Request:  "req-1",
		Language: "go",
		Lexer:    "Go",
		Runes:    42,
		Spans:    7,
	}, rec.Highlight)
	require.Equal(t, []string{EventCacheMiss}, rec.Events, "exception events fold into error")
	require.Nil(t, rec.Document)
	require.Nil(t, rec.Style)
	require.Empty(t, rec.Parent)
}

func TestFileExporter_StyleRecord(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	now := time.Now()

	export(t, tracePath, tracetest.SpanStub{
		Name:      SpanPrefixStyle + "load",
		StartTime: now,
		EndTime:   now,
		Status:    sdktrace.Status{Code: codes.Ok},
		Attributes: []attribute.KeyValue{
			attribute.String(AttrDocumentPath, "README.md"),
			attribute.Int(AttrDocumentRunes, 120),
			attribute.Int(AttrNodesVisited, 9),
			attribute.Int(AttrNodesSkipped, 1),
			attribute.Int(AttrBlocksPending, 2),
			attribute.String("custom.key", "kept"),
		},
	})

	rec := readRecords(t, tracePath)[0]
	require.Equal(t, "style", rec.Stage)
	require.Equal(t, "load", rec.Op)
	require.Empty(t, rec.Error)
	require.Equal(t, &DocumentInfo{Path: "README.md", Runes: 120}, rec.Document)
	require.Equal(t, &StyleInfo{Visited: 9, Skipped: 1, Pending: 2}, rec.Style)
	require.Nil(t, rec.Highlight)
	require.Equal(t, map[string]any{"custom.key": "kept"}, rec.Other)
}

func TestNewRecord_NameWithoutStage(t *testing.T) {
	rec := NewRecord(tracetest.SpanStub{
		Name:   "adhoc",
		Status: sdktrace.Status{Code: codes.Error},
	}.Snapshot())
	require.Empty(t, rec.Stage)
	require.Equal(t, "adhoc", rec.Op)
	require.Equal(t, "unknown error", rec.Error)
}

func TestNewRecord_Parent(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	rec := NewRecord(tracetest.SpanStub{Name: "render.buffer", Parent: parent}.Snapshot())
	require.Equal(t, parent.SpanID().String(), rec.Parent)
}

func TestFileExporter_Appends(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	require.NoError(t, os.WriteFile(tracePath, []byte(`{"op":"earlier"}`+"\n"), 0o600))

	export(t, tracePath, tracetest.SpanStub{Name: "render.buffer", StartTime: time.Now(), EndTime: time.Now()})

	records := readRecords(t, tracePath)
	require.Len(t, records, 2)
	require.Equal(t, "earlier", records[0].Op)
	require.Equal(t, "buffer", records[1].Op)
}

func TestFileExporter_ExportAfterShutdown(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"))
	require.NoError(t, err)

	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()), "second shutdown is a no-op")

	stub := tracetest.SpanStub{Name: "late"}
	err = exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()})
	require.True(t, errors.Is(err, errExporterClosed))
}
