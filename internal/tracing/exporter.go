package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// errExporterClosed is returned by ExportSpans after Shutdown.
var errExporterClosed = errors.New("trace file is closed")

// FileExporter appends one Record per finished span to a JSONL file. A slow
// document can then be inspected with jq, e.g.
//
//	jq 'select(.stage == "highlight" and .highlight.cached == false)'
type FileExporter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

var _ sdktrace.SpanExporter = (*FileExporter)(nil)

// NewFileExporter opens path for appending, creating parent directories.
func NewFileExporter(path string) (*FileExporter, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	return &FileExporter{file: f, enc: json.NewEncoder(f)}, nil
}

// ExportSpans writes spans in the order the batcher hands them over.
func (e *FileExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return errExporterClosed
	}
	for _, s := range spans {
		if err := e.enc.Encode(NewRecord(s)); err != nil {
			return fmt.Errorf("writing span %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Shutdown closes the file. It is safe to call more than once.
func (e *FileExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file, e.enc = nil, nil
	return err
}

// Record is the file form of one span. Known attributes are grouped by the
// stage that sets them; anything else lands in Other.
type Record struct {
	Trace  string    `json:"trace"`
	Span   string    `json:"span"`
	Parent string    `json:"parent,omitempty"`
	Stage  string    `json:"stage,omitempty"`
	Op     string    `json:"op"`
	Start  time.Time `json:"start"`
	Millis float64   `json:"ms"`
	Error  string    `json:"error,omitempty"`

	Document  *DocumentInfo  `json:"document,omitempty"`
	Style     *StyleInfo     `json:"style,omitempty"`
	Highlight *HighlightInfo `json:"highlight,omitempty"`
	Render    *RenderInfo    `json:"render,omitempty"`

	Events []string       `json:"events,omitempty"`
	Other  map[string]any `json:"other,omitempty"`
}

// DocumentInfo describes the text a span worked on.
type DocumentInfo struct {
	Path  string `json:"path,omitempty"`
	Runes int64  `json:"runes"`
}

// StyleInfo is the outcome of a style walk.
type StyleInfo struct {
	Visited int64 `json:"visited"`
	Skipped int64 `json:"skipped"`
	Pending int64 `json:"pending"`
}

// HighlightInfo is one highlight request.
type HighlightInfo struct {
	Request  string `json:"request,omitempty"`
	Language string `json:"language,omitempty"`
	Lexer    string `json:"lexer,omitempty"`
	Runes    int64  `json:"runes"`
	Spans    int64  `json:"spans"`
	Cached   bool   `json:"cached"`
}

// RenderInfo is one render of a buffer.
type RenderInfo struct {
	Width int64 `json:"width"`
	Lines int64 `json:"lines"`
}

// NewRecord converts a finished span. Span names are split at the first dot
// into stage and operation, so "highlight.block" has stage "highlight".
func NewRecord(s sdktrace.ReadOnlySpan) Record {
	stage, op, ok := strings.Cut(s.Name(), ".")
	if !ok {
		stage, op = "", s.Name()
	}
	rec := Record{
		Trace:  s.SpanContext().TraceID().String(),
		Span:   s.SpanContext().SpanID().String(),
		Stage:  stage,
		Op:     op,
		Start:  s.StartTime(),
		Millis: float64(s.EndTime().Sub(s.StartTime()).Microseconds()) / 1000,
	}
	if s.Parent().IsValid() {
		rec.Parent = s.Parent().SpanID().String()
	}
	if st := s.Status(); st.Code == codes.Error {
		rec.Error = st.Description
		if rec.Error == "" {
			rec.Error = "unknown error"
		}
	}
	for _, kv := range s.Attributes() {
		rec.set(kv)
	}
	for _, ev := range s.Events() {
		// RecordError adds an exception event; Error already carries it.
		if ev.Name == "exception" {
			continue
		}
		rec.Events = append(rec.Events, ev.Name)
	}
	return rec
}

func (r *Record) set(kv attribute.KeyValue) {
	v := kv.Value
	switch string(kv.Key) {
	case AttrDocumentPath:
		r.document().Path = v.AsString()
	case AttrDocumentRunes:
		r.document().Runes = v.AsInt64()
	case AttrNodesVisited:
		r.style().Visited = v.AsInt64()
	case AttrNodesSkipped:
		r.style().Skipped = v.AsInt64()
	case AttrBlocksPending:
		r.style().Pending = v.AsInt64()
	case AttrRequestID:
		r.highlight().Request = v.AsString()
	case AttrLanguage:
		r.highlight().Language = v.AsString()
	case AttrLexer:
		r.highlight().Lexer = v.AsString()
	case AttrBlockRunes:
		r.highlight().Runes = v.AsInt64()
	case AttrSpanCount:
		r.highlight().Spans = v.AsInt64()
	case AttrCacheHit:
		r.highlight().Cached = v.AsBool()
	case AttrRenderWidth:
		r.render().Width = v.AsInt64()
	case AttrRenderLines:
		r.render().Lines = v.AsInt64()
	default:
		if r.Other == nil {
			r.Other = make(map[string]any)
		}
		r.Other[string(kv.Key)] = v.AsInterface()
	}
}

func (r *Record) document() *DocumentInfo {
	if r.Document == nil {
		r.Document = &DocumentInfo{}
	}
	return r.Document
}

func (r *Record) style() *StyleInfo {
	if r.Style == nil {
		r.Style = &StyleInfo{}
	}
	return r.Style
}

func (r *Record) highlight() *HighlightInfo {
	if r.Highlight == nil {
		r.Highlight = &HighlightInfo{}
	}
	return r.Highlight
}

func (r *Record) render() *RenderInfo {
	if r.Render == nil {
		r.Render = &RenderInfo{}
	}
	return r.Render
}
