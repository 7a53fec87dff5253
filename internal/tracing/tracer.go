// Package tracing wires OpenTelemetry into markstyle. Spans cover the style
// walk, each highlight request and each render, so slow documents can be
// inspected after the fact.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "markstyle"

// DefaultOTLPEndpoint is a collector on the local machine.
const DefaultOTLPEndpoint = "localhost:4317"

// Exporter selects where finished spans go.
type Exporter string

const (
	ExporterNone   Exporter = "none"
	ExporterFile   Exporter = "file"
	ExporterStdout Exporter = "stdout"
	ExporterOTLP   Exporter = "otlp"
)

// ParseExporter accepts the config spelling of an exporter. The empty string
// is ExporterNone.
func ParseExporter(s string) (Exporter, error) {
	switch e := Exporter(strings.ToLower(s)); e {
	case "":
		return ExporterNone, nil
	case ExporterNone, ExporterFile, ExporterStdout, ExporterOTLP:
		return e, nil
	default:
		return "", fmt.Errorf("unknown trace exporter %q (want none, file, stdout or otlp)", s)
	}
}

// Config configures a Provider.
type Config struct {
	Enabled      bool
	Exporter     string
	FilePath     string
	OTLPEndpoint string
	// SampleRate keeps this fraction of documents. Values outside (0, 1)
	// keep every document.
	SampleRate float64
	// Console receives the stdout exporter's output. It defaults to
	// os.Stderr because stdout carries the rendered document.
	Console io.Writer
}

// Provider hands one tracer to the pipeline and flushes it on exit.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Disabled returns a provider whose spans are dropped.
func Disabled() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(serviceName)}
}

// NewProvider builds a provider from cfg. A disabled cfg yields Disabled().
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}
	kind, err := ParseExporter(cfg.Exporter)
	if err != nil {
		return nil, err
	}
	exp, err := newExporter(kind, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s exporter: %w", kind, err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	sdk := sdktrace.NewTracerProvider(opts...)
	return &Provider{sdk: sdk, tracer: sdk.Tracer(serviceName)}, nil
}

// sampler decides per document: child spans follow the load span.
func sampler(rate float64) sdktrace.Sampler {
	if rate <= 0 || rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func newExporter(kind Exporter, cfg Config) (sdktrace.SpanExporter, error) {
	switch kind {
	case ExporterFile:
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file_path is required")
		}
		return NewFileExporter(cfg.FilePath)
	case ExporterStdout:
		w := cfg.Console
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = DefaultOTLPEndpoint
		}
		return otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure())
	default:
		return nil, nil
	}
}

// Tracer is never nil.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Enabled reports whether spans are recorded.
func (p *Provider) Enabled() bool { return p.sdk != nil }

// Shutdown flushes batched spans and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
