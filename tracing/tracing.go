package tracing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/viant/fingov/model/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/viant/fingov"

// Attribute keys recorded on governance spans.
const (
	KeyLock    = "fingov.lock"
	KeyOutcome = "fingov.outcome"
	KeyRoute   = "http.route"
	KeyMethod  = "http.method"
	KeyStatus  = "http.status_code"
)

// Outcome values derived from the error a span ends with.
const (
	OutcomeOK            = "ok"
	OutcomeValidation    = "validation"
	OutcomePrecondition  = "precondition"
	OutcomeConflict      = "conflict"
	OutcomeConfiguration = "configuration"
	OutcomeRetryable     = "retryable"
	OutcomeError         = "error"
)

// Kind selects the span kind.
type Kind int

const (
	Internal Kind = iota
	Server
)

func (k Kind) otel() trace.SpanKind {
	if k == Server {
		return trace.SpanKindServer
	}
	return trace.SpanKindInternal
}

var (
	providerOnce sync.Once
	providerErr  error
)

// Init installs a stdout exporter writing to outputFile, or os.Stdout when empty.
// Only the first successful call installs a provider.
func Init(serviceName, serviceVersion, outputFile string) error {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		w = f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return InitWithExporter(serviceName, serviceVersion, exporter)
}

// InitWithExporter installs a provider exporting each span as it ends.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	providerOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", serviceVersion),
			),
		)
		if err != nil {
			providerErr = err
			return
		}
		otel.SetTracerProvider(sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		))
	})
	return providerErr
}

// Span is a governance operation in flight.
type Span struct {
	span trace.Span
}

// Start opens a span named op. Without an installed provider the span is a no-op.
func Start(ctx context.Context, op string, kind Kind, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, op,
		trace.WithSpanKind(kind.otel()),
		trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// Set adds string attributes.
func (s *Span) Set(key, value string) *Span {
	if s != nil {
		s.span.SetAttributes(attribute.String(key, value))
	}
	return s
}

// End records the outcome of err and closes the span. Business rejections
// (validation, precondition, conflict) are recorded as outcomes, not span errors.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	outcome := Outcome(err)
	s.span.SetAttributes(attribute.String(KeyOutcome, outcome))
	switch outcome {
	case OutcomeOK, OutcomeValidation, OutcomePrecondition, OutcomeConflict:
		s.span.SetStatus(codes.Ok, "")
	default:
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// EndHTTP closes a server span with the response status code.
func (s *Span) EndHTTP(code int) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.Int(KeyStatus, code))
	if code >= 500 {
		s.span.SetStatus(codes.Error, "server error")
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// Outcome classifies err for span attributes.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var validation *types.ValidationError
	var configuration *types.ConfigurationError
	switch {
	case errors.As(err, &validation):
		return OutcomeValidation
	case types.IsConflict(err):
		return OutcomeConflict
	case types.IsRetryable(err):
		return OutcomeRetryable
	case errors.As(err, &configuration):
		return OutcomeConfiguration
	}
	if _, ok := types.AsPrecondition(err); ok {
		return OutcomePrecondition
	}
	return OutcomeError
}
