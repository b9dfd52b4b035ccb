package fingov

import (
	"github.com/viant/afs/storage"
	"github.com/viant/fingov/policy"
	"github.com/viant/fingov/service/audit"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/lock"
	"github.com/viant/fingov/service/meta"
	"github.com/viant/fingov/service/notify"
	"github.com/viant/fingov/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLogger sets the logger shared by all services.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRepository sets the repository, overriding store configuration.
func WithRepository(repo dao.Repository) Option {
	return func(s *Service) {
		s.repo = repo
	}
}

// WithLocker sets the entity locker, overriding lock configuration.
func WithLocker(locker lock.Locker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithSender sets the notification sender
func WithSender(sender notify.Sender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}

// WithSink sets the audit sink, overriding audit.url.
func WithSink(sink audit.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithCatalog sets the policy catalog, overriding policy.url.
func WithCatalog(catalog *policy.Catalog) Option {
	return func(s *Service) {
		s.catalog = catalog
	}
}

// WithMetaService sets the meta service
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) {
		s.metaService = service
	}
}

// WithMetaFsOptions with meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times, the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for example
// OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
