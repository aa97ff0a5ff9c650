package license

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"rcslicense/internal/codec"
	"rcslicense/internal/document"
	"rcslicense/internal/expiry"
	"rcslicense/internal/migration"
	"rcslicense/internal/security"
)

// Codec converts between license file bytes and the in-memory mapping.
type Codec interface {
	Decode(data []byte) (*document.Map, error)
	Encode(m *document.Map) ([]byte, error)
}

// Overrides are the operator-supplied changes applied before a license is
// re-issued. Zero values leave the document untouched.
type Overrides struct {
	Version      string
	HiddenExpiry *time.Time
}

// ParseOverrides builds Overrides from command-line style values: a version
// token and a YYYY-MM-DD hidden expiry date. Empty strings mean no override.
func ParseOverrides(version, hidden string) (Overrides, error) {
	o := Overrides{Version: version}
	if hidden != "" {
		at, err := expiry.ParseHiddenDate(hidden)
		if err != nil {
			return Overrides{}, err
		}
		if _, err := expiry.PackHidden(at); err != nil {
			return Overrides{}, err
		}
		o.HiddenExpiry = &at
	}
	return o, nil
}

// Service issues, loads and re-signs license documents. A Service holds no
// document state and may be shared; each document it returns belongs to the
// caller and must not be used concurrently.
type Service struct {
	keys           security.Keys
	currentVersion string
	codec          Codec
	clock          func() time.Time
	random         io.Reader
	logger         *slog.Logger
	meter          metric.Meter
	tracer         trace.Tracer

	integrity  *security.Engine
	migrations *migration.Engine
	metrics    *LicenseMetrics
}

// Option configures a Service.
type Option func(*Service)

// WithKeys replaces the embedded keys of the integrity scheme.
func WithKeys(keys security.Keys) Option {
	return func(s *Service) { s.keys = keys }
}

// WithCurrentVersion sets the version written into generated licenses.
func WithCurrentVersion(version string) Option {
	return func(s *Service) { s.currentVersion = version }
}

// WithCodec replaces the YAML codec.
func WithCodec(c Codec) Option {
	return func(s *Service) { s.codec = c }
}

// WithClock replaces time.Now for expiry evaluation.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithRandom replaces crypto/rand for watermarks and decoy digests.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMeter sets the meter used for license metrics.
func WithMeter(meter metric.Meter) Option {
	return func(s *Service) { s.meter = meter }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// NewService creates a license service. Without options it signs with the
// default keys, issues CurrentVersion licenses and reads the system clock.
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		keys:           security.DefaultKeys(),
		currentVersion: document.CurrentVersion,
		codec:          codec.YAML{},
		clock:          time.Now,
		random:         rand.Reader,
		logger:         slog.Default(),
		meter:          noopmetric.NewMeterProvider().Meter(MeterName),
		tracer:         nooptrace.NewTracerProvider().Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := document.ParseVersion(s.currentVersion); err != nil {
		return nil, fmt.Errorf("invalid current version: %w", err)
	}

	metrics, err := InitializeLicenseMetrics(s.meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize license metrics: %w", err)
	}
	s.metrics = metrics

	s.logger = s.logger.With(slog.String("component", "license_service"))
	s.integrity = security.NewEngine(s.keys, security.WithRandom(s.random))
	s.migrations = migration.NewEngine(s.logger, nil)

	return s, nil
}

// GenerateDefault returns a fresh watermarked license with default limits
// and the current version.
func (s *Service) GenerateDefault(ctx context.Context) (doc *document.Document, err error) {
	ctx, span := s.startSpan(ctx, "generate")
	start := time.Now()
	defer func() { s.finishSpan(ctx, span, "generate", start, err) }()

	watermark, err := security.NewWatermark(s.random)
	if err != nil {
		return nil, err
	}

	doc = document.New(s.currentVersion, watermark)
	s.logAction(ctx, slog.LevelInfo, "generate", "success",
		slog.String("version", s.currentVersion),
	)
	return doc, nil
}

// Load decodes a license file, watermarks it if needed, reports its expiry
// and integrity mismatches, and migrates the document to the current shape.
// Expiry is only reported here: an expired license may still be repaired by
// overrides, and Validate and Finalize reject it otherwise. Inconsistent
// agent limits are fatal.
func (s *Service) Load(ctx context.Context, data []byte) (doc *document.Document, report *Report, err error) {
	ctx, span := s.startSpan(ctx, "load", attribute.Int("license.size_bytes", len(data)))
	start := time.Now()
	defer func() { s.finishSpan(ctx, span, "load", start, err) }()

	s.metrics.DocumentSize.Record(ctx, int64(len(data)), metric.WithAttributes(attribute.String("direction", "in")))

	m, err := s.codec.Decode(data)
	if err != nil {
		s.logAction(ctx, slog.LevelError, "load", "malformed", slog.String("error", err.Error()))
		return nil, nil, err
	}
	doc = document.FromMap(m)

	version, err := doc.Version()
	if err != nil {
		return nil, nil, err
	}
	report = newReport(doc, version)

	if err := s.ensureWatermark(ctx, doc); err != nil {
		return nil, nil, err
	}

	status, err := expiry.Evaluate(doc, s.clock())
	if err != nil {
		return nil, nil, err
	}
	report.Expiry = status
	if expired := status.Err(); expired != nil {
		s.logAction(ctx, slog.LevelWarn, "check_expiry", status.Kind.String(),
			slog.Time("at", status.At),
			slog.String("error", expired.Error()),
		)
	}

	if err := doc.ValidateAgents(); err != nil {
		s.logAction(ctx, slog.LevelError, "validate", "agent_limits", slog.String("error", err.Error()))
		return nil, nil, err
	}

	verification, err := s.integrity.Verify(doc)
	if err != nil {
		return nil, nil, err
	}
	report.Verification = verification
	if !verification.SignatureValid {
		report.addAdvisory(AdvisorySignatureMismatch, "Signature is NOT valid.")
		s.logAction(ctx, slog.LevelWarn, "verify_signature", "mismatch")
	}
	if !verification.IntegrityValid {
		report.addAdvisory(AdvisoryIntegrityMismatch, "Integrity is NOT valid.")
		s.logAction(ctx, slog.LevelWarn, "verify_integrity", "mismatch")
	}
	if !verification.NumericVersionOrder {
		report.addAdvisory(AdvisoryVersionOrder, versionOrderMessage(version))
	}

	result, err := s.migrations.Migrate(doc)
	if err != nil {
		return nil, nil, err
	}
	report.Migrations = append(report.Migrations, result.Applied...)
	if !result.NumericVersionOrder {
		report.addAdvisory(AdvisoryVersionOrder, versionOrderMessage(version))
	}

	s.recordReportMetrics(ctx, report)
	s.logAction(ctx, slog.LevelInfo, "load", "success",
		slog.String("version", version),
		slog.String("expiry", status.Kind.String()),
		slog.Int("advisories", len(report.Advisories)),
		slog.Any("migrations", report.Migrations),
	)
	return doc, report, nil
}

// ApplyOverrides sets the version and packs the hidden expiry into
// digest_seed when requested.
func (s *Service) ApplyOverrides(ctx context.Context, doc *document.Document, o Overrides) (err error) {
	ctx, span := s.startSpan(ctx, "override")
	start := time.Now()
	defer func() { s.finishSpan(ctx, span, "override", start, err) }()

	// Validate everything before touching the document.
	var seed document.Binary
	if o.HiddenExpiry != nil {
		seed, err = expiry.PackHidden(*o.HiddenExpiry)
		if err != nil {
			return err
		}
	}

	if o.Version != "" {
		if _, perr := document.ParseVersion(o.Version); perr != nil {
			s.logAction(ctx, slog.LevelWarn, "override_version", "non_numeric",
				slog.String("version", o.Version),
			)
		}
		doc.SetVersion(o.Version)
		s.logAction(ctx, slog.LevelInfo, "override_version", "success", slog.String("version", o.Version))
	}

	if seed != nil {
		doc.Set(document.FieldDigestSeed, seed)
		s.logAction(ctx, slog.LevelInfo, "override_hidden_expiry", "success",
			slog.Time("hidden_expiry", o.HiddenExpiry.UTC()),
		)
	}
	return nil
}

// Validate enforces the fatal checks of a license: it must not be expired
// and agents.total must cover agents.desktop and agents.mobile.
func (s *Service) Validate(ctx context.Context, doc *document.Document) (status expiry.Status, err error) {
	ctx, span := s.startSpan(ctx, "validate")
	start := time.Now()
	defer func() { s.finishSpan(ctx, span, "validate", start, err) }()

	return s.validate(ctx, doc)
}

func (s *Service) validate(ctx context.Context, doc *document.Document) (expiry.Status, error) {
	if _, err := doc.Version(); err != nil {
		return expiry.Status{}, err
	}
	status, err := s.checkExpiry(ctx, doc)
	if err != nil {
		return expiry.Status{}, err
	}
	if err := doc.ValidateAgents(); err != nil {
		s.logAction(ctx, slog.LevelError, "validate", "agent_limits", slog.String("error", err.Error()))
		return expiry.Status{}, err
	}
	return status, nil
}

// Finalize watermarks the document if needed, validates and migrates it,
// recomputes its verification fields and serializes it. The document is
// modified in place.
func (s *Service) Finalize(ctx context.Context, doc *document.Document) (data []byte, err error) {
	ctx, span := s.startSpan(ctx, "finalize")
	start := time.Now()
	defer func() { s.finishSpan(ctx, span, "finalize", start, err) }()

	if err := s.ensureWatermark(ctx, doc); err != nil {
		return nil, err
	}

	if _, err := s.validate(ctx, doc); err != nil {
		return nil, err
	}

	result, err := s.migrations.Migrate(doc)
	if err != nil {
		return nil, err
	}
	s.recordMigrationMetrics(ctx, result.Applied)

	seal, err := s.integrity.Compute(doc)
	if err != nil {
		return nil, err
	}

	data, err = s.codec.Encode(doc.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to encode license: %w", err)
	}

	s.metrics.DocumentSize.Record(ctx, int64(len(data)), metric.WithAttributes(attribute.String("direction", "out")))
	s.logAction(ctx, slog.LevelInfo, "finalize", "success",
		slog.String("integrity", seal.Integrity),
		slog.Int("bytes", len(data)),
		slog.Any("migrations", result.Applied),
	)
	return data, nil
}

// Dump renders the full field set for operators.
func (s *Service) Dump(doc *document.Document) string {
	return document.Pretty(doc.Map(), document.DumpWidth)
}

// ensureWatermark sets the check field once; an existing watermark is kept.
func (s *Service) ensureWatermark(ctx context.Context, doc *document.Document) error {
	if _, ok := doc.Check(); ok {
		return nil
	}
	watermark, err := security.NewWatermark(s.random)
	if err != nil {
		return err
	}
	doc.Set(document.FieldCheck, watermark)
	s.logAction(ctx, slog.LevelInfo, "watermark", "assigned")
	return nil
}

func (s *Service) checkExpiry(ctx context.Context, doc *document.Document) (expiry.Status, error) {
	status, err := expiry.Evaluate(doc, s.clock())
	if err != nil {
		return expiry.Status{}, err
	}
	if err := status.Err(); err != nil {
		s.metrics.Expirations.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", status.Kind.String())))
		s.logAction(ctx, slog.LevelError, "validate", status.Kind.String(),
			slog.Time("at", status.At),
		)
		return expiry.Status{}, err
	}
	return status, nil
}

func versionOrderMessage(version string) string {
	return fmt.Sprintf("version %q is not dotted-numeric; thresholds were compared as text", version)
}
