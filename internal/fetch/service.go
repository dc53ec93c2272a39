package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fetchmedia/internal/catalog"
	"fetchmedia/internal/config"
	"fetchmedia/internal/engine"
	"fetchmedia/internal/history"
	"fetchmedia/internal/logging"
	"fetchmedia/internal/report"
	"fetchmedia/internal/selection"
	"fetchmedia/internal/services"
)

// Journal receives one entry per finished download.
type Journal interface {
	Record(ctx context.Context, entry history.Entry) (int64, error)
}

// Service runs the info, qualities and download actions against a catalog.
type Service struct {
	cfg     *config.Config
	catalog catalog.Catalog
	runner  engine.Runner
	journal Journal
	logger  *slog.Logger

	newRunID func() string
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRunner overrides the engine runner.
func WithRunner(runner engine.Runner) Option {
	return func(s *Service) { s.runner = runner }
}

// WithJournal records every download in journal.
func WithJournal(journal Journal) Option {
	return func(s *Service) { s.journal = journal }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a Service.
func New(cfg *config.Config, cat catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		catalog:  cat,
		runner:   engine.ExecRunner{},
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = logging.NewComponentLogger(s.logger, "fetch")
	return s
}

// Info resolves identifier and returns its metadata record.
func (s *Service) Info(ctx context.Context, identifier string) (report.Info, error) {
	listing, err := s.resolve(ctx, identifier)
	if err != nil {
		return report.Info{}, err
	}
	return report.NewInfo(listing.Metadata), nil
}

// Qualities resolves identifier and lists the resolution tiers on offer.
func (s *Service) Qualities(ctx context.Context, identifier string) (report.Qualities, error) {
	opts, err := s.selectionOptions("")
	if err != nil {
		return report.Qualities{}, err
	}
	listing, err := s.resolve(ctx, identifier)
	if err != nil {
		return report.Qualities{}, err
	}
	return report.NewQualities(listing.Metadata, selection.Qualities(listing.Descriptors, opts)), nil
}

func (s *Service) resolve(ctx context.Context, identifier string) (*catalog.Listing, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, services.Wrap(services.ErrInvalidRequest, "resolve", "validate", "identifier is required", nil)
	}
	ctx = services.WithStage(services.WithIdentifier(ctx, identifier), "resolve")

	resolveCtx := ctx
	if timeout := s.cfg.ResolveTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	listing, err := s.catalog.Resolve(resolveCtx, identifier)
	if err != nil {
		return nil, classify(resolveCtx, services.ErrExtraction, "resolve", "catalog lookup", err)
	}
	if listing == nil {
		return nil, services.Wrap(services.ErrExtraction, "resolve", "catalog lookup", "catalog returned no listing", nil)
	}
	logging.WithContext(ctx, s.logger).Debug("identifier resolved",
		logging.String("title", listing.Metadata.Title),
		logging.Int("descriptors", len(listing.Descriptors)),
	)
	return listing, nil
}

func (s *Service) selectionOptions(policyOverride string) (selection.Options, error) {
	policyName := strings.TrimSpace(policyOverride)
	if policyName == "" {
		policyName = s.cfg.Selection.Policy
	}
	policy, err := selection.ParsePolicy(policyName)
	if err != nil {
		return selection.Options{}, services.Wrap(services.ErrInvalidRequest, "selection", "policy", "", err)
	}
	return selection.Options{
		Policy:                   policy,
		PreferredContainers:      s.cfg.Selection.PreferredContainers,
		PreferProgressiveOnExact: s.cfg.Selection.PreferProgressiveOnExact,
	}, nil
}

func (s *Service) engineSettings() engine.Settings {
	return engine.Settings{
		Binary:      s.cfg.Engine.FFmpegBinary,
		Timeout:     s.cfg.EngineTimeout(),
		AudioCodec:  s.cfg.Engine.AudioCodec,
		VideoCodec:  s.cfg.Engine.VideoCodec,
		VideoPreset: s.cfg.Engine.VideoPreset,
		MP3Quality:  s.cfg.Engine.MP3Quality,
		FastStart:   s.cfg.Engine.FastStart,
	}
}

// classify keeps an error that already carries a marker and tags anything
// else with fallback, or with Timeout/Canceled when ctx ended.
func classify(ctx context.Context, fallback error, stage, operation string, err error) error {
	if services.Kind(err) != services.KindInternal {
		return err
	}
	return services.WrapContext(ctx, fallback, stage, operation, "", err)
}

func errorf(marker error, stage, operation, format string, args ...any) error {
	return services.Wrap(marker, stage, operation, fmt.Sprintf(format, args...), nil)
}
