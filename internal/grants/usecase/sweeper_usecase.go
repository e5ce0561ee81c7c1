package usecase

import (
	"context"
	"log/slog"
	"time"

	grantsDomain "github.com/medvault/grants/internal/grants/domain"
	"github.com/medvault/grants/internal/metrics"
	"github.com/medvault/grants/internal/notifier"
)

// SweeperConfig holds expiry sweeper configuration
type SweeperConfig struct {
	SweepInterval   time.Duration
	WarningInterval time.Duration
	WarningWindow   time.Duration
}

// sweeperUseCase implements the SweeperUseCase interface. It periodically
// retires grants whose expiry has passed and warns grantees whose access is
// about to lapse.
type sweeperUseCase struct {
	config        SweeperConfig
	grantRepo     GrantRepository
	catalog       RecordCatalog
	eventNotifier notifier.Notifier
	logger        *slog.Logger
	metrics       metrics.BusinessMetrics
	now           func() time.Time
}

// NewSweeperUseCase creates a new SweeperUseCase
func NewSweeperUseCase(
	config SweeperConfig,
	grantRepo GrantRepository,
	catalog RecordCatalog,
	eventNotifier notifier.Notifier,
	logger *slog.Logger,
	businessMetrics metrics.BusinessMetrics,
) SweeperUseCase {
	return &sweeperUseCase{
		config:        config,
		grantRepo:     grantRepo,
		catalog:       catalog,
		eventNotifier: eventNotifier,
		logger:        logger,
		metrics:       businessMetrics,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the hard-expiry and warning loops until the context is
// cancelled. A failed pass is logged and the loop keeps running.
func (s *sweeperUseCase) Start(ctx context.Context) error {
	s.logger.Info("starting expiry sweeper",
		slog.Duration("sweep_interval", s.config.SweepInterval),
		slog.Duration("warning_interval", s.config.WarningInterval),
		slog.Duration("warning_window", s.config.WarningWindow),
	)

	sweepTicker := time.NewTicker(s.config.SweepInterval)
	defer sweepTicker.Stop()
	warningTicker := time.NewTicker(s.config.WarningInterval)
	defer warningTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping expiry sweeper")
			return ctx.Err()
		case <-sweepTicker.C:
			if _, err := s.ExpirePass(ctx, s.now()); err != nil {
				s.logger.Error("expiry pass failed", slog.Any("error", err))
			}
		case <-warningTicker.C:
			if _, err := s.WarningPass(ctx, s.now()); err != nil {
				s.logger.Error("warning pass failed", slog.Any("error", err))
			}
		}
	}
}

// ExpirePass retires every grant whose expiry has passed in one conditional
// bulk update and returns how many rows it closed.
func (s *sweeperUseCase) ExpirePass(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.grantRepo.ExpireAllDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired grants", slog.Int64("count", count))
	}
	s.metrics.RecordSweep(ctx, "expire", count)
	return count, nil
}

// WarningPass notifies grantees whose grants expire within the warning
// window. Warnings carry no delivery state, so a grant still inside the
// window on the next pass is warned again.
func (s *sweeperUseCase) WarningPass(ctx context.Context, now time.Time) (int64, error) {
	grants, err := s.grantRepo.ListExpiringBetween(ctx, now, now.Add(s.config.WarningWindow))
	if err != nil {
		return 0, err
	}

	var count int64
	for _, grant := range grants {
		event := s.warningEvent(ctx, grant, now)
		if err := s.eventNotifier.Notify(ctx, event); err != nil {
			s.logger.Error("failed to deliver expiry warning",
				slog.String("grant_id", grant.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		count++
	}
	if count > 0 {
		s.logger.Info("sent expiry warnings", slog.Int64("count", count))
	}
	s.metrics.RecordSweep(ctx, "warning", count)
	return count, nil
}

func (s *sweeperUseCase) warningEvent(ctx context.Context, grant *grantsDomain.Grant, now time.Time) notifier.Event {
	var title string
	if record, err := s.catalog.Get(ctx, grant.ResourceID); err == nil {
		title = record.Title
	}
	event := buildGrantEvent(notifier.EventExpiryWarning, grant, title, now)
	event.HoursRemaining = grant.HoursRemaining(now)
	return event
}
