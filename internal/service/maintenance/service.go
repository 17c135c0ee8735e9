package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/port"
	"github.com/oocloud/oocloud/internal/service/reconciler"
)

// Config contains maintenance service configuration
type Config struct {
	// SweepInterval is how often every user's tree is reconciled, which
	// also purges trash entries past retention
	SweepInterval time.Duration

	// OTPCleanupInterval is how often spent and expired codes are removed
	OTPCleanupInterval time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		SweepInterval:      time.Hour,
		OTPCleanupInterval: 15 * time.Minute,
	}
}

// Service runs the periodic background work: reconciliation sweeps over all
// users so trash retention is enforced even for accounts that never log in,
// and OTP table cleanup.
type Service struct {
	config *Config
	users  port.UserRepository
	rec    *reconciler.Reconciler
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service
func New(cfg *Config, users port.UserRepository, rec *reconciler.Reconciler, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.OTPCleanupInterval == 0 {
		cfg.OTPCleanupInterval = 15 * time.Minute
	}

	return &Service{
		config: cfg,
		users:  users,
		rec:    rec,
		logger: logger,
	}
}

// Start starts the maintenance service and blocks until ctx is canceled
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("sweep_interval", s.config.SweepInterval),
		zap.Duration("otp_cleanup_interval", s.config.OTPCleanupInterval))

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

// maintenanceLoop handles periodic maintenance tasks
func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	sweepTicker := time.NewTicker(s.config.SweepInterval)
	defer sweepTicker.Stop()

	otpTicker := time.NewTicker(s.config.OTPCleanupInterval)
	defer otpTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			s.sweepUsers()
		case <-otpTicker.C:
			s.cleanupOTPs()
		}
	}
}

// sweepUsers reconciles every user's tree. A failing user is logged and
// skipped so one broken tree cannot starve the rest.
func (s *Service) sweepUsers() {
	users, err := s.users.ListUsers()
	if err != nil {
		s.logger.Error("failed to list users for sweep", zap.Error(err))
		return
	}

	for _, u := range users {
		if err := s.rec.SyncUser(u); err != nil {
			s.logger.Error("sweep failed for user",
				zap.String("user", u.ID),
				zap.Error(err))
		}
	}
}

// cleanupOTPs removes spent and expired one-time codes
func (s *Service) cleanupOTPs() {
	deleted, err := s.users.DeleteExpiredOTPs(time.Now())
	if err != nil {
		s.logger.Error("failed to cleanup otps", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("cleaned up expired otps", zap.Int("count", deleted))
	}
}
