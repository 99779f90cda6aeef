package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/repositories"
)

// CronService runs scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	circ      *CirculationService
	tokenRepo repositories.RefreshTokenRepository
	sweepSpec string
}

// NewCronService creates a new cron service. sweepSpec is the cron
// expression for the overdue sweep.
func NewCronService(db *gorm.DB, loanDays int, sweepSpec string) *CronService {
	if sweepSpec == "" {
		sweepSpec = "30 8 * * *"
	}
	circ := NewCirculationService(
		db,
		repositories.NewCirculationRepository(db),
		repositories.NewBookRepository(db),
		repositories.NewUserRepository(db),
		loanDays,
	)
	return &CronService{
		cron:      cron.New(),
		circ:      circ,
		tokenRepo: repositories.NewRefreshTokenRepository(db),
		sweepSpec: sweepSpec,
	}
}

// Start registers and starts the scheduled jobs
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.sweepSpec, s.runOverdueSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.purgeExpiredTokens); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("✅ Cron service started (overdue sweep: %s)", s.sweepSpec)
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Cron service stopped")
}

func (s *CronService) runOverdueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	flipped, err := s.circ.SweepOverdue(ctx)
	if err != nil {
		log.Printf("❌ Overdue sweep failed: %v", err)
		return
	}
	if len(flipped) > 0 {
		log.Printf("⚠️ Overdue sweep marked %d record(s) overdue", len(flipped))
	}
}

func (s *CronService) purgeExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		log.Printf("❌ Refresh token purge failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("🗑️ Purged %d expired refresh token(s)", deleted)
	}
}
