// internal/service/scheduler.go
package service

import (
	"context"
	"sync"
	"time"

	"github.com/inboxpilot/warmup-backend/internal/config"
	"github.com/inboxpilot/warmup-backend/internal/logging"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/repository"
)

// Processor is the per-campaign tick the scheduler fans out to.
type Processor interface {
	ProcessCampaign(ctx context.Context, c *model.Campaign) error
}

// Scheduler periodically fans out due active campaigns to the processor.
// It holds no business state; campaigns run concurrently with each other but
// never concurrently with themselves.
type Scheduler struct {
	Campaigns repository.CampaignRepositoryInterface
	Processor Processor

	mu       sync.Mutex
	inFlight map[int]bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(campaigns repository.CampaignRepositoryInterface, processor Processor) *Scheduler {
	return &Scheduler{
		Campaigns: campaigns,
		Processor: processor,
		inFlight:  map[int]bool{},
	}
}

// Start launches the periodic loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	logging.Info().Dur("interval", config.SchedulerInterval()).Msg("scheduler started")
}

// Stop halts the loop and waits for it to exit. In-flight dispatches resolve
// on their own; only new ticks stop.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logging.Info().Msg("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(config.SchedulerInterval())
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick processes every due active campaign in its own goroutine. One
// campaign's failure never blocks the others; an overlapping tick skips
// campaigns still being processed.
func (s *Scheduler) Tick(ctx context.Context) {
	campaigns, err := s.Campaigns.ListDueActive(config.SchedulerDayEvery())
	if err != nil {
		logging.Error().Err(err).Msg("failed to list due campaigns")
		return
	}

	for _, c := range campaigns {
		if !s.tryAcquire(c.ID) {
			continue
		}
		go func(c *model.Campaign) {
			defer s.release(c.ID)
			if err := s.Processor.ProcessCampaign(ctx, c); err != nil {
				logging.Error().Int("campaign_id", c.ID).Err(err).Msg("campaign tick failed")
			}
		}(c)
	}
}

func (s *Scheduler) tryAcquire(campaignID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[campaignID] {
		return false
	}
	s.inFlight[campaignID] = true
	return true
}

func (s *Scheduler) release(campaignID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, campaignID)
}
