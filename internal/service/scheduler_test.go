package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/service"
)

// fakeProcessor records invocations and can block or fail per campaign.
type fakeProcessor struct {
	mu      sync.Mutex
	calls   map[int]int
	failIDs map[int]bool
	block   chan struct{}
	started chan int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{calls: map[int]int{}, failIDs: map[int]bool{}}
}

func (p *fakeProcessor) ProcessCampaign(ctx context.Context, c *model.Campaign) error {
	p.mu.Lock()
	p.calls[c.ID]++
	p.mu.Unlock()

	if p.started != nil {
		p.started <- c.ID
	}
	if p.block != nil {
		<-p.block
	}
	if p.failIDs[c.ID] {
		return fmt.Errorf("tick failed for campaign %d", c.ID)
	}
	return nil
}

func (p *fakeProcessor) callCount(campaignID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[campaignID]
}

func waitForCalls(t *testing.T, p *fakeProcessor, campaignID, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.callCount(campaignID) >= want
	}, time.Second, 5*time.Millisecond)
}

func TestTickProcessesAllActiveCampaigns(t *testing.T) {
	campaigns := newMockCampaignRepo(
		&model.Campaign{ID: 1, Status: model.CampaignActive},
		&model.Campaign{ID: 2, Status: model.CampaignActive},
		&model.Campaign{ID: 3, Status: model.CampaignCompleted},
	)
	processor := newFakeProcessor()
	scheduler := service.NewScheduler(campaigns, processor)

	scheduler.Tick(context.Background())

	waitForCalls(t, processor, 1, 1)
	waitForCalls(t, processor, 2, 1)
	assert.Zero(t, processor.callCount(3), "completed campaigns are skipped")
}

func TestTickContainsCampaignFailures(t *testing.T) {
	campaigns := newMockCampaignRepo(
		&model.Campaign{ID: 1, Status: model.CampaignActive},
		&model.Campaign{ID: 2, Status: model.CampaignActive},
	)
	processor := newFakeProcessor()
	processor.failIDs[1] = true
	scheduler := service.NewScheduler(campaigns, processor)

	scheduler.Tick(context.Background())

	// Campaign 1 failing never blocks campaign 2.
	waitForCalls(t, processor, 1, 1)
	waitForCalls(t, processor, 2, 1)
}

func TestOverlappingTicksNeverDoubleProcess(t *testing.T) {
	campaigns := newMockCampaignRepo(&model.Campaign{ID: 1, Status: model.CampaignActive})
	processor := newFakeProcessor()
	processor.block = make(chan struct{})
	processor.started = make(chan int, 1)
	scheduler := service.NewScheduler(campaigns, processor)

	scheduler.Tick(context.Background())
	<-processor.started // first tick is now mid-flight

	scheduler.Tick(context.Background())
	scheduler.Tick(context.Background())

	close(processor.block)
	waitForCalls(t, processor, 1, 1)

	// Give any stray goroutine a moment, then confirm single processing.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, processor.callCount(1))
}

func TestSchedulerStartStop(t *testing.T) {
	setConfig(t, "scheduler.interval", 10*time.Millisecond)

	campaigns := newMockCampaignRepo(&model.Campaign{ID: 1, Status: model.CampaignActive})
	processor := newFakeProcessor()
	scheduler := service.NewScheduler(campaigns, processor)

	scheduler.Start(context.Background())
	waitForCalls(t, processor, 1, 2)
	scheduler.Stop()

	// Let any goroutine from the final tick drain before sampling.
	time.Sleep(30 * time.Millisecond)
	after := processor.callCount(1)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, processor.callCount(1), "no ticks after Stop")
}
