// internal/service/processor.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/inboxpilot/warmup-backend/internal/config"
	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/logging"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/repository"
)

// DispatchSink receives the IDs of freshly persisted emails. The in-process
// queue implements it for the single-binary mode, the AMQP publisher for the
// worker deployment.
type DispatchSink interface {
	Enqueue(emailID int) error
}

// CampaignProcessor runs the idempotent daily tick for one campaign.
type CampaignProcessor struct {
	Campaigns repository.CampaignRepositoryInterface
	Emails    repository.EmailRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Sink      DispatchSink

	Now func() time.Time // defaults to time.Now
}

func (p *CampaignProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ProcessCampaign materializes and dispatches the campaign's next day exactly
// once. Config validation happens before the day is claimed, so a broken
// campaign stays unchanged and is retried on a later pass.
func (p *CampaignProcessor) ProcessCampaign(ctx context.Context, c *model.Campaign) error {
	if c.Status != model.CampaignActive {
		return nil
	}
	if !withinSendingWindow(c.Settings, p.now()) {
		logging.Debug().Int("campaign_id", c.ID).Msg("outside sending window, skipping tick")
		return nil
	}

	p.requeueStalePending(c)

	day := c.CurrentDay + 1
	if day > c.RampUpDays {
		// Ramp already finished; make sure the status reflects it.
		if err := p.Campaigns.UpdateStatus(c.ID, model.CampaignCompleted); err != nil {
			return appErrors.NewPersistence("complete campaign", err)
		}
		return nil
	}

	volume, err := VolumeForDay(c.DailyVolume, c.RampUpDays, day)
	if err != nil {
		return err
	}
	items, err := Generate(c.Settings, volume, day)
	if err != nil {
		return err
	}

	account, err := p.Accounts.GetByID(c.AccountID)
	if err != nil {
		return appErrors.NewPersistence("load account", err)
	}
	if account == nil {
		return appErrors.NewConfiguration("account_id", fmt.Sprintf("account %d not found", c.AccountID))
	}

	claimed, err := p.Campaigns.TryClaimDay(c.ID, day)
	if err != nil {
		return appErrors.NewPersistence("claim day", err)
	}
	if !claimed {
		return p.recoverClaimedDay(c, day)
	}

	emails := make([]*model.Email, 0, len(items))
	for _, item := range items {
		emails = append(emails, &model.Email{
			CampaignID:  c.ID,
			Day:         day,
			FromAddress: account.Email,
			ToAddress:   item.Recipient,
			Subject:     item.Subject,
			Status:      model.EmailPending,
		})
	}
	if err := p.Emails.CreateBatch(emails); err != nil {
		// Rows created so far stay pending; each is dispatched at most once
		// on a later pass, so no rollback is needed.
		return appErrors.NewPersistence("create emails", err)
	}

	for _, e := range emails {
		if err := p.Sink.Enqueue(e.ID); err != nil {
			logging.Warn().Int("email_id", e.ID).Err(err).Msg("failed to enqueue email")
		}
	}

	logging.Info().
		Int("campaign_id", c.ID).
		Int("day", day).
		Int("volume", len(emails)).
		Msg("campaign day processed")

	return p.finishDay(c, day)
}

// finishDay records the day's progress and completes the campaign once the
// ramp is done.
func (p *CampaignProcessor) finishDay(c *model.Campaign, day int) error {
	if err := p.Campaigns.AdvanceDay(c.ID, day); err != nil {
		return appErrors.NewPersistence("advance day", err)
	}
	c.CurrentDay = day

	if day >= c.RampUpDays {
		if err := p.Campaigns.UpdateStatus(c.ID, model.CampaignCompleted); err != nil {
			return appErrors.NewPersistence("complete campaign", err)
		}
		c.Status = model.CampaignCompleted
		logging.Info().Int("campaign_id", c.ID).Msg("ramp-up finished, campaign completed")
	}
	return nil
}

// recoverClaimedDay handles a day whose claim exists but whose tick never
// finished. If the stored progress still lags the claim, the earlier pass
// aborted between claiming and advancing; the bookkeeping is completed here so
// the campaign keeps moving. Any rows that pass persisted are re-enqueued by
// the stale-pending sweep.
func (p *CampaignProcessor) recoverClaimedDay(c *model.Campaign, day int) error {
	stored, err := p.Campaigns.GetByID(c.ID)
	if err != nil {
		return appErrors.NewPersistence("load campaign", err)
	}
	if stored.CurrentDay >= day {
		logging.Debug().Int("campaign_id", c.ID).Int("day", day).Msg("day already claimed, skipping")
		return nil
	}

	logging.Warn().Int("campaign_id", c.ID).Int("day", day).Msg("resuming interrupted day")
	return p.finishDay(c, day)
}

// requeueStalePending picks up rows left pending by an aborted earlier pass.
// Each is still dispatched at most once; the age threshold keeps rows already
// in flight out of the sweep. Failures here never block the day's batch.
func (p *CampaignProcessor) requeueStalePending(c *model.Campaign) {
	pending, err := p.Emails.ListPendingByCampaign(c.ID)
	if err != nil {
		logging.Warn().Int("campaign_id", c.ID).Err(err).Msg("failed to list stale pending emails")
		return
	}

	cutoff := p.now().Add(-config.DispatchRepairAfter())
	for _, e := range pending {
		if e.CreatedAt.After(cutoff) {
			continue
		}
		if err := p.Sink.Enqueue(e.ID); err != nil {
			logging.Warn().Int("email_id", e.ID).Err(err).Msg("failed to re-enqueue stale email")
		}
	}
}

// withinSendingWindow checks the configured sending hours and weekend flag.
// Equal start and end hours mean no hour restriction.
func withinSendingWindow(s model.CampaignSettings, t time.Time) bool {
	if s.SkipWeekends {
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	if s.SendStartHour == s.SendEndHour {
		return true
	}
	hour := t.Hour()
	if s.SendStartHour < s.SendEndHour {
		return hour >= s.SendStartHour && hour < s.SendEndHour
	}
	// Window wraps past midnight.
	return hour >= s.SendStartHour || hour < s.SendEndHour
}
