// internal/service/dispatcher.go
package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/inboxpilot/warmup-backend/internal/config"
	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/logging"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/provider"
	"github.com/inboxpilot/warmup-backend/internal/repository"
)

// Dispatcher attempts delivery of one email through the provider. Retry is
// bounded to a single token refresh on an auth failure; everything else is
// terminal for the row.
type Dispatcher struct {
	Emails    repository.EmailRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Broker    *TokenBroker
	Provider  provider.EmailProvider
}

// DispatchByID resolves the email, its campaign and account, then dispatches.
// Used by the queue subscribers, which only carry the row ID.
func (d *Dispatcher) DispatchByID(ctx context.Context, emailID int) (string, error) {
	email, err := d.Emails.GetByID(emailID)
	if err != nil {
		return "", appErrors.NewPersistence("load email", err)
	}
	if email == nil || email.Status != model.EmailPending {
		return "", nil // already handled or gone
	}

	campaign, err := d.Campaigns.GetByID(email.CampaignID)
	if err != nil {
		return "", appErrors.NewPersistence("load campaign", err)
	}

	account, err := d.Accounts.GetByID(campaign.AccountID)
	if err != nil {
		return "", appErrors.NewPersistence("load account", err)
	}
	if account == nil {
		return d.fail(email, fmt.Errorf("account %d not found", campaign.AccountID))
	}

	return d.Dispatch(ctx, email, account)
}

// Dispatch sends one pending email. The outcome is the email's status after
// the attempt: "sent" (delivery resolution still in flight) or "failed". A
// non-nil error is always a persistence problem, never a send failure.
func (d *Dispatcher) Dispatch(ctx context.Context, email *model.Email, account *model.EmailAccount) (string, error) {
	if err := d.jitter(ctx); err != nil {
		return "", nil // shutting down; row stays pending
	}

	refreshed := false
	token, err := d.Broker.AccessToken(ctx, account)
	if err != nil {
		if !appErrors.IsAuth(err) {
			return d.fail(email, err)
		}
		// No usable token on record; the refresh token may still be good.
		token, err = d.Broker.Refresh(ctx, account, token)
		if err != nil {
			return d.fail(email, err)
		}
		refreshed = true
	}

	err = d.Provider.SendEmail(ctx, token, email.FromAddress, email.ToAddress, email.Subject, bodyFor(email))
	if err != nil && appErrors.IsAuth(err) && !refreshed {
		token, err = d.Broker.Refresh(ctx, account, token)
		if err == nil {
			// Exactly one retry with the refreshed token.
			err = d.Provider.SendEmail(ctx, token, email.FromAddress, email.ToAddress, email.Subject, bodyFor(email))
		}
	}
	if err != nil {
		return d.fail(email, err)
	}

	moved, err := d.Emails.MarkSent(email.ID)
	if err != nil {
		return "", appErrors.NewPersistence("mark sent", err)
	}
	if !moved {
		return "", nil // lost the pending claim to another dispatch
	}

	logging.Debug().Int("email_id", email.ID).Str("to", email.ToAddress).Msg("email sent")
	go d.resolve(ctx, email.ID)
	return model.EmailSent, nil
}

func (d *Dispatcher) fail(email *model.Email, cause error) (string, error) {
	if _, err := d.Emails.MarkFailed(email.ID, cause.Error()); err != nil {
		return "", appErrors.NewPersistence("mark failed", err)
	}
	logging.Warn().Int("email_id", email.ID).Err(cause).Msg("email failed")
	return model.EmailFailed, nil
}

// resolve models real delivery latency: after a bounded random delay the sent
// email lands as delivered or bounces. Only sent rows resolve; the monotonic
// rule is enforced by the store. Cancellation skips the wait, not the
// terminal transition.
func (d *Dispatcher) resolve(ctx context.Context, emailID int) {
	timer := time.NewTimer(randomDelay(config.ResolveDelayMin(), config.ResolveDelayMax()))
	select {
	case <-ctx.Done():
		timer.Stop()
	case <-timer.C:
	}

	if rand.Float64() < config.SimulationDeliveryRate() {
		if _, err := d.Emails.MarkDelivered(emailID); err != nil {
			logging.Error().Int("email_id", emailID).Err(err).Msg("failed to mark delivered")
		}
		return
	}
	if _, err := d.Emails.MarkFailed(emailID, "bounced"); err != nil {
		logging.Error().Int("email_id", emailID).Err(err).Msg("failed to mark bounced")
	}
}

// jitter spreads a batch's sends over a short window.
func (d *Dispatcher) jitter(ctx context.Context) error {
	max := config.DispatchJitterMax()
	if max <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(rand.Int63n(int64(max))))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func bodyFor(email *model.Email) string {
	return fmt.Sprintf(
		"Hi,\n\n%s\n\nWould love to hear your thoughts when you get a minute.\n\nBest,\n%s\n",
		email.Subject, email.FromAddress,
	)
}
