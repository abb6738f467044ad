// internal/service/metrics.go
package service

import (
	"github.com/inboxpilot/warmup-backend/internal/config"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/repository"
)

// MetricsAggregator derives delivery and reputation metrics from stored email
// rows. Read-only and recomputed on demand.
type MetricsAggregator struct {
	Emails repository.EmailRepositoryInterface
}

// CampaignMetrics is the aggregate view of one campaign's warmup health.
type CampaignMetrics struct {
	CampaignID      int               `json:"campaign_id"`
	Counts          model.EmailCounts `json:"counts"`
	DeliveryRate    float64           `json:"delivery_rate"`
	Progress        float64           `json:"progress"`
	ReputationScore float64           `json:"reputation_score"`
}

// ForCampaign computes the campaign's delivery rate and reputation score.
// The score blends ramp progress and delivery rate with configurable weights
// and is capped to 0-100.
func (m *MetricsAggregator) ForCampaign(c *model.Campaign) (*CampaignMetrics, error) {
	counts, err := m.Emails.CountByStatus(c.ID)
	if err != nil {
		return nil, err
	}

	rate := deliveryRate(counts.Delivered, counts.Attempted())
	progress := rampProgress(c.CurrentDay, c.RampUpDays)

	return &CampaignMetrics{
		CampaignID:      c.ID,
		Counts:          *counts,
		DeliveryRate:    rate,
		Progress:        progress,
		ReputationScore: reputationScore(progress, rate),
	}, nil
}

// DailyStats returns the campaign's per-day breakdown with delivery rates and
// reputation scores filled in. Each score uses the ramp progress as of the
// stat's own day, so gaps from skipped days never shift later scores.
func (m *MetricsAggregator) DailyStats(c *model.Campaign) ([]model.DailyStat, error) {
	stats, err := m.Emails.DailyStats(c.ID)
	if err != nil {
		return nil, err
	}

	for i := range stats {
		rate := deliveryRate(stats[i].Delivered, stats[i].Sent)
		stats[i].DeliveryRate = rate
		stats[i].ReputationScore = reputationScore(rampProgress(stats[i].Day, c.RampUpDays), rate)
	}
	return stats, nil
}

func deliveryRate(delivered, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return float64(delivered) / float64(attempted)
}

func rampProgress(currentDay, rampUpDays int) float64 {
	if rampUpDays <= 0 {
		return 0
	}
	progress := float64(currentDay) / float64(rampUpDays)
	if progress > 1 {
		progress = 1
	}
	return progress
}

func reputationScore(progress, rate float64) float64 {
	score := config.ReputationProgressWeight()*progress*100 +
		config.ReputationDeliveryWeight()*rate*100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
