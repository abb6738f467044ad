// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/repository"
	"github.com/inboxpilot/warmup-backend/internal/service"
)

// CampaignHandler serves the derived metrics views.
type CampaignHandler struct {
	Campaigns repository.CampaignRepositoryInterface
	Metrics   *service.MetricsAggregator
}

// GetCampaignMetricsHandler returns a campaign together with its computed
// delivery rate, reputation score and per-day breakdown.
func (h *CampaignHandler) GetCampaignMetricsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.GetByID(id)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	metrics, err := h.Metrics.ForCampaign(campaign)
	if err != nil {
		http.Error(w, "failed to compute metrics: "+err.Error(), http.StatusInternalServerError)
		return
	}

	daily, err := h.Metrics.DailyStats(campaign)
	if err != nil {
		http.Error(w, "failed to compute daily stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"campaign":    campaign,
		"metrics":     metrics,
		"daily_stats": daily,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
