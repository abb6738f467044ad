// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/repository"
)

type CampaignController struct {
	Campaigns repository.CampaignRepositoryInterface
}

type createCampaignRequest struct {
	TenantID    int                    `json:"tenant_id"`
	AccountID   int                    `json:"account_id"`
	Name        string                 `json:"name"`
	DailyVolume int                    `json:"daily_volume"`
	RampUpDays  int                    `json:"ramp_up_days"`
	Settings    model.CampaignSettings `json:"settings"`
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if body.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if body.DailyVolume < 1 {
		http.Error(w, "daily_volume must be at least 1", http.StatusBadRequest)
		return
	}
	if body.RampUpDays < 1 {
		http.Error(w, "ramp_up_days must be at least 1", http.StatusBadRequest)
		return
	}

	campaign := &model.Campaign{
		TenantID:    body.TenantID,
		AccountID:   body.AccountID,
		Name:        body.Name,
		Status:      model.CampaignDraft,
		DailyVolume: body.DailyVolume,
		RampUpDays:  body.RampUpDays,
		Settings:    body.Settings,
	}

	if err := c.Campaigns.Create(campaign); err != nil {
		http.Error(w, "failed to create campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page := 1
	pageSize := 20

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}
	if pageSize > 100 {
		pageSize = 100
	}
	status := r.URL.Query().Get("status")

	campaigns, total, err := c.Campaigns.ListCampaigns((page-1)*pageSize, pageSize, status)
	if err != nil {
		http.Error(w, "failed to fetch campaigns: "+err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	response := map[string]interface{}{
		"data": campaigns,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": totalPages,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := c.loadCampaign(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

// Transition handles POST /campaigns/{id}/{start|pause|resume|stop}. The
// scheduler reads status on its own cadence, so an action can land mid-tick;
// the processor tolerates that.
func (c *CampaignController) Transition(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaign, ok := c.loadCampaign(w, r)
		if !ok {
			return
		}

		next, err := model.NextStatus(campaign.Status, action)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		if action == model.ActionStart {
			// Starting resets ramp progress to day zero.
			err = c.Campaigns.ResetProgress(campaign.ID)
		} else {
			err = c.Campaigns.UpdateStatus(campaign.ID, next)
		}
		if err != nil {
			http.Error(w, "failed to update campaign: "+err.Error(), http.StatusInternalServerError)
			return
		}

		campaign.Status = next
		if action == model.ActionStart {
			campaign.CurrentDay = 0
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(campaign)
	}
}

func (c *CampaignController) loadCampaign(w http.ResponseWriter, r *http.Request) (*model.Campaign, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return nil, false
	}

	campaign, err := c.Campaigns.GetByID(id)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return campaign, true
}
