// internal/model/campaign.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
)

// Campaign statuses.
const (
	CampaignDraft     = "draft"
	CampaignActive    = "active"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
)

// Control actions applied to a campaign from outside the scheduler.
const (
	ActionStart  = "start"
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionStop   = "stop"
)

type Campaign struct {
	ID              int              `db:"id" json:"id"`
	TenantID        int              `db:"tenant_id" json:"tenant_id"`
	AccountID       int              `db:"account_id" json:"account_id"`
	Name            string           `db:"name" json:"name"`
	Status          string           `db:"status" json:"status"`
	DailyVolume     int              `db:"daily_volume" json:"daily_volume"`
	RampUpDays      int              `db:"ramp_up_days" json:"ramp_up_days"`
	CurrentDay      int              `db:"current_day" json:"current_day"`
	Settings        CampaignSettings `db:"settings" json:"settings"`
	LastProcessedAt *time.Time       `db:"last_processed_at" json:"last_processed_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time       `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignSettings is stored as a jsonb column.
type CampaignSettings struct {
	SendStartHour    int      `json:"send_start_hour"`
	SendEndHour      int      `json:"send_end_hour"`
	SkipWeekends     bool     `json:"skip_weekends"`
	SubjectTemplates []string `json:"subject_templates,omitempty"`
	ReplyRate        float64  `json:"reply_rate"`
	OpenRate         float64  `json:"open_rate"`
	SpamRate         float64  `json:"spam_rate"`
}

func (s CampaignSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *CampaignSettings) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = CampaignSettings{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("cannot scan %T into CampaignSettings", src)
}

// NextStatus applies a control action to the current status and returns the
// resulting status. Invalid transitions are rejected.
func NextStatus(current, action string) (string, error) {
	switch action {
	case ActionStart:
		if current == CampaignDraft {
			return CampaignActive, nil
		}
	case ActionPause:
		if current == CampaignActive {
			return CampaignPaused, nil
		}
	case ActionResume:
		if current == CampaignPaused {
			return CampaignActive, nil
		}
	case ActionStop:
		if current == CampaignActive || current == CampaignPaused {
			return CampaignCompleted, nil
		}
	}
	return "", appErrors.NewInvalidTransition(current, action)
}
