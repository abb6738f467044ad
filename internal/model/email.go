// internal/model/email.go
package model

import "time"

// Email statuses. An email only ever moves forward:
// pending -> sent -> delivered|failed, or pending -> failed.
const (
	EmailPending   = "pending"
	EmailSent      = "sent"
	EmailDelivered = "delivered"
	EmailFailed    = "failed"
)

type Email struct {
	ID          int        `db:"id" json:"id"`
	CampaignID  int        `db:"campaign_id" json:"campaign_id"`
	Day         int        `db:"day" json:"day"`
	FromAddress string     `db:"from_address" json:"from_address"`
	ToAddress   string     `db:"to_address" json:"to_address"`
	Subject     string     `db:"subject" json:"subject"`
	Status      string     `db:"status" json:"status"`
	LastError   string     `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}

// EmailCounts groups a campaign's emails by status.
type EmailCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Attempted is the number of emails a send was attempted for.
func (c EmailCounts) Attempted() int {
	return c.Sent + c.Delivered + c.Failed
}

// DailyStat is derived from email rows, never persisted. Day is the ramp day
// the rows were created for, which can drift from the calendar when weekends
// are skipped.
type DailyStat struct {
	Day             int       `json:"day"`
	Date            time.Time `json:"date"`
	Sent            int       `json:"sent"`
	Delivered       int       `json:"delivered"`
	Failed          int       `json:"failed"`
	DeliveryRate    float64   `json:"delivery_rate"`
	ReputationScore float64   `json:"reputation_score"`
}
