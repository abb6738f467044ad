package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID int, status string) error

	// Scheduling
	ListDueActive(dayEvery time.Duration) ([]*model.Campaign, error)
	TryClaimDay(campaignID, day int) (bool, error)
	AdvanceDay(campaignID, day int) error
	ResetProgress(campaignID int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, tenant_id, account_id, name, status, daily_volume,
ramp_up_days, current_day, settings, last_processed_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.TenantID, &c.AccountID, &c.Name, &c.Status, &c.DailyVolume,
		&c.RampUpDays, &c.CurrentDay, &c.Settings, &c.LastProcessedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (tenant_id, account_id, name, status, daily_volume, ramp_up_days, current_day, settings, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.TenantID, c.AccountID, c.Name, c.Status,
		c.DailyVolume, c.RampUpDays, c.Settings, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

// ====================== Scheduling ======================

// ListDueActive returns active campaigns whose next logical day is due, i.e.
// campaigns never processed or last processed at least dayEvery ago.
func (r *CampaignRepository) ListDueActive(dayEvery time.Duration) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status=$1
          AND (last_processed_at IS NULL OR last_processed_at <= NOW() - ($2 * INTERVAL '1 second'))
        ORDER BY id`

	rows, err := r.DB.Query(query, model.CampaignActive, dayEvery.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// TryClaimDay inserts the (campaign, day) claim row. The unique constraint
// makes the claim race-free across concurrent ticks and processes.
func (r *CampaignRepository) TryClaimDay(campaignID, day int) (bool, error) {
	query := `INSERT INTO campaign_days (campaign_id, day, claimed_at) VALUES ($1, $2, NOW())`
	_, err := r.DB.Exec(query, campaignID, day)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *CampaignRepository) AdvanceDay(campaignID, day int) error {
	query := `UPDATE campaigns SET current_day=$1, last_processed_at=NOW(), updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, day, campaignID)
	return err
}

// ResetProgress puts a campaign at the start of its ramp.
func (r *CampaignRepository) ResetProgress(campaignID int) error {
	query := `UPDATE campaigns SET status=$1, current_day=0, last_processed_at=NULL, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, model.CampaignActive, campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
