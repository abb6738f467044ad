package repository

import (
	"database/sql"
	"time"

	"github.com/inboxpilot/warmup-backend/internal/model"
)

type EmailRepositoryInterface interface {
	CreateBatch(emails []*model.Email) error
	GetByID(id int) (*model.Email, error)
	ListPendingByCampaign(campaignID int) ([]*model.Email, error)

	// Status transitions. Each returns whether the row was actually moved,
	// enforcing the forward-only state rule at the storage layer.
	MarkSent(id int) (bool, error)
	MarkDelivered(id int) (bool, error)
	MarkFailed(id int, reason string) (bool, error)

	CountByStatus(campaignID int) (*model.EmailCounts, error)
	DailyStats(campaignID int) ([]model.DailyStat, error)
}

type EmailRepository struct {
	DB *sql.DB
}

const emailColumns = `id, campaign_id, day, from_address, to_address, subject, status,
last_error, created_at, sent_at, delivered_at`

func scanEmail(row interface{ Scan(...any) error }) (*model.Email, error) {
	var e model.Email
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.Day, &e.FromAddress, &e.ToAddress, &e.Subject,
		&e.Status, &e.LastError, &e.CreatedAt, &e.SentAt, &e.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateBatch inserts the day's emails one by one. A failure aborts the batch
// without rolling back earlier rows; leftover pending rows are safe because
// dispatch claims each row from pending at most once.
func (r *EmailRepository) CreateBatch(emails []*model.Email) error {
	query := `
        INSERT INTO emails (campaign_id, day, from_address, to_address, subject, status, last_error, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, '', NOW())
        RETURNING id, created_at
    `
	for _, e := range emails {
		if e.Status == "" {
			e.Status = model.EmailPending
		}
		err := r.DB.QueryRow(query,
			e.CampaignID, e.Day, e.FromAddress, e.ToAddress, e.Subject, e.Status,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *EmailRepository) GetByID(id int) (*model.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE id=$1`
	e, err := scanEmail(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *EmailRepository) ListPendingByCampaign(campaignID int) ([]*model.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE campaign_id=$1 AND status=$2 ORDER BY id`
	rows, err := r.DB.Query(query, campaignID, model.EmailPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []*model.Email{}
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// MarkSent moves pending -> sent.
func (r *EmailRepository) MarkSent(id int) (bool, error) {
	query := `UPDATE emails SET status=$1, sent_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.Exec(query, model.EmailSent, id, model.EmailPending)
	if err != nil {
		return false, err
	}
	return oneRow(res)
}

// MarkDelivered moves sent -> delivered.
func (r *EmailRepository) MarkDelivered(id int) (bool, error) {
	query := `UPDATE emails SET status=$1, delivered_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.Exec(query, model.EmailDelivered, id, model.EmailSent)
	if err != nil {
		return false, err
	}
	return oneRow(res)
}

// MarkFailed moves pending or sent -> failed.
func (r *EmailRepository) MarkFailed(id int, reason string) (bool, error) {
	query := `UPDATE emails SET status=$1, last_error=$2 WHERE id=$3 AND status IN ($4, $5)`
	res, err := r.DB.Exec(query, model.EmailFailed, reason, id, model.EmailPending, model.EmailSent)
	if err != nil {
		return false, err
	}
	return oneRow(res)
}

func oneRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *EmailRepository) CountByStatus(campaignID int) (*model.EmailCounts, error) {
	query := `SELECT status, COUNT(*) FROM emails WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := &model.EmailCounts{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case model.EmailPending:
			counts.Pending = count
		case model.EmailSent:
			counts.Sent = count
		case model.EmailDelivered:
			counts.Delivered = count
		case model.EmailFailed:
			counts.Failed = count
		}
		counts.Total += count
	}
	return counts, rows.Err()
}

// DailyStats groups a campaign's emails by ramp day, not calendar date, so
// skipped weekends or holidays never shift a day's numbers. Rates and scores
// are filled in by the metrics aggregator.
func (r *EmailRepository) DailyStats(campaignID int) ([]model.DailyStat, error) {
	query := `
        SELECT day,
               DATE(MIN(created_at)) AS date,
               COUNT(*) FILTER (WHERE status IN ($2, $3, $4)) AS sent,
               COUNT(*) FILTER (WHERE status = $3) AS delivered,
               COUNT(*) FILTER (WHERE status = $4) AS failed
        FROM emails
        WHERE campaign_id=$1
        GROUP BY day
        ORDER BY day
    `
	rows, err := r.DB.Query(query, campaignID, model.EmailSent, model.EmailDelivered, model.EmailFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.DailyStat{}
	for rows.Next() {
		var s model.DailyStat
		var date time.Time
		if err := rows.Scan(&s.Day, &date, &s.Sent, &s.Delivered, &s.Failed); err != nil {
			return nil, err
		}
		s.Date = date
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

var _ EmailRepositoryInterface = (*EmailRepository)(nil)
