package repository

import (
	"database/sql"

	"github.com/inboxpilot/warmup-backend/internal/model"
)

// AccountRepositoryInterface defines what the token broker and processor need
// from the account store.
type AccountRepositoryInterface interface {
	GetByID(id int) (*model.EmailAccount, error)
	UpdateTokens(id int, accessToken, refreshToken string, expiresIn int) error
}

// AccountRepository is the concrete implementation
type AccountRepository struct {
	DB *sql.DB
}

// GetByID fetches an email account by ID
func (r *AccountRepository) GetByID(id int) (*model.EmailAccount, error) {
	query := `
        SELECT id, tenant_id, email, provider, access_token, refresh_token,
               token_expires_at, token_valid, created_at, updated_at
        FROM email_accounts
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var a model.EmailAccount
	err := row.Scan(
		&a.ID, &a.TenantID, &a.Email, &a.Provider, &a.AccessToken,
		&a.RefreshToken, &a.TokenExpiresAt, &a.TokenValid, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &a, nil
}

// UpdateTokens writes a refreshed token pair back so later dispatches and
// later days reuse it instead of refreshing again.
func (r *AccountRepository) UpdateTokens(id int, accessToken, refreshToken string, expiresIn int) error {
	query := `
        UPDATE email_accounts
        SET access_token=$1, refresh_token=$2,
            token_expires_at=NOW() + ($3 * INTERVAL '1 second'),
            token_valid=TRUE, updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, accessToken, refreshToken, expiresIn, id)
	return err
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
