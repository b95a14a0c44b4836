package repository

import (
	"context"
	"fmt"

	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

const accountColumns = `id, pairing_code, partner_id, couple_id, active_pet_id, nickname,
	anniversary_date, push_token, live_start_token, live_update_token,
	push_enabled, live_status_enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.PairingCode, &a.PartnerID, &a.CoupleID, &a.ActivePetID, &a.Nickname,
		&a.AnniversaryDate, &a.PushToken, &a.LiveStartToken, &a.LiveUpdateToken,
		&a.PushEnabled, &a.LiveStatusEnabled, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccount retrieves an account by ID
func (t *pgTx) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "account")
	}
	return a, nil
}

// GetAccountByCode retrieves an account by pairing code
func (t *pgTx) GetAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE pairing_code = $1`
	a, err := scanAccount(t.tx.QueryRow(ctx, query, code))
	if err != nil {
		return nil, notFound(err, "account by code")
	}
	return a, nil
}

// PutAccount inserts or replaces an account
func (t *pgTx) PutAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			pairing_code = EXCLUDED.pairing_code,
			partner_id = EXCLUDED.partner_id,
			couple_id = EXCLUDED.couple_id,
			active_pet_id = EXCLUDED.active_pet_id,
			nickname = EXCLUDED.nickname,
			anniversary_date = EXCLUDED.anniversary_date,
			push_token = EXCLUDED.push_token,
			live_start_token = EXCLUDED.live_start_token,
			live_update_token = EXCLUDED.live_update_token,
			push_enabled = EXCLUDED.push_enabled,
			live_status_enabled = EXCLUDED.live_status_enabled,
			updated_at = EXCLUDED.updated_at
	`
	_, err := t.tx.Exec(ctx, query,
		a.ID, a.PairingCode, a.PartnerID, a.CoupleID, a.ActivePetID, a.Nickname,
		a.AnniversaryDate, a.PushToken, a.LiveStartToken, a.LiveUpdateToken,
		a.PushEnabled, a.LiveStatusEnabled, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put account: %w", err)
	}
	return nil
}

// DeleteAccount deletes an account by ID
func (t *pgTx) DeleteAccount(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
