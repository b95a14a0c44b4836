package repository

import (
	"context"
	"fmt"

	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

// GetCouple retrieves a couple by ID
func (t *pgTx) GetCouple(ctx context.Context, id string) (*models.Couple, error) {
	query := `
		SELECT id, user1_id, user2_id, coins, food, active_pet_id, anniversary_date,
			dq_total_completed, dq_last_completed, bg_total_completed, bg_last_completed, created_at
		FROM couples
		WHERE id = $1
	`
	var c models.Couple
	err := t.tx.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.User1ID, &c.User2ID, &c.Coins, &c.Food, &c.ActivePetID, &c.AnniversaryDate,
		&c.DailyQuestion.TotalCompleted, &c.DailyQuestion.LastCompletedAt,
		&c.BalanceGame.TotalCompleted, &c.BalanceGame.LastCompletedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "couple")
	}
	return &c, nil
}

// PutCouple inserts or replaces a couple
func (t *pgTx) PutCouple(ctx context.Context, c *models.Couple) error {
	query := `
		INSERT INTO couples (id, user1_id, user2_id, coins, food, active_pet_id, anniversary_date,
			dq_total_completed, dq_last_completed, bg_total_completed, bg_last_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			coins = EXCLUDED.coins,
			food = EXCLUDED.food,
			active_pet_id = EXCLUDED.active_pet_id,
			anniversary_date = EXCLUDED.anniversary_date,
			dq_total_completed = EXCLUDED.dq_total_completed,
			dq_last_completed = EXCLUDED.dq_last_completed,
			bg_total_completed = EXCLUDED.bg_total_completed,
			bg_last_completed = EXCLUDED.bg_last_completed
	`
	_, err := t.tx.Exec(ctx, query,
		c.ID, c.User1ID, c.User2ID, c.Coins, c.Food, c.ActivePetID, c.AnniversaryDate,
		c.DailyQuestion.TotalCompleted, c.DailyQuestion.LastCompletedAt,
		c.BalanceGame.TotalCompleted, c.BalanceGame.LastCompletedAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put couple: %w", err)
	}
	return nil
}

// DeleteCouple deletes a couple; pets and answers cascade
func (t *pgTx) DeleteCouple(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM couples WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete couple: %w", err)
	}
	return nil
}
