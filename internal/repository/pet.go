package repository

import (
	"context"
	"fmt"

	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

const petColumns = `id, couple_id, type, name, level, exp, hungry, status_message,
	last_fed_at, last_updated_at, created_at`

func scanPet(row rowScanner) (*models.Pet, error) {
	var p models.Pet
	err := row.Scan(
		&p.ID, &p.CoupleID, &p.Type, &p.Name, &p.Level, &p.Exp, &p.Hungry, &p.StatusMessage,
		&p.LastFedAt, &p.LastUpdatedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPet retrieves a pet by ID
func (t *pgTx) GetPet(ctx context.Context, id string) (*models.Pet, error) {
	p, err := scanPet(t.tx.QueryRow(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "pet")
	}
	return p, nil
}

// PutPet inserts or replaces a pet
func (t *pgTx) PutPet(ctx context.Context, p *models.Pet) error {
	query := `
		INSERT INTO pets (` + petColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			level = EXCLUDED.level,
			exp = EXCLUDED.exp,
			hungry = EXCLUDED.hungry,
			status_message = EXCLUDED.status_message,
			last_fed_at = EXCLUDED.last_fed_at,
			last_updated_at = EXCLUDED.last_updated_at
	`
	_, err := t.tx.Exec(ctx, query,
		p.ID, p.CoupleID, p.Type, p.Name, p.Level, p.Exp, p.Hungry, p.StatusMessage,
		p.LastFedAt, p.LastUpdatedAt, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put pet: %w", err)
	}
	return nil
}

// ListPets retrieves every pet owned by a couple
func (t *pgTx) ListPets(ctx context.Context, coupleID string) ([]*models.Pet, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+petColumns+` FROM pets WHERE couple_id = $1 ORDER BY created_at, id`, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pets: %w", err)
	}
	defer rows.Close()

	var pets []*models.Pet
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pet: %w", err)
		}
		pets = append(pets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pets: %w", err)
	}
	return pets, nil
}

// DeletePet deletes a pet by ID
func (t *pgTx) DeletePet(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM pets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete pet: %w", err)
	}
	return nil
}
