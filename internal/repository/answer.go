package repository

import (
	"context"
	"fmt"

	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

const answerColumns = `couple_id, track, item_id, first_answer, first_answered_at,
	second_answer, second_answered_at, both_answered, completed_at`

func scanAnswer(row rowScanner) (*models.Answer, error) {
	var a models.Answer
	err := row.Scan(
		&a.CoupleID, &a.Track, &a.ItemID, &a.FirstAnswer, &a.FirstAnsweredAt,
		&a.SecondAnswer, &a.SecondAnsweredAt, &a.BothAnswered, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAnswer retrieves the answer record of a couple for one item
func (t *pgTx) GetAnswer(ctx context.Context, coupleID string, track models.Track, itemID string) (*models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE couple_id = $1 AND track = $2 AND item_id = $3`
	a, err := scanAnswer(t.tx.QueryRow(ctx, query, coupleID, string(track), itemID))
	if err != nil {
		return nil, notFound(err, "answer")
	}
	return a, nil
}

// PutAnswer inserts or replaces an answer record
func (t *pgTx) PutAnswer(ctx context.Context, a *models.Answer) error {
	query := `
		INSERT INTO answers (` + answerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (couple_id, track, item_id) DO UPDATE SET
			first_answer = EXCLUDED.first_answer,
			first_answered_at = EXCLUDED.first_answered_at,
			second_answer = EXCLUDED.second_answer,
			second_answered_at = EXCLUDED.second_answered_at,
			both_answered = EXCLUDED.both_answered,
			completed_at = EXCLUDED.completed_at
	`
	_, err := t.tx.Exec(ctx, query,
		a.CoupleID, string(a.Track), a.ItemID, a.FirstAnswer, a.FirstAnsweredAt,
		a.SecondAnswer, a.SecondAnsweredAt, a.BothAnswered, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put answer: %w", err)
	}
	return nil
}

// ListCompletedAnswers retrieves completed answers of a track, newest first
func (t *pgTx) ListCompletedAnswers(ctx context.Context, coupleID string, track models.Track, limit int) ([]*models.Answer, error) {
	query := `
		SELECT ` + answerColumns + `
		FROM answers
		WHERE couple_id = $1 AND track = $2 AND both_answered
		ORDER BY completed_at DESC
		LIMIT $3
	`
	rows, err := t.tx.Query(ctx, query, coupleID, string(track), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []*models.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}
	return answers, nil
}

// DeleteAnswers deletes every answer record of a couple in bounded batches
func (t *pgTx) DeleteAnswers(ctx context.Context, coupleID string) error {
	query := `
		DELETE FROM answers
		WHERE ctid IN (SELECT ctid FROM answers WHERE couple_id = $1 LIMIT $2)
	`
	for {
		result, err := t.tx.Exec(ctx, query, coupleID, MaxBatchOps)
		if err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		if result.RowsAffected() < MaxBatchOps {
			return nil
		}
	}
}
