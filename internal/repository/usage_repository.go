package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pixelmint/pixelmint/internal/models"
)

type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Insert(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `
INSERT INTO usage_records (id, user_id, type, model, prompt, image_url, credits_used)
VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.UserID, record.Type, record.Model, record.Prompt, record.ImageURL, record.CreditsUsed); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (r *UsageRepository) ListPage(ctx context.Context, userID string, limit, offset int) ([]models.UsageRecord, error) {
	const query = `
SELECT id, user_id, type, model, COALESCE(prompt, ''), COALESCE(image_url, ''), credits_used, created_at
FROM usage_records
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	defer rows.Close()

	records := []models.UsageRecord{}
	for rows.Next() {
		var rec models.UsageRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Model, &rec.Prompt, &rec.ImageURL, &rec.CreditsUsed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *UsageRepository) Count(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM usage_records WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}
	return count, nil
}
