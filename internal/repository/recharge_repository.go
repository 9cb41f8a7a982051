package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pixelmint/pixelmint/internal/models"
)

type RechargeRepository struct {
	db *sql.DB
}

func NewRechargeRepository(db *sql.DB) *RechargeRepository {
	return &RechargeRepository{db: db}
}

func (r *RechargeRepository) Insert(ctx context.Context, record *models.RechargeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `
INSERT INTO recharge_records (id, user_id, amount, credits, payment_method, payment_id, status)
VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.UserID, record.Amount, record.Credits, record.PaymentMethod, record.PaymentID, record.Status); err != nil {
		return fmt.Errorf("insert recharge record: %w", err)
	}
	return nil
}

func (r *RechargeRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.RechargeRecord, error) {
	const query = `
SELECT id, user_id, amount, credits, COALESCE(payment_method, ''), COALESCE(payment_id, ''), status, created_at
FROM recharge_records WHERE payment_id = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, paymentID)
	var rec models.RechargeRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Amount, &rec.Credits, &rec.PaymentMethod, &rec.PaymentID, &rec.Status, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan recharge record: %w", err)
	}
	return &rec, nil
}

// UpdateStatus moves a record out of pending. It reports false when the
// record was already in the target status, which makes webhook redelivery a
// no-op for crediting.
func (r *RechargeRepository) UpdateStatus(ctx context.Context, id string, status models.RechargeStatus) (bool, error) {
	const query = `UPDATE recharge_records SET status = ? WHERE id = ? AND status <> ?`
	res, err := r.db.ExecContext(ctx, query, status, id, status)
	if err != nil {
		return false, fmt.Errorf("update recharge status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recharge rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *RechargeRepository) ListPage(ctx context.Context, userID string, limit, offset int) ([]models.RechargeRecord, error) {
	const query = `
SELECT id, user_id, amount, credits, COALESCE(payment_method, ''), COALESCE(payment_id, ''), status, created_at
FROM recharge_records
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list recharge records: %w", err)
	}
	defer rows.Close()

	records := []models.RechargeRecord{}
	for rows.Next() {
		var rec models.RechargeRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount, &rec.Credits, &rec.PaymentMethod, &rec.PaymentID, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recharge record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RechargeRepository) Count(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM recharge_records WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count recharge records: %w", err)
	}
	return count, nil
}
