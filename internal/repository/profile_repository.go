package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pixelmint/pixelmint/internal/models"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `
SELECT id, COALESCE(email, ''), COALESCE(full_name, ''), COALESCE(avatar_url, ''), credits_balance, created_at, updated_at
FROM profiles WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var p models.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreditsBalance, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	const query = `
INSERT INTO profiles (id, email, full_name, avatar_url, credits_balance)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)`
	if _, err := r.db.ExecContext(ctx, query, profile.ID, profile.Email, profile.FullName, profile.AvatarURL, profile.CreditsBalance); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Ensure returns the profile for an identity-provider user, creating it with
// the starting balance on first contact. The bool reports whether a row was
// created.
func (r *ProfileRepository) Ensure(ctx context.Context, id, email, fullName, avatarURL string, initialCredits int) (*models.Profile, bool, error) {
	profile, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if profile != nil {
		return profile, false, nil
	}
	newProfile := &models.Profile{
		ID:             id,
		Email:          email,
		FullName:       fullName,
		AvatarURL:      avatarURL,
		CreditsBalance: initialCredits,
	}
	if err := r.Create(ctx, newProfile); err != nil {
		return nil, false, err
	}
	created, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// Debit subtracts amount from the balance in a single conditional statement.
// It reports false when the balance is below amount, so the balance can never
// go negative even when two requests race past the pre-check.
func (r *ProfileRepository) Debit(ctx context.Context, userID string, amount int) (bool, error) {
	const query = `
UPDATE profiles SET credits_balance = credits_balance - ?, updated_at = NOW()
WHERE id = ? AND credits_balance >= ?`
	res, err := r.db.ExecContext(ctx, query, amount, userID, amount)
	if err != nil {
		return false, fmt.Errorf("debit credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *ProfileRepository) Credit(ctx context.Context, userID string, amount int) error {
	const query = `UPDATE profiles SET credits_balance = credits_balance + ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, amount, userID); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}
