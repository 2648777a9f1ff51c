package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// ProfileRepository stores participant profiles.
type ProfileRepository struct {
	base
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{base{db: db}}
}

// UpsertProfile writes name and email, leaving avatar_key untouched.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p *model.Profile) error {
	_, err := r.exec(ctx,
		`INSERT INTO profiles (user_id, first_name, last_name, email, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET first_name = EXCLUDED.first_name,
		     last_name  = EXCLUDED.last_name,
		     email      = EXCLUDED.email,
		     updated_at = EXCLUDED.updated_at`,
		p.UserID, p.FirstName, p.LastName, p.Email, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile returns a profile or model.ErrProfileNotFound.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := r.queryRow(ctx,
		`SELECT user_id, first_name, last_name, email, avatar_key, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.AvatarKey, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, model.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// SetAvatarKey records the object key of the user's photo, creating an
// empty profile if needed.
func (r *ProfileRepository) SetAvatarKey(ctx context.Context, userID, key string, at time.Time) error {
	_, err := r.exec(ctx,
		`INSERT INTO profiles (user_id, avatar_key, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET avatar_key = EXCLUDED.avatar_key, updated_at = EXCLUDED.updated_at`,
		userID, key, at,
	)
	if err != nil {
		return fmt.Errorf("set avatar key: %w", err)
	}
	return nil
}
