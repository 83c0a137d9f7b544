package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"intervi-api/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, first_name, last_name, avatar_url, role,
	total_sessions, average_score, current_streak, best_streak, experience_points, last_session_at,
	social_providers, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.AvatarURL, &u.Role,
		&u.Statistics.TotalSessions, &u.Statistics.AverageScore, &u.Statistics.CurrentStreak,
		&u.Statistics.BestStreak, &u.Statistics.ExperiencePoints, &u.Statistics.LastSessionAt,
		&u.SocialProviders, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	if !isUUID(id) {
		return model.User{}, model.ErrUserNotFound
	}

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, model.NormalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// Create relies on the unique email index, so concurrent registrations of the
// same address resolve to exactly one row.
func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	u.Email = model.NormalizeEmail(u.Email)
	if u.SocialProviders == nil {
		u.SocialProviders = []model.SocialIdentity{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, avatar_url, role,
		                    social_providers, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.AvatarURL, u.Role,
		u.SocialProviders, u.CreatedAt, u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.User{}, model.ErrDuplicateEmail
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UpdateStatistics applies fn to the stored statistics under a row lock.
func (r *UserRepository) UpdateStatistics(ctx context.Context, id string, fn func(model.UserStatistics) model.UserStatistics) (model.UserStatistics, error) {
	var updated model.UserStatistics

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var current model.UserStatistics
		err := tx.QueryRow(ctx,
			`SELECT total_sessions, average_score, current_streak, best_streak, experience_points, last_session_at
			 FROM users WHERE id = $1 FOR UPDATE`, id).
			Scan(&current.TotalSessions, &current.AverageScore, &current.CurrentStreak,
				&current.BestStreak, &current.ExperiencePoints, &current.LastSessionAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user statistics: %w", err)
		}

		updated = fn(current)

		_, err = tx.Exec(ctx,
			`UPDATE users SET total_sessions = $2, average_score = $3, current_streak = $4, best_streak = $5,
			                  experience_points = $6, last_session_at = $7, updated_at = NOW()
			 WHERE id = $1`,
			id, updated.TotalSessions, updated.AverageScore, updated.CurrentStreak,
			updated.BestStreak, updated.ExperiencePoints, updated.LastSessionAt)
		if err != nil {
			return fmt.Errorf("update user statistics: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.UserStatistics{}, err
	}

	return updated, nil
}
