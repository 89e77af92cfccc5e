package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastActive(ctx context.Context, id int64) error
	UpdateAvatarKey(ctx context.Context, id int64, key string) error
	AddBells(ctx context.Context, tx bun.Tx, id int64, amount int64) error
	SetBan(ctx context.Context, id int64, description string) error
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) DB() *bun.DB {
	return r.db
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.LastActive.IsZero() {
		user.LastActive = time.Now()
	}

	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("username = ?", username).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) UpdateLastActive(ctx context.Context, id int64) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_active = ?", time.Now()).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateAvatarKey(ctx context.Context, id int64, key string) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("avatar_key = ?", key).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update avatar key: %w", err)
	}
	return nil
}

func (r *userRepository) AddBells(ctx context.Context, tx bun.Tx, id int64, amount int64) error {
	result, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("bells = bells + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to add bells: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil || rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetBan(ctx context.Context, id int64, description string) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("ban_description = ?", description).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set ban: %w", err)
	}
	return nil
}
