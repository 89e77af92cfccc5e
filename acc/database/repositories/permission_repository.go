package repositories

import (
	"context"
	"fmt"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
)

type PermissionRepository interface {
	GetUserGrants(ctx context.Context, userID int64, permission string) ([]*models.UserPermission, error)
	GetGroupGrants(ctx context.Context, groupIDs []int64, permission string) ([]*models.GroupPermission, error)
	GetUserGroupIDs(ctx context.Context, userID int64) ([]int64, error)
	GetAllGroups(ctx context.Context) ([]*models.UserGroup, error)
	GrantUser(ctx context.Context, grant *models.UserPermission) error
	GrantGroup(ctx context.Context, grant *models.GroupPermission) error
}

type permissionRepository struct {
	db *bun.DB
}

func NewPermissionRepository(db *bun.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) GetUserGrants(ctx context.Context, userID int64, permission string) ([]*models.UserPermission, error) {
	var grants []*models.UserPermission
	err := r.db.NewSelect().
		Model(&grants).
		Where("user_id = ?", userID).
		Where("permission = ?", permission).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get user grants: %w", err)
	}
	return grants, nil
}

func (r *permissionRepository) GetGroupGrants(ctx context.Context, groupIDs []int64, permission string) ([]*models.GroupPermission, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	var grants []*models.GroupPermission
	err := r.db.NewSelect().
		Model(&grants).
		Where("group_id IN (?)", bun.In(groupIDs)).
		Where("permission = ?", permission).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get group grants: %w", err)
	}
	return grants, nil
}

func (r *permissionRepository) GetUserGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.UserGroupMember)(nil)).
		Column("group_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)

	if err != nil {
		return nil, fmt.Errorf("failed to get user group ids: %w", err)
	}
	return ids, nil
}

func (r *permissionRepository) GetAllGroups(ctx context.Context) ([]*models.UserGroup, error) {
	var groups []*models.UserGroup
	err := r.db.NewSelect().
		Model(&groups).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	return groups, nil
}

func (r *permissionRepository) GrantUser(ctx context.Context, grant *models.UserPermission) error {
	_, err := r.db.NewInsert().Model(grant).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to grant user permission: %w", err)
	}
	return nil
}

func (r *permissionRepository) GrantGroup(ctx context.Context, grant *models.GroupPermission) error {
	_, err := r.db.NewInsert().Model(grant).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to grant group permission: %w", err)
	}
	return nil
}
