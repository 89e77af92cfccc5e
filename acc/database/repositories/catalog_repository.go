package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
)

var ErrCatalogItemNotFound = errors.New("catalog item not found")

type CatalogRepository interface {
	GetAll(ctx context.Context) ([]*models.CatalogItem, error)
	GetByID(ctx context.Context, id int64) (*models.CatalogItem, error)
	BulkCreate(ctx context.Context, items []*models.CatalogItem) (int, error)
}

type catalogRepository struct {
	db *bun.DB
}

func NewCatalogRepository(db *bun.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetAll(ctx context.Context) ([]*models.CatalogItem, error) {
	var items []*models.CatalogItem
	err := r.db.NewSelect().
		Model(&items).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get catalog items: %w", err)
	}
	return items, nil
}

func (r *catalogRepository) GetByID(ctx context.Context, id int64) (*models.CatalogItem, error) {
	item := new(models.CatalogItem)
	err := r.db.NewSelect().
		Model(item).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCatalogItemNotFound
		}
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}
	return item, nil
}

func (r *catalogRepository) BulkCreate(ctx context.Context, items []*models.CatalogItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	result, err := r.db.NewInsert().Model(&items).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk create catalog items: %w", err)
	}

	count, _ := result.RowsAffected()
	return int(count), nil
}
