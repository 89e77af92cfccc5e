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

var ErrNodeNotFound = errors.New("node not found")

type NodeRepository interface {
	DB() *bun.DB
	GetByID(ctx context.Context, id int64) (*models.Node, error)
	GetWithPosts(ctx context.Context, id int64) (*models.Node, error)

	CreateTx(ctx context.Context, tx bun.Tx, node *models.Node) error
	SetLockedTx(ctx context.Context, tx bun.Tx, id int64, locked bool) error
	AppendPostTx(ctx context.Context, tx bun.Tx, post *models.NodePost) error
}

type nodeRepository struct {
	db *bun.DB
}

func NewNodeRepository(db *bun.DB) NodeRepository {
	return &nodeRepository{db: db}
}

func (r *nodeRepository) DB() *bun.DB {
	return r.db
}

func (r *nodeRepository) GetByID(ctx context.Context, id int64) (*models.Node, error) {
	node := new(models.Node)
	err := r.db.NewSelect().
		Model(node).
		Where("n.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return node, nil
}

func (r *nodeRepository) GetWithPosts(ctx context.Context, id int64) (*models.Node, error) {
	node := new(models.Node)
	err := r.db.NewSelect().
		Model(node).
		Relation("Posts").
		Where("n.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to get node with posts: %w", err)
	}
	return node, nil
}

func (r *nodeRepository) CreateTx(ctx context.Context, tx bun.Tx, node *models.Node) error {
	node.CreatedAt = time.Now()
	node.UpdatedAt = time.Now()

	_, err := tx.NewInsert().Model(node).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	return nil
}

func (r *nodeRepository) SetLockedTx(ctx context.Context, tx bun.Tx, id int64, locked bool) error {
	_, err := tx.NewUpdate().
		Model((*models.Node)(nil)).
		Set("locked = ?", locked).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set node lock: %w", err)
	}
	return nil
}

func (r *nodeRepository) AppendPostTx(ctx context.Context, tx bun.Tx, post *models.NodePost) error {
	post.CreatedAt = time.Now()

	_, err := tx.NewInsert().Model(post).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append node post: %w", err)
	}

	_, err = tx.NewUpdate().
		Model((*models.Node)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", post.NodeID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to bump node timestamp: %w", err)
	}
	return nil
}
