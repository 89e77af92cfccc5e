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

var (
	ErrRuleNotFound      = errors.New("rule not found")
	ErrViolationNotFound = errors.New("rule violation not found")
)

type RuleRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, rule *models.Rule) error
	GetByID(ctx context.Context, id int64) (*models.Rule, error)
	GetWithViolations(ctx context.Context, id int64) (*models.Rule, error)
	GetCurrent(ctx context.Context) ([]*models.Rule, error)

	CreateViolation(ctx context.Context, violation *models.RuleViolation) error
	GetViolation(ctx context.Context, id int64) (*models.RuleViolation, error)

	GetByIDTx(ctx context.Context, tx bun.Tx, id int64) (*models.Rule, error)
	GetViolationTx(ctx context.Context, tx bun.Tx, id int64) (*models.RuleViolation, error)
	SetPendingExpirationTx(ctx context.Context, tx bun.Tx, ruleID int64, pending bool) error
	SetViolationsPendingExpirationTx(ctx context.Context, tx bun.Tx, ruleID int64, pending bool) error
	SetViolationPendingExpirationTx(ctx context.Context, tx bun.Tx, violationID int64, pending bool) error
	DeleteReplacementsTx(ctx context.Context, tx bun.Tx, originalRuleID int64) error
	DeleteViolationReplacementsTx(ctx context.Context, tx bun.Tx, originalViolationID int64) error
	SetNodeIDTx(ctx context.Context, tx bun.Tx, ruleID, nodeID int64) error
}

type ruleRepository struct {
	db *bun.DB
}

func NewRuleRepository(db *bun.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) DB() *bun.DB {
	return r.db
}

func (r *ruleRepository) Create(ctx context.Context, rule *models.Rule) error {
	rule.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(rule).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id int64) (*models.Rule, error) {
	rule := new(models.Rule)
	err := r.db.NewSelect().
		Model(rule).
		Where("r.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func (r *ruleRepository) GetWithViolations(ctx context.Context, id int64) (*models.Rule, error) {
	rule := new(models.Rule)
	err := r.db.NewSelect().
		Model(rule).
		Relation("Violations").
		Where("r.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule with violations: %w", err)
	}
	return rule, nil
}

func (r *ruleRepository) GetCurrent(ctx context.Context) ([]*models.Rule, error) {
	var rules []*models.Rule
	err := r.db.NewSelect().
		Model(&rules).
		Relation("Violations").
		Where("r.start_date IS NOT NULL").
		Order("r.number ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get current rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepository) CreateViolation(ctx context.Context, violation *models.RuleViolation) error {
	violation.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(violation).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create rule violation: %w", err)
	}
	return nil
}

func (r *ruleRepository) GetViolation(ctx context.Context, id int64) (*models.RuleViolation, error) {
	violation := new(models.RuleViolation)
	err := r.db.NewSelect().
		Model(violation).
		Where("rv.id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrViolationNotFound
		}
		return nil, fmt.Errorf("failed to get rule violation: %w", err)
	}
	return violation, nil
}

func (r *ruleRepository) GetByIDTx(ctx context.Context, tx bun.Tx, id int64) (*models.Rule, error) {
	rule := new(models.Rule)
	err := tx.NewSelect().
		Model(rule).
		Where("r.id = ?", id).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to lock rule: %w", err)
	}
	return rule, nil
}

func (r *ruleRepository) GetViolationTx(ctx context.Context, tx bun.Tx, id int64) (*models.RuleViolation, error) {
	violation := new(models.RuleViolation)
	err := tx.NewSelect().
		Model(violation).
		Where("rv.id = ?", id).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrViolationNotFound
		}
		return nil, fmt.Errorf("failed to lock rule violation: %w", err)
	}
	return violation, nil
}

func (r *ruleRepository) SetPendingExpirationTx(ctx context.Context, tx bun.Tx, ruleID int64, pending bool) error {
	_, err := tx.NewUpdate().
		Model((*models.Rule)(nil)).
		Set("pending_expiration = ?", pending).
		Where("id = ?", ruleID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set rule pending expiration: %w", err)
	}
	return nil
}

func (r *ruleRepository) SetViolationsPendingExpirationTx(ctx context.Context, tx bun.Tx, ruleID int64, pending bool) error {
	_, err := tx.NewUpdate().
		Model((*models.RuleViolation)(nil)).
		Set("pending_expiration = ?", pending).
		Where("rule_id = ?", ruleID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set violations pending expiration: %w", err)
	}
	return nil
}

func (r *ruleRepository) SetViolationPendingExpirationTx(ctx context.Context, tx bun.Tx, violationID int64, pending bool) error {
	_, err := tx.NewUpdate().
		Model((*models.RuleViolation)(nil)).
		Set("pending_expiration = ?", pending).
		Where("id = ?", violationID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set violation pending expiration: %w", err)
	}
	return nil
}

func (r *ruleRepository) DeleteReplacementsTx(ctx context.Context, tx bun.Tx, originalRuleID int64) error {
	// Replacement violations hang off replacement rules; remove them
	// first to keep references intact.
	_, err := tx.NewDelete().
		Model((*models.RuleViolation)(nil)).
		Where("rule_id IN (SELECT id FROM rules WHERE original_rule_id = ?)", originalRuleID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete replacement violations: %w", err)
	}

	_, err = tx.NewDelete().
		Model((*models.Rule)(nil)).
		Where("original_rule_id = ?", originalRuleID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete replacement rules: %w", err)
	}
	return nil
}

func (r *ruleRepository) DeleteViolationReplacementsTx(ctx context.Context, tx bun.Tx, originalViolationID int64) error {
	_, err := tx.NewDelete().
		Model((*models.RuleViolation)(nil)).
		Where("original_violation_id = ?", originalViolationID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete replacement violations: %w", err)
	}
	return nil
}

func (r *ruleRepository) SetNodeIDTx(ctx context.Context, tx bun.Tx, ruleID, nodeID int64) error {
	_, err := tx.NewUpdate().
		Model((*models.Rule)(nil)).
		Set("node_id = ?", nodeID).
		Where("id = ?", ruleID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set rule node: %w", err)
	}
	return nil
}
