// Package rules implements the rule and violation expiration workflow.
// Every mutation appends a post to the rule's discussion thread; the
// thread is the audit trail and is created lazily on first use.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/uptrace/bun"
)

var (
	ErrNotCurrent     = errors.New("rule is not current")
	ErrAlreadyPending = errors.New("expiration already pending")
	ErrNotPending     = errors.New("no expiration pending")
)

// canExpire checks the expire precondition shared by rules and
// violations: published, and not already mid-expiration.
func canExpire(startDate *time.Time, pending bool) error {
	if startDate == nil {
		return ErrNotCurrent
	}
	if pending {
		return ErrAlreadyPending
	}
	return nil
}

func canRestore(pending bool) error {
	if !pending {
		return ErrNotPending
	}
	return nil
}

type Service struct {
	rules repositories.RuleRepository
	nodes repositories.NodeRepository

	// runTx wraps each workflow in a database transaction. Tests swap
	// it for a pass-through.
	runTx func(ctx context.Context, fn func(tx bun.Tx) error) error
}

func NewService(rules repositories.RuleRepository, nodes repositories.NodeRepository) *Service {
	if rules == nil || nodes == nil {
		panic("rule repositories cannot be nil")
	}
	s := &Service{rules: rules, nodes: nodes}
	s.runTx = s.inTx
	return s
}

// ExpireRule marks a published rule and all of its violations pending
// expiration, discards any drafted replacements, and locks the rule's
// discussion thread.
func (s *Service) ExpireRule(ctx context.Context, actorID, ruleID int64) error {
	return s.runTx(ctx, func(tx bun.Tx) error {
		rule, err := s.rules.GetByIDTx(ctx, tx, ruleID)
		if err != nil {
			return err
		}
		if err := canExpire(rule.StartDate, rule.PendingExpiration); err != nil {
			return err
		}

		if err := s.rules.SetPendingExpirationTx(ctx, tx, rule.ID, true); err != nil {
			return err
		}
		if err := s.rules.SetViolationsPendingExpirationTx(ctx, tx, rule.ID, true); err != nil {
			return err
		}
		if err := s.rules.DeleteReplacementsTx(ctx, tx, rule.ID); err != nil {
			return err
		}

		nodeID, err := s.ensureThreadTx(ctx, tx, rule, actorID)
		if err != nil {
			return err
		}
		if err := s.appendPostTx(ctx, tx, nodeID, actorID,
			fmt.Sprintf("Rule %d (%s) is pending expiration.", rule.Number, rule.Name)); err != nil {
			return err
		}

		slog.Info("Rule expired",
			slog.Int64("rule_id", rule.ID),
			slog.Int64("actor_id", actorID))
		return s.nodes.SetLockedTx(ctx, tx, nodeID, true)
	})
}

// RestoreRule takes a pending rule back to current, clears its
// violations, and unlocks the thread.
func (s *Service) RestoreRule(ctx context.Context, actorID, ruleID int64) error {
	return s.runTx(ctx, func(tx bun.Tx) error {
		rule, err := s.rules.GetByIDTx(ctx, tx, ruleID)
		if err != nil {
			return err
		}
		if err := canRestore(rule.PendingExpiration); err != nil {
			return err
		}

		if err := s.rules.SetPendingExpirationTx(ctx, tx, rule.ID, false); err != nil {
			return err
		}
		if err := s.rules.SetViolationsPendingExpirationTx(ctx, tx, rule.ID, false); err != nil {
			return err
		}

		nodeID, err := s.ensureThreadTx(ctx, tx, rule, actorID)
		if err != nil {
			return err
		}
		if err := s.nodes.SetLockedTx(ctx, tx, nodeID, false); err != nil {
			return err
		}

		slog.Info("Rule restored",
			slog.Int64("rule_id", rule.ID),
			slog.Int64("actor_id", actorID))
		return s.appendPostTx(ctx, tx, nodeID, actorID,
			fmt.Sprintf("Rule %d (%s) was restored.", rule.Number, rule.Name))
	})
}

// ExpireViolation marks a single published violation pending
// expiration and drops drafted replacements for it.
func (s *Service) ExpireViolation(ctx context.Context, actorID, violationID int64) error {
	return s.runTx(ctx, func(tx bun.Tx) error {
		violation, err := s.rules.GetViolationTx(ctx, tx, violationID)
		if err != nil {
			return err
		}
		if err := canExpire(violation.StartDate, violation.PendingExpiration); err != nil {
			return err
		}

		if err := s.rules.SetViolationPendingExpirationTx(ctx, tx, violation.ID, true); err != nil {
			return err
		}
		if err := s.rules.DeleteViolationReplacementsTx(ctx, tx, violation.ID); err != nil {
			return err
		}

		rule, err := s.rules.GetByIDTx(ctx, tx, violation.RuleID)
		if err != nil {
			return err
		}
		nodeID, err := s.ensureThreadTx(ctx, tx, rule, actorID)
		if err != nil {
			return err
		}
		return s.appendPostTx(ctx, tx, nodeID, actorID,
			fmt.Sprintf("Violation %d.%d is pending expiration.", rule.Number, violation.Number))
	})
}

// RestoreViolation clears a single violation's pending flag.
func (s *Service) RestoreViolation(ctx context.Context, actorID, violationID int64) error {
	return s.runTx(ctx, func(tx bun.Tx) error {
		violation, err := s.rules.GetViolationTx(ctx, tx, violationID)
		if err != nil {
			return err
		}
		if err := canRestore(violation.PendingExpiration); err != nil {
			return err
		}

		if err := s.rules.SetViolationPendingExpirationTx(ctx, tx, violation.ID, false); err != nil {
			return err
		}

		rule, err := s.rules.GetByIDTx(ctx, tx, violation.RuleID)
		if err != nil {
			return err
		}
		nodeID, err := s.ensureThreadTx(ctx, tx, rule, actorID)
		if err != nil {
			return err
		}
		return s.appendPostTx(ctx, tx, nodeID, actorID,
			fmt.Sprintf("Violation %d.%d was restored.", rule.Number, violation.Number))
	})
}

// ensureThreadTx returns the rule's discussion thread, creating it on
// first use and linking it back onto the rule row.
func (s *Service) ensureThreadTx(ctx context.Context, tx bun.Tx, rule *models.Rule, actorID int64) (int64, error) {
	if rule.NodeID != nil {
		return *rule.NodeID, nil
	}

	node := &models.Node{
		Title:     fmt.Sprintf("Rule %d: %s", rule.Number, rule.Name),
		CreatorID: actorID,
	}
	if err := s.nodes.CreateTx(ctx, tx, node); err != nil {
		return 0, err
	}
	if err := s.rules.SetNodeIDTx(ctx, tx, rule.ID, node.ID); err != nil {
		return 0, err
	}

	rule.NodeID = &node.ID
	return node.ID, nil
}

func (s *Service) appendPostTx(ctx context.Context, tx bun.Tx, nodeID, actorID int64, content string) error {
	return s.nodes.AppendPostTx(ctx, tx, &models.NodePost{
		NodeID:  nodeID,
		UserID:  actorID,
		Content: content,
	})
}

func (s *Service) inTx(ctx context.Context, fn func(tx bun.Tx) error) error {
	tx, err := s.rules.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
