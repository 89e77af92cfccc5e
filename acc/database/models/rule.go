package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RuleCategory struct {
	bun.BaseModel `bun:"table:rule_categories,alias:rc"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// Rule is a versioned policy entry. A rule with no StartDate is a
// draft; setting StartDate publishes it. Replacements link back through
// OriginalRuleID.
type Rule struct {
	bun.BaseModel `bun:"table:rules,alias:r"`

	ID                int64      `bun:"id,pk,autoincrement"`
	Number            int        `bun:"number,notnull"`
	Name              string     `bun:"name,notnull"`
	Description       string     `bun:"description,notnull"`
	CategoryID        int64      `bun:"category_id,notnull"`
	StartDate         *time.Time `bun:"start_date"`
	PendingExpiration bool       `bun:"pending_expiration,notnull,default:false"`
	OriginalRuleID    *int64     `bun:"original_rule_id"`
	NodeID            *int64     `bun:"node_id"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Violations []*RuleViolation `bun:"rel:has-many,join:id=rule_id"`
}

// Current reports whether the rule is published and not mid-expiration.
func (r *Rule) Current() bool {
	return r.StartDate != nil && !r.PendingExpiration
}

type RuleViolation struct {
	bun.BaseModel `bun:"table:rule_violations,alias:rv"`

	ID                  int64      `bun:"id,pk,autoincrement"`
	RuleID              int64      `bun:"rule_id,notnull"`
	SeverityID          int64      `bun:"severity_id,notnull"`
	Violation           string     `bun:"violation,notnull"`
	Number              int        `bun:"number,notnull"`
	StartDate           *time.Time `bun:"start_date"`
	PendingExpiration   bool       `bun:"pending_expiration,notnull,default:false"`
	OriginalViolationID *int64     `bun:"original_violation_id"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (v *RuleViolation) Current() bool {
	return v.StartDate != nil && !v.PendingExpiration
}
