package rules

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/uptrace/bun"
)

func TestCanExpire(t *testing.T) {
	started := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		startDate *time.Time
		pending   bool
		wantErr   error
	}{
		{"current rule", &started, false, nil},
		{"never in effect", nil, false, ErrNotCurrent},
		{"already pending", &started, true, ErrAlreadyPending},
		{"not current and pending", nil, true, ErrNotCurrent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := canExpire(tt.startDate, tt.pending)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("canExpire() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanRestore(t *testing.T) {
	if err := canRestore(true); err != nil {
		t.Errorf("canRestore(pending) = %v, want nil", err)
	}
	if err := canRestore(false); !errors.Is(err, ErrNotPending) {
		t.Errorf("canRestore(not pending) = %v, want ErrNotPending", err)
	}
}

// In-memory repositories for the workflow tests. The zero bun.Tx they
// receive is never touched; the service's runTx is swapped for a
// pass-through.
type fakeRuleRepo struct {
	rules      map[int64]*models.Rule
	violations map[int64]*models.RuleViolation
}

func (f *fakeRuleRepo) DB() *bun.DB { panic("unexpected DB access") }
func (f *fakeRuleRepo) Create(context.Context, *models.Rule) error {
	panic("unexpected write")
}
func (f *fakeRuleRepo) GetByID(_ context.Context, id int64) (*models.Rule, error) {
	return f.GetByIDTx(context.Background(), bun.Tx{}, id)
}
func (f *fakeRuleRepo) GetWithViolations(context.Context, int64) (*models.Rule, error) {
	panic("unexpected read")
}
func (f *fakeRuleRepo) GetCurrent(context.Context) ([]*models.Rule, error) {
	panic("unexpected read")
}
func (f *fakeRuleRepo) CreateViolation(context.Context, *models.RuleViolation) error {
	panic("unexpected write")
}
func (f *fakeRuleRepo) GetViolation(context.Context, int64) (*models.RuleViolation, error) {
	panic("unexpected read")
}

func (f *fakeRuleRepo) GetByIDTx(_ context.Context, _ bun.Tx, id int64) (*models.Rule, error) {
	rule, ok := f.rules[id]
	if !ok {
		return nil, repositories.ErrRuleNotFound
	}
	return rule, nil
}

func (f *fakeRuleRepo) GetViolationTx(_ context.Context, _ bun.Tx, id int64) (*models.RuleViolation, error) {
	violation, ok := f.violations[id]
	if !ok {
		return nil, repositories.ErrViolationNotFound
	}
	return violation, nil
}

func (f *fakeRuleRepo) SetPendingExpirationTx(_ context.Context, _ bun.Tx, ruleID int64, pending bool) error {
	f.rules[ruleID].PendingExpiration = pending
	return nil
}

func (f *fakeRuleRepo) SetViolationsPendingExpirationTx(_ context.Context, _ bun.Tx, ruleID int64, pending bool) error {
	for _, v := range f.violations {
		if v.RuleID == ruleID {
			v.PendingExpiration = pending
		}
	}
	return nil
}

func (f *fakeRuleRepo) SetViolationPendingExpirationTx(_ context.Context, _ bun.Tx, violationID int64, pending bool) error {
	f.violations[violationID].PendingExpiration = pending
	return nil
}

func (f *fakeRuleRepo) DeleteReplacementsTx(_ context.Context, _ bun.Tx, originalRuleID int64) error {
	for id, r := range f.rules {
		if r.OriginalRuleID != nil && *r.OriginalRuleID == originalRuleID {
			delete(f.rules, id)
		}
	}
	return nil
}

func (f *fakeRuleRepo) DeleteViolationReplacementsTx(_ context.Context, _ bun.Tx, originalViolationID int64) error {
	for id, v := range f.violations {
		if v.OriginalViolationID != nil && *v.OriginalViolationID == originalViolationID {
			delete(f.violations, id)
		}
	}
	return nil
}

func (f *fakeRuleRepo) SetNodeIDTx(_ context.Context, _ bun.Tx, ruleID, nodeID int64) error {
	f.rules[ruleID].NodeID = &nodeID
	return nil
}

type fakeNodeRepo struct {
	nextID int64
	nodes  map[int64]*models.Node
	posts  []*models.NodePost
}

func (f *fakeNodeRepo) DB() *bun.DB { panic("unexpected DB access") }
func (f *fakeNodeRepo) GetByID(context.Context, int64) (*models.Node, error) {
	panic("unexpected read")
}
func (f *fakeNodeRepo) GetWithPosts(context.Context, int64) (*models.Node, error) {
	panic("unexpected read")
}

func (f *fakeNodeRepo) CreateTx(_ context.Context, _ bun.Tx, node *models.Node) error {
	f.nextID++
	node.ID = f.nextID
	f.nodes[node.ID] = node
	return nil
}

func (f *fakeNodeRepo) SetLockedTx(_ context.Context, _ bun.Tx, id int64, locked bool) error {
	f.nodes[id].Locked = locked
	return nil
}

func (f *fakeNodeRepo) AppendPostTx(_ context.Context, _ bun.Tx, post *models.NodePost) error {
	f.posts = append(f.posts, post)
	return nil
}

const actorID = int64(99)

// ruleFixture builds rule 42 with two published violations, a drafted
// replacement rule and a drafted replacement violation.
func ruleFixture() (*fakeRuleRepo, *fakeNodeRepo, *Service) {
	started := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	originalRule := int64(1)
	originalViolation := int64(10)

	rules := &fakeRuleRepo{
		rules: map[int64]*models.Rule{
			1: {ID: 1, Number: 42, Name: "Be Kind", StartDate: &started},
			2: {ID: 2, Number: 42, Name: "Be Kind v2", OriginalRuleID: &originalRule},
		},
		violations: map[int64]*models.RuleViolation{
			10: {ID: 10, RuleID: 1, Number: 1, StartDate: &started},
			11: {ID: 11, RuleID: 1, Number: 2, StartDate: &started},
			12: {ID: 12, RuleID: 1, Number: 1, OriginalViolationID: &originalViolation},
		},
	}
	nodes := &fakeNodeRepo{nodes: map[int64]*models.Node{}}

	s := NewService(rules, nodes)
	s.runTx = func(ctx context.Context, fn func(tx bun.Tx) error) error {
		return fn(bun.Tx{})
	}
	return rules, nodes, s
}

func TestExpireRuleWorkflow(t *testing.T) {
	rules, nodes, s := ruleFixture()
	ctx := context.Background()

	if err := s.ExpireRule(ctx, actorID, 1); err != nil {
		t.Fatalf("ExpireRule() error = %v", err)
	}

	rule := rules.rules[1]
	if !rule.PendingExpiration {
		t.Error("rule not flagged pending expiration")
	}
	if !rules.violations[10].PendingExpiration || !rules.violations[11].PendingExpiration {
		t.Error("violations not flagged pending expiration")
	}
	if _, ok := rules.rules[2]; ok {
		t.Error("drafted replacement rule survived")
	}

	if rule.NodeID == nil {
		t.Fatal("thread not created on first expiration")
	}
	node := nodes.nodes[*rule.NodeID]
	if node.Title != "Rule 42: Be Kind" {
		t.Errorf("thread title = %q", node.Title)
	}
	if !node.Locked {
		t.Error("thread not locked")
	}
	if len(nodes.posts) != 1 || !strings.Contains(nodes.posts[0].Content, "pending expiration") {
		t.Errorf("audit posts = %+v", nodes.posts)
	}

	if err := s.ExpireRule(ctx, actorID, 1); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("second ExpireRule() error = %v, want ErrAlreadyPending", err)
	}
}

func TestExpireRuleRequiresPublishedRule(t *testing.T) {
	rules, _, s := ruleFixture()
	rules.rules[1].StartDate = nil

	if err := s.ExpireRule(context.Background(), actorID, 1); !errors.Is(err, ErrNotCurrent) {
		t.Errorf("ExpireRule(draft) error = %v, want ErrNotCurrent", err)
	}
}

func TestRestoreRuleWorkflow(t *testing.T) {
	rules, nodes, s := ruleFixture()
	ctx := context.Background()

	if err := s.RestoreRule(ctx, actorID, 1); !errors.Is(err, ErrNotPending) {
		t.Fatalf("RestoreRule(current) error = %v, want ErrNotPending", err)
	}

	if err := s.ExpireRule(ctx, actorID, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.RestoreRule(ctx, actorID, 1); err != nil {
		t.Fatalf("RestoreRule() error = %v", err)
	}

	rule := rules.rules[1]
	if rule.PendingExpiration {
		t.Error("rule still pending after restore")
	}
	if rules.violations[10].PendingExpiration || rules.violations[11].PendingExpiration {
		t.Error("violations still pending after restore")
	}
	if nodes.nodes[*rule.NodeID].Locked {
		t.Error("thread still locked after restore")
	}
	if len(nodes.nodes) != 1 {
		t.Error("restore created a second thread instead of reusing the rule's")
	}
	if len(nodes.posts) != 2 || !strings.Contains(nodes.posts[1].Content, "restored") {
		t.Errorf("audit posts = %+v", nodes.posts)
	}
}

func TestExpireViolationWorkflow(t *testing.T) {
	rules, nodes, s := ruleFixture()
	ctx := context.Background()

	if err := s.ExpireViolation(ctx, actorID, 10); err != nil {
		t.Fatalf("ExpireViolation() error = %v", err)
	}

	if !rules.violations[10].PendingExpiration {
		t.Error("violation not flagged pending expiration")
	}
	if rules.violations[11].PendingExpiration {
		t.Error("sibling violation flagged as well")
	}
	if _, ok := rules.violations[12]; ok {
		t.Error("drafted replacement violation survived")
	}

	// The rule had no thread yet, so the first violation expiration
	// creates it and links it back.
	rule := rules.rules[1]
	if rule.NodeID == nil {
		t.Fatal("thread not created lazily")
	}
	if len(nodes.posts) != 1 || !strings.Contains(nodes.posts[0].Content, "Violation 42.1") {
		t.Errorf("audit posts = %+v", nodes.posts)
	}

	if err := s.RestoreViolation(ctx, actorID, 10); err != nil {
		t.Fatalf("RestoreViolation() error = %v", err)
	}
	if rules.violations[10].PendingExpiration {
		t.Error("violation still pending after restore")
	}
	if err := s.RestoreViolation(ctx, actorID, 11); !errors.Is(err, ErrNotPending) {
		t.Errorf("RestoreViolation(current) error = %v, want ErrNotPending", err)
	}
}
