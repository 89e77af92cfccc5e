// Package permissions resolves whether a user may perform an
// operation, combining direct grants with group-derived grants.
package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/acc-community/acc/acc/cache"
	"github.com/acc-community/acc/acc/database/repositories"
)

// Grant is a single resolved grant row, normalized across the user and
// group tables.
type Grant struct {
	UserLevel bool
	TypeID    int
	Granted   bool
	CreatedAt time.Time
}

type Oracle struct {
	perms repositories.PermissionRepository
	users repositories.UserRepository
	cache *cache.Cache
}

func NewOracle(perms repositories.PermissionRepository, users repositories.UserRepository, c *cache.Cache) *Oracle {
	return &Oracle{perms: perms, users: users, cache: c}
}

// Has reports whether userID holds the named permission. A banned user
// has zero permissions regardless of underlying grants.
func (o *Oracle) Has(ctx context.Context, userID int64, permission string) (bool, error) {
	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user.Banned() {
		return false, nil
	}

	// Grant resolution is cached per user and permission; the ban check
	// above always hits the users table.
	key := cache.PermissionKey(userID) + ":" + permission
	v, err := o.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		granted, err := o.resolve(ctx, userID, permission)
		return granted, err
	})
	if err != nil {
		return false, err
	}

	granted := v.(bool)
	slog.Debug("Permission resolved",
		slog.Int64("user_id", userID),
		slog.String("permission", permission),
		slog.Bool("granted", granted))
	return granted, nil
}

func (o *Oracle) resolve(ctx context.Context, userID int64, permission string) (bool, error) {
	userGrants, err := o.perms.GetUserGrants(ctx, userID, permission)
	if err != nil {
		return false, err
	}

	groupIDs, err := o.groupClosure(ctx, userID)
	if err != nil {
		return false, err
	}

	groupGrants, err := o.perms.GetGroupGrants(ctx, groupIDs, permission)
	if err != nil {
		return false, err
	}

	grants := make([]Grant, 0, len(userGrants)+len(groupGrants))
	for _, g := range userGrants {
		grants = append(grants, Grant{UserLevel: true, TypeID: g.TypeID, Granted: g.Granted, CreatedAt: g.CreatedAt})
	}
	for _, g := range groupGrants {
		grants = append(grants, Grant{TypeID: g.TypeID, Granted: g.Granted, CreatedAt: g.CreatedAt})
	}

	return Resolve(grants), nil
}

// Invalidate drops every cached resolution for one user, e.g. after a
// grant change or a ban.
func (o *Oracle) Invalidate(userID int64) {
	o.cache.DeleteMatch(cache.PermissionKey(userID))
}

// InvalidateAll drops every cached resolution plus the group closure.
// A group-level grant changes answers for users we cannot enumerate
// from here.
func (o *Oracle) InvalidateAll() {
	o.cache.DeleteMatch("permissions:")
}

// Resolve applies the precedence rules to a set of grants: user-level
// beats group-level, then higher type id, then recency. No grants means
// no permission.
func Resolve(grants []Grant) bool {
	if len(grants) == 0 {
		return false
	}

	sorted := make([]Grant, len(grants))
	copy(sorted, grants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UserLevel != sorted[j].UserLevel {
			return sorted[i].UserLevel
		}
		if sorted[i].TypeID != sorted[j].TypeID {
			return sorted[i].TypeID > sorted[j].TypeID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	return sorted[0].Granted
}

// groupClosure returns the user's group ids expanded through parent
// inheritance. The group graph is small and changes rarely, so the full
// table is cached once and walked in memory.
func (o *Oracle) groupClosure(ctx context.Context, userID int64) ([]int64, error) {
	direct, err := o.perms.GetUserGroupIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(direct) == 0 {
		return nil, nil
	}

	v, err := o.cache.Get(ctx, cache.GroupClosureKey(), func(ctx context.Context) (interface{}, error) {
		groups, err := o.perms.GetAllGroups(ctx)
		if err != nil {
			return nil, err
		}
		parents := make(map[int64]*int64, len(groups))
		for _, g := range groups {
			parents[g.ID] = g.ParentID
		}
		return parents, nil
	})
	if err != nil {
		return nil, err
	}
	parents := v.(map[int64]*int64)

	return ExpandClosure(direct, parents), nil
}

// ExpandClosure walks parent links from each starting group, deduping
// and guarding against cycles.
func ExpandClosure(direct []int64, parents map[int64]*int64) []int64 {
	seen := make(map[int64]bool)
	var closure []int64

	var walk func(id int64)
	walk = func(id int64) {
		if seen[id] {
			return
		}
		seen[id] = true
		closure = append(closure, id)
		if parent, ok := parents[id]; ok && parent != nil {
			walk(*parent)
		}
	}

	for _, id := range direct {
		walk(id)
	}
	return closure
}
