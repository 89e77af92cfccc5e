package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/acc-community/acc/acc/cache"
	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/database/repositories"
	"golang.org/x/sync/errgroup"
)

const recomputeConcurrency = 8

// LeaderboardService serves the top-bells ranking and rebuilds the
// denormalized aggregate rows behind it.
type LeaderboardService struct {
	treasures repositories.TreasureRepository
	cache     *cache.Cache
	threshold time.Duration
}

func NewLeaderboardService(treasures repositories.TreasureRepository, c *cache.Cache, threshold time.Duration) *LeaderboardService {
	return &LeaderboardService{
		treasures: treasures,
		cache:     c,
		threshold: threshold,
	}
}

// TopBells returns the ranked aggregate rows, cache-through.
func (s *LeaderboardService) TopBells(ctx context.Context, limit int) ([]*models.TopBell, error) {
	value, err := s.cache.Get(ctx, cache.TopBellsKey(limit), func(ctx context.Context) (interface{}, error) {
		return s.treasures.GetTopBells(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return value.([]*models.TopBell), nil
}

// Invalidate drops every cached ranking page. Called after any
// treasure mutation that changes a user's aggregate row.
func (s *LeaderboardService) Invalidate() {
	s.cache.DeleteMatch("topbells:")
}

// RecomputeAll rebuilds every user's aggregate row. Used after a
// jackpot claim flips old offers to missed for many users at once.
func (s *LeaderboardService) RecomputeAll(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := start.Add(-s.threshold)

	ids, err := s.treasures.DistinctUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)

	for _, id := range ids {
		userID := id
		g.Go(func() error {
			return s.recomputeUser(ctx, userID, cutoff)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.cache.DeleteMatch("topbells:")

	slog.Info("Leaderboard recomputed",
		slog.String("type", "sys"),
		slog.Int("users", len(ids)),
		slog.Duration("took", time.Since(start)))
	return len(ids), nil
}

func (s *LeaderboardService) recomputeUser(ctx context.Context, userID int64, cutoff time.Time) error {
	tx, err := s.treasures.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.treasures.RecomputeTopBellTx(ctx, tx, userID, cutoff); err != nil {
		return err
	}
	return tx.Commit()
}
