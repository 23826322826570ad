package repository

import (
	"context"
	"fmt"
	"time"
)

// Stats projections. These are read-only dashboard counters, deliberately
// outside the state machine; slight staleness is acceptable.

func (s *SQLiteDB) DonorStats(ctx context.Context, donorID string) (*Stats, error) {
	return s.aggregateStats(ctx, "donor_id", donorID)
}

func (s *SQLiteDB) NGOStats(ctx context.Context, ngoID string) (*Stats, error) {
	return s.aggregateStats(ctx, "claimed_by", ngoID)
}

func (s *SQLiteDB) aggregateStats(ctx context.Context, column, actorID string) (*Stats, error) {
	query := fmt.Sprintf(`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status IN ('assigned', 'accepted', 'at_pickup', 'picked_up', 'at_delivery', 'delivered') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('at_pickup', 'picked_up', 'at_delivery') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' AND updated_at >= ? THEN quantity ELSE 0 END), 0)
		FROM donations WHERE %s = ?`, column)

	midnight := time.Now().UTC().Truncate(24 * time.Hour)

	var st Stats
	err := s.db.QueryRowContext(ctx, query, midnight, actorID).Scan(
		&st.Posted, &st.Claimed, &st.InTransit, &st.Completed,
		&st.Cancelled, &st.Expired, &st.MealsMovedToday,
	)
	if err != nil {
		return nil, fmt.Errorf("error aggregating stats: %w", err)
	}
	return &st, nil
}
