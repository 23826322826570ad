package repository

import (
	"context"
	"fmt"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

// AppendCustody writes one immutable evidence record. There is deliberately no
// update path: a bad record is corrected by appending another.
func (s *SQLiteDB) AppendCustody(ctx context.Context, r *models.CustodyRecord) error {
	return insertCustody(ctx, s.db, r)
}

func insertCustody(ctx context.Context, ex execer, r *models.CustodyRecord) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO custody_records
			(id, donation_id, checkpoint, photo_url, notes, actor_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DonationID, r.Checkpoint, r.PhotoURL, r.Notes, r.ActorID, r.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("error appending custody record: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CustodyFor(ctx context.Context, donationID string) ([]models.CustodyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, donation_id, checkpoint,
			photo_url, notes, actor_id, recorded_at
		FROM custody_records WHERE donation_id = ? ORDER BY recorded_at ASC`,
		donationID,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing custody records: %w", err)
	}
	defer rows.Close()

	var out []models.CustodyRecord
	for rows.Next() {
		var r models.CustodyRecord
		if err := rows.Scan(&r.ID, &r.DonationID, &r.Checkpoint,
			&r.PhotoURL, &r.Notes, &r.ActorID, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("error scanning custody record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) LogCancellation(ctx context.Context, c *models.MissionCancellation) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO mission_cancellations
			(id, donation_id, volunteer_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.DonationID, c.VolunteerID, string(c.Reason), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error logging cancellation: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CancellationsFor(ctx context.Context, donationID string) ([]models.MissionCancellation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, donation_id, volunteer_id, reason, created_at
		FROM mission_cancellations WHERE donation_id = ? ORDER BY created_at ASC`,
		donationID,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing cancellations: %w", err)
	}
	defer rows.Close()

	var out []models.MissionCancellation
	for rows.Next() {
		var c models.MissionCancellation
		var reason string
		if err := rows.Scan(&c.ID, &c.DonationID, &c.VolunteerID, &reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning cancellation: %w", err)
		}
		c.Reason = models.CancelReason(reason)
		out = append(out, c)
	}
	return out, rows.Err()
}
