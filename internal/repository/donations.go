package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

const donationColumns = `id, donor_id, title, quantity, food_category, storage_req,
	perishability, allergens, dietary_tags, latitude, longitude, pickup_address,
	expiry_date, window_start, window_end, status, delivery_status, claimed_by,
	ngo_latitude, ngo_longitude, ngo_address, volunteer_id, pickup_photo,
	delivery_photo, delivery_notes, rejection_reason, rating, rating_comment,
	version, created_at, updated_at`

func (s *SQLiteDB) Add(ctx context.Context, d *models.Donation) error {
	query := fmt.Sprintf(`INSERT INTO donations (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		donationColumns)

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.DonorID, d.Title, d.Quantity, string(d.FoodCategory), d.StorageReq,
		d.Perishability, encodeStrings(d.Allergens), encodeStrings(d.DietaryTags),
		d.Coordinates.Latitude, d.Coordinates.Longitude, d.PickupAddress,
		d.ExpiryDate, d.PickupWindow.Start, d.PickupWindow.End,
		string(d.Status), string(d.DeliveryStatus), d.ClaimedBy,
		d.NGOCoordinates.Latitude, d.NGOCoordinates.Longitude, d.NGOAddress,
		d.AssignedVolunteerID, d.PickupPhoto, d.DeliveryPhoto, d.DeliveryNotes,
		string(d.RejectionReason), d.Rating, d.RatingComment,
		d.Version, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting donation: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.Donation, error) {
	query := fmt.Sprintf("SELECT %s FROM donations WHERE id = ?", donationColumns)
	row := s.db.QueryRowContext(ctx, query, id)

	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning donation: %w", err)
	}
	return d, nil
}

func (s *SQLiteDB) List(ctx context.Context, opts Filter) ([]models.Donation, error) {
	var (
		where []string
		args  []any
	)

	if len(opts.Statuses) > 0 {
		ph := make([]string, len(opts.Statuses))
		for i, st := range opts.Statuses {
			ph[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, fmt.Sprintf("status IN (%s)", strings.Join(ph, ", ")))
	}
	if opts.DonorID != "" {
		where = append(where, "donor_id = ?")
		args = append(args, opts.DonorID)
	}
	if opts.ClaimedBy != "" {
		where = append(where, "claimed_by = ?")
		args = append(args, opts.ClaimedBy)
	}
	if opts.VolunteerID != "" {
		where = append(where, "volunteer_id = ?")
		args = append(args, opts.VolunteerID)
	}
	if opts.FoodCategory != nil {
		where = append(where, "food_category = ?")
		args = append(args, string(*opts.FoodCategory))
	}
	if opts.ExpiringBefore != nil {
		where = append(where, "expiry_date <= ?")
		args = append(args, *opts.ExpiringBefore)
	}
	if opts.MaxQuantity > 0 {
		where = append(where, "quantity <= ?")
		args = append(args, opts.MaxQuantity)
	}

	query := fmt.Sprintf("SELECT %s FROM donations", donationColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY expiry_date ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing donations: %w", err)
	}
	defer rows.Close()

	var out []models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning donation row: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// execer is satisfied by both *sql.DB and *sql.Tx so the CAS write can run
// standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UpdateCAS writes the mutated record only if nobody else has bumped the
// version since it was read. On a miss it distinguishes a lost race from an
// unknown id so callers can surface the right error.
func (s *SQLiteDB) UpdateCAS(ctx context.Context, d *models.Donation) error {
	if err := updateCAS(ctx, s.db, d); err != nil {
		return err
	}
	d.Version++
	return nil
}

// UpdateCASWithCustody lands the status write and the evidence row in one
// transaction. Either both persist or neither does, so the ledger can never
// lag a transition that actually happened.
func (s *SQLiteDB) UpdateCASWithCustody(ctx context.Context, d *models.Donation, r *models.CustodyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting custody transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateCAS(ctx, tx, d); err != nil {
		return err
	}
	if err := insertCustody(ctx, tx, r); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing custody transaction: %w", err)
	}
	d.Version++
	return nil
}

func updateCAS(ctx context.Context, ex execer, d *models.Donation) error {
	res, err := ex.ExecContext(ctx, `UPDATE donations SET
			status = ?, delivery_status = ?, claimed_by = ?,
			ngo_latitude = ?, ngo_longitude = ?, ngo_address = ?,
			volunteer_id = ?, pickup_photo = ?, delivery_photo = ?,
			delivery_notes = ?, rejection_reason = ?, rating = ?, rating_comment = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(d.Status), string(d.DeliveryStatus), d.ClaimedBy,
		d.NGOCoordinates.Latitude, d.NGOCoordinates.Longitude, d.NGOAddress,
		d.AssignedVolunteerID, d.PickupPhoto, d.DeliveryPhoto,
		d.DeliveryNotes, string(d.RejectionReason), d.Rating, d.RatingComment,
		time.Now().UTC(), d.ID, d.Version,
	)
	if err != nil {
		return fmt.Errorf("error updating donation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := ex.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM donations WHERE id = ?)", d.ID).Scan(&exists); err != nil {
		return fmt.Errorf("error checking donation existence: %w", err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return &models.ConflictError{Kind: models.ConflictStaleVersion}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(r rowScanner) (*models.Donation, error) {
	var (
		d                    models.Donation
		category, status     string
		deliveryStatus       string
		allergens, dietary   string
		rejection            string
	)

	err := r.Scan(
		&d.ID, &d.DonorID, &d.Title, &d.Quantity, &category, &d.StorageReq,
		&d.Perishability, &allergens, &dietary,
		&d.Coordinates.Latitude, &d.Coordinates.Longitude, &d.PickupAddress,
		&d.ExpiryDate, &d.PickupWindow.Start, &d.PickupWindow.End,
		&status, &deliveryStatus, &d.ClaimedBy,
		&d.NGOCoordinates.Latitude, &d.NGOCoordinates.Longitude, &d.NGOAddress,
		&d.AssignedVolunteerID, &d.PickupPhoto, &d.DeliveryPhoto, &d.DeliveryNotes,
		&rejection, &d.Rating, &d.RatingComment,
		&d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.FoodCategory = models.FoodCategory(category)
	d.Status = models.Status(status)
	d.DeliveryStatus = models.DeliveryStatus(deliveryStatus)
	d.RejectionReason = models.RejectionReason(rejection)
	d.Allergens = decodeStrings(allergens)
	d.DietaryTags = decodeStrings(dietary)
	return &d, nil
}

func encodeStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
