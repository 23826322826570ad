package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

func (s *SQLiteDB) UpsertNGO(ctx context.Context, p *models.NGOProfile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO ngo_profiles
			(id, name, daily_capacity, storage_facilities, is_urgent_need, latitude, longitude, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			daily_capacity = excluded.daily_capacity,
			storage_facilities = excluded.storage_facilities,
			is_urgent_need = excluded.is_urgent_need,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			address = excluded.address`,
		p.ID, p.Name, p.DailyCapacity, encodeStrings(p.StorageFacilities),
		p.IsUrgentNeed, p.Coordinates.Latitude, p.Coordinates.Longitude, p.Address,
	)
	if err != nil {
		return fmt.Errorf("error upserting ngo profile: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetNGO(ctx context.Context, id string) (*models.NGOProfile, error) {
	var (
		p          models.NGOProfile
		facilities string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, daily_capacity,
			storage_facilities, is_urgent_need, latitude, longitude, address
		FROM ngo_profiles WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &p.DailyCapacity, &facilities, &p.IsUrgentNeed,
		&p.Coordinates.Latitude, &p.Coordinates.Longitude, &p.Address,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading ngo profile: %w", err)
	}
	p.StorageFacilities = decodeStrings(facilities)
	return &p, nil
}

func (s *SQLiteDB) UpsertVolunteer(ctx context.Context, p *models.VolunteerProfile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO volunteer_profiles
			(id, name, vehicle_type, max_weight, completed_missions, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			vehicle_type = excluded.vehicle_type,
			max_weight = excluded.max_weight,
			completed_missions = excluded.completed_missions,
			latitude = excluded.latitude,
			longitude = excluded.longitude`,
		p.ID, p.Name, p.VehicleType, p.MaxWeight, p.CompletedMissions,
		p.CurrentLocation.Latitude, p.CurrentLocation.Longitude,
	)
	if err != nil {
		return fmt.Errorf("error upserting volunteer profile: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetVolunteer(ctx context.Context, id string) (*models.VolunteerProfile, error) {
	var p models.VolunteerProfile
	err := s.db.QueryRowContext(ctx, `SELECT id, name, vehicle_type, max_weight,
			completed_missions, latitude, longitude
		FROM volunteer_profiles WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &p.VehicleType, &p.MaxWeight, &p.CompletedMissions,
		&p.CurrentLocation.Latitude, &p.CurrentLocation.Longitude,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading volunteer profile: %w", err)
	}
	return &p, nil
}

// IncrementCompletedMissions bumps the volunteer's tier counter after a
// completed donation. Missing profiles are ignored: tiers are reporting
// metadata, not correctness.
func (s *SQLiteDB) IncrementCompletedMissions(ctx context.Context, volunteerID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE volunteer_profiles SET completed_missions = completed_missions + 1 WHERE id = ?",
		volunteerID,
	)
	if err != nil {
		return fmt.Errorf("error incrementing completed missions: %w", err)
	}
	return nil
}
