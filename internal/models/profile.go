package models

// NGOProfile holds the receiving side's standing data. Owned by the NGO;
// the core only reads it for capacity admission and delivery routing.
type NGOProfile struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	DailyCapacity     int         `json:"daily_capacity"` // meal units per day
	StorageFacilities []string    `json:"storage_facilities,omitempty"`
	IsUrgentNeed      bool        `json:"is_urgent_need"`
	Coordinates       Coordinates `json:"coordinates"`
	Address           string      `json:"address"`
}

// VolunteerTier is derived from completed-mission count, reported as metadata
// in mission listings.
type VolunteerTier string

const (
	TierRookie   VolunteerTier = "rookie"
	TierHero     VolunteerTier = "hero"
	TierChampion VolunteerTier = "champion"
)

type VolunteerProfile struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	VehicleType       string      `json:"vehicle_type"`
	MaxWeight         int         `json:"max_weight"` // kg
	CompletedMissions int         `json:"completed_missions"`
	CurrentLocation   Coordinates `json:"current_location"`
}

func (v *VolunteerProfile) Tier() VolunteerTier {
	switch {
	case v.CompletedMissions >= 50:
		return TierChampion
	case v.CompletedMissions >= 10:
		return TierHero
	default:
		return TierRookie
	}
}
