package repository

import (
	"context"
	"time"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

// Filter narrows donation listings. Nil/zero fields are ignored.
type Filter struct {
	Statuses       []models.Status
	DonorID        string
	ClaimedBy      string
	VolunteerID    string
	FoodCategory   *models.FoodCategory
	ExpiringBefore *time.Time
	MaxQuantity    int // payload cap for volunteer eligibility
	Limit          int
	Offset         int
}

// DonationRepository persists the contended donation records. UpdateCAS is the
// only mutation path after creation: it matches on (id, version) and returns
// ConflictError{StaleVersion} when another writer got there first.
type DonationRepository interface {
	Add(ctx context.Context, d *models.Donation) error
	GetByID(ctx context.Context, id string) (*models.Donation, error)
	List(ctx context.Context, opts Filter) ([]models.Donation, error)
	UpdateCAS(ctx context.Context, d *models.Donation) error
	// UpdateCASWithCustody is the CAS write plus a custody-ledger append in a
	// single transaction, for the evidence-bearing confirmations.
	UpdateCASWithCustody(ctx context.Context, d *models.Donation, r *models.CustodyRecord) error
}

// CustodyRepository is the append-only evidence ledger. No update or delete
// exists on purpose.
type CustodyRepository interface {
	AppendCustody(ctx context.Context, r *models.CustodyRecord) error
	CustodyFor(ctx context.Context, donationID string) ([]models.CustodyRecord, error)
}

// CancellationRepository logs volunteer mission aborts for reporting.
type CancellationRepository interface {
	LogCancellation(ctx context.Context, c *models.MissionCancellation) error
	CancellationsFor(ctx context.Context, donationID string) ([]models.MissionCancellation, error)
}

// ProfileRepository holds the actor standing data the core reads for
// admission and eligibility checks.
type ProfileRepository interface {
	UpsertNGO(ctx context.Context, p *models.NGOProfile) error
	GetNGO(ctx context.Context, id string) (*models.NGOProfile, error)
	UpsertVolunteer(ctx context.Context, p *models.VolunteerProfile) error
	GetVolunteer(ctx context.Context, id string) (*models.VolunteerProfile, error)
	IncrementCompletedMissions(ctx context.Context, volunteerID string) error
}

// Stats is the read-only projection returned to donor and NGO dashboards.
type Stats struct {
	Posted          int `json:"posted"`
	Claimed         int `json:"claimed"`
	InTransit       int `json:"in_transit"`
	Completed       int `json:"completed"`
	Cancelled       int `json:"cancelled"`
	Expired         int `json:"expired"`
	MealsMovedToday int `json:"meals_moved_today"`
}

// StatsRepository aggregates counters per actor. Not part of the state
// machine; eventually consistent reads are fine here.
type StatsRepository interface {
	DonorStats(ctx context.Context, donorID string) (*Stats, error)
	NGOStats(ctx context.Context, ngoID string) (*Stats, error)
}

// Store is everything the coordinator needs from persistence.
type Store interface {
	DonationRepository
	CustodyRepository
	CancellationRepository
	ProfileRepository
	StatsRepository
}
