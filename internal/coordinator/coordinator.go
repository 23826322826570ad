// Package coordinator arbitrates the donation lifecycle under concurrent
// actors. Every mutation loads the record, validates the transition against
// the lifecycle graph, and writes back through a versioned compare-and-swap;
// losers surface typed conflicts instead of clobbering the winner. Operations
// on different donations never serialize against each other.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/surpluslink/go-surpluslink/internal/capacity"
	"github.com/surpluslink/go-surpluslink/internal/expiry"
	"github.com/surpluslink/go-surpluslink/internal/lifecycle"
	"github.com/surpluslink/go-surpluslink/internal/models"
	"github.com/surpluslink/go-surpluslink/internal/notify"
	"github.com/surpluslink/go-surpluslink/internal/repository"
	"github.com/surpluslink/go-surpluslink/internal/routing"
)

// Config tunes coordinator policy. Defaults preserve observed behavior:
// capacity is advisory, I/O is bounded at 5s.
type Config struct {
	// HardCapacityLimit turns the over-capacity warning into a claim block.
	HardCapacityLimit bool
	// OpTimeout bounds each dependent I/O call.
	OpTimeout time.Duration
	// Now injects the clock for tests and the sweep.
	Now func() time.Time
}

type Coordinator struct {
	store       repository.Store
	capacity    *capacity.Tracker
	broadcaster *notify.Broadcaster
	cfg         Config
}

func New(store repository.Store, tracker *capacity.Tracker, b *notify.Broadcaster, cfg Config) *Coordinator {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		store:       store,
		capacity:    tracker,
		broadcaster: b,
		cfg:         cfg,
	}
}

func (c *Coordinator) now() time.Time { return c.cfg.Now().UTC() }

// opCtx bounds dependent I/O so a dead collaborator fails fast instead of
// hanging the caller.
func (c *Coordinator) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.OpTimeout)
}

func wrapTimeout(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &models.TimeoutError{Op: op, Err: err}
	}
	return err
}

func (c *Coordinator) publish(t models.EventType, d *models.Donation, actorID string) {
	if c.broadcaster == nil {
		return
	}
	c.broadcaster.Publish(&models.Event{
		Type:       t,
		DonationID: d.ID,
		ActorID:    actorID,
		Title:      d.Title,
		At:         c.now(),
	})
}

// PostDonationInput is what a donor supplies. Everything else is derived.
type PostDonationInput struct {
	DonorID       string              `json:"donor_id"`
	Title         string              `json:"title"`
	Quantity      int                 `json:"quantity"`
	FoodCategory  models.FoodCategory `json:"food_category"`
	StorageReq    string              `json:"storage_req"`
	Perishability string              `json:"perishability"`
	Allergens     []string            `json:"allergens"`
	DietaryTags   []string            `json:"dietary_tags"`
	Coordinates   models.Coordinates  `json:"coordinates"`
	PickupAddress string              `json:"pickup_address"`
	ExpiryDate    time.Time           `json:"expiry_date"`
	PickupWindow  models.PickupWindow `json:"pickup_window"`
}

// PostDonation validates and creates a donation in active. The
// window-outlives-expiry case is a hard error here, not a warning.
func (c *Coordinator) PostDonation(ctx context.Context, in PostDonationInput) (*models.Donation, error) {
	now := c.now()

	switch {
	case in.DonorID == "":
		return nil, &models.ValidationError{Field: "donor_id", Reason: "required"}
	case in.Title == "":
		return nil, &models.ValidationError{Field: "title", Reason: "required"}
	case in.Quantity <= 0:
		return nil, &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	switch in.FoodCategory {
	case models.FoodCooked, models.FoodRaw, models.FoodPackaged:
	default:
		return nil, &models.ValidationError{Field: "food_category", Reason: "must be cooked, raw or packaged"}
	}
	if expiry.IsExpired(in.ExpiryDate, now) {
		return nil, &models.ValidationError{Field: "expiry_date", Reason: "already in the past"}
	}
	if !in.PickupWindow.End.After(in.PickupWindow.Start) {
		return nil, &models.ValidationError{Field: "pickup_window", Reason: "end must be after start"}
	}
	if expiry.PickupWindowConflict(in.PickupWindow, in.ExpiryDate) {
		return nil, &models.ValidationError{Field: "pickup_window", Reason: "window ends at or after food expiry"}
	}

	d := &models.Donation{
		ID:            "don_" + uuid.NewString(),
		DonorID:       in.DonorID,
		Title:         in.Title,
		Quantity:      in.Quantity,
		FoodCategory:  in.FoodCategory,
		StorageReq:    in.StorageReq,
		Perishability: in.Perishability,
		Allergens:     in.Allergens,
		DietaryTags:   in.DietaryTags,
		Coordinates:   in.Coordinates,
		PickupAddress: in.PickupAddress,
		ExpiryDate:    in.ExpiryDate,
		PickupWindow:  in.PickupWindow,
		Status:        models.StatusActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()
	if err := c.store.Add(opCtx, d); err != nil {
		return nil, wrapTimeout("post donation", err)
	}

	slog.Info("donation posted", "id", d.ID, "donor", d.DonorID, "quantity", d.Quantity)
	c.publish(models.EventDonationPosted, d, in.DonorID)
	return d, nil
}

// Feed is the NGO-facing listing with the capacity advisory attached.
type Feed struct {
	Donations       []models.Donation    `json:"donations"`
	CapacityWarning bool                 `json:"capacity_warning"`
	Utilization     capacity.Utilization `json:"utilization"`
	Count           int                  `json:"count"`
}

// FeedOptions narrows the feed. Zero value lists everything claimable.
type FeedOptions struct {
	FoodCategory *models.FoodCategory
	Limit        int
}

// ListFeed returns claimable donations ordered soonest-expiry-first. Expired
// rows are filtered out lazily here; the sweep transitions them for real.
func (c *Coordinator) ListFeed(ctx context.Context, ngoID string, opts FeedOptions) (*Feed, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	profile, err := c.store.GetNGO(opCtx, ngoID)
	if err != nil {
		return nil, wrapTimeout("load ngo profile", err)
	}

	donations, err := c.store.List(opCtx, repository.Filter{
		Statuses:     []models.Status{models.StatusActive},
		FoodCategory: opts.FoodCategory,
		Limit:        opts.Limit,
	})
	if err != nil {
		return nil, wrapTimeout("list feed", err)
	}

	now := c.now()
	fresh := donations[:0]
	for _, d := range donations {
		if !expiry.IsExpired(d.ExpiryDate, now) {
			fresh = append(fresh, d)
		}
	}

	util := c.capacity.Snapshot(ngoID, profile.DailyCapacity)
	return &Feed{
		Donations:       fresh,
		CapacityWarning: util.CapacityWarning,
		Utilization:     util,
		Count:           len(fresh),
	}, nil
}

// Claim gives the NGO the exclusive right to the donation. At most one caller
// wins: the version CAS rejects everyone who read the same active record.
// Capacity is advisory by default; the hard-limit switch makes an
// over-capacity projection a conflict instead.
func (c *Coordinator) Claim(ctx context.Context, ngoID, donationID string) (*models.Donation, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	profile, err := c.store.GetNGO(opCtx, ngoID)
	if err != nil {
		return nil, wrapTimeout("load ngo profile", err)
	}

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	// Lazy expiry: a due donation the sweep has not reached yet is expired
	// here rather than handed out. The CAS write may lose to the sweep; either
	// way the claimer sees the same answer.
	if d.Status == models.StatusActive && expiry.IsExpired(d.ExpiryDate, c.now()) {
		d.Status = models.StatusExpired
		if err := c.store.UpdateCAS(opCtx, d); err == nil {
			c.publish(models.EventExpired, d, "")
		}
		return nil, &models.TransitionError{From: models.StatusExpired, Event: string(lifecycle.EventClaim)}
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventClaim)
	if err != nil {
		// Someone already moved it on; to a claimer that reads as taken.
		if d.Status.Claimed() {
			return nil, &models.ConflictError{Kind: models.ConflictAlreadyClaimed}
		}
		return nil, err
	}

	if c.cfg.HardCapacityLimit && profile.DailyCapacity > 0 {
		projected := c.capacity.Snapshot(ngoID, profile.DailyCapacity)
		if float64(projected.UnitsClaimedToday+d.Quantity)/float64(profile.DailyCapacity) > 1.0 {
			return nil, &models.ConflictError{Kind: models.ConflictCapacity}
		}
	}

	d.Status = next
	d.ClaimedBy = ngoID
	d.NGOCoordinates = profile.Coordinates
	d.NGOAddress = profile.Address

	if err := c.store.UpdateCAS(opCtx, d); err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return nil, &models.ConflictError{Kind: models.ConflictAlreadyClaimed}
		}
		return nil, wrapTimeout("claim donation", err)
	}

	c.capacity.Commit(ngoID, d.Quantity)
	slog.Info("donation claimed", "id", d.ID, "ngo", ngoID)
	c.publish(models.EventClaimed, d, ngoID)
	return d, nil
}

// Reject declines a donation on safety grounds, before or after claiming it.
func (c *Coordinator) Reject(ctx context.Context, ngoID, donationID string, reason models.RejectionReason) (*models.Donation, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	hadClaim := d.Status == models.StatusAssigned && d.ClaimedBy == ngoID
	if d.Status == models.StatusAssigned && d.ClaimedBy != ngoID {
		return nil, &models.ConflictError{Kind: models.ConflictAlreadyClaimed}
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventReject)
	if err != nil {
		return nil, err
	}

	d.Status = next
	d.RejectionReason = reason

	if err := c.store.UpdateCAS(opCtx, d); err != nil {
		return nil, wrapTimeout("reject donation", err)
	}

	if hadClaim {
		c.capacity.Release(ngoID, d.Quantity)
	}
	slog.Info("donation rejected", "id", d.ID, "ngo", ngoID, "reason", reason)
	c.publish(models.EventRejected, d, ngoID)
	return d, nil
}

// CancelDonation is the donor withdrawing; legal only before anything is
// physically in flight. A surviving NGO claim releases its capacity units.
func (c *Coordinator) CancelDonation(ctx context.Context, actorID, donationID string) (*models.Donation, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventCancel)
	if err != nil {
		return nil, err
	}

	claimedBy := d.ClaimedBy
	d.Status = next
	d.AssignedVolunteerID = ""
	d.DeliveryStatus = ""

	if err := c.store.UpdateCAS(opCtx, d); err != nil {
		return nil, wrapTimeout("cancel donation", err)
	}

	if claimedBy != "" {
		c.capacity.Release(claimedBy, d.Quantity)
	}
	slog.Info("donation cancelled", "id", d.ID, "actor", actorID)
	c.publish(models.EventCancelled, d, actorID)
	return d, nil
}

// ListAvailableMissions returns claimed-but-unassigned donations the
// volunteer can physically carry.
func (c *Coordinator) ListAvailableMissions(ctx context.Context, volunteerID string) ([]models.Donation, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	profile, err := c.store.GetVolunteer(opCtx, volunteerID)
	if err != nil {
		return nil, wrapTimeout("load volunteer profile", err)
	}

	donations, err := c.store.List(opCtx, repository.Filter{
		Statuses:    []models.Status{models.StatusAssigned},
		MaxQuantity: profile.MaxWeight,
	})
	if err != nil {
		return nil, wrapTimeout("list missions", err)
	}

	now := c.now()
	pool := donations[:0]
	for _, d := range donations {
		if d.AssignedVolunteerID == "" && !expiry.IsExpired(d.ExpiryDate, now) {
			pool = append(pool, d)
		}
	}
	return pool, nil
}

// AcceptMission assigns the volunteer exclusively, same CAS discipline as
// Claim. The NGO claim and the mission assignment stay two independent
// domains so a later mission cancel cannot disturb the claim.
func (c *Coordinator) AcceptMission(ctx context.Context, volunteerID, donationID string) (*models.Donation, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	profile, err := c.store.GetVolunteer(opCtx, volunteerID)
	if err != nil {
		return nil, wrapTimeout("load volunteer profile", err)
	}

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	if d.AssignedVolunteerID != "" {
		return nil, &models.ConflictError{Kind: models.ConflictAlreadyAssigned}
	}
	if profile.MaxWeight > 0 && d.Quantity > profile.MaxWeight {
		return nil, &models.ValidationError{Field: "quantity", Reason: "payload exceeds volunteer max weight"}
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventAccept)
	if err != nil {
		return nil, err
	}

	d.Status = next
	d.AssignedVolunteerID = volunteerID
	d.DeliveryStatus = lifecycle.DeliveryFor(next)

	if err := c.store.UpdateCAS(opCtx, d); err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return nil, &models.ConflictError{Kind: models.ConflictAlreadyAssigned}
		}
		return nil, wrapTimeout("accept mission", err)
	}

	slog.Info("mission accepted", "id", d.ID, "volunteer", volunteerID)
	c.publish(models.EventMissionAssigned, d, volunteerID)
	return d, nil
}

// UpdateDeliveryStatus drives the logistics sub-machine by target sub-state.
// The custody-gated confirmations cannot pass through here without evidence
// already on record.
func (c *Coordinator) UpdateDeliveryStatus(ctx context.Context, donationID string, target models.DeliveryStatus) (*models.Donation, error) {
	event, ok := lifecycle.EventForDelivery(target)
	if !ok {
		return nil, &models.ValidationError{Field: "delivery_status", Reason: "unknown target state"}
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	if gate := lifecycle.CustodyGate(event); gate != "" {
		if gate == models.CheckpointPickup && d.PickupPhoto == "" ||
			gate == models.CheckpointDelivery && d.DeliveryPhoto == "" {
			return nil, &models.MissingPhotoError{Checkpoint: gate}
		}
	}

	next, err := lifecycle.Next(d.Status, event)
	if err != nil {
		return nil, err
	}

	d.Status = next
	d.DeliveryStatus = lifecycle.DeliveryFor(next)

	if err := c.store.UpdateCAS(opCtx, d); err != nil {
		return nil, wrapTimeout("update delivery status", err)
	}
	return d, nil
}

// ConfirmPickup records pickup evidence and advances to picked_up. No photo,
// no transition: the check precedes everything else on purpose.
func (c *Coordinator) ConfirmPickup(ctx context.Context, donationID, actorID, photoRef string) (*models.Donation, error) {
	if photoRef == "" {
		return nil, &models.MissingPhotoError{Checkpoint: models.CheckpointPickup}
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventConfirmPickup)
	if err != nil {
		return nil, err
	}

	d.Status = next
	d.DeliveryStatus = lifecycle.DeliveryFor(next)
	d.PickupPhoto = photoRef

	rec := c.custodyRecord(d, models.CheckpointPickup, photoRef, "", actorID)
	if err := c.store.UpdateCASWithCustody(opCtx, d, rec); err != nil {
		return nil, wrapTimeout("confirm pickup", err)
	}

	slog.Info("pickup confirmed", "id", d.ID, "volunteer", actorID)
	c.publish(models.EventPickupConfirmed, d, actorID)
	return d, nil
}

// ConfirmDelivery records delivery evidence and advances to delivered.
func (c *Coordinator) ConfirmDelivery(ctx context.Context, donationID, actorID, photoRef, notes string) (*models.Donation, error) {
	if photoRef == "" {
		return nil, &models.MissingPhotoError{Checkpoint: models.CheckpointDelivery}
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventConfirmDelivery)
	if err != nil {
		return nil, err
	}

	d.Status = next
	d.DeliveryStatus = lifecycle.DeliveryFor(next)
	d.DeliveryPhoto = photoRef
	d.DeliveryNotes = notes

	rec := c.custodyRecord(d, models.CheckpointDelivery, photoRef, notes, actorID)
	if err := c.store.UpdateCASWithCustody(opCtx, d, rec); err != nil {
		return nil, wrapTimeout("confirm delivery", err)
	}

	slog.Info("delivery confirmed", "id", d.ID, "volunteer", actorID)
	c.publish(models.EventDeliveryConfirmed, d, actorID)
	return d, nil
}

func (c *Coordinator) custodyRecord(d *models.Donation, checkpoint, photoRef, notes, actorID string) *models.CustodyRecord {
	return &models.CustodyRecord{
		ID:         "cr_" + uuid.NewString(),
		DonationID: d.ID,
		Checkpoint: checkpoint,
		PhotoURL:   photoRef,
		Notes:      notes,
		ActorID:    actorID,
		RecordedAt: c.now(),
	}
}

// CustodyLedger returns the full evidence trail for audit.
func (c *Coordinator) CustodyLedger(ctx context.Context, donationID string) ([]models.CustodyRecord, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()
	records, err := c.store.CustodyFor(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("list custody records", err)
	}
	return records, nil
}

const cancelMissionRetries = 3

// CancelMission is the volunteer aborting. Always accepted for the holder:
// the status drops back to assigned, the NGO claim survives untouched, and
// the mission returns to the pool. A contended write retries against the
// fresh version instead of failing, since only the holder can invoke this.
func (c *Coordinator) CancelMission(ctx context.Context, donationID, volunteerID string, reason models.CancelReason) (*models.Donation, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < cancelMissionRetries; attempt++ {
		d, err := c.store.GetByID(opCtx, donationID)
		if err != nil {
			return nil, wrapTimeout("load donation", err)
		}

		if d.AssignedVolunteerID == "" || d.AssignedVolunteerID != volunteerID {
			return nil, &models.ValidationError{Field: "volunteer_id", Reason: "not the mission holder"}
		}

		next, err := lifecycle.Next(d.Status, lifecycle.EventCancelMission)
		if err != nil {
			return nil, err
		}

		d.Status = next
		d.AssignedVolunteerID = ""
		d.DeliveryStatus = ""

		err = c.store.UpdateCAS(opCtx, d)
		if err == nil {
			mc := &models.MissionCancellation{
				ID:          "mc_" + uuid.NewString(),
				DonationID:  d.ID,
				VolunteerID: volunteerID,
				Reason:      reason,
				CreatedAt:   c.now(),
			}
			if err := c.store.LogCancellation(opCtx, mc); err != nil {
				slog.Error("failed to log mission cancellation", "id", d.ID, "error", err)
			}
			slog.Info("mission cancelled", "id", d.ID, "volunteer", volunteerID, "reason", reason)
			c.publish(models.EventMissionCancelled, d, volunteerID)
			return d, nil
		}

		var conflict *models.ConflictError
		if !errors.As(err, &conflict) {
			return nil, wrapTimeout("cancel mission", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("cancel mission kept losing the version race: %w", lastErr)
}

// Complete closes out a delivered donation with the NGO's rating. Gated on
// delivery evidence; a second call hits the transition graph and fails.
func (c *Coordinator) Complete(ctx context.Context, donationID, actorID string, rating int, comment string) (*models.Donation, error) {
	if rating < 1 || rating > 5 {
		return nil, &models.ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventComplete)
	if err != nil {
		return nil, err
	}
	if d.DeliveryPhoto == "" {
		return nil, &models.MissingPhotoError{Checkpoint: models.CheckpointDelivery}
	}

	volunteerID := d.AssignedVolunteerID
	claimedBy := d.ClaimedBy
	d.Status = next
	d.Rating = rating
	d.RatingComment = comment

	if err := c.store.UpdateCAS(opCtx, d); err != nil {
		return nil, wrapTimeout("complete donation", err)
	}

	if claimedBy != "" {
		c.capacity.Release(claimedBy, d.Quantity)
	}
	if volunteerID != "" {
		if err := c.store.IncrementCompletedMissions(opCtx, volunteerID); err != nil {
			slog.Error("failed to bump volunteer tier counter", "volunteer", volunteerID, "error", err)
		}
	}

	slog.Info("donation completed", "id", d.ID, "rating", rating)
	c.publish(models.EventCompleted, d, actorID)
	return d, nil
}

// OptimizedRoute builds the stop list for the donation's active mission,
// weaving in cheap diversions from the volunteer's other pending pickups.
func (c *Coordinator) OptimizedRoute(ctx context.Context, donationID string) ([]models.MissionStop, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return nil, wrapTimeout("load donation", err)
	}
	if d.AssignedVolunteerID == "" {
		return nil, &models.ValidationError{Field: "donation_id", Reason: "no volunteer holds this mission"}
	}

	others, err := c.store.List(opCtx, repository.Filter{
		VolunteerID: d.AssignedVolunteerID,
		Statuses:    []models.Status{models.StatusAccepted, models.StatusAtPickup},
	})
	if err != nil {
		return nil, wrapTimeout("list volunteer missions", err)
	}

	var candidates []*models.Donation
	for i := range others {
		if others[i].ID != d.ID {
			candidates = append(candidates, &others[i])
		}
	}
	return routing.BuildRoute(d, candidates), nil
}

// Utilization reports the NGO's today-bucket against its configured capacity.
func (c *Coordinator) Utilization(ctx context.Context, ngoID string) (*capacity.Utilization, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	profile, err := c.store.GetNGO(opCtx, ngoID)
	if err != nil {
		return nil, wrapTimeout("load ngo profile", err)
	}
	u := c.capacity.Snapshot(ngoID, profile.DailyCapacity)
	return &u, nil
}

// DonorStats and NGOStats are read-only projections for dashboards.
func (c *Coordinator) DonorStats(ctx context.Context, donorID string) (*repository.Stats, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()
	st, err := c.store.DonorStats(opCtx, donorID)
	return st, wrapTimeout("donor stats", err)
}

func (c *Coordinator) NGOStats(ctx context.Context, ngoID string) (*repository.Stats, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()
	st, err := c.store.NGOStats(opCtx, ngoID)
	return st, wrapTimeout("ngo stats", err)
}

// GetDonation loads one record.
func (c *Coordinator) GetDonation(ctx context.Context, donationID string) (*models.Donation, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()
	d, err := c.store.GetByID(opCtx, donationID)
	return d, wrapTimeout("load donation", err)
}

// DueDonationIDs lists unclaimed donations past their deadline, for the sweep
// to feed its worker pool.
func (c *Coordinator) DueDonationIDs(ctx context.Context) ([]string, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	now := c.now()
	due, err := c.store.List(opCtx, repository.Filter{
		Statuses:       []models.Status{models.StatusActive},
		ExpiringBefore: &now,
	})
	if err != nil {
		return nil, wrapTimeout("list due donations", err)
	}

	ids := make([]string, 0, len(due))
	for _, d := range due {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// ExpireOne force-expires a single donation through the same CAS as every
// other mutation, so a sweep can never expire a donation claimed a moment
// earlier: the claim bumped the version and the sweep's write simply loses.
// Returns false when nothing was expired.
func (c *Coordinator) ExpireOne(ctx context.Context, donationID string) (bool, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	d, err := c.store.GetByID(opCtx, donationID)
	if err != nil {
		return false, wrapTimeout("load donation", err)
	}
	if !expiry.IsExpired(d.ExpiryDate, c.now()) {
		return false, nil
	}

	next, err := lifecycle.Next(d.Status, lifecycle.EventExpire)
	if err != nil {
		return false, nil // claimed or already terminal, nothing to do
	}
	d.Status = next

	if err := c.store.UpdateCAS(opCtx, d); err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			// Claimed between the read and the write. Leave it be.
			return false, nil
		}
		return false, wrapTimeout("expire donation", err)
	}

	slog.Info("donation expired", "id", d.ID)
	c.publish(models.EventExpired, d, "")
	return true, nil
}

// ExpireDue runs one full pass; used by the CLI and by tests.
func (c *Coordinator) ExpireDue(ctx context.Context) (int, error) {
	ids, err := c.DueDonationIDs(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		ok, err := c.ExpireOne(ctx, id)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}
