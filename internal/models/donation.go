package models

import (
	"time"
)

// Status is the claim/fulfillment state of a donation. Exactly one status is
// authoritative at any time; transitions are validated by the lifecycle package.
type Status string

const (
	StatusActive     Status = "active"
	StatusAssigned   Status = "assigned"
	StatusAccepted   Status = "accepted"
	StatusAtPickup   Status = "at_pickup"
	StatusPickedUp   Status = "picked_up"
	StatusAtDelivery Status = "at_delivery"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
)

// Terminal reports whether the status retains the donation for history only.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Claimed reports whether an NGO holds the claim in this status.
func (s Status) Claimed() bool {
	switch s {
	case StatusAssigned, StatusAccepted, StatusAtPickup, StatusPickedUp,
		StatusAtDelivery, StatusDelivered, StatusCompleted:
		return true
	}
	return false
}

// DeliveryStatus is the logistics sub-state, meaningful only while a volunteer
// holds the mission.
type DeliveryStatus string

const (
	DeliveryPendingPickup     DeliveryStatus = "pending_pickup"
	DeliveryAtPickup          DeliveryStatus = "at_pickup"
	DeliveryPickedUp          DeliveryStatus = "picked_up"
	DeliveryArrivedAtDelivery DeliveryStatus = "arrived_at_delivery"
	DeliveryDelivered         DeliveryStatus = "delivered"
)

type FoodCategory string

const (
	FoodCooked   FoodCategory = "cooked"
	FoodRaw      FoodCategory = "raw"
	FoodPackaged FoodCategory = "packaged"
)

// RejectionReason is the closed taxonomy for NGO safety rejections.
type RejectionReason string

const (
	RejectHygiene   RejectionReason = "hygiene"
	RejectExpired   RejectionReason = "expired"
	RejectStorage   RejectionReason = "storage"
	RejectLogistics RejectionReason = "logistics"
	RejectOther     RejectionReason = "other"
)

func ParseRejectionReason(s string) (RejectionReason, bool) {
	switch RejectionReason(s) {
	case RejectHygiene, RejectExpired, RejectStorage, RejectLogistics, RejectOther:
		return RejectionReason(s), true
	}
	return "", false
}

// CancelReason is the closed taxonomy for volunteer mission aborts.
type CancelReason string

const (
	CancelVehicleBreakdown  CancelReason = "vehicle_breakdown"
	CancelTraffic           CancelReason = "traffic_accident"
	CancelPersonalEmergency CancelReason = "personal_emergency"
	CancelOverweight        CancelReason = "overweight"
	CancelDonorNotFound     CancelReason = "donor_not_found"
	CancelOtherReason       CancelReason = "other"
)

func ParseCancelReason(s string) (CancelReason, bool) {
	switch CancelReason(s) {
	case CancelVehicleBreakdown, CancelTraffic, CancelPersonalEmergency,
		CancelOverweight, CancelDonorNotFound, CancelOtherReason:
		return CancelReason(s), true
	}
	return "", false
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type PickupWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Donation is the central entity. Mutations go through the coordinator and are
// persisted with a compare-and-swap on Version; never destroyed, terminal
// states are kept for audit.
type Donation struct {
	ID            string       `json:"id"`
	DonorID       string       `json:"donor_id"`
	Title         string       `json:"title"`
	Quantity      int          `json:"quantity"` // meal units; also the payload weight proxy in kg
	FoodCategory  FoodCategory `json:"food_category"`
	StorageReq    string       `json:"storage_req"`
	Perishability string       `json:"perishability"`
	Allergens     []string     `json:"allergens,omitempty"`
	DietaryTags   []string     `json:"dietary_tags,omitempty"`

	Coordinates   Coordinates  `json:"coordinates"`
	PickupAddress string       `json:"pickup_address"`
	ExpiryDate    time.Time    `json:"expiry_date"`
	PickupWindow  PickupWindow `json:"pickup_window"`

	Status         Status         `json:"status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty"`

	ClaimedBy      string      `json:"claimed_by,omitempty"`
	NGOCoordinates Coordinates `json:"ngo_coordinates,omitempty"`
	NGOAddress     string      `json:"ngo_address,omitempty"`

	AssignedVolunteerID string `json:"assigned_volunteer_id,omitempty"`

	PickupPhoto   string `json:"pickup_photo,omitempty"`
	DeliveryPhoto string `json:"delivery_photo,omitempty"`
	DeliveryNotes string `json:"delivery_notes,omitempty"`

	RejectionReason RejectionReason `json:"rejection_reason,omitempty"`
	Rating          int             `json:"rating,omitempty"`
	RatingComment   string          `json:"rating_comment,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustodyRecord is one immutable proof-of-custody entry. Records are append
// only; corrections append, never rewrite.
type CustodyRecord struct {
	ID         string    `json:"id"`
	DonationID string    `json:"donation_id"`
	Checkpoint string    `json:"checkpoint"` // "pickup" or "delivery"
	PhotoURL   string    `json:"photo_url"`
	Notes      string    `json:"notes,omitempty"`
	ActorID    string    `json:"actor_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

const (
	CheckpointPickup   = "pickup"
	CheckpointDelivery = "delivery"
)

// MissionCancellation logs a volunteer abort for operational reporting.
type MissionCancellation struct {
	ID          string       `json:"id"`
	DonationID  string       `json:"donation_id"`
	VolunteerID string       `json:"volunteer_id"`
	Reason      CancelReason `json:"reason"`
	CreatedAt   time.Time    `json:"created_at"`
}

// MissionStop is one stop in a volunteer's route. Ephemeral: computed per
// active mission, never persisted.
type MissionStop struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"` // "pickup", "delivery" or "diversion"
	Coordinates Coordinates `json:"coordinates"`
	Address     string      `json:"address"`
	Priority    int         `json:"priority"`
	IsDiversion bool        `json:"is_diversion"`
}

const (
	StopPickup    = "pickup"
	StopDelivery  = "delivery"
	StopDiversion = "diversion"
)
