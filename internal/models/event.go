package models

import "time"

// EventType identifies a lifecycle notification pushed to subscribers.
type EventType string

const (
	EventDonationPosted    EventType = "donation_posted"
	EventClaimed           EventType = "claimed"
	EventRejected          EventType = "rejected"
	EventCancelled         EventType = "cancelled"
	EventMissionAssigned   EventType = "mission_assigned"
	EventMissionCancelled  EventType = "mission_cancelled"
	EventPickupConfirmed   EventType = "pickup_confirmed"
	EventDeliveryConfirmed EventType = "delivery_confirmed"
	EventCompleted         EventType = "completed"
	EventExpired           EventType = "expired"
)

// Event is what the core pushes to the notification sink. Fire-and-forget:
// correctness never depends on delivery.
type Event struct {
	Type       EventType `json:"type"`
	DonationID string    `json:"donation_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	At         time.Time `json:"at"`
}
