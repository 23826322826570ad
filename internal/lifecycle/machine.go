// Package lifecycle owns the donation transition graph. It is pure: given a
// current status and an event it either yields the next status or a
// TransitionError. Persistence and race arbitration live in the coordinator.
package lifecycle

import (
	"github.com/surpluslink/go-surpluslink/internal/models"
)

// Event names a requested transition.
type Event string

const (
	EventClaim             Event = "claim"
	EventAccept            Event = "accept"
	EventArriveAtPickup    Event = "arrive_at_pickup"
	EventConfirmPickup     Event = "confirm_pickup"
	EventArriveAtDelivery  Event = "arrive_at_delivery"
	EventConfirmDelivery   Event = "confirm_delivery"
	EventComplete          Event = "complete"
	EventReject            Event = "reject"
	EventCancel            Event = "cancel"
	EventCancelMission     Event = "cancel_mission"
	EventExpire            Event = "expire"
)

// transitions is the legal event/state graph. Rejection is representable both
// before a claim (active) and after one (assigned); a mission cancel drops the
// donation back to assigned without touching the NGO's claim.
var transitions = map[models.Status]map[Event]models.Status{
	models.StatusActive: {
		EventClaim:  models.StatusAssigned,
		EventReject: models.StatusRejected,
		EventCancel: models.StatusCancelled,
		EventExpire: models.StatusExpired,
	},
	models.StatusAssigned: {
		EventAccept:        models.StatusAccepted,
		EventReject:        models.StatusRejected,
		EventCancel:        models.StatusCancelled,
		EventCancelMission: models.StatusAssigned,
	},
	models.StatusAccepted: {
		EventArriveAtPickup: models.StatusAtPickup,
		EventCancelMission:  models.StatusAssigned,
	},
	models.StatusAtPickup: {
		EventConfirmPickup: models.StatusPickedUp,
		EventCancelMission: models.StatusAssigned,
	},
	models.StatusPickedUp: {
		EventArriveAtDelivery: models.StatusAtDelivery,
		EventCancelMission:    models.StatusAssigned,
	},
	models.StatusAtDelivery: {
		EventConfirmDelivery: models.StatusDelivered,
		EventCancelMission:   models.StatusAssigned,
	},
	models.StatusDelivered: {
		EventComplete: models.StatusCompleted,
	},
}

// Next validates event against the current status. An illegal event never
// no-ops: it returns a TransitionError carrying both sides.
func Next(from models.Status, event Event) (models.Status, error) {
	if m, ok := transitions[from]; ok {
		if to, ok := m[event]; ok {
			return to, nil
		}
	}
	return "", &models.TransitionError{From: from, Event: string(event)}
}

// Allowed reports whether event is legal from the given status.
func Allowed(from models.Status, event Event) bool {
	_, err := Next(from, event)
	return err == nil
}

// deliveryFor maps mission-phase statuses to the logistics sub-state carried
// alongside them while a volunteer holds the assignment.
var deliveryFor = map[models.Status]models.DeliveryStatus{
	models.StatusAccepted:   models.DeliveryPendingPickup,
	models.StatusAtPickup:   models.DeliveryAtPickup,
	models.StatusPickedUp:   models.DeliveryPickedUp,
	models.StatusAtDelivery: models.DeliveryArrivedAtDelivery,
	models.StatusDelivered:  models.DeliveryDelivered,
}

// DeliveryFor returns the delivery sub-state implied by a status, or "" when
// the status carries none (no volunteer, or terminal).
func DeliveryFor(s models.Status) models.DeliveryStatus {
	return deliveryFor[s]
}

// EventForDelivery maps a requested logistics sub-state to the driving event.
// Used by the updateDeliveryStatus operation where clients speak in delivery
// terms rather than events.
func EventForDelivery(ds models.DeliveryStatus) (Event, bool) {
	switch ds {
	case models.DeliveryAtPickup:
		return EventArriveAtPickup, true
	case models.DeliveryPickedUp:
		return EventConfirmPickup, true
	case models.DeliveryArrivedAtDelivery:
		return EventArriveAtDelivery, true
	case models.DeliveryDelivered:
		return EventConfirmDelivery, true
	}
	return "", false
}

// CustodyGate returns the custody checkpoint an event requires evidence for,
// or "" when the event is not gated.
func CustodyGate(event Event) string {
	switch event {
	case EventConfirmPickup:
		return models.CheckpointPickup
	case EventConfirmDelivery:
		return models.CheckpointDelivery
	}
	return ""
}
