package lifecycle

import (
	"errors"
	"testing"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

func TestNext_HappyPath(t *testing.T) {
	steps := []struct {
		from  models.Status
		event Event
		want  models.Status
	}{
		{models.StatusActive, EventClaim, models.StatusAssigned},
		{models.StatusAssigned, EventAccept, models.StatusAccepted},
		{models.StatusAccepted, EventArriveAtPickup, models.StatusAtPickup},
		{models.StatusAtPickup, EventConfirmPickup, models.StatusPickedUp},
		{models.StatusPickedUp, EventArriveAtDelivery, models.StatusAtDelivery},
		{models.StatusAtDelivery, EventConfirmDelivery, models.StatusDelivered},
		{models.StatusDelivered, EventComplete, models.StatusCompleted},
	}

	for _, s := range steps {
		got, err := Next(s.from, s.event)
		if err != nil {
			t.Fatalf("Next(%s, %s) unexpected error: %v", s.from, s.event, err)
		}
		if got != s.want {
			t.Errorf("Next(%s, %s) = %s, want %s", s.from, s.event, got, s.want)
		}
	}
}

func TestNext_SideBranches(t *testing.T) {
	// Rejection is legal both before and after a claim.
	if _, err := Next(models.StatusActive, EventReject); err != nil {
		t.Errorf("reject from active should be legal: %v", err)
	}
	if _, err := Next(models.StatusAssigned, EventReject); err != nil {
		t.Errorf("reject from assigned should be legal: %v", err)
	}

	// Donor withdrawal only while nothing is in flight.
	for _, s := range []models.Status{models.StatusActive, models.StatusAssigned} {
		if got, _ := Next(s, EventCancel); got != models.StatusCancelled {
			t.Errorf("cancel from %s = %s, want cancelled", s, got)
		}
	}
	if _, err := Next(models.StatusPickedUp, EventCancel); err == nil {
		t.Error("donor cancel after pickup should be illegal")
	}

	// Expiry only fires on unclaimed donations.
	if got, _ := Next(models.StatusActive, EventExpire); got != models.StatusExpired {
		t.Errorf("expire from active = %s, want expired", got)
	}
	if _, err := Next(models.StatusAssigned, EventExpire); err == nil {
		t.Error("expire must not clobber a claimed donation")
	}
}

func TestNext_CancelMissionIsNotTerminal(t *testing.T) {
	// A volunteer abort from any mission phase lands back on assigned, keeping
	// the NGO's claim.
	for _, s := range []models.Status{
		models.StatusAssigned,
		models.StatusAccepted,
		models.StatusAtPickup,
		models.StatusPickedUp,
		models.StatusAtDelivery,
	} {
		got, err := Next(s, EventCancelMission)
		if err != nil {
			t.Fatalf("cancel_mission from %s: %v", s, err)
		}
		if got != models.StatusAssigned {
			t.Errorf("cancel_mission from %s = %s, want assigned", s, got)
		}
	}

	if _, err := Next(models.StatusDelivered, EventCancelMission); err == nil {
		t.Error("cancel_mission after delivery should be illegal")
	}
}

func TestNext_IllegalEventReturnsTransitionError(t *testing.T) {
	cases := []struct {
		from  models.Status
		event Event
	}{
		{models.StatusCompleted, EventComplete}, // idempotent completion rejected
		{models.StatusActive, EventConfirmDelivery},
		{models.StatusExpired, EventClaim},
		{models.StatusCancelled, EventAccept},
		{models.StatusActive, EventAccept}, // skips claim
	}

	for _, c := range cases {
		_, err := Next(c.from, c.event)
		var te *models.TransitionError
		if !errors.As(err, &te) {
			t.Fatalf("Next(%s, %s): want TransitionError, got %v", c.from, c.event, err)
		}
		if te.From != c.from || te.Event != string(c.event) {
			t.Errorf("TransitionError fields = %+v, want from=%s event=%s", te, c.from, c.event)
		}
	}
}

func TestDeliveryFor(t *testing.T) {
	if DeliveryFor(models.StatusAccepted) != models.DeliveryPendingPickup {
		t.Error("accepted should imply pending_pickup")
	}
	if DeliveryFor(models.StatusActive) != "" {
		t.Error("active carries no delivery sub-state")
	}
	if DeliveryFor(models.StatusCompleted) != "" {
		t.Error("completed carries no delivery sub-state")
	}
}

func TestEventForDelivery(t *testing.T) {
	ev, ok := EventForDelivery(models.DeliveryPickedUp)
	if !ok || ev != EventConfirmPickup {
		t.Errorf("picked_up should map to confirm_pickup, got %s ok=%v", ev, ok)
	}
	if _, ok := EventForDelivery(models.DeliveryPendingPickup); ok {
		t.Error("pending_pickup is the starting sub-state, no event drives into it")
	}
}

func TestCustodyGate(t *testing.T) {
	if CustodyGate(EventConfirmPickup) != models.CheckpointPickup {
		t.Error("confirm_pickup must gate on pickup evidence")
	}
	if CustodyGate(EventConfirmDelivery) != models.CheckpointDelivery {
		t.Error("confirm_delivery must gate on delivery evidence")
	}
	if CustodyGate(EventAccept) != "" {
		t.Error("accept is not custody-gated")
	}
}
