package routing

import (
	"testing"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

func donationAt(id string, pickup, delivery models.Coordinates) *models.Donation {
	return &models.Donation{
		ID:             id,
		Coordinates:    pickup,
		NGOCoordinates: delivery,
		PickupAddress:  id + " pickup st",
		NGOAddress:     id + " ngo ave",
	}
}

func TestDistance(t *testing.T) {
	// Nairobi CBD to Westlands is roughly 3-4 km.
	cbd := models.Coordinates{Latitude: -1.2864, Longitude: 36.8172}
	westlands := models.Coordinates{Latitude: -1.2683, Longitude: 36.8110}

	d := Distance(cbd, westlands)
	if d < 2 || d > 5 {
		t.Errorf("expected 2-5 km, got %f", d)
	}
	if Distance(cbd, cbd) != 0 {
		t.Error("distance to self should be zero")
	}
}

func TestBuildRoute_MinimumStops(t *testing.T) {
	d := donationAt("don1",
		models.Coordinates{Latitude: -1.28, Longitude: 36.81},
		models.Coordinates{Latitude: -1.30, Longitude: 36.85})

	stops := BuildRoute(d, nil)
	if len(stops) != 2 {
		t.Fatalf("expected [pickup, delivery], got %d stops", len(stops))
	}
	if stops[0].Type != models.StopPickup || stops[1].Type != models.StopDelivery {
		t.Errorf("stop order wrong: %s, %s", stops[0].Type, stops[1].Type)
	}
	if stops[0].Priority != 1 || stops[1].Priority != 2 {
		t.Errorf("priorities not sequential: %d, %d", stops[0].Priority, stops[1].Priority)
	}
}

func TestBuildRoute_AcceptsCheapDiversion(t *testing.T) {
	primary := donationAt("don1",
		models.Coordinates{Latitude: -1.28, Longitude: 36.80},
		models.Coordinates{Latitude: -1.28, Longitude: 37.00})
	// Sits practically on the primary leg.
	nearby := donationAt("don2",
		models.Coordinates{Latitude: -1.281, Longitude: 36.90},
		models.Coordinates{Latitude: -1.281, Longitude: 37.001})

	stops := BuildRoute(primary, []*models.Donation{nearby})
	if len(stops) != 4 {
		t.Fatalf("expected 4 stops with diversion, got %d", len(stops))
	}

	// Pickups must precede their deliveries for everything on board.
	pos := map[string]int{}
	for i, s := range stops {
		pos[s.ID] = i
	}
	if pos["don1:pickup"] > pos["don1:delivery"] {
		t.Error("primary delivery before its pickup")
	}
	if pos["don2:pickup"] > pos["don2:delivery"] {
		t.Error("diversion delivery before its pickup")
	}
	if !stops[pos["don2:pickup"]].IsDiversion {
		t.Error("diversion stop not flagged")
	}
}

func TestBuildRoute_RejectsExpensiveDiversion(t *testing.T) {
	primary := donationAt("don1",
		models.Coordinates{Latitude: -1.28, Longitude: 36.80},
		models.Coordinates{Latitude: -1.28, Longitude: 36.85})
	// Far off the leg: detour dwarfs the 30% budget.
	faraway := donationAt("don2",
		models.Coordinates{Latitude: -1.90, Longitude: 36.80},
		models.Coordinates{Latitude: -1.95, Longitude: 36.85})

	stops := BuildRoute(primary, []*models.Donation{faraway})
	if len(stops) != 2 {
		t.Errorf("expensive diversion should be skipped, got %d stops", len(stops))
	}
}
