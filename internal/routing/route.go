// Package routing builds the ordered stop list for an active mission. Output
// is planning data only: computed per request, never persisted.
package routing

import (
	"math"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

// maxDetourRatio caps how much extra distance a diversion may add relative to
// the direct pickup->delivery leg.
const maxDetourRatio = 0.3

const earthRadiusKm = 6371.0

// Distance returns the haversine great-circle distance in kilometers.
func Distance(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// BuildRoute produces the stop sequence for the primary donation, optionally
// weaving in diversions for other donations the same volunteer already holds.
// Invariant: every pickup precedes its corresponding delivery. A candidate is
// accepted only when its added distance stays under maxDetourRatio of the
// primary leg; candidates are considered nearest-pickup-first.
func BuildRoute(primary *models.Donation, candidates []*models.Donation) []models.MissionStop {
	stops := []models.MissionStop{
		{
			ID:          primary.ID + ":pickup",
			Type:        models.StopPickup,
			Coordinates: primary.Coordinates,
			Address:     primary.PickupAddress,
		},
		{
			ID:          primary.ID + ":delivery",
			Type:        models.StopDelivery,
			Coordinates: primary.NGOCoordinates,
			Address:     primary.NGOAddress,
		},
	}

	directLeg := Distance(primary.Coordinates, primary.NGOCoordinates)
	budget := directLeg * maxDetourRatio

	ordered := byPickupProximity(primary.Coordinates, candidates)
	for _, c := range ordered {
		withDiv := routeLength(primary, c)
		detour := withDiv - directLeg
		if detour > budget {
			continue
		}
		budget -= detour

		// Diversion pickup goes right after the primary pickup, its delivery
		// right after the primary delivery: pickups stay ahead of deliveries
		// for everything the volunteer is holding.
		divPickup := models.MissionStop{
			ID:          c.ID + ":pickup",
			Type:        models.StopDiversion,
			Coordinates: c.Coordinates,
			Address:     c.PickupAddress,
			IsDiversion: true,
		}
		divDelivery := models.MissionStop{
			ID:          c.ID + ":delivery",
			Type:        models.StopDiversion,
			Coordinates: c.NGOCoordinates,
			Address:     c.NGOAddress,
			IsDiversion: true,
		}
		stops = append(stops[:1], append([]models.MissionStop{divPickup}, stops[1:]...)...)
		stops = append(stops, divDelivery)
	}

	for i := range stops {
		stops[i].Priority = i + 1
	}
	return stops
}

// routeLength is the total distance when one diversion is spliced into the
// primary leg: pickup -> div pickup -> delivery -> div delivery.
func routeLength(primary, div *models.Donation) float64 {
	return Distance(primary.Coordinates, div.Coordinates) +
		Distance(div.Coordinates, primary.NGOCoordinates) +
		Distance(primary.NGOCoordinates, div.NGOCoordinates)
}

func byPickupProximity(origin models.Coordinates, ds []*models.Donation) []*models.Donation {
	out := make([]*models.Donation, len(ds))
	copy(out, ds)
	// Insertion sort: candidate lists are a handful of missions at most.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && Distance(origin, out[j].Coordinates) < Distance(origin, out[j-1].Coordinates); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
