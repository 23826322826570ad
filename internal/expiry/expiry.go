// Package expiry classifies donations against the clock. Pure functions only;
// callers supply now so sweeps and tests stay deterministic.
package expiry

import (
	"time"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyNormal Urgency = "normal"
	UrgencyLow    Urgency = "low"
)

const (
	highThreshold   = 2 * time.Hour
	normalThreshold = 6 * time.Hour
)

// Classify returns the urgency tier for the remaining time-to-expiry.
// High under 2h remaining, Normal under 6h, Low otherwise. Already-expired
// donations classify High; the sweep removes them regardless.
func Classify(expiryDate, now time.Time) Urgency {
	remaining := expiryDate.Sub(now)
	switch {
	case remaining < highThreshold:
		return UrgencyHigh
	case remaining < normalThreshold:
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

func IsExpired(expiryDate, now time.Time) bool {
	return !expiryDate.After(now)
}

// PickupWindowConflict reports whether the pickup window outlives the food.
// A window ending at or after expiry is a hard validation failure at creation.
func PickupWindowConflict(w models.PickupWindow, expiryDate time.Time) bool {
	return !w.End.Before(expiryDate)
}
