// Package expiry derives freshness states from expiry dates. Every function is
// pure; callers decide what to persist.
package expiry

import (
	"time"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
)

// SoonThresholdDays is the largest daysLeft still reported as expiring soon.
const SoonThresholdDays = 3

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysLeft counts calendar days from now's day to expiry's day, both taken in
// now's location. Negative values mean the date has passed.
func DaysLeft(expiry, now time.Time) int {
	ey, em, ed := expiry.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

// Derive returns the freshness state implied by the expiry date. used_up is
// absorbing: it is returned unchanged, with daysLeft still computed for display.
func Derive(expiry time.Time, current models.FreshnessState, now time.Time) (models.FreshnessState, int) {
	daysLeft := DaysLeft(expiry, now)
	switch {
	case current == models.StateUsedUp:
		return models.StateUsedUp, daysLeft
	case daysLeft < 0:
		return models.StateExpired, daysLeft
	case daysLeft <= SoonThresholdDays:
		return models.StateExpiringSoon, daysLeft
	default:
		return models.StateAvailable, daysLeft
	}
}

// Refresh re-derives the batch state in place and reports whether the stored
// state field changed.
func Refresh(b *models.InventoryBatch, now time.Time) (bool, int) {
	next, daysLeft := Derive(b.ExpiryDate, b.State, now)
	changed := next != b.State
	b.State = next
	b.DaysLeft = daysLeft
	return changed, daysLeft
}

// Settle is Refresh for write paths that change quantity: an exhausted batch
// becomes used_up regardless of its date.
func Settle(b *models.InventoryBatch, now time.Time) (bool, int) {
	if b.Quantity <= 0 {
		daysLeft := DaysLeft(b.ExpiryDate, now)
		changed := b.State != models.StateUsedUp
		b.Quantity = 0
		b.State = models.StateUsedUp
		b.DaysLeft = daysLeft
		return changed, daysLeft
	}
	return Refresh(b, now)
}

// NeedsAttention reports whether the state warrants a notification.
func NeedsAttention(state models.FreshnessState) bool {
	return state == models.StateExpiringSoon || state == models.StateExpired
}
