package expiry

import (
	"testing"
	"time"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
)

var today = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return Midnight(today).AddDate(0, 0, offset)
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		expiry   time.Time
		current  models.FreshnessState
		want     models.FreshnessState
		wantDays int
	}{
		{"yesterday expired", day(-1), models.StateAvailable, models.StateExpired, -1},
		{"long past expired", day(-30), models.StateExpiringSoon, models.StateExpired, -30},
		{"today expiring", day(0), models.StateAvailable, models.StateExpiringSoon, 0},
		{"in one day", day(1), models.StateAvailable, models.StateExpiringSoon, 1},
		{"in three days", day(3), models.StateAvailable, models.StateExpiringSoon, 3},
		{"in four days", day(4), models.StateExpiringSoon, models.StateAvailable, 4},
		{"late in the expiry day", day(2).Add(23 * time.Hour), models.StateAvailable, models.StateExpiringSoon, 2},
		{"used up stays used up when expired", day(-5), models.StateUsedUp, models.StateUsedUp, -5},
		{"used up stays used up when fresh", day(10), models.StateUsedUp, models.StateUsedUp, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, days := Derive(tt.expiry, tt.current, today)
			if got != tt.want {
				t.Errorf("Derive() state = %q, want %q", got, tt.want)
			}
			if days != tt.wantDays {
				t.Errorf("Derive() daysLeft = %d, want %d", days, tt.wantDays)
			}
		})
	}
}

func TestDaysLeftUsesCallerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	now := time.Date(2026, time.March, 10, 23, 0, 0, 0, loc)
	// 2026-03-11 00:00 in UTC+7 is still 2026-03-10 in UTC.
	expiry := time.Date(2026, time.March, 11, 0, 0, 0, 0, loc).UTC()

	if got := DaysLeft(expiry, now); got != 1 {
		t.Fatalf("DaysLeft() = %d, want 1", got)
	}
}

func TestDaysLeftAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	now := time.Date(2026, time.March, 28, 12, 0, 0, 0, loc)
	expiry := time.Date(2026, time.March, 30, 0, 0, 0, 0, loc)

	if got := DaysLeft(expiry, now); got != 2 {
		t.Fatalf("DaysLeft() = %d, want 2", got)
	}
}

func TestRefreshReportsChange(t *testing.T) {
	b := models.InventoryBatch{ExpiryDate: day(2), State: models.StateAvailable, Quantity: 1}

	changed, days := Refresh(&b, today)
	if !changed || b.State != models.StateExpiringSoon || days != 2 || b.DaysLeft != 2 {
		t.Fatalf("Refresh() = (%v, %d), state %q daysLeft %d", changed, days, b.State, b.DaysLeft)
	}

	changed, _ = Refresh(&b, today)
	if changed {
		t.Fatalf("second Refresh() reported a change")
	}
}

func TestSettleForcesUsedUp(t *testing.T) {
	b := models.InventoryBatch{ExpiryDate: day(10), State: models.StateAvailable, Quantity: -0.5}

	changed, _ := Settle(&b, today)
	if !changed || b.State != models.StateUsedUp || b.Quantity != 0 {
		t.Fatalf("Settle() changed=%v state=%q quantity=%v", changed, b.State, b.Quantity)
	}

	b.ExpiryDate = day(-3)
	b.Quantity = 2
	if changed, _ := Settle(&b, today); changed || b.State != models.StateUsedUp {
		t.Fatalf("Settle() on used up batch changed=%v state=%q", changed, b.State)
	}
}

func TestNeedsAttention(t *testing.T) {
	for state, want := range map[models.FreshnessState]bool{
		models.StateAvailable:    false,
		models.StateExpiringSoon: true,
		models.StateExpired:      true,
		models.StateUsedUp:       false,
	} {
		if got := NeedsAttention(state); got != want {
			t.Errorf("NeedsAttention(%q) = %v, want %v", state, got, want)
		}
	}
}
