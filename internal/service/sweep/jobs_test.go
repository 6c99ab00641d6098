package sweep

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository/memory"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/expiry"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/notification"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/scope"
)

var fixedNow = time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)

func setupJobs(t *testing.T) (*memory.Store, *Jobs, primitive.ObjectID) {
	t.Helper()
	store := memory.New()
	userID := store.PutUser(models.User{Name: "An", Email: "an@example.com"})

	notifier := notification.NewService(store, store, store, scope.NewResolver(store, nil), nil, nil, nil)
	notifier.SetClock(func() time.Time { return fixedNow })
	jobs := NewJobs(store, store, notifier, time.UTC, observability.NewMetrics(), nil)
	jobs.SetClock(func() time.Time { return fixedNow })
	return store, jobs, userID
}

func putBatch(t *testing.T, store *memory.Store, owner primitive.ObjectID, name string, qty float64, days int, state models.FreshnessState) primitive.ObjectID {
	t.Helper()
	b := models.InventoryBatch{
		OwnerUserID:  &owner,
		FoodItemID:   primitive.NewObjectID(),
		FoodItemName: name,
		UnitID:       primitive.NewObjectID(),
		Quantity:     qty,
		ExpiryDate:   expiry.Midnight(fixedNow).AddDate(0, 0, days),
		State:        state,
	}
	if err := store.InsertBatch(context.Background(), &b); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	return b.ID
}

func TestCheckExpiringBatchesMilkScenario(t *testing.T) {
	store, jobs, userID := setupJobs(t)
	milk := putBatch(t, store, userID, "Milk", 1, 2, models.StateAvailable)

	report, err := jobs.CheckExpiringBatches(context.Background())
	if err != nil {
		t.Fatalf("CheckExpiringBatches() error = %v", err)
	}
	if report.Scanned != 1 || report.Notifications != 1 || report.StateChanges != 1 {
		t.Fatalf("report = %+v, want 1 scanned, 1 notification, 1 state change", report)
	}

	notes := store.Notifications()
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
	n := notes[0]
	if n.Kind != models.KindExpiringSoon || n.RelatedEntityID != milk || n.DaysLeft == nil || *n.DaysLeft != 2 {
		t.Fatalf("notification = %+v, want expiring_soon for milk with daysLeft 2", n)
	}

	again, err := jobs.CheckExpiringBatches(context.Background())
	if err != nil {
		t.Fatalf("second CheckExpiringBatches() error = %v", err)
	}
	if again.Notifications != 0 || again.Skipped != 1 {
		t.Fatalf("second report = %+v, want nothing new", again)
	}
	if got := len(store.Notifications()); got != 1 {
		t.Fatalf("notifications after rerun = %d, want 1", got)
	}
}

func TestCheckExpiringBatchesSkipsUsedUpAndEmpty(t *testing.T) {
	store, jobs, userID := setupJobs(t)
	putBatch(t, store, userID, "Yogurt", 0, 1, models.StateExpiringSoon)
	putBatch(t, store, userID, "Cheese", 1, -4, models.StateUsedUp)
	putBatch(t, store, userID, "Rice", 3, 60, models.StateAvailable)
	putBatch(t, store, userID, "Bread", 1, -1, models.StateAvailable)

	report, err := jobs.CheckExpiringBatches(context.Background())
	if err != nil {
		t.Fatalf("CheckExpiringBatches() error = %v", err)
	}
	if report.Scanned != 2 || report.Notifications != 1 {
		t.Fatalf("report = %+v, want rice and bread scanned, one notification", report)
	}
	notes := store.Notifications()
	if len(notes) != 1 || notes[0].Kind != models.KindExpired || notes[0].Message != "Bread has already expired" {
		t.Fatalf("notifications = %+v", notes)
	}
}

func TestCheckUpcomingMealPlans(t *testing.T) {
	store, jobs, userID := setupJobs(t)
	tomorrow := expiry.Midnight(fixedNow).AddDate(0, 0, 1)
	store.PutMealPlan(models.MealPlan{OwnerUserID: &userID, Name: "Tomorrow", StartDate: tomorrow.Add(6 * time.Hour)})
	store.PutMealPlan(models.MealPlan{OwnerUserID: &userID, Name: "Today", StartDate: expiry.Midnight(fixedNow)})
	store.PutMealPlan(models.MealPlan{OwnerUserID: &userID, Name: "Later", StartDate: tomorrow.AddDate(0, 0, 1)})

	report, err := jobs.CheckUpcomingMealPlans(context.Background())
	if err != nil {
		t.Fatalf("CheckUpcomingMealPlans() error = %v", err)
	}
	if report.Scanned != 1 || report.Notifications != 1 {
		t.Fatalf("report = %+v, want only the plan starting tomorrow", report)
	}

	again, _ := jobs.CheckUpcomingMealPlans(context.Background())
	if again.Notifications != 0 {
		t.Fatalf("rerun created %d reminders", again.Notifications)
	}
}

func TestTomorrow(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	now := time.Date(2026, time.March, 10, 23, 30, 0, 0, loc)

	from, to := Tomorrow(now)
	if want := time.Date(2026, time.March, 11, 0, 0, 0, 0, loc); !from.Equal(want) {
		t.Fatalf("from = %v, want %v", from, want)
	}
	if want := time.Date(2026, time.March, 12, 0, 0, 0, 0, loc); !to.Equal(want) {
		t.Fatalf("to = %v, want %v", to, want)
	}
}
