package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository/memory"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/expiry"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/notification"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/scope"
)

var fixedNow = time.Date(2026, time.March, 10, 8, 15, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	svc     *Service
	userID  primitive.ObjectID
	groupID primitive.ObjectID
	milkID  primitive.ObjectID
	riceID  primitive.ObjectID
	liter   primitive.ObjectID
	kg      primitive.ObjectID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()

	f := &fixture{store: store, userID: primitive.NewObjectID(), liter: primitive.NewObjectID(), kg: primitive.NewObjectID()}
	f.groupID = store.PutFamilyGroup(models.FamilyGroup{Members: []models.FamilyMember{{UserID: f.userID, Role: models.RoleOwner}}})
	store.PutUser(models.User{ID: f.userID, Email: "an@example.com", FamilyGroupID: &f.groupID})
	f.milkID = store.PutFoodItem(models.FoodItem{Name: "Milk", DefaultUnitID: f.liter})
	f.riceID = store.PutFoodItem(models.FoodItem{Name: "Rice", DefaultUnitID: f.kg, AverageExpiryDays: 180, DefaultStorageLocation: "pantry"})

	notifier := notification.NewService(store, store, store, scope.NewResolver(store, nil), nil, nil, nil)
	notifier.SetClock(func() time.Time { return fixedNow })
	f.svc = NewService(store, store, store, store, notifier, nil, nil)
	f.svc.SetClock(func() time.Time { return fixedNow })
	return f
}

func (f *fixture) personal() models.Scope { return models.PersonalScope(f.userID) }

func inDays(n int) *time.Time {
	t := fixedNow.AddDate(0, 0, n)
	return &t
}

func (f *fixture) addMilk(t *testing.T, sc models.Scope, qty float64, days int, location string) models.Result[*models.InventoryBatch] {
	t.Helper()
	res, err := f.svc.AddBatch(context.Background(), sc, f.userID, AddBatchInput{
		FoodItemID:      f.milkID,
		UnitID:          f.liter,
		Quantity:        qty,
		ExpiryDate:      inDays(days),
		StorageLocation: location,
	})
	if err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}
	return res
}

func TestAddBatchValidation(t *testing.T) {
	f := newFixture(t)
	noUnitFood := f.store.PutFoodItem(models.FoodItem{Name: "Herbs"})

	tests := []struct {
		name string
		in   AddBatchInput
	}{
		{"zero quantity", AddBatchInput{FoodItemID: f.milkID, Quantity: 0, ExpiryDate: inDays(3)}},
		{"negative quantity", AddBatchInput{FoodItemID: f.milkID, Quantity: -1, ExpiryDate: inDays(3)}},
		{"missing food", AddBatchInput{Quantity: 1, ExpiryDate: inDays(3)}},
		{"unknown food", AddBatchInput{FoodItemID: primitive.NewObjectID(), Quantity: 1, ExpiryDate: inDays(3)}},
		{"no expiry and no shelf life", AddBatchInput{FoodItemID: f.milkID, Quantity: 1}},
		{"no unit anywhere", AddBatchInput{FoodItemID: noUnitFood, Quantity: 1, ExpiryDate: inDays(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddBatch(context.Background(), f.personal(), f.userID, tt.in)
			if !errors.Is(err, models.ErrValidation) {
				t.Fatalf("AddBatch() error = %v, want validation", err)
			}
		})
	}

	if got := len(f.store.Batches()); got != 0 {
		t.Fatalf("validation failures wrote %d batches", got)
	}
}

func TestAddBatchDefaultsFromFoodItem(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.AddBatch(context.Background(), f.personal(), f.userID, AddBatchInput{FoodItemID: f.riceID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}
	b := res.Data
	if b.UnitID != f.kg || b.StorageLocation != "pantry" || b.FoodItemName != "Rice" {
		t.Fatalf("batch = %+v, want food item defaults", b)
	}
	want := expiry.Midnight(fixedNow).AddDate(0, 0, 180)
	if !b.ExpiryDate.Equal(want) {
		t.Fatalf("ExpiryDate = %v, want %v", b.ExpiryDate, want)
	}
	if b.State != models.StateAvailable || b.Source != models.SourceManual {
		t.Fatalf("state/source = %q/%q", b.State, b.Source)
	}
}

func TestAddBatchMergesSameKey(t *testing.T) {
	f := newFixture(t)

	first := f.addMilk(t, f.personal(), 1.5, 10, "")
	second := f.addMilk(t, f.personal(), 2, 10, "")

	if second.Message != "quantity merged into existing batch" {
		t.Errorf("second message = %q", second.Message)
	}
	if second.Data.ID != first.Data.ID {
		t.Fatalf("merge produced a new batch %s, want %s", second.Data.ID.Hex(), first.Data.ID.Hex())
	}
	batches := f.store.Batches()
	if len(batches) != 1 || batches[0].Quantity != 3.5 {
		t.Fatalf("batches = %+v, want one batch with 3.5", batches)
	}
}

func TestAddBatchMergeKeepsStoredPrecision(t *testing.T) {
	f := newFixture(t)
	f.addMilk(t, f.personal(), 0.1, 10, "")
	merged := f.addMilk(t, f.personal(), 0.2, 10, "")

	if merged.Data.Quantity != 0.3 {
		t.Fatalf("merged quantity = %v, want 0.3", merged.Data.Quantity)
	}
	if batches := f.store.Batches(); len(batches) != 1 || batches[0].Quantity != 0.3 {
		t.Fatalf("batches = %+v, want one batch holding 0.3", batches)
	}
}

func TestAddBatchSpringForwardDayKeepsExpiryDaysApart(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	f := newFixture(t)
	f.svc.SetClock(func() time.Time { return time.Date(2026, time.March, 20, 10, 0, 0, 0, loc) })

	add := func(day int) models.Result[*models.InventoryBatch] {
		t.Helper()
		expiresAt := time.Date(2026, time.March, day, 0, 0, 0, 0, loc)
		res, err := f.svc.AddBatch(context.Background(), f.personal(), f.userID, AddBatchInput{
			FoodItemID: f.milkID,
			UnitID:     f.liter,
			Quantity:   1,
			ExpiryDate: &expiresAt,
		})
		if err != nil {
			t.Fatalf("AddBatch(March %d) error = %v", day, err)
		}
		return res
	}

	// March 29 2026 has 23 hours in Berlin.
	add(30)
	second := add(29)
	if second.Message != "food item added to inventory" {
		t.Fatalf("second message = %q, want a new batch", second.Message)
	}
	if got := len(f.store.Batches()); got != 2 {
		t.Fatalf("batches = %d, want 2", got)
	}

	again := add(29)
	if again.Message != "quantity merged into existing batch" || again.Data.ID != second.Data.ID {
		t.Fatalf("same-day add = %q into %s, want merge into %s", again.Message, again.Data.ID.Hex(), second.Data.ID.Hex())
	}
}

func TestAddBatchKeepsDistinctKeysApart(t *testing.T) {
	f := newFixture(t)

	f.addMilk(t, f.personal(), 1, 10, "")
	f.addMilk(t, f.personal(), 1, 11, "")
	f.addMilk(t, f.personal(), 1, 10, "freezer")
	f.addMilk(t, models.FamilyScope(f.groupID), 1, 10, "")

	if got := len(f.store.Batches()); got != 4 {
		t.Fatalf("batches = %d, want 4 distinct batches", got)
	}
}

func TestAddBatchDoesNotMergeIntoUsedUp(t *testing.T) {
	f := newFixture(t)
	first := f.addMilk(t, f.personal(), 1, 10, "")

	if _, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, first.Data.ID, UseBatchInput{Amount: 1}); err != nil {
		t.Fatalf("UseBatch() error = %v", err)
	}
	second := f.addMilk(t, f.personal(), 1, 10, "")
	if second.Data.ID == first.Data.ID {
		t.Fatalf("acquisition merged into a used up batch")
	}
}

func TestAddBatchNotifiesWhenExpiringSoon(t *testing.T) {
	f := newFixture(t)

	res := f.addMilk(t, f.personal(), 1, 2, "")
	if res.Data.State != models.StateExpiringSoon || res.Data.DaysLeft != 2 {
		t.Fatalf("state/daysLeft = %q/%d", res.Data.State, res.Data.DaysLeft)
	}
	notes := f.store.Notifications()
	if len(notes) != 1 || notes[0].RelatedEntityID != res.Data.ID {
		t.Fatalf("notifications = %+v, want one for the batch", notes)
	}

	f.addMilk(t, f.personal(), 1, 2, "")
	if got := len(f.store.Notifications()); got != 1 {
		t.Fatalf("merge created a duplicate notification, have %d", got)
	}
}

func TestListBatchesRefreshesStaleState(t *testing.T) {
	f := newFixture(t)
	owner := f.userID
	stale := &models.InventoryBatch{
		OwnerUserID: &owner,
		FoodItemID:  f.milkID,
		UnitID:      f.liter,
		Quantity:    1,
		ExpiryDate:  expiry.Midnight(fixedNow).AddDate(0, 0, -1),
		State:       models.StateAvailable,
	}
	if err := f.store.InsertBatch(context.Background(), stale); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	f.addMilk(t, f.personal(), 1, 20, "")

	all, warnings, err := f.svc.ListBatches(context.Background(), f.personal(), ListFilter{})
	if err != nil || len(warnings) != 0 {
		t.Fatalf("ListBatches() error = %v, warnings %v", err, warnings)
	}
	if len(all) != 2 || all[0].State != models.StateExpired || all[0].DaysLeft != -1 {
		t.Fatalf("batches = %+v", all)
	}

	stored, _ := f.store.FindBatch(context.Background(), f.personal(), stale.ID)
	if stored.State != models.StateExpired {
		t.Fatalf("persisted state = %q, want expired", stored.State)
	}

	expired, _, err := f.svc.ListBatches(context.Background(), f.personal(), ListFilter{States: []models.FreshnessState{models.StateExpired}})
	if err != nil || len(expired) != 1 || expired[0].ID != stale.ID {
		t.Fatalf("filtered = %+v, %v", expired, err)
	}

	family, _, _ := f.svc.ListBatches(context.Background(), models.FamilyScope(f.groupID), ListFilter{})
	if len(family) != 0 {
		t.Fatalf("family scope sees %d personal batches", len(family))
	}
}

func TestUseBatch(t *testing.T) {
	f := newFixture(t)
	id := f.addMilk(t, f.personal(), 2, 10, "").Data.ID

	res, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 0.5})
	if err != nil {
		t.Fatalf("UseBatch() error = %v", err)
	}
	if res.Data.Quantity != 1.5 || res.Data.State != models.StateAvailable {
		t.Fatalf("after partial use = %v/%q", res.Data.Quantity, res.Data.State)
	}

	if _, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 5}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("overuse error = %v, want validation", err)
	}
	if _, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 0}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("zero use error = %v, want validation", err)
	}

	res, err = f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 1.5})
	if err != nil {
		t.Fatalf("UseBatch() error = %v", err)
	}
	if res.Data.State != models.StateUsedUp || res.Data.Quantity != 0 {
		t.Fatalf("after full use = %v/%q, want used_up", res.Data.Quantity, res.Data.State)
	}

	if _, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 1}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("use of used up batch error = %v, want invalid state", err)
	}
	if got := len(f.store.Consumptions()); got != 2 {
		t.Fatalf("consumption records = %d, want 2", got)
	}

	if _, err := f.svc.UseBatch(context.Background(), models.FamilyScope(f.groupID), f.userID, id, UseBatchInput{Amount: 1}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("out of scope use error = %v, want not found", err)
	}
}

func TestUseBatchRepeatedFractionsReachUsedUp(t *testing.T) {
	f := newFixture(t)
	id := f.addMilk(t, f.personal(), 0.3, 10, "").Data.ID

	if _, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 0.0004}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("sub-precision amount error = %v, want validation", err)
	}

	want := []float64{0.2, 0.1, 0}
	for i, remaining := range want {
		res, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 0.1})
		if err != nil {
			t.Fatalf("use %d error = %v", i+1, err)
		}
		if res.Data.Quantity != remaining {
			t.Fatalf("use %d quantity = %v, want %v", i+1, res.Data.Quantity, remaining)
		}
	}

	batch, _, err := f.svc.GetBatch(context.Background(), f.personal(), id)
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if batch.State != models.StateUsedUp || batch.Quantity != 0 {
		t.Fatalf("batch = %v/%q, want 0/used_up", batch.Quantity, batch.State)
	}
	if got := len(f.store.Consumptions()); got != 3 {
		t.Fatalf("consumption records = %d, want 3", got)
	}
}

func TestUpdateBatch(t *testing.T) {
	f := newFixture(t)
	id := f.addMilk(t, f.personal(), 2, 10, "").Data.ID

	res, err := f.svc.UpdateBatch(context.Background(), f.personal(), id, UpdateBatchInput{ExpiryDate: inDays(1)})
	if err != nil {
		t.Fatalf("UpdateBatch() error = %v", err)
	}
	if res.Data.State != models.StateExpiringSoon {
		t.Fatalf("state after moving expiry = %q, want expiring_soon", res.Data.State)
	}
	if got := len(f.store.Notifications()); got != 1 {
		t.Fatalf("notifications = %d, want 1", got)
	}

	zero := 0.0
	res, err = f.svc.UpdateBatch(context.Background(), f.personal(), id, UpdateBatchInput{Quantity: &zero})
	if err != nil {
		t.Fatalf("UpdateBatch() error = %v", err)
	}
	if res.Data.State != models.StateUsedUp {
		t.Fatalf("state at zero quantity = %q, want used_up", res.Data.State)
	}

	negative := -1.0
	if _, err := f.svc.UpdateBatch(context.Background(), f.personal(), id, UpdateBatchInput{Quantity: &negative}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("negative quantity error = %v, want validation", err)
	}
}

func TestDeleteBatchCascades(t *testing.T) {
	f := newFixture(t)
	id := f.addMilk(t, f.personal(), 2, 1, "").Data.ID
	if _, err := f.svc.UseBatch(context.Background(), f.personal(), f.userID, id, UseBatchInput{Amount: 1}); err != nil {
		t.Fatalf("UseBatch() error = %v", err)
	}
	if len(f.store.Notifications()) != 1 || len(f.store.Consumptions()) != 1 {
		t.Fatalf("fixture not set up: %d notifications, %d consumptions", len(f.store.Notifications()), len(f.store.Consumptions()))
	}

	if _, err := f.svc.DeleteBatch(context.Background(), models.FamilyScope(f.groupID), id); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("out of scope delete error = %v, want not found", err)
	}

	res, err := f.svc.DeleteBatch(context.Background(), f.personal(), id)
	if err != nil || !res.Success {
		t.Fatalf("DeleteBatch() = %+v, %v", res, err)
	}
	if len(f.store.Batches()) != 0 || len(f.store.Notifications()) != 0 || len(f.store.Consumptions()) != 0 {
		t.Fatalf("cascade left %d batches, %d notifications, %d consumptions",
			len(f.store.Batches()), len(f.store.Notifications()), len(f.store.Consumptions()))
	}
}

func TestExpiryFor(t *testing.T) {
	bought := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	explicit := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		explicit *time.Time
		food     *models.FoodItem
		want     time.Time
	}{
		{"explicit wins", &explicit, &models.FoodItem{AverageExpiryDays: 3}, explicit},
		{"average shelf life", nil, &models.FoodItem{AverageExpiryDays: 3}, bought.AddDate(0, 0, 3)},
		{"default week", nil, &models.FoodItem{}, bought.AddDate(0, 0, 7)},
		{"unknown food", nil, nil, bought.AddDate(0, 0, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpiryFor(tt.explicit, tt.food, bought); !got.Equal(tt.want) {
				t.Fatalf("ExpiryFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
