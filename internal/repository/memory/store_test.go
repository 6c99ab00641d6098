package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
)

var day = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

func batchFor(sc models.Scope, food, unit primitive.ObjectID, qty float64) models.InventoryBatch {
	owner, group := sc.Owner()
	return models.InventoryBatch{
		OwnerUserID:     owner,
		GroupID:         group,
		FoodItemID:      food,
		UnitID:          unit,
		Quantity:        qty,
		ExpiryDate:      day,
		StorageLocation: "fridge",
		State:           models.StateAvailable,
	}
}

func TestMergeBatchConcurrentAcquisitions(t *testing.T) {
	s := New()
	sc := models.PersonalScope(primitive.NewObjectID())
	food, unit := primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.MergeBatch(context.Background(), batchFor(sc, food, unit, 0.5)); err != nil {
				t.Errorf("MergeBatch() error = %v", err)
			}
		}()
	}
	wg.Wait()

	batches := s.Batches()
	if len(batches) != 1 || batches[0].Quantity != 10 {
		t.Fatalf("batches = %+v, want one batch holding 10", batches)
	}
}

func TestMergeBatchRespectsScope(t *testing.T) {
	s := New()
	userID, groupID := primitive.NewObjectID(), primitive.NewObjectID()
	food, unit := primitive.NewObjectID(), primitive.NewObjectID()

	_, merged, _ := s.MergeBatch(context.Background(), batchFor(models.PersonalScope(userID), food, unit, 1))
	if merged {
		t.Fatal("first acquisition reported a merge")
	}
	_, merged, _ = s.MergeBatch(context.Background(), batchFor(models.FamilyScope(groupID), food, unit, 1))
	if merged {
		t.Fatal("family acquisition merged into a personal batch")
	}

	personal := models.PersonalScope(userID)
	got, err := s.FindBatches(context.Background(), repository.BatchFilter{Scope: &personal})
	if err != nil || len(got) != 1 || got[0].GroupID != nil {
		t.Fatalf("personal FindBatches() = %+v, %v", got, err)
	}
	family := models.FamilyScope(groupID)
	got, _ = s.FindBatches(context.Background(), repository.BatchFilter{Scope: &family})
	if len(got) != 1 || got[0].OwnerUserID != nil {
		t.Fatalf("family FindBatches() = %+v", got)
	}
}

func TestInsertNotificationDedupKey(t *testing.T) {
	s := New()
	n := models.Notification{
		RecipientUserID: primitive.NewObjectID(),
		Kind:            models.KindExpiringSoon,
		RelatedEntityID: primitive.NewObjectID(),
	}

	first := n
	if err := s.InsertNotification(context.Background(), &first); err != nil {
		t.Fatalf("InsertNotification() error = %v", err)
	}
	second := n
	if err := s.InsertNotification(context.Background(), &second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate insert error = %v, want ErrDuplicate", err)
	}

	expired := n
	expired.Kind = models.KindExpired
	if err := s.InsertNotification(context.Background(), &expired); err != nil {
		t.Fatalf("different kind rejected: %v", err)
	}

	found, err := s.FindNotification(context.Background(), n.Key())
	if err != nil || found.ID != first.ID {
		t.Fatalf("FindNotification() = %+v, %v", found, err)
	}
}

func TestCompleteShoppingListClaimsOnce(t *testing.T) {
	s := New()
	owner := primitive.NewObjectID()
	list := &models.ShoppingList{OwnerUserID: &owner, Status: models.ListActive}
	if err := s.InsertShoppingList(context.Background(), list); err != nil {
		t.Fatalf("InsertShoppingList() error = %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CompleteShoppingList(context.Background(), list.ID, day)
			if err != nil {
				t.Errorf("CompleteShoppingList() error = %v", err)
			}
			if ok {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if claimed != 1 {
		t.Fatalf("claimed %d times, want 1", claimed)
	}
	if err := s.ReplaceItems(context.Background(), list.ID, "", nil); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("ReplaceItems() on completed list error = %v, want invalid state", err)
	}
}

func TestFindShoppingListOutsideScope(t *testing.T) {
	s := New()
	owner, other := primitive.NewObjectID(), primitive.NewObjectID()
	list := &models.ShoppingList{OwnerUserID: &owner, Status: models.ListDraft}
	_ = s.InsertShoppingList(context.Background(), list)

	if _, err := s.FindShoppingList(context.Background(), models.PersonalScope(other), list.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("FindShoppingList() error = %v, want not found", err)
	}
	if err := s.DeleteShoppingList(context.Background(), models.PersonalScope(other), list.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("DeleteShoppingList() error = %v, want not found", err)
	}
}

func TestMergeBatchRoundsSum(t *testing.T) {
	s := New()
	sc := models.PersonalScope(primitive.NewObjectID())
	food, unit := primitive.NewObjectID(), primitive.NewObjectID()

	if _, _, err := s.MergeBatch(context.Background(), batchFor(sc, food, unit, 0.1)); err != nil {
		t.Fatalf("MergeBatch() error = %v", err)
	}
	got, merged, err := s.MergeBatch(context.Background(), batchFor(sc, food, unit, 0.2))
	if err != nil || !merged {
		t.Fatalf("MergeBatch() merged = %v, error = %v", merged, err)
	}
	if got.Quantity != 0.3 {
		t.Fatalf("quantity = %v, want 0.3", got.Quantity)
	}
}

func TestMergeBatchCalendarDayAcrossClockChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	s := New()
	sc := models.PersonalScope(primitive.NewObjectID())
	food, unit := primitive.NewObjectID(), primitive.NewObjectID()

	at := func(day int) models.InventoryBatch {
		b := batchFor(sc, food, unit, 1)
		b.ExpiryDate = time.Date(2026, time.March, day, 0, 0, 0, 0, loc)
		return b
	}

	tests := []struct {
		name       string
		batch      models.InventoryBatch
		wantMerged bool
	}{
		{"day after the change", at(30), false},
		{"23 hour day", at(29), false},
		{"23 hour day again", at(29), true},
		{"day before the change", at(28), false},
	}
	for _, tt := range tests {
		_, merged, err := s.MergeBatch(context.Background(), tt.batch)
		if err != nil {
			t.Fatalf("%s: MergeBatch() error = %v", tt.name, err)
		}
		if merged != tt.wantMerged {
			t.Fatalf("%s: merged = %v, want %v", tt.name, merged, tt.wantMerged)
		}
	}
	if got := len(s.Batches()); got != 3 {
		t.Fatalf("batches = %d, want 3", got)
	}
}
