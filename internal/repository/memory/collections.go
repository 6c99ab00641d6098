package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
)

// FindBatches lists batches matching the filter, oldest expiry first.
func (s *Store) FindBatches(_ context.Context, filter repository.BatchFilter) ([]models.InventoryBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.InventoryBatch, 0)
	for _, b := range s.batches {
		if filter.Scope != nil && !filter.Scope.Matches(b.OwnerUserID, b.GroupID) {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, b.State) {
			continue
		}
		if len(filter.ExcludeStates) > 0 && containsState(filter.ExcludeStates, b.State) {
			continue
		}
		if filter.FoodItemID != nil && b.FoodItemID != *filter.FoodItemID {
			continue
		}
		if filter.PositiveQuantity && b.Quantity <= 0 {
			continue
		}
		out = append(out, b)
	}
	sortBatches(out)
	return out, nil
}

// FindBatch fetches one batch inside the scope.
func (s *Store) FindBatch(_ context.Context, scope models.Scope, id primitive.ObjectID) (*models.InventoryBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok || !scope.Matches(b.OwnerUserID, b.GroupID) {
		return nil, notFound("inventory batch")
	}
	return &b, nil
}

// InsertBatch stores a new batch and assigns its ID.
func (s *Store) InsertBatch(_ context.Context, batch *models.InventoryBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.ID.IsZero() {
		batch.ID = primitive.NewObjectID()
	}
	s.batches[batch.ID] = *batch
	return nil
}

// UpdateBatch applies a patch by ID.
func (s *Store) UpdateBatch(_ context.Context, id primitive.ObjectID, patch models.BatchPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return notFound("inventory batch")
	}
	if patch.Empty() {
		return nil
	}
	if patch.Quantity != nil {
		b.Quantity = *patch.Quantity
	}
	if patch.ExpiryDate != nil {
		b.ExpiryDate = *patch.ExpiryDate
	}
	if patch.StorageLocation != nil {
		b.StorageLocation = *patch.StorageLocation
	}
	if patch.State != nil {
		b.State = *patch.State
	}
	b.UpdatedAt = s.now()
	s.batches[id] = b
	return nil
}

// MergeBatch increments the oldest matching non-used_up batch or inserts.
func (s *Store) MergeBatch(_ context.Context, batch models.InventoryBatch) (models.InventoryBatch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := repository.KeyOf(batch)
	var match *models.InventoryBatch
	for id := range s.batches {
		b := s.batches[id]
		if b.State == models.StateUsedUp ||
			!key.Scope.Matches(b.OwnerUserID, b.GroupID) ||
			b.FoodItemID != key.FoodItemID ||
			b.UnitID != key.UnitID ||
			b.StorageLocation != key.StorageLocation ||
			!sameDay(b.ExpiryDate, key.ExpiryDay) {
			continue
		}
		if match == nil || b.CreatedAt.Before(match.CreatedAt) ||
			(b.CreatedAt.Equal(match.CreatedAt) && lessID(b.ID, match.ID)) {
			candidate := b
			match = &candidate
		}
	}

	now := s.now()
	if match != nil {
		match.Quantity = models.RoundQuantity(match.Quantity + batch.Quantity)
		match.UpdatedAt = now
		s.batches[match.ID] = *match
		return *match, true, nil
	}

	if batch.ID.IsZero() {
		batch.ID = primitive.NewObjectID()
	}
	batch.Quantity = models.RoundQuantity(batch.Quantity)
	batch.CreatedAt = now
	batch.UpdatedAt = now
	s.batches[batch.ID] = batch
	return batch, false, nil
}

// DeleteBatch removes a batch inside the scope.
func (s *Store) DeleteBatch(_ context.Context, scope models.Scope, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok || !scope.Matches(b.OwnerUserID, b.GroupID) {
		return notFound("inventory batch")
	}
	delete(s.batches, id)
	return nil
}

// InsertConsumption stores a consumption record.
func (s *Store) InsertConsumption(_ context.Context, rec *models.ConsumptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	s.consumptions[rec.ID] = *rec
	return nil
}

// DeleteConsumptions removes every record of a batch.
func (s *Store) DeleteConsumptions(_ context.Context, batchID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, c := range s.consumptions {
		if c.BatchID == batchID {
			delete(s.consumptions, id)
			n++
		}
	}
	return n, nil
}

// FindNotification looks up the notification holding the dedup key.
func (s *Store) FindNotification(_ context.Context, key models.DedupKey) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.Key() == key {
			found := n
			return &found, nil
		}
	}
	return nil, notFound("notification")
}

// InsertNotification stores a notification, enforcing the dedup key.
func (s *Store) InsertNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := n.Key()
	for _, existing := range s.notifications {
		if existing.Key() == key {
			return fmt.Errorf("%w: notification %s/%s", repository.ErrDuplicate, n.Kind, n.RelatedEntityID.Hex())
		}
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	s.notifications[n.ID] = *n
	return nil
}

// FindNotifications lists a recipient's notifications, newest first.
func (s *Store) FindNotifications(_ context.Context, filter repository.NotificationFilter) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientUserID != filter.RecipientUserID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return lessID(out[j].ID, out[i].ID)
	})
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkNotificationRead acknowledges one of the recipient's notifications.
func (s *Store) MarkNotificationRead(_ context.Context, recipient, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.RecipientUserID != recipient {
		return notFound("notification")
	}
	n.IsRead = true
	n.ReadAt = &at
	s.notifications[id] = n
	return nil
}

// DeleteNotifications removes every notification pointing at the entity.
func (s *Store) DeleteNotifications(_ context.Context, relatedEntityID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, existing := range s.notifications {
		if existing.RelatedEntityID == relatedEntityID {
			delete(s.notifications, id)
			n++
		}
	}
	return n, nil
}

// FindShoppingList fetches one list inside the scope.
func (s *Store) FindShoppingList(_ context.Context, scope models.Scope, id primitive.ObjectID) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[id]
	if !ok || !scope.Matches(l.OwnerUserID, l.GroupID) {
		return nil, notFound("shopping list")
	}
	l = cloneList(l)
	return &l, nil
}

// FindAutoDraft returns the newest auto-generated draft of the scope.
func (s *Store) FindAutoDraft(_ context.Context, scope models.Scope) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *models.ShoppingList
	for _, l := range s.lists {
		if l.Status != models.ListDraft || !l.IsAutoGenerated || !scope.Matches(l.OwnerUserID, l.GroupID) {
			continue
		}
		if newest == nil || l.CreatedAt.After(newest.CreatedAt) {
			candidate := cloneList(l)
			newest = &candidate
		}
	}
	if newest == nil {
		return nil, notFound("auto-generated draft")
	}
	return newest, nil
}

// InsertShoppingList stores a new list and assigns its ID.
func (s *Store) InsertShoppingList(_ context.Context, list *models.ShoppingList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if list.ID.IsZero() {
		list.ID = primitive.NewObjectID()
	}
	s.lists[list.ID] = cloneList(*list)
	return nil
}

// ReplaceItems overwrites the items and name of a non-completed list.
func (s *Store) ReplaceItems(_ context.Context, id primitive.ObjectID, name string, items []models.ShoppingListItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[id]
	if !ok || l.Status == models.ListCompleted {
		return fmt.Errorf("%w: shopping list is completed or missing", models.ErrInvalidState)
	}
	l.Items = append([]models.ShoppingListItem(nil), items...)
	if name != "" {
		l.Name = name
	}
	l.UpdatedAt = s.now()
	s.lists[id] = l
	return nil
}

// CompleteShoppingList claims the transition to completed.
func (s *Store) CompleteShoppingList(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[id]
	if !ok || l.Status == models.ListCompleted {
		return false, nil
	}
	l.Status = models.ListCompleted
	l.CompletedAt = &at
	l.UpdatedAt = at
	s.lists[id] = l
	return true, nil
}

// DeleteShoppingList removes a list inside the scope.
func (s *Store) DeleteShoppingList(_ context.Context, scope models.Scope, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[id]
	if !ok || !scope.Matches(l.OwnerUserID, l.GroupID) {
		return notFound("shopping list")
	}
	delete(s.lists, id)
	return nil
}

// FindUser fetches a user account.
func (s *Store) FindUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

// FindFamilyGroup fetches a family group.
func (s *Store) FindFamilyGroup(_ context.Context, id primitive.ObjectID) (*models.FamilyGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.families[id]
	if !ok {
		return nil, notFound("family group")
	}
	g.Members = append([]models.FamilyMember(nil), g.Members...)
	return &g, nil
}

// FindFoodItem fetches a food item.
func (s *Store) FindFoodItem(_ context.Context, id primitive.ObjectID) (*models.FoodItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.foods[id]
	if !ok {
		return nil, notFound("food item")
	}
	return &f, nil
}

// FindRecipe fetches a recipe.
func (s *Store) FindRecipe(_ context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, notFound("recipe")
	}
	return &r, nil
}

// FindMealPlan fetches a meal plan inside the scope.
func (s *Store) FindMealPlan(_ context.Context, scope models.Scope, id primitive.ObjectID) (*models.MealPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok || !scope.Matches(p.OwnerUserID, p.GroupID) {
		return nil, notFound("meal plan")
	}
	return &p, nil
}

// FindMealPlansStarting lists plans starting in [from, to).
func (s *Store) FindMealPlansStarting(_ context.Context, from, to time.Time) ([]models.MealPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.MealPlan, 0)
	for _, p := range s.plans {
		if !p.StartDate.Before(from) && p.StartDate.Before(to) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}
