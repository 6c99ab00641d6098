// Package memory is an in-process repository.Store used by tests and by the
// STORAGE_DRIVER=memory mode. It mirrors the MongoDB semantics the core relies
// on: scoped lookups, the unique notification dedup key and atomic merges.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu            sync.Mutex
	batches       map[primitive.ObjectID]models.InventoryBatch
	notifications map[primitive.ObjectID]models.Notification
	lists         map[primitive.ObjectID]models.ShoppingList
	consumptions  map[primitive.ObjectID]models.ConsumptionRecord
	users         map[primitive.ObjectID]models.User
	families      map[primitive.ObjectID]models.FamilyGroup
	foods         map[primitive.ObjectID]models.FoodItem
	recipes       map[primitive.ObjectID]models.Recipe
	plans         map[primitive.ObjectID]models.MealPlan
	now           func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		batches:       make(map[primitive.ObjectID]models.InventoryBatch),
		notifications: make(map[primitive.ObjectID]models.Notification),
		lists:         make(map[primitive.ObjectID]models.ShoppingList),
		consumptions:  make(map[primitive.ObjectID]models.ConsumptionRecord),
		users:         make(map[primitive.ObjectID]models.User),
		families:      make(map[primitive.ObjectID]models.FamilyGroup),
		foods:         make(map[primitive.ObjectID]models.FoodItem),
		recipes:       make(map[primitive.ObjectID]models.Recipe),
		plans:         make(map[primitive.ObjectID]models.MealPlan),
		now:           time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// PutUser upserts a user and returns its ID.
func (s *Store) PutUser(u models.User) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.users[u.ID] = u
	return u.ID
}

// PutFamilyGroup upserts a family group and returns its ID.
func (s *Store) PutFamilyGroup(g models.FamilyGroup) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.Members = append([]models.FamilyMember(nil), g.Members...)
	s.families[g.ID] = g
	return g.ID
}

// PutFoodItem upserts a food item and returns its ID.
func (s *Store) PutFoodItem(f models.FoodItem) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	s.foods[f.ID] = f
	return f.ID
}

// PutRecipe upserts a recipe and returns its ID.
func (s *Store) PutRecipe(r models.Recipe) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.Ingredients = append([]models.RecipeIngredient(nil), r.Ingredients...)
	s.recipes[r.ID] = r
	return r.ID
}

// PutMealPlan upserts a meal plan and returns its ID.
func (s *Store) PutMealPlan(p models.MealPlan) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Meals = append([]models.PlannedMeal(nil), p.Meals...)
	s.plans[p.ID] = p
	return p.ID
}

// Batches returns a snapshot of every stored batch.
func (s *Store) Batches() []models.InventoryBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InventoryBatch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b)
	}
	sortBatches(out)
	return out
}

// Notifications returns a snapshot of every stored notification.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// ShoppingLists returns a snapshot of every stored list.
func (s *Store) ShoppingLists() []models.ShoppingList {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ShoppingList, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, cloneList(l))
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// Consumptions returns a snapshot of every consumption record.
func (s *Store) Consumptions() []models.ConsumptionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConsumptionRecord, 0, len(s.consumptions))
	for _, c := range s.consumptions {
		out = append(out, c)
	}
	return out
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", models.ErrNotFound, what)
}

func lessID(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func sortBatches(out []models.InventoryBatch) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return lessID(out[i].ID, out[j].ID)
	})
}

func cloneList(l models.ShoppingList) models.ShoppingList {
	l.Items = append([]models.ShoppingListItem(nil), l.Items...)
	return l
}

func containsState(states []models.FreshnessState, st models.FreshnessState) bool {
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}

// sameDay reports whether a falls on the calendar day starting at midnight b.
func sameDay(a, b time.Time) bool {
	return !a.Before(b) && a.Before(b.AddDate(0, 0, 1))
}
