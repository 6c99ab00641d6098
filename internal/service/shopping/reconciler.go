// Package shopping reconciles required quantities against inventory into
// shopping lists and turns completed lists back into inventory.
package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/inventory"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/notification"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/scope"
)

const (
	component = "shopping"

	sourceDeficit  = "deficit"
	sourceMealPlan = "meal_plan"

	// RestockQuantity is the quantity put on a list for each deficit batch.
	RestockQuantity = 1.0
)

// Outcome tells what a reconciliation did.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeUpdated    Outcome = "updated"
	OutcomeSufficient Outcome = "sufficient"
)

// Reconciliation is the result of building a list. List is nil when the
// outcome is OutcomeSufficient.
type Reconciliation struct {
	Outcome Outcome              `json:"outcome"`
	List    *models.ShoppingList `json:"list,omitempty"`
}

// Sufficient reports whether nothing needs to be bought.
func (r Reconciliation) Sufficient() bool { return r.Outcome == OutcomeSufficient }

// Completion lists the batches produced by completing a list.
type Completion struct {
	List    models.ShoppingList     `json:"list"`
	Created []models.InventoryBatch `json:"created"`
	Updated []models.InventoryBatch `json:"updated"`
}

// Inventory is the acquisition side the reconciler writes through.
type Inventory interface {
	Acquire(ctx context.Context, scope models.Scope, in inventory.AcquireInput) (inventory.Acquisition, error)
	RefreshAll(ctx context.Context, batches []models.InventoryBatch) []models.Warning
}

// Notifier announces changes of shared lists.
type Notifier interface {
	NotifyShoppingUpdate(ctx context.Context, list models.ShoppingList, actor primitive.ObjectID, message string) notification.Report
}

// OwnerChecker guards owner-only actions in family scope.
type OwnerChecker interface {
	RequireOwner(ctx context.Context, caller scope.Caller, sc models.Scope) error
}

// Reconciler builds and completes shopping lists.
type Reconciler struct {
	batches   repository.BatchStore
	lists     repository.ShoppingListStore
	catalog   repository.CatalogStore
	inventory Inventory
	notifier  Notifier
	owners    OwnerChecker
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewReconciler wires a reconciler.
func NewReconciler(
	batches repository.BatchStore,
	lists repository.ShoppingListStore,
	catalog repository.CatalogStore,
	inv Inventory,
	notifier Notifier,
	owners OwnerChecker,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		batches:   batches,
		lists:     lists,
		catalog:   catalog,
		inventory: inv,
		notifier:  notifier,
		owners:    owners,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the time source.
func (r *Reconciler) SetClock(now func() time.Time) { r.now = now }

// BuildDeficitShoppingList puts one restock unit per expired, used up or
// expiring batch of the scope on the scope's auto-generated draft.
func (r *Reconciler) BuildDeficitShoppingList(ctx context.Context, sc models.Scope, caller primitive.ObjectID) (models.Result[Reconciliation], error) {
	var empty models.Result[Reconciliation]

	batches, err := r.batches.FindBatches(ctx, repository.BatchFilter{Scope: &sc})
	if err != nil {
		return empty, fmt.Errorf("load batches: %w", err)
	}
	warnings := r.inventory.RefreshAll(ctx, batches)

	deficit := newDemand()
	for _, b := range batches {
		reason, ok := deficitReason(b.State)
		if !ok {
			continue
		}
		deficit.add(models.DemandRequirement{
			FoodItemID: b.FoodItemID,
			UnitID:     b.UnitID,
			Quantity:   RestockQuantity,
			Reason:     reason,
		}, b.FoodItemName)
	}

	if deficit.empty() {
		r.metrics.ShoppingListProduced(sourceDeficit, string(OutcomeSufficient))
		return models.OK("nothing to buy", Reconciliation{Outcome: OutcomeSufficient}, warnings...), nil
	}

	now := r.now()
	items := r.itemsFor(ctx, deficit.requirements(), deficit.names)
	name := fmt.Sprintf("Restock list %s", now.Format("2006-01-02"))

	draft, err := r.lists.FindAutoDraft(ctx, sc)
	switch {
	case err == nil:
		if err := r.lists.ReplaceItems(ctx, draft.ID, name, items); err != nil {
			return empty, fmt.Errorf("update draft list: %w", err)
		}
		draft.Name, draft.Items, draft.UpdatedAt = name, items, now
		r.metrics.ShoppingListProduced(sourceDeficit, string(OutcomeUpdated))
		r.logger.Info("deficit draft updated", zap.Stringer("list_id", draft.ID), zap.Int("items", len(items)))
		return models.OK("shopping list updated", Reconciliation{Outcome: OutcomeUpdated, List: draft}, warnings...), nil
	case !errors.Is(err, models.ErrNotFound):
		return empty, fmt.Errorf("load draft list: %w", err)
	}

	owner, group := sc.Owner()
	list := &models.ShoppingList{
		OwnerUserID:     owner,
		GroupID:         group,
		CreatedBy:       caller,
		Name:            name,
		Status:          models.ListDraft,
		IsAutoGenerated: true,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.lists.InsertShoppingList(ctx, list); err != nil {
		return empty, fmt.Errorf("create draft list: %w", err)
	}
	r.metrics.ShoppingListProduced(sourceDeficit, string(OutcomeCreated))
	r.logger.Info("deficit draft created", zap.Stringer("list_id", list.ID), zap.Int("items", len(items)))
	return models.OK("shopping list created", Reconciliation{Outcome: OutcomeCreated, List: list}, warnings...), nil
}

// BuildMealPlanShoppingList lists what the scope lacks to cook every meal of
// the plan. Each run creates its own active list.
func (r *Reconciler) BuildMealPlanShoppingList(ctx context.Context, sc models.Scope, caller, mealPlanID primitive.ObjectID) (models.Result[Reconciliation], error) {
	var empty models.Result[Reconciliation]

	plan, err := r.catalog.FindMealPlan(ctx, sc, mealPlanID)
	if err != nil {
		return empty, err
	}

	var warnings []models.Warning
	required := newDemand()
	for _, meal := range plan.Meals {
		recipe, err := r.catalog.FindRecipe(ctx, meal.RecipeID)
		if err != nil {
			warnings = append(warnings, r.warn("load recipe", err, zap.Stringer("recipe_id", meal.RecipeID)))
			continue
		}
		ratio := servingRatio(meal.Servings, recipe.Servings)
		for _, ing := range recipe.Ingredients {
			required.addDecimal(ing.FoodItemID, ing.UnitID, decimal.NewFromFloat(ing.Quantity).Mul(ratio), models.ReasonExpiringSoon, "")
		}
	}

	batches, err := r.batches.FindBatches(ctx, repository.BatchFilter{Scope: &sc})
	if err != nil {
		return empty, fmt.Errorf("load batches: %w", err)
	}
	warnings = append(warnings, r.inventory.RefreshAll(ctx, batches)...)

	available := make(map[demandKey]decimal.Decimal)
	for _, b := range batches {
		if b.State != models.StateAvailable && b.State != models.StateExpiringSoon {
			continue
		}
		k := demandKey{food: b.FoodItemID, unit: b.UnitID}
		available[k] = available[k].Add(decimal.NewFromFloat(b.Quantity))
		if _, ok := required.names[k.food]; !ok && b.FoodItemName != "" {
			required.names[k.food] = b.FoodItemName
		}
	}

	shortfalls := shortfallsOf(required, available)
	if len(shortfalls) == 0 {
		r.metrics.ShoppingListProduced(sourceMealPlan, string(OutcomeSufficient))
		return models.OK("inventory covers the meal plan", Reconciliation{Outcome: OutcomeSufficient}, warnings...), nil
	}

	now := r.now()
	owner, group := sc.Owner()
	planID := plan.ID
	list := &models.ShoppingList{
		OwnerUserID:      owner,
		GroupID:          group,
		CreatedBy:        caller,
		Name:             mealPlanListName(plan),
		Status:           models.ListActive,
		IsAutoGenerated:  true,
		SourceMealPlanID: &planID,
		Items:            r.itemsFor(ctx, shortfalls, required.names),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.lists.InsertShoppingList(ctx, list); err != nil {
		return empty, fmt.Errorf("create meal plan list: %w", err)
	}
	r.metrics.ShoppingListProduced(sourceMealPlan, string(OutcomeCreated))
	r.logger.Info("meal plan list created",
		zap.Stringer("list_id", list.ID),
		zap.Stringer("meal_plan_id", plan.ID),
		zap.Int("items", len(list.Items)))
	return models.OK("shopping list created", Reconciliation{Outcome: OutcomeCreated, List: list}, warnings...), nil
}

// GetShoppingList returns one list of the scope.
func (r *Reconciler) GetShoppingList(ctx context.Context, sc models.Scope, id primitive.ObjectID) (*models.ShoppingList, error) {
	return r.lists.FindShoppingList(ctx, sc, id)
}

// SetItemBought marks an item bought or not bought.
func (r *Reconciler) SetItemBought(ctx context.Context, sc models.Scope, caller, listID, itemID primitive.ObjectID, bought bool) (models.Result[*models.ShoppingList], error) {
	var empty models.Result[*models.ShoppingList]

	list, err := r.lists.FindShoppingList(ctx, sc, listID)
	if err != nil {
		return empty, err
	}
	if list.Status == models.ListCompleted {
		return empty, fmt.Errorf("%w: shopping list is completed", models.ErrInvalidState)
	}

	idx := -1
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return empty, fmt.Errorf("%w: shopping list item", models.ErrNotFound)
	}

	item := &list.Items[idx]
	item.IsBought = bought
	if bought {
		at := r.now()
		by := caller
		item.PurchasedAt, item.PurchasedBy = &at, &by
	} else {
		item.PurchasedAt, item.PurchasedBy = nil, nil
	}

	if err := r.lists.ReplaceItems(ctx, list.ID, list.Name, list.Items); err != nil {
		return empty, fmt.Errorf("update shopping list item: %w", err)
	}
	list.UpdatedAt = r.now()

	verb := "bought"
	if !bought {
		verb = "not bought"
	}
	report := r.notifier.NotifyShoppingUpdate(ctx, *list, caller,
		fmt.Sprintf("%s was marked as %s on %s", itemName(*item), verb, list.Name))
	return models.OK("shopping list item updated", list, report.Warnings...), nil
}

// CompleteShoppingList closes the list and moves every bought item into
// inventory. The list is claimed as completed before any batch is written.
func (r *Reconciler) CompleteShoppingList(ctx context.Context, sc models.Scope, caller, listID primitive.ObjectID) (models.Result[Completion], error) {
	var empty models.Result[Completion]

	list, err := r.lists.FindShoppingList(ctx, sc, listID)
	if err != nil {
		return empty, err
	}
	if list.Status == models.ListCompleted {
		return empty, fmt.Errorf("%w: shopping list is already completed", models.ErrInvalidState)
	}
	bought := list.BoughtItems()
	if len(bought) == 0 {
		return empty, fmt.Errorf("%w: no item is marked as bought", models.ErrInvalidState)
	}

	now := r.now()
	claimed, err := r.lists.CompleteShoppingList(ctx, list.ID, now)
	if err != nil {
		return empty, fmt.Errorf("complete shopping list: %w", err)
	}
	if !claimed {
		return empty, fmt.Errorf("%w: shopping list is already completed", models.ErrInvalidState)
	}
	list.Status, list.CompletedAt, list.UpdatedAt = models.ListCompleted, &now, now

	var (
		warnings   []models.Warning
		completion = Completion{Created: []models.InventoryBatch{}, Updated: []models.InventoryBatch{}}
		sourceID   = list.ID
		stocked    []string
	)
	for _, item := range bought {
		food, err := r.catalog.FindFoodItem(ctx, item.FoodItemID)
		if err != nil {
			warnings = append(warnings, r.warn("load food item", err, zap.Stringer("food_item_id", item.FoodItemID)))
			food = nil
		}

		purchasedAt := now
		if item.PurchasedAt != nil {
			purchasedAt = *item.PurchasedAt
		}
		name := item.FoodItemName
		if name == "" && food != nil {
			name = food.Name
		}

		acq, err := r.inventory.Acquire(ctx, sc, inventory.AcquireInput{
			CreatedBy:            caller,
			FoodItemID:           item.FoodItemID,
			FoodItemName:         name,
			UnitID:               item.UnitID,
			Quantity:             item.Quantity,
			ExpiryDate:           inventory.ExpiryFor(item.ExpiryDate, food, purchasedAt),
			StorageLocation:      inventory.StorageLocationFor(item.StorageLocation, food),
			Source:               models.SourceShoppingList,
			SourceShoppingListID: &sourceID,
		})
		if err != nil {
			r.logger.Error("shopping list completed with items left unstocked",
				zap.Stringer("list_id", list.ID),
				zap.Strings("stocked", stocked),
				zap.String("failed", itemName(item)),
				zap.Error(err))
			return empty, fmt.Errorf("acquire %s (list %q is completed; stocked so far: %s): %w",
				itemName(item), list.Name, stockedSummary(stocked), err)
		}
		label := name
		if label == "" {
			label = itemName(item)
		}
		stocked = append(stocked, fmt.Sprintf("%s %g", label, models.RoundQuantity(item.Quantity)))
		warnings = append(warnings, acq.Warnings...)
		if acq.Merged {
			completion.Updated = append(completion.Updated, acq.Batch)
		} else {
			completion.Created = append(completion.Created, acq.Batch)
		}
	}
	completion.List = *list

	report := r.notifier.NotifyShoppingUpdate(ctx, *list, caller, fmt.Sprintf("%s was completed", list.Name))
	warnings = append(warnings, report.Warnings...)

	r.logger.Info("shopping list completed",
		zap.Stringer("list_id", list.ID),
		zap.Int("created", len(completion.Created)),
		zap.Int("updated", len(completion.Updated)))
	return models.OK("shopping list completed", completion, warnings...), nil
}

// DeleteShoppingList removes a list. In a family scope only the owner may do so.
func (r *Reconciler) DeleteShoppingList(ctx context.Context, caller scope.Caller, sc models.Scope, id primitive.ObjectID) (models.Result[primitive.ObjectID], error) {
	if _, err := r.lists.FindShoppingList(ctx, sc, id); err != nil {
		return models.Result[primitive.ObjectID]{}, err
	}
	if err := r.owners.RequireOwner(ctx, caller, sc); err != nil {
		return models.Result[primitive.ObjectID]{}, err
	}
	if err := r.lists.DeleteShoppingList(ctx, sc, id); err != nil {
		return models.Result[primitive.ObjectID]{}, err
	}
	return models.OK("shopping list deleted", id), nil
}

func (r *Reconciler) itemsFor(ctx context.Context, reqs []models.DemandRequirement, names map[primitive.ObjectID]string) []models.ShoppingListItem {
	items := make([]models.ShoppingListItem, 0, len(reqs))
	for _, req := range reqs {
		name, ok := names[req.FoodItemID]
		if !ok {
			if food, err := r.catalog.FindFoodItem(ctx, req.FoodItemID); err == nil {
				name = food.Name
				names[req.FoodItemID] = name
			} else {
				r.logger.Debug("food item name unavailable", zap.Stringer("food_item_id", req.FoodItemID), zap.Error(err))
			}
		}
		items = append(items, models.ShoppingListItem{
			ID:           primitive.NewObjectID(),
			FoodItemID:   req.FoodItemID,
			FoodItemName: name,
			UnitID:       req.UnitID,
			Quantity:     req.Quantity,
			Reason:       req.Reason,
		})
	}
	return items
}

func (r *Reconciler) warn(action string, err error, fields ...zap.Field) models.Warning {
	r.metrics.SideEffectFailed(component)
	r.logger.Warn(action+" failed", append(fields, zap.Error(err))...)
	return models.Warning{Component: component, Message: fmt.Sprintf("%s: %v", action, err)}
}

func deficitReason(state models.FreshnessState) (models.ItemReason, bool) {
	switch state {
	case models.StateExpired:
		return models.ReasonExpired, true
	case models.StateUsedUp:
		return models.ReasonUsedUp, true
	case models.StateExpiringSoon:
		return models.ReasonExpiringSoon, true
	default:
		return "", false
	}
}

// servingRatio scales a recipe to the planned servings. Missing values on
// either side fall back to the recipe's own quantities.
func servingRatio(planned, recipe int) decimal.Decimal {
	if planned <= 0 || recipe <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(planned)).Div(decimal.NewFromInt(int64(recipe)))
}

func mealPlanListName(plan *models.MealPlan) string {
	if plan.Name != "" {
		return "Shopping for " + plan.Name
	}
	return "Shopping for meal plan " + plan.StartDate.Format("2006-01-02")
}

func stockedSummary(stocked []string) string {
	if len(stocked) == 0 {
		return "nothing"
	}
	return strings.Join(stocked, ", ")
}

func itemName(item models.ShoppingListItem) string {
	if item.FoodItemName != "" {
		return item.FoodItemName
	}
	return "An item"
}
