// Package inventory manages batches: acquisition with additive merge, updates,
// consumption and deletion. Every path that surfaces or changes a batch
// re-derives its freshness state.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/expiry"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/notification"
)

// DefaultShelfLifeDays applies when neither an explicit date nor the food
// item's average shelf life is known.
const DefaultShelfLifeDays = 7

const component = "inventory"

// Notifier is the notification entry point used after every batch write.
type Notifier interface {
	NotifyIfNeeded(ctx context.Context, batch *models.InventoryBatch) notification.Report
}

// AddBatchInput is a manual acquisition request.
type AddBatchInput struct {
	FoodItemID      primitive.ObjectID `json:"foodItemId" validate:"required"`
	UnitID          primitive.ObjectID `json:"unitId"`
	Quantity        float64            `json:"quantity" validate:"gt=0"`
	ExpiryDate      *time.Time         `json:"expiryDate"`
	StorageLocation string             `json:"storageLocation" validate:"omitempty,max=64"`
}

// UpdateBatchInput changes quantity, expiry date or location.
type UpdateBatchInput struct {
	Quantity        *float64   `json:"quantity" validate:"omitempty,gte=0"`
	ExpiryDate      *time.Time `json:"expiryDate"`
	StorageLocation *string    `json:"storageLocation" validate:"omitempty,min=1,max=64"`
}

// UseBatchInput consumes part of a batch.
type UseBatchInput struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// AcquireInput is the internal acquisition primitive shared by manual entry
// and shopping-list completion. Inputs are already validated.
type AcquireInput struct {
	CreatedBy            primitive.ObjectID
	FoodItemID           primitive.ObjectID
	FoodItemName         string
	UnitID               primitive.ObjectID
	Quantity             float64
	ExpiryDate           time.Time
	StorageLocation      string
	Source               models.AcquisitionSource
	SourceShoppingListID *primitive.ObjectID
}

// Acquisition is the outcome of Acquire.
type Acquisition struct {
	Batch    models.InventoryBatch
	Merged   bool
	Warnings []models.Warning
}

// ListFilter narrows ListBatches after states are refreshed.
type ListFilter struct {
	States     []models.FreshnessState
	FoodItemID *primitive.ObjectID
}

// Service implements inventory operations.
type Service struct {
	batches       repository.BatchStore
	consumptions  repository.ConsumptionStore
	notifications repository.NotificationStore
	catalog       repository.CatalogStore
	notifier      Notifier
	validate      *validator.Validate
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewService constructs an inventory service.
func NewService(
	batches repository.BatchStore,
	consumptions repository.ConsumptionStore,
	notifications repository.NotificationStore,
	catalog repository.CatalogStore,
	notifier Notifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:       batches,
		consumptions:  consumptions,
		notifications: notifications,
		catalog:       catalog,
		notifier:      notifier,
		validate:      validator.New(),
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// AddBatch validates a manual acquisition and merges it into inventory.
func (s *Service) AddBatch(ctx context.Context, scope models.Scope, caller primitive.ObjectID, in AddBatchInput) (models.Result[*models.InventoryBatch], error) {
	var empty models.Result[*models.InventoryBatch]
	if err := s.check(in); err != nil {
		return empty, err
	}

	food, err := s.catalog.FindFoodItem(ctx, in.FoodItemID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return empty, fmt.Errorf("%w: unknown food item", models.ErrValidation)
		}
		return empty, fmt.Errorf("load food item: %w", err)
	}

	unitID := in.UnitID
	if unitID.IsZero() {
		unitID = food.DefaultUnitID
	}
	if unitID.IsZero() {
		return empty, fmt.Errorf("%w: unit is required", models.ErrValidation)
	}

	now := s.now()
	var expiryDate time.Time
	switch {
	case in.ExpiryDate != nil && !in.ExpiryDate.IsZero():
		expiryDate = *in.ExpiryDate
	case food.AverageExpiryDays > 0:
		expiryDate = now.AddDate(0, 0, food.AverageExpiryDays)
	default:
		return empty, fmt.Errorf("%w: expiry date is required", models.ErrValidation)
	}

	acq, err := s.Acquire(ctx, scope, AcquireInput{
		CreatedBy:       caller,
		FoodItemID:      food.ID,
		FoodItemName:    food.Name,
		UnitID:          unitID,
		Quantity:        in.Quantity,
		ExpiryDate:      expiryDate,
		StorageLocation: storageLocation(in.StorageLocation, food),
		Source:          models.SourceManual,
	})
	if err != nil {
		return empty, err
	}

	message := "food item added to inventory"
	if acq.Merged {
		message = "quantity merged into existing batch"
	}
	return models.OK(message, &acq.Batch, acq.Warnings...), nil
}

// Acquire folds the quantity into the matching batch of the scope, or creates
// a batch, then refreshes its state and runs notifications.
func (s *Service) Acquire(ctx context.Context, scope models.Scope, in AcquireInput) (Acquisition, error) {
	in.Quantity = models.RoundQuantity(in.Quantity)
	if in.Quantity <= 0 {
		return Acquisition{}, fmt.Errorf("%w: quantity must be positive", models.ErrValidation)
	}

	now := s.now()
	owner, group := scope.Owner()
	expiryDate := expiry.Midnight(in.ExpiryDate.In(now.Location()))
	state, _ := expiry.Derive(expiryDate, models.StateAvailable, now)

	batch := models.InventoryBatch{
		OwnerUserID:          owner,
		GroupID:              group,
		CreatedBy:            in.CreatedBy,
		FoodItemID:           in.FoodItemID,
		FoodItemName:         in.FoodItemName,
		UnitID:               in.UnitID,
		Quantity:             in.Quantity,
		ExpiryDate:           expiryDate,
		StorageLocation:      in.StorageLocation,
		State:                state,
		Source:               in.Source,
		SourceShoppingListID: in.SourceShoppingListID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if batch.StorageLocation == "" {
		batch.StorageLocation = models.DefaultStorageLocation
	}

	stored, merged, err := s.batches.MergeBatch(ctx, batch)
	if err != nil {
		return Acquisition{}, fmt.Errorf("acquire batch: %w", err)
	}
	s.metrics.BatchAcquired(merged)
	s.logger.Info("batch acquired",
		zap.Stringer("batch_id", stored.ID),
		zap.String("scope", scope.String()),
		zap.Bool("merged", merged),
		zap.Float64("quantity", in.Quantity))

	report := s.notifier.NotifyIfNeeded(ctx, &stored)
	expiry.Refresh(&stored, now)
	return Acquisition{Batch: stored, Merged: merged, Warnings: report.Warnings}, nil
}

// ListBatches returns the scope's batches with refreshed states.
func (s *Service) ListBatches(ctx context.Context, scope models.Scope, filter ListFilter) ([]models.InventoryBatch, []models.Warning, error) {
	batches, err := s.batches.FindBatches(ctx, repository.BatchFilter{Scope: &scope, FoodItemID: filter.FoodItemID})
	if err != nil {
		return nil, nil, fmt.Errorf("list batches: %w", err)
	}

	warnings := s.RefreshAll(ctx, batches)
	if len(filter.States) == 0 {
		return batches, warnings, nil
	}

	out := make([]models.InventoryBatch, 0, len(batches))
	for _, b := range batches {
		for _, st := range filter.States {
			if b.State == st {
				out = append(out, b)
				break
			}
		}
	}
	return out, warnings, nil
}

// RefreshAll re-derives states in place and persists the ones that changed.
// Persist failures are reported as warnings.
func (s *Service) RefreshAll(ctx context.Context, batches []models.InventoryBatch) []models.Warning {
	now := s.now()
	var warnings []models.Warning
	for i := range batches {
		changed, _ := expiry.Refresh(&batches[i], now)
		if !changed {
			continue
		}
		state := batches[i].State
		if err := s.batches.UpdateBatch(ctx, batches[i].ID, models.BatchPatch{State: &state}); err != nil {
			warnings = append(warnings, s.warn("persist refreshed state", err, batches[i].ID))
		}
	}
	return warnings
}

// GetBatch returns one batch of the scope with a refreshed state.
func (s *Service) GetBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.InventoryBatch, []models.Warning, error) {
	batch, err := s.batches.FindBatch(ctx, scope, id)
	if err != nil {
		return nil, nil, err
	}
	one := []models.InventoryBatch{*batch}
	warnings := s.RefreshAll(ctx, one)
	return &one[0], warnings, nil
}

// UpdateBatch applies changes, re-derives the state and runs notifications.
func (s *Service) UpdateBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID, in UpdateBatchInput) (models.Result[*models.InventoryBatch], error) {
	var empty models.Result[*models.InventoryBatch]
	if err := s.check(in); err != nil {
		return empty, err
	}

	batch, err := s.batches.FindBatch(ctx, scope, id)
	if err != nil {
		return empty, err
	}

	now := s.now()
	var patch models.BatchPatch
	if in.Quantity != nil {
		batch.Quantity = models.RoundQuantity(*in.Quantity)
		patch.Quantity = &batch.Quantity
	}
	if in.ExpiryDate != nil {
		if in.ExpiryDate.IsZero() {
			return empty, fmt.Errorf("%w: expiry date is invalid", models.ErrValidation)
		}
		normalized := expiry.Midnight(in.ExpiryDate.In(now.Location()))
		batch.ExpiryDate = normalized
		patch.ExpiryDate = &normalized
	}
	if in.StorageLocation != nil {
		batch.StorageLocation = *in.StorageLocation
		patch.StorageLocation = in.StorageLocation
	}

	if changed, _ := expiry.Settle(batch, now); changed || in.Quantity != nil {
		state := batch.State
		patch.State = &state
		quantity := batch.Quantity
		patch.Quantity = &quantity
	}
	if err := s.batches.UpdateBatch(ctx, batch.ID, patch); err != nil {
		return empty, fmt.Errorf("update batch: %w", err)
	}

	report := s.notifier.NotifyIfNeeded(ctx, batch)
	return models.OK("inventory batch updated", batch, report.Warnings...), nil
}

// UseBatch consumes amount from a batch; reaching zero marks it used_up.
func (s *Service) UseBatch(ctx context.Context, scope models.Scope, caller, id primitive.ObjectID, in UseBatchInput) (models.Result[*models.InventoryBatch], error) {
	var empty models.Result[*models.InventoryBatch]
	if err := s.check(in); err != nil {
		return empty, err
	}

	batch, err := s.batches.FindBatch(ctx, scope, id)
	if err != nil {
		return empty, err
	}
	if batch.State == models.StateUsedUp {
		return empty, fmt.Errorf("%w: batch is already used up", models.ErrInvalidState)
	}
	remaining := decimal.NewFromFloat(batch.Quantity).Round(models.QuantityPlaces)
	amount := decimal.NewFromFloat(in.Amount).Round(models.QuantityPlaces)
	if !amount.IsPositive() {
		return empty, fmt.Errorf("%w: amount rounds to zero", models.ErrValidation)
	}
	if amount.GreaterThan(remaining) {
		return empty, fmt.Errorf("%w: amount exceeds remaining quantity %s", models.ErrValidation, remaining.String())
	}

	now := s.now()
	batch.Quantity = remaining.Sub(amount).InexactFloat64()
	expiry.Settle(batch, now)
	quantity, state := batch.Quantity, batch.State
	if err := s.batches.UpdateBatch(ctx, batch.ID, models.BatchPatch{Quantity: &quantity, State: &state}); err != nil {
		return empty, fmt.Errorf("use batch: %w", err)
	}

	record := models.ConsumptionRecord{BatchID: batch.ID, UserID: caller, Quantity: amount.InexactFloat64(), ConsumedAt: now}
	if err := s.consumptions.InsertConsumption(ctx, &record); err != nil {
		return empty, fmt.Errorf("record consumption: %w", err)
	}

	if batch.State == models.StateUsedUp {
		return models.OK("batch used up", batch), nil
	}
	report := s.notifier.NotifyIfNeeded(ctx, batch)
	return models.OK("batch quantity updated", batch, report.Warnings...), nil
}

// DeleteBatch removes a batch and its dependent notifications and
// consumption records.
func (s *Service) DeleteBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) (models.Result[primitive.ObjectID], error) {
	if err := s.batches.DeleteBatch(ctx, scope, id); err != nil {
		return models.Result[primitive.ObjectID]{}, err
	}

	var warnings []models.Warning
	if _, err := s.notifications.DeleteNotifications(ctx, id); err != nil {
		warnings = append(warnings, s.warn("delete batch notifications", err, id))
	}
	if _, err := s.consumptions.DeleteConsumptions(ctx, id); err != nil {
		warnings = append(warnings, s.warn("delete batch consumption records", err, id))
	}
	return models.OK("inventory batch deleted", id, warnings...), nil
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %q", models.ErrValidation, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

func (s *Service) warn(action string, err error, id primitive.ObjectID) models.Warning {
	s.metrics.SideEffectFailed(component)
	s.logger.Warn(action+" failed", zap.Stringer("batch_id", id), zap.Error(err))
	return models.Warning{Component: component, Message: fmt.Sprintf("%s: %v", action, err)}
}

// ExpiryFor computes the expiry date of a purchase: explicit date first, then
// the food item's average shelf life, then DefaultShelfLifeDays.
func ExpiryFor(explicit *time.Time, food *models.FoodItem, purchasedAt time.Time) time.Time {
	if explicit != nil && !explicit.IsZero() {
		return *explicit
	}
	if food != nil && food.AverageExpiryDays > 0 {
		return purchasedAt.AddDate(0, 0, food.AverageExpiryDays)
	}
	return purchasedAt.AddDate(0, 0, DefaultShelfLifeDays)
}

func storageLocation(requested string, food *models.FoodItem) string {
	if requested != "" {
		return requested
	}
	if food != nil && food.DefaultStorageLocation != "" {
		return food.DefaultStorageLocation
	}
	return models.DefaultStorageLocation
}

// StorageLocationFor picks the storage location of a purchase.
func StorageLocationFor(requested string, food *models.FoodItem) string {
	return storageLocation(requested, food)
}
