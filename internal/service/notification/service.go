// Package notification creates deduplicated alerts and hands emails to the
// outbound queue. Nothing here ever fails the caller's primary operation:
// side-effect failures come back as warnings in a Report.
package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/expiry"
)

const component = "notification"

// RecipientResolver lists the users who receive alerts for a scope.
type RecipientResolver interface {
	Recipients(ctx context.Context, scope models.Scope) ([]primitive.ObjectID, error)
}

// Report describes what one notification pass did.
type Report struct {
	State        models.FreshnessState
	DaysLeft     int
	StateChanged bool
	Created      []models.Notification
	Skipped      int
	Warnings     []models.Warning
}

func (r *Report) merge(other Report) {
	r.Created = append(r.Created, other.Created...)
	r.Skipped += other.Skipped
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Service is the single notification path shared by user actions and sweeps.
type Service struct {
	batches       repository.BatchStore
	notifications repository.NotificationStore
	catalog       repository.CatalogStore
	recipients    RecipientResolver
	emails        Emailer
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewService wires a notification service.
func NewService(
	batches repository.BatchStore,
	notifications repository.NotificationStore,
	catalog repository.CatalogStore,
	recipients RecipientResolver,
	emails Emailer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:       batches,
		notifications: notifications,
		catalog:       catalog,
		recipients:    recipients,
		emails:        emails,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// NotifyIfNeeded refreshes the batch state (persisting a change) and, when the
// batch is expiring soon or expired, creates one notification per recipient
// that does not have it yet. batch is updated in place with the derived state.
func (s *Service) NotifyIfNeeded(ctx context.Context, batch *models.InventoryBatch) Report {
	var report Report
	if batch == nil || batch.Quantity <= 0 {
		return report
	}

	changed, daysLeft := expiry.Refresh(batch, s.now())
	report.State, report.DaysLeft, report.StateChanged = batch.State, daysLeft, changed
	if changed {
		state := batch.State
		if err := s.batches.UpdateBatch(ctx, batch.ID, models.BatchPatch{State: &state}); err != nil {
			s.warn(&report, "persist batch state", err, zap.Stringer("batch_id", batch.ID))
		}
	}

	if !expiry.NeedsAttention(batch.State) {
		return report
	}

	name := s.foodName(ctx, batch, &report)
	title, message := expiryMessage(name, batch.State, daysLeft)
	days := daysLeft
	draft := models.Notification{
		Kind:              models.NotificationKind(batch.State),
		Title:             title,
		Message:           message,
		RelatedEntityID:   batch.ID,
		RelatedEntityType: models.EntityInventoryBatch,
		Scope:             batch.Scope().Visibility(),
		DaysLeft:          &days,
	}

	report.merge(s.deliver(ctx, batch.Scope(), draft, nil))
	return report
}

// NotifyMealReminder tells every recipient of the plan's scope that the plan
// starts tomorrow, once per recipient.
func (s *Service) NotifyMealReminder(ctx context.Context, plan models.MealPlan) Report {
	draft := models.Notification{
		Kind:              models.KindMealReminder,
		Title:             "Meal plan starts tomorrow",
		Message:           mealReminderMessage(plan),
		RelatedEntityID:   plan.ID,
		RelatedEntityType: models.EntityMealPlan,
		Scope:             plan.Scope().Visibility(),
	}
	return s.deliver(ctx, plan.Scope(), draft, nil)
}

// NotifyShoppingUpdate tells the other members of a family that a shared list
// changed. Personal lists produce nothing.
func (s *Service) NotifyShoppingUpdate(ctx context.Context, list models.ShoppingList, actor primitive.ObjectID, message string) Report {
	if !list.Scope().IsFamily() {
		return Report{}
	}
	draft := models.Notification{
		Kind:              models.KindShoppingUpdate,
		Title:             "Shopping list updated",
		Message:           message,
		RelatedEntityID:   list.ID,
		RelatedEntityType: models.EntityShoppingList,
		Scope:             models.VisibilityFamily,
	}
	return s.deliver(ctx, list.Scope(), draft, &actor)
}

// List returns the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	return s.notifications.FindNotifications(ctx, repository.NotificationFilter{
		RecipientUserID: recipient,
		UnreadOnly:      unreadOnly,
		Limit:           limit,
	})
}

// MarkRead acknowledges one notification of the recipient.
func (s *Service) MarkRead(ctx context.Context, recipient, id primitive.ObjectID) (models.Result[primitive.ObjectID], error) {
	if err := s.notifications.MarkNotificationRead(ctx, recipient, id, s.now()); err != nil {
		return models.Result[primitive.ObjectID]{}, err
	}
	return models.OK("notification marked as read", id), nil
}

// deliver creates draft for every recipient of scope (except skip) that does
// not hold the dedup key yet, then queues an email for each creation.
func (s *Service) deliver(ctx context.Context, scope models.Scope, draft models.Notification, skip *primitive.ObjectID) Report {
	var report Report
	kind := string(draft.Kind)

	recipients, err := s.recipients.Recipients(ctx, scope)
	if err != nil {
		s.warn(&report, "resolve recipients", err, zap.Stringer("entity_id", draft.RelatedEntityID))
		return report
	}

	for _, recipient := range recipients {
		if skip != nil && recipient == *skip {
			continue
		}

		n := draft
		n.RecipientUserID = recipient

		_, err := s.notifications.FindNotification(ctx, n.Key())
		switch {
		case err == nil:
			report.Skipped++
			s.metrics.NotificationDeduplicated(kind)
			continue
		case !errors.Is(err, models.ErrNotFound):
			s.warn(&report, "lookup notification", err, zap.Stringer("recipient_id", recipient))
			continue
		}

		n.ID = primitive.NilObjectID
		n.CreatedAt = s.now()
		if err := s.notifications.InsertNotification(ctx, &n); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				report.Skipped++
				s.metrics.NotificationDeduplicated(kind)
				continue
			}
			s.warn(&report, "create notification", err, zap.Stringer("recipient_id", recipient))
			continue
		}
		report.Created = append(report.Created, n)
		s.metrics.NotificationCreated(kind)

		if s.emails == nil {
			continue
		}
		req := EmailRequest{
			RecipientUserID: recipient,
			Subject:         n.Title,
			Body:            fmt.Sprintf("<p>%s</p>", html.EscapeString(n.Message)),
		}
		if err := s.emails.Enqueue(req); err != nil {
			s.warn(&report, "queue email", err, zap.Stringer("recipient_id", recipient))
		}
	}

	s.logger.Debug("notification pass finished",
		zap.String("kind", kind),
		zap.Stringer("entity_id", draft.RelatedEntityID),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", report.Skipped))
	return report
}

func (s *Service) foodName(ctx context.Context, batch *models.InventoryBatch, report *Report) string {
	if batch.FoodItemName != "" {
		return batch.FoodItemName
	}
	food, err := s.catalog.FindFoodItem(ctx, batch.FoodItemID)
	if err != nil {
		s.warn(report, "resolve food item name", err, zap.Stringer("food_item_id", batch.FoodItemID))
		return "An item"
	}
	batch.FoodItemName = food.Name
	return food.Name
}

func (s *Service) warn(report *Report, action string, err error, fields ...zap.Field) {
	report.Warnings = append(report.Warnings, models.Warning{
		Component: component,
		Message:   fmt.Sprintf("%s: %v", action, err),
	})
	s.metrics.SideEffectFailed(component)
	s.logger.Warn(action+" failed", append(fields, zap.Error(err))...)
}

func expiryMessage(name string, state models.FreshnessState, daysLeft int) (title, message string) {
	if state == models.StateExpired {
		return "Food expired", fmt.Sprintf("%s has already expired", name)
	}
	switch daysLeft {
	case 0:
		return "Food expiring soon", fmt.Sprintf("%s expires today", name)
	case 1:
		return "Food expiring soon", fmt.Sprintf("%s expires in 1 day", name)
	default:
		return "Food expiring soon", fmt.Sprintf("%s expires in %d days", name, daysLeft)
	}
}

func mealReminderMessage(plan models.MealPlan) string {
	name := plan.Name
	if name == "" {
		name = "Your meal plan"
	}
	if len(plan.Meals) == 1 {
		return fmt.Sprintf("%s starts tomorrow with 1 planned meal", name)
	}
	return fmt.Sprintf("%s starts tomorrow with %d planned meals", name, len(plan.Meals))
}
