package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/sweep"
)

const defaultInboxLimit = 50

// Inbox is the notification surface exposed over HTTP.
type Inbox interface {
	List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipient, id primitive.ObjectID) (models.Result[primitive.ObjectID], error)
}

// Sweeper exposes the daily jobs for manual triggering.
type Sweeper interface {
	CheckExpiringBatches(ctx context.Context) (sweep.SweepReport, error)
	CheckUpcomingMealPlans(ctx context.Context) (sweep.SweepReport, error)
}

// NotificationHandler serves the caller's inbox and the job triggers.
type NotificationHandler struct {
	inbox   Inbox
	sweeper Sweeper
	logger  *zap.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(inbox Inbox, sweeper Sweeper, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{inbox: inbox, sweeper: sweeper, logger: logger}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	caller := callerFrom(c)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	limit := int64(defaultInboxLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	items, err := h.inbox.List(c.Request.Context(), caller.UserID, unreadOnly, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.OK("notifications loaded", items))
}

// MarkRead acknowledges one notification.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.inbox.MarkRead(c.Request.Context(), callerFrom(c).UserID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RunExpirySweep triggers the expiry sweep.
func (h *NotificationHandler) RunExpirySweep(c *gin.Context) {
	h.runJob(c, sweep.JobExpiry, h.sweeper.CheckExpiringBatches)
}

// RunMealPlanReminders triggers the meal plan reminders.
func (h *NotificationHandler) RunMealPlanReminders(c *gin.Context) {
	h.runJob(c, sweep.JobMealPlan, h.sweeper.CheckUpcomingMealPlans)
}

func (h *NotificationHandler) runJob(c *gin.Context, job string, fn func(context.Context) (sweep.SweepReport, error)) {
	report, err := fn(c.Request.Context())
	if err != nil {
		h.logger.Error("manual job failed", zap.String("job", job), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "job failed"})
		return
	}
	c.JSON(http.StatusOK, models.OK(job+" finished", report, report.Warnings...))
}
