package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/inventory"
)

// InventoryService is the inventory surface exposed over HTTP.
type InventoryService interface {
	AddBatch(ctx context.Context, scope models.Scope, caller primitive.ObjectID, in inventory.AddBatchInput) (models.Result[*models.InventoryBatch], error)
	ListBatches(ctx context.Context, scope models.Scope, filter inventory.ListFilter) ([]models.InventoryBatch, []models.Warning, error)
	GetBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.InventoryBatch, []models.Warning, error)
	UpdateBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID, in inventory.UpdateBatchInput) (models.Result[*models.InventoryBatch], error)
	UseBatch(ctx context.Context, scope models.Scope, caller, id primitive.ObjectID, in inventory.UseBatchInput) (models.Result[*models.InventoryBatch], error)
	DeleteBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) (models.Result[primitive.ObjectID], error)
}

// InventoryHandler serves /api/inventory.
type InventoryHandler struct {
	svc      InventoryService
	resolver ScopeResolver
	location *time.Location
	logger   *zap.Logger
}

// NewInventoryHandler constructs the inventory handler. Calendar dates in
// requests are read in loc.
func NewInventoryHandler(svc InventoryService, resolver ScopeResolver, loc *time.Location, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &InventoryHandler{svc: svc, resolver: resolver, location: loc, logger: logger}
}

type addBatchRequest struct {
	FoodItemID      string  `json:"foodItemId"`
	UnitID          string  `json:"unitId"`
	Quantity        float64 `json:"quantity"`
	ExpiryDate      string  `json:"expiryDate"`
	StorageLocation string  `json:"storageLocation"`
}

type updateBatchRequest struct {
	Quantity        *float64 `json:"quantity"`
	ExpiryDate      *string  `json:"expiryDate"`
	StorageLocation *string  `json:"storageLocation"`
}

// List returns the scope's batches. Optional filters: state (comma
// separated) and foodItemId.
func (h *InventoryHandler) List(c *gin.Context) {
	sc, _, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var filter inventory.ListFilter
	if raw := c.Query("state"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			filter.States = append(filter.States, models.FreshnessState(strings.TrimSpace(st)))
		}
	}
	if filter.FoodItemID, err = optionalID(c.Query("foodItemId")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	batches, warnings, err := h.svc.ListBatches(c.Request.Context(), sc, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.OK("inventory loaded", batches, warnings...))
}

// Get returns one batch.
func (h *InventoryHandler) Get(c *gin.Context) {
	sc, _, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	batch, warnings, err := h.svc.GetBatch(c.Request.Context(), sc, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.OK("inventory batch loaded", batch, warnings...))
}

// Add records a manual acquisition.
func (h *InventoryHandler) Add(c *gin.Context) {
	sc, caller, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req addBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid inventory payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	in := inventory.AddBatchInput{Quantity: req.Quantity, StorageLocation: req.StorageLocation}
	foodID, err := optionalID(req.FoodItemID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if foodID != nil {
		in.FoodItemID = *foodID
	}
	unitID, err := optionalID(req.UnitID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if unitID != nil {
		in.UnitID = *unitID
	}
	if in.ExpiryDate, err = parseDate(req.ExpiryDate, h.location); err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.svc.AddBatch(c.Request.Context(), sc, caller.UserID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Update changes quantity, expiry date or storage location.
func (h *InventoryHandler) Update(c *gin.Context) {
	sc, _, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req updateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	in := inventory.UpdateBatchInput{Quantity: req.Quantity, StorageLocation: req.StorageLocation}
	if req.ExpiryDate != nil {
		date, err := parseDate(*req.ExpiryDate, h.location)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if date == nil {
			respondError(c, h.logger, models.ErrValidation)
			return
		}
		in.ExpiryDate = date
	}

	res, err := h.svc.UpdateBatch(c.Request.Context(), sc, id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Use consumes part of a batch.
func (h *InventoryHandler) Use(c *gin.Context) {
	sc, caller, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var in inventory.UseBatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	res, err := h.svc.UseBatch(c.Request.Context(), sc, caller.UserID, id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Delete removes a batch.
func (h *InventoryHandler) Delete(c *gin.Context) {
	sc, _, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.svc.DeleteBatch(c.Request.Context(), sc, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
