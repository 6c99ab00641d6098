package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/scope"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/shopping"
)

// ShoppingService is the shopping-list surface exposed over HTTP.
type ShoppingService interface {
	BuildDeficitShoppingList(ctx context.Context, sc models.Scope, caller primitive.ObjectID) (models.Result[shopping.Reconciliation], error)
	BuildMealPlanShoppingList(ctx context.Context, sc models.Scope, caller, mealPlanID primitive.ObjectID) (models.Result[shopping.Reconciliation], error)
	GetShoppingList(ctx context.Context, sc models.Scope, id primitive.ObjectID) (*models.ShoppingList, error)
	SetItemBought(ctx context.Context, sc models.Scope, caller, listID, itemID primitive.ObjectID, bought bool) (models.Result[*models.ShoppingList], error)
	CompleteShoppingList(ctx context.Context, sc models.Scope, caller, listID primitive.ObjectID) (models.Result[shopping.Completion], error)
	DeleteShoppingList(ctx context.Context, caller scope.Caller, sc models.Scope, id primitive.ObjectID) (models.Result[primitive.ObjectID], error)
}

// ShoppingHandler serves /api/shopping-lists.
type ShoppingHandler struct {
	svc      ShoppingService
	resolver ScopeResolver
	logger   *zap.Logger
}

// NewShoppingHandler constructs the shopping handler.
func NewShoppingHandler(svc ShoppingService, resolver ScopeResolver, logger *zap.Logger) *ShoppingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShoppingHandler{svc: svc, resolver: resolver, logger: logger}
}

type itemBoughtRequest struct {
	IsBought *bool `json:"isBought"`
}

// GenerateFromDeficit builds or refreshes the restock draft.
func (h *ShoppingHandler) GenerateFromDeficit(c *gin.Context) {
	sc, caller, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.svc.BuildDeficitShoppingList(c.Request.Context(), sc, caller.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(reconciliationStatus(res.Data), res)
}

// GenerateFromMealPlan builds a list covering a meal plan.
func (h *ShoppingHandler) GenerateFromMealPlan(c *gin.Context) {
	sc, caller, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	planID, err := pathID(c, "mealPlanId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.svc.BuildMealPlanShoppingList(c.Request.Context(), sc, caller.UserID, planID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(reconciliationStatus(res.Data), res)
}

// Get returns one list.
func (h *ShoppingHandler) Get(c *gin.Context) {
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

	list, err := h.svc.GetShoppingList(c.Request.Context(), sc, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.OK("shopping list loaded", list))
}

// SetItemBought toggles one item.
func (h *ShoppingHandler) SetItemBought(c *gin.Context) {
	sc, caller, err := resolveScope(c, h.resolver)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	listID, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req itemBoughtRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsBought == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "isBought is required"})
		return
	}

	res, err := h.svc.SetItemBought(c.Request.Context(), sc, caller.UserID, listID, itemID, *req.IsBought)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Complete closes a list and stocks the bought items.
func (h *ShoppingHandler) Complete(c *gin.Context) {
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

	res, err := h.svc.CompleteShoppingList(c.Request.Context(), sc, caller.UserID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Delete removes a list.
func (h *ShoppingHandler) Delete(c *gin.Context) {
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

	res, err := h.svc.DeleteShoppingList(c.Request.Context(), caller, sc, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func reconciliationStatus(r shopping.Reconciliation) int {
	if r.Outcome == shopping.OutcomeCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}
