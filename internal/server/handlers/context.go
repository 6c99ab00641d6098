package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/scope"
)

const (
	// HeaderUserID carries the user authenticated upstream.
	HeaderUserID = "X-User-ID"

	callerKey = "caller"
	dateOnly  = "2006-01-02"
)

// UserFinder loads the authenticated user.
type UserFinder interface {
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ScopeResolver turns the caller and view flag into a scope.
type ScopeResolver interface {
	Resolve(ctx context.Context, caller scope.Caller, wantsFamilyView bool) (models.Scope, error)
}

// Identify loads the caller named by the X-User-ID header.
func Identify(users UserFinder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.GetHeader(HeaderUserID)))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + HeaderUserID})
			return
		}

		user, err := users.FindUser(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				logger.Error("failed loading caller", zap.Stringer("user_id", id), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		c.Set(callerKey, scope.CallerOf(*user))
		c.Next()
	}
}

func callerFrom(c *gin.Context) scope.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(scope.Caller); ok {
			return caller
		}
	}
	return scope.Caller{}
}

func wantsFamily(c *gin.Context) bool {
	return strings.EqualFold(c.Query("view"), "family")
}

func resolveScope(c *gin.Context, resolver ScopeResolver) (models.Scope, scope.Caller, error) {
	caller := callerFrom(c)
	sc, err := resolver.Resolve(c.Request.Context(), caller, wantsFamily(c))
	return sc, caller, err
}

func pathID(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid %s %q", models.ErrNotFound, name, c.Param(name))
	}
	return id, nil
}

func optionalID(raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", models.ErrValidation, raw)
	}
	return &id, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateOnly, raw, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable date %q", models.ErrValidation, raw)
	}
	return &t, nil
}

// respondError maps core errors to HTTP statuses.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidState):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"success": false, "error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
