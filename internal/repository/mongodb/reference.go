package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
)

// FindUser fetches a user account.
func (r *MongoDBRepository) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, r.coll(collUsers), bson.M{"_id": id}, "user")
}

// FindFamilyGroup fetches a family group.
func (r *MongoDBRepository) FindFamilyGroup(ctx context.Context, id primitive.ObjectID) (*models.FamilyGroup, error) {
	return findOne[models.FamilyGroup](ctx, r.coll(collFamilies), bson.M{"_id": id}, "family group")
}

// FindFoodItem fetches a food item.
func (r *MongoDBRepository) FindFoodItem(ctx context.Context, id primitive.ObjectID) (*models.FoodItem, error) {
	return findOne[models.FoodItem](ctx, r.coll(collFoodItems), bson.M{"_id": id}, "food item")
}

// FindRecipe fetches a recipe.
func (r *MongoDBRepository) FindRecipe(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	return findOne[models.Recipe](ctx, r.coll(collRecipes), bson.M{"_id": id}, "recipe")
}

// FindMealPlan fetches a meal plan inside the scope.
func (r *MongoDBRepository) FindMealPlan(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.MealPlan, error) {
	return findOne[models.MealPlan](ctx, r.coll(collMealPlans), scopedByID(scope, id), "meal plan")
}

// FindMealPlansStarting lists plans starting in [from, to) across all scopes.
func (r *MongoDBRepository) FindMealPlansStarting(ctx context.Context, from, to time.Time) ([]models.MealPlan, error) {
	filter := bson.M{"startDate": bson.M{"$gte": from, "$lt": to}}
	return findMany[models.MealPlan](ctx, r.coll(collMealPlans), filter, "meal plans")
}
