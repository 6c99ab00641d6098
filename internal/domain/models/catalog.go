package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FoodItem is reference data describing a kind of food.
type FoodItem struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                   string             `bson:"name" json:"name"`
	DefaultUnitID          primitive.ObjectID `bson:"defaultUnitId" json:"defaultUnitId"`
	AverageExpiryDays      int                `bson:"averageExpiryDays" json:"averageExpiryDays"`
	DefaultStorageLocation string             `bson:"defaultStorageLocation" json:"defaultStorageLocation"`
}

// RecipeIngredient is one ingredient line for the recipe's default servings.
type RecipeIngredient struct {
	FoodItemID primitive.ObjectID `bson:"foodItemId" json:"foodItemId"`
	UnitID     primitive.ObjectID `bson:"unitId" json:"unitId"`
	Quantity   float64            `bson:"quantity" json:"quantity"`
}

// Recipe describes ingredients for a number of servings.
type Recipe struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Servings    int                `bson:"servings" json:"servings"`
	Ingredients []RecipeIngredient `bson:"ingredients" json:"ingredients"`
}

// PlannedMeal schedules a recipe for a date.
type PlannedMeal struct {
	Date     time.Time          `bson:"date" json:"date"`
	MealType string             `bson:"mealType" json:"mealType"`
	RecipeID primitive.ObjectID `bson:"recipeId" json:"recipeId"`
	Servings int                `bson:"servings" json:"servings"`
}

// MealPlan is a scoped sequence of planned meals.
type MealPlan struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerUserID *primitive.ObjectID `bson:"ownerUserId" json:"ownerUserId"`
	GroupID     *primitive.ObjectID `bson:"groupId" json:"groupId"`
	Name        string              `bson:"name" json:"name"`
	StartDate   time.Time           `bson:"startDate" json:"startDate"`
	EndDate     time.Time           `bson:"endDate" json:"endDate"`
	Meals       []PlannedMeal       `bson:"meals" json:"meals"`
}

// Scope returns the scope the plan belongs to.
func (p MealPlan) Scope() Scope { return ScopeOf(p.OwnerUserID, p.GroupID) }
