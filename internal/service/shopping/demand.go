package shopping

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
)

type demandKey struct {
	food primitive.ObjectID
	unit primitive.ObjectID
}

// demand aggregates requirements by (food item, unit) in insertion order.
type demand struct {
	order   []demandKey
	totals  map[demandKey]decimal.Decimal
	reasons map[demandKey]models.ItemReason
	names   map[primitive.ObjectID]string
}

func newDemand() *demand {
	return &demand{
		totals:  make(map[demandKey]decimal.Decimal),
		reasons: make(map[demandKey]models.ItemReason),
		names:   make(map[primitive.ObjectID]string),
	}
}

func (d *demand) add(req models.DemandRequirement, name string) {
	d.addDecimal(req.FoodItemID, req.UnitID, decimal.NewFromFloat(req.Quantity), req.Reason, name)
}

func (d *demand) addDecimal(food, unit primitive.ObjectID, qty decimal.Decimal, reason models.ItemReason, name string) {
	k := demandKey{food: food, unit: unit}
	current, seen := d.totals[k]
	if !seen {
		d.order = append(d.order, k)
		d.reasons[k] = reason
	} else if severity(reason) > severity(d.reasons[k]) {
		d.reasons[k] = reason
	}
	d.totals[k] = current.Add(qty)
	if name != "" {
		if _, ok := d.names[food]; !ok {
			d.names[food] = name
		}
	}
}

func (d *demand) empty() bool { return len(d.order) == 0 }

func (d *demand) requirements() []models.DemandRequirement {
	out := make([]models.DemandRequirement, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, models.DemandRequirement{
			FoodItemID: k.food,
			UnitID:     k.unit,
			Quantity:   d.totals[k].Round(models.QuantityPlaces).InexactFloat64(),
			Reason:     d.reasons[k],
		})
	}
	return out
}

// shortfallsOf returns required minus available for every key where the
// difference is positive.
func shortfallsOf(required *demand, available map[demandKey]decimal.Decimal) []models.DemandRequirement {
	var out []models.DemandRequirement
	for _, k := range required.order {
		short := required.totals[k].Sub(available[k]).Round(models.QuantityPlaces)
		if !short.IsPositive() {
			continue
		}
		out = append(out, models.DemandRequirement{
			FoodItemID: k.food,
			UnitID:     k.unit,
			Quantity:   short.InexactFloat64(),
			Reason:     required.reasons[k],
		})
	}
	return out
}

func severity(reason models.ItemReason) int {
	switch reason {
	case models.ReasonExpired:
		return 3
	case models.ReasonUsedUp:
		return 2
	case models.ReasonExpiringSoon:
		return 1
	default:
		return 0
	}
}
