// Package pricing computes order totals in cents.
package pricing

import "bagel-preorder-backend/internal/model"

const (
	bagelBase     = 300
	sandwichBase  = 700
	spreadPrice   = 100
	hashbrownCost = 100
	extraMeatCost = 200
)

// Calculate returns the total for item with the given options.
// Unknown items cost nothing; validation happens before pricing.
//
// The hashbrown rules differ per item: a bagel adds one for any truthy value,
// a sandwich also treats the literal "none" as no hashbrown.
func Calculate(item string, options map[string]any) int {
	switch item {
	case model.ItemBagel:
		total := bagelBase
		if spread := options["spread"]; truthy(spread) && spread != "None" {
			total += spreadPrice
		}
		if truthy(options["hashbrown"]) {
			total += hashbrownCost
		}
		return total
	case model.ItemSandwich:
		total := sandwichBase
		if chosen(options["extraMeat"]) {
			total += extraMeatCost
		}
		if chosen(options["hashbrown"]) {
			total += hashbrownCost
		}
		return total
	default:
		return 0
	}
}

// chosen is truthy and not the "none" sentinel.
func chosen(v any) bool {
	if s, ok := v.(string); ok && s == "none" {
		return false
	}
	return truthy(v)
}

// truthy follows JSON truthiness: false, null, "", and 0 are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return true
	}
}
