package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	testCases := []struct {
		name     string
		item     string
		options  map[string]any
		expected int
	}{
		{name: "Plain bagel", item: "bagel", options: map[string]any{}, expected: 300},
		{name: "Bagel with nil options", item: "bagel", options: nil, expected: 300},
		{name: "Bagel with spread and hashbrown", item: "bagel", options: map[string]any{"spread": "Cream Cheese", "hashbrown": true}, expected: 500},
		{name: "Bagel spread None", item: "bagel", options: map[string]any{"spread": "None"}, expected: 300},
		{name: "Bagel spread flag", item: "bagel", options: map[string]any{"spread": true}, expected: 400},
		{name: "Bagel spread false", item: "bagel", options: map[string]any{"spread": false}, expected: 300},
		{name: "Bagel hashbrown false", item: "bagel", options: map[string]any{"hashbrown": false}, expected: 300},
		{name: "Bagel hashbrown string none is truthy", item: "bagel", options: map[string]any{"hashbrown": "none"}, expected: 400},
		{name: "Sandwich extra meat and hashbrown", item: "sandwich", options: map[string]any{"extraMeat": "bacon", "hashbrown": "yes"}, expected: 1000},
		{name: "Plain sandwich", item: "sandwich", options: map[string]any{}, expected: 700},
		{name: "Sandwich with none sentinels", item: "sandwich", options: map[string]any{"extraMeat": "none", "hashbrown": "none"}, expected: 700},
		{name: "Sandwich hashbrown true", item: "sandwich", options: map[string]any{"hashbrown": true}, expected: 800},
		{name: "Unknown item", item: "muffin", options: map[string]any{"spread": "Butter"}, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Calculate(tc.item, tc.options))
		})
	}
}
