package customization

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		rules    []Rule
		items    []Item
		valid    bool
		contains []string
	}{
		{
			name:     "missing category fails minimum",
			rules:    []Rule{{Category: "exotic", MinQuantity: 1, MaxQuantity: 3}},
			items:    []Item{{ProductID: 1, Category: "exotic", Quantity: 0}},
			valid:    false,
			contains: []string{"pelo menos 1", "exotic"},
		},
		{
			name:     "too many",
			rules:    []Rule{{Category: "normal", MinQuantity: 2, MaxQuantity: 5}},
			items:    []Item{{ProductID: 2, Category: "normal", Quantity: 7}},
			valid:    false,
			contains: []string{"no máximo 5", "normal"},
		},
		{
			name:  "within bounds",
			rules: []Rule{{Category: "normal", MinQuantity: 2, MaxQuantity: 5}},
			items: []Item{
				{ProductID: 2, Category: "normal", Quantity: 2},
				{ProductID: 3, Category: "normal", Quantity: 3},
			},
			valid: true,
		},
		{
			name:  "bounds are inclusive",
			rules: []Rule{{Category: "normal", MinQuantity: 2, MaxQuantity: 2}},
			items: []Item{{ProductID: 2, Category: "normal", Quantity: 2}},
			valid: true,
		},
		{
			name:     "zero-zero rule forbids the category",
			rules:    []Rule{{Category: "exotic", MinQuantity: 0, MaxQuantity: 0}},
			items:    []Item{{ProductID: 9, Category: "exotic", Quantity: 1}},
			valid:    false,
			contains: []string{"no máximo 0"},
		},
		{
			name:  "zero-zero rule with nothing selected",
			rules: []Rule{{Category: "exotic", MinQuantity: 0, MaxQuantity: 0}},
			valid: true,
		},
		{
			name:  "items from other categories do not count",
			rules: []Rule{{Category: "exotic", MinQuantity: 1, MaxQuantity: 3}},
			items: []Item{{ProductID: 2, Category: "normal", Quantity: 4}},
			valid: false,
		},
		{
			name:  "no rules accepts anything",
			items: []Item{{ProductID: 2, Category: "normal", Quantity: 40}},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.rules, tt.items)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Empty(t, res.Errors)
				return
			}
			require.Len(t, res.Errors, 1)
			for _, s := range tt.contains {
				assert.Contains(t, res.Errors[0], s)
			}
		})
	}
}

func TestValidateReportsEveryViolatedRule(t *testing.T) {
	rules := []Rule{
		{Category: "exotic", MinQuantity: 1, MaxQuantity: 3},
		{Category: "normal", MinQuantity: 2, MaxQuantity: 5},
		{Category: "citrus", MinQuantity: 0, MaxQuantity: 2},
	}
	items := []Item{
		{ProductID: 1, Category: "normal", Quantity: 6},
		{ProductID: 2, Category: "citrus", Quantity: 1},
	}

	res := Validate(rules, items)

	require.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "pelo menos 1")
	assert.Contains(t, res.Errors[0], "exotic")
	assert.Contains(t, res.Errors[1], "no máximo 5")
	assert.Contains(t, res.Errors[1], "normal")
}

// A seleção é válida sse cada soma por categoria cai no intervalo da regra.
func TestValidateMatchesPredicate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	categories := []string{"normal", "exotic", "citrus", "berry"}

	for i := 0; i < 500; i++ {
		var rules []Rule
		for _, cat := range categories {
			if rng.Intn(3) == 0 {
				continue
			}
			min := rng.Intn(4)
			rules = append(rules, Rule{Category: cat, MinQuantity: min, MaxQuantity: min + rng.Intn(4)})
		}

		var items []Item
		sums := map[string]int{}
		n := rng.Intn(8)
		for p := 0; p < n; p++ {
			cat := categories[rng.Intn(len(categories))]
			qty := rng.Intn(4)
			items = append(items, Item{ProductID: uint(p + 1), Category: cat, Quantity: qty})
			sums[cat] += qty
		}

		want := true
		for _, r := range rules {
			if sums[r.Category] < r.MinQuantity || sums[r.Category] > r.MaxQuantity {
				want = false
			}
		}

		res := Validate(rules, items)
		require.Equal(t, want, res.Valid, "rules=%v items=%v", rules, items)
		assert.Equal(t, res.Valid, len(res.Errors) == 0)
	}
}

func TestUncovered(t *testing.T) {
	rules := []Rule{{Category: "normal", MinQuantity: 0, MaxQuantity: 5}}
	items := []Item{
		{ProductID: 1, Category: "normal", Quantity: 1},
		{ProductID: 2, Category: "exotic", Quantity: 1},
		{ProductID: 3, Category: "exotic", Quantity: 0},
	}

	msgs := Uncovered(rules, items)

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "produto 2")
}

func TestValidateRules(t *testing.T) {
	assert.NoError(t, ValidateRules([]Rule{{Category: "normal", MinQuantity: 0, MaxQuantity: 0}}))
	assert.ErrorIs(t, ValidateRules([]Rule{{Category: "normal", MinQuantity: 3, MaxQuantity: 2}}), ErrInvertedBound)
	assert.ErrorIs(t, ValidateRules([]Rule{{Category: "normal", MinQuantity: -1, MaxQuantity: 2}}), ErrNegativeBound)
	assert.ErrorIs(t, ValidateRules([]Rule{{MinQuantity: 0, MaxQuantity: 2}}), ErrEmptyCategory)
	assert.ErrorIs(t, ValidateRules([]Rule{
		{Category: "normal", MaxQuantity: 2},
		{Category: "normal", MaxQuantity: 3},
	}), ErrDuplicateRule)
}
