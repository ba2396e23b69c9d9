package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"pantry/internal/apperror"
)

// IngredientRequirement represents a required ingredient for a recipe.
// Inside a Recipe, Quantity and Unit are always canonical.
type IngredientRequirement struct {
	Name     string
	Quantity decimal.Decimal
	Unit     Unit
}

// Recipe is a dish with its instructions and required ingredients.
// It holds no reference to any storage; feasibility is evaluated against
// whatever stock the caller supplies.
type Recipe struct {
	name        string
	description string
	process     string
	ingredients []IngredientRequirement
}

// NewRecipe validates the texts and normalizes every ingredient to its
// canonical unit. Ingredient order is preserved.
func NewRecipe(name, description, process string, ingredients ...IngredientRequirement) (*Recipe, error) {
	if err := ValidateName("recipe name", name); err != nil {
		return nil, err
	}
	if err := ValidateName("description", description); err != nil {
		return nil, err
	}
	if err := ValidateName("process", process); err != nil {
		return nil, err
	}
	if len(ingredients) == 0 {
		return nil, apperror.InvalidArgument("recipe must have at least one ingredient")
	}

	seen := make(map[string]struct{}, len(ingredients))
	normalized := make([]IngredientRequirement, 0, len(ingredients))
	for _, ing := range ingredients {
		if err := ValidateName("ingredient name", ing.Name); err != nil {
			return nil, err
		}
		key := FoldName(ing.Name)
		if _, dup := seen[key]; dup {
			return nil, apperror.InvalidArgument("ingredient %q is listed twice", ing.Name).
				WithDetail("ingredient", ing.Name)
		}
		seen[key] = struct{}{}

		if !ing.Quantity.IsPositive() {
			return nil, apperror.InvalidArgument("amount of %s must be greater than 0", ing.Name).
				WithDetail("ingredient", ing.Name)
		}
		quantity, unit, err := Normalize(ing.Quantity, string(ing.Unit))
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, IngredientRequirement{
			Name:     strings.TrimSpace(ing.Name),
			Quantity: quantity,
			Unit:     unit,
		})
	}

	return &Recipe{
		name:        strings.TrimSpace(name),
		description: strings.TrimSpace(description),
		process:     strings.TrimSpace(process),
		ingredients: normalized,
	}, nil
}

func (r *Recipe) Name() string { return r.name }
func (r *Recipe) Description() string { return r.description }
func (r *Recipe) Process() string { return r.process }

// Ingredients returns a copy of the canonical ingredient list.
func (r *Recipe) Ingredients() []IngredientRequirement {
	out := make([]IngredientRequirement, len(r.ingredients))
	copy(out, r.ingredients)
	return out
}
