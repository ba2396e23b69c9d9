// Package cookbook holds the recipe collection.
package cookbook

import (
	"sync"

	"pantry/internal/apperror"
	"pantry/internal/evaluation"
	"pantry/internal/models"
)

// RecipeBook keeps recipes in insertion order with names unique ignoring case.
type RecipeBook struct {
	recipes []*models.Recipe
	index   map[string]*models.Recipe
	mu      sync.RWMutex
}

// NewRecipeBook creates an empty recipe book
func NewRecipeBook() *RecipeBook {
	return &RecipeBook{
		index: make(map[string]*models.Recipe),
	}
}

// Add stores recipe unless its name is already taken.
func (b *RecipeBook) Add(recipe *models.Recipe) error {
	if recipe == nil {
		return apperror.NullRecipe()
	}
	key := models.FoldName(recipe.Name())

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.index[key]; exists {
		return apperror.DuplicateRecipe(recipe.Name())
	}
	b.index[key] = recipe
	b.recipes = append(b.recipes, recipe)
	return nil
}

// Get looks a recipe up by name, ignoring case.
func (b *RecipeBook) Get(name string) (*models.Recipe, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.index[models.FoldName(name)]
	return r, ok
}

// Recipes returns all recipes in the order they were added.
func (b *RecipeBook) Recipes() []*models.Recipe {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.Recipe, len(b.recipes))
	copy(out, b.recipes)
	return out
}

// Len returns the number of recipes
func (b *RecipeBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.recipes)
}

// AvailableRecipes returns the recipes that can be made from stock, in book order.
func (b *RecipeBook) AvailableRecipes(stock evaluation.Stock) ([]*models.Recipe, error) {
	if err := evaluation.RequireStock(stock); err != nil {
		return nil, err
	}

	out := []*models.Recipe{}
	for _, r := range b.Recipes() {
		ok, err := evaluation.CanMake(r, stock)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
