// Package evaluation decides whether a recipe can be prepared from a given stock.
package evaluation

import (
	"reflect"

	"github.com/shopspring/decimal"

	"pantry/internal/apperror"
	"pantry/internal/models"
)

// Stock reports how much of an ingredient is on hand in a canonical unit.
// *storage.Ledger satisfies it.
type Stock interface {
	Available(name string, unit models.Unit) decimal.Decimal
}

// Shortfall is the part of one ingredient the stock cannot cover.
type Shortfall struct {
	Name    string          `json:"name"`
	Missing decimal.Decimal `json:"missing"`
	Unit    models.Unit     `json:"unit"`
}

// Assessment combines both feasibility answers for a recipe.
type Assessment struct {
	Recipe  string      `json:"recipe"`
	CanMake bool        `json:"can_make"`
	Missing []Shortfall `json:"missing"`
}

// CanMake reports whether every ingredient of recipe is available in stock.
// It stops at the first ingredient that falls short.
func CanMake(recipe *models.Recipe, stock Stock) (bool, error) {
	if err := check(recipe, stock); err != nil {
		return false, err
	}
	for _, ing := range recipe.Ingredients() {
		if stock.Available(ing.Name, ing.Unit).LessThan(ing.Quantity) {
			return false, nil
		}
	}
	return true, nil
}

// MissingIngredients lists the shortfalls of recipe against stock in recipe order.
// Satisfied ingredients are left out; an empty result means the recipe can be made.
func MissingIngredients(recipe *models.Recipe, stock Stock) ([]Shortfall, error) {
	if err := check(recipe, stock); err != nil {
		return nil, err
	}
	missing := []Shortfall{}
	for _, ing := range recipe.Ingredients() {
		have := stock.Available(ing.Name, ing.Unit)
		if have.LessThan(ing.Quantity) {
			missing = append(missing, Shortfall{
				Name:    ing.Name,
				Missing: ing.Quantity.Sub(have),
				Unit:    ing.Unit,
			})
		}
	}
	return missing, nil
}

// Assess evaluates recipe once and returns both answers.
func Assess(recipe *models.Recipe, stock Stock) (Assessment, error) {
	missing, err := MissingIngredients(recipe, stock)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Recipe:  recipe.Name(),
		CanMake: len(missing) == 0,
		Missing: missing,
	}, nil
}

func check(recipe *models.Recipe, stock Stock) error {
	if recipe == nil {
		return apperror.NullRecipe()
	}
	return RequireStock(stock)
}

// RequireStock returns a NullStorage error when stock is nil, including a nil
// pointer held in the interface.
func RequireStock(stock Stock) error {
	if stock == nil {
		return apperror.NullStorage()
	}
	switch v := reflect.ValueOf(stock); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		if v.IsNil() {
			return apperror.NullStorage()
		}
	}
	return nil
}
