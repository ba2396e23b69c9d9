// Package seed loads configured groceries and recipes into a fresh ledger and book.
package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pantry/internal/config"
	"pantry/internal/cookbook"
	"pantry/internal/models"
	"pantry/internal/storage"
)

const dateLayout = "2006-01-02"

// Result counts what was loaded.
type Result struct {
	Groceries int
	Expired   int
	Recipes   int
}

// Loader applies seed data. Now anchors relative expiry offsets.
type Loader struct {
	Ledger *storage.Ledger
	Book   *cookbook.RecipeBook
	Now    func() time.Time
	Logger *zap.Logger
}

// Apply registers every seed grocery and recipe, stopping at the first invalid
// entry. Groceries that are already expired are classified right away.
func (l *Loader) Apply(s config.Seed) (Result, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	var res Result
	for i, g := range s.Groceries {
		item, err := Grocery(g, now())
		if err != nil {
			return res, fmt.Errorf("seed grocery %d (%s): %w", i, g.Name, err)
		}
		if err := l.Ledger.Register(item); err != nil {
			return res, fmt.Errorf("seed grocery %d (%s): %w", i, g.Name, err)
		}
		res.Groceries++
	}
	res.Expired = len(l.Ledger.ClassifyExpired())
	if res.Expired > 0 {
		logger.Warn("seed groceries already expired", zap.Int("count", res.Expired))
	}

	for i, r := range s.Recipes {
		recipe, err := Recipe(r)
		if err != nil {
			return res, fmt.Errorf("seed recipe %d (%s): %w", i, r.Name, err)
		}
		if err := l.Book.Add(recipe); err != nil {
			return res, fmt.Errorf("seed recipe %d (%s): %w", i, r.Name, err)
		}
		res.Recipes++
	}

	logger.Info("seed data loaded",
		zap.Int("groceries", res.Groceries),
		zap.Int("expired", res.Expired),
		zap.Int("recipes", res.Recipes),
	)
	return res, nil
}

// Grocery builds an inventory item from a seed entry.
func Grocery(g config.Grocery, now time.Time) (*models.InventoryItem, error) {
	price, err := parseDecimal("price", g.Price)
	if err != nil {
		return nil, err
	}
	amount, err := parseDecimal("amount", g.Amount)
	if err != nil {
		return nil, err
	}

	expiry := models.DateOf(now).AddDate(0, 0, g.ExpiresIn)
	if strings.TrimSpace(g.Expiry) != "" {
		expiry, err = time.Parse(dateLayout, strings.TrimSpace(g.Expiry))
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %q: %w", g.Expiry, err)
		}
	}
	return models.NewInventoryItem(g.Name, price, amount, g.Unit, expiry)
}

// Recipe builds a recipe from a seed entry.
func Recipe(r config.Recipe) (*models.Recipe, error) {
	ings := make([]models.IngredientRequirement, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		q, err := parseDecimal("ingredient amount", ing.Amount)
		if err != nil {
			return nil, err
		}
		ings = append(ings, models.IngredientRequirement{
			Name:     ing.Name,
			Quantity: q,
			Unit:     models.Unit(ing.Unit),
		})
	}
	return models.NewRecipe(r.Name, r.Description, r.Process, ings...)
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}
