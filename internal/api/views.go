package api

import (
	"github.com/shopspring/decimal"

	"pantry/internal/models"
	"pantry/internal/storage"
)

type batchView struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Unit   models.Unit     `json:"unit"`
	Price  decimal.Decimal `json:"price"`
	Expiry string          `json:"expiry"`
	Value  decimal.Decimal `json:"value"`
}

type shelfView struct {
	Name    string      `json:"name"`
	Batches []batchView `json:"batches"`
}

type withdrawalView struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Unit     models.Unit     `json:"unit"`
	Batches  int             `json:"batches"`
	Depleted bool            `json:"depleted"`
}

type ingredientView struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Unit   models.Unit     `json:"unit"`
}

type recipeView struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Process     string           `json:"process"`
	Ingredients []ingredientView `json:"ingredients"`
}

func newBatchView(item models.InventoryItem) batchView {
	return batchView{
		ID:     item.ID().String(),
		Name:   item.Name(),
		Amount: item.Amount(),
		Unit:   item.Unit(),
		Price:  item.Price(),
		Expiry: item.ExpiryDate().Format(dateLayout),
		Value:  item.Value(),
	}
}

func newBatchViews(items []models.InventoryItem) []batchView {
	out := make([]batchView, len(items))
	for i := range items {
		out[i] = newBatchView(items[i])
	}
	return out
}

func newShelfViews(shelves []storage.Shelf) []shelfView {
	out := make([]shelfView, len(shelves))
	for i, s := range shelves {
		out[i] = shelfView{Name: s.Name, Batches: newBatchViews(s.Batches)}
	}
	return out
}

func newWithdrawalView(w storage.Withdrawal) withdrawalView {
	return withdrawalView{
		Name:     w.Name,
		Amount:   w.Amount,
		Unit:     w.Unit,
		Batches:  w.Batches,
		Depleted: w.Depleted,
	}
}

func newRecipeView(r *models.Recipe) recipeView {
	ings := r.Ingredients()
	view := recipeView{
		Name:        r.Name(),
		Description: r.Description(),
		Process:     r.Process(),
		Ingredients: make([]ingredientView, len(ings)),
	}
	for i, ing := range ings {
		view.Ingredients[i] = ingredientView{Name: ing.Name, Amount: ing.Quantity, Unit: ing.Unit}
	}
	return view
}

func newRecipeViews(recipes []*models.Recipe) []recipeView {
	out := make([]recipeView, len(recipes))
	for i, r := range recipes {
		out[i] = newRecipeView(r)
	}
	return out
}
