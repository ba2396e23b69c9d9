package storage

import (
	"sort"

	"pantry/internal/models"
)

// shelves maps item names to their batches, ignoring case. Callers pass raw
// names; folding happens here and nowhere else in the ledger. A key never
// holds an empty list.
type shelves struct {
	m map[string][]*models.InventoryItem
}

func newShelves() *shelves {
	return &shelves{m: make(map[string][]*models.InventoryItem)}
}

func (s *shelves) get(name string) []*models.InventoryItem {
	return s.m[models.FoldName(name)]
}

// put replaces the batches under name, dropping the key when batches is empty.
func (s *shelves) put(name string, batches []*models.InventoryItem) {
	key := models.FoldName(name)
	if len(batches) == 0 {
		delete(s.m, key)
		return
	}
	s.m[key] = batches
}

func (s *shelves) add(name string, batch *models.InventoryItem) {
	key := models.FoldName(name)
	s.m[key] = append(s.m[key], batch)
}

// keys returns the folded names in alphabetical order.
func (s *shelves) keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// each visits every batch, ordered by key then list position.
func (s *shelves) each(fn func(key string, batch *models.InventoryItem)) {
	for _, key := range s.keys() {
		for _, b := range s.m[key] {
			fn(key, b)
		}
	}
}

func (s *shelves) snapshot() []Shelf {
	out := make([]Shelf, 0, len(s.m))
	for _, key := range s.keys() {
		out = append(out, Shelf{Name: key, Batches: copyBatches(s.m[key])})
	}
	return out
}

func copyBatches(batches []*models.InventoryItem) []models.InventoryItem {
	if len(batches) == 0 {
		return []models.InventoryItem{}
	}
	out := make([]models.InventoryItem, len(batches))
	for i, b := range batches {
		out[i] = *b
	}
	return out
}

func sortByExpiry(batches []*models.InventoryItem) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ExpiryDate().Before(batches[j].ExpiryDate())
	})
}
