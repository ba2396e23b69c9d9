// Package storage holds the grocery ledger: batches grouped by name, kept in
// expiry order, withdrawn earliest-expiry first.
package storage

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pantry/internal/apperror"
	"pantry/internal/models"
)

// Withdrawal describes a completed removal.
type Withdrawal struct {
	Name     string
	Amount   decimal.Decimal // canonical amount removed
	Unit     models.Unit
	Batches  int  // batches consumed or reduced
	Depleted bool // no batches remain under the name
}

// Shelf is one name with its batches in expiry order.
type Shelf struct {
	Name    string
	Batches []models.InventoryItem
}

// Observer is told about ledger changes after they are applied.
// Calls happen outside the ledger lock and must not block.
type Observer interface {
	BatchRegistered(item models.InventoryItem, merged bool)
	StockWithdrawn(w Withdrawal)
	BatchesExpired(items []models.InventoryItem)
	BatchesPurged(items []models.InventoryItem)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger sets the ledger's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger.With(zap.String("component", "ledger"))
	}
}

// WithObserver adds change observers.
func WithObserver(observers ...Observer) Option {
	return func(l *Ledger) {
		l.observers = append(l.observers, observers...)
	}
}

// Ledger tracks active and expired batches. A batch is in exactly one of the
// two shelves; active lists are sorted by expiry date.
type Ledger struct {
	mu        sync.RWMutex
	active    *shelves
	expired   *shelves
	now       func() time.Time
	logger    *zap.Logger
	observers []Observer
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		active:  newShelves(),
		expired: newShelves(),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register stores a copy of item. A batch with the same expiry date and unit
// absorbs the amount; otherwise the item becomes a new batch.
func (l *Ledger) Register(item *models.InventoryItem) error {
	stored, merged, err := l.register(item)
	if err != nil {
		return err
	}

	l.logger.Debug("batch registered",
		zap.String("name", stored.Name()),
		zap.Stringer("amount", stored.Amount()),
		zap.String("unit", stored.Unit().String()),
		zap.Time("expiry", stored.ExpiryDate()),
		zap.Bool("merged", merged),
	)
	for _, o := range l.observers {
		o.BatchRegistered(stored, merged)
	}
	return nil
}

func (l *Ledger) register(item *models.InventoryItem) (models.InventoryItem, bool, error) {
	if item == nil {
		return models.InventoryItem{}, false, apperror.NullItem()
	}
	if strings.TrimSpace(item.Name()) == "" {
		return models.InventoryItem{}, false, apperror.InvalidArgument("grocery name is required")
	}
	if !item.Amount().IsPositive() {
		return models.InventoryItem{}, false, apperror.InvalidArgument("amount must be positive").
			WithDetail("name", item.Name())
	}
	incoming := *item

	l.mu.Lock()
	defer l.mu.Unlock()

	batches := l.active.get(incoming.Name())
	for _, b := range batches {
		if b.ExpiryDate().Equal(incoming.ExpiryDate()) && b.Unit() == incoming.Unit() {
			if err := b.Increase(incoming.Amount()); err != nil {
				return models.InventoryItem{}, false, err
			}
			return *b, true, nil
		}
	}

	batches = append(batches, &incoming)
	sortByExpiry(batches)
	l.active.put(incoming.Name(), batches)
	return incoming, false, nil
}

// Withdraw removes amount (in unit) of name, consuming the batches that expire
// soonest first. Nothing is changed unless the whole amount is available.
func (l *Ledger) Withdraw(name string, amount decimal.Decimal, unit string) (Withdrawal, error) {
	w, err := l.withdraw(name, amount, unit)
	if err != nil {
		l.logger.Debug("withdrawal rejected",
			zap.String("name", name),
			zap.Stringer("amount", amount),
			zap.String("unit", unit),
			zap.Error(err),
		)
		return Withdrawal{}, err
	}

	l.logger.Debug("stock withdrawn",
		zap.String("name", w.Name),
		zap.Stringer("amount", w.Amount),
		zap.String("unit", w.Unit.String()),
		zap.Int("batches", w.Batches),
	)
	if w.Depleted {
		l.logger.Info("out of stock", zap.String("name", w.Name))
	}
	for _, o := range l.observers {
		o.StockWithdrawn(w)
	}
	return w, nil
}

func (l *Ledger) withdraw(name string, amount decimal.Decimal, unit string) (Withdrawal, error) {
	if strings.TrimSpace(name) == "" {
		return Withdrawal{}, apperror.InvalidArgument("name can not be empty")
	}
	if !amount.IsPositive() {
		return Withdrawal{}, apperror.InvalidArgument("amount must be greater than 0").
			WithDetail("amount", amount.String())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batches := l.active.get(name)
	if len(batches) == 0 {
		return Withdrawal{}, apperror.UnknownItem(name)
	}

	family, err := models.StandardUnit(unit)
	if err != nil {
		return Withdrawal{}, err
	}
	available := decimal.Zero
	matching := 0
	for _, b := range batches {
		if b.Unit() == family {
			available = available.Add(b.Amount())
			matching++
		}
	}
	if matching == 0 {
		return Withdrawal{}, apperror.UnitMismatch(name, unit, batches[0].Unit().String())
	}

	requested, _, err := models.Normalize(amount, unit)
	if err != nil {
		return Withdrawal{}, err
	}
	if available.LessThan(requested) {
		return Withdrawal{}, apperror.InsufficientStock(name, requested, available, family.String())
	}

	w := Withdrawal{Name: batches[0].Name(), Amount: requested, Unit: family}
	remaining := requested
	kept := make([]*models.InventoryItem, 0, len(batches))
	for _, b := range batches {
		if b.Unit() != family || remaining.IsZero() {
			kept = append(kept, b)
			continue
		}
		w.Batches++
		if b.Amount().LessThanOrEqual(remaining) {
			remaining = remaining.Sub(b.Amount())
			continue
		}
		if err := b.Decrease(remaining); err != nil {
			return Withdrawal{}, err
		}
		remaining = decimal.Zero
		kept = append(kept, b)
	}

	l.active.put(name, kept)
	w.Depleted = len(kept) == 0
	return w, nil
}

// ClassifyExpired moves expired batches from the active shelves to the expired
// shelves and returns them. A second call with no new registrations moves nothing.
func (l *Ledger) ClassifyExpired() []models.InventoryItem {
	moved := l.sweepExpired(true)
	if len(moved) == 0 {
		return moved
	}

	l.logger.Info("expired batches moved", zap.Int("count", len(moved)))
	for _, o := range l.observers {
		o.BatchesExpired(moved)
	}
	return moved
}

// PurgeExpired discards expired batches from the active shelves and returns them.
// The expired shelves are left untouched.
func (l *Ledger) PurgeExpired() []models.InventoryItem {
	purged := l.sweepExpired(false)
	if len(purged) == 0 {
		return purged
	}

	l.logger.Info("expired batches purged", zap.Int("count", len(purged)))
	for _, o := range l.observers {
		o.BatchesPurged(purged)
	}
	return purged
}

func (l *Ledger) sweepExpired(keep bool) []models.InventoryItem {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	swept := []models.InventoryItem{}
	for _, key := range l.active.keys() {
		batches := l.active.get(key)
		kept := make([]*models.InventoryItem, 0, len(batches))
		for _, b := range batches {
			if !b.IsExpiredAt(now) {
				kept = append(kept, b)
				continue
			}
			swept = append(swept, *b)
			if keep {
				l.expired.add(key, b)
			}
		}
		l.active.put(key, kept)
	}
	return swept
}

// Find returns the active batches for name, case-insensitively.
func (l *Ledger) Find(name string) []models.InventoryItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyBatches(l.active.get(name))
}

// FindExpired returns the batches classified as expired under name.
func (l *Ledger) FindExpired(name string) []models.InventoryItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyBatches(l.expired.get(name))
}

// ExpiringBefore returns every active batch expiring strictly before date,
// ordered by name and then expiry.
func (l *Ledger) ExpiringBefore(date time.Time) ([]models.InventoryItem, error) {
	if date.IsZero() {
		return nil, apperror.InvalidArgument("date is required")
	}
	cutoff := models.DateOf(date)

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []models.InventoryItem{}
	l.active.each(func(_ string, b *models.InventoryItem) {
		if b.ExpiryDate().Before(cutoff) {
			out = append(out, *b)
		}
	})
	return out, nil
}

// Available is the pooled active amount of name stored in unit.
func (l *Ledger) Available(name string, unit models.Unit) decimal.Decimal {
	if l == nil {
		return decimal.Zero
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, b := range l.active.get(name) {
		if b.Unit() == unit {
			total = total.Add(b.Amount())
		}
	}
	return total
}

// TotalValue sums the value of all active batches.
func (l *Ledger) TotalValue() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sumValue(l.active)
}

// TotalExpiredValue sums the value of all batches classified as expired.
func (l *Ledger) TotalExpiredValue() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sumValue(l.expired)
}

// Shelves lists the active stock alphabetically by name.
func (l *Ledger) Shelves() []Shelf {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active.snapshot()
}

// ExpiredShelves lists the expired stock alphabetically by name.
func (l *Ledger) ExpiredShelves() []Shelf {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.expired.snapshot()
}

func sumValue(s *shelves) decimal.Decimal {
	total := decimal.Zero
	s.each(func(_ string, b *models.InventoryItem) {
		total = total.Add(b.Value())
	})
	return total
}
