package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry/internal/apperror"
	"pantry/internal/models"
)

var today = time.Date(2026, time.March, 1, 9, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return models.DateOf(today).AddDate(0, 0, offset)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(opts ...Option) *Ledger {
	return New(append([]Option{WithClock(func() time.Time { return today })}, opts...)...)
}

func mustItem(t *testing.T, name, price, amount, unit string, expiry time.Time) *models.InventoryItem {
	t.Helper()
	item, err := models.NewInventoryItem(name, dec(price), dec(amount), unit, expiry)
	require.NoError(t, err)
	return item
}

func amounts(items []models.InventoryItem) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].Amount().String()
	}
	return out
}

type recorder struct {
	mu         sync.Mutex
	registered []bool
	withdrawn  []Withdrawal
	expired    int
	purged     int
}

func (r *recorder) BatchRegistered(_ models.InventoryItem, merged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, merged)
}

func (r *recorder) StockWithdrawn(w Withdrawal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawn = append(r.withdrawn, w)
}

func (r *recorder) BatchesExpired(items []models.InventoryItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired += len(items)
}

func (r *recorder) BatchesPurged(items []models.InventoryItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged += len(items)
}

func TestRegister_NilItem(t *testing.T) {
	l := newLedger()
	assert.True(t, errors.Is(l.Register(nil), apperror.ErrNullItem))
}

func TestRegister_RejectsZeroItem(t *testing.T) {
	l := newLedger()

	err := l.Register(&models.InventoryItem{})
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
	assert.Empty(t, l.Shelves())
}

func TestAvailable_NilLedger(t *testing.T) {
	var l *Ledger
	assert.True(t, l.Available("Milk", models.Unit("l")).IsZero())
}

func TestRegister_MergesSameExpiryAndUnit(t *testing.T) {
	rec := &recorder{}
	l := newLedger(WithObserver(rec))

	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "2", "l", day(3))))
	require.NoError(t, l.Register(mustItem(t, "milk", "15", "500", "ml", day(3))))

	batches := l.Find("MILK")
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"2.5"}, amounts(batches))
	assert.Equal(t, []bool{false, true}, rec.registered)
}

func TestRegister_DifferentExpiryKeepsSeparateBatches(t *testing.T) {
	l := newLedger()

	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "2", "l", day(3))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "1", "l", day(5))))

	assert.Len(t, l.Find("milk"), 2)
}

func TestRegister_DifferentUnitKeepsSeparateBatches(t *testing.T) {
	l := newLedger()

	require.NoError(t, l.Register(mustItem(t, "Butter", "10", "250", "g", day(3))))
	require.NoError(t, l.Register(mustItem(t, "Butter", "10", "2", "stk", day(3))))

	assert.Len(t, l.Find("butter"), 2)
}

func TestRegister_KeepsExpiryOrder(t *testing.T) {
	l := newLedger()
	for _, offset := range []int{9, 2, 7, 2, 0, 5} {
		require.NoError(t, l.Register(mustItem(t, "Bread", "25", "1", "kg", day(offset))))
	}

	batches := l.Find("bread")
	require.Len(t, batches, 5)
	for i := 1; i < len(batches); i++ {
		assert.False(t, batches[i].ExpiryDate().Before(batches[i-1].ExpiryDate()), "batch %d out of order", i)
	}
	assert.Equal(t, "2000", batches[1].Amount().String(), "two batches on day+2 merged")
}

func TestRegister_StoresCopy(t *testing.T) {
	l := newLedger()
	item := mustItem(t, "Rice", "20", "5", "kg", day(30))
	require.NoError(t, l.Register(item))

	require.NoError(t, item.Decrease(dec("4000")))
	assert.Equal(t, []string{"5000"}, amounts(l.Find("rice")))
}

func TestWithdraw_FIFOByExpiry(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "5", "l", day(2))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "5", "l", day(0))))

	w, err := l.Withdraw("milk", dec("9"), "l")
	require.NoError(t, err)
	assert.True(t, w.Amount.Equal(dec("9")))
	assert.Equal(t, models.UnitLiter, w.Unit)
	assert.Equal(t, 2, w.Batches)
	assert.False(t, w.Depleted)

	batches := l.Find("milk")
	require.Len(t, batches, 1)
	assert.Equal(t, "1", batches[0].Amount().String())
	assert.Equal(t, day(2), batches[0].ExpiryDate())
}

func TestWithdraw_ConvertsRequestedUnit(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Juice", "20", "1", "l", day(4))))

	_, err := l.Withdraw("Juice", dec("250"), "ml")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.75"}, amounts(l.Find("juice")))
}

func TestWithdraw_ExactAmountRemovesName(t *testing.T) {
	rec := &recorder{}
	l := newLedger(WithObserver(rec))
	require.NoError(t, l.Register(mustItem(t, "Eggs", "5", "6", "stk", day(1))))
	require.NoError(t, l.Register(mustItem(t, "Eggs", "5", "12", "stk", day(8))))

	w, err := l.Withdraw("eggs", dec("18"), "stk")
	require.NoError(t, err)
	assert.True(t, w.Depleted)
	assert.Empty(t, l.Find("eggs"))
	assert.Empty(t, l.Shelves(), "emptied key is removed")
	require.Len(t, rec.withdrawn, 1)
	assert.True(t, rec.withdrawn[0].Depleted)

	_, err = l.Withdraw("eggs", dec("1"), "stk")
	assert.True(t, errors.Is(err, apperror.ErrUnknownItem))
}

func TestWithdraw_InsufficientStockLeavesBatchesUntouched(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "5", "l", day(0))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "5", "l", day(2))))

	_, err := l.Withdraw("milk", dec("10.5"), "l")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInsufficientStock))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "10", appErr.Details["available"])
	assert.Equal(t, []string{"5", "5"}, amounts(l.Find("milk")))
}

func TestWithdraw_UnitMismatch(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "2", "l", day(2))))

	_, err := l.Withdraw("milk", dec("4"), "g")
	assert.True(t, errors.Is(err, apperror.ErrUnitMismatch))
	assert.Equal(t, []string{"2"}, amounts(l.Find("milk")))
}

func TestWithdraw_OnlyTouchesRequestedFamily(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Butter", "10", "2", "stk", day(0))))
	require.NoError(t, l.Register(mustItem(t, "Butter", "0.1", "500", "g", day(3))))

	_, err := l.Withdraw("butter", dec("3"), "stk")
	assert.True(t, errors.Is(err, apperror.ErrInsufficientStock), "grams do not count towards pieces")

	_, err = l.Withdraw("butter", dec("200"), "g")
	require.NoError(t, err)

	batches := l.Find("butter")
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"2", "300"}, amounts(batches))
}

func TestWithdraw_InvalidInput(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "2", "l", day(2))))

	tests := []struct {
		name   string
		item   string
		amount string
		unit   string
		want   error
	}{
		{"blank name", " ", "1", "l", apperror.ErrInvalidArgument},
		{"zero amount", "milk", "0", "l", apperror.ErrInvalidArgument},
		{"unknown item", "cream", "1", "l", apperror.ErrUnknownItem},
		{"unsupported unit", "milk", "1", "cup", apperror.ErrUnsupportedUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Withdraw(tt.item, dec(tt.amount), tt.unit)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestClassifyExpired_MovesAndIsIdempotent(t *testing.T) {
	rec := &recorder{}
	l := newLedger(WithObserver(rec))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "1", "l", day(-2))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "3", "l", day(4))))
	require.NoError(t, l.Register(mustItem(t, "Bread", "25", "1", "kg", day(-1))))
	require.NoError(t, l.Register(mustItem(t, "Ham", "30", "200", "g", day(0))))

	moved := l.ClassifyExpired()
	assert.Len(t, moved, 2)

	assert.Equal(t, []string{"3"}, amounts(l.Find("milk")))
	assert.Empty(t, l.Find("bread"))
	assert.Len(t, l.Find("ham"), 1, "expiry day is not expired")
	assert.Len(t, l.FindExpired("MILK"), 1)
	assert.Len(t, l.FindExpired("bread"), 1)

	first := l.ExpiredShelves()
	assert.Empty(t, l.ClassifyExpired())
	assert.Equal(t, first, l.ExpiredShelves())
	assert.Equal(t, 2, rec.expired)
}

func TestPurgeExpired_DiscardsWithoutRelocating(t *testing.T) {
	rec := &recorder{}
	l := newLedger(WithObserver(rec))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "1", "l", day(-2))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "3", "l", day(4))))

	purged := l.PurgeExpired()
	require.Len(t, purged, 1)
	assert.Equal(t, "1", purged[0].Amount().String())

	assert.Equal(t, []string{"3"}, amounts(l.Find("milk")))
	assert.Empty(t, l.FindExpired("milk"))
	assert.True(t, l.TotalExpiredValue().IsZero())
	assert.Equal(t, 1, rec.purged)
}

func TestExpiringBefore(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "1", "l", day(1))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "1", "l", day(5))))
	require.NoError(t, l.Register(mustItem(t, "Apples", "30", "3", "kg", day(2))))
	require.NoError(t, l.Register(mustItem(t, "Rice", "20", "5", "kg", day(3))))

	items, err := l.ExpiringBefore(day(3))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Apples", items[0].Name())
	assert.Equal(t, "Milk", items[1].Name())

	_, err = l.ExpiringBefore(time.Time{})
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
}

func TestTotalValue(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "35", "5", "l", day(1))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "65", "2", "l", day(2))))
	assert.Equal(t, "305", l.TotalValue().String())

	other := newLedger()
	require.NoError(t, other.Register(mustItem(t, "Milk", "35", "5", "l", day(1))))
	require.NoError(t, other.Register(mustItem(t, "Juice", "35", "2", "l", day(1))))
	require.NoError(t, other.Register(mustItem(t, "Soda", "35", "2", "l", day(1))))
	assert.Equal(t, "315", other.TotalValue().String())
}

func TestTotalExpiredValue(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "2", "l", day(-3))))
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "1", "l", day(3))))
	assert.True(t, l.TotalExpiredValue().IsZero())

	l.ClassifyExpired()
	assert.Equal(t, "30", l.TotalExpiredValue().String())
	assert.Equal(t, "15", l.TotalValue().String())
}

func TestAvailable(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Onion", "2", "30", "g", day(1))))
	require.NoError(t, l.Register(mustItem(t, "onion", "2", "0.02", "kg", day(6))))
	require.NoError(t, l.Register(mustItem(t, "Onion", "5", "2", "stk", day(6))))

	assert.Equal(t, "50", l.Available("ONION", models.UnitGram).String())
	assert.Equal(t, "2", l.Available("onion", models.UnitCount).String())
	assert.True(t, l.Available("garlic", models.UnitGram).IsZero())
}

func TestShelves_SortedAlphabetically(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Milk", "15", "1", "l", day(1))))
	require.NoError(t, l.Register(mustItem(t, "apples", "30", "1", "kg", day(1))))
	require.NoError(t, l.Register(mustItem(t, "Bread", "25", "1", "kg", day(1))))

	shelves := l.Shelves()
	require.Len(t, shelves, 3)
	assert.Equal(t, "apples", shelves[0].Name)
	assert.Equal(t, "bread", shelves[1].Name)
	assert.Equal(t, "milk", shelves[2].Name)
}

func TestLedger_ConcurrentAccess(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Register(mustItem(t, "Flour", "1", "1000", "kg", day(30))))

	restock := make([]*models.InventoryItem, 50)
	for i := range restock {
		restock[i] = mustItem(t, "Flour", "1", "1", "kg", day(31))
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.Withdraw("flour", dec("1"), "kg")
		}()
		go func(item *models.InventoryItem) {
			defer wg.Done()
			_ = l.Register(item)
			_ = l.TotalValue()
		}(restock[i])
	}
	wg.Wait()

	assert.Equal(t, "1000000", l.Available("flour", models.UnitGram).String())
}
