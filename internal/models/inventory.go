package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pantry/internal/apperror"
)

// InventoryItem is one batch of a grocery: a quantity with its own unit price
// and expiry date. The amount is kept in the canonical unit.
type InventoryItem struct {
	id         uuid.UUID
	name       string
	amount     decimal.Decimal
	price      decimal.Decimal
	unit       Unit
	expiryDate time.Time
}

// NewInventoryItem validates the inputs and normalizes amount and unit.
// Past expiry dates are accepted and produce an already expired batch.
func NewInventoryItem(name string, price, amount decimal.Decimal, unit string, expiryDate time.Time) (*InventoryItem, error) {
	if err := ValidateName("name", name); err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, apperror.InvalidArgument("price must be greater than 0").WithDetail("price", price.String())
	}
	if !amount.IsPositive() {
		return nil, apperror.InvalidArgument("amount must be greater than 0").WithDetail("amount", amount.String())
	}
	normalized, canonical, err := Normalize(amount, unit)
	if err != nil {
		return nil, err
	}
	if expiryDate.IsZero() {
		return nil, apperror.InvalidArgument("expiry date is required")
	}

	return &InventoryItem{
		id:         uuid.New(),
		name:       strings.TrimSpace(name),
		amount:     normalized,
		price:      price,
		unit:       canonical,
		expiryDate: DateOf(expiryDate),
	}, nil
}

// DateOf drops the clock part of t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (i *InventoryItem) ID() uuid.UUID { return i.id }
func (i *InventoryItem) Name() string { return i.name }
func (i *InventoryItem) Amount() decimal.Decimal { return i.amount }
func (i *InventoryItem) Price() decimal.Decimal { return i.price }
func (i *InventoryItem) Unit() Unit { return i.unit }
func (i *InventoryItem) ExpiryDate() time.Time { return i.expiryDate }

// Increase adds delta (canonical units) to the batch.
func (i *InventoryItem) Increase(delta decimal.Decimal) error {
	if !delta.IsPositive() {
		return apperror.InvalidArgument("amount to increase with must be greater than 0").
			WithDetail("amount", delta.String())
	}
	i.amount = i.amount.Add(delta)
	return nil
}

// Decrease removes delta (canonical units) from the batch. The batch may reach zero.
func (i *InventoryItem) Decrease(delta decimal.Decimal) error {
	if !delta.IsPositive() {
		return apperror.InvalidArgument("amount to decrease with must be greater than 0").
			WithDetail("amount", delta.String())
	}
	if delta.GreaterThan(i.amount) {
		return apperror.InvalidArgument("cannot decrease %s by %s %s, only %s left", i.name, delta, i.unit, i.amount).
			WithDetail("amount", delta.String()).
			WithDetail("available", i.amount.String())
	}
	i.amount = i.amount.Sub(delta)
	return nil
}

// IsExpired checks the batch against today's date.
func (i *InventoryItem) IsExpired() bool {
	return i.IsExpiredAt(time.Now())
}

// IsExpiredAt is true when the calendar date of now is after the expiry date.
func (i *InventoryItem) IsExpiredAt(now time.Time) bool {
	return DateOf(now).After(i.expiryDate)
}

// Value is the monetary value of the batch: unit price times amount.
func (i *InventoryItem) Value() decimal.Decimal {
	return i.price.Mul(i.amount)
}
