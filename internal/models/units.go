package models

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pantry/internal/apperror"
)

// Unit is a canonical unit of measurement. Every stored amount is in one of these.
type Unit string

const (
	// Mass is stored in grams
	UnitGram Unit = "g"
	// Volume is stored in liters
	UnitLiter Unit = "l"
	// Discrete items are stored as a count
	UnitCount Unit = "stk"
)

// IsCanonical reports whether u is one of the storage units.
func (u Unit) IsCanonical() bool {
	switch u {
	case UnitGram, UnitLiter, UnitCount:
		return true
	}
	return false
}

func (u Unit) String() string {
	return string(u)
}

type unitDef struct {
	base   Unit
	factor decimal.Decimal // amount in token * factor = amount in base
}

var unitTable = map[string]unitDef{
	// mass (base = g)
	"mg": {base: UnitGram, factor: decimal.New(1, -3)},
	"g":  {base: UnitGram, factor: decimal.NewFromInt(1)},
	"kg": {base: UnitGram, factor: decimal.NewFromInt(1000)},

	// volume (base = l)
	"ml": {base: UnitLiter, factor: decimal.New(1, -3)},
	"dl": {base: UnitLiter, factor: decimal.New(1, -1)},
	"l":  {base: UnitLiter, factor: decimal.NewFromInt(1)},

	// discrete
	"stk": {base: UnitCount, factor: decimal.NewFromInt(1)},
}

func lookupUnit(token string) (unitDef, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return unitDef{}, apperror.InvalidArgument("unit can not be empty")
	}
	def, ok := unitTable[t]
	if !ok {
		return unitDef{}, apperror.UnsupportedUnit(token)
	}
	return def, nil
}

// Normalize converts amount expressed in unit to its canonical unit.
func Normalize(amount decimal.Decimal, unit string) (decimal.Decimal, Unit, error) {
	def, err := lookupUnit(unit)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return amount.Mul(def.factor), def.base, nil
}

// StandardUnit returns the canonical unit for a token without converting anything.
func StandardUnit(unit string) (Unit, error) {
	def, err := lookupUnit(unit)
	if err != nil {
		return "", err
	}
	return def.base, nil
}

// SupportedUnits lists every accepted unit token.
func SupportedUnits() []string {
	tokens := make([]string, 0, len(unitTable))
	for t := range unitTable {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}
