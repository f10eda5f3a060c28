package domain

import "fmt"

// PricingKind tags a Pricing variant.
type PricingKind uint8

const (
	PricingUnitPrice PricingKind = iota
	PricingFixedCost
)

// Pricing is a tagged variant: either a per-unit price or a fixed cost.
// Exactly one of UnitPrice/FixedCost is meaningful, selected by Kind.
type Pricing struct {
	Kind      PricingKind
	UnitPrice uint64
	FixedCost uint64
}

// Validate checks the shape rule that the active price is strictly positive.
func (p Pricing) Validate() error {
	switch p.Kind {
	case PricingUnitPrice:
		if p.UnitPrice == 0 {
			return fmt.Errorf("unit price must be > 0")
		}
	case PricingFixedCost:
		if p.FixedCost == 0 {
			return fmt.Errorf("fixed cost must be > 0")
		}
	default:
		return fmt.Errorf("unknown pricing kind %d", p.Kind)
	}
	return nil
}

// Cost computes the cost of consuming the given number of units under this
// pricing scheme. ok is false when a UnitPrice multiply would overflow a
// uint64; the caller must treat that as a validation failure, never a
// wrapped value.
func (p Pricing) Cost(units uint64) (cost uint64, ok bool) {
	switch p.Kind {
	case PricingFixedCost:
		return p.FixedCost, true
	case PricingUnitPrice:
		return CheckedMul(units, p.UnitPrice)
	default:
		return 0, false
	}
}

// CheckedMul multiplies two uint64 values, reporting overflow instead of
// wrapping.
func CheckedMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	result := a * b
	if result/a != b {
		return 0, false
	}
	return result, true
}

// CheckedAdd adds two uint64 values, reporting overflow instead of wrapping.
func CheckedAdd(a, b uint64) (uint64, bool) {
	result := a + b
	if result < a {
		return 0, false
	}
	return result, true
}
