package model

import "github.com/shopspring/decimal"

// VariantStatus is a soft lifecycle flag; variants are never hard-deleted.
type VariantStatus string

const (
	VariantStatusActive   VariantStatus = "ACTIVE"
	VariantStatusArchived VariantStatus = "ARCHIVED"
)

// Product is a catalog entry with independently stocked variants.
type Product struct {
	ID        int64
	Name      string
	BasePrice decimal.Decimal
	Variants  []Variant
}

// Variant carries its own stock counter and price adjustment.
type Variant struct {
	ID              int64
	ProductID       int64
	SKU             string
	Stock           int
	PriceAdjustment decimal.Decimal
	Status          VariantStatus
}

// Variant returns pointer to the variant with id so callers can mutate it in place.
func (p *Product) Variant(id int64) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// UnitPrice is the base price adjusted by variant.
func (p *Product) UnitPrice(v *Variant) decimal.Decimal {
	return p.BasePrice.Add(v.PriceAdjustment)
}
