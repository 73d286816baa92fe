// Package catalog holds the immutable product catalog the storefront
// searches.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is a single catalog entry. Products are never mutated after load.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Rating      float64         `json:"rating"`
	InStock     bool            `json:"inStock"`
}

// record is the YAML shape of a product. Prices are quoted strings so they
// never pass through a float.
type record struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	Price       string  `yaml:"price"`
	Rating      float64 `yaml:"rating"`
	InStock     bool    `yaml:"in_stock"`
}

type document struct {
	Products []record `yaml:"products"`
}
