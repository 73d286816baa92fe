package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

var (
	genAdjectives = []string{"Wireless", "Compact", "Portable", "Premium", "Smart", "Rugged", "Slim", "Classic"}
	genNouns      = []string{"Mouse", "Keyboard", "Speaker", "Charger", "Case", "Stand", "Lamp", "Cable", "Headphones", "Hub"}
	genCategories = []string{"Electronics", "Accessories", "Audio", "Home Office", "Storage", "Wearables"}
	genDetails    = []string{"with USB-C", "in matte black", "with travel pouch", "for everyday carry", "with two year warranty"}
)

// Generate returns n synthetic products. The same seed always yields the
// same products, so benchmarks and tests can compare strategies on large
// inputs.
func Generate(n int, seed int64) []Product {
	rng := rand.New(rand.NewPCG(uint64(seed), 0x5eed))
	products := make([]Product, n)
	for i := range products {
		adj := genAdjectives[rng.IntN(len(genAdjectives))]
		noun := genNouns[rng.IntN(len(genNouns))]
		cat := genCategories[rng.IntN(len(genCategories))]
		detail := genDetails[rng.IntN(len(genDetails))]

		products[i] = Product{
			ID:          fmt.Sprintf("gen-%05d", i+1),
			Name:        fmt.Sprintf("%s %s %d", adj, noun, i+1),
			Description: fmt.Sprintf("%s %s %s", adj, noun, detail),
			Category:    cat,
			Price:       decimal.New(int64(499+rng.IntN(20000)), -2),
			Rating:      float64(20+rng.IntN(31)) / 10,
			InStock:     rng.IntN(10) != 0,
		}
	}
	return products
}
