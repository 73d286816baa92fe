package catalog

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/perfshop/configs"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

// Catalog is an ordered, read-only set of products. Insertion order is the
// order search results are reported in.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// New builds a catalog from products, rejecting duplicate or empty IDs.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, shoperrors.New(shoperrors.ErrCodeCatalogFailed, "product without id", nil).
				WithDetail("name", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, shoperrors.New(shoperrors.ErrCodeCatalogFailed, "duplicate product id", nil).
				WithDetail("id", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Default loads the embedded storefront catalog.
func Default() (*Catalog, error) {
	return Parse(configs.CatalogYAML)
}

// LoadFile loads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeCatalogFailed,
			fmt.Sprintf("failed to open catalog %s", path), err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeCatalogFailed, "failed to read catalog", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeCatalogFailed, "failed to parse catalog", err)
	}

	products := make([]Product, 0, len(doc.Products))
	for _, rec := range doc.Products {
		price, err := decimal.NewFromString(rec.Price)
		if err != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeCatalogFailed, "invalid price", err).
				WithDetail("id", rec.ID).
				WithDetail("price", rec.Price)
		}
		products = append(products, Product{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			Category:    rec.Category,
			Price:       price,
			Rating:      rec.Rating,
			InStock:     rec.InStock,
		})
	}
	return New(products)
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Products returns a copy of the products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get looks a product up by ID.
func (c *Catalog) Get(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, p := range c.products {
		seen[p.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Extend returns a new catalog with extra products appended.
func (c *Catalog) Extend(extra []Product) (*Catalog, error) {
	all := make([]Product, 0, len(c.products)+len(extra))
	all = append(all, c.products...)
	all = append(all, extra...)
	return New(all)
}
