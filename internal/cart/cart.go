// Package cart is the shopper's cart, an observable list of lines kept in
// a state container. Totals use decimal arithmetic.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Aman-CERP/perfshop/internal/catalog"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/state"
)

// MaxQuantity caps a single line.
const MaxQuantity = 99

// Line is one product in the cart.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Total returns UnitPrice times Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable view of the cart.
type Snapshot struct {
	Lines     []Line          `json:"lines"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Cart holds lines in insertion order.
type Cart struct {
	catalog *catalog.Catalog
	state   *state.Container[[]Line]
}

// New creates an empty cart over cat.
func New(cat *catalog.Catalog) *Cart {
	return &Cart{
		catalog: cat,
		state:   state.New([]Line{}),
	}
}

func invalidQuantity(qty int) error {
	return shoperrors.New(shoperrors.ErrCodeInvalidQuantity,
		fmt.Sprintf("quantity must be between 1 and %d, got %d", MaxQuantity, qty), nil)
}

func unknownProduct(id string) error {
	return shoperrors.New(shoperrors.ErrCodeUnknownProduct, fmt.Sprintf("unknown product %q", id), nil)
}

// Add puts qty of product id in the cart, merging with an existing line.
func (c *Cart) Add(id string, qty int) (Snapshot, error) {
	if qty <= 0 {
		return Snapshot{}, invalidQuantity(qty)
	}
	p, ok := c.catalog.Get(id)
	if !ok {
		return Snapshot{}, unknownProduct(id)
	}
	if !p.InStock {
		return Snapshot{}, shoperrors.New(shoperrors.ErrCodeOutOfStock,
			fmt.Sprintf("%s is out of stock", p.Name), nil).WithDetail("product_id", id)
	}

	var err error
	lines := c.state.Update(func(cur []Line) []Line {
		next := cloneLines(cur)
		for i := range next {
			if next[i].ProductID == id {
				if next[i].Quantity+qty > MaxQuantity {
					err = invalidQuantity(next[i].Quantity + qty)
					return cur
				}
				next[i].Quantity += qty
				return next
			}
		}
		if qty > MaxQuantity {
			err = invalidQuantity(qty)
			return cur
		}
		return append(next, Line{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: qty})
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(lines), nil
}

// SetQuantity changes a line's quantity. Zero removes the line.
func (c *Cart) SetQuantity(id string, qty int) (Snapshot, error) {
	if qty < 0 || qty > MaxQuantity {
		return Snapshot{}, invalidQuantity(qty)
	}

	var err error
	lines := c.state.Update(func(cur []Line) []Line {
		next := make([]Line, 0, len(cur))
		found := false
		for _, l := range cur {
			if l.ProductID == id {
				found = true
				if qty == 0 {
					continue
				}
				l.Quantity = qty
			}
			next = append(next, l)
		}
		if !found {
			err = unknownProduct(id)
			return cur
		}
		return next
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(lines), nil
}

// Remove drops the line for id.
func (c *Cart) Remove(id string) (Snapshot, error) {
	return c.SetQuantity(id, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() Snapshot {
	return snapshotOf(c.state.Update(func([]Line) []Line { return []Line{} }))
}

// Snapshot returns the current cart.
func (c *Cart) Snapshot() Snapshot {
	return snapshotOf(c.state.Get())
}

// Subtotal returns the sum of all line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	return c.Snapshot().Subtotal
}

// ItemCount returns the total quantity across lines.
func (c *Cart) ItemCount() int {
	return c.Snapshot().ItemCount
}

// Subscribe calls fn after every change.
func (c *Cart) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return c.state.Subscribe(func(lines []Line) { fn(snapshotOf(lines)) })
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func snapshotOf(lines []Line) Snapshot {
	s := Snapshot{Lines: cloneLines(lines), Subtotal: decimal.Zero}
	for _, l := range lines {
		s.ItemCount += l.Quantity
		s.Subtotal = s.Subtotal.Add(l.Total())
	}
	return s
}
