// internal/entity/conversion.go
package entity

import (
	"math"
	"sync"
)

// MaxDecimals caps the rounding precision; float64 holds about 15 significant digits.
const MaxDecimals = 15

// Conversion translates a raw sensor reading into an engineering value.
// Linear only: value = raw*Factor + Offset, rounded to Decimals.
type Conversion struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Factor   float64 `json:"factor"`
	Offset   float64 `json:"offset"`
	Decimals int     `json:"decimals"`
}

// NewConversion builds a conversion from a loader record.
// A zero factor is read as 1 (identity scale).
func NewConversion(rec ConversionRecord) Conversion {
	c := Conversion{ID: rec.ID}
	c.apply(rec)
	return c
}

func (c *Conversion) apply(rec ConversionRecord) {
	c.Name = rec.Name
	c.Unit = rec.Unit
	c.Factor = rec.Factor
	if c.Factor == 0 {
		c.Factor = 1
	}
	c.Offset = rec.Offset
	c.Decimals = rec.Decimals
	if c.Decimals < 0 {
		c.Decimals = 0
	}
	if c.Decimals > MaxDecimals {
		c.Decimals = MaxDecimals
	}
}

// Convert applies the rule to one raw register value.
func (c Conversion) Convert(raw uint16) float64 {
	v := float64(raw)*c.Factor + c.Offset
	p := math.Pow(10, float64(c.Decimals))
	r := math.Round(v*p) / p
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return v
	}
	return r
}

// ConversionLookup resolves a conversion by id.
// Implementations return copies; callers never hold references into the table.
type ConversionLookup interface {
	Lookup(id int64) (Conversion, bool)
}

// ConversionTable is the insertion-ordered set of conversions owned by a monitor.
type ConversionTable struct {
	mu    sync.RWMutex
	order []int64
	items map[int64]*Conversion
}

var _ ConversionLookup = (*ConversionTable)(nil)

// NewConversionTable returns an empty table.
func NewConversionTable() *ConversionTable {
	return &ConversionTable{items: make(map[int64]*Conversion)}
}

// Merge inserts unknown ids and updates known ids in place.
func (t *ConversionTable) Merge(recs []ConversionRecord) (loaded, updated int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, rec := range recs {
		if c, ok := t.items[rec.ID]; ok {
			c.apply(rec)
			updated++
			continue
		}

		c := NewConversion(rec)
		t.items[rec.ID] = &c
		t.order = append(t.order, rec.ID)
		loaded++
	}

	return loaded, updated
}

// Retain drops every conversion whose id is not in keep and returns how many went.
func (t *ConversionTable) Retain(keep map[int64]bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	order := t.order[:0]
	removed := 0
	for _, id := range t.order {
		if keep[id] {
			order = append(order, id)
			continue
		}
		delete(t.items, id)
		removed++
	}
	t.order = order
	return removed
}

// Lookup returns a copy of the conversion with the given id.
func (t *ConversionTable) Lookup(id int64) (Conversion, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.items[id]
	if !ok {
		return Conversion{}, false
	}
	return *c, true
}

// Len returns the number of conversions held.
func (t *ConversionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// All returns copies of every conversion in insertion order.
func (t *ConversionTable) All() []Conversion {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Conversion, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.items[id])
	}
	return out
}
