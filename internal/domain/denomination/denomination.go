// Package denomination holds the fixed catalog of coin denominations.
package denomination

import (
	"github.com/shopspring/decimal"
)

// RGB is a display color.
type RGB struct {
	R, G, B uint8
}

// Denomination is an immutable catalog entry. Coins hold a pointer into the
// catalog and never copy or mutate it.
type Denomination struct {
	Name   string
	Value  decimal.Decimal // currency units
	Radius float64         // scene units
	Color  RGB
}

// Diameter returns the visual size of the coin.
func (d *Denomination) Diameter() float64 { return d.Radius * 2 }

// Index positions in the catalog, smallest to largest.
const (
	Penny = iota
	Nickel
	Dime
	Quarter
	Dollar
)

var (
	bronze = RGB{R: 139, G: 69, B: 19}
	silver = RGB{R: 192, G: 192, B: 192}
	gold   = RGB{R: 255, G: 215, B: 0}
)

//nolint:gochecknoglobals // static catalog shared by every coin
var catalog = [...]Denomination{
	Penny:   {Name: "penny", Value: decimal.RequireFromString("0.01"), Radius: 7.5, Color: bronze},
	Nickel:  {Name: "nickel", Value: decimal.RequireFromString("0.05"), Radius: 9, Color: silver},
	Dime:    {Name: "dime", Value: decimal.RequireFromString("0.10"), Radius: 8, Color: silver},
	Quarter: {Name: "quarter", Value: decimal.RequireFromString("0.25"), Radius: 11, Color: silver},
	Dollar:  {Name: "dollar", Value: decimal.RequireFromString("1.00"), Radius: 12, Color: gold},
}

// Get returns the catalog entry at index i. It panics on an index outside
// Penny..Dollar, which is a programming error.
func Get(i int) *Denomination { return &catalog[i] }

// All returns the catalog in order from the smallest to the largest value.
func All() []*Denomination {
	out := make([]*Denomination, len(catalog))
	for i := range catalog {
		out[i] = &catalog[i]
	}
	return out
}

// Smallest returns the lowest-value denomination.
func Smallest() *Denomination { return &catalog[Penny] }

// ByName looks up a denomination by its name.
func ByName(name string) (*Denomination, bool) {
	for i := range catalog {
		if catalog[i].Name == name {
			return &catalog[i], true
		}
	}
	return nil, false
}
