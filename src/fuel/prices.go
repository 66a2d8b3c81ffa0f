package fuel

import (
	"fmt"
	"strings"
)

// Prices maps a fuel type to its price per liter. Each tier holds its own
// table; there is no shared source of truth.
type Prices map[Type]float64

// DefaultPrices returns the table every node starts with.
func DefaultPrices() Prices {
	return Prices{
		Gas93:    1000.0,
		Gas95:    1100.0,
		Gas97:    1200.0,
		Diesel:   900.0,
		Kerosene: 800.0,
	}
}

// Clone returns a copy that can be handed out without holding a lock.
func (p Prices) Clone() Prices {
	c := make(Prices, len(p))
	for t, v := range p {
		c[t] = v
	}
	return c
}

// Scale returns a new table with every price multiplied by factor.
func (p Prices) Scale(factor float64) Prices {
	c := make(Prices, len(p))
	for t, v := range p {
		c[t] = v * factor
	}
	return c
}

// Merge overwrites the entries of p with those of other.
func (p Prices) Merge(other Prices) {
	for t, v := range other {
		p[t] = v
	}
}

// String prints the table in fuel declaration order.
func (p Prices) String() string {
	parts := []string{}
	for _, t := range Types {
		if v, ok := p[t]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.2f", t.DisplayName(), v))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
