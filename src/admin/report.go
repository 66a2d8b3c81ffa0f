package admin

import (
	"fmt"
	"strings"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/fuel"
)

// GenerateConsolidatedReport renders the sales of the connected distributors
// from their last reports. A connected distributor that never reported counts
// as zero.
func (a *Admin) GenerateConsolidatedReport() string {
	ids := a.Distributors()

	var (
		b           strings.Builder
		globalSales float64
		globalCount int
		byType      = make(map[fuel.Type]float64)
	)

	b.WriteString("=== CONSOLIDATED REPORT ===\n")
	fmt.Fprintf(&b, "Date: %s\n\n", time.Now().Format(time.RFC1123))
	fmt.Fprintf(&b, "Connected distributors: %d\n\n", len(ids))

	for _, id := range ids {
		r, _ := a.Report(id)

		var sales float64
		for _, tx := range r.Transactions {
			sales += tx.Total
			byType[tx.FuelType] += tx.Total
		}

		fmt.Fprintf(&b, "Distributor: %s\n", id)
		fmt.Fprintf(&b, "  Transactions: %d\n", len(r.Transactions))
		fmt.Fprintf(&b, "  Total sales: $%.2f\n\n", sales)

		globalSales += sales
		globalCount += len(r.Transactions)
	}

	b.WriteString("=== GLOBAL SUMMARY ===\n")
	fmt.Fprintf(&b, "Total transactions: %d\n", globalCount)
	fmt.Fprintf(&b, "Total sales: $%.2f\n\n", globalSales)

	b.WriteString("Sales by fuel type:\n")
	for _, t := range fuel.Types {
		if byType[t] > 0 {
			fmt.Fprintf(&b, "  %s: $%.2f\n", t.DisplayName(), byType[t])
		}
	}

	fmt.Fprintf(&b, "\nTransaction history: %d\n", a.history.Len())
	return b.String()
}
