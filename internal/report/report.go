// Package report renders the cost-basis summary for the console.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/basis/internal/domain"
)

// Render returns the daily summary as a printable table with a totals line.
func Render(day time.Time, stats []domain.AssetCostBasis) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CURRENCY", "QUANTITY", "COST (USDT)", "AVG PRICE")

	totalCost := decimal.Zero
	for _, st := range stats {
		t.Row(
			st.Currency,
			st.TotalQuantity.StringFixed(5),
			st.TotalCost.StringFixed(2),
			st.AvgPrice.StringFixed(6),
		)
		totalCost = totalCost.Add(st.TotalCost)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "cost basis for %s\n", day.Format("2006-01-02"))
	b.WriteString(t.Render())
	fmt.Fprintf(&b, "\n%d assets, total cost %s USDT\n", len(stats), totalCost.StringFixed(2))

	return b.String()
}
