// Package costbasis derives the per-asset volume-weighted average acquisition
// cost from buy-side ledger entries.
package costbasis

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/basis/internal/domain"
)

// AdjustForFee returns the net quantity and net cost of a buy entry after the
// fee is applied. The decision is exhaustive over the fee asset:
//   - fee in the base asset reduces the acquired quantity, cost untouched
//   - fee in the quote asset reduces the cost, quantity untouched
//   - fee in any other asset passes both through unadjusted, so such a fee
//     is not accounted anywhere and the true cost is undercounted
func AdjustForFee(e domain.LedgerEntry) (netQuantity, netCost decimal.Decimal) {
	grossCost := e.UnitPrice.Mul(e.Quantity)

	switch e.FeeAsset {
	case e.BaseAsset:
		return e.Quantity.Sub(e.FeeAmount), grossCost
	case e.QuoteAsset:
		return e.Quantity, grossCost.Sub(e.FeeAmount)
	default:
		return e.Quantity, grossCost
	}
}

// Compute aggregates buy-side entries into per-asset net quantity, net cost
// and weighted average price. Sells and deposits never enter the computation:
// deposits carry no acquisition price. Assets whose net quantity is not
// positive are excluded since their average is undefined. The result is
// sorted by net cost descending, currency ascending on ties.
func Compute(entries []domain.LedgerEntry) []domain.AssetCostBasis {
	type totals struct {
		quantity decimal.Decimal
		cost     decimal.Decimal
	}

	perAsset := make(map[string]*totals)
	for _, e := range entries {
		if e.Side != domain.SideBuy {
			continue
		}

		netQuantity, netCost := AdjustForFee(e)

		t := perAsset[e.BaseAsset]
		if t == nil {
			t = &totals{quantity: decimal.Zero, cost: decimal.Zero}
			perAsset[e.BaseAsset] = t
		}
		t.quantity = t.quantity.Add(netQuantity)
		t.cost = t.cost.Add(netCost)
	}

	out := make([]domain.AssetCostBasis, 0, len(perAsset))
	for currency, t := range perAsset {
		if !t.quantity.IsPositive() {
			continue
		}
		out = append(out, domain.AssetCostBasis{
			Currency:      currency,
			TotalQuantity: t.quantity,
			TotalCost:     t.cost,
			AvgPrice:      t.cost.Div(t.quantity),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalCost.Equal(out[j].TotalCost) {
			return out[i].TotalCost.GreaterThan(out[j].TotalCost)
		}
		return out[i].Currency < out[j].Currency
	})

	return out
}
