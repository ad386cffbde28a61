package domain

import "github.com/shopspring/decimal"

// AssetCostBasis is the derived acquisition cost aggregate for one asset.
// Only assets with positive net quantity are represented; a zero net quantity
// makes the average undefined, not zero.
type AssetCostBasis struct {
	Currency string
	// TotalQuantity is the net acquired quantity after base-asset fees.
	TotalQuantity decimal.Decimal
	// TotalCost is the net spent amount after quote-asset fees.
	TotalCost decimal.Decimal
	// AvgPrice is TotalCost / TotalQuantity.
	AvgPrice decimal.Decimal
}
