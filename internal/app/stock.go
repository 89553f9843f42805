package app

import (
	"fmt"

	"ancile/internal/domain"
)

// LowStockThreshold is the count at or below which a room shows as scarce.
const LowStockThreshold = 2

// LabelStock maps a remaining-unit count to a badge. An unknown count renders
// neutrally instead of as scarce.
func LabelStock(remaining *int) domain.StockLabel {
	if remaining == nil {
		return domain.StockLabel{Text: "Availability Unknown", Tier: domain.TierUnknown}
	}
	n := *remaining
	if n <= LowStockThreshold {
		return domain.StockLabel{Text: fmt.Sprintf("Only %d Left", n), Tier: domain.TierLow}
	}
	return domain.StockLabel{Text: fmt.Sprintf("Available (%d)", n), Tier: domain.TierNormal}
}
