package billing

import (
	"fmt"
	"math"

	"github.com/m3rciful/paybot/core/config"
)

// Quote is the fee breakdown for one purchase.
type Quote struct {
	Amount float64
	Fee    float64
	Total  float64
}

// QuoteFor applies a product's fee rate to the base amount and rounds per
// the configured convention.
func QuoteFor(amount float64, fc config.FeeConfig) Quote {
	fee := amount * fc.RatePercent / 100
	switch fc.Rounding {
	case "nearest":
		fee = math.Round(fee)
	default: // 2dp
		fee = math.Round(fee*100) / 100
	}
	total := math.Round((amount+fee)*100) / 100
	return Quote{Amount: amount, Fee: fee, Total: total}
}

// Money renders a dollar amount the way receipts show it: two decimals,
// except whole dollars which drop the cents.
func Money(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("$%.0f", v)
	}
	return fmt.Sprintf("$%.2f", v)
}
