package earnings

import (
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
)

var oneHundred = decimal.NewFromInt(100)

// Compute converts a payout base into the amount earned under the rule.
// Percentage rules take payout_amount percent of the base; flat rules pay
// payout_amount regardless of the base and are deliberately not clamped to it.
// Intermediate results keep full precision; rounding happens only when an
// amount is persisted into a batch item (RoundForSettlement).
func Compute(base decimal.Decimal, rule models.PayoutRule) decimal.Decimal {
	if rule.IsPercentage {
		return base.Mul(rule.PayoutAmount).Div(oneHundred)
	}
	return rule.PayoutAmount
}

// ComputeForItem applies the rule to the item's refund-adjusted base.
func ComputeForItem(item models.LineItem, rule models.PayoutRule) decimal.Decimal {
	return Compute(item.PayoutBase(), rule)
}

// RoundForSettlement rounds an amount to the settlement currency's minor unit.
// Only persistence paths call this; aggregation stays unrounded.
func RoundForSettlement(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
