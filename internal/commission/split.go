// Package commission computes the platform/seller split for a line total.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// Split divides a line total between the platform and the seller. The fee is
// the rounded product of total and rate; earnings are derived by subtraction
// so the two legs always sum back to the line total.
func Split(lineTotal money.Amount, rate decimal.Decimal) (platformFee, sellerEarnings money.Amount) {
	if rate.IsZero() || rate.IsNegative() {
		return money.Zero(), lineTotal
	}
	platformFee = lineTotal.MulRate(rate)
	sellerEarnings = lineTotal.Sub(platformFee)
	return platformFee, sellerEarnings
}
