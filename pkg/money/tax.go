package money

import "github.com/shopspring/decimal"

// Canadian sales tax rates applied per line item.
var (
	GSTRate = decimal.RequireFromString("0.05")
	PSTRate = decimal.RequireFromString("0.07")
)

// LineTax computes the GST and PST owed on a single line total, honoring the
// product's charge flags. Each tax is rounded independently so per-line
// records add up to the order totals.
func LineTax(lineTotal Amount, chargeGST, chargePST bool) (gst Amount, pst Amount) {
	gst, pst = Zero(), Zero()
	if chargeGST {
		gst = lineTotal.MulRate(GSTRate)
	}
	if chargePST {
		pst = lineTotal.MulRate(PSTRate)
	}
	return gst, pst
}
