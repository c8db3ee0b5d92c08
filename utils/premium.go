package utils

import (
	"github.com/shopspring/decimal"

	"insureflow/models"
)

// SumPremiums adds up the coverage premiums and returns the total as a
// two-decimal string. Unparseable premiums count as zero. An empty list
// sums to "0.00".
func SumPremiums(coverages []models.Coverage) string {
	total := decimal.Zero
	for _, c := range coverages {
		d, err := decimal.NewFromString(c.Premium)
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total.StringFixed(2)
}

// RecalcPremium enforces the derived-premium invariant: after any coverage
// mutation project.premium is overwritten with the sum of the coverage
// premiums, regardless of what was entered manually.
func RecalcPremium(r *models.InsuranceRecord) {
	r.Project.Premium = SumPremiums(r.Project.Coverages)
}
