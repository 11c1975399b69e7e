package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/equisplit/internal/models"
)

// SpendingByTag totals expense amounts per tag. Only tags that appear in the
// ledger are returned, in the order of models.Tags, followed by any
// unrecognised tags in first-seen order.
func SpendingByTag(expenses []models.Expense) []models.TagTotal {
	totals := make(map[models.Tag]decimal.Decimal)
	var extra []models.Tag
	known := make(map[models.Tag]bool, len(models.Tags))
	for _, tag := range models.Tags {
		known[tag] = true
	}

	for _, e := range expenses {
		if _, seen := totals[e.Tag]; !seen && !known[e.Tag] {
			extra = append(extra, e.Tag)
		}
		totals[e.Tag] = totals[e.Tag].Add(decimal.NewFromFloat(e.Amount))
	}

	result := make([]models.TagTotal, 0, len(totals))
	for _, tag := range append(append([]models.Tag{}, models.Tags...), extra...) {
		total, ok := totals[tag]
		if !ok {
			continue
		}
		result = append(result, models.TagTotal{Tag: tag, Total: total.InexactFloat64()})
	}
	return result
}
