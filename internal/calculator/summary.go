package calculator

import (
	"fmt"
	"strings"

	"github.com/mmynk/equisplit/internal/models"
)

// SettlementSummary renders settlements as plain sentences for narration,
// e.g. "Jordan owes Alex $10.00. Casey owes Alex $10.00."
// IDs without a matching user are printed as-is.
func SettlementSummary(users []models.User, settlements []models.Settlement) string {
	names := models.UserNames(users)
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	sentences := make([]string, len(settlements))
	for i, s := range settlements {
		sentences[i] = fmt.Sprintf("%s owes %s $%.2f.", name(s.From), name(s.To), s.Amount)
	}
	return strings.Join(sentences, " ")
}
