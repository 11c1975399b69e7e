package calculator

import (
	"testing"

	"github.com/mmynk/equisplit/internal/models"
)

func TestSpendingByTag(t *testing.T) {
	t.Run("empty ledger", func(t *testing.T) {
		got := SpendingByTag(nil)
		if got == nil || len(got) != 0 {
			t.Errorf("SpendingByTag(nil) = %#v, want empty slice", got)
		}
	})

	t.Run("groups by tag in canonical order", func(t *testing.T) {
		expenses := []models.Expense{
			{Amount: 40, Tag: models.TagHousing},
			{Amount: 0.1, Tag: models.TagFood},
			{Amount: 0.2, Tag: models.TagFood},
			{Amount: 15, Tag: models.TagTravel},
		}
		got := SpendingByTag(expenses)
		want := []models.TagTotal{
			{Tag: models.TagFood, Total: 0.3},
			{Tag: models.TagTravel, Total: 15},
			{Tag: models.TagHousing, Total: 40},
		}
		if len(got) != len(want) {
			t.Fatalf("SpendingByTag() = %+v, want %+v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("SpendingByTag()[%d] = %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("unknown tags come last", func(t *testing.T) {
		got := SpendingByTag([]models.Expense{
			{Amount: 5, Tag: "gifts"},
			{Amount: 1, Tag: models.TagShared},
		})
		if len(got) != 2 || got[0].Tag != models.TagShared || got[1].Tag != "gifts" {
			t.Errorf("SpendingByTag() = %+v", got)
		}
	})
}
