package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/mmynk/equisplit/internal/models"
)

var (
	alice   = models.NewUser("a", "Alice")
	bob     = models.NewUser("b", "Bob")
	charlie = models.NewUser("c", "Charlie")
	trio    = []models.User{alice, bob, charlie}
)

func expense(id, payer string, amount float64, splits ...models.Split) models.Expense {
	return models.Expense{
		ID:          id,
		Description: id,
		Amount:      amount,
		PaidBy:      payer,
		Tag:         models.TagShared,
		Splits:      splits,
	}
}

func share(userID string, amount float64) models.Split {
	return models.Split{UserID: userID, Weight: 1, Amount: amount}
}

func TestCalculateBalances(t *testing.T) {
	tests := []struct {
		name     string
		users    []models.User
		expenses []models.Expense
		want     map[string]float64
		wantErr  error
	}{
		{
			name:  "no expenses leaves everyone at zero",
			users: trio,
			want:  map[string]float64{"a": 0, "b": 0, "c": 0},
		},
		{
			name:  "one payer split three ways",
			users: trio,
			expenses: []models.Expense{
				expense("dinner", "a", 30, share("a", 10), share("b", 10), share("c", 10)),
			},
			want: map[string]float64{"a": 20, "b": -10, "c": -10},
		},
		{
			name:  "mutual expenses cancel out",
			users: trio,
			expenses: []models.Expense{
				expense("e1", "a", 100, share("a", 50), share("b", 50)),
				expense("e2", "b", 100, share("a", 50), share("b", 50)),
			},
			want: map[string]float64{"a": 0, "b": 0, "c": 0},
		},
		{
			name:  "unknown payer fails",
			users: trio,
			expenses: []models.Expense{
				expense("e1", "zed", 10, share("a", 10)),
			},
			wantErr: ErrUnknownUser,
		},
		{
			name:  "unknown split user fails",
			users: trio,
			expenses: []models.Expense{
				expense("e1", "a", 10, share("zed", 10)),
			},
			wantErr: ErrUnknownUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateBalances(tt.users, tt.expenses)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CalculateBalances() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalculateBalances() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d balances, want %d", len(got), len(tt.want))
			}
			for id, want := range tt.want {
				if math.Abs(got[id]-want) > 1e-9 {
					t.Errorf("balance[%s] = %v, want %v", id, got[id], want)
				}
			}
		})
	}
}

func TestCalculateBalances_ZeroSum(t *testing.T) {
	expenses := []models.Expense{
		{ID: "e1", PaidBy: "a", Amount: 47.31, Splits: EqualSplits(47.31, []string{"a", "b", "c"})},
		{ID: "e2", PaidBy: "b", Amount: 12.5, Splits: WeightedSplits(12.5, []UserWeight{{"a", 2}, {"c", 1}})},
		{ID: "e3", PaidBy: "c", Amount: 99.99, Splits: WeightedSplits(99.99, []UserWeight{{"a", 1}, {"b", 3}, {"c", 0.5}})},
	}

	balances, err := CalculateBalances(trio, expenses)
	if err != nil {
		t.Fatalf("CalculateBalances() unexpected error: %v", err)
	}

	var sum float64
	for _, bal := range balances {
		sum += bal
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("sum of balances = %v, want 0", sum)
	}
}

func TestCalculateBalances_OrderIndependent(t *testing.T) {
	e1 := expense("e1", "a", 30, share("a", 10), share("b", 10), share("c", 10))
	e2 := expense("e2", "c", 12, share("b", 6), share("c", 6))

	forward, err := CalculateBalances(trio, []models.Expense{e1, e2})
	if err != nil {
		t.Fatalf("CalculateBalances() unexpected error: %v", err)
	}
	backward, err := CalculateBalances(trio, []models.Expense{e2, e1})
	if err != nil {
		t.Fatalf("CalculateBalances() unexpected error: %v", err)
	}

	for id := range forward {
		if math.Abs(forward[id]-backward[id]) > 1e-9 {
			t.Errorf("balance[%s] differs by order: %v vs %v", id, forward[id], backward[id])
		}
	}
}
