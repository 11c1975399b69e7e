package models

import (
	"errors"
	"testing"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in      string
		want    Tag
		wantErr bool
	}{
		{"food", TagFood, false},
		{"Travel", TagTravel, false},
		{"  HOUSING ", TagHousing, false},
		{"entertainment", TagEntertainment, false},
		{"groceries", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTag(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTag) {
					t.Errorf("ParseTag(%q) error = %v, want ErrInvalidTag", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTag(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTag(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpenseSplitTotal(t *testing.T) {
	e := Expense{Amount: 30, Splits: []Split{{UserID: "a", Amount: 10}, {UserID: "b", Amount: 20}}}
	if got := e.SplitTotal(); got != 30 {
		t.Errorf("SplitTotal() = %v, want 30", got)
	}
}

func TestDefaultUsers(t *testing.T) {
	users := DefaultUsers()
	if len(users) != 3 {
		t.Fatalf("expected 3 default users, got %d", len(users))
	}
	names := UserNames(users)
	if names["1"] != "Alex" || names["2"] != "Jordan" || names["3"] != "Casey" {
		t.Errorf("unexpected default users: %v", names)
	}
	if users[0].Avatar == "" {
		t.Error("expected avatar URL to be set")
	}
}
