// Package events publishes ledger change notifications for downstream
// consumers such as the settlement narration service.
package events

import (
	"encoding/json"
	"time"

	"github.com/mmynk/equisplit/internal/models"
)

// Change kinds
const (
	KindExpenseAdded   = "expense_added"
	KindExpenseDeleted = "expense_deleted"
	KindLedgerReset    = "ledger_reset"
)

// LedgerChanged is published after every ledger mutation. It carries the
// recomputed settlements so consumers never read the ledger themselves.
type LedgerChanged struct {
	Kind         string              `json:"kind"`
	ExpenseID    string              `json:"expenseId,omitempty"`
	Version      int64               `json:"version"`
	ExpenseCount int                 `json:"expenseCount"`
	Settlements  []models.Settlement `json:"settlements"`
	Summary      string              `json:"summary"`
	Timestamp    time.Time           `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedFromJSON decodes a message produced by ToJSON.
func LedgerChangedFromJSON(data []byte) (*LedgerChanged, error) {
	var msg LedgerChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
