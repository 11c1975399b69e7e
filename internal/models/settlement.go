package models

// Settlement is a payment instruction from a debtor to a creditor.
// Settlements are computed from the ledger on demand and are never stored.
type Settlement struct {
	// From is the member who pays (debtor).
	From string `json:"from"`

	// To is the member who receives the payment (creditor).
	To string `json:"to"`

	// Amount is the payment amount, rounded to cents.
	Amount float64 `json:"amount"`
}

// FairnessStats summarises how much a member paid against how much they consumed.
type FairnessStats struct {
	UserID string `json:"userId"`

	// Contribution is the sum of all expenses the member paid for.
	Contribution float64 `json:"contribution"`

	// Consumption is the sum of all splits assigned to the member.
	Consumption float64 `json:"consumption"`

	// FairnessScore is a 0-100 score; 50 means paying exactly what was consumed.
	FairnessScore float64 `json:"fairnessScore"`
}

// TagTotal is the amount spent under one tag.
type TagTotal struct {
	Tag   Tag     `json:"tag"`
	Total float64 `json:"total"`
}
