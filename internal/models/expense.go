package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTag is returned when a tag is not one of the known categories.
var ErrInvalidTag = errors.New("invalid tag")

// Tag categorises an expense.
type Tag string

const (
	TagFood          Tag = "food"
	TagTravel        Tag = "travel"
	TagShared        Tag = "shared"
	TagPersonal      Tag = "personal"
	TagHousing       Tag = "housing"
	TagEntertainment Tag = "entertainment"
)

// Tags lists every valid tag.
var Tags = []Tag{TagFood, TagTravel, TagShared, TagPersonal, TagHousing, TagEntertainment}

// ParseTag converts a category name to a Tag, ignoring case and surrounding
// whitespace. Receipt scanners return categories in arbitrary case.
func ParseTag(s string) (Tag, error) {
	tag := Tag(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range Tags {
		if t == tag {
			return tag, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTag, s)
}

// Split is one member's share of an expense.
type Split struct {
	// UserID is the member consuming this share.
	UserID string `json:"userId"`

	// Weight is the proportional input that produced Amount.
	Weight float64 `json:"weight"`

	// Amount is the precomputed monetary share.
	Amount float64 `json:"amount"`
}

// Expense represents a single payment made by one member for the group.
// The amounts of all splits add up to Amount within one cent.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// Description is a short human-readable label (e.g., "Groceries").
	Description string `json:"description"`

	// Amount is the total paid.
	Amount float64 `json:"amount"`

	// PaidBy is the ID of the member who paid.
	PaidBy string `json:"paidBy"`

	// Tag is the expense category.
	Tag Tag `json:"tag"`

	// Date is the RFC 3339 timestamp of the expense.
	Date string `json:"date"`

	// Splits are the per-member shares of Amount.
	Splits []Split `json:"splits"`

	// ReceiptURL optionally points at a scanned receipt.
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

// SplitTotal returns the sum of all split amounts.
func (e *Expense) SplitTotal() float64 {
	var total float64
	for _, s := range e.Splits {
		total += s.Amount
	}
	return total
}
