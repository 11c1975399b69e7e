// Package models defines the core domain models for EquiSplit.
//
// # Ledger
//
// The ledger is the ordered list of expenses for a group:
//   - User: a group member with a display name and avatar
//   - Expense: one payment made by a member on behalf of the group
//   - Split: one member's monetary share of a single expense
//
// # Derived views
//
// The following models are never persisted. They are recomputed from a
// ledger snapshot every time they are requested:
//   - Settlement: a directed payment that clears part of the group's debt
//   - FairnessStats: a member's contribution-to-consumption summary
//
// # Design Principles
//
// 1. **Derive, don't store**: balances and settlements are projections of the ledger
// 2. **Immutable expenses**: expenses are created and deleted, never edited in place
// 3. **Avoid circular references**: Use ID strings instead of pointers for relationships
package models
