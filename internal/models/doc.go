// Package models defines the core domain models for settleup.
//
// # Records
//
//   - Expense: money one member advanced on behalf of the group, with the
//     already-resolved Splits describing who owes what.
//   - Split: one member's share of an expense, optionally marked settled.
//   - Group: a named set of member IDs that scopes every balance computation.
//   - Settlement: a recorded transfer between two members.
//
// # Design Principles
//
// 1. **Minor units**: every monetary field is a money.Amount (integer cents).
// 2. **IDs, not pointers**: records reference each other by ID strings.
// 3. **Splits are truth**: SplitPolicy is kept for display; balance math only
//    ever reads Splits.
package models
