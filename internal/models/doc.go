// Package models defines the core domain models for settleup.
//
// # Models
//
//   - Group: a fixed roster of members who share expenses
//   - Expense: one payment by a member, split evenly among a set of members
//   - Settlement: a payment between two members that pays down a debt
//   - User: a registered account; its ID is the member identifier used in groups
//   - DeviceToken: a push delivery token registered by a user's device
//
// # Design Principles
//
// 1. **Integer money**: all amounts are cents (int64), never floats
// 2. **Avoid circular references**: use ID strings instead of pointers for relationships
// 3. **Ordered rosters**: group members keep the order they were added in
package models
