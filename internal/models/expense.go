package models

// Expense represents one shared payment in a group.
// The amount is divided evenly among SplitUserIDs; the payer may or may not be one of them.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is a short label (e.g., "Groceries").
	Description string

	// PaidByUserID is the user who paid the full amount.
	PaidByUserID string

	// AmountCents is the total paid, in cents. Never negative.
	AmountCents int64

	// SplitUserIDs are the users who share the cost.
	SplitUserIDs []string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this expense.
	CreatedBy string
}
