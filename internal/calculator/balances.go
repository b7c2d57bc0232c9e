package calculator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExpense is returned when an expense cannot be applied to a ledger,
	// e.g. it has no participants to split among.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrUnknownMember is returned in strict mode when an expense references
	// someone outside the group roster. It wraps ErrInvalidExpense.
	ErrUnknownMember = fmt.Errorf("%w: participant is not a group member", ErrInvalidExpense)
)

// Expense represents an expense with the minimal information needed for balance calculations.
type Expense struct {
	PaidBy      string
	AmountCents int64
	SplitAmong  []string
}

// Balances maps a member ID to their net position in cents.
// Positive = owed money, Negative = owes money.
type Balances map[string]int64

// Option configures ComputeBalances.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrictMembership rejects expenses whose payer or participants are not in
// the roster. Without it, unknown IDs simply get their own balance entry.
func WithStrictMembership() Option {
	return func(o *options) { o.strict = true }
}

// ComputeBalances derives each member's net balance from a group's expense history.
//
// Algorithm:
// - Every roster member starts at 0
// - For each expense: share = floor(amount / len(split))
// - Payer is credited the full amount, each participant is debited one share
//
// The floor-division remainder is not redistributed, so the balances of an
// unevenly divided expense sum to the remainder rather than to zero.
// On error no balances are returned.
func ComputeBalances(expenses []Expense, memberIDs []string, opts ...Option) (Balances, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	balances := make(Balances, len(memberIDs))
	for _, id := range memberIDs {
		balances[id] = 0
	}

	for i, expense := range expenses {
		split := uniqueIDs(expense.SplitAmong)
		if len(split) == 0 {
			return nil, fmt.Errorf("%w: expense %d has no participants", ErrInvalidExpense, i)
		}
		if expense.AmountCents < 0 {
			return nil, fmt.Errorf("%w: expense %d has negative amount %d", ErrInvalidExpense, i, expense.AmountCents)
		}
		if o.strict {
			if err := checkMembers(expense.PaidBy, split, memberIDs); err != nil {
				return nil, fmt.Errorf("expense %d: %w", i, err)
			}
		}

		share := expense.AmountCents / int64(len(split))

		balances[expense.PaidBy] += expense.AmountCents
		for _, userID := range split {
			balances[userID] -= share
		}
	}

	return balances, nil
}

// Total returns the sum of all balances. For a ledger of evenly divisible
// expenses it is 0; otherwise it is the accumulated floor-division remainder.
func Total(b Balances) int64 {
	var sum int64
	for _, v := range b {
		sum += v
	}
	return sum
}

// uniqueIDs drops repeated IDs, keeping first-occurrence order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func checkMembers(payer string, split, memberIDs []string) error {
	roster := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		roster[id] = true
	}
	if !roster[payer] {
		return fmt.Errorf("%w: payer %q", ErrUnknownMember, payer)
	}
	for _, id := range split {
		if !roster[id] {
			return fmt.Errorf("%w: %q", ErrUnknownMember, id)
		}
	}
	return nil
}
