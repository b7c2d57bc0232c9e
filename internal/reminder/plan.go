package reminder

import (
	"context"
	"fmt"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// Plan is the pure outcome of evaluating one group: its balances and who owes
// more than the threshold.
type Plan struct {
	Group    *models.Group
	Balances calculator.Balances
	Debtors  []calculator.Debtor
}

// NeedsReminder reports whether anyone in the group is below the threshold.
func (p Plan) NeedsReminder() bool {
	return len(p.Debtors) > 0
}

// Ledger converts stored records into calculator input, expenses first.
// A settlement is a payment from one member to another, which is exactly an
// expense paid by the sender and split with the receiver alone.
func Ledger(expenses []*models.Expense, settlements []*models.Settlement) []calculator.Expense {
	ledger := make([]calculator.Expense, 0, len(expenses)+len(settlements))
	for _, e := range expenses {
		ledger = append(ledger, calculator.Expense{
			PaidBy:      e.PaidByUserID,
			AmountCents: e.AmountCents,
			SplitAmong:  e.SplitUserIDs,
		})
	}
	for _, s := range settlements {
		ledger = append(ledger, calculator.Expense{
			PaidBy:      s.FromUserID,
			AmountCents: s.AmountCents,
			SplitAmong:  []string{s.ToUserID},
		})
	}
	return ledger
}

// BuildPlan evaluates a group's ledger. It performs no I/O.
func BuildPlan(group *models.Group, ledger []calculator.Expense, threshold int64, opts ...calculator.Option) (Plan, error) {
	balances, err := calculator.ComputeBalances(ledger, group.MemberUserIDs, opts...)
	if err != nil {
		return Plan{}, fmt.Errorf("group %s: %w", group.ID, err)
	}
	return Plan{
		Group:    group,
		Balances: balances,
		Debtors:  calculator.SelectDebtors(balances, threshold),
	}, nil
}

// LoadPlan reads a group's ledger from store and evaluates it.
func LoadPlan(ctx context.Context, store storage.GroupStore, group *models.Group, threshold int64, opts ...calculator.Option) (Plan, error) {
	expenses, err := store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		return Plan{}, fmt.Errorf("list expenses: %w", err)
	}
	settlements, err := store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return Plan{}, fmt.Errorf("list settlements: %w", err)
	}
	return BuildPlan(group, Ledger(expenses, settlements), threshold, opts...)
}
