package calculator

import "sort"

// DefaultDebtThreshold is the balance below which a member counts as a debtor:
// owing more than one currency unit.
const DefaultDebtThreshold int64 = -100

// Debtor is a member whose balance is below the reminder threshold.
type Debtor struct {
	UserID  string
	Balance int64
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From        string // Person who owes
	To          string // Person who is owed
	AmountCents int64
}

// SelectDebtors returns every member whose balance is strictly below threshold,
// most indebted first. A balance equal to the threshold is not flagged.
func SelectDebtors(b Balances, threshold int64) []Debtor {
	var debtors []Debtor
	for userID, balance := range b {
		if balance < threshold {
			debtors = append(debtors, Debtor{UserID: userID, Balance: balance})
		}
	}
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].Balance != debtors[j].Balance {
			return debtors[i].Balance < debtors[j].Balance
		}
		return debtors[i].UserID < debtors[j].UserID
	})
	return debtors
}

// SimplifyDebts turns net balances into a short list of payments.
//
// Greedy algorithm: match the largest debt with the largest credit until one
// side runs out. Because the floor-division remainder is never debited, total
// credit can exceed total debt; that excess stays unmatched.
func SimplifyDebts(b Balances) []DebtEdge {
	type entry struct {
		id     string
		amount int64
	}

	var creditors, debtors []entry
	for id, balance := range b {
		if balance > 0 {
			creditors = append(creditors, entry{id, balance})
		} else if balance < 0 {
			debtors = append(debtors, entry{id, -balance}) // Make positive
		}
	}
	byAmount := func(s []entry) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].amount != s[j].amount {
				return s[i].amount > s[j].amount
			}
			return s[i].id < s[j].id
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]

		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := min(d.amount, c.amount)
		edges = append(edges, DebtEdge{From: d.id, To: c.id, AmountCents: amount})

		d.amount -= amount
		c.amount -= amount
		if d.amount == 0 {
			i++
		}
		if c.amount == 0 {
			j++
		}
	}

	return edges
}
