package service

import (
	"context"
	"reflect"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/models"
)

func TestCreateGroup(t *testing.T) {
	env := setupTestServer(t)
	alice, token := env.register(t, "alice@example.com", "Alice")

	resp := env.mustCall(t, CreateGroupProcedure, token, map[string]any{
		"name":       "Roommates",
		"member_ids": []any{"bob", "carol"},
	})
	group := resp.GetFields()["group"].GetStructValue().GetFields()

	if group["id"].GetStringValue() == "" {
		t.Error("expected non-empty group ID")
	}
	if got := group["name"].GetStringValue(); got != "Roommates" {
		t.Errorf("name: expected 'Roommates', got '%s'", got)
	}
	if got, want := stringsOf(group["member_ids"]), []string{alice, "bob", "carol"}; !reflect.DeepEqual(got, want) {
		t.Errorf("members = %v, want %v", got, want)
	}
	if group["created_at"].GetNumberValue() == 0 {
		t.Error("expected non-zero created_at")
	}
}

func TestCreateGroup_Errors(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.register(t, "alice@example.com", "Alice")

	_, err := env.call(t, CreateGroupProcedure, "", map[string]any{"name": "Trip"})
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.call(t, CreateGroupProcedure, token, map[string]any{"member_ids": []any{"bob"}})
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = env.call(t, CreateGroupProcedure, token, map[string]any{"name": "Trip", "member_ids": []any{"bob", 7}})
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestGetGroup(t *testing.T) {
	env := setupTestServer(t)
	_, aliceToken := env.register(t, "alice@example.com", "Alice")
	_, daveToken := env.register(t, "dave@example.com", "Dave")
	groupID := env.createGroup(t, aliceToken, "Work Lunch", "bob")

	t.Run("member", func(t *testing.T) {
		resp := env.mustCall(t, GetGroupProcedure, aliceToken, map[string]any{"group_id": groupID})
		group := resp.GetFields()["group"].GetStructValue().GetFields()
		if got := group["name"].GetStringValue(); got != "Work Lunch" {
			t.Errorf("name: expected 'Work Lunch', got '%s'", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := env.call(t, GetGroupProcedure, aliceToken, map[string]any{"group_id": "nonexistent-id"})
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := env.call(t, GetGroupProcedure, aliceToken, map[string]any{})
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("non-member", func(t *testing.T) {
		_, err := env.call(t, GetGroupProcedure, daveToken, map[string]any{"group_id": groupID})
		assertCode(t, err, connect.CodePermissionDenied)
	})
}

func TestAddMembers(t *testing.T) {
	env := setupTestServer(t)
	alice, token := env.register(t, "alice@example.com", "Alice")
	groupID := env.createGroup(t, token, "Trip", "bob")

	resp := env.mustCall(t, AddMembersProcedure, token, map[string]any{
		"group_id":   groupID,
		"member_ids": []any{"carol", "bob"},
	})
	group := resp.GetFields()["group"].GetStructValue().GetFields()
	if got, want := stringsOf(group["member_ids"]), []string{alice, "bob", "carol"}; !reflect.DeepEqual(got, want) {
		t.Errorf("members = %v, want %v", got, want)
	}

	_, err := env.call(t, AddMembersProcedure, token, map[string]any{"group_id": groupID})
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestAddExpense_Validation(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.register(t, "alice@example.com", "Alice")
	groupID := env.createGroup(t, token, "Flat", "bob")

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing amount", body: map[string]any{"split_among": []any{"bob"}}},
		{name: "fractional cents", body: map[string]any{"amount_cents": 10.5, "split_among": []any{"bob"}}},
		{name: "negative amount", body: map[string]any{"amount_cents": -100, "split_among": []any{"bob"}}},
		{name: "amount as string", body: map[string]any{"amount_cents": "100", "split_among": []any{"bob"}}},
		{name: "empty split", body: map[string]any{"amount_cents": 100}},
		{name: "outsider in split", body: map[string]any{"amount_cents": 100, "split_among": []any{"bob", "mallory"}}},
		{name: "outsider pays", body: map[string]any{"amount_cents": 100, "paid_by": "mallory", "split_among": []any{"bob"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.body["group_id"] = groupID
			_, err := env.call(t, AddExpenseProcedure, token, tt.body)
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	expenses, err := env.store.ListExpensesByGroup(context.Background(), groupID)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("expected no expenses to be stored, got %d", len(expenses))
	}
}

func TestGetGroupBalances(t *testing.T) {
	env := setupTestServer(t)
	alice, token := env.register(t, "alice@example.com", "Alice")
	groupID := env.createGroup(t, token, "Flat", "bob", "carol")

	resp := env.mustCall(t, AddExpenseProcedure, token, map[string]any{
		"group_id":     groupID,
		"description":  "Groceries",
		"amount_cents": 300,
		"split_among":  []any{alice, "bob", "carol"},
	})
	expense := resp.GetFields()["expense"].GetStructValue().GetFields()
	if got := expense["paid_by"].GetStringValue(); got != alice {
		t.Errorf("paid_by defaults to caller: got %q, want %q", got, alice)
	}

	// Exactly at the threshold nobody is a debtor yet.
	balances := env.mustCall(t, GetGroupBalancesProcedure, token, map[string]any{"group_id": groupID}).GetFields()
	got := map[string]float64{}
	for id, v := range balances["balances"].GetStructValue().GetFields() {
		got[id] = v.GetNumberValue()
	}
	want := map[string]float64{alice: 200, "bob": -100, "carol": -100}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("balances = %v, want %v", got, want)
	}
	if n := len(balances["debtors"].GetListValue().GetValues()); n != 0 {
		t.Errorf("debtors = %d, want 0", n)
	}
	if debts := balances["simplified_debts"].GetListValue().GetValues(); len(debts) != 2 {
		t.Errorf("simplified_debts = %d, want 2", len(debts))
	}
	if total := balances["total_cents"].GetNumberValue(); total != 0 {
		t.Errorf("total_cents = %v, want 0", total)
	}

	// A 1.00 expense leaves a one-cent remainder with the payer.
	env.mustCall(t, AddExpenseProcedure, token, map[string]any{
		"group_id":     groupID,
		"amount_cents": 100,
		"split_among":  []any{alice, "bob", "carol"},
	})
	balances = env.mustCall(t, GetGroupBalancesProcedure, token, map[string]any{"group_id": groupID}).GetFields()
	if total := balances["total_cents"].GetNumberValue(); total != 1 {
		t.Errorf("total_cents = %v, want 1", total)
	}
	debtors := balances["debtors"].GetListValue().GetValues()
	if len(debtors) != 2 {
		t.Fatalf("debtors = %d, want 2", len(debtors))
	}
	first := debtors[0].GetStructValue().GetFields()
	if first["user_id"].GetStringValue() != "bob" || first["balance_cents"].GetNumberValue() != -133 {
		t.Errorf("first debtor = %v", first)
	}
}

func TestRecordSettlement(t *testing.T) {
	env := setupTestServer(t)
	alice, token := env.register(t, "alice@example.com", "Alice")
	groupID := env.createGroup(t, token, "Flat", "bob")

	env.mustCall(t, AddExpenseProcedure, token, map[string]any{
		"group_id":     groupID,
		"amount_cents": 5000,
		"split_among":  []any{alice, "bob"},
	})

	t.Run("validation", func(t *testing.T) {
		for _, body := range []map[string]any{
			{"from_user_id": "bob", "to_user_id": alice, "amount_cents": 0},
			{"from_user_id": "bob", "to_user_id": "bob", "amount_cents": 100},
			{"from_user_id": "mallory", "to_user_id": alice, "amount_cents": 100},
			{"to_user_id": alice, "amount_cents": 100},
		} {
			body["group_id"] = groupID
			_, err := env.call(t, RecordSettlementProcedure, token, body)
			assertCode(t, err, connect.CodeInvalidArgument)
		}
	})

	t.Run("settles the balance", func(t *testing.T) {
		resp := env.mustCall(t, RecordSettlementProcedure, token, map[string]any{
			"group_id":     groupID,
			"from_user_id": "bob",
			"to_user_id":   alice,
			"amount_cents": 2500,
			"note":         "venmo",
		})
		if got := resp.GetFields()["settlement"].GetStructValue().GetFields()["note"].GetStringValue(); got != "venmo" {
			t.Errorf("note = %q, want venmo", got)
		}

		balances := env.mustCall(t, GetGroupBalancesProcedure, token, map[string]any{"group_id": groupID}).GetFields()
		for id, v := range balances["balances"].GetStructValue().GetFields() {
			if v.GetNumberValue() != 0 {
				t.Errorf("balance[%s] = %v, want 0", id, v.GetNumberValue())
			}
		}
		if debts := balances["simplified_debts"].GetListValue().GetValues(); len(debts) != 0 {
			t.Errorf("simplified_debts = %v, want none", debts)
		}
	})
}

func TestGetGroupBalances_InvalidLedger(t *testing.T) {
	env := setupTestServer(t)
	alice, token := env.register(t, "alice@example.com", "Alice")
	groupID := env.createGroup(t, token, "Flat", "bob")

	// Written directly to the store: the RPC layer would reject it.
	if err := env.store.CreateExpense(context.Background(), &models.Expense{
		GroupID: groupID, PaidByUserID: alice, AmountCents: 500,
	}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	_, err := env.call(t, GetGroupBalancesProcedure, token, map[string]any{"group_id": groupID})
	assertCode(t, err, connect.CodeFailedPrecondition)
}
