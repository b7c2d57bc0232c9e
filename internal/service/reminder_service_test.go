package service

import (
	"context"
	"reflect"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/models"
)

func TestSendGroupReminder(t *testing.T) {
	env := setupTestServer(t)
	alice, aliceToken := env.register(t, "alice@example.com", "Alice")
	bob, bobToken := env.register(t, "bob@example.com", "Bob")
	_, daveToken := env.register(t, "dave@example.com", "Dave")

	groupID := env.createGroup(t, aliceToken, "Ski Trip", bob)
	env.mustCall(t, AddExpenseProcedure, aliceToken, map[string]any{
		"group_id":     groupID,
		"amount_cents": 10000,
		"split_among":  []any{alice, bob},
	})

	t.Run("no tokens", func(t *testing.T) {
		resp := env.mustCall(t, SendGroupReminderProcedure, bobToken, map[string]any{"group_id": groupID})
		fields := resp.GetFields()
		if fields["success"].GetBoolValue() {
			t.Error("expected success=false without delivery tokens")
		}
		if got := fields["message"].GetStringValue(); got != "No delivery tokens found" {
			t.Errorf("message = %q", got)
		}
		if len(env.dispatcher.sent()) != 0 {
			t.Error("expected nothing dispatched")
		}
	})

	env.mustCall(t, RegisterDeviceTokenProcedure, aliceToken, map[string]any{"token": "alice-phone"})
	env.mustCall(t, RegisterDeviceTokenProcedure, bobToken, map[string]any{"token": "bob-phone"})

	t.Run("sends to every member", func(t *testing.T) {
		resp := env.mustCall(t, SendGroupReminderProcedure, bobToken, map[string]any{"group_id": groupID})
		fields := resp.GetFields()
		if !fields["success"].GetBoolValue() {
			t.Fatalf("expected success, got %v", fields)
		}
		if got := fields["tokens_sent"].GetNumberValue(); got != 2 {
			t.Errorf("tokens_sent = %v, want 2", got)
		}

		sent := env.dispatcher.sent()
		if len(sent) != 1 {
			t.Fatalf("dispatched %d messages, want 1", len(sent))
		}
		msg := sent[0]
		if msg.Title != "Settle up in Ski Trip" {
			t.Errorf("title = %q", msg.Title)
		}
		if !reflect.DeepEqual(msg.Tokens, []string{"alice-phone", "bob-phone"}) {
			t.Errorf("tokens = %v", msg.Tokens)
		}
		want := map[string]string{"groupId": groupID, "type": "manual_reminder", "debtors": "1"}
		if !reflect.DeepEqual(msg.Data, want) {
			t.Errorf("data = %v, want %v", msg.Data, want)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
			body  map[string]any
			want  connect.Code
		}{
			{name: "unauthenticated", body: map[string]any{"group_id": groupID}, want: connect.CodeUnauthenticated},
			{name: "missing group id", token: aliceToken, body: map[string]any{}, want: connect.CodeInvalidArgument},
			{name: "unknown group", token: aliceToken, body: map[string]any{"group_id": "nonexistent-id"}, want: connect.CodeNotFound},
			{name: "non-member", token: daveToken, body: map[string]any{"group_id": groupID}, want: connect.CodePermissionDenied},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.call(t, SendGroupReminderProcedure, tt.token, tt.body)
				assertCode(t, err, tt.want)
			})
		}
	})

	t.Run("dispatch failure", func(t *testing.T) {
		env.dispatcher.mu.Lock()
		env.dispatcher.fail = true
		env.dispatcher.mu.Unlock()
		defer func() {
			env.dispatcher.mu.Lock()
			env.dispatcher.fail = false
			env.dispatcher.mu.Unlock()
		}()

		_, err := env.call(t, SendGroupReminderProcedure, aliceToken, map[string]any{"group_id": groupID})
		assertCode(t, err, connect.CodeInternal)
	})

	t.Run("invalid ledger", func(t *testing.T) {
		if err := env.store.CreateExpense(context.Background(), &models.Expense{
			GroupID: groupID, PaidByUserID: alice, AmountCents: 500,
		}); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		_, err := env.call(t, SendGroupReminderProcedure, aliceToken, map[string]any{"group_id": groupID})
		assertCode(t, err, connect.CodeFailedPrecondition)
	})
}
