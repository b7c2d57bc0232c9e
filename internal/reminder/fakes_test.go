package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/notify"
	"github.com/mmynk/settleup/internal/storage"
)

type memStore struct {
	groups      []*models.Group
	expenses    map[string][]*models.Expense
	settlements map[string][]*models.Settlement

	listErr    error
	expenseErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		expenses:    make(map[string][]*models.Expense),
		settlements: make(map[string][]*models.Settlement),
		expenseErr:  make(map[string]error),
	}
}

func (m *memStore) addGroup(id, name string, members ...string) *models.Group {
	g := &models.Group{ID: id, Name: name, MemberUserIDs: members}
	m.groups = append(m.groups, g)
	return g
}

func (m *memStore) addExpense(groupID, paidBy string, cents int64, split ...string) {
	m.expenses[groupID] = append(m.expenses[groupID], &models.Expense{
		GroupID: groupID, PaidByUserID: paidBy, AmountCents: cents, SplitUserIDs: split,
	})
}

func (m *memStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.groups, nil
}

func (m *memStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	for _, g := range m.groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
}

func (m *memStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	if err := m.expenseErr[groupID]; err != nil {
		return nil, err
	}
	return m.expenses[groupID], nil
}

func (m *memStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return m.settlements[groupID], nil
}

type mapResolver map[string][]string

func (r mapResolver) ResolveTokens(ctx context.Context, memberIDs []string) ([]string, error) {
	var tokens []string
	for _, id := range memberIDs {
		tokens = append(tokens, r[id]...)
	}
	return tokens, nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
	// failFor makes Send fail for messages about these groups.
	failFor map[string]bool
}

func (d *recordingDispatcher) Send(ctx context.Context, msg notify.Message) (notify.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[msg.Data["groupId"]] {
		return notify.Result{Failed: len(msg.Tokens)}, errors.New("push service unavailable")
	}
	d.messages = append(d.messages, msg)
	return notify.Result{Sent: len(msg.Tokens)}, nil
}

func (d *recordingDispatcher) byGroup() map[string]notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]notify.Message, len(d.messages))
	for _, m := range d.messages {
		out[m.Data["groupId"]] = m
	}
	return out
}
