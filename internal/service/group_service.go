package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/reminder"
	"github.com/mmynk/settleup/internal/storage"
)

// Planner evaluates a group's ledger.
type Planner interface {
	Plan(ctx context.Context, group *models.Group) (reminder.Plan, error)
}

// GroupService implements the GroupService RPC interface.
type GroupService struct {
	store   storage.Store
	planner Planner
	logger  *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, planner Planner, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, planner: planner, logger: logger}
}

// CreateGroup creates a new group. The caller is always on the roster.
func (s *GroupService) CreateGroup(ctx context.Context, req *request) (*response, error) {
	userID := middleware.GetUserID(ctx)
	name := getString(req.Msg, "name")
	memberIDs, err := getStrings(req.Msg, "member_ids")
	if err != nil {
		return nil, rpcError(err)
	}
	s.logger.Info("CreateGroup request received", "user_id", userID, "name", name, "members_count", len(memberIDs))

	if userID == "" {
		return nil, rpcError(reminder.ErrUnauthenticated)
	}
	if name == "" {
		return nil, rpcError(invalidArgument("name is required"))
	}
	if !slices.Contains(memberIDs, userID) {
		memberIDs = append([]string{userID}, memberIDs...)
	}

	group := &models.Group{Name: name, MemberUserIDs: memberIDs}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, rpcError(err)
	}

	s.logger.Info("Group created", "group_id", group.ID)
	return reply(map[string]any{"group": groupFields(group)})
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *request) (*response, error) {
	group, err := s.memberGroup(ctx, getString(req.Msg, "group_id"))
	if err != nil {
		return nil, err
	}
	return reply(map[string]any{"group": groupFields(group)})
}

// AddMembers appends users to a group the caller belongs to.
func (s *GroupService) AddMembers(ctx context.Context, req *request) (*response, error) {
	group, err := s.memberGroup(ctx, getString(req.Msg, "group_id"))
	if err != nil {
		return nil, err
	}
	userIDs, err := getStrings(req.Msg, "member_ids")
	if err != nil {
		return nil, rpcError(err)
	}
	if len(userIDs) == 0 {
		return nil, rpcError(invalidArgument("member_ids is required"))
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, userIDs); err != nil {
		s.logger.Error("AddMembers failed", "group_id", group.ID, "error", err)
		return nil, rpcError(err)
	}

	updated, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, rpcError(err)
	}
	s.logger.Info("Members added", "group_id", group.ID, "members_count", len(updated.MemberUserIDs))
	return reply(map[string]any{"group": groupFields(updated)})
}

// AddExpense records an expense. Payer and participants must be members.
func (s *GroupService) AddExpense(ctx context.Context, req *request) (*response, error) {
	group, err := s.memberGroup(ctx, getString(req.Msg, "group_id"))
	if err != nil {
		return nil, err
	}
	userID := middleware.GetUserID(ctx)

	amount, err := getCents(req.Msg, "amount_cents")
	if err != nil {
		return nil, rpcError(err)
	}
	splitAmong, err := getStrings(req.Msg, "split_among")
	if err != nil {
		return nil, rpcError(err)
	}
	paidBy := getString(req.Msg, "paid_by")
	if paidBy == "" {
		paidBy = userID
	}

	// Reject at write time anything that would later poison the ledger.
	entry := calculator.Expense{PaidBy: paidBy, AmountCents: amount, SplitAmong: splitAmong}
	if _, err := calculator.ComputeBalances([]calculator.Expense{entry}, group.MemberUserIDs, calculator.WithStrictMembership()); err != nil {
		return nil, rpcError(invalidArgument("%v", err))
	}

	expense := &models.Expense{
		GroupID:      group.ID,
		Description:  getString(req.Msg, "description"),
		PaidByUserID: paidBy,
		AmountCents:  amount,
		SplitUserIDs: splitAmong,
		CreatedAt:    time.Now().Unix(),
		CreatedBy:    userID,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		s.logger.Error("AddExpense failed", "group_id", group.ID, "error", err)
		return nil, rpcError(err)
	}

	s.logger.Info("Expense added", "group_id", group.ID, "expense_id", expense.ID, "amount_cents", amount)
	return reply(map[string]any{
		"expense": map[string]any{
			"id":           expense.ID,
			"group_id":     expense.GroupID,
			"description":  expense.Description,
			"paid_by":      expense.PaidByUserID,
			"amount_cents": expense.AmountCents,
			"split_among":  anyList(expense.SplitUserIDs),
			"created_at":   expense.CreatedAt,
		},
	})
}

// RecordSettlement records a payment from one member to another.
func (s *GroupService) RecordSettlement(ctx context.Context, req *request) (*response, error) {
	group, err := s.memberGroup(ctx, getString(req.Msg, "group_id"))
	if err != nil {
		return nil, err
	}

	amount, err := getCents(req.Msg, "amount_cents")
	if err != nil {
		return nil, rpcError(err)
	}
	from := getString(req.Msg, "from_user_id")
	to := getString(req.Msg, "to_user_id")
	switch {
	case amount == 0:
		return nil, rpcError(invalidArgument("amount_cents must be positive"))
	case from == "" || to == "":
		return nil, rpcError(invalidArgument("from_user_id and to_user_id are required"))
	case from == to:
		return nil, rpcError(invalidArgument("cannot settle with yourself"))
	case !group.HasMember(from) || !group.HasMember(to):
		return nil, rpcError(invalidArgument("both parties must be group members"))
	}

	settlement := &models.Settlement{
		GroupID:     group.ID,
		FromUserID:  from,
		ToUserID:    to,
		AmountCents: amount,
		CreatedAt:   time.Now().Unix(),
		CreatedBy:   middleware.GetUserID(ctx),
		Note:        getString(req.Msg, "note"),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		s.logger.Error("RecordSettlement failed", "group_id", group.ID, "error", err)
		return nil, rpcError(err)
	}

	s.logger.Info("Settlement recorded", "group_id", group.ID, "settlement_id", settlement.ID, "amount_cents", amount)
	return reply(map[string]any{
		"settlement": map[string]any{
			"id":           settlement.ID,
			"from_user_id": settlement.FromUserID,
			"to_user_id":   settlement.ToUserID,
			"amount_cents": settlement.AmountCents,
			"note":         settlement.Note,
			"created_at":   settlement.CreatedAt,
		},
	})
}

// GetGroupBalances returns net balances, debtors and a simplified payment plan.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *request) (*response, error) {
	group, err := s.memberGroup(ctx, getString(req.Msg, "group_id"))
	if err != nil {
		return nil, err
	}

	plan, err := s.planner.Plan(ctx, group)
	if err != nil {
		s.logger.Warn("GetGroupBalances failed", "group_id", group.ID, "error", err)
		return nil, rpcError(err)
	}

	balances := make(map[string]any, len(plan.Balances))
	for id, cents := range plan.Balances {
		balances[id] = cents
	}
	debtors := make([]any, len(plan.Debtors))
	for i, d := range plan.Debtors {
		debtors[i] = map[string]any{"user_id": d.UserID, "balance_cents": d.Balance}
	}
	edges := calculator.SimplifyDebts(plan.Balances)
	debts := make([]any, len(edges))
	for i, e := range edges {
		debts[i] = map[string]any{"from_user_id": e.From, "to_user_id": e.To, "amount_cents": e.AmountCents}
	}

	return reply(map[string]any{
		"group_id":         group.ID,
		"balances":         balances,
		"debtors":          debtors,
		"simplified_debts": debts,
		"total_cents":      calculator.Total(plan.Balances),
	})
}

// memberGroup loads groupID and checks the caller is on its roster.
func (s *GroupService) memberGroup(ctx context.Context, groupID string) (*models.Group, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, rpcError(reminder.ErrUnauthenticated)
	}
	if groupID == "" {
		return nil, rpcError(reminder.ErrInvalidArgument)
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, rpcError(reminder.ErrGroupNotFound)
	}
	if err != nil {
		s.logger.Error("GetGroup failed", "group_id", groupID, "error", err)
		return nil, rpcError(err)
	}
	if !group.HasMember(userID) {
		return nil, rpcError(reminder.ErrNotMember)
	}
	return group, nil
}

func groupFields(g *models.Group) map[string]any {
	return map[string]any{
		"id":         g.ID,
		"name":       g.Name,
		"member_ids": anyList(g.MemberUserIDs),
		"created_at": g.CreatedAt,
	}
}
