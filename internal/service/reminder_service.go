package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/reminder"
)

// GroupReminder sends an on-demand reminder for one group.
type GroupReminder interface {
	SendGroupReminder(ctx context.Context, callerID, groupID string) (reminder.Result, error)
}

// ReminderService implements the ReminderService RPC interface.
type ReminderService struct {
	reminders GroupReminder
	logger    *slog.Logger
}

func NewReminderService(reminders GroupReminder, logger *slog.Logger) *ReminderService {
	return &ReminderService{reminders: reminders, logger: logger}
}

// SendGroupReminder notifies every member of a group the caller belongs to.
func (s *ReminderService) SendGroupReminder(ctx context.Context, req *request) (*response, error) {
	groupID := getString(req.Msg, "group_id")
	s.logger.Info("SendGroupReminder request received", "group_id", groupID, "user_id", middleware.GetUserID(ctx))

	res, err := s.reminders.SendGroupReminder(ctx, middleware.GetUserID(ctx), groupID)
	if err != nil {
		return nil, rpcError(err)
	}

	if !res.Success {
		return reply(map[string]any{"success": false, "message": res.Message})
	}
	return reply(map[string]any{"success": true, "tokens_sent": res.TokensSent})
}
