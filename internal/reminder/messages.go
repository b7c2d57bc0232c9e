package reminder

import (
	"fmt"
	"strconv"

	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/notify"
)

func title(group *models.Group) string {
	return "Settle up in " + group.Name
}

// ScheduledMessage is the daily reminder for a group with debtors.
func ScheduledMessage(plan Plan, tokens []string) notify.Message {
	return notify.Message{
		Title: title(plan.Group),
		Body:  fmt.Sprintf("%d member(s) owe money. Time to settle up!", len(plan.Debtors)),
		Data: map[string]string{
			"groupId": plan.Group.ID,
			"type":    metrics.TypeScheduled,
		},
		Tokens: tokens,
	}
}

// ManualMessage is the reminder a member requests for their group.
func ManualMessage(plan Plan, tokens []string) notify.Message {
	return notify.Message{
		Title: title(plan.Group),
		Body:  "Someone requested a settlement reminder for this group",
		Data: map[string]string{
			"groupId": plan.Group.ID,
			"type":    metrics.TypeManual,
			"debtors": strconv.Itoa(len(plan.Debtors)),
		},
		Tokens: tokens,
	}
}
