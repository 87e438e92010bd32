package notification

import (
	"fmt"

	"goTheNineAPI/internal/task"
)

// DayState is what Compose needs to know about the user's day.
type DayState struct {
	Date           string
	DayNumber      int
	TasksCompleted int
	IsComplete     bool
	CurrentStreak  int
}

func Tag(kind Kind, date string) string {
	return fmt.Sprintf("%s-%s", kind, date)
}

var openAction = Action{Action: "open", Title: "Open checklist"}

// Compose builds the reminder for kind, or reports false when the reminder
// should not be sent for this state.
func Compose(kind Kind, s DayState) (Message, bool) {
	remaining := task.Total - s.TasksCompleted
	if remaining < 0 {
		remaining = 0
	}

	msg := Message{
		Tag: Tag(kind, s.Date),
		Data: map[string]string{
			"kind": string(kind),
			"date": s.Date,
		},
	}

	switch kind {
	case KindMorningReminder:
		msg.Title = fmt.Sprintf("Day %d of 75", s.DayNumber)
		msg.Body = "A new day. Six tasks, no compromises."
		msg.Actions = []Action{openAction}
		return msg, true

	case KindEveningReminder:
		if s.IsComplete {
			return Message{}, false
		}
		msg.Title = "Evening check-in"
		msg.Body = fmt.Sprintf("%d of %d tasks done. %d to go before midnight.", s.TasksCompleted, task.Total, remaining)
		msg.Actions = []Action{openAction, {Action: "snooze", Title: "Remind me later"}}
		return msg, true

	case KindStreakReminder:
		if s.IsComplete || s.CurrentStreak < 1 {
			return Message{}, false
		}
		msg.Title = "Your streak is at risk"
		msg.Body = fmt.Sprintf("%d day streak on the line. Finish the remaining %d tasks today.", s.CurrentStreak, remaining)
		msg.Actions = []Action{openAction}
		return msg, true

	case KindDayComplete:
		if !s.IsComplete {
			return Message{}, false
		}
		msg.Title = fmt.Sprintf("Day %d complete", s.DayNumber)
		msg.Body = "All six tasks done. See you tomorrow."
		return msg, true
	}

	return Message{}, false
}
