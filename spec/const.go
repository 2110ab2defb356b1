package spec

import "time"

// Define constants shared by the API and the background tasks
const (
	ReminderWindow time.Duration = time.Hour * 24 * 3
	ReminderTTL    time.Duration = ReminderWindow

	DefaultSweepSchedule    string = "@every 30m"
	DefaultReminderSchedule string = "@every 60m"
)

type TaskType string

const (
	ExpirySweepTask TaskType = "expiry_sweep"
	ReminderTask    TaskType = "expiry_reminder"
)
