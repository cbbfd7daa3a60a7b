package model

import "time"

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderDelivered ReminderStatus = "delivered"
	ReminderCanceled  ReminderStatus = "canceled"
)

// Reminder is a durable scheduled notification. ID is the store-assigned
// sequence number; pending reminders survive a process restart and are
// re-armed by the scheduler's poll loop.
type Reminder struct {
	ID        int64
	ChatID    string
	UserID    string
	Message   string
	DueAt     time.Time
	CreatedAt time.Time
	Status    ReminderStatus
}
