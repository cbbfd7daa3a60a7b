package repository

import (
	"context"
	"time"

	"github.com/karmaspark/karmaspark/pkg/model"
)

// Repository defines persistence for conversation memories and reminders.
type Repository interface {
	// PutMemory inserts a memory, replacing any record with the same
	// (chat_id, user_id, timestamp) natural key, and returns the assigned id.
	PutMemory(ctx context.Context, memory *model.Memory) (int64, error)

	// GetMemory retrieves a memory by id. A missing id yields (nil, nil).
	GetMemory(ctx context.Context, id int64) (*model.Memory, error)

	// RecentMemories returns up to limit memories for a chat, newest first.
	RecentMemories(ctx context.Context, chatID string, limit int) ([]*model.Memory, error)

	// SimilarMemories ranks all embedded memories of a chat by cosine
	// similarity against the query embedding and returns the top limit.
	// Ties keep their scan order.
	SimilarMemories(ctx context.Context, chatID string, embedding []float32, limit int) ([]*model.ScoredMemory, error)

	// CleanupMemories deletes memories of a chat older than the retention
	// window and returns the number of deleted rows.
	CleanupMemories(ctx context.Context, chatID string, retentionDays int) (int64, error)

	// PutReminder inserts a reminder and returns the assigned sequence id.
	PutReminder(ctx context.Context, reminder *model.Reminder) (int64, error)

	// ListReminders returns all pending reminders for a chat, soonest first.
	ListReminders(ctx context.Context, chatID string) ([]*model.Reminder, error)

	// DueReminders returns pending reminders whose due time has passed.
	DueReminders(ctx context.Context, now time.Time) ([]*model.Reminder, error)

	// MarkReminderDelivered transitions a reminder to delivered.
	MarkReminderDelivered(ctx context.Context, id int64) error

	// CancelReminder transitions a pending reminder to canceled.
	CancelReminder(ctx context.Context, id int64) error

	Close() error
}
