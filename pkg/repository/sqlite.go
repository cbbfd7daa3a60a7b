package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/utils/vector"
	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is RFC3339 with fixed-width nanoseconds so that the TEXT column
// sorts chronologically. All timestamps are stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id INTEGER PRIMARY KEY,
	chat_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding BLOB,
	metadata TEXT,
	UNIQUE(chat_id, user_id, timestamp)
);
CREATE INDEX IF NOT EXISTS memories_chat_id_idx ON memories (chat_id);

CREATE TABLE IF NOT EXISTS reminders (
	id INTEGER PRIMARY KEY,
	chat_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	message TEXT NOT NULL,
	due_at TEXT NOT NULL,
	created_at TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS reminders_due_idx ON reminders (status, due_at);
`

// sqliteRepo implements Repository on an embedded SQLite database. The
// handle does not permit unsynchronized concurrent access, so every
// operation holds the mutex.
type sqliteRepo struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and prepares the schema.
func NewSQLite(path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to prepare schema")
	}

	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

func (r *sqliteRepo) PutMemory(ctx context.Context, memory *model.Memory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var blob any
	if len(memory.Embedding) > 0 {
		blob = vector.Encode(memory.Embedding)
	}
	var metadata any
	if memory.Metadata != "" {
		metadata = memory.Metadata
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO memories (chat_id, user_id, timestamp, content, embedding, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		memory.ChatID, memory.UserID, memory.Timestamp.UTC().Format(timeLayout),
		memory.Content, blob, metadata,
	)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to store memory", goerr.V("chat_id", memory.ChatID))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get memory id")
	}
	return id, nil
}

const memoryColumns = "id, chat_id, user_id, timestamp, content, embedding, metadata"

func scanMemory(row interface{ Scan(...any) error }) (*model.Memory, error) {
	var (
		m            model.Memory
		timestampStr string
		blob         []byte
		metadata     sql.NullString
	)
	if err := row.Scan(&m.ID, &m.ChatID, &m.UserID, &timestampStr, &m.Content, &blob, &metadata); err != nil {
		return nil, err
	}

	ts, err := time.Parse(timeLayout, timestampStr)
	if err != nil {
		// Older rows may carry plain RFC3339.
		ts, err = time.Parse(time.RFC3339Nano, timestampStr)
		if err != nil {
			ts = time.Now().UTC()
		}
	}
	m.Timestamp = ts
	m.Embedding = vector.Decode(blob)
	if metadata.Valid {
		m.Metadata = metadata.String
	}
	return &m, nil
}

func (r *sqliteRepo) GetMemory(ctx context.Context, id int64) (*model.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRowContext(ctx,
		"SELECT "+memoryColumns+" FROM memories WHERE id = ?", id)

	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
	}
	return memory, nil
}

func (r *sqliteRepo) RecentMemories(ctx context.Context, chatID string, limit int) ([]*model.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+memoryColumns+" FROM memories WHERE chat_id = ? ORDER BY timestamp DESC LIMIT ?",
		chatID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query recent memories", goerr.V("chat_id", chatID))
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory row")
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memory rows")
	}
	return memories, nil
}

// SimilarMemories is a deliberate full scan: memory volumes are per-chat and
// small, and the stable sort keeps scan order for equal scores.
func (r *sqliteRepo) SimilarMemories(ctx context.Context, chatID string, embedding []float32, limit int) ([]*model.ScoredMemory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+memoryColumns+" FROM memories WHERE chat_id = ? AND embedding IS NOT NULL ORDER BY id",
		chatID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query embedded memories", goerr.V("chat_id", chatID))
	}
	defer rows.Close()

	var scored []*model.ScoredMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory row")
		}
		scored = append(scored, &model.ScoredMemory{
			Memory: m,
			Score:  vector.Cosine(embedding, m.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memory rows")
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *sqliteRepo) CleanupMemories(ctx context.Context, chatID string, retentionDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(timeLayout)
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM memories WHERE chat_id = ? AND timestamp < ?", chatID, cutoff)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to cleanup memories", goerr.V("chat_id", chatID))
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count deleted memories")
	}
	return deleted, nil
}

func (r *sqliteRepo) PutReminder(ctx context.Context, reminder *model.Reminder) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (chat_id, user_id, message, due_at, created_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reminder.ChatID, reminder.UserID, reminder.Message,
		reminder.DueAt.UTC().Format(timeLayout),
		reminder.CreatedAt.UTC().Format(timeLayout),
		string(reminder.Status),
	)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to store reminder", goerr.V("chat_id", reminder.ChatID))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get reminder id")
	}
	return id, nil
}

const reminderColumns = "id, chat_id, user_id, message, due_at, created_at, status"

func scanReminder(row interface{ Scan(...any) error }) (*model.Reminder, error) {
	var (
		rem          model.Reminder
		dueStr       string
		createdStr   string
		status       string
	)
	if err := row.Scan(&rem.ID, &rem.ChatID, &rem.UserID, &rem.Message, &dueStr, &createdStr, &status); err != nil {
		return nil, err
	}

	if ts, err := time.Parse(timeLayout, dueStr); err == nil {
		rem.DueAt = ts
	}
	if ts, err := time.Parse(timeLayout, createdStr); err == nil {
		rem.CreatedAt = ts
	}
	rem.Status = model.ReminderStatus(status)
	return &rem, nil
}

func (r *sqliteRepo) ListReminders(ctx context.Context, chatID string) ([]*model.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reminderColumns+" FROM reminders WHERE chat_id = ? AND status = ? ORDER BY due_at",
		chatID, string(model.ReminderPending))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reminders", goerr.V("chat_id", chatID))
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *sqliteRepo) DueReminders(ctx context.Context, now time.Time) ([]*model.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reminderColumns+" FROM reminders WHERE status = ? AND due_at <= ? ORDER BY due_at",
		string(model.ReminderPending), now.UTC().Format(timeLayout))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query due reminders")
	}
	defer rows.Close()

	return collectReminders(rows)
}

func collectReminders(rows *sql.Rows) ([]*model.Reminder, error) {
	var reminders []*model.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan reminder row")
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate reminder rows")
	}
	return reminders, nil
}

func (r *sqliteRepo) MarkReminderDelivered(ctx context.Context, id int64) error {
	return r.setReminderStatus(ctx, id, model.ReminderDelivered)
}

func (r *sqliteRepo) CancelReminder(ctx context.Context, id int64) error {
	return r.setReminderStatus(ctx, id, model.ReminderCanceled)
}

func (r *sqliteRepo) setReminderStatus(ctx context.Context, id int64, status model.ReminderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		"UPDATE reminders SET status = ? WHERE id = ? AND status = ?",
		string(status), id, string(model.ReminderPending))
	if err != nil {
		return goerr.Wrap(err, "failed to update reminder", goerr.V("id", id))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to check reminder update")
	}
	if affected == 0 {
		return goerr.New("reminder not found or not pending", goerr.V("id", id))
	}
	return nil
}
