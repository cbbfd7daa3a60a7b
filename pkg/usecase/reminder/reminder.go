package reminder

import (
	"context"
	"time"

	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/repository"
	"github.com/karmaspark/karmaspark/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Delay bounds for a new reminder.
const (
	MinDelay = time.Minute
	MaxDelay = 7 * 24 * time.Hour
)

const defaultPollInterval = 10 * time.Second

var ErrDelayOutOfRange = goerr.New("reminder delay out of range")

// NotifyFunc delivers a due reminder to the user.
type NotifyFunc func(ctx context.Context, reminder *model.Reminder)

// Service schedules durable reminders and delivers them from a poll loop.
// Reminders survive restarts: delivery state lives in the repository, not in
// sleeping goroutines.
type Service struct {
	repo         repository.Repository
	pollInterval time.Duration
}

type Option func(*Service)

func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		s.pollInterval = d
	}
}

func New(repo repository.Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule creates a pending reminder due after delay. The repository assigns
// the id.
func (s *Service) Schedule(ctx context.Context, scope model.Scope, message string, delay time.Duration) (*model.Reminder, error) {
	if delay < MinDelay || delay > MaxDelay {
		return nil, goerr.Wrap(ErrDelayOutOfRange, "delay must be between one minute and one week",
			goerr.V("delay", delay.String()))
	}

	now := time.Now().UTC()
	rem := &model.Reminder{
		ChatID:    scope.ChatID,
		UserID:    scope.UserID,
		Message:   message,
		DueAt:     now.Add(delay),
		CreatedAt: now,
		Status:    model.ReminderPending,
	}

	id, err := s.repo.PutReminder(ctx, rem)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to schedule reminder")
	}
	rem.ID = id

	logging.From(ctx).Info("reminder scheduled", "id", id, "due_at", rem.DueAt)
	return rem, nil
}

// List returns the pending reminders of a chat, soonest first.
func (s *Service) List(ctx context.Context, scope model.Scope) ([]*model.Reminder, error) {
	reminders, err := s.repo.ListReminders(ctx, scope.ChatID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reminders")
	}
	return reminders, nil
}

// Cancel withdraws a pending reminder. Canceling a delivered or already
// canceled reminder fails.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	if err := s.repo.CancelReminder(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to cancel reminder", goerr.V("id", id))
	}
	return nil
}

// Run polls for due reminders and delivers them until the context is
// canceled. Each delivered reminder is marked before the next poll, so a
// crash between notify and mark can re-deliver but never lose a reminder.
func (s *Service) Run(ctx context.Context, notify NotifyFunc) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.deliverDue(ctx, notify)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) deliverDue(ctx context.Context, notify NotifyFunc) {
	logger := logging.From(ctx)

	due, err := s.repo.DueReminders(ctx, time.Now().UTC())
	if err != nil {
		logger.Error("failed to query due reminders", "error", err)
		return
	}

	for _, rem := range due {
		notify(ctx, rem)
		if err := s.repo.MarkReminderDelivered(ctx, rem.ID); err != nil {
			logger.Error("failed to mark reminder delivered", "id", rem.ID, "error", err)
			continue
		}
		logger.Info("reminder delivered", "id", rem.ID, "chat_id", rem.ChatID)
	}
}
