package utils

import (
	"context"
	"time"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"prolific/logger"
)

// ReminderCandidate is a learner who asked for a reminder at this hour and
// has not answered a step since the start of the day.
type ReminderCandidate struct {
	UserID    string
	Email     string
	Name      string
	DailyGoal int
}

type ReminderSource interface {
	DueReminders(ctx context.Context, hour int, since time.Time) ([]ReminderCandidate, error)
}

// GormReminderSource reads candidates from the local users, preferences
// and attempts tables.
type GormReminderSource struct {
	db *gorm.DB
}

func NewGormReminderSource(db *gorm.DB) *GormReminderSource {
	return &GormReminderSource{db: db}
}

func (s *GormReminderSource) DueReminders(ctx context.Context, hour int, since time.Time) ([]ReminderCandidate, error) {
	var out []ReminderCandidate
	err := s.db.WithContext(ctx).
		Table("user_preferences AS p").
		Select("p.user_id, u.email, u.name, p.daily_goal").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("p.reminders_enabled = ? AND p.reminder_hour = ? AND u.is_deleted = ?", true, hour, false).
		Where("NOT EXISTS (SELECT 1 FROM step_attempts a WHERE a.user_id = p.user_id AND a.created_at >= ?)", since).
		Scan(&out).Error
	return out, err
}

type ReminderScheduler struct {
	src    ReminderSource
	mailer Mailer
	log    *logger.Logger
	now    func() time.Time
	cron   *cron.Cron
}

func NewReminderScheduler(src ReminderSource, mailer Mailer, baseLog *logger.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		src:    src,
		mailer: mailer,
		log:    baseLog.With("component", "ReminderScheduler"),
		now:    time.Now,
	}
}

// Start runs RunOnce on every tick of spec (standard 5-field cron syntax).
func (s *ReminderScheduler) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("Reminder run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("Reminder scheduler started", "spec", spec)
	return nil
}

// Stop waits for a running job to finish.
func (s *ReminderScheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce mails every learner due at the current hour and returns how many
// mails went out. A failed mail is logged and skipped.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	t := s.now()
	since := now.With(t).BeginningOfDay()
	due, err := s.src.DueReminders(ctx, t.Hour(), since)
	if err != nil {
		return 0, err
	}
	s.log.Debug("Reminders due", "hour", t.Hour(), "count", len(due))

	sent := 0
	for _, r := range due {
		if err := s.mailer.Send(ctx, r.Email, r.Name, ReminderEmail(r.Name, r.DailyGoal)); err != nil {
			s.log.Warn("Reminder not delivered", "user_id", r.UserID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
