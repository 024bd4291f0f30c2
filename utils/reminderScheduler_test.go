package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"prolific/config"
	"prolific/database"
	"prolific/logger"
	"prolific/models"
)

type sentMail struct {
	to      string
	subject string
}

type fakeMailer struct {
	sent   []sentMail
	failTo string
}

func (m *fakeMailer) Send(_ context.Context, toEmail, _ string, content EmailContent) error {
	if toEmail == m.failTo {
		return errors.New("mailbox full")
	}
	m.sent = append(m.sent, sentMail{to: toEmail, subject: content.Subject})
	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.ConnectDb(&config.Config{Mode: "test", DBDriver: "sqlite", DBName: "file::memory:"}, logger.Nop())
	require.NoError(t, err)
	return db
}

func addLearner(t *testing.T, db *gorm.DB, id, email string, hour int, enabled bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{ID: id, Name: "Learner " + id, Email: email, Password: "x"}).Error)
	prefs := models.DefaultPreferences(id)
	prefs.RemindersEnabled = enabled
	prefs.ReminderHour = hour
	require.NoError(t, db.Create(&prefs).Error)
}

func TestReminderRunMailsOnlyIdleLearnersAtTheirHour(t *testing.T) {
	db := testDB(t)
	clock := time.Date(2026, 3, 14, 18, 30, 0, 0, time.Local)

	addLearner(t, db, "idle", "idle@example.com", 18, true)
	addLearner(t, db, "busy", "busy@example.com", 18, true)
	addLearner(t, db, "yesterday", "yesterday@example.com", 18, true)
	addLearner(t, db, "morning", "morning@example.com", 8, true)
	addLearner(t, db, "off", "off@example.com", 18, false)

	require.NoError(t, db.Create(&models.StepAttempt{
		ID: "a1", UserID: "busy", ExerciseID: "ex1", StepID: "s1", CreatedAt: clock.Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.StepAttempt{
		ID: "a2", UserID: "yesterday", ExerciseID: "ex1", StepID: "s1", CreatedAt: clock.Add(-24 * time.Hour),
	}).Error)

	mailer := &fakeMailer{}
	s := NewReminderScheduler(NewGormReminderSource(db), mailer, logger.Nop())
	s.now = func() time.Time { return clock }

	sent, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	var to []string
	for _, m := range mailer.sent {
		to = append(to, m.to)
		assert.Equal(t, "Time for today's exercise", m.subject)
	}
	assert.ElementsMatch(t, []string{"idle@example.com", "yesterday@example.com"}, to)
}

type staticSource struct {
	due []ReminderCandidate
	err error
}

func (s staticSource) DueReminders(context.Context, int, time.Time) ([]ReminderCandidate, error) {
	return s.due, s.err
}

func TestReminderRunSkipsFailedMails(t *testing.T) {
	mailer := &fakeMailer{failTo: "b@example.com"}
	src := staticSource{due: []ReminderCandidate{
		{UserID: "a", Email: "a@example.com", Name: "A", DailyGoal: 1},
		{UserID: "b", Email: "b@example.com", Name: "B", DailyGoal: 2},
	}}
	sent, err := NewReminderScheduler(src, mailer, logger.Nop()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestReminderRunReturnsSourceError(t *testing.T) {
	_, err := NewReminderScheduler(staticSource{err: errors.New("db down")}, &fakeMailer{}, logger.Nop()).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestReminderSchedulerRejectsBadSpec(t *testing.T) {
	s := NewReminderScheduler(staticSource{}, &fakeMailer{}, logger.Nop())
	assert.Error(t, s.Start("every now and then"))
	s.Stop()
}

func TestEmailTemplates(t *testing.T) {
	assert.Contains(t, ReminderEmail("Ada", 3).HTML, "<strong>3</strong>")
	assert.Contains(t, WelcomeEmail("Ada").HTML, "Hi Ada")
}
