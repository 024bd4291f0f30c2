package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"prolific/logger"
	"prolific/models"
)

// RestStore is the Content Store over the managed backend's REST API
// (PostgREST filter syntax).
type RestStore struct {
	client *resty.Client
	apiKey string
	log    *logger.Logger
}

// NewRestClient builds the resty client shared by RestStore and RestIdentity.
func NewRestClient(baseURL, apiKey string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("apikey", apiKey).
		SetHeader("Accept", "application/json")
}

func NewRestStore(client *resty.Client, apiKey string, baseLog *logger.Logger) *RestStore {
	return &RestStore{client: client, apiKey: apiKey, log: baseLog.With("store", "RestStore")}
}

// r starts a request authorized with the service key.
func (s *RestStore) r(ctx context.Context) *resty.Request {
	return s.client.R().SetContext(ctx).SetAuthToken(s.apiKey)
}

// RestError is a non-2xx response from the backend.
type RestError struct {
	Status int
	Body   string
}

func (e *RestError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Body)
}

func eq(v string) string { return "eq." + v }

func in(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

func (s *RestStore) selectRows(ctx context.Context, table string, query map[string]string, out interface{}) error {
	resp, err := s.r(ctx).
		SetQueryParam("select", "*").
		SetQueryParams(query).
		SetResult(out).
		Get("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	if resp.IsError() {
		s.log.Warn("backend select failed", "table", table, "status", resp.StatusCode())
		return fmt.Errorf("select %s: %w", table, &RestError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return nil
}

func (s *RestStore) upsertRow(ctx context.Context, table, onConflict string, row interface{}) error {
	req := s.r(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody(row)
	if onConflict != "" {
		req.SetQueryParam("on_conflict", onConflict)
	}
	resp, err := req.Post("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	if resp.IsError() {
		s.log.Warn("backend upsert failed", "table", table, "status", resp.StatusCode())
		return fmt.Errorf("upsert %s: %w", table, &RestError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return nil
}

func (s *RestStore) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var out []models.Topic
	err := s.selectRows(ctx, "topics", map[string]string{"order": "title.asc"}, &out)
	return out, err
}

func (s *RestStore) ListCoursesByTopic(ctx context.Context, topicID string) ([]models.Course, error) {
	var out []models.Course
	err := s.selectRows(ctx, "courses", map[string]string{"topic_id": eq(topicID), "order": "title.asc"}, &out)
	return out, err
}

func (s *RestStore) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var out []models.Course
	if err := s.selectRows(ctx, "courses", map[string]string{"id": eq(id), "limit": "1"}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *RestStore) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	var out []models.Exercise
	if err := s.selectRows(ctx, "exercises", map[string]string{"id": eq(id), "limit": "1"}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *RestStore) ListExercisesByCourse(ctx context.Context, courseID string) ([]models.Exercise, error) {
	var out []models.Exercise
	err := s.selectRows(ctx, "exercises", map[string]string{"course_id": eq(courseID), "order": "order.asc"}, &out)
	return out, err
}

func (s *RestStore) ListStepsByExercise(ctx context.Context, exerciseID string) ([]models.Step, error) {
	var out []models.Step
	err := s.selectRows(ctx, "steps", map[string]string{"exercise_id": eq(exerciseID), "order": "order.asc"}, &out)
	return out, err
}

func (s *RestStore) ListAudioAssets(ctx context.Context, ids []string) ([]models.AudioAsset, error) {
	var out []models.AudioAsset
	if len(ids) == 0 {
		return out, nil
	}
	err := s.selectRows(ctx, "audio_assets", map[string]string{"id": in(ids)}, &out)
	return out, err
}

func (s *RestStore) ListProgress(ctx context.Context, userID string, exerciseIDs []string) ([]models.UserProgress, error) {
	var out []models.UserProgress
	if len(exerciseIDs) == 0 {
		return out, nil
	}
	err := s.selectRows(ctx, "user_progress", map[string]string{
		"user_id":     eq(userID),
		"exercise_id": in(exerciseIDs),
	}, &out)
	return out, err
}

type progressRow struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	ExerciseID      string `json:"exercise_id"`
	ScorePercentage int    `json:"score_percentage"`
	IsUnlocked      bool   `json:"is_unlocked"`
}

// UpsertProgress merges on the row id; timestamps are left to the backend.
func (s *RestStore) UpsertProgress(ctx context.Context, row *models.UserProgress) error {
	if row == nil || row.ID == "" {
		return errors.New("upsert progress: missing id")
	}
	return s.upsertRow(ctx, "user_progress", "id", progressRow{
		ID:              row.ID,
		UserID:          row.UserID,
		ExerciseID:      row.ExerciseID,
		ScorePercentage: row.ScorePercentage,
		IsUnlocked:      row.IsUnlocked,
	})
}

func (s *RestStore) CreateAttempt(ctx context.Context, row *models.StepAttempt) error {
	resp, err := s.r(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=minimal").
		SetBody(row).
		Post("/rest/v1/step_attempts")
	if err != nil {
		return fmt.Errorf("insert step_attempts: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("insert step_attempts: %w", &RestError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return nil
}

func (s *RestStore) CountAttempts(ctx context.Context, userID, stepID string) (int64, error) {
	resp, err := s.r(ctx).
		SetHeader("Prefer", "count=exact").
		SetHeader("Range", "0-0").
		SetQueryParams(map[string]string{
			"select":  "id",
			"user_id": eq(userID),
			"step_id": eq(stepID),
		}).
		Head("/rest/v1/step_attempts")
	if err != nil {
		return 0, fmt.Errorf("count step_attempts: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusRequestedRangeNotSatisfiable {
		return 0, fmt.Errorf("count step_attempts: %w", &RestError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return parseContentRangeTotal(resp.Header().Get("Content-Range")), nil
}

// parseContentRangeTotal reads the total from "0-0/42" or "*/0".
func parseContentRangeTotal(v string) int64 {
	i := strings.LastIndex(v, "/")
	if i < 0 {
		return 0
	}
	var n int64
	if _, err := fmt.Sscan(v[i+1:], &n); err != nil {
		return 0
	}
	return n
}

func (s *RestStore) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	var out []models.UserPreferences
	if err := s.selectRows(ctx, "user_preferences", map[string]string{"user_id": eq(userID), "limit": "1"}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *RestStore) UpsertPreferences(ctx context.Context, prefs *models.UserPreferences) error {
	return s.upsertRow(ctx, "user_preferences", "user_id", prefs)
}
