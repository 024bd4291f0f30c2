package database

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prolific/logger"
	"prolific/models"
)

// Catalog files are written by content authors:
//
//	audio:
//	  - id: breath-intro
//	    url: https://cdn.example/breath.mp3
//	topics:
//	  - title: Money
//	    courses:
//	      - title: Budgeting
//	        exercises:
//	          - title: Where it goes
//	            order: 1
//	            steps:
//	              - type: content
//	                content: ...
//
// Rows without an id get one derived from their parent and title, so
// re-importing the same file updates rows in place.
type SeedFile struct {
	Audio  []SeedAudio `yaml:"audio"`
	Topics []SeedTopic `yaml:"topics"`
}

type SeedAudio struct {
	ID              string `yaml:"id"`
	Title           string `yaml:"title"`
	URL             string `yaml:"url"`
	DurationSeconds int    `yaml:"duration_seconds"`
}

type SeedTopic struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Emoji       string       `yaml:"emoji"`
	Courses     []SeedCourse `yaml:"courses"`
}

type SeedCourse struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Exercises   []SeedExercise `yaml:"exercises"`
}

type SeedExercise struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Order       int        `yaml:"order"`
	Steps       []SeedStep `yaml:"steps"`
}

type SeedStep struct {
	ID            string                 `yaml:"id"`
	Type          string                 `yaml:"type"`
	Content       string                 `yaml:"content"`
	Options       []string               `yaml:"options"`
	CorrectAnswer string                 `yaml:"correct_answer"`
	Explanation   string                 `yaml:"explanation"`
	Order         int                    `yaml:"order"`
	RichContent   map[string]interface{} `yaml:"rich_content"`
	AudioID       string                 `yaml:"audio_id"`
	VideoURL      string                 `yaml:"video_url"`
}

// Catalog is a seed file flattened into table rows.
type Catalog struct {
	Topics    []models.Topic
	Courses   []models.Course
	Exercises []models.Exercise
	Steps     []models.Step
	Audio     []models.AudioAsset
}

func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeSeed(f)
}

func DecodeSeed(r io.Reader) (*SeedFile, error) {
	var sf SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &sf, nil
}

func seedID(id, parent, title string) string {
	if id != "" {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(parent+"/"+title)).String()
}

// Flatten validates the seed and assigns ids.
func (sf *SeedFile) Flatten() (*Catalog, error) {
	out := &Catalog{}
	audioIDs := map[string]bool{}
	for _, a := range sf.Audio {
		if a.URL == "" {
			return nil, fmt.Errorf("audio %q: url is required", a.ID)
		}
		id := seedID(a.ID, "audio", a.URL)
		audioIDs[id] = true
		out.Audio = append(out.Audio, models.AudioAsset{ID: id, Title: a.Title, URL: a.URL, DurationSeconds: a.DurationSeconds})
	}

	for _, t := range sf.Topics {
		topicID := seedID(t.ID, "topic", t.Title)
		out.Topics = append(out.Topics, models.Topic{ID: topicID, Title: t.Title, Description: t.Description, Emoji: t.Emoji})

		for _, c := range t.Courses {
			courseID := seedID(c.ID, topicID, c.Title)
			out.Courses = append(out.Courses, models.Course{ID: courseID, TopicID: topicID, Title: c.Title, Description: c.Description})

			orders := map[int]bool{}
			for i, e := range c.Exercises {
				order := e.Order
				if order == 0 {
					order = i + 1
				}
				if orders[order] {
					return nil, fmt.Errorf("course %q: duplicate exercise order %d", c.Title, order)
				}
				orders[order] = true
				exerciseID := seedID(e.ID, courseID, e.Title)
				out.Exercises = append(out.Exercises, models.Exercise{
					ID: exerciseID, CourseID: courseID, Title: e.Title, Description: e.Description, Order: order,
				})

				for j, s := range e.Steps {
					step, err := s.toModel(exerciseID, j+1, audioIDs)
					if err != nil {
						return nil, fmt.Errorf("exercise %q step %d: %w", e.Title, j+1, err)
					}
					out.Steps = append(out.Steps, step)
				}
			}
			for o := 1; o <= len(orders); o++ {
				if !orders[o] {
					return nil, fmt.Errorf("course %q: exercise orders must run 1..%d", c.Title, len(orders))
				}
			}
		}
	}
	return out, nil
}

func (s SeedStep) toModel(exerciseID string, position int, audioIDs map[string]bool) (models.Step, error) {
	st := models.StepType(s.Type)
	if !st.Valid() {
		return models.Step{}, fmt.Errorf("unknown step type %q", s.Type)
	}
	if st.IsQuestion() && s.CorrectAnswer == "" {
		return models.Step{}, fmt.Errorf("%s step needs correct_answer", s.Type)
	}
	order := s.Order
	if order == 0 {
		order = position
	}
	step := models.Step{
		ID:            seedID(s.ID, exerciseID, fmt.Sprint(order)),
		ExerciseID:    exerciseID,
		Type:          st,
		Content:       s.Content,
		Options:       s.Options,
		CorrectAnswer: s.CorrectAnswer,
		Explanation:   s.Explanation,
		Order:         order,
		VideoURL:      s.VideoURL,
	}
	if s.AudioID != "" {
		if !audioIDs[s.AudioID] {
			return models.Step{}, fmt.Errorf("unknown audio_id %q", s.AudioID)
		}
		audioID := s.AudioID
		step.AudioID = &audioID
	}
	if s.RichContent != nil {
		raw, err := json.Marshal(s.RichContent)
		if err != nil {
			return models.Step{}, err
		}
		var rc models.RichContent
		if err := json.Unmarshal(raw, &rc); err != nil {
			return models.Step{}, err
		}
		if err := rc.Validate(); err != nil {
			return models.Step{}, err
		}
		step.RichContent = &rc
	}
	return step, nil
}

// ImportCatalog upserts every row of c in one transaction.
func ImportCatalog(db *gorm.DB, c *Catalog, log *logger.Logger) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		upsert := func() *gorm.DB { return tx.Clauses(clause.OnConflict{UpdateAll: true}) }
		if len(c.Audio) > 0 {
			if err := upsert().Create(&c.Audio).Error; err != nil {
				return fmt.Errorf("audio: %w", err)
			}
		}
		if len(c.Topics) > 0 {
			if err := upsert().Create(&c.Topics).Error; err != nil {
				return fmt.Errorf("topics: %w", err)
			}
		}
		if len(c.Courses) > 0 {
			if err := upsert().Create(&c.Courses).Error; err != nil {
				return fmt.Errorf("courses: %w", err)
			}
		}
		if len(c.Exercises) > 0 {
			if err := upsert().Create(&c.Exercises).Error; err != nil {
				return fmt.Errorf("exercises: %w", err)
			}
		}
		if len(c.Steps) > 0 {
			if err := upsert().Create(&c.Steps).Error; err != nil {
				return fmt.Errorf("steps: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import catalog: %w", err)
	}
	log.Info("Catalog imported",
		"topics", len(c.Topics),
		"courses", len(c.Courses),
		"exercises", len(c.Exercises),
		"steps", len(c.Steps),
		"audio", len(c.Audio),
	)
	return nil
}
