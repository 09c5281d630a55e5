// Package content provides read-only access to lessons and quizzes for
// export. Rows are owned by the content CRUD layer; this package only
// normalizes them into entities.ExportContent.
//
// The JSON body is model output, so decoding is lenient: scalars are
// coerced to strings and a field of the wrong shape yields no section.
// Only a body that is not a JSON object is rejected.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/eztutor/drive-export/internal/entities"
)

var (
	// ErrNotFound is returned when the row does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("content not found")
	// ErrMalformed is returned when the stored body is not a JSON object.
	// Retrying cannot fix it.
	ErrMalformed = errors.New("content body is not a JSON object")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetContent loads the record of contentType with id owned by userID.
// Row-level title and description take precedence over the JSON body.
func (r *Repository) GetContent(userID uint, contentType entities.ContentType, id uint) (*entities.ExportContent, error) {
	var (
		row record
		err error
	)

	switch contentType {
	case entities.ContentTypeLesson:
		var lesson entities.LessonPlan
		err = r.db.Where("id = ? AND user_id = ?", id, userID).First(&lesson).Error
		row = record{lesson.Title, lesson.Description, lesson.Subject, lesson.Topic, lesson.Content}
	case entities.ContentTypeQuiz:
		var quiz entities.Quiz
		err = r.db.Where("id = ? AND user_id = ?", id, userID).First(&quiz).Error
		row = record{quiz.Title, quiz.Description, quiz.Subject, quiz.Topic, quiz.Content}
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return normalize(contentType, id, row)
}

type record struct {
	title       string
	description string
	subject     string
	topic       string
	content     datatypes.JSON
}

func normalize(contentType entities.ContentType, id uint, row record) (*entities.ExportContent, error) {
	body := map[string]any{}
	if len(row.content) > 0 && string(row.content) != "null" {
		if err := json.Unmarshal(row.content, &body); err != nil {
			return nil, fmt.Errorf("failed to decode %s %d content: %w: %v", contentType, id, ErrMalformed, err)
		}
	}

	return &entities.ExportContent{
		Type:        contentType,
		ID:          id,
		Title:       firstNonEmpty(row.title, toString(body["title"])),
		Description: firstNonEmpty(row.description, toString(body["description"])),
		Subject:     firstNonEmpty(row.subject, toString(body["subject"])),
		Topic:       firstNonEmpty(row.topic, toString(body["topic"])),
		Objectives:  toStrings(body["objectives"]),
		KeyPoints:   toStrings(body["keyPoints"]),
		Activities:  toActivities(body["activities"]),
		Questions:   toQuestions(body),
	}, nil
}

// toString coerces scalars; objects, arrays and null become "".
func toString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// toStrings keeps the non-empty scalar entries of a JSON array.
func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s := toString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// objects returns the object entries of a JSON array.
func objects(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func toActivities(v any) []entities.Activity {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []entities.Activity
	for _, item := range list {
		switch a := item.(type) {
		case map[string]any:
			activity := entities.Activity{
				Name:        toString(a["name"]),
				Duration:    toString(a["duration"]),
				Description: toString(a["description"]),
			}
			if activity != (entities.Activity{}) {
				out = append(out, activity)
			}
		default:
			if s := toString(a); s != "" {
				out = append(out, entities.Activity{Description: s})
			}
		}
	}
	return out
}

// toQuestions flattens the flat question list and the typed
// mcq/shortAnswer/essay lists, in that order.
func toQuestions(body map[string]any) []entities.Question {
	var out []entities.Question

	for _, q := range objects(body["questions"]) {
		out = appendQuestion(out, entities.Question{
			Text:        firstNonEmpty(toString(q["text"]), toString(q["question"])),
			Options:     toStrings(q["options"]),
			Answer:      toString(q["answer"]),
			Explanation: toString(q["explanation"]),
		})
	}
	for _, q := range objects(body["mcq"]) {
		options := toStrings(q["options"])
		out = appendQuestion(out, entities.Question{
			Text:        toString(q["question"]),
			Options:     options,
			Answer:      optionAt(options, q["answerIndex"]),
			Explanation: toString(q["explanation"]),
		})
	}
	for _, q := range objects(body["shortAnswer"]) {
		out = appendQuestion(out, entities.Question{
			Text:   toString(q["question"]),
			Answer: toString(q["sampleAnswer"]),
		})
	}
	for _, q := range objects(body["essay"]) {
		out = appendQuestion(out, entities.Question{
			Text:        toString(q["question"]),
			Explanation: toString(q["guidance"]),
		})
	}

	return out
}

func appendQuestion(out []entities.Question, q entities.Question) []entities.Question {
	if q.Text == "" {
		return out
	}
	return append(out, q)
}

func optionAt(options []string, index any) string {
	if index == nil {
		return ""
	}
	i, err := cast.ToIntE(index)
	if err != nil || i < 0 || i >= len(options) {
		return ""
	}
	return options[i]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
