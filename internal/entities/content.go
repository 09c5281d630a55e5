package entities

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentType is the closed set of exportable record kinds.
type ContentType string

const (
	ContentTypeLesson ContentType = "lesson"
	ContentTypeQuiz   ContentType = "quiz"
)

// ParseContentType validates s against the supported content types.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(s) {
	case ContentTypeLesson, ContentTypeQuiz:
		return ContentType(s), true
	default:
		return "", false
	}
}

// FolderName is the per-type bucket folder in the export hierarchy.
func (c ContentType) FolderName() string {
	if c == ContentTypeQuiz {
		return "Quizzes"
	}
	return "Lesson Plans"
}

type LessonPlan struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	Title       string         `gorm:"size:512" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Subject     string         `gorm:"size:256" json:"subject"`
	Topic       string         `gorm:"size:256" json:"topic"`
	Content     datatypes.JSON `json:"content"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonPlan) TableName() string {
	return "lesson_plans"
}

type Quiz struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	Title       string         `gorm:"size:512" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Subject     string         `gorm:"size:256" json:"subject"`
	Topic       string         `gorm:"size:256" json:"topic"`
	Content     datatypes.JSON `json:"content"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Activity is one entry of a lesson's activity list. A bare string
// activity carries only a Description.
type Activity struct {
	Name        string `json:"name,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	Text        string   `json:"text,omitempty"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// ExportContent is the normalized view of a lesson or quiz that the
// export pipeline renders. Absent optional fields are left empty.
type ExportContent struct {
	Type        ContentType
	ID          uint
	Title       string
	Description string
	Subject     string
	Topic       string
	Objectives  []string
	KeyPoints   []string
	Activities  []Activity
	Questions   []Question
}
