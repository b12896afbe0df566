package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Quiz is an owner-authored quiz definition. Questions are stored as a single
// JSONB document; the definition is treated as immutable once a session has
// been started against it.
type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	TimeLimit   int            `json:"time_limit"` // minutes
	Questions   []Question     `json:"questions" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

type Question struct {
	ID            string        `json:"id"`
	Text          string        `json:"questionText"`
	Type          string        `json:"questionType"`
	Options       []string      `json:"options"`
	CorrectAnswer CorrectAnswer `json:"correctAnswer"`
	PhotoURL      string        `json:"photoUrl,omitempty"`
	Points        int           `json:"points"`
}

// Weight is the question's achievable points. Legacy quizzes predate the
// points field; a zero value counts as 1.
func (q Question) Weight() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// Question returns the question with the given id, or nil.
func (qz *Quiz) Question(id string) *Question {
	for i := range qz.Questions {
		if qz.Questions[i].ID == id {
			return &qz.Questions[i]
		}
	}
	return nil
}

// TotalPoints is the sum of question weights across the whole quiz.
func (qz *Quiz) TotalPoints() int {
	total := 0
	for _, q := range qz.Questions {
		total += q.Weight()
	}
	return total
}

// Sanitized returns a copy of the quiz with every canonical answer stripped.
// This is the only projection ever handed to an in-progress competitor.
func (qz *Quiz) Sanitized() Quiz {
	out := *qz
	out.Questions = make([]Question, len(qz.Questions))
	for i, q := range qz.Questions {
		q.CorrectAnswer = CorrectAnswer{}
		out.Questions[i] = q
	}
	return out
}

// CorrectAnswer is a question's author-declared answer: a single string, an
// ordered list of strings, or absent. An absent answer means the question has
// no objectively correct value and every submitted answer earns full credit.
type CorrectAnswer struct {
	values []string
	list   bool
}

func SingleAnswer(value string) CorrectAnswer {
	return CorrectAnswer{values: []string{value}}
}

func MultiAnswer(values ...string) CorrectAnswer {
	return CorrectAnswer{values: values, list: true}
}

// Present reports whether a canonical answer was recorded at all.
func (ca CorrectAnswer) Present() bool {
	return ca.values != nil
}

// Values returns the answer parts in stored order.
func (ca CorrectAnswer) Values() []string {
	return ca.values
}

// IsMulti reports whether the answer was declared as a list rather than a
// single string.
func (ca CorrectAnswer) IsMulti() bool {
	return ca.list
}

// Canonical is the at-rest comparison form: list answers joined with commas
// in stored order. Multi-select submissions must reproduce this ordering.
func (ca CorrectAnswer) Canonical() string {
	return strings.Join(ca.values, ",")
}

// Matches compares a submitted answer against the canonical one,
// case-insensitively. Absent answers match anything.
func (ca CorrectAnswer) Matches(submitted string) bool {
	if !ca.Present() {
		return true
	}
	return strings.EqualFold(ca.Canonical(), submitted)
}

func (ca CorrectAnswer) MarshalJSON() ([]byte, error) {
	if !ca.Present() {
		return []byte("null"), nil
	}
	if ca.list {
		return json.Marshal(ca.values)
	}
	return json.Marshal(ca.values[0])
}

func (ca *CorrectAnswer) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*ca = CorrectAnswer{}
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		*ca = CorrectAnswer{values: values, list: true}
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*ca = CorrectAnswer{values: []string{value}}
	return nil
}
