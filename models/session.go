package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is one joinable run of a quiz, identified by a 6-digit numeric
// code. Competitor state is kept as a single JSONB document on the session
// row; every mutation rewrites the whole document, which is why all writes
// are serialized per session.
type Session struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;index"`
	QuizID      uint           `json:"quiz_id" gorm:"not null;index"`
	Code        string         `json:"code" gorm:"uniqueIndex;not null"`
	Active      bool           `json:"is_active" gorm:"not null;default:true"`
	Competitors []Competitor   `json:"competitors" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Competitor is a participant's state within one session.
type Competitor struct {
	UserID    uint      `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
	Finished  bool      `json:"finished"`
	Answers   []Answer  `json:"answers"`
}

type Answer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"answer"`
}

// Competitor returns the sub-record for the given user, or nil. The pointer
// aliases the session's slice so callers can mutate in place.
func (s *Session) Competitor(userID uint) *Competitor {
	for i := range s.Competitors {
		if s.Competitors[i].UserID == userID {
			return &s.Competitors[i]
		}
	}
	return nil
}

// SetAnswer upserts the answer for a question: an existing entry is replaced
// in place, preserving its position; otherwise the answer is appended. The
// answer list therefore never holds more than one entry per question.
func (c *Competitor) SetAnswer(questionID, value string) {
	for i := range c.Answers {
		if c.Answers[i].QuestionID == questionID {
			c.Answers[i] = Answer{QuestionID: questionID, Value: value}
			return
		}
	}
	c.Answers = append(c.Answers, Answer{QuestionID: questionID, Value: value})
}

// Answer returns the competitor's answer for a question, or nil.
func (c *Competitor) Answer(questionID string) *Answer {
	for i := range c.Answers {
		if c.Answers[i].QuestionID == questionID {
			return &c.Answers[i]
		}
	}
	return nil
}
