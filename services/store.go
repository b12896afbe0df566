package services

import (
	"context"

	"fumiq/models"
)

// Store interfaces abstract the Postgres document stores so the engine can be
// exercised against in-memory doubles. Lookups that match nothing return
// models.ErrNoRecord.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error)
}

type QuizStore interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	ByID(ctx context.Context, id uint) (*models.Quiz, error)
	ByOwner(ctx context.Context, userID uint) ([]models.Quiz, error)
	Save(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id uint) error
}

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	ByID(ctx context.Context, id uint) (*models.Session, error)
	ByCode(ctx context.Context, code string) (*models.Session, error)
	ActiveByCode(ctx context.Context, code string) (*models.Session, error)
	ActiveByQuizAndOwner(ctx context.Context, quizID, userID uint) (*models.Session, error)
	ClosedByQuiz(ctx context.Context, quizID uint) ([]models.Session, error)
	Save(ctx context.Context, session *models.Session) error
}
