// Package storage provides the Postgres-backed document stores. Quizzes and
// sessions carry their nested documents (questions, competitors) in JSONB
// columns, so each row is read and written as a whole.
package storage

import (
	"context"
	"errors"

	"fumiq/models"

	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *UserStore) ByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *UserStore) ByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]*models.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

type QuizStore struct {
	db *gorm.DB
}

func NewQuizStore(db *gorm.DB) *QuizStore {
	return &QuizStore{db: db}
}

func (s *QuizStore) Create(ctx context.Context, quiz *models.Quiz) error {
	return s.db.WithContext(ctx).Create(quiz).Error
}

func (s *QuizStore) ByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.WithContext(ctx).First(&quiz, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &quiz, nil
}

func (s *QuizStore) ByOwner(ctx context.Context, userID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&quizzes).Error
	return quizzes, err
}

func (s *QuizStore) Save(ctx context.Context, quiz *models.Quiz) error {
	return s.db.WithContext(ctx).Save(quiz).Error
}

func (s *QuizStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Quiz{}, id).Error
}

type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *SessionStore) ByID(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *SessionStore) ByCode(ctx context.Context, code string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&session).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *SessionStore) ActiveByCode(ctx context.Context, code string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&session).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *SessionStore) ActiveByQuizAndOwner(ctx context.Context, quizID, userID uint) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ? AND active = ?", quizID, userID, true).
		First(&session).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *SessionStore) ClosedByQuiz(ctx context.Context, quizID uint) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("quiz_id = ? AND active = ?", quizID, false).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (s *SessionStore) Save(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Save(session).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNoRecord
	}
	return err
}
