package services

import (
	"context"
	"errors"

	"fumiq/models"

	"github.com/google/uuid"
)

// QuizService is the owner-facing quiz catalog. Every operation is scoped to
// the requesting owner; another user's quiz behaves as if it does not exist.
type QuizService struct {
	quizzes QuizStore
}

func NewQuizService(quizzes QuizStore) *QuizService {
	return &QuizService{quizzes: quizzes}
}

type CreateQuizRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	TimeLimit   int             `json:"time_limit" binding:"min=0"`
	Questions   []QuestionInput `json:"questions" binding:"required,min=1"`
}

type UpdateQuizRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TimeLimit   int             `json:"time_limit"`
	Questions   []QuestionInput `json:"questions"`
}

// QuestionInput carries an authored question. The id is optional: questions
// that already have one keep it across updates, new ones get a fresh UUID.
type QuestionInput struct {
	ID            string               `json:"id"`
	Text          string               `json:"questionText" binding:"required"`
	Type          string               `json:"questionType"`
	Options       []string             `json:"options"`
	CorrectAnswer models.CorrectAnswer `json:"correctAnswer"`
	PhotoURL      string               `json:"photoUrl"`
	Points        int                  `json:"points" binding:"min=0"`
}

func (in QuestionInput) toQuestion() models.Question {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	return models.Question{
		ID:            id,
		Text:          in.Text,
		Type:          in.Type,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		PhotoURL:      in.PhotoURL,
		Points:        in.Points,
	}
}

func (s *QuizService) Create(ctx context.Context, ownerID uint, req *CreateQuizRequest) (*models.Quiz, error) {
	questions := make([]models.Question, 0, len(req.Questions))
	for _, in := range req.Questions {
		questions = append(questions, in.toQuestion())
	}
	quiz := &models.Quiz{
		UserID:      ownerID,
		Title:       req.Title,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
		Questions:   questions,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) List(ctx context.Context, ownerID uint) ([]models.Quiz, error) {
	return s.quizzes.ByOwner(ctx, ownerID)
}

func (s *QuizService) Get(ctx context.Context, quizID, ownerID uint) (*models.Quiz, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Quiz", "quiz with this id does not exist")
	}
	if err != nil {
		return nil, err
	}
	if quiz.UserID != ownerID {
		return nil, models.NotFound("Quiz", "quiz with this id does not exist")
	}
	return quiz, nil
}

// Update replaces the quiz document. A provided question list supersedes the
// stored one wholesale; questions without an id are treated as new.
func (s *QuizService) Update(ctx context.Context, quizID, ownerID uint, req *UpdateQuizRequest) (*models.Quiz, error) {
	quiz, err := s.Get(ctx, quizID, ownerID)
	if err != nil {
		return nil, err
	}
	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Description != "" {
		quiz.Description = req.Description
	}
	if req.TimeLimit > 0 {
		quiz.TimeLimit = req.TimeLimit
	}
	if req.Questions != nil {
		questions := make([]models.Question, 0, len(req.Questions))
		for _, in := range req.Questions {
			questions = append(questions, in.toQuestion())
		}
		quiz.Questions = questions
	}
	if err := s.quizzes.Save(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) Delete(ctx context.Context, quizID, ownerID uint) error {
	if _, err := s.Get(ctx, quizID, ownerID); err != nil {
		return err
	}
	return s.quizzes.Delete(ctx, quizID)
}
