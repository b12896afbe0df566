package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"fumiq/models"

	"golang.org/x/sync/singleflight"
)

const (
	resultsTTL          = 30 * time.Second
	competitorResultTTL = 5 * time.Minute
)

// ScoringService computes per-competitor scores for closed sessions. Results
// are memoized in the cache for a short TTL; a cache hit short-circuits the
// whole computation, including the closed-session precondition.
type ScoringService struct {
	sessions SessionStore
	quizzes  QuizStore
	users    UserStore
	cache    Cache
	sf       singleflight.Group
}

func NewScoringService(sessions SessionStore, quizzes QuizStore, users UserStore, cache Cache) *ScoringService {
	return &ScoringService{
		sessions: sessions,
		quizzes:  quizzes,
		users:    users,
		cache:    cache,
	}
}

// CompetitorResult is one row of a session's scoreboard.
type CompetitorResult struct {
	Name        string         `json:"name"`
	Score       int            `json:"score"`
	UserAnswers []AnsweredItem `json:"userAnswers"`
}

// AnsweredItem pairs a question with what the competitor submitted for it.
// Only answered questions appear.
type AnsweredItem struct {
	QuestionText string `json:"questionText"`
	Answer       string `json:"answer"`
}

// Results returns the scoreboard of a closed session, one entry per
// competitor in join order.
func (s *ScoringService) Results(ctx context.Context, quizID, sessionID, ownerID uint) ([]CompetitorResult, error) {
	key := fmt.Sprintf("quiz-results-%d", sessionID)
	if cached, ok, err := s.cachedResults(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	value, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.computeResults(ctx, quizID, sessionID, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return value.([]CompetitorResult), nil
}

func (s *ScoringService) cachedResults(ctx context.Context, key string) ([]CompetitorResult, bool, error) {
	exists, err := s.cache.Exists(ctx, key)
	if err != nil || !exists {
		return nil, false, err
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var results []CompetitorResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		log.Printf("corrupt cache payload for %s: %v", key, err)
		return nil, false, models.NotFound("Quiz-Result", "an error occurred while retrieving "+key+" from the cache")
	}
	return results, true, nil
}

func (s *ScoringService) computeResults(ctx context.Context, quizID, sessionID, ownerID uint) ([]CompetitorResult, error) {
	session, quiz, err := s.loadClosedSession(ctx, quizID, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(session.Competitors))
	for _, competitor := range session.Competitors {
		ids = append(ids, competitor.UserID)
	}
	names, err := s.users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]CompetitorResult, 0, len(session.Competitors))
	for _, competitor := range session.Competitors {
		entry := CompetitorResult{
			Score:       competitorScore(quiz, &competitor),
			UserAnswers: answeredItems(quiz, &competitor),
		}
		if user, ok := names[competitor.UserID]; ok {
			entry.Name = user.DisplayName()
		}
		results = append(results, entry)
	}

	if raw, err := json.Marshal(results); err == nil {
		key := fmt.Sprintf("quiz-results-%d", sessionID)
		if err := s.cache.Set(ctx, key, string(raw), resultsTTL); err != nil {
			log.Printf("failed to cache %s: %v", key, err)
		}
	}
	return results, nil
}

// CompetitorScore returns one competitor's own normalized score for a
// session, cached per (session, user).
func (s *ScoringService) CompetitorScore(ctx context.Context, sessionID, userID uint) (int, error) {
	key := fmt.Sprintf("quiz-result-%d-%d", sessionID, userID)
	if exists, err := s.cache.Exists(ctx, key); err == nil && exists {
		raw, ok, err := s.cache.Get(ctx, key)
		if err == nil && ok {
			var score int
			if err := json.Unmarshal([]byte(raw), &score); err != nil {
				log.Printf("corrupt cache payload for %s: %v", key, err)
				return 0, models.NotFound("Quiz-Result", "an error occurred while retrieving "+key+" from the cache")
			}
			return score, nil
		}
	}

	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return 0, models.NotFound("Session", "session with this id not found")
	}
	if err != nil {
		return 0, err
	}
	if session.Active {
		return 0, models.Conflict("Session", "session is still active")
	}
	competitor := session.Competitor(userID)
	if competitor == nil {
		return 0, models.NotFound("Session", "session with this id not found")
	}
	quiz, err := s.quizzes.ByID(ctx, session.QuizID)
	if err != nil {
		return 0, err
	}

	score := competitorScore(quiz, competitor)
	if raw, err := json.Marshal(score); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), competitorResultTTL); err != nil {
			log.Printf("failed to cache %s: %v", key, err)
		}
	}
	return score, nil
}

func (s *ScoringService) loadClosedSession(ctx context.Context, quizID, sessionID, ownerID uint) (*models.Session, *models.Quiz, error) {
	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, nil, models.NotFound("Session", "session with this id not found")
	}
	if err != nil {
		return nil, nil, err
	}
	if session.QuizID != quizID {
		return nil, nil, models.NotFound("Session", "session with this id not found")
	}
	quiz, err := s.quizzes.ByID(ctx, session.QuizID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, nil, models.NotFound("Quiz", "quiz not found")
	}
	if err != nil {
		return nil, nil, err
	}
	if quiz.UserID != ownerID {
		return nil, nil, models.Forbidden("Quiz", "you are not permitted to do this operation")
	}
	if session.Active {
		return nil, nil, models.Conflict("Session", "session is still active")
	}
	return session, quiz, nil
}

// competitorScore is the normalized 0-100 score: earned points over the
// quiz's total achievable points, rounded up. A question with no canonical
// answer is credited in full for every competitor who answered it.
func competitorScore(quiz *models.Quiz, competitor *models.Competitor) int {
	return ceilPercent(earnedPoints(quiz, competitor), quiz.TotalPoints())
}

// earnedPoints sums the weights of every answered question whose submitted
// value matches the canonical answer.
func earnedPoints(quiz *models.Quiz, competitor *models.Competitor) int {
	earned := 0
	for _, question := range quiz.Questions {
		answer := competitor.Answer(question.ID)
		if answer == nil {
			continue
		}
		if question.CorrectAnswer.Matches(answer.Value) {
			earned += question.Weight()
		}
	}
	return earned
}

func answeredItems(quiz *models.Quiz, competitor *models.Competitor) []AnsweredItem {
	items := make([]AnsweredItem, 0, len(competitor.Answers))
	for _, question := range quiz.Questions {
		if answer := competitor.Answer(question.ID); answer != nil {
			items = append(items, AnsweredItem{QuestionText: question.Text, Answer: answer.Value})
		}
	}
	return items
}

func ceilPercent(earned, total int) int {
	if total == 0 {
		return 0
	}
	return ceilPercent100(float64(earned) / float64(total))
}

func ceilPercent100(ratio float64) int {
	return int(math.Ceil(ratio * 100))
}
