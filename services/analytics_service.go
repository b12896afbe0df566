package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"fumiq/models"

	"golang.org/x/sync/singleflight"
)

// AnalyticsService aggregates a closed session into per-question
// option-selection percentages and cohort-wide score statistics. Only the
// user who owns both the quiz and the session may read them.
type AnalyticsService struct {
	sessions SessionStore
	quizzes  QuizStore
	cache    Cache
	sf       singleflight.Group
}

func NewAnalyticsService(sessions SessionStore, quizzes QuizStore, cache Cache) *AnalyticsService {
	return &AnalyticsService{
		sessions: sessions,
		quizzes:  quizzes,
		cache:    cache,
	}
}

type QuizAnalytics struct {
	QuizTitle       string              `json:"quizTitle"`
	QuizDescription string              `json:"quizDescription"`
	AverageScore    int                 `json:"averageScore"`
	HighestScore    int                 `json:"highestScore"`
	Questions       []QuestionBreakdown `json:"questions"`
}

type QuestionBreakdown struct {
	QuestionText string       `json:"questionText"`
	Options      []OptionStat `json:"options"`
}

// OptionStat reports how often an option was selected, as a percentage of
// the session's competitor count. It is a selection-frequency histogram, not
// an accuracy histogram: the counted option is the one matching the
// submitted text, correct or not.
type OptionStat struct {
	OptionText string `json:"optionText"`
	Percentage int    `json:"percentage"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Analyze returns the analytics bundle for a closed session.
func (s *AnalyticsService) Analyze(ctx context.Context, quizID, sessionID, ownerID uint) (*QuizAnalytics, error) {
	key := fmt.Sprintf("quiz-analytics-%d", sessionID)
	if exists, err := s.cache.Exists(ctx, key); err == nil && exists {
		raw, ok, err := s.cache.Get(ctx, key)
		if err == nil && ok {
			var analytics QuizAnalytics
			if err := json.Unmarshal([]byte(raw), &analytics); err != nil {
				log.Printf("corrupt cache payload for %s: %v", key, err)
				return nil, models.NotFound("Quiz-Analytics", "an error occurred while retrieving "+key+" from the cache")
			}
			return &analytics, nil
		}
	}

	value, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.compute(ctx, quizID, sessionID, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*QuizAnalytics), nil
}

func (s *AnalyticsService) compute(ctx context.Context, quizID, sessionID, ownerID uint) (*QuizAnalytics, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Quiz", "quiz with this id does not exist")
	}
	if err != nil {
		return nil, err
	}
	if quiz.UserID != ownerID {
		return nil, models.Forbidden("Quiz", "you are not permitted to do this operation")
	}
	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Session", "session with this id does not exist")
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != ownerID {
		return nil, models.Forbidden("Session", "you are not permitted to do this operation")
	}
	if session.QuizID != quizID {
		return nil, models.NotFound("Session", "session with this id does not exist")
	}
	if session.Active {
		return nil, models.Conflict("Session", "session is still active")
	}

	competitorCount := len(session.Competitors)
	questions := make([]QuestionBreakdown, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		questions = append(questions, breakdownQuestion(question, session.Competitors, competitorCount))
	}

	average, highest := cohortScores(quiz, session.Competitors)
	analytics := &QuizAnalytics{
		QuizTitle:       quiz.Title,
		QuizDescription: quiz.Description,
		AverageScore:    average,
		HighestScore:    highest,
		Questions:       questions,
	}

	if raw, err := json.Marshal(analytics); err == nil {
		key := fmt.Sprintf("quiz-analytics-%d", sessionID)
		if err := s.cache.Set(ctx, key, string(raw), resultsTTL); err != nil {
			log.Printf("failed to cache %s: %v", key, err)
		}
	}
	return analytics, nil
}

func breakdownQuestion(question models.Question, competitors []models.Competitor, competitorCount int) QuestionBreakdown {
	options := make([]OptionStat, 0, len(question.Options))
	hits := make([]int, len(question.Options))
	for _, option := range question.Options {
		stat := OptionStat{OptionText: strings.ToLower(option)}
		for _, correct := range question.CorrectAnswer.Values() {
			if strings.EqualFold(option, correct) {
				stat.IsCorrect = true
			}
		}
		options = append(options, stat)
	}

	for ci := range competitors {
		answer := competitors[ci].Answer(question.ID)
		if answer == nil || !question.CorrectAnswer.Present() {
			continue
		}
		if question.CorrectAnswer.IsMulti() && question.CorrectAnswer.Matches(answer.Value) {
			// A fully matching multi-select submission counts once for
			// every selected (correct) option.
			for _, correct := range question.CorrectAnswer.Values() {
				for i := range options {
					if strings.EqualFold(options[i].OptionText, correct) {
						hits[i]++
					}
				}
			}
			continue
		}
		for i := range options {
			if strings.EqualFold(options[i].OptionText, answer.Value) {
				hits[i]++
			}
		}
	}

	for i := range options {
		if competitorCount > 0 {
			options[i].Percentage = hits[i] * 100 / competitorCount
		}
	}
	return QuestionBreakdown{QuestionText: question.Text, Options: options}
}

func cohortScores(quiz *models.Quiz, competitors []models.Competitor) (average, highest int) {
	total := quiz.TotalPoints()
	if len(competitors) == 0 || total == 0 {
		return 0, 0
	}
	sum := 0.0
	best := 0
	for i := range competitors {
		earned := earnedPoints(quiz, &competitors[i])
		sum += float64(earned) / float64(total)
		if earned > best {
			best = earned
		}
	}
	average = ceilPercent100(sum / float64(len(competitors)))
	highest = ceilPercent(best, total)
	return average, highest
}
