package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"fumiq/models"
)

type analyticsFixture struct {
	*sessionFixture
	analytics *AnalyticsService
	cache     *memCache
	session   *models.Session
}

func newAnalyticsFixture(t *testing.T, questions []models.Question, submissions map[string]map[string]string) *analyticsFixture {
	t.Helper()
	ctx := context.Background()

	base := newSessionFixture(t)
	if questions != nil {
		base.quiz.Questions = questions
		if err := base.quizzes.Save(ctx, base.quiz); err != nil {
			t.Fatalf("save quiz: %v", err)
		}
	}
	cache := newMemCache()
	analytics := NewAnalyticsService(base.sessions, base.quizzes, cache)

	session, err := base.service.Start(ctx, base.quiz.ID, base.owner.ID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for name, answers := range submissions {
		user := base.addUser(t, name, "Competitor")
		if _, err := base.service.Enter(ctx, session.ID, user.ID); err != nil {
			t.Fatalf("enter failed: %v", err)
		}
		for questionID, value := range answers {
			err := base.service.RecordAnswer(ctx, AnswerEvent{
				SessionID: session.ID, UserID: user.ID, QuestionID: questionID, Value: value,
			})
			if err != nil {
				t.Fatalf("record failed: %v", err)
			}
		}
	}
	if _, err := base.service.Close(ctx, session.ID, base.owner.ID); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	return &analyticsFixture{sessionFixture: base, analytics: analytics, cache: cache, session: session}
}

func optionByText(t *testing.T, options []OptionStat, text string) OptionStat {
	t.Helper()
	for _, o := range options {
		if o.OptionText == text {
			return o
		}
	}
	t.Fatalf("no option %q in %+v", text, options)
	return OptionStat{}
}

func TestAnalyzeOptionHistogram(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t, nil, map[string]map[string]string{
		"Alice": {"q1": "Paris"},
		"Bob":   {"q1": "Paris"},
		"Cara":  {"q1": "Berlin"},
		"Dave":  {},
	})

	report, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if report.QuizTitle != "Geography" {
		t.Fatalf("expected quiz title, got %q", report.QuizTitle)
	}
	if len(report.Questions) != 2 {
		t.Fatalf("expected 2 question breakdowns, got %d", len(report.Questions))
	}

	q1 := report.Questions[0]
	paris := optionByText(t, q1.Options, "paris")
	berlin := optionByText(t, q1.Options, "berlin")
	if paris.Percentage != 50 {
		t.Fatalf("expected paris at 50%%, got %d", paris.Percentage)
	}
	if berlin.Percentage != 25 {
		t.Fatalf("expected berlin at 25%%, got %d", berlin.Percentage)
	}
	if !paris.IsCorrect || berlin.IsCorrect {
		t.Fatalf("correctness flags wrong: paris=%v berlin=%v", paris.IsCorrect, berlin.IsCorrect)
	}
}

func TestAnalyzeMultiSelectCreditsEachOption(t *testing.T) {
	ctx := context.Background()
	questions := []models.Question{{
		ID:            "q1",
		Text:          "EU capitals?",
		Options:       []string{"Paris", "Berlin", "Madrid"},
		CorrectAnswer: models.MultiAnswer("Paris", "Berlin"),
	}}
	f := newAnalyticsFixture(t, questions, map[string]map[string]string{
		"Alice": {"q1": "paris,berlin"},
		"Bob":   {"q1": "madrid"},
	})

	report, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	options := report.Questions[0].Options
	// A full multi-select match counts once for every correct option; a
	// non-matching submission counts only for the option it names.
	if got := optionByText(t, options, "paris").Percentage; got != 50 {
		t.Fatalf("expected paris at 50%%, got %d", got)
	}
	if got := optionByText(t, options, "berlin").Percentage; got != 50 {
		t.Fatalf("expected berlin at 50%%, got %d", got)
	}
	if got := optionByText(t, options, "madrid").Percentage; got != 50 {
		t.Fatalf("expected madrid at 50%%, got %d", got)
	}
}

func TestAnalyzeSkipsQuestionsWithoutCanonicalAnswer(t *testing.T) {
	ctx := context.Background()
	questions := []models.Question{{
		ID:      "q1",
		Text:    "Your opinion?",
		Options: []string{"Yes", "No"},
	}}
	f := newAnalyticsFixture(t, questions, map[string]map[string]string{
		"Alice": {"q1": "Yes"},
	})

	report, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	for _, o := range report.Questions[0].Options {
		if o.Percentage != 0 || o.IsCorrect {
			t.Fatalf("open questions never accumulate hits, got %+v", o)
		}
	}
}

func TestAnalyzeZeroCompetitors(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t, nil, nil)

	report, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if report.AverageScore != 0 || report.HighestScore != 0 {
		t.Fatalf("empty session must score 0/0, got %d/%d", report.AverageScore, report.HighestScore)
	}
	for _, q := range report.Questions {
		for _, o := range q.Options {
			if o.Percentage != 0 {
				t.Fatalf("empty session must have flat histograms, got %+v", o)
			}
		}
	}
}

func TestAnalyzeCohortScores(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t, nil, map[string]map[string]string{
		"Alice": {"q1": "Paris", "q2": "Berlin"},
		"Bob":   {"q1": "Paris"},
	})

	report, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	// Ratios 1.0 and 0.5 average to 75; the best competitor is at 100.
	if report.AverageScore != 75 {
		t.Fatalf("expected average 75, got %d", report.AverageScore)
	}
	if report.HighestScore != 100 {
		t.Fatalf("expected highest 100, got %d", report.HighestScore)
	}
}

func TestAnalyzeAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t, nil, nil)
	stranger := f.addUser(t, "Sam", "Stranger")

	if _, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, stranger.ID); models.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	if _, err := f.analytics.Analyze(ctx, 9999, f.session.ID, f.owner.ID); models.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected not found for unknown quiz, got %v", err)
	}
}

func TestAnalyzeRejectsActiveSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	cache := newMemCache()
	analytics := NewAnalyticsService(f.sessions, f.quizzes, cache)

	session, _ := f.service.Start(ctx, f.quiz.ID, f.owner.ID)
	_, err := analytics.Analyze(ctx, f.quiz.ID, session.ID, f.owner.ID)
	if models.StatusOf(err) != http.StatusConflict {
		t.Fatalf("open session must be rejected with a conflict, got %v", err)
	}
}

func TestAnalyzeServedFromCache(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t, nil, map[string]map[string]string{
		"Alice": {"q1": "Paris"},
	})

	if _, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, f.owner.ID); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if ok, _ := f.cache.Exists(ctx, fmt.Sprintf("quiz-analytics-%d", f.session.ID)); !ok {
		t.Fatalf("expected cached analytics entry")
	}

	// A cache hit bypasses recomputation entirely.
	stored, _ := f.sessions.ByID(ctx, f.session.ID)
	stored.Competitors = nil
	f.sessions.Save(ctx, stored)

	report, err := f.analytics.Analyze(ctx, f.quiz.ID, f.session.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("cached analyze failed: %v", err)
	}
	if got := optionByText(t, report.Questions[0].Options, "paris").Percentage; got != 100 {
		t.Fatalf("expected cached histogram, got %d", got)
	}
}
