package services

import (
	"context"
	"net/http"
	"testing"

	"fumiq/models"
)

func newQuizFixture(t *testing.T) (*QuizService, *memQuizStore) {
	t.Helper()
	quizzes := newMemQuizStore()
	return NewQuizService(quizzes), quizzes
}

func TestCreateQuizAssignsQuestionIDs(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizFixture(t)

	quiz, err := service.Create(ctx, 1, &CreateQuizRequest{
		Title: "Geography",
		Questions: []QuestionInput{
			{Text: "Capital of France?", CorrectAnswer: models.SingleAnswer("Paris")},
			{Text: "Capital of Germany?", CorrectAnswer: models.SingleAnswer("Berlin")},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, q := range quiz.Questions {
		if q.ID == "" {
			t.Fatalf("question %q has no id", q.Text)
		}
		if seen[q.ID] {
			t.Fatalf("duplicate question id %s", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestGetQuizHidesForeignOwner(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizFixture(t)

	quiz, err := service.Create(ctx, 1, &CreateQuizRequest{
		Title:     "Geography",
		Questions: []QuestionInput{{Text: "Capital of France?"}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := service.Get(ctx, quiz.ID, 2); models.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("foreign quiz must look nonexistent, got %v", err)
	}
	if _, err := service.Get(ctx, quiz.ID, 1); err != nil {
		t.Fatalf("owner access failed: %v", err)
	}
}

func TestUpdateQuizReplacesQuestionDocument(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizFixture(t)

	quiz, err := service.Create(ctx, 1, &CreateQuizRequest{
		Title: "Geography",
		Questions: []QuestionInput{
			{Text: "Capital of France?"},
			{Text: "Capital of Germany?"},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	keptID := quiz.Questions[0].ID

	updated, err := service.Update(ctx, quiz.ID, 1, &UpdateQuizRequest{
		Title: "World Geography",
		Questions: []QuestionInput{
			{ID: keptID, Text: "Capital of France?"},
			{Text: "Capital of Spain?"},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != "World Geography" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if len(updated.Questions) != 2 {
		t.Fatalf("question list must be replaced wholesale, got %d", len(updated.Questions))
	}
	if updated.Questions[0].ID != keptID {
		t.Fatalf("existing question must keep its id")
	}
	if updated.Questions[1].ID == "" || updated.Questions[1].ID == keptID {
		t.Fatalf("new question must get a fresh id")
	}
}

func TestDeleteQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizFixture(t)

	quiz, _ := service.Create(ctx, 1, &CreateQuizRequest{
		Title:     "Geography",
		Questions: []QuestionInput{{Text: "Capital of France?"}},
	})

	if err := service.Delete(ctx, quiz.ID, 2); models.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("stranger delete must look nonexistent, got %v", err)
	}
	if err := service.Delete(ctx, quiz.ID, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := service.Get(ctx, quiz.ID, 1); models.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("deleted quiz must be gone, got %v", err)
	}
}
