package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"fumiq/models"
)

const (
	// maxCodeAttempts caps the regenerate-on-collision loop so code-space
	// exhaustion cannot spin forever.
	maxCodeAttempts = 100
)

// SessionService owns the session lifecycle and the answer ingestion
// pipeline: starting and closing sessions, joining competitors, and
// converging submitted answers into the session document.
type SessionService struct {
	sessions SessionStore
	quizzes  QuizStore
	users    UserStore

	locks sessionLocks

	// codeMu serializes the join-code uniqueness check so two concurrent
	// starts cannot race to the same code.
	codeMu sync.Mutex
	rnd    *rand.Rand
}

func NewSessionService(sessions SessionStore, quizzes QuizStore, users UserStore) *SessionService {
	return &SessionService{
		sessions: sessions,
		quizzes:  quizzes,
		users:    users,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AnswerEvent is one competitor answer arriving over the live channel.
// Multi-select values are pre-joined with commas by the transport before
// they reach the pipeline.
type AnswerEvent struct {
	SessionID  uint
	UserID     uint
	QuestionID string
	Value      string
}

// SessionEntry is what a joining competitor gets back: the session metadata,
// the quiz stripped of every canonical answer, and the competitor's own
// record. It never carries the other competitors.
type SessionEntry struct {
	SessionID  uint              `json:"session_id"`
	Code       string            `json:"code"`
	Quiz       models.Quiz       `json:"quiz"`
	Competitor models.Competitor `json:"competitor"`
}

// SessionSummary describes one closed session of a quiz.
type SessionSummary struct {
	ID           uint      `json:"id"`
	QuizID       uint      `json:"quiz_id"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Participants int       `json:"amount_of_participants"`
}

// CompetitorProgress is the owner's live view of one competitor.
type CompetitorProgress struct {
	UserID    uint             `json:"userId"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Finished  bool             `json:"finished"`
	Answers   []ProgressAnswer `json:"answers"`
}

type ProgressAnswer struct {
	UserID     uint      `json:"userId"`
	QuestionID string    `json:"questionId"`
	Question   string    `json:"question"`
	Status     string    `json:"status"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

// Start opens a session for the given quiz. Starting is idempotent: if the
// owner already has an active session for this quiz it is returned unchanged.
func (s *SessionService) Start(ctx context.Context, quizID, ownerID uint) (*models.Session, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Quiz", "quiz not found")
	}
	if err != nil {
		return nil, err
	}
	if quiz.UserID != ownerID {
		return nil, models.NotFound("Quiz", "quiz not found")
	}

	existing, err := s.sessions.ActiveByQuizAndOwner(ctx, quizID, ownerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNoRecord) {
		return nil, err
	}

	s.codeMu.Lock()
	defer s.codeMu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := strconv.Itoa(s.rnd.Intn(900000) + 100000)
		_, err := s.sessions.ByCode(ctx, code)
		if err == nil {
			log.Printf("join code %s is already in use, retrying", code)
			continue
		}
		if !errors.Is(err, models.ErrNoRecord) {
			return nil, err
		}
		session := &models.Session{
			UserID:      ownerID,
			QuizID:      quizID,
			Code:        code,
			Active:      true,
			Competitors: []models.Competitor{},
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, models.Unavailable("Session", "could not allocate a unique join code")
}

// Close ends a session. The flag flip is terminal: a closed session never
// reopens. Nothing is recomputed here; cached results simply expire.
func (s *SessionService) Close(ctx context.Context, sessionID, ownerID uint) (*models.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Session", "session with this id not found")
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != ownerID {
		return nil, models.Forbidden("Session", "you are not permitted to do this operation")
	}
	if !session.Active {
		return session, nil
	}
	session.Active = false
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// JoinByCode resolves a join code to its active session, rejecting
// competitors who already finished it.
func (s *SessionService) JoinByCode(ctx context.Context, code string, userID uint) (*models.Session, error) {
	session, err := s.sessions.ActiveByCode(ctx, code)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Session", "no active session with this code")
	}
	if err != nil {
		return nil, err
	}
	if comp := session.Competitor(userID); comp != nil && comp.Finished {
		return nil, models.Conflict("Session", "you have already finished this quiz")
	}
	return session, nil
}

// Enter returns the competitor-scoped view of an active session, creating the
// competitor record lazily on first entry. The quiz projection excludes every
// canonical answer and the response never includes other competitors.
func (s *SessionService) Enter(ctx context.Context, sessionID, userID uint) (*SessionEntry, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Session", "quiz session with this id does not exist")
	}
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, models.NotFound("Session", "quiz session with this id does not exist")
	}

	quiz, err := s.quizzes.ByID(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	competitor := session.Competitor(userID)
	if competitor != nil {
		if competitor.Finished {
			return nil, models.Conflict("Session", "you have already finished this quiz")
		}
	} else {
		session.Competitors = append(session.Competitors, models.Competitor{
			UserID:    userID,
			StartedAt: time.Now(),
			Finished:  false,
			Answers:   []models.Answer{},
		})
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		competitor = session.Competitor(userID)
	}

	return &SessionEntry{
		SessionID:  session.ID,
		Code:       session.Code,
		Quiz:       quiz.Sanitized(),
		Competitor: *competitor,
	}, nil
}

// Finish marks the competitor as done. Finishing twice is a no-op, as is
// finishing a session never joined.
func (s *SessionService) Finish(ctx context.Context, sessionID, userID uint) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return models.NotFound("Session", "session with this id not found")
	}
	if err != nil {
		return err
	}
	competitor := session.Competitor(userID)
	if competitor == nil || competitor.Finished {
		return nil
	}
	competitor.Finished = true
	return s.sessions.Save(ctx, session)
}

// RecordAnswer converges one answer event into the competitor's answer list:
// an existing answer for the question is replaced in place, otherwise the
// answer is appended. Events for unknown sessions or competitors who never
// joined are rejected; the live transport logs and drops those rather than
// surfacing them to the submitter.
func (s *SessionService) RecordAnswer(ctx context.Context, ev AnswerEvent) error {
	unlock := s.locks.lock(ev.SessionID)
	defer unlock()

	session, err := s.sessions.ByID(ctx, ev.SessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return models.NotFound("Session", "session not found")
	}
	if err != nil {
		return err
	}
	competitor := session.Competitor(ev.UserID)
	if competitor == nil {
		return models.NotFound("Session", "competitor has not joined this session")
	}
	competitor.SetAnswer(ev.QuestionID, ev.Value)
	return s.sessions.Save(ctx, session)
}

// Attend authorizes a user to attach to the session's live channel: the
// session owner or a competitor who already joined.
func (s *SessionService) Attend(ctx context.Context, sessionID, userID uint) error {
	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return models.NotFound("Session", "session not found")
	}
	if err != nil {
		return err
	}
	if session.UserID == userID {
		return nil
	}
	if session.Competitor(userID) != nil {
		return nil
	}
	return models.Forbidden("Session", "you are not part of this session")
}

// Question resolves a question of the quiz a session runs against. The live
// transport uses it to attach question text to answer broadcasts.
func (s *SessionService) Question(ctx context.Context, sessionID uint, questionID string) (*models.Question, error) {
	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Session", "session not found")
	}
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.ByID(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	question := quiz.Question(questionID)
	if question == nil {
		return nil, models.NotFound("Quiz", "question not found")
	}
	return question, nil
}

// ListClosed returns the summaries of every closed session of a quiz.
func (s *SessionService) ListClosed(ctx context.Context, quizID, ownerID uint) ([]SessionSummary, error) {
	if err := s.authorizeQuiz(ctx, quizID, ownerID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ClosedByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:           session.ID,
			QuizID:       session.QuizID,
			StartedAt:    session.CreatedAt,
			EndedAt:      session.UpdatedAt,
			Participants: len(session.Competitors),
		})
	}
	return summaries, nil
}

// LiveView is the owner's per-competitor progress view of one session.
func (s *SessionService) LiveView(ctx context.Context, quizID, sessionID, ownerID uint) ([]CompetitorProgress, error) {
	session, err := s.sessions.ByID(ctx, sessionID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Session", "no session with this id")
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != ownerID {
		return nil, models.Forbidden("Session", "you are not permitted to do this operation")
	}
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("Quiz", "no quiz with this id")
	}
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

	progress := make([]CompetitorProgress, 0, len(session.Competitors))
	for _, competitor := range session.Competitors {
		answers := make([]ProgressAnswer, 0, len(competitor.Answers))
		for _, answer := range competitor.Answers {
			question := quiz.Question(answer.QuestionID)
			if question == nil {
				continue
			}
			answers = append(answers, ProgressAnswer{
				UserID:     competitor.UserID,
				QuestionID: question.ID,
				Question:   question.Text,
				Status:     "success",
				Answer:     answer.Value,
				Timestamp:  time.Now(),
			})
		}
		entry := CompetitorProgress{
			UserID:   competitor.UserID,
			Finished: competitor.Finished,
			Answers:  answers,
		}
		if user, ok := names[competitor.UserID]; ok {
			entry.FirstName = user.FirstName
			entry.LastName = user.LastName
		}
		progress = append(progress, entry)
	}
	return progress, nil
}

func (s *SessionService) authorizeQuiz(ctx context.Context, quizID, ownerID uint) error {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if errors.Is(err, models.ErrNoRecord) {
		return models.NotFound("Quiz", "quiz not found")
	}
	if err != nil {
		return err
	}
	if quiz.UserID != ownerID {
		return models.Forbidden("Quiz", "you are not permitted to do this operation")
	}
	return nil
}
