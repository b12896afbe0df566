package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"fumiq/models"
)

// In-memory store doubles. They hand out deep copies so tests catch missing
// Save calls, and they are safe for concurrent use.

type memUserStore struct {
	mu    sync.Mutex
	users map[uint]*models.User
	next  uint
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uint]*models.User)}
}

func (s *memUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	user.ID = s.next
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *memUserStore) ByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	out := *user
	return &out, nil
}

func (s *memUserStore) ByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *memUserStore) ByIDs(_ context.Context, ids []uint) (map[uint]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint]*models.User)
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			u := *user
			out[id] = &u
		}
	}
	return out, nil
}

type memQuizStore struct {
	mu      sync.Mutex
	quizzes map[uint]*models.Quiz
	next    uint
}

func newMemQuizStore() *memQuizStore {
	return &memQuizStore{quizzes: make(map[uint]*models.Quiz)}
}

func (s *memQuizStore) Create(_ context.Context, quiz *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	quiz.ID = s.next
	quiz.CreatedAt = time.Now()
	s.quizzes[quiz.ID] = cloneDoc(quiz)
	return nil
}

func (s *memQuizStore) ByID(_ context.Context, id uint) (*models.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return cloneDoc(quiz), nil
}

func (s *memQuizStore) ByOwner(_ context.Context, userID uint) ([]models.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Quiz
	for _, quiz := range s.quizzes {
		if quiz.UserID == userID {
			out = append(out, *cloneDoc(quiz))
		}
	}
	return out, nil
}

func (s *memQuizStore) Save(_ context.Context, quiz *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = cloneDoc(quiz)
	return nil
}

func (s *memQuizStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, id)
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uint]*models.Session
	next     uint
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uint]*models.Session)}
}

func (s *memSessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	session.ID = s.next
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	s.sessions[session.ID] = cloneDoc(session)
	return nil
}

func (s *memSessionStore) ByID(_ context.Context, id uint) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return cloneDoc(session), nil
}

func (s *memSessionStore) ByCode(_ context.Context, code string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.Code == code {
			return cloneDoc(session), nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *memSessionStore) ActiveByCode(_ context.Context, code string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.Code == code && session.Active {
			return cloneDoc(session), nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *memSessionStore) ActiveByQuizAndOwner(_ context.Context, quizID, userID uint) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.QuizID == quizID && session.UserID == userID && session.Active {
			return cloneDoc(session), nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *memSessionStore) ClosedByQuiz(_ context.Context, quizID uint) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Session
	for _, session := range s.sessions {
		if session.QuizID == quizID && !session.Active {
			out = append(out, *cloneDoc(session))
		}
	}
	return out, nil
}

func (s *memSessionStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.UpdatedAt = time.Now()
	s.sessions[session.ID] = cloneDoc(session)
	return nil
}

// memCache is a TTL-less Cache double. Corrupt-payload tests overwrite
// entries directly.
type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok, nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func cloneDoc[T any](doc *T) *T {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}
