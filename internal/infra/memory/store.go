// Package memory provides an in-memory Store used by unit tests and local
// development. Behavior mirrors the postgres store: newest-first listings,
// ranked leaderboards and cascading quiz deletes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizlytic-service/internal/domain"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]domain.User
	quizzes      map[string]domain.Quiz
	questions    map[string][]domain.Question // by quiz ID, ordered
	attempts     map[string][]domain.Attempt  // by quiz ID, insertion order
	leaderboards map[string]map[string]domain.LeaderboardEntry

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		quizzes:      make(map[string]domain.Quiz),
		questions:    make(map[string][]domain.Question),
		attempts:     make(map[string][]domain.Attempt),
		leaderboards: make(map[string]map[string]domain.LeaderboardEntry),
		now:          time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) InsertUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) InsertQuiz(_ context.Context, q *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	s.quizzes[q.ID] = *q
	return nil
}

func (s *Store) UpdateQuizTitle(_ context.Context, quizID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	q.Title = title
	s.quizzes[quizID] = q
	return nil
}

func (s *Store) UpdateQuizRules(_ context.Context, quizID string, r domain.QuizRules) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	q.Rules = r
	s.quizzes[quizID] = q
	return nil
}

func (s *Store) QuizByID(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

func (s *Store) QuizByShareToken(_ context.Context, token string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.ShareToken != nil && *q.ShareToken == token {
			return q, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *Store) QuizzesByOwner(_ context.Context, ownerID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Quiz
	for _, q := range s.quizzes {
		if q.OwnerID == ownerID {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteQuiz(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	delete(s.questions, id)
	delete(s.attempts, id)
	delete(s.leaderboards, id)
	return nil
}

func (s *Store) InsertQuestions(_ context.Context, qs []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		s.questions[q.QuizID] = append(s.questions[q.QuizID], q)
	}
	return nil
}

func (s *Store) DeleteQuestions(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, quizID)
	return nil
}

func (s *Store) QuestionsByQuiz(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.Question(nil), s.questions[quizID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (s *Store) CountQuestions(_ context.Context, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions[quizID]), nil
}

func (s *Store) InsertAttempt(_ context.Context, a *domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CompletedAt.IsZero() {
		a.CompletedAt = s.now()
	}
	s.attempts[a.QuizID] = append(s.attempts[a.QuizID], *a)
	return nil
}

func (s *Store) AttemptsByQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.Attempt(nil), s.attempts[quizID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *Store) CountParticipantAttempts(_ context.Context, quizID, participant string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.attempts[quizID] {
		if a.ParticipantName == participant {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteAttempt(_ context.Context, quizID, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempts := s.attempts[quizID]
	for i, a := range attempts {
		if a.ID == attemptID {
			s.attempts[quizID] = append(attempts[:i:i], attempts[i+1:]...)
			return nil
		}
	}
	return domain.ErrAttemptNotFound
}

func (s *Store) DeleteParticipantAttempts(_ context.Context, quizID, participant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.Attempt
	for _, a := range s.attempts[quizID] {
		if a.ParticipantName != participant {
			kept = append(kept, a)
		}
	}
	s.attempts[quizID] = kept
	return nil
}

func (s *Store) UpsertLeaderboardEntry(_ context.Context, e *domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.leaderboards[e.QuizID]
	if !ok {
		board = make(map[string]domain.LeaderboardEntry)
		s.leaderboards[e.QuizID] = board
	}
	if existing, ok := board[e.ParticipantName]; ok {
		e.ID = existing.ID
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = s.now()
	}
	board[e.ParticipantName] = *e
	return nil
}

func (s *Store) LeaderboardByQuiz(_ context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LeaderboardEntry
	for _, e := range s.leaderboards[quizID] {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TimeTakenSeconds < out[j].TimeTakenSeconds
	})
	return out, nil
}

func (s *Store) ClearLeaderboard(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leaderboards, quizID)
	return nil
}
