package app

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizlytic-service/internal/domain"
)

// AttemptQuestion is a question as shown to a participant: the correct
// option index never leaves the server before submission.
type AttemptQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"question_text"`
	Options []string `json:"options"`
}

// AttemptStart is the participant's view of a quiz at the moment they begin.
type AttemptStart struct {
	QuizID          string              `json:"quiz_id"`
	Title           string              `json:"title"`
	Settings        domain.QuizSettings `json:"settings"`
	Questions       []AttemptQuestion   `json:"questions"`
	AttemptsUsed    int                 `json:"attempts_used"`
	AttemptsAllowed int                 `json:"attempts_allowed"`
}

// AttemptSubmission carries the participant's answers. Answers maps question
// ID to the selected option index; unanswered questions are simply absent.
type AttemptSubmission struct {
	ParticipantName  string         `json:"participant_name"`
	Answers          map[string]int `json:"answers"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	TabSwitchCount   int            `json:"tab_switch_count"`
}

// AttemptResult is returned after scoring. CorrectAnswers is populated only
// when the quiz reveals answers after submission.
type AttemptResult struct {
	Attempt        domain.Attempt `json:"attempt"`
	CorrectCount   int            `json:"correct_count"`
	Percent        int            `json:"percent"`
	CorrectAnswers map[string]int `json:"correct_answers,omitempty"`
}

// AttemptService runs the public share-link flow: start, score, persist and
// fan out leaderboard updates to live subscribers.
type AttemptService struct {
	store  Store
	shares ShareResolver

	mu     sync.Mutex
	boards map[string]*board

	newID   func() string
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func NewAttemptService(store Store, shares ShareResolver) *AttemptService {
	if shares == nil {
		shares = store
	}
	return &AttemptService{
		store:   store,
		shares:  shares,
		boards:  make(map[string]*board),
		newID:   uuid.NewString,
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
}

// StartAttempt resolves a share token and returns the participant's view of
// the quiz. The retry ceiling is checked here so a blocked participant never
// sees the questions.
func (s *AttemptService) StartAttempt(ctx context.Context, token, participant string) (AttemptStart, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return AttemptStart{}, domain.InputError("participant name is required")
	}

	quiz, settings, err := s.resolveShared(ctx, token)
	if err != nil {
		return AttemptStart{}, err
	}

	used, err := s.store.CountParticipantAttempts(ctx, quiz.ID, participant)
	if err != nil {
		return AttemptStart{}, err
	}
	if used >= settings.AttemptsAllowed() {
		return AttemptStart{}, domain.ErrRetryLimitReached
	}

	questions, err := s.store.QuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		return AttemptStart{}, err
	}
	if settings.RandomiseQuestions {
		s.shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	view := make([]AttemptQuestion, len(questions))
	for i, q := range questions {
		view[i] = AttemptQuestion{ID: q.ID, Text: q.Text, Options: q.Options}
	}
	return AttemptStart{
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		Settings:        settings,
		Questions:       view,
		AttemptsUsed:    used,
		AttemptsAllowed: settings.AttemptsAllowed(),
	}, nil
}

// SubmitAttempt scores the submission server-side, persists the attempt,
// refreshes the participant's leaderboard entry and notifies subscribers.
func (s *AttemptService) SubmitAttempt(ctx context.Context, token string, sub AttemptSubmission) (AttemptResult, error) {
	participant := strings.TrimSpace(sub.ParticipantName)
	if participant == "" {
		return AttemptResult{}, domain.InputError("participant name is required")
	}

	quiz, settings, err := s.resolveShared(ctx, token)
	if err != nil {
		return AttemptResult{}, err
	}

	if settings.DurationMinutes != nil && sub.TimeTakenSeconds > *settings.DurationMinutes*60 {
		return AttemptResult{}, domain.ErrTimeLimitExceeded
	}

	used, err := s.store.CountParticipantAttempts(ctx, quiz.ID, participant)
	if err != nil {
		return AttemptResult{}, err
	}
	if used >= settings.AttemptsAllowed() {
		return AttemptResult{}, domain.ErrRetryLimitReached
	}

	questions, err := s.store.QuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		return AttemptResult{}, err
	}

	correct, wrong := 0, 0
	for _, q := range questions {
		selected, answered := sub.Answers[q.ID]
		if !answered || selected < 0 {
			continue
		}
		if selected == q.CorrectOptionIndex {
			correct++
		} else {
			wrong++
		}
	}
	score := float64(correct) - float64(wrong)*settings.NegativeMarkValue
	if score < 0 {
		score = 0
	}

	attempt := domain.Attempt{
		ID:               s.newID(),
		QuizID:           quiz.ID,
		ParticipantName:  participant,
		Score:            score,
		TotalQuestions:   len(questions),
		TimeTakenSeconds: sub.TimeTakenSeconds,
		TabSwitchCount:   sub.TabSwitchCount,
		CompletedAt:      s.now(),
	}
	if err := s.store.InsertAttempt(ctx, &attempt); err != nil {
		return AttemptResult{}, fmt.Errorf("save attempt: %w", err)
	}

	if settings.LeaderboardEnabled {
		entry := domain.LeaderboardEntry{
			ID:               s.newID(),
			QuizID:           quiz.ID,
			ParticipantName:  participant,
			Score:            score,
			CorrectCount:     correct,
			TotalQuestions:   len(questions),
			TimeTakenSeconds: sub.TimeTakenSeconds,
			UpdatedAt:        attempt.CompletedAt,
		}
		if err := s.store.UpsertLeaderboardEntry(ctx, &entry); err != nil {
			return AttemptResult{}, fmt.Errorf("update leaderboard: %w", err)
		}
		s.broadcast(ctx, quiz.ID)
	}

	result := AttemptResult{
		Attempt:      attempt,
		CorrectCount: correct,
		Percent:      scorePercent(score, len(questions)),
	}
	if settings.ShowAnswers {
		result.CorrectAnswers = make(map[string]int, len(questions))
		for _, q := range questions {
			result.CorrectAnswers[q.ID] = q.CorrectOptionIndex
		}
	}
	return result, nil
}

// Leaderboard returns the current ranking for a shared quiz.
func (s *AttemptService) Leaderboard(ctx context.Context, token string) ([]domain.LeaderboardEntry, error) {
	quiz, settings, err := s.resolveShared(ctx, token)
	if err != nil {
		return nil, err
	}
	if !settings.LeaderboardEnabled {
		return []domain.LeaderboardEntry{}, nil
	}
	return s.store.LeaderboardByQuiz(ctx, quiz.ID)
}

// Subscribe returns a channel receiving leaderboard snapshots for a quiz,
// starting with the current state. The caller must invoke cancel.
func (s *AttemptService) Subscribe(ctx context.Context, quizID string) (<-chan []domain.LeaderboardEntry, func(), error) {
	if _, err := s.store.QuizByID(ctx, quizID); err != nil {
		return nil, nil, err
	}
	initial, err := s.store.LeaderboardByQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	b, ok := s.boards[quizID]
	if !ok {
		b = newBoard()
		s.boards[quizID] = b
	}
	s.mu.Unlock()

	ch, cancel := b.subscribe(initial)
	return ch, cancel, nil
}

func (s *AttemptService) resolveShared(ctx context.Context, token string) (domain.Quiz, domain.QuizSettings, error) {
	quiz, err := s.shares.QuizByShareToken(ctx, token)
	if err != nil {
		return domain.Quiz{}, domain.QuizSettings{}, err
	}
	settings := domain.SettingsFromRules(quiz.Rules)
	if !settings.SharingEnabled {
		return domain.Quiz{}, domain.QuizSettings{}, domain.ErrSharingDisabled
	}
	return quiz, settings, nil
}

func (s *AttemptService) broadcast(ctx context.Context, quizID string) {
	s.mu.Lock()
	b, ok := s.boards[quizID]
	s.mu.Unlock()
	if !ok {
		return
	}
	entries, err := s.store.LeaderboardByQuiz(ctx, quizID)
	if err != nil {
		return
	}
	b.publish(entries)
}

func scorePercent(score float64, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(score / float64(total) * 100))
}

// board fans leaderboard snapshots out to live subscribers for one quiz.
type board struct {
	mu          sync.Mutex
	subscribers map[chan []domain.LeaderboardEntry]struct{}
}

func newBoard() *board {
	return &board{subscribers: make(map[chan []domain.LeaderboardEntry]struct{})}
}

func (b *board) subscribe(initial []domain.LeaderboardEntry) (<-chan []domain.LeaderboardEntry, func()) {
	ch := make(chan []domain.LeaderboardEntry, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *board) publish(entries []domain.LeaderboardEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- entries:
		default:
			// Drop the stale snapshot so a slow client never blocks the rest.
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
}
