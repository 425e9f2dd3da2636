package app

import (
	"context"

	"quizlytic-service/internal/domain"
)

// UserStore persists author accounts.
type UserStore interface {
	InsertUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
}

// QuizStore persists quizzes and their rule sets. UpdateQuizRules overwrites
// the complete rule row in one call; there is no partial patch.
type QuizStore interface {
	InsertQuiz(ctx context.Context, q *domain.Quiz) error
	UpdateQuizTitle(ctx context.Context, quizID, title string) error
	UpdateQuizRules(ctx context.Context, quizID string, r domain.QuizRules) error
	QuizByID(ctx context.Context, id string) (domain.Quiz, error)
	QuizByShareToken(ctx context.Context, token string) (domain.Quiz, error)
	QuizzesByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error
}

// QuestionStore persists the ordered question set of a quiz. Edits use
// replace-all semantics: DeleteQuestions then InsertQuestions, deliberately
// exposed as two steps (see the authoring service).
type QuestionStore interface {
	InsertQuestions(ctx context.Context, qs []domain.Question) error
	DeleteQuestions(ctx context.Context, quizID string) error
	QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error)
	CountQuestions(ctx context.Context, quizID string) (int, error)
}

// AttemptStore persists completed attempts. AttemptsByQuiz returns newest
// first.
type AttemptStore interface {
	InsertAttempt(ctx context.Context, a *domain.Attempt) error
	AttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
	CountParticipantAttempts(ctx context.Context, quizID, participant string) (int, error)
	DeleteAttempt(ctx context.Context, quizID, attemptID string) error
	DeleteParticipantAttempts(ctx context.Context, quizID, participant string) error
}

// LeaderboardStore persists the per-participant latest-attempt projection.
// LeaderboardByQuiz returns entries ranked score descending, time ascending.
type LeaderboardStore interface {
	UpsertLeaderboardEntry(ctx context.Context, e *domain.LeaderboardEntry) error
	LeaderboardByQuiz(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error)
	ClearLeaderboard(ctx context.Context, quizID string) error
}

// Store is the full persistence surface. Deleting a quiz cascades to its
// questions, attempts and leaderboard entries inside the store.
type Store interface {
	UserStore
	QuizStore
	QuestionStore
	AttemptStore
	LeaderboardStore
}

// ShareResolver looks a quiz up by share token. The redis cache implements
// this in front of the store.
type ShareResolver interface {
	QuizByShareToken(ctx context.Context, token string) (domain.Quiz, error)
}

// ShareInvalidator drops a cached share-token resolution after a write, so
// rule or content changes reach participants before the cache TTL expires.
type ShareInvalidator interface {
	InvalidateShareToken(ctx context.Context, token string) error
}

// ownedQuiz loads a quiz and verifies the caller owns it.
func ownedQuiz(ctx context.Context, quizzes QuizStore, ownerID, quizID string) (domain.Quiz, error) {
	quiz, err := quizzes.QuizByID(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != ownerID {
		return domain.Quiz{}, domain.ErrNotQuizOwner
	}
	return quiz, nil
}
