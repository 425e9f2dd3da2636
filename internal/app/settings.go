package app

import (
	"context"
	"fmt"
	"log"

	"quizlytic-service/internal/domain"
)

// SettingsService loads and saves per-quiz rules for the owner. Loading
// applies defaults to partially stored rows; saving normalizes the form and
// writes the complete rule row in one call.
type SettingsService struct {
	store      Store
	invalidate ShareInvalidator
}

func NewSettingsService(store Store) *SettingsService {
	return &SettingsService{store: store}
}

// WithShareInvalidator makes saves evict the quiz from the share cache.
func (s *SettingsService) WithShareInvalidator(inv ShareInvalidator) *SettingsService {
	s.invalidate = inv
	return s
}

// Load returns the quiz's effective settings with every default applied.
func (s *SettingsService) Load(ctx context.Context, ownerID, quizID string) (domain.QuizSettings, error) {
	quiz, err := ownedQuiz(ctx, s.store, ownerID, quizID)
	if err != nil {
		return domain.QuizSettings{}, err
	}
	return domain.SettingsFromRules(quiz.Rules), nil
}

// Save normalizes and persists the settings, returning what was stored.
// Dependent values are resolved before the write: a disabled retry toggle
// persists zero regardless of the ceiling field, a disabled negative-marking
// toggle persists a zero penalty.
func (s *SettingsService) Save(ctx context.Context, ownerID, quizID string, settings domain.QuizSettings) (domain.QuizSettings, error) {
	quiz, err := ownedQuiz(ctx, s.store, ownerID, quizID)
	if err != nil {
		return domain.QuizSettings{}, err
	}
	normalized := settings.Normalize()
	if err := s.store.UpdateQuizRules(ctx, quizID, normalized.Rules()); err != nil {
		return domain.QuizSettings{}, fmt.Errorf("save settings: %w", err)
	}
	if s.invalidate != nil && quiz.ShareToken != nil {
		if err := s.invalidate.InvalidateShareToken(ctx, *quiz.ShareToken); err != nil {
			log.Printf("settings: invalidate share cache for quiz %s: %v", quizID, err)
		}
	}
	return normalized, nil
}
