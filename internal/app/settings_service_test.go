package app_test

import (
	"context"
	"errors"
	"testing"

	"quizlytic-service/internal/app"
	"quizlytic-service/internal/domain"
	"quizlytic-service/internal/infra/memory"
)

func TestSettingsLoadAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	quiz := domain.Quiz{ID: "quiz-1", OwnerID: "owner-1", Title: "Untouched"}
	if err := store.InsertQuiz(ctx, &quiz); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}

	settings, err := app.NewSettingsService(store).Load(ctx, "owner-1", "quiz-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !settings.SharingEnabled || !settings.ShowAnswers || !settings.LeaderboardEnabled {
		t.Fatalf("expected defaults on, got %+v", settings)
	}
	if settings.TabSwitchWarnings != 2 {
		t.Fatalf("expected 2 warnings by default, got %d", settings.TabSwitchWarnings)
	}
}

func TestSettingsSaveNormalizesAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	quiz := domain.Quiz{ID: "quiz-1", OwnerID: "owner-1", Title: "Tuned"}
	if err := store.InsertQuiz(ctx, &quiz); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	service := app.NewSettingsService(store)

	minutes := 15
	stored, err := service.Save(ctx, "owner-1", "quiz-1", domain.QuizSettings{
		DurationMinutes:        &minutes,
		RetriesEnabled:         false,
		MaxRetries:             9, // stale form value; disabled toggle wins
		SharingEnabled:         true,
		ShowAnswers:            true,
		LeaderboardEnabled:     true,
		TabSwitchWarnings:      2,
		NegativeMarkingEnabled: false,
		NegativeMarkValue:      0.5, // dangling penalty; zeroed on save
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if stored.MaxRetries != 0 || stored.NegativeMarkValue != 0 {
		t.Fatalf("expected dependent values resolved, got %+v", stored)
	}

	loaded, err := service.Load(ctx, "owner-1", "quiz-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.DurationMinutes == nil || *loaded.DurationMinutes != 15 {
		t.Fatalf("expected duration kept, got %+v", loaded.DurationMinutes)
	}
	loaded.DurationMinutes, stored.DurationMinutes = nil, nil
	if loaded != stored {
		t.Fatalf("load/save mismatch:\nstored=%+v\nloaded=%+v", stored, loaded)
	}
}

func TestSettingsRequireOwnership(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	quiz := domain.Quiz{ID: "quiz-1", OwnerID: "owner-1", Title: "Private"}
	if err := store.InsertQuiz(ctx, &quiz); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	service := app.NewSettingsService(store)

	if _, err := service.Load(ctx, "intruder", "quiz-1"); !errors.Is(err, domain.ErrNotQuizOwner) {
		t.Fatalf("expected ownership error, got %v", err)
	}
	if _, err := service.Save(ctx, "intruder", "quiz-1", domain.QuizSettings{TabSwitchWarnings: 2}); !errors.Is(err, domain.ErrNotQuizOwner) {
		t.Fatalf("expected ownership error, got %v", err)
	}
}
