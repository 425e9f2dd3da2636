package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quizlytic-service/internal/app"
	"quizlytic-service/internal/domain"
	"quizlytic-service/internal/infra/memory"
)

func historyFixture(t *testing.T) (*memory.Store, *app.HistoryService, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	quiz := domain.Quiz{ID: "quiz-1", OwnerID: "owner-1", Title: "Geography Sprint"}
	if err := store.InsertQuiz(ctx, &quiz); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	attempts := []domain.Attempt{
		{ID: "a1", QuizID: "quiz-1", ParticipantName: "Alice", Score: 3, TotalQuestions: 5, TimeTakenSeconds: 272, CompletedAt: base},
		{ID: "a2", QuizID: "quiz-1", ParticipantName: "Bob", Score: 5, TotalQuestions: 5, TimeTakenSeconds: 180, TabSwitchCount: 1, CompletedAt: base.Add(time.Hour)},
		{ID: "a3", QuizID: "quiz-1", ParticipantName: "Alice", Score: 4, TotalQuestions: 5, TimeTakenSeconds: 240, CompletedAt: base.Add(2 * time.Hour)},
	}
	for i := range attempts {
		if err := store.InsertAttempt(ctx, &attempts[i]); err != nil {
			t.Fatalf("insert attempt: %v", err)
		}
	}
	return store, app.NewHistoryService(store), "quiz-1"
}

func TestHistoryGroupsByParticipant(t *testing.T) {
	ctx := context.Background()
	_, history, quizID := historyFixture(t)

	page, err := history.History(ctx, "owner-1", quizID, app.HistoryQuery{})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if page.TotalAttempts != 3 || len(page.Groups) != 2 {
		t.Fatalf("expected 3 attempts in 2 groups, got %+v", page)
	}
	// Latest-first sort puts Alice's newest attempt ahead, so she groups first.
	if page.Groups[0].Name != "Alice" || len(page.Groups[0].Attempts) != 2 {
		t.Fatalf("expected Alice first with 2 attempts, got %+v", page.Groups[0])
	}
	first := page.Groups[0].Attempts[0]
	if first.ID != "a3" || !first.IsLatest {
		t.Fatalf("expected a3 marked latest, got %+v", first)
	}
	if page.Groups[0].Attempts[1].IsLatest {
		t.Fatalf("older attempt must not carry the latest badge")
	}
	if first.Percent != 80 || first.TimeTaken != "4m 0s" {
		t.Fatalf("unexpected derived fields: %+v", first)
	}
}

func TestHistoryBadgeReadsLeaderboardProjection(t *testing.T) {
	ctx := context.Background()
	store, history, quizID := historyFixture(t)

	// Projection deliberately disagrees with the attempt log: it still holds
	// Alice's 3/5 run even though her newest logged attempt scored 4.
	entry := domain.LeaderboardEntry{
		ID:              "l1",
		QuizID:          quizID,
		ParticipantName: "Alice",
		Score:           3,
		CorrectCount:    3,
		TotalQuestions:  5,
	}
	if err := store.UpsertLeaderboardEntry(ctx, &entry); err != nil {
		t.Fatalf("seed leaderboard: %v", err)
	}

	page, err := history.History(ctx, "owner-1", quizID, app.HistoryQuery{})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	alice := page.Groups[0]
	if alice.Name != "Alice" || alice.Latest == nil {
		t.Fatalf("expected Alice with a leaderboard badge, got %+v", alice)
	}
	if alice.Latest.CorrectCount != 3 || alice.Latest.TotalQuestions != 5 {
		t.Fatalf("badge must come from the stored entry, got %+v", alice.Latest)
	}

	// Deleting the newest attempt must not move the badge; it is a
	// projection, not a recomputation.
	if err := history.DeleteAttempt(ctx, "owner-1", quizID, "a3"); err != nil {
		t.Fatalf("delete attempt: %v", err)
	}
	page, err = history.History(ctx, "owner-1", quizID, app.HistoryQuery{})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, g := range page.Groups {
		if g.Name != "Alice" {
			if g.Latest != nil {
				t.Fatalf("participant %s has no leaderboard entry, got badge %+v", g.Name, g.Latest)
			}
			continue
		}
		if g.Latest == nil || g.Latest.CorrectCount != 3 {
			t.Fatalf("badge changed after attempt delete: %+v", g.Latest)
		}
	}
}

func TestHistorySortHighest(t *testing.T) {
	ctx := context.Background()
	_, history, quizID := historyFixture(t)

	page, err := history.History(ctx, "owner-1", quizID, app.HistoryQuery{Sort: app.SortHighest})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if page.Groups[0].Name != "Bob" {
		t.Fatalf("expected Bob's perfect score to lead, got %+v", page.Groups[0])
	}
	if !page.Groups[0].Attempts[0].TabSwitched {
		t.Fatalf("expected tab switch flag on Bob's attempt")
	}
}

func TestHistoryFilterIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	_, history, quizID := historyFixture(t)

	page, err := history.History(ctx, "owner-1", quizID, app.HistoryQuery{Filter: "aLiCe"})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(page.Groups) != 1 || page.Groups[0].Name != "Alice" || page.TotalAttempts != 2 {
		t.Fatalf("expected only Alice's attempts, got %+v", page)
	}

	empty, err := history.History(ctx, "owner-1", quizID, app.HistoryQuery{Filter: "nobody"})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if empty.TotalAttempts != 0 {
		t.Fatalf("expected no matches, got %+v", empty)
	}
}

func TestHistoryRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	_, history, quizID := historyFixture(t)

	if _, err := history.History(ctx, "intruder", quizID, app.HistoryQuery{}); !errors.Is(err, domain.ErrNotQuizOwner) {
		t.Fatalf("expected ownership error, got %v", err)
	}
	if _, err := history.ExportCSV(ctx, "intruder", quizID); !errors.Is(err, domain.ErrNotQuizOwner) {
		t.Fatalf("expected ownership error on export, got %v", err)
	}
}

func TestParticipantAttempts(t *testing.T) {
	ctx := context.Background()
	_, history, quizID := historyFixture(t)

	views, err := history.ParticipantAttempts(ctx, "owner-1", quizID, "Alice")
	if err != nil {
		t.Fatalf("participant attempts failed: %v", err)
	}
	if len(views) != 2 || views[0].ID != "a3" {
		t.Fatalf("expected Alice's attempts newest first, got %+v", views)
	}
}

func TestDeleteAttemptAndParticipant(t *testing.T) {
	ctx := context.Background()
	store, history, quizID := historyFixture(t)

	if err := history.DeleteAttempt(ctx, "owner-1", quizID, "a1"); err != nil {
		t.Fatalf("delete attempt failed: %v", err)
	}
	if err := history.DeleteAttempt(ctx, "owner-1", quizID, "a1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not-found on repeat delete, got %v", err)
	}

	if err := history.DeleteParticipantAttempts(ctx, "owner-1", quizID, "Alice"); err != nil {
		t.Fatalf("delete participant failed: %v", err)
	}
	remaining, _ := store.AttemptsByQuiz(ctx, quizID)
	if len(remaining) != 1 || remaining[0].ParticipantName != "Bob" {
		t.Fatalf("expected only Bob's attempt left, got %+v", remaining)
	}
}

func TestClearLeaderboard(t *testing.T) {
	ctx := context.Background()
	store, history, quizID := historyFixture(t)

	entry := domain.LeaderboardEntry{ID: "l1", QuizID: quizID, ParticipantName: "Alice", Score: 4}
	if err := store.UpsertLeaderboardEntry(ctx, &entry); err != nil {
		t.Fatalf("seed leaderboard: %v", err)
	}
	if err := history.ClearLeaderboard(ctx, "owner-1", quizID); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	lb, _ := history.Leaderboard(ctx, "owner-1", quizID)
	if len(lb) != 0 {
		t.Fatalf("expected empty board, got %+v", lb)
	}
}

func TestExportCSVQuotesEveryField(t *testing.T) {
	ctx := context.Background()
	store, history, quizID := historyFixture(t)

	tricky := domain.Attempt{
		ID:              "a4",
		QuizID:          quizID,
		ParticipantName: `Quote "Master"`,
		Score:           2.5,
		TotalQuestions:  5,
		CompletedAt:     time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC),
	}
	if err := store.InsertAttempt(ctx, &tricky); err != nil {
		t.Fatalf("insert attempt: %v", err)
	}

	csv, err := history.ExportCSV(ctx, "owner-1", quizID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d lines", len(lines))
	}
	if lines[0] != `"Name","Score","Total Questions","Time Taken","Tab Switches","Completed At"` {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	// Newest attempt first; embedded quotes are doubled.
	if !strings.Contains(lines[1], `"Quote ""Master"""`) || !strings.Contains(lines[1], `"2.5"`) {
		t.Fatalf("unexpected first row: %s", lines[1])
	}
}

func TestExportCSVEmptyHistoryProducesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	quiz := domain.Quiz{ID: "quiz-empty", OwnerID: "owner-1", Title: "Unattempted"}
	if err := store.InsertQuiz(ctx, &quiz); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}

	csv, err := app.NewHistoryService(store).ExportCSV(ctx, "owner-1", "quiz-empty")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if csv != "" {
		t.Fatalf("expected no export for an attempt-less quiz, got %q", csv)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{0: "0m 0s", 59: "0m 59s", 60: "1m 0s", 272: "4m 32s"}
	for in, want := range cases {
		if got := app.FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}
