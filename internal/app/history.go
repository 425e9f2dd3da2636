package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"quizlytic-service/internal/domain"
)

// Sort orders accepted by the history view.
const (
	SortLatest  = "latest"
	SortHighest = "highest"
)

// AttemptView decorates a stored attempt with the derived presentation
// fields the history screen shows.
type AttemptView struct {
	domain.Attempt
	Percent     int    `json:"percent"`
	TimeTaken   string `json:"time_taken"`
	TabSwitched bool   `json:"tab_switched"`
	IsLatest    bool   `json:"is_latest"`
}

// ParticipantGroup is one participant's attempts, already ordered by the
// requested sort. Latest is the participant's stored leaderboard entry; it
// is read from the projection, never recomputed from the attempt list, so
// the two can disagree after attempts are deleted.
type ParticipantGroup struct {
	Name     string                   `json:"name"`
	Attempts []AttemptView            `json:"attempts"`
	Latest   *domain.LeaderboardEntry `json:"latest,omitempty"`
}

// HistoryQuery filters and orders the attempt history. An empty filter
// matches everyone; an empty sort defaults to latest-first.
type HistoryQuery struct {
	Filter string
	Sort   string
}

// HistoryPage is the owner's view of a quiz's attempt history.
type HistoryPage struct {
	QuizID        string             `json:"quiz_id"`
	Title         string             `json:"title"`
	TotalAttempts int                `json:"total_attempts"`
	Groups        []ParticipantGroup `json:"groups"`
}

// HistoryService serves the owner-facing results screens: attempt history,
// leaderboard and CSV export, plus the destructive management operations.
type HistoryService struct {
	store Store
}

func NewHistoryService(store Store) *HistoryService {
	return &HistoryService{store: store}
}

// History runs the filter, sort and group pipeline over a quiz's attempts.
// Grouping preserves the order participants first appear in after sorting,
// so the leading group always holds the top attempt of the chosen sort.
func (s *HistoryService) History(ctx context.Context, ownerID, quizID string, q HistoryQuery) (HistoryPage, error) {
	quiz, err := ownedQuiz(ctx, s.store, ownerID, quizID)
	if err != nil {
		return HistoryPage{}, err
	}
	attempts, err := s.store.AttemptsByQuiz(ctx, quizID)
	if err != nil {
		return HistoryPage{}, err
	}
	entries, err := s.store.LeaderboardByQuiz(ctx, quizID)
	if err != nil {
		return HistoryPage{}, err
	}
	projection := make(map[string]domain.LeaderboardEntry, len(entries))
	for _, e := range entries {
		projection[e.ParticipantName] = e
	}

	if filter := strings.ToLower(strings.TrimSpace(q.Filter)); filter != "" {
		var kept []domain.Attempt
		for _, a := range attempts {
			if strings.Contains(strings.ToLower(a.ParticipantName), filter) {
				kept = append(kept, a)
			}
		}
		attempts = kept
	}

	switch q.Sort {
	case SortHighest:
		sort.SliceStable(attempts, func(i, j int) bool {
			return attempts[i].Score > attempts[j].Score
		})
	default: // SortLatest, also the fallback for unknown values
		sort.SliceStable(attempts, func(i, j int) bool {
			return attempts[i].CompletedAt.After(attempts[j].CompletedAt)
		})
	}

	latest := latestAttemptIDs(attempts)

	var order []string
	grouped := make(map[string][]AttemptView)
	for _, a := range attempts {
		if _, seen := grouped[a.ParticipantName]; !seen {
			order = append(order, a.ParticipantName)
		}
		grouped[a.ParticipantName] = append(grouped[a.ParticipantName], attemptView(a, latest[a.ID]))
	}

	page := HistoryPage{
		QuizID:        quizID,
		Title:         quiz.Title,
		TotalAttempts: len(attempts),
		Groups:        make([]ParticipantGroup, 0, len(order)),
	}
	for _, name := range order {
		group := ParticipantGroup{Name: name, Attempts: grouped[name]}
		if e, ok := projection[name]; ok {
			e := e
			group.Latest = &e
		}
		page.Groups = append(page.Groups, group)
	}
	return page, nil
}

// ParticipantAttempts lists one participant's attempts, newest first.
func (s *HistoryService) ParticipantAttempts(ctx context.Context, ownerID, quizID, participant string) ([]AttemptView, error) {
	if _, err := ownedQuiz(ctx, s.store, ownerID, quizID); err != nil {
		return nil, err
	}
	attempts, err := s.store.AttemptsByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	var mine []domain.Attempt
	for _, a := range attempts {
		if a.ParticipantName == participant {
			mine = append(mine, a)
		}
	}
	latest := latestAttemptIDs(mine)

	views := make([]AttemptView, len(mine))
	for i, a := range mine {
		views[i] = attemptView(a, latest[a.ID])
	}
	return views, nil
}

// Leaderboard returns the owner's view of the ranking.
func (s *HistoryService) Leaderboard(ctx context.Context, ownerID, quizID string) ([]domain.LeaderboardEntry, error) {
	if _, err := ownedQuiz(ctx, s.store, ownerID, quizID); err != nil {
		return nil, err
	}
	return s.store.LeaderboardByQuiz(ctx, quizID)
}

// DeleteAttempt removes a single attempt. The leaderboard projection is left
// untouched; it tracks the latest submission, not the attempt log.
func (s *HistoryService) DeleteAttempt(ctx context.Context, ownerID, quizID, attemptID string) error {
	if _, err := ownedQuiz(ctx, s.store, ownerID, quizID); err != nil {
		return err
	}
	return s.store.DeleteAttempt(ctx, quizID, attemptID)
}

// DeleteParticipantAttempts removes every attempt by one participant.
func (s *HistoryService) DeleteParticipantAttempts(ctx context.Context, ownerID, quizID, participant string) error {
	if _, err := ownedQuiz(ctx, s.store, ownerID, quizID); err != nil {
		return err
	}
	return s.store.DeleteParticipantAttempts(ctx, quizID, participant)
}

// ClearLeaderboard wipes the ranking for a quiz.
func (s *HistoryService) ClearLeaderboard(ctx context.Context, ownerID, quizID string) error {
	if _, err := ownedQuiz(ctx, s.store, ownerID, quizID); err != nil {
		return err
	}
	return s.store.ClearLeaderboard(ctx, quizID)
}

// ExportCSV renders the full attempt history as CSV, newest first. Every
// field is quoted, embedded quotes are doubled. A quiz without attempts
// produces no export at all, not a header-only file.
func (s *HistoryService) ExportCSV(ctx context.Context, ownerID, quizID string) (string, error) {
	if _, err := ownedQuiz(ctx, s.store, ownerID, quizID); err != nil {
		return "", err
	}
	attempts, err := s.store.AttemptsByQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	if len(attempts) == 0 {
		return "", nil
	}

	var b strings.Builder
	writeCSVRow(&b, "Name", "Score", "Total Questions", "Time Taken", "Tab Switches", "Completed At")
	for _, a := range attempts {
		writeCSVRow(&b,
			a.ParticipantName,
			strconv.FormatFloat(a.Score, 'f', -1, 64),
			strconv.Itoa(a.TotalQuestions),
			FormatDuration(a.TimeTakenSeconds),
			strconv.Itoa(a.TabSwitchCount),
			a.CompletedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return b.String(), nil
}

// writeCSVRow quotes every field unconditionally; encoding/csv only quotes
// when it must, and the export contract wants uniform quoting.
func writeCSVRow(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// FormatDuration renders seconds as "4m 32s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

func attemptView(a domain.Attempt, isLatest bool) AttemptView {
	return AttemptView{
		Attempt:     a,
		Percent:     scorePercent(a.Score, a.TotalQuestions),
		TimeTaken:   FormatDuration(a.TimeTakenSeconds),
		TabSwitched: a.TabSwitchCount > 0,
		IsLatest:    isLatest,
	}
}

// latestAttemptIDs marks, per participant, the attempt with the newest
// completion time.
func latestAttemptIDs(attempts []domain.Attempt) map[string]bool {
	newest := make(map[string]domain.Attempt)
	for _, a := range attempts {
		if cur, ok := newest[a.ParticipantName]; !ok || a.CompletedAt.After(cur.CompletedAt) {
			newest[a.ParticipantName] = a
		}
	}
	out := make(map[string]bool, len(newest))
	for _, a := range newest {
		out[a.ID] = true
	}
	return out
}
