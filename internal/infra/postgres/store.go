// Package postgres is the production Store implementation on pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizlytic-service/internal/domain"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InsertUser(ctx context.Context, u *domain.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email=$1`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id=$1`, id))
}

func (s *Store) scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

const quizColumns = `id, user_id, title, share_token, created_at,
	duration_minutes, max_retries, sharing_enabled, show_answers,
	prevent_tab_switch, tab_switch_warnings, prevent_copy_paste,
	randomise_questions, leaderboard_enabled, negative_marking_enabled,
	negative_mark_value`

func (s *Store) InsertQuiz(ctx context.Context, q *domain.Quiz) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (id, user_id, title, share_token) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		q.ID, q.OwnerID, q.Title, q.ShareToken,
	).Scan(&q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *Store) UpdateQuizTitle(ctx context.Context, quizID, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET title=$2 WHERE id=$1`, quizID, title)
	if err != nil {
		return fmt.Errorf("update quiz title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) UpdateQuizRules(ctx context.Context, quizID string, r domain.QuizRules) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET
			duration_minutes=$2, max_retries=$3, sharing_enabled=$4, show_answers=$5,
			prevent_tab_switch=$6, tab_switch_warnings=$7, prevent_copy_paste=$8,
			randomise_questions=$9, leaderboard_enabled=$10, negative_marking_enabled=$11,
			negative_mark_value=$12
		WHERE id=$1`,
		quizID, r.DurationMinutes, r.MaxRetries, r.SharingEnabled, r.ShowAnswers,
		r.PreventTabSwitch, r.TabSwitchWarnings, r.PreventCopyPaste,
		r.RandomiseQuestions, r.LeaderboardEnabled, r.NegativeMarkingEnabled,
		r.NegativeMarkValue,
	)
	if err != nil {
		return fmt.Errorf("update quiz rules: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) QuizByID(ctx context.Context, id string) (domain.Quiz, error) {
	return s.scanQuiz(s.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id))
}

func (s *Store) QuizByShareToken(ctx context.Context, token string) (domain.Quiz, error) {
	return s.scanQuiz(s.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE share_token=$1`, token))
}

func (s *Store) QuizzesByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE user_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		quiz, err := s.scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *Store) scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(
		&q.ID, &q.OwnerID, &q.Title, &q.ShareToken, &q.CreatedAt,
		&q.Rules.DurationMinutes, &q.Rules.MaxRetries, &q.Rules.SharingEnabled,
		&q.Rules.ShowAnswers, &q.Rules.PreventTabSwitch, &q.Rules.TabSwitchWarnings,
		&q.Rules.PreventCopyPaste, &q.Rules.RandomiseQuestions, &q.Rules.LeaderboardEnabled,
		&q.Rules.NegativeMarkingEnabled, &q.Rules.NegativeMarkValue,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return q, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) InsertQuestions(ctx context.Context, qs []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range qs {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		batch.Queue(
			`INSERT INTO questions (id, quiz_id, question_text, options, correct_option_index, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, q.QuizID, q.Text, options, q.CorrectOptionIndex, q.OrderNum,
		)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range qs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteQuestions(ctx context.Context, quizID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE quiz_id=$1`, quizID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	return nil
}

func (s *Store) QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, question_text, options, correct_option_index, order_num
		 FROM questions WHERE quiz_id=$1 ORDER BY order_num`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &options, &q.CorrectOptionIndex, &q.OrderNum); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) CountQuestions(ctx context.Context, quizID string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM questions WHERE quiz_id=$1`, quizID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func (s *Store) InsertAttempt(ctx context.Context, a *domain.Attempt) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts
			(id, quiz_id, participant_name, score, total_questions, time_taken_seconds, tab_switch_count, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING completed_at`,
		a.ID, a.QuizID, a.ParticipantName, a.Score, a.TotalQuestions,
		a.TimeTakenSeconds, a.TabSwitchCount, a.CompletedAt,
	).Scan(&a.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Store) AttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, participant_name, score, total_questions, time_taken_seconds, tab_switch_count, completed_at
		 FROM quiz_attempts WHERE quiz_id=$1 ORDER BY completed_at DESC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.QuizID, &a.ParticipantName, &a.Score, &a.TotalQuestions,
			&a.TimeTakenSeconds, &a.TabSwitchCount, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountParticipantAttempts(ctx context.Context, quizID, participant string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM quiz_attempts WHERE quiz_id=$1 AND participant_name=$2`,
		quizID, participant).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteAttempt(ctx context.Context, quizID, attemptID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM quiz_attempts WHERE quiz_id=$1 AND id=$2`, quizID, attemptID)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (s *Store) DeleteParticipantAttempts(ctx context.Context, quizID, participant string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM quiz_attempts WHERE quiz_id=$1 AND participant_name=$2`,
		quizID, participant); err != nil {
		return fmt.Errorf("delete participant attempts: %w", err)
	}
	return nil
}

func (s *Store) UpsertLeaderboardEntry(ctx context.Context, e *domain.LeaderboardEntry) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_leaderboard
			(id, quiz_id, participant_name, score, correct_count, total_questions, time_taken_seconds, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (quiz_id, participant_name) DO UPDATE SET
			score=excluded.score, correct_count=excluded.correct_count,
			total_questions=excluded.total_questions, time_taken_seconds=excluded.time_taken_seconds,
			updated_at=excluded.updated_at
		 RETURNING id`,
		e.ID, e.QuizID, e.ParticipantName, e.Score, e.CorrectCount,
		e.TotalQuestions, e.TimeTakenSeconds, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("upsert leaderboard entry: %w", err)
	}
	return nil
}

func (s *Store) LeaderboardByQuiz(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, participant_name, score, correct_count, total_questions, time_taken_seconds, updated_at
		 FROM quiz_leaderboard WHERE quiz_id=$1 ORDER BY score DESC, time_taken_seconds ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.QuizID, &e.ParticipantName, &e.Score, &e.CorrectCount,
			&e.TotalQuestions, &e.TimeTakenSeconds, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ClearLeaderboard(ctx context.Context, quizID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_leaderboard WHERE quiz_id=$1`, quizID); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	return nil
}
