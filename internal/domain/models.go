package domain

import "time"

// OptionCount is the fixed number of answer options per question (labeled A-D).
const OptionCount = 4

// User is an authenticated quiz author. Attempt participants are free-text
// names and are not tied to a User.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Quiz is an owned collection of questions plus the rule set governing
// attempts. ShareToken is nil when the quiz has never been shared.
type Quiz struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"user_id"`
	Title      string    `json:"title"`
	ShareToken *string   `json:"share_token"`
	CreatedAt  time.Time `json:"created_at"`
	Rules      QuizRules `json:"rules"`

	// QuestionCount is derived from the question rows, never stored.
	QuestionCount int `json:"question_count,omitempty"`
}

// Question is a single MCQ with exactly 4 ordered options.
type Question struct {
	ID                 string   `json:"id"`
	QuizID             string   `json:"quiz_id"`
	Text               string   `json:"question_text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	OrderNum           int      `json:"order_num"`
}

// Attempt is one completed run of a quiz by a participant. Score is fractional
// when negative marking applies.
type Attempt struct {
	ID               string    `json:"id"`
	QuizID           string    `json:"quiz_id"`
	ParticipantName  string    `json:"participant_name"`
	Score            float64   `json:"score"`
	TotalQuestions   int       `json:"total_questions"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	TabSwitchCount   int       `json:"tab_switch_count"`
	CompletedAt      time.Time `json:"completed_at"`
}

// LeaderboardEntry is the latest-attempt projection for one participant of one
// quiz. It is stored independently of Attempt rows and the two are eventually
// consistent: deleting attempts does not touch the projection and clearing the
// leaderboard does not touch attempts.
type LeaderboardEntry struct {
	ID               string    `json:"id"`
	QuizID           string    `json:"quiz_id"`
	ParticipantName  string    `json:"participant_name"`
	Score            float64   `json:"score"`
	CorrectCount     int       `json:"correct_count"`
	TotalQuestions   int       `json:"total_questions"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}
