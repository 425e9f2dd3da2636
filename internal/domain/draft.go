package domain

import (
	"regexp"
	"strings"
)

// QuestionType selects the structure of generated questions.
type QuestionType string

const (
	QuestionTypeMCQ             QuestionType = "MCQ"
	QuestionTypeAssertionReason QuestionType = "Assertion-Reason"
	QuestionTypeMixed           QuestionType = "Mixed"
)

// Difficulty selects the level of generated questions.
type Difficulty string

const (
	DifficultyEasy        Difficulty = "Easy"
	DifficultyMedium      Difficulty = "Medium"
	DifficultyCompetitive Difficulty = "Competitive"
)

// GenerationRequest is the input to the AI generation collaborator.
type GenerationRequest struct {
	Topic          string       `json:"topic"`
	NumQuestions   int          `json:"numQuestions"`
	Mode           string       `json:"mode"`
	QuestionType   QuestionType `json:"questionType"`
	Difficulty     Difficulty   `json:"difficulty"`
	RewriteEnabled bool         `json:"rewriteEnabled"`
}

// ExtractSource is an uploaded document handed to the extraction collaborator.
type ExtractSource struct {
	Filename string
	MIME     string
	Data     []byte
}

// DraftOrigin records which builder produced a draft.
type DraftOrigin interface{ isDraftOrigin() }

// ManualOrigin marks a draft built question by question.
type ManualOrigin struct{}

// AIOrigin marks a draft produced by the generation collaborator.
type AIOrigin struct{ Request GenerationRequest }

// ExtractOrigin marks a draft extracted from an uploaded document.
type ExtractOrigin struct{ Source string }

func (ManualOrigin) isDraftOrigin()  {}
func (AIOrigin) isDraftOrigin()      {}
func (ExtractOrigin) isDraftOrigin() {}

// DraftQuestion is one unsaved question of a draft.
type DraftQuestion struct {
	Text               string   `json:"question_text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
}

// QuizDraft is the in-memory, unsaved output of any authoring builder. All
// three builders reduce to this shape before the shared save path.
type QuizDraft struct {
	Title     string          `json:"title"`
	Questions []DraftQuestion `json:"questions"`
	Origin    DraftOrigin     `json:"-"`
}

// BlankQuestion is the seed question of a manual draft.
func BlankQuestion() DraftQuestion {
	return DraftQuestion{Options: make([]string, OptionCount)}
}

// NewManualDraft starts a draft with a single blank question.
func NewManualDraft() QuizDraft {
	return QuizDraft{
		Questions: []DraftQuestion{BlankQuestion()},
		Origin:    ManualOrigin{},
	}
}

// AddQuestion appends a blank question to the draft.
func (d *QuizDraft) AddQuestion() {
	d.Questions = append(d.Questions, BlankQuestion())
}

// RemoveQuestion drops the question at index i. Removing the last remaining
// question is a no-op: a draft always keeps at least one question.
func (d *QuizDraft) RemoveQuestion(i int) {
	if len(d.Questions) <= 1 || i < 0 || i >= len(d.Questions) {
		return
	}
	d.Questions = append(d.Questions[:i], d.Questions[i+1:]...)
}

// SetCorrectOption marks option o of question q as the single correct answer.
func (d *QuizDraft) SetCorrectOption(q, o int) {
	if q < 0 || q >= len(d.Questions) || o < 0 || o >= OptionCount {
		return
	}
	d.Questions[q].CorrectOptionIndex = o
}

// Validate checks the draft in save order and stops at the first failure:
// title, then per question its text, then its 4 options. Question failures
// carry the 1-based index.
func (d QuizDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Reason: "please enter a quiz title"}
	}
	if len(d.Questions) == 0 {
		return &ValidationError{Reason: "add at least one question"}
	}
	for i, q := range d.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return &ValidationError{Question: i + 1, Reason: "question text is empty"}
		}
		if len(q.Options) != OptionCount {
			return &ValidationError{Question: i + 1, Reason: "question must have exactly 4 options"}
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return &ValidationError{Question: i + 1, Reason: "all options must be filled"}
			}
		}
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= OptionCount {
			return &ValidationError{Question: i + 1, Reason: "correct option index out of range"}
		}
	}
	return nil
}

var reasonMarker = regexp.MustCompile(`\s*Reason:\s*`)

// FormatAssertionReason inserts a line break before "Reason:" when the text
// contains both assertion and reason markers. Rendering transform only; the
// stored text is never rewritten.
func FormatAssertionReason(text string) string {
	if !strings.Contains(text, "Assertion:") || !strings.Contains(text, "Reason:") {
		return text
	}
	return reasonMarker.ReplaceAllString(text, "\nReason: ")
}
