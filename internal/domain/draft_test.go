package domain

import (
	"errors"
	"testing"
)

func validDraft() QuizDraft {
	return QuizDraft{
		Title: "Biology Chapter 5 Review",
		Questions: []DraftQuestion{
			{
				Text:               "Which organelle runs photosynthesis?",
				Options:            []string{"Chloroplast", "Mitochondrion", "Nucleus", "Ribosome"},
				CorrectOptionIndex: 0,
			},
		},
		Origin: ManualOrigin{},
	}
}

func TestValidateReportsFirstFailure(t *testing.T) {
	d := validDraft()
	d.Title = "  "
	var verr *ValidationError
	if err := d.Validate(); !errors.As(err, &verr) || verr.Question != 0 {
		t.Fatalf("expected title validation error, got %v", err)
	}

	d = validDraft()
	d.AddQuestion()
	d.Questions[1].Text = "Filled"
	d.Questions[1].Options[0] = "A"
	// options 1..3 of question 2 stay empty
	if err := d.Validate(); !errors.As(err, &verr) || verr.Question != 2 {
		t.Fatalf("expected failure on question 2, got %v", err)
	}

	d = validDraft()
	d.AddQuestion()
	if err := d.Validate(); !errors.As(err, &verr) || verr.Question != 2 {
		t.Fatalf("expected empty text reported for question 2, got %v", err)
	}

	if err := validDraft().Validate(); err != nil {
		t.Fatalf("valid draft must pass, got %v", err)
	}
}

func TestRemoveQuestionKeepsMinimumOne(t *testing.T) {
	d := NewManualDraft()
	d.RemoveQuestion(0)
	if len(d.Questions) != 1 {
		t.Fatalf("removal below one question must be a no-op, got %d", len(d.Questions))
	}

	d.AddQuestion()
	d.RemoveQuestion(0)
	if len(d.Questions) != 1 {
		t.Fatalf("expected one question left, got %d", len(d.Questions))
	}
}

func TestSetCorrectOptionIsExclusive(t *testing.T) {
	d := NewManualDraft()
	d.SetCorrectOption(0, 2)
	if d.Questions[0].CorrectOptionIndex != 2 {
		t.Fatalf("expected option 2 marked correct, got %d", d.Questions[0].CorrectOptionIndex)
	}
	d.SetCorrectOption(0, 7)
	if d.Questions[0].CorrectOptionIndex != 2 {
		t.Fatalf("out-of-range option must be ignored, got %d", d.Questions[0].CorrectOptionIndex)
	}
}

func TestFormatAssertionReason(t *testing.T) {
	in := "Assertion: Plants are green. Reason: Chlorophyll absorbs red light."
	want := "Assertion: Plants are green.\nReason: Chlorophyll absorbs red light."
	if got := FormatAssertionReason(in); got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	plain := "What is the capital of France?"
	if got := FormatAssertionReason(plain); got != plain {
		t.Fatalf("plain MCQ text must be untouched, got %q", got)
	}
}
