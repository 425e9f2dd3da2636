package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quizlytic-service/internal/domain"
)

const (
	minGeneratedQuestions = 1
	maxGeneratedQuestions = 20
)

// DraftGenerator is the AI generation collaborator: one request/response
// operation returning a draft or an error.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, req domain.GenerationRequest) (domain.QuizDraft, error)
}

// DraftExtractor is the document extraction collaborator. Its output must
// conform to the same draft shape before it reaches the editor.
type DraftExtractor interface {
	ExtractDraft(ctx context.Context, src domain.ExtractSource) (domain.QuizDraft, error)
}

// AuthoringService owns the builder entry points and the shared save path.
// All three builders (manual, AI, extraction) converge on a QuizDraft; a
// draft only reaches the store after Validate passes.
type AuthoringService struct {
	store      Store
	generator  DraftGenerator
	extractor  DraftExtractor
	invalidate ShareInvalidator
	newID      func() string
}

func NewAuthoringService(store Store, generator DraftGenerator, extractor DraftExtractor) *AuthoringService {
	return &AuthoringService{
		store:     store,
		generator: generator,
		extractor: extractor,
		newID:     uuid.NewString,
	}
}

// WithShareInvalidator makes content edits evict the quiz from the share
// cache.
func (s *AuthoringService) WithShareInvalidator(inv ShareInvalidator) *AuthoringService {
	s.invalidate = inv
	return s
}

// Generate calls the AI collaborator and validates the returned draft shape.
// A malformed response never reaches the editor.
func (s *AuthoringService) Generate(ctx context.Context, req domain.GenerationRequest) (domain.QuizDraft, error) {
	if s.generator == nil {
		return domain.QuizDraft{}, domain.InputError("AI generation is not configured")
	}
	if strings.TrimSpace(req.Topic) == "" {
		return domain.QuizDraft{}, domain.InputError("please enter a topic")
	}
	if req.NumQuestions < minGeneratedQuestions {
		req.NumQuestions = 5
	}
	if req.NumQuestions > maxGeneratedQuestions {
		req.NumQuestions = maxGeneratedQuestions
	}
	if req.QuestionType == "" {
		req.QuestionType = domain.QuestionTypeMCQ
	}
	if req.Difficulty == "" {
		req.Difficulty = domain.DifficultyMedium
	}

	draft, err := s.generator.GenerateDraft(ctx, req)
	if err != nil {
		return domain.QuizDraft{}, err
	}
	if err := checkDraftShape(draft); err != nil {
		return domain.QuizDraft{}, err
	}
	draft.Origin = domain.AIOrigin{Request: req}
	log.Printf("generated draft %q with %d questions", draft.Title, len(draft.Questions))
	return draft, nil
}

// Extract runs the document extraction collaborator and validates its output
// against the shared draft shape.
func (s *AuthoringService) Extract(ctx context.Context, src domain.ExtractSource) (domain.QuizDraft, error) {
	if s.extractor == nil {
		return domain.QuizDraft{}, domain.InputError("document extraction is not configured")
	}
	if len(src.Data) == 0 {
		return domain.QuizDraft{}, domain.InputError("no document uploaded")
	}
	draft, err := s.extractor.ExtractDraft(ctx, src)
	if err != nil {
		return domain.QuizDraft{}, err
	}
	if err := checkDraftShape(draft); err != nil {
		return domain.QuizDraft{}, err
	}
	draft.Origin = domain.ExtractOrigin{Source: src.Filename}
	return draft, nil
}

// checkDraftShape guards the editor hand-off: a collaborator response
// without a title and a non-empty 4-option question list is rejected.
func checkDraftShape(d domain.QuizDraft) error {
	if d.Title == "" || len(d.Questions) == 0 {
		return domain.ErrInvalidAIResponse
	}
	for _, q := range d.Questions {
		if len(q.Options) != domain.OptionCount || q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= domain.OptionCount {
			return domain.ErrInvalidAIResponse
		}
	}
	return nil
}

// CreateQuiz validates the draft and saves it: quiz row first, then the
// questions in bulk with order_num = array index. A failure between the two
// writes leaves the quiz without questions; no rollback is attempted and the
// question-write error is surfaced as-is.
func (s *AuthoringService) CreateQuiz(ctx context.Context, ownerID string, draft domain.QuizDraft) (domain.Quiz, error) {
	if err := draft.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	token := s.newID()
	quiz := domain.Quiz{
		ID:         s.newID(),
		OwnerID:    ownerID,
		Title:      draft.Title,
		ShareToken: &token,
	}
	if err := s.store.InsertQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	if err := s.store.InsertQuestions(ctx, s.questionRows(quiz.ID, draft)); err != nil {
		return domain.Quiz{}, fmt.Errorf("save questions: %w", err)
	}
	quiz.QuestionCount = len(draft.Questions)
	return quiz, nil
}

// UpdateQuiz validates the draft and applies replace-all semantics: update
// the title, delete every existing question, reinsert the new set. The three
// steps are not transactional; a failure mid-sequence leaves the quiz with
// stale or missing questions and only that step's error is reported.
func (s *AuthoringService) UpdateQuiz(ctx context.Context, ownerID, quizID string, draft domain.QuizDraft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	quiz, err := ownedQuiz(ctx, s.store, ownerID, quizID)
	if err != nil {
		return err
	}

	if err := s.store.UpdateQuizTitle(ctx, quizID, draft.Title); err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if err := s.store.DeleteQuestions(ctx, quizID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	if err := s.store.InsertQuestions(ctx, s.questionRows(quizID, draft)); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	s.evictShare(ctx, quiz)
	return nil
}

func (s *AuthoringService) evictShare(ctx context.Context, quiz domain.Quiz) {
	if s.invalidate == nil || quiz.ShareToken == nil {
		return
	}
	if err := s.invalidate.InvalidateShareToken(ctx, *quiz.ShareToken); err != nil {
		log.Printf("authoring: invalidate share cache for quiz %s: %v", quiz.ID, err)
	}
}

func (s *AuthoringService) questionRows(quizID string, draft domain.QuizDraft) []domain.Question {
	rows := make([]domain.Question, len(draft.Questions))
	for i, q := range draft.Questions {
		rows[i] = domain.Question{
			ID:                 s.newID(),
			QuizID:             quizID,
			Text:               q.Text,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
			OrderNum:           i,
		}
	}
	return rows
}

// ListQuizzes returns the owner's quizzes newest first, each with its derived
// question count. Counts are fetched concurrently and joined all-or-nothing:
// one failed count fails the listing.
func (s *AuthoringService) ListQuizzes(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	quizzes, err := s.store.QuizzesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range quizzes {
		i := i
		g.Go(func() error {
			count, err := s.store.CountQuestions(gctx, quizzes[i].ID)
			if err != nil {
				return err
			}
			quizzes[i].QuestionCount = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	return quizzes, nil
}

// QuizForEdit loads a quiz with its ordered questions as an editable draft.
// Question text is returned verbatim; the assertion/reason line break is a
// rendering concern (domain.FormatAssertionReason).
func (s *AuthoringService) QuizForEdit(ctx context.Context, ownerID, quizID string) (domain.Quiz, domain.QuizDraft, error) {
	quiz, err := ownedQuiz(ctx, s.store, ownerID, quizID)
	if err != nil {
		return domain.Quiz{}, domain.QuizDraft{}, err
	}
	questions, err := s.store.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, domain.QuizDraft{}, err
	}

	draft := domain.QuizDraft{Title: quiz.Title, Origin: domain.ManualOrigin{}}
	for _, q := range questions {
		draft.Questions = append(draft.Questions, domain.DraftQuestion{
			Text:               q.Text,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
		})
	}
	quiz.QuestionCount = len(questions)
	return quiz, draft, nil
}

// DeleteQuiz removes the quiz; questions, attempts and leaderboard entries go
// with it (store-level cascade).
func (s *AuthoringService) DeleteQuiz(ctx context.Context, ownerID, quizID string) error {
	quiz, err := ownedQuiz(ctx, s.store, ownerID, quizID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.evictShare(ctx, quiz)
	return nil
}

// ShareLink builds the public attempt URL for a quiz, or "" when the quiz has
// no share token.
func ShareLink(origin string, quiz domain.Quiz) string {
	if quiz.ShareToken == nil || *quiz.ShareToken == "" {
		return ""
	}
	return strings.TrimSuffix(origin, "/") + "/quiz/share/" + *quiz.ShareToken
}
