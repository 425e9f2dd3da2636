// Package openai backs the AI builder and document extraction with the
// OpenAI chat completions API. Both operations force a tool call so the
// model's output arrives as structured JSON instead of free text.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"quizlytic-service/internal/domain"
)

const submitQuizTool = "submit_quiz"

// Client implements draft generation and extraction.
type Client struct {
	api   *openai.Client
	model string
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT4o
	}
	return &Client{api: openai.NewClient(apiKey), model: model}
}

// GenerateDraft asks the model for a quiz on the given topic and parses the
// forced tool call into a draft.
func (c *Client) GenerateDraft(ctx context.Context, req domain.GenerationRequest) (domain.QuizDraft, error) {
	log.Printf("openai: generating %d %s questions on %q", req.NumQuestions, req.QuestionType, req.Topic)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert quiz author. Write high-quality multiple choice questions with exactly 4 options each.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: generationPrompt(req),
			},
		},
		Tools:      []openai.Tool{quizTool()},
		ToolChoice: forcedQuizTool(),
	})
	if err != nil {
		return domain.QuizDraft{}, fmt.Errorf("generate quiz: %w", err)
	}
	return parseQuizToolCall(resp)
}

// ExtractDraft turns an uploaded document into a draft. Images go to the
// model as inline data URLs; textual documents are passed as plain text.
func (c *Client) ExtractDraft(ctx context.Context, src domain.ExtractSource) (domain.QuizDraft, error) {
	log.Printf("openai: extracting questions from %q (%s, %d bytes)", src.Filename, src.MIME, len(src.Data))

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	instruction := "Extract every quiz question from this document. Keep the original wording. " +
		"Each question needs exactly 4 options and the index of the correct one. " +
		"Derive a short quiz title from the document."
	if strings.HasPrefix(src.MIME, "image/") {
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: instruction},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", src.MIME, base64.StdEncoding.EncodeToString(src.Data)),
				},
			},
		}
	} else {
		user.Content = instruction + "\n\nDocument:\n" + string(src.Data)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You convert study material into multiple choice quizzes without inventing content.",
			},
			user,
		},
		Tools:      []openai.Tool{quizTool()},
		ToolChoice: forcedQuizTool(),
	})
	if err != nil {
		return domain.QuizDraft{}, fmt.Errorf("extract quiz: %w", err)
	}
	return parseQuizToolCall(resp)
}

func generationPrompt(req domain.GenerationRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a quiz with %d questions about: %s\n\n", req.NumQuestions, req.Topic)
	if req.Difficulty != "" {
		fmt.Fprintf(&sb, "Difficulty level: %s\n", req.Difficulty)
	}
	switch req.QuestionType {
	case domain.QuestionTypeAssertionReason:
		sb.WriteString("Every question must be assertion-reason style: the text contains an 'Assertion:' statement followed by a 'Reason:' statement, and the options judge their truth and linkage.\n")
	case domain.QuestionTypeMixed:
		sb.WriteString("Mix plain multiple choice questions with assertion-reason style questions.\n")
	default:
		sb.WriteString("Use plain multiple choice questions.\n")
	}
	if req.Mode != "" {
		fmt.Fprintf(&sb, "Authoring mode: %s\n", req.Mode)
	}
	if req.RewriteEnabled {
		sb.WriteString("Rephrase each question in your own words rather than quoting common textbook phrasings.\n")
	}
	sb.WriteString("\nRequirements:\n")
	sb.WriteString("- Exactly 4 options per question, one correct\n")
	sb.WriteString("- Wrong options must be plausible\n")
	sb.WriteString("- Give the quiz a short descriptive title\n")
	sb.WriteString("- Use the " + submitQuizTool + " tool to return the quiz\n")
	return sb.String()
}

func quizTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        submitQuizTool,
			Description: "Submit the finished quiz",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Short quiz title",
					},
					"questions": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"question_text": map[string]interface{}{
									"type":        "string",
									"description": "The question text",
								},
								"options": map[string]interface{}{
									"type":        "array",
									"items":       map[string]interface{}{"type": "string"},
									"description": "Exactly 4 answer options",
								},
								"correct_option_index": map[string]interface{}{
									"type":        "integer",
									"description": "0-based index of the correct option",
								},
							},
							"required": []string{"question_text", "options", "correct_option_index"},
						},
					},
				},
				"required": []string{"title", "questions"},
			},
		},
	}
}

func forcedQuizTool() openai.ToolChoice {
	return openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: submitQuizTool},
	}
}

func parseQuizToolCall(resp openai.ChatCompletionResponse) (domain.QuizDraft, error) {
	if len(resp.Choices) == 0 {
		return domain.QuizDraft{}, domain.ErrInvalidAIResponse
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 || calls[0].Function.Name != submitQuizTool {
		return domain.QuizDraft{}, domain.ErrInvalidAIResponse
	}

	var args struct {
		Title     string `json:"title"`
		Questions []struct {
			Text               string   `json:"question_text"`
			Options            []string `json:"options"`
			CorrectOptionIndex int      `json:"correct_option_index"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(calls[0].Function.Arguments), &args); err != nil {
		return domain.QuizDraft{}, domain.ErrInvalidAIResponse
	}
	if len(args.Questions) == 0 {
		return domain.QuizDraft{}, domain.ErrInvalidAIResponse
	}

	draft := domain.QuizDraft{Title: args.Title}
	for _, q := range args.Questions {
		draft.Questions = append(draft.Questions, domain.DraftQuestion{
			Text:               q.Text,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
		})
	}
	return draft, nil
}
