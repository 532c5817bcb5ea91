// Package assistant implements the chat assistant: the OpenAI
// function-calling loop and the dispatch from tool calls to the APS and
// AEC Data Model helpers.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/localrivet/apschat/internal/aecdm"
	"github.com/localrivet/apschat/internal/aps"
	"github.com/localrivet/apschat/internal/llm"
	"github.com/localrivet/apschat/internal/logx"
	"github.com/localrivet/apschat/internal/models"
	"github.com/localrivet/apschat/internal/schedule"
)

const systemPrompt = `You are an AI assistant specializing in Autodesk Build, Autodesk Construction Cloud, and BIM360.
Your primary goal is to provide quick, efficient, and accurate assistance to users of these platforms.

Key Responsibilities:
1. Provide guidance on project management, user addition, and navigation of hubs, folders, and files.
2. Assist with creating projects and navigating Autodesk Construction Cloud platforms.
3. Utilize APS (Autodesk Platform Services) endpoints for data retrieval and operations.

Important Guidelines:
1. Maintain a friendly and conversational tone.
2. Keep responses concise and informative.
3. Provide more details only when explicitly asked.
4. Assume the user is already authenticated.

Remember:
- Only make a tool call if all required parameters are available.
- If any required parameters are missing, ask the user for the necessary information instead of making an incomplete call.
- When a user asks for projects that start with a specific prefix, use the filter_projects function instead of get_projects to avoid unnecessary API calls.
- When a user asks for a schedule of model elements, retrieve the elements with get_elements first, then call create_schedule.`

// Conversation is an ordered, append-only message history for one session.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	Messages  []openai.ChatCompletionMessage

	// LastObjects holds the model objects from the most recent element
	// retrieval, consumed by schedule creation.
	LastObjects []schedule.Object

	// LastOptions holds the resources from the most recent listing call so
	// the UI can render them as clickable selections.
	LastOptions []models.Option
}

// Assistant wires the LLM service to the APS helpers.
type Assistant struct {
	svc         llm.ChatCompleter
	aps         *aps.Client
	aec         *aecdm.Client
	gen         *aecdm.QueryGenerator
	creator     *schedule.Creator
	model       string
	temperature float32
	maxTokens   int
	diag        logx.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(a *Assistant) { a.model = model }
}

// WithModelConfig sets sampling parameters.
func WithModelConfig(temperature float32, maxTokens int) Option {
	return func(a *Assistant) { a.temperature = temperature; a.maxTokens = maxTokens }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logx.Logger) Option {
	return func(a *Assistant) { a.diag = l }
}

// New creates an Assistant over the given service and API clients.
func New(svc llm.ChatCompleter, apsClient *aps.Client, aecClient *aecdm.Client, opts ...Option) *Assistant {
	a := &Assistant{
		svc:         svc,
		aps:         apsClient,
		aec:         aecClient,
		model:       "gpt-4o-mini",
		temperature: 0.7,
		maxTokens:   1000,
		diag:        logx.Nop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.gen = aecdm.NewQueryGenerator(svc, a.model, a.temperature, a.maxTokens)
	a.creator = schedule.NewCreator(svc, a.model, a.temperature, a.maxTokens)
	return a
}

// NewConversation starts a conversation seeded with the system prompt.
func (a *Assistant) NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
	}
}

// ProcessMessage appends the user's message, runs the function-calling loop
// and returns the assistant's reply. Tool failures become error payloads in
// the tool results and surface as chat text, not as errors here.
func (a *Assistant) ProcessMessage(ctx context.Context, conv *Conversation, userInput string) (string, error) {
	conv.Messages = append(conv.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userInput,
	})

	resp, err := a.svc.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    conv.Messages,
		Tools:       toolDefinitions(),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("calling model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("calling model: empty response")
	}

	assistantMsg := resp.Choices[0].Message
	conv.Messages = append(conv.Messages, assistantMsg)

	if len(assistantMsg.ToolCalls) == 0 {
		return assistantMsg.Content, nil
	}

	for _, tc := range assistantMsg.ToolCalls {
		result := a.executeTool(ctx, conv, tc.Function.Name, tc.Function.Arguments)
		content, err := json.Marshal(result)
		if err != nil {
			content = []byte(`{"error":"unserializable tool result"}`)
		}
		conv.Messages = append(conv.Messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    string(content),
			Name:       tc.Function.Name,
			ToolCallID: tc.ID,
		})
	}

	// Follow-up call so the model can interpret the tool results. Tools are
	// deliberately omitted; one round of calls per user turn.
	followup, err := a.svc.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    conv.Messages,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("interpreting tool results: %w", err)
	}
	if len(followup.Choices) == 0 {
		return "", fmt.Errorf("interpreting tool results: empty response")
	}

	reply := followup.Choices[0].Message
	conv.Messages = append(conv.Messages, reply)

	content := reply.Content
	if content == "" {
		content = "I processed the tool results but have no additional information to add."
	}
	return content, nil
}
