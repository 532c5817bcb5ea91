package aecdm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/localrivet/apschat/internal/llm"
)

const schemaInfo = `
Available GraphQL Types and Response Patterns:

Query: Entry-point for all queries. All queries must start from here.

Response Structure (ALL queries follow this pattern):
- Every query returns 'results' field
- results always include 'id' and 'name' fields

Available Root Queries:
1. hubs: List of hubs
   Structure:
   - results { id, name }

2. projects(hubId: ID!): List of projects
   Structure:
   - results {
       id, name,
       alternativeIdentifiers { dataManagementAPIProjectId }
     }
`

const generatePrompt = `You are an expert in the Autodesk AEC Data Model GraphQL API.
Generate syntactically correct GraphQL queries that meet these requirements:
` + schemaInfo + `
Key Rules:
1. ALL queries must include the 'results' field
2. ALL results must include 'id' and 'name' fields
3. For projects query, use 'hubId: ID!' argument type
4. Do not include fields that aren't in the schema
5. Do not use unsupported arguments

Generate a complete, executable GraphQL query that follows these exact patterns.
If the input contains a Hub ID, use it as the hubId variable value.
`

// QueryGenerator produces GraphQL queries from natural-language requests
// via the LLM.
type QueryGenerator struct {
	svc         llm.ChatCompleter
	model       string
	temperature float32
	maxTokens   int
}

// NewQueryGenerator creates a generator using the given completion service.
func NewQueryGenerator(svc llm.ChatCompleter, model string, temperature float32, maxTokens int) *QueryGenerator {
	return &QueryGenerator{svc: svc, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Generate asks the LLM for a GraphQL query matching the natural-language
// request and returns the query text with any markdown fencing removed.
func (g *QueryGenerator) Generate(ctx context.Context, naturalLanguageQuery string) (string, error) {
	resp, err := g.svc.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("%s\nNatural Language Query: %s\nGraphQL Query:", generatePrompt, naturalLanguageQuery),
			},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generating graphql query: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generating graphql query: empty response")
	}
	query := StripFences(resp.Choices[0].Message.Content)
	if query == "" {
		return "", fmt.Errorf("generating graphql query: no query in response")
	}
	return query, nil
}

// StripFences removes markdown code fencing from LLM output, returning the
// fenced block when one exists and the trimmed text otherwise.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "```") {
		return content
	}

	parts := strings.Split(content, "```")
	// Fenced blocks sit at the odd indexes.
	for i := 1; i < len(parts); i += 2 {
		block := strings.TrimSpace(parts[i])
		block = strings.TrimPrefix(block, "graphql")
		block = strings.TrimSpace(block)
		if block != "" {
			return block
		}
	}
	return content
}
