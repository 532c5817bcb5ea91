package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/localrivet/apschat/internal/llm"
)

const smartSchedulePrompt = `You are an assistant that designs %s schedules for building models.
Given sample objects and their property names, choose the columns that make
the most useful tabular schedule for the request.

Respond with a JSON object containing either:
- "table": a complete markdown table string, or
- "columns": an array of property names to use as table columns.

Prefer returning "columns" and let the caller build the table.`

// maxSampleObjects caps how many objects are sent to the LLM for column
// selection; the full object set is still used for the table itself.
const maxSampleObjects = 3

var markdownTablePattern = regexp.MustCompile("```(?:markdown)?\\s*((?:\\|.*\\|(?:\r?\n|$))+)```")

// Creator builds schedules, asking the LLM to recommend formatting.
type Creator struct {
	svc         llm.ChatCompleter
	model       string
	temperature float32
	maxTokens   int
}

// NewCreator returns a Creator using the given completion service.
func NewCreator(svc llm.ChatCompleter, model string, temperature float32, maxTokens int) *Creator {
	return &Creator{svc: svc, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Result is the outcome of a schedule request, shaped for a tool response.
type Result struct {
	ScheduleType   string      `json:"schedule_type"`
	ObjectCount    int         `json:"object_count"`
	Table          string      `json:"table"`
	PropertiesUsed interface{} `json:"properties_used"`
	Message        string      `json:"message"`
}

// Create builds a schedule of the given type from objects. When properties
// is non-empty those columns are used; otherwise the LLM recommends them.
func (c *Creator) Create(ctx context.Context, scheduleType string, objects []Object, properties []string, userQuery string) (*Result, error) {
	if len(objects) == 0 {
		return nil, fmt.Errorf("no objects provided for schedule creation")
	}
	if userQuery == "" {
		userQuery = fmt.Sprintf("Create a %s schedule", scheduleType)
	}

	table, err := c.smartTable(ctx, scheduleType, objects, properties, userQuery)
	if err != nil {
		return nil, err
	}

	used := interface{}("auto-detected")
	if len(properties) > 0 {
		used = properties
	}
	return &Result{
		ScheduleType:   scheduleType,
		ObjectCount:    len(objects),
		Table:          table,
		PropertiesUsed: used,
		Message:        fmt.Sprintf("Created a %s schedule with %d objects.", scheduleType, len(objects)),
	}, nil
}

func (c *Creator) smartTable(ctx context.Context, scheduleType string, objects []Object, properties []string, userQuery string) (string, error) {
	sampleSize := maxSampleObjects
	if len(objects) < sampleSize {
		sampleSize = len(objects)
	}
	sample := objects[:sampleSize]

	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding sample objects: %w", err)
	}

	var user strings.Builder
	fmt.Fprintf(&user, "I need to create a %s schedule based on sample data with the following property names:\n%s\n\nThe request is: %q\n",
		scheduleType, strings.Join(PropertyNames(sample), ", "), userQuery)
	if len(properties) > 0 {
		fmt.Fprintf(&user, "\nRequested properties: %s\n", strings.Join(properties, ", "))
	}
	fmt.Fprintf(&user, "\nSample objects (%d of %d total):\n%s\n", sampleSize, len(objects), sampleJSON)
	user.WriteString("\nReturn a JSON with 'columns' (array of property names) and 'table' (markdown table string).")

	resp, err := c.svc.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(smartSchedulePrompt, scheduleType)},
			{Role: openai.ChatMessageRoleUser, Content: user.String()},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling LLM for schedule format: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty LLM response for schedule format")
	}
	content := resp.Choices[0].Message.Content

	var scheduleData struct {
		Columns []string `json:"columns"`
		Table   string   `json:"table"`
	}
	if err := json.Unmarshal([]byte(content), &scheduleData); err != nil {
		// Not valid JSON; try to pull a fenced markdown table out directly.
		if m := markdownTablePattern.FindStringSubmatch(content); m != nil {
			return m[1], nil
		}
		return "", fmt.Errorf("failed to parse LLM schedule response")
	}

	if scheduleData.Table != "" {
		return scheduleData.Table, nil
	}
	if len(scheduleData.Columns) > 0 {
		columns := scheduleData.Columns
		if len(properties) > 0 {
			columns = properties
		}
		return BuildMarkdownTable(objects, columns), nil
	}
	return "", fmt.Errorf("invalid schedule response format from LLM")
}
