// Package apilog records an audit trail of outbound OpenAI API calls.
//
// Each logged call produces exactly two records: one human-readable line in
// openai_api.log and one JSON object in openai_api_detailed.jsonl, both
// stamped with wall-clock time. Logging never affects the outcome of the
// wrapped call; every failure inside this package is reported to the
// diagnostic logger and swallowed.
package apilog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/localrivet/apschat/internal/logx"
)

const (
	// TextLogName is the human-readable log file name.
	TextLogName = "openai_api.log"
	// JSONLogName is the JSON-lines log file name.
	JSONLogName = "openai_api_detailed.jsonl"

	// DefaultPreviewLen is the number of characters of message content kept
	// in a summary before truncation.
	DefaultPreviewLen = 500

	// tokenWarnThreshold is roughly 90% of a 128k context window.
	tokenWarnThreshold = 120000
)

// Usage mirrors the provider's token usage block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// MessageSummary is a truncated view of one request message.
type MessageSummary struct {
	Role           string `json:"role"`
	ContentPreview string `json:"content_preview,omitempty"`
	ContentLength  int    `json:"content_length"`
}

// ToolSummary describes one tool definition attached to a request.
type ToolSummary struct {
	Type              string `json:"type"`
	Name              string `json:"name"`
	DescriptionLength int    `json:"description_length"`
}

// Entry is the JSON-lines record written for each API call.
type Entry struct {
	Timestamp         string           `json:"timestamp"`
	Model             string           `json:"model"`
	MessageTokenCount int              `json:"message_token_count"`
	ToolTokenCount    int              `json:"tool_token_count"`
	TotalTokenCount   int              `json:"total_token_count"`
	MessageCount      int              `json:"message_count"`
	MessageSummaries  []MessageSummary `json:"message_summaries"`
	ToolSummaries     []ToolSummary    `json:"tool_summaries,omitempty"`
	ResponseID        string           `json:"response_id,omitempty"`
	ResponseUsage     *Usage           `json:"response_usage,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// Config controls logger behavior. The enable flag is per instance rather
// than a process global so tests can construct loggers independently.
type Config struct {
	// Enabled turns the audit trail on. A disabled logger performs no I/O.
	Enabled bool

	// Dir is the directory the two log files are appended under.
	Dir string

	// PreviewLen caps message content previews. Zero means DefaultPreviewLen.
	PreviewLen int

	// CountMessages computes the token cost of the request messages for a
	// model. Nil selects the tiktoken-based default.
	CountMessages func(model string, messages []openai.ChatCompletionMessage) int

	// CountTools computes the token cost of the tool definitions for a
	// model. Nil selects the tiktoken-based default.
	CountTools func(model string, tools []openai.Tool) int

	// Diag receives logging failures and token-limit warnings. Nil discards.
	Diag logx.Logger

	// Now supplies timestamps. Nil means time.Now.
	Now func() time.Time
}

// Logger appends call records to the configured log files.
type Logger struct {
	cfg Config
}

// New creates a Logger from cfg, filling in defaults for unset fields.
func New(cfg Config) *Logger {
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	if cfg.PreviewLen <= 0 {
		cfg.PreviewLen = DefaultPreviewLen
	}
	if cfg.CountMessages == nil {
		cfg.CountMessages = CountMessageTokens
	}
	if cfg.CountTools == nil {
		cfg.CountTools = CountToolTokens
	}
	if cfg.Diag == nil {
		cfg.Diag = logx.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Logger{cfg: cfg}
}

// Enabled reports whether the logger will write records.
func (l *Logger) Enabled() bool {
	return l != nil && l.cfg.Enabled
}

// LogCall records one completed (or failed) API call. resp may be nil when
// the call errored. The method never returns or panics on failure.
func (l *Logger) LogCall(req openai.ChatCompletionRequest, resp *openai.ChatCompletionResponse, callErr error) {
	if !l.Enabled() {
		return
	}

	entry := l.buildEntry(req, resp, callErr)

	line := fmt.Sprintf("%s OpenAI API call: %s, %d tokens (%d in messages, %d in tools), %d messages",
		entry.Timestamp, entry.Model, entry.TotalTokenCount, entry.MessageTokenCount, entry.ToolTokenCount, entry.MessageCount)
	if entry.ResponseUsage != nil {
		line += fmt.Sprintf(", usage %d (%d prompt, %d completion)",
			entry.ResponseUsage.TotalTokens, entry.ResponseUsage.PromptTokens, entry.ResponseUsage.CompletionTokens)
	}
	if entry.Error != "" {
		line += fmt.Sprintf(", error: %s", entry.Error)
	}
	l.appendLine(TextLogName, line)

	data, err := json.Marshal(entry)
	if err != nil {
		// The payload could not be serialized; record a placeholder so the
		// call still leaves a trace.
		placeholder := fmt.Sprintf(`{"timestamp":%q,"model":%q,"error":"unserializable payload"}`,
			entry.Timestamp, entry.Model)
		l.cfg.Diag.Warn("apilog: marshaling entry: %v", err)
		l.appendLine(JSONLogName, placeholder)
		return
	}
	l.appendLine(JSONLogName, string(data))

	if entry.TotalTokenCount > tokenWarnThreshold {
		l.cfg.Diag.Warn("apilog: approaching token limit: %d/128000 tokens", entry.TotalTokenCount)
	}
}

func (l *Logger) buildEntry(req openai.ChatCompletionRequest, resp *openai.ChatCompletionResponse, callErr error) Entry {
	msgTokens := l.cfg.CountMessages(req.Model, req.Messages)
	toolTokens := 0
	if len(req.Tools) > 0 {
		toolTokens = l.cfg.CountTools(req.Model, req.Tools)
	}

	entry := Entry{
		Timestamp:         l.cfg.Now().Format(time.RFC3339),
		Model:             req.Model,
		MessageTokenCount: msgTokens,
		ToolTokenCount:    toolTokens,
		TotalTokenCount:   msgTokens + toolTokens,
		MessageCount:      len(req.Messages),
		MessageSummaries:  summarizeMessages(req.Messages, l.cfg.PreviewLen),
		ToolSummaries:     summarizeTools(req.Tools),
	}

	if resp != nil {
		entry.ResponseID = resp.ID
		entry.ResponseUsage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	return entry
}

// appendLine performs one scoped append: open, write, close. A failed write
// is dropped with a diagnostic warning; there is no buffering or retry.
func (l *Logger) appendLine(name, line string) {
	if err := os.MkdirAll(l.cfg.Dir, 0o755); err != nil {
		l.cfg.Diag.Warn("apilog: creating log directory %s: %v", l.cfg.Dir, err)
		return
	}
	path := filepath.Join(l.cfg.Dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.cfg.Diag.Warn("apilog: opening %s: %v", path, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		l.cfg.Diag.Warn("apilog: writing %s: %v", path, err)
	}
}

// summarizeMessages builds truncated previews. System and user messages keep
// a content preview; other roles record only the length.
func summarizeMessages(messages []openai.ChatCompletionMessage, previewLen int) []MessageSummary {
	summaries := make([]MessageSummary, 0, len(messages))
	for _, msg := range messages {
		s := MessageSummary{
			Role:          msg.Role,
			ContentLength: len(msg.Content),
		}
		if msg.Role == openai.ChatMessageRoleSystem || msg.Role == openai.ChatMessageRoleUser {
			s.ContentPreview = Truncate(msg.Content, previewLen)
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func summarizeTools(tools []openai.Tool) []ToolSummary {
	if len(tools) == 0 {
		return nil
	}
	summaries := make([]ToolSummary, 0, len(tools))
	for _, tool := range tools {
		s := ToolSummary{Type: string(tool.Type)}
		if tool.Function != nil {
			s.Name = tool.Function.Name
			s.DescriptionLength = len(tool.Function.Description)
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// Truncate shortens content to max characters, appending an ellipsis when
// anything was cut. Truncation applies only to log summaries, never to the
// outbound request.
func Truncate(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
