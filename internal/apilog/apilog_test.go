package apilog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureCounter counts one token per character of message content.
func fixtureCounter(_ string, messages []openai.ChatCompletionMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total
}

func fixtureToolCounter(_ string, tools []openai.Tool) int {
	return len(tools) * 10
}

func newTestLogger(t *testing.T, enabled bool) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	l := New(Config{
		Enabled:       enabled,
		Dir:           dir,
		CountMessages: fixtureCounter,
		CountTools:    fixtureToolCounter,
		Now:           func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) },
	})
	return l, dir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestLogCallWritesExactlyTwoRecords(t *testing.T) {
	l, dir := newTestLogger(t, true)

	req := openai.ChatCompletionRequest{
		Model: "gpt-x",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "hello"},
		},
	}
	l.LogCall(req, nil, nil)

	textLines := readLines(t, filepath.Join(dir, TextLogName))
	jsonLines := readLines(t, filepath.Join(dir, JSONLogName))
	assert.Len(t, textLines, 1)
	assert.Len(t, jsonLines, 1)

	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(jsonLines[0]), &entry))
	assert.Equal(t, "gpt-x", entry.Model)
	assert.Equal(t, 5, entry.MessageTokenCount)
	assert.Equal(t, 0, entry.ToolTokenCount)
	assert.Equal(t, entry.MessageTokenCount+entry.ToolTokenCount, entry.TotalTokenCount)

	_, err := time.Parse(time.RFC3339, entry.Timestamp)
	assert.NoError(t, err, "timestamp must be ISO-8601")
}

func TestTotalIsSumOfMessageAndToolCounts(t *testing.T) {
	l, dir := newTestLogger(t, true)

	req := openai.ChatCompletionRequest{
		Model: "gpt-x",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "sys"},
			{Role: openai.ChatMessageRoleUser, Content: "hi there"},
		},
		Tools: []openai.Tool{
			{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{Name: "get_hubs", Description: "Retrieves hubs"}},
			{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{Name: "get_projects", Description: "Retrieves projects"}},
		},
	}
	l.LogCall(req, nil, nil)

	jsonLines := readLines(t, filepath.Join(dir, JSONLogName))
	require.Len(t, jsonLines, 1)

	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(jsonLines[0]), &entry))
	assert.Equal(t, 11, entry.MessageTokenCount)
	assert.Equal(t, 20, entry.ToolTokenCount)
	assert.Equal(t, 31, entry.TotalTokenCount)
	assert.Equal(t, 2, entry.MessageCount)
	require.Len(t, entry.ToolSummaries, 2)
	assert.Equal(t, "get_hubs", entry.ToolSummaries[0].Name)
	assert.Equal(t, len("Retrieves hubs"), entry.ToolSummaries[0].DescriptionLength)
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	l, dir := newTestLogger(t, false)

	l.LogCall(openai.ChatCompletionRequest{
		Model:    "gpt-x",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hello"}},
	}, nil, nil)

	_, err := os.Stat(filepath.Join(dir, TextLogName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, JSONLogName))
	assert.True(t, os.IsNotExist(err))
}

func TestLongContentIsTruncatedOnlyInSummary(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{
		Enabled:       true,
		Dir:           dir,
		PreviewLen:    10,
		CountMessages: fixtureCounter,
		CountTools:    fixtureToolCounter,
	})

	long := strings.Repeat("a", 50)
	req := openai.ChatCompletionRequest{
		Model:    "gpt-x",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: long}},
	}
	l.LogCall(req, nil, nil)

	// The outbound request is untouched.
	assert.Equal(t, long, req.Messages[0].Content)

	jsonLines := readLines(t, filepath.Join(dir, JSONLogName))
	require.Len(t, jsonLines, 1)
	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(jsonLines[0]), &entry))
	require.Len(t, entry.MessageSummaries, 1)
	assert.Equal(t, strings.Repeat("a", 10)+"...", entry.MessageSummaries[0].ContentPreview)
	assert.Equal(t, 50, entry.MessageSummaries[0].ContentLength)
}

func TestAssistantMessagesKeepOnlyLength(t *testing.T) {
	l, dir := newTestLogger(t, true)

	req := openai.ChatCompletionRequest{
		Model: "gpt-x",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleAssistant, Content: "internal reasoning"},
		},
	}
	l.LogCall(req, nil, nil)

	jsonLines := readLines(t, filepath.Join(dir, JSONLogName))
	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(jsonLines[0]), &entry))
	require.Len(t, entry.MessageSummaries, 1)
	assert.Empty(t, entry.MessageSummaries[0].ContentPreview)
	assert.Equal(t, len("internal reasoning"), entry.MessageSummaries[0].ContentLength)
}

func TestUnwritableDirectoryDoesNotPanicOrError(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(blocked, 0o755))
	require.NoError(t, os.Chmod(blocked, 0o500))
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o755) })

	l := New(Config{
		Enabled:       true,
		Dir:           filepath.Join(blocked, "logs"),
		CountMessages: fixtureCounter,
		CountTools:    fixtureToolCounter,
	})

	assert.NotPanics(t, func() {
		l.LogCall(openai.ChatCompletionRequest{
			Model:    "gpt-x",
			Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hello"}},
		}, nil, nil)
	})
}

func TestSequentialCallsPreserveOrder(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	l := New(Config{
		Enabled:       true,
		Dir:           dir,
		CountMessages: fixtureCounter,
		CountTools:    fixtureToolCounter,
		Now: func() time.Time {
			stamp = stamp.Add(time.Second)
			return stamp
		},
	})

	for _, content := range []string{"first", "second"} {
		l.LogCall(openai.ChatCompletionRequest{
			Model:    "gpt-x",
			Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: content}},
		}, nil, nil)
	}

	jsonLines := readLines(t, filepath.Join(dir, JSONLogName))
	require.Len(t, jsonLines, 2)

	var first, second Entry
	require.NoError(t, json.Unmarshal([]byte(jsonLines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(jsonLines[1]), &second))
	assert.Equal(t, "first", first.MessageSummaries[0].ContentPreview)
	assert.Equal(t, "second", second.MessageSummaries[0].ContentPreview)

	t1, err := time.Parse(time.RFC3339, first.Timestamp)
	require.NoError(t, err)
	t2, err := time.Parse(time.RFC3339, second.Timestamp)
	require.NoError(t, err)
	assert.True(t, t1.Before(t2))
}

func TestResponseUsageAndErrorRecorded(t *testing.T) {
	l, dir := newTestLogger(t, true)

	req := openai.ChatCompletionRequest{
		Model:    "gpt-x",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hi"}},
	}
	resp := &openai.ChatCompletionResponse{
		ID:    "chatcmpl-123",
		Usage: openai.Usage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
	}
	l.LogCall(req, resp, nil)
	l.LogCall(req, nil, assert.AnError)

	jsonLines := readLines(t, filepath.Join(dir, JSONLogName))
	require.Len(t, jsonLines, 2)

	var ok, failed Entry
	require.NoError(t, json.Unmarshal([]byte(jsonLines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(jsonLines[1]), &failed))

	require.NotNil(t, ok.ResponseUsage)
	assert.Equal(t, 10, ok.ResponseUsage.TotalTokens)
	assert.Equal(t, "chatcmpl-123", ok.ResponseID)
	assert.Empty(t, ok.Error)

	assert.Nil(t, failed.ResponseUsage)
	assert.Equal(t, assert.AnError.Error(), failed.Error)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abcd", 2))
	assert.Equal(t, "", Truncate("", 5))
}
