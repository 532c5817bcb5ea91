package apilog

import (
	"encoding/json"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// encoderForModel returns the tiktoken encoding for a model, falling back to
// cl100k_base when the model is unknown.
func encoderForModel(model string) *tiktoken.Tiktoken {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return enc
}

// CountMessageTokens estimates the token cost of a message list using the
// same accounting as the OpenAI chat format: four tokens of framing per
// message, the encoded content, any name, any function-call name and
// arguments, plus two tokens priming the reply.
func CountMessageTokens(model string, messages []openai.ChatCompletionMessage) int {
	enc := encoderForModel(model)
	if enc == nil {
		return 0
	}

	count := func(s string) int {
		if s == "" {
			return 0
		}
		return len(enc.Encode(s, nil, nil))
	}

	total := 0
	for _, msg := range messages {
		total += 4
		total += count(msg.Content)
		total += count(msg.Name)
		if msg.FunctionCall != nil {
			total += count(msg.FunctionCall.Name)
			total += count(msg.FunctionCall.Arguments)
		}
		for _, tc := range msg.ToolCalls {
			total += count(tc.Function.Name)
			total += count(tc.Function.Arguments)
		}
	}
	total += 2
	return total
}

// CountToolTokens estimates the token cost of tool definitions by encoding
// their JSON serialization.
func CountToolTokens(model string, tools []openai.Tool) int {
	if len(tools) == 0 {
		return 0
	}
	enc := encoderForModel(model)
	if enc == nil {
		return 0
	}
	data, err := json.Marshal(tools)
	if err != nil {
		return 0
	}
	return len(enc.Encode(string(data), nil, nil))
}
