// Package llm wraps the OpenAI client with audit logging. The wrapper
// exposes the same call surface as the underlying client and adds no
// decision logic of its own.
package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/localrivet/apschat/internal/apilog"
)

// ChatCompleter is the provider call surface the service delegates to.
// *openai.Client satisfies it; tests substitute a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service is a thin façade over the provider client that records each call
// through the audit logger. The provider's result is returned unchanged
// whether or not logging succeeds.
type Service struct {
	client ChatCompleter
	log    *apilog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches an audit logger to the service.
func WithLogger(l *apilog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service wrapping the given provider client.
func NewService(client ChatCompleter, opts ...Option) *Service {
	s := &Service{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChatCompletion delegates to the provider and records the call. A
// provider error is logged with an error field and re-returned unchanged.
func (s *Service) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if s.log.Enabled() {
		if err != nil {
			s.log.LogCall(req, nil, err)
		} else {
			s.log.LogCall(req, &resp, nil)
		}
	}
	return resp, err
}

var _ ChatCompleter = (*Service)(nil)
var _ ChatCompleter = (*openai.Client)(nil)
