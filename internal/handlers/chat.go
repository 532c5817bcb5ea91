// Package handlers implements the HTTP surface of the chat UI: the page
// render, the chat form, and option-click submissions.
package handlers

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/localrivet/apschat/internal/assistant"
	"github.com/localrivet/apschat/internal/logx"
	"github.com/localrivet/apschat/internal/models"
)

// Processor is the assistant surface the handlers need. Satisfied by
// *assistant.Assistant; fakeable in tests.
type Processor interface {
	NewConversation() *assistant.Conversation
	ProcessMessage(ctx context.Context, conv *assistant.Conversation, userInput string) (string, error)
}

// ChatHandler handles chat-related HTTP requests. One conversation per
// process, guarded by the mutex.
type ChatHandler struct {
	processor    Processor
	templatePath string
	diag         logx.Logger

	chatMutex   sync.Mutex
	conv        *assistant.Conversation
	chatHistory []models.ChatMessage
}

// Option configures a ChatHandler.
type Option func(*ChatHandler)

// WithLogger sets the diagnostic logger.
func WithLogger(l logx.Logger) Option {
	return func(h *ChatHandler) { h.diag = l }
}

// NewChatHandler creates a chat handler over the given assistant.
func NewChatHandler(processor Processor, templatePath string, opts ...Option) *ChatHandler {
	h := &ChatHandler{
		processor:    processor,
		templatePath: templatePath,
		diag:         logx.Nop{},
		chatHistory:  []models.ChatMessage{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.conv = processor.NewConversation()
	return h
}

// IndexHandler renders the chat page with the current history.
func (h *ChatHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	h.chatMutex.Lock()
	history := make([]models.ChatMessage, len(h.chatHistory))
	copy(history, h.chatHistory)
	h.chatMutex.Unlock()

	tmpl, err := template.ParseFiles(h.templatePath)
	if err != nil {
		h.diag.Error("loading template %s: %v", h.templatePath, err)
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}

	tmpl.Execute(w, map[string]interface{}{
		"History": history,
	})
}

// ChatFormHandler handles chat form submissions.
func (h *ChatHandler) ChatFormHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userMessage := r.FormValue("message")
	if userMessage == "" {
		http.Error(w, "Empty message", http.StatusBadRequest)
		return
	}

	h.processUserMessage(r.Context(), userMessage)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SelectHandler turns a clicked option into its follow-up chat message.
func (h *ChatHandler) SelectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kind := r.FormValue("kind")
	id := r.FormValue("id")
	name := r.FormValue("name")
	if kind == "" || id == "" {
		http.Error(w, "Missing selection", http.StatusBadRequest)
		return
	}

	h.processUserMessage(r.Context(), assistant.FollowupQuery(kind, id, name))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ResetHandler discards the conversation and starts a fresh one.
func (h *ChatHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.chatMutex.Lock()
	h.conv = h.processor.NewConversation()
	h.chatHistory = h.chatHistory[:0]
	h.chatMutex.Unlock()

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// History returns a copy of the chat history.
func (h *ChatHandler) History() []models.ChatMessage {
	h.chatMutex.Lock()
	defer h.chatMutex.Unlock()
	history := make([]models.ChatMessage, len(h.chatHistory))
	copy(history, h.chatHistory)
	return history
}

func (h *ChatHandler) processUserMessage(ctx context.Context, userMessage string) {
	h.chatMutex.Lock()
	h.chatHistory = append(h.chatHistory, models.ChatMessage{
		Role:      "user",
		Content:   userMessage,
		Timestamp: time.Now(),
	})
	conv := h.conv
	h.chatMutex.Unlock()

	reply, err := h.processor.ProcessMessage(ctx, conv, userMessage)
	if err != nil {
		h.diag.Error("processing message: %v", err)
		h.chatMutex.Lock()
		h.chatHistory = append(h.chatHistory, models.ChatMessage{
			Role:      "assistant",
			Content:   "Sorry, I encountered an error while processing your message. Please try again.",
			Timestamp: time.Now(),
		})
		h.chatMutex.Unlock()
		return
	}

	msg := models.ChatMessage{
		Role:      "assistant",
		Content:   reply,
		Timestamp: time.Now(),
	}
	if info := assistant.AnalyzeOptions(reply); info != nil {
		msg.Options = optionsOfKind(conv.LastOptions, info.Kind)
	}

	h.chatMutex.Lock()
	h.chatHistory = append(h.chatHistory, msg)
	h.chatMutex.Unlock()
}

// optionsOfKind filters the conversation's stored options to the kind the
// response presented. An empty kind keeps everything.
func optionsOfKind(options []models.Option, kind string) []models.Option {
	if kind == "" {
		out := make([]models.Option, len(options))
		copy(out, options)
		return out
	}
	var out []models.Option
	for _, opt := range options {
		if opt.Kind == kind {
			out = append(out, opt)
		}
	}
	return out
}
