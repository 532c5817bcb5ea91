// Package models holds the shared chat types used by the assistant and the
// HTTP handlers.
package models

import "time"

// ChatMessage represents a message in the chat history.
type ChatMessage struct {
	Role      string
	Content   string
	Timestamp time.Time
	// Options are clickable follow-ups attached to an assistant message
	// when its response presents a selection.
	Options []Option
}

// Option is one clickable selection presented to the user.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Kind classifies the resource: hub, project, item or version.
	Kind string `json:"kind"`
}

// ChatRequest is an inbound WebSocket chat frame.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is an outbound WebSocket chat frame.
type ChatResponse struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Options []Option `json:"options,omitempty"`
	Done    bool     `json:"done"`
}
