package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/localrivet/apschat/internal/assistant"
	"github.com/localrivet/apschat/internal/models"
)

// WSHandler upgrades the connection and serves the live chat protocol:
// one ChatRequest in, one ChatResponse out, per message.
func (h *ChatHandler) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.diag.Error("websocket upgrade: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The request context dies with the handler; the hijacked connection
	// outlives it.
	go h.serveWebSocket(context.Background(), conn)
}

func (h *ChatHandler) serveWebSocket(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Each socket gets its own conversation so concurrent tabs do not
	// interleave histories.
	conv := h.processor.NewConversation()

	for {
		msg, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			if err != io.EOF {
				h.diag.Warn("reading websocket message: %v", err)
			}
			return
		}

		var req models.ChatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			h.sendWSError(conn, "invalid request: "+err.Error())
			continue
		}
		if req.Message == "" {
			h.sendWSError(conn, "empty message")
			continue
		}

		reply, err := h.processor.ProcessMessage(ctx, conv, req.Message)
		if err != nil {
			h.sendWSError(conn, "processing message: "+err.Error())
			continue
		}

		resp := models.ChatResponse{
			Role:    "assistant",
			Content: reply,
			Done:    true,
		}
		if info := assistant.AnalyzeOptions(reply); info != nil {
			resp.Options = optionsOfKind(conv.LastOptions, info.Kind)
		}

		if err := h.writeWS(conn, resp); err != nil {
			h.diag.Warn("writing websocket response: %v", err)
			return
		}
	}
}

func (h *ChatHandler) sendWSError(conn net.Conn, errMsg string) {
	resp := models.ChatResponse{
		Role:    "system",
		Content: "Error: " + errMsg,
		Done:    true,
	}
	if err := h.writeWS(conn, resp); err != nil {
		h.diag.Warn("writing websocket error: %v", err)
	}
}

func (h *ChatHandler) writeWS(conn net.Conn, resp models.ChatResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return wsutil.WriteServerText(conn, data)
}
