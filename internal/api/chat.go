package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/muninn/internal/chat"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/sse"
)

// Chat handles POST /api/chat. The turn is streamed as Server-Sent Events,
// one event per models.StreamEvent named by its kind, ending with "done".
// With ?stream=false the turn is collected into one assistant message
// instead. Disconnecting cancels the turn.
//
//	@Summary		Run one chat turn
//	@Tags			chat
//	@Accept			json
//	@Produce		text/event-stream
//	@Param			body	body	ChatRequest	true	"Conversation"
//	@Param			stream	query	bool		false	"false returns one JSON message"
//	@Success		200
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("messages are required"))
		return
	}
	if len(req.Mentions) > 0 && h.Context != nil {
		attachMentions(req.Messages, h.Context.ResolveMentions(req.Mentions))
	}
	turn := chat.TurnRequest{Messages: req.Messages, ActiveFile: req.ActiveFile}

	if r.URL.Query().Get("stream") == "false" {
		writeJSON(w, http.StatusOK, chat.Collect(h.Deps.Chat.Run(r.Context(), turn), time.Now()))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported"))
		return
	}

	sse.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.Deps.Chat.Run(r.Context(), turn) {
		raw, err := sse.Format(sse.Event{Type: string(ev.Kind), Data: ev})
		if err != nil {
			h.Logger.Error("api: encode chat event", slog.String("error", err.Error()))
			continue
		}
		_, _ = w.Write(raw)
		flusher.Flush()
	}
}

// attachMentions appends attachments to the last user message.
func attachMentions(msgs []models.Message, atts []models.Attachment) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleUser {
			msgs[i].Attachments = append(msgs[i].Attachments, atts...)
			return
		}
	}
}

// Mentions handles GET /api/mentions?q= for mention completion.
func (h *Handler) Mentions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, map[string]any{"files": []models.FileInfo{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": h.Context.SuggestMentions(q)})
}
