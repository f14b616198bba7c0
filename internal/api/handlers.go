package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LeventeLantos/chat-reminders/internal/cache"
	"github.com/LeventeLantos/chat-reminders/internal/scheduler"
	"github.com/LeventeLantos/chat-reminders/internal/service"
)

// ChatService is the conversational core as the transport sees it: one
// inbound message in, one reply out.
type ChatService interface {
	HandleInbound(ctx context.Context, in service.Inbound) string
}

type Handler struct {
	chat  ChatService
	send  service.Sender
	dedup cache.MessageCache // nil when no cache is configured
	sched *scheduler.Scheduler
}

func NewHandler(chat ChatService, send service.Sender, dedup cache.MessageCache, sched *scheduler.Scheduler) *Handler {
	return &Handler{chat: chat, send: send, dedup: dedup, sched: sched}
}

// Inbound takes one channel webhook delivery, runs it through the chat
// service and sends the reply out of band. The provider retries on non-2xx,
// so the handler answers 204 even when the reply could not be delivered:
// a retry would produce a second reply, not fix the first.
func (h *Handler) Inbound(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form body", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	sid := r.PostFormValue("MessageSid")

	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}

	if h.dedup != nil && sid != "" {
		seen, err := h.dedup.SeenMessage(r.Context(), sid)
		if err != nil {
			// Dedup is best effort; a cache outage must not drop messages.
			slog.Warn("dedup check failed", "message_sid", sid, "err", err)
		} else if seen {
			slog.Info("duplicate delivery ignored", "message_sid", sid, "from", from)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	reply := h.chat.HandleInbound(r.Context(), service.Inbound{
		From:        from,
		Body:        body,
		DisplayName: r.PostFormValue("ProfileName"),
	})

	if _, err := h.send.Send(r.Context(), from, reply); err != nil {
		slog.Error("reply send failed", "to", from, "err", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
