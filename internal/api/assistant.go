package api

import (
	"net/http"

	"github.com/ashureev/cohub/internal/assistant"
	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/identity"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type chatResponse struct {
	assistant.Reply
	Messages []domain.ChatMessage `json:"messages"`
}

// Chat handles POST /api/assistant/chat. Navigation intents come back as
// navigate_to with no response text; the client performs the navigation.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req assistant.ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess := h.assistant.Session(r.Context(), user, identity.SessionIDFromContext(r.Context()))
	reply, ok := h.assistant.Send(r.Context(), sess, req.Message, assistant.SendOptions{
		Channel:  "chat_http",
		Navigate: func(domain.Route) {},
	})
	if !ok {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	w.Header().Set("X-Request-ID", chiMiddleware.GetReqID(r.Context()))
	JSON(w, http.StatusOK, chatResponse{Reply: reply, Messages: reply.Transcript})
}

// Transcript returns the current session transcript.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess := h.assistant.Session(r.Context(), user, identity.SessionIDFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]interface{}{"messages": sess.Messages()})
}

// ResetTranscript clears the session back to the greeting.
func (h *Handler) ResetTranscript(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess := h.assistant.Session(r.Context(), user, identity.SessionIDFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]interface{}{"messages": h.assistant.Reset(r.Context(), sess)})
}

// DeleteTranscript discards the tab's transcript and disconnects its live
// chat socket, which reconnects to a fresh greeting.
func (h *Handler) DeleteTranscript(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessionID := identity.SessionIDFromContext(r.Context())
	h.assistant.Forget(r.Context(), user.UserID, sessionID)
	if h.chatConns != nil {
		h.chatConns.CloseSession(user.UserID, sessionID, "transcript deleted")
	}
	w.WriteHeader(http.StatusNoContent)
}
