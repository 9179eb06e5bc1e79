package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/berea-ai/berea/internal/service/chat"
	"github.com/berea-ai/berea/internal/store"
	"github.com/berea-ai/berea/vectorstore"
	"github.com/gorilla/mux"
)

type chatRequest struct {
	ChatId            string             `json:"chatId,omitempty"`
	ModelId           string             `json:"modelId,omitempty"`
	Messages          []chat.TurnMessage `json:"messages"`
	AdditionalContext string             `json:"additionalContext,omitempty"`
}

// handleChat streams the assistant's answer as plain text. The resolved chat
// rides in the X-Chat-Id header and the model annotation in the X-Annotation
// trailer after the body drains.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	flusher, _ := w.(http.Flusher)

	w.Header().Set("Trailer", "X-Annotation")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	streaming := false
	annotations := make(chan chat.Annotation, 1)

	sink := &chat.Sink{
		OnChat: func(chatId string) {
			w.Header().Set("X-Chat-Id", chatId)
		},
		OnDelta: func(text string) {
			streaming = true
			if _, err := w.Write([]byte(text)); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		},
		Annotations: annotations,
	}

	result, err := s.options.Chat.Submit(r.Context(), &chat.TurnRequest{
		UserId:            identity.UserId,
		Roles:             identity.Roles,
		ChatId:            req.ChatId,
		ModelId:           req.ModelId,
		Messages:          req.Messages,
		AdditionalContext: req.AdditionalContext,
	}, sink)
	if err != nil {
		if streaming {
			// the stream is already committed; nothing sane to send
			slog.ErrorContext(r.Context(), "turn failed mid-stream", "error", err)
			return
		}
		writeError(w, statusOf(err), err.Error())
		return
	}

	if !streaming && len(result.Text) > 0 {
		w.Write([]byte(result.Text))
	}

	if annotation, ok := <-annotations; ok {
		if encoded, err := json.Marshal(annotation); err == nil {
			w.Header().Set("X-Annotation", string(encoded))
		}
	}
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	chats, err := s.options.Chat.ListChats(r.Context(), identity.UserId)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	if chats == nil {
		chats = []*store.Chat{}
	}

	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	msgs, err := s.options.Chat.History(r.Context(), identity.UserId, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	if msgs == nil {
		msgs = []*store.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

type renameChatRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req renameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	renamed, err := s.options.Chat.Rename(r.Context(), identity.UserId, mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, renamed)
}

type sourceDocumentsRequest struct {
	Ids []string `json:"ids"`
	// MessageId joins stored retrieval distances onto the documents.
	MessageId string `json:"messageId,omitempty"`
}

type sourceDocument struct {
	Id             string         `json:"id"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Distance       float32        `json:"distance"`
	DistanceMetric string         `json:"distanceMetric"`
}

func (s *Server) handleSourceDocuments(w http.ResponseWriter, r *http.Request) {
	var req sourceDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if len(req.Ids) == 0 {
		writeJSON(w, http.StatusOK, []sourceDocument{})
		return
	}

	docs, err := s.options.Documents.GetDocuments(r.Context(), req.Ids)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch source documents", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch source documents")
		return
	}

	byId := map[string]vectorstore.Document{}
	for _, doc := range docs {
		byId[doc.Id] = doc
	}

	distances := map[string]float32{}
	metrics := map[string]string{}
	if len(req.MessageId) > 0 && s.options.Store != nil {
		links, err := s.options.Store.ListSourceDocuments(r.Context(), req.MessageId)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to fetch source document links", "error", err)
		}
		for _, link := range links {
			distances[link.DocumentId] = link.Distance
			metrics[link.DocumentId] = link.Metric
		}
	}

	// response order follows the request
	out := make([]sourceDocument, 0, len(req.Ids))
	for _, id := range req.Ids {
		doc, ok := byId[id]
		if !ok {
			continue
		}

		metric := metrics[id]
		if len(metric) == 0 {
			metric = vectorstore.MetricCosine
		}

		out = append(out, sourceDocument{
			Id:             doc.Id,
			Content:        doc.Content,
			Metadata:       doc.Metadata,
			Distance:       distances[id],
			DistanceMetric: metric,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

type confirmToolRequest struct {
	MessageId        string `json:"messageId"`
	ToolInvocationId string `json:"toolInvocationId"`
	Approve          bool   `json:"approve"`
}

func (s *Server) handleConfirmTool(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req confirmToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	invocation, err := s.options.Chat.ConfirmTool(r.Context(), &chat.ConfirmRequest{
		UserId:           identity.UserId,
		MessageId:        req.MessageId,
		ToolInvocationId: req.ToolInvocationId,
		Approve:          req.Approve,
	})
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, invocation)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusOf(err error) int {
	switch chat.CodeOf(err) {
	case chat.CodeInvalid, chat.CodeExhausted:
		return http.StatusBadRequest
	case chat.CodeUnauthenticated:
		return http.StatusUnauthorized
	case chat.CodeForbidden:
		return http.StatusForbidden
	case chat.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
