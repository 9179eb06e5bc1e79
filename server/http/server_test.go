package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	embedmock "github.com/berea-ai/berea/embedder/mock"
	"github.com/berea-ai/berea/internal/service/chat"
	"github.com/berea-ai/berea/internal/store"
	"github.com/berea-ai/berea/vectorstore"
	"github.com/berea-ai/berea/vectorstore/memory"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	result     *chat.TurnResult
	err        error
	invocation *store.ToolInvocation
	confirmErr error
	chats      []*store.Chat
	messages   []*store.Message
	historyErr error
	lastTurn   *chat.TurnRequest
	lastRename string
}

func (c *stubChat) Submit(ctx context.Context, req *chat.TurnRequest, sink *chat.Sink) (*chat.TurnResult, error) {
	c.lastTurn = req

	if sink != nil && sink.Annotations != nil {
		defer close(sink.Annotations)
	}

	if c.err != nil {
		return nil, c.err
	}

	if sink != nil {
		if sink.OnChat != nil {
			sink.OnChat(c.result.ChatId)
		}
		if sink.OnDelta != nil {
			sink.OnDelta(c.result.Text)
		}
		if sink.Annotations != nil {
			sink.Annotations <- chat.Annotation{ChatId: c.result.ChatId, ModelId: c.result.ModelId}
		}
	}

	return c.result, nil
}

func (c *stubChat) ConfirmTool(ctx context.Context, req *chat.ConfirmRequest) (*store.ToolInvocation, error) {
	if c.confirmErr != nil {
		return nil, c.confirmErr
	}
	return c.invocation, nil
}

func (c *stubChat) ListChats(ctx context.Context, userId string) ([]*store.Chat, error) {
	return c.chats, nil
}

func (c *stubChat) History(ctx context.Context, userId string, chatId string) ([]*store.Message, error) {
	if c.historyErr != nil {
		return nil, c.historyErr
	}
	return c.messages, nil
}

func (c *stubChat) Rename(ctx context.Context, userId string, chatId string, name string) (*store.Chat, error) {
	c.lastRename = name
	return &store.Chat{Id: chatId, UserId: userId, Name: name, CustomName: true}, nil
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	defaults := []Option{
		WithIdentity(&HeaderIdentityProvider{}),
	}

	return NewServer(append(defaults, opts...)...)
}

func postJSON(t *testing.T, handler http.Handler, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatRequiresIdentity(t *testing.T) {
	s := newTestServer(t, WithChat(&stubChat{}))

	rec := postJSON(t, s.Handler(), "/api/chat", `{"messages":[]}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["message"])
}

func TestChatStreamsText(t *testing.T) {
	stub := &stubChat{result: &chat.TurnResult{
		ChatId:  "c1",
		ModelId: "standard",
		Text:    "Hope anchors the soul.",
	}}
	s := newTestServer(t, WithChat(stub))

	rec := postJSON(t, s.Handler(), "/api/chat",
		`{"messages":[{"id":"m1","role":"user","content":"what is hope?"}]}`,
		map[string]string{"X-User-Id": "u1", "X-User-Roles": "premium"},
	)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Hope anchors the soul.", rec.Body.String())
	require.Equal(t, "c1", rec.Header().Get("X-Chat-Id"))

	require.Equal(t, "u1", stub.lastTurn.UserId)
	require.Equal(t, []string{"premium"}, stub.lastTurn.Roles)
}

func TestChatErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{chat.Invalid("the last message must come from the user"), http.StatusBadRequest},
		{chat.Exhausted("you are out of credits"), http.StatusBadRequest},
		{chat.Forbidden("this chat belongs to someone else"), http.StatusForbidden},
		{chat.NotFound("chat not found"), http.StatusNotFound},
		{chat.Unauthenticated("sign in"), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		s := newTestServer(t, WithChat(&stubChat{err: tc.err}))

		rec := postJSON(t, s.Handler(), "/api/chat",
			`{"messages":[{"id":"m1","role":"user","content":"hi"}]}`,
			map[string]string{"X-User-Id": "u1"},
		)

		require.Equal(t, tc.status, rec.Code, "for %v", tc.err)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.err.Error(), body["message"])
	}
}

func TestSourceDocumentsOrderedByRequest(t *testing.T) {
	docs := memory.NewStore(
		vectorstore.WithEmbedder(embedmock.NewEmbedder(8)),
		vectorstore.WithDimensions(8),
	)
	require.NoError(t, docs.AddDocuments(context.Background(), []vectorstore.Document{
		{Id: "d1", Content: "first", Metadata: map[string]any{"type": "bible"}},
		{Id: "d2", Content: "second"},
	}))

	s := newTestServer(t, WithChat(&stubChat{}), WithDocuments(docs))

	rec := postJSON(t, s.Handler(), "/api/source-documents",
		`{"ids":["d2","missing","d1"]}`,
		map[string]string{"X-User-Id": "u1"},
	)

	require.Equal(t, http.StatusOK, rec.Code)

	var out []sourceDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, "d2", out[0].Id)
	require.Equal(t, "d1", out[1].Id)
	require.Equal(t, vectorstore.MetricCosine, out[0].DistanceMetric)
	require.Equal(t, "bible", out[1].Metadata["type"])
}

func TestConfirmTool(t *testing.T) {
	stub := &stubChat{invocation: &store.ToolInvocation{
		Id:    "t1",
		Name:  "highlight_verse",
		State: store.StateResult,
	}}
	s := newTestServer(t, WithChat(stub))

	rec := postJSON(t, s.Handler(), "/api/chat/confirm-tool",
		`{"messageId":"m1","toolInvocationId":"t1","approve":true}`,
		map[string]string{"X-User-Id": "u1"},
	)

	require.Equal(t, http.StatusOK, rec.Code)

	var out store.ToolInvocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, store.StateResult, out.State)
}

func TestConfirmToolNotFound(t *testing.T) {
	s := newTestServer(t, WithChat(&stubChat{confirmErr: chat.NotFound("no pending tool call")}))

	rec := postJSON(t, s.Handler(), "/api/chat/confirm-tool",
		`{"messageId":"m1","toolInvocationId":"nope","approve":true}`,
		map[string]string{"X-User-Id": "u1"},
	)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListChats(t *testing.T) {
	stub := &stubChat{chats: []*store.Chat{
		{Id: "c2", Name: "Anchors of hope"},
		{Id: "c1", Name: "New chat"},
	}}
	s := newTestServer(t, WithChat(stub))

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out []store.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, "c2", out[0].Id)
}

func TestListChatsEmpty(t *testing.T) {
	s := newTestServer(t, WithChat(&stubChat{}))

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestChatMessagesForbidden(t *testing.T) {
	s := newTestServer(t, WithChat(&stubChat{historyErr: chat.Forbidden("this chat belongs to someone else")}))

	req := httptest.NewRequest(http.MethodGet, "/api/chats/c1/messages", nil)
	req.Header.Set("X-User-Id", "u2")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRenameChat(t *testing.T) {
	stub := &stubChat{}
	s := newTestServer(t, WithChat(stub))

	rec := postJSON(t, s.Handler(), "/api/chats/c1/rename",
		`{"name":"Study notes"}`,
		map[string]string{"X-User-Id": "u1"},
	)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Study notes", stub.lastRename)

	var out store.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.CustomName)
}

func TestHealthSkipsAuth(t *testing.T) {
	s := newTestServer(t, WithChat(&stubChat{}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
