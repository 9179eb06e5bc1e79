package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/berea-ai/berea/chain/knowledge"
	"github.com/berea-ai/berea/chain/router"
	"github.com/berea-ai/berea/generator"
	"github.com/berea-ai/berea/internal/store"
	toolhandler "github.com/berea-ai/berea/tool_handler"
	"github.com/berea-ai/berea/vectorstore"
	"github.com/google/uuid"
)

const (
	defaultChatName = "New chat"

	identityPrompt = `You are a study assistant for an embedded document corpus. You can ` +
		`answer questions from the corpus, recall earlier conversation, highlight verses, ` +
		`and bookmark passages. Answer questions about yourself briefly and accurately.`

	historyPrompt = `Answer the user's question using only the conversation so far. If ` +
		`the conversation does not contain the answer, say so.`

	namerPrompt = `Produce a short title (at most five words) for a conversation that ` +
		`starts with the given message. Respond with the title only.`
)

// Annotation is the out-of-band metadata sent on the side channel once the
// turn's persistence continuation has finished.
type Annotation struct {
	ChatId  string `json:"chatId"`
	ModelId string `json:"modelId"`
}

// Sink receives the streaming side of a turn. OnChat fires once the chat is
// resolved, before generation; OnDelta fires per token chunk; Annotations
// receives one Annotation after the persistence continuation and is then
// closed.
type Sink struct {
	OnChat      func(chatId string)
	OnDelta     func(text string)
	Annotations chan<- Annotation
}

type TurnRequest struct {
	UserId            string
	Roles             []string
	ChatId            string
	ModelId           string
	Messages          []TurnMessage
	AdditionalContext string
}

type TurnResult struct {
	ChatId          string
	ModelId         string
	MessageId       string
	Text            string
	FinishReason    generator.FinishReason
	SourceDocuments []vectorstore.DocumentWithScore
	ToolInvocations []store.ToolInvocation
}

type Service struct {
	options Options
}

// Submit runs one chat turn: validate, authorize the model, consume a
// credit, resolve the chat, persist the user message, trim history, route,
// generate with streaming, then persist results and finalize the credit.
func (s *Service) Submit(ctx context.Context, req *TurnRequest, sink *Sink) (*TurnResult, error) {
	if sink == nil {
		sink = &Sink{}
	}
	if sink.Annotations != nil {
		defer close(sink.Annotations)
	}

	if len(req.UserId) == 0 {
		return nil, Unauthenticated("sign in to chat")
	}

	if len(req.Messages) == 0 {
		return nil, Invalid("a message is required")
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		return nil, Invalid("the last message must come from the user")
	}

	modelId := req.ModelId
	if len(modelId) == 0 {
		modelId = s.options.DefaultModel
	}

	model, ok := s.options.Models[modelId]
	if !ok {
		return nil, Invalid("unknown model %s", modelId)
	}

	if model.Premium && !hasRole(req.Roles, s.options.PremiumRole) {
		return nil, Invalid("model %s is not available on your plan", modelId)
	}

	// no side effects above this line
	consumed, err := s.options.Ledger.Consume(ctx, req.UserId, model.CreditKind)
	if err != nil {
		return nil, fmt.Errorf("failed to consume credit: %w", err)
	}
	if !consumed {
		return nil, Exhausted("you are out of credits; buy more or wait for your refill")
	}

	result, err := s.continueTurn(ctx, req, modelId, model, sink)
	if err != nil {
		s.restore(ctx, req.UserId, model.CreditKind)
		return nil, err
	}

	return result, nil
}

func (s *Service) continueTurn(ctx context.Context, req *TurnRequest, modelId string, model ModelSpec, sink *Sink) (*TurnResult, error) {
	chat, err := s.resolveChat(ctx, req)
	if err != nil {
		return nil, err
	}

	if sink.OnChat != nil {
		sink.OnChat(chat.Id)
	}

	last := req.Messages[len(req.Messages)-1]

	if err := s.options.Store.UpsertMessage(ctx, &store.Message{
		Id:      last.Id,
		ChatId:  chat.Id,
		UserId:  req.UserId,
		Role:    last.Role,
		Content: last.Content,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	budget := model.ContextTokens - model.ReservedOutputTokens - estimateTokens(req.AdditionalContext)
	trimmed := trimToBudget(req.Messages, budget)
	if len(trimmed) == 0 {
		return nil, Invalid("the last message must come from the user")
	}

	// renamed once per turn until the user picks a name themselves
	if s.options.Namer != nil && !chat.CustomName {
		go s.nameChat(chat.Id, last.Content)
	}

	decision, err := s.options.Router.Route(ctx, last.Content, formatTranscript(trimmed))
	if err != nil {
		return nil, err
	}

	out, err := s.dispatch(ctx, decision, chat.Id, trimmed, req.AdditionalContext, sink.OnDelta)
	if err != nil {
		return nil, err
	}

	invocations := s.processToolCalls(ctx, req.UserId, out.ToolCalls)

	assistant := &store.Message{
		Id:              uuid.New().String(),
		ChatId:          chat.Id,
		UserId:          req.UserId,
		Role:            "assistant",
		Content:         out.Answer,
		ToolInvocations: invocations,
		FinishReason:    string(out.FinishReason),
		OriginMessageId: last.Id,
	}

	if err := s.options.Store.UpsertMessage(ctx, assistant); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	// links depend on the assistant row existing
	links := make([]store.SourceDocumentLink, 0, len(out.SourceDocuments))
	for _, doc := range out.SourceDocuments {
		links = append(links, store.SourceDocumentLink{
			MessageId:  assistant.Id,
			DocumentId: doc.Id,
			Distance:   doc.Distance,
			Metric:     doc.Metric,
		})
	}

	if err := s.options.Store.LinkSourceDocuments(ctx, assistant.Id, links); err != nil {
		return nil, fmt.Errorf("failed to link source documents: %w", err)
	}

	switch out.FinishReason {
	case generator.FinishStop, generator.FinishToolCalls:
	default:
		s.restore(ctx, req.UserId, model.CreditKind)
	}

	if sink.Annotations != nil {
		sink.Annotations <- Annotation{ChatId: chat.Id, ModelId: modelId}
	}

	return &TurnResult{
		ChatId:          chat.Id,
		ModelId:         modelId,
		MessageId:       assistant.Id,
		Text:            out.Answer,
		FinishReason:    out.FinishReason,
		SourceDocuments: out.SourceDocuments,
		ToolInvocations: invocations,
	}, nil
}

func (s *Service) resolveChat(ctx context.Context, req *TurnRequest) (*store.Chat, error) {
	if len(req.ChatId) > 0 {
		return s.authorizeChat(ctx, req.UserId, req.ChatId)
	}

	chat := &store.Chat{
		Id:     uuid.New().String(),
		UserId: req.UserId,
		Name:   defaultChatName,
	}

	if err := s.options.Store.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return chat, nil
}

// dispatch matches the routing decision exhaustively; the destination set is
// closed.
func (s *Service) dispatch(ctx context.Context, decision *router.Decision, chatId string, trimmed []TurnMessage, additionalContext string, onDelta func(text string)) (*knowledge.Output, error) {
	switch decision.Destination {
	case router.Identity:
		return s.respondDirectly(ctx, identityPrompt, trimmed, onDelta)
	case router.ChatHistory:
		return s.respondFromHistory(ctx, chatId, decision.NextQuery, trimmed, onDelta)
	case router.KnowledgeBase:
		query := decision.NextQuery
		if len(additionalContext) > 0 {
			query = fmt.Sprintf("%s\n\nAdditional context: %s", query, additionalContext)
		}
		out, err := s.options.Knowledge.Run(ctx, query, toGeneratorMessages(trimmed[:len(trimmed)-1]), onDelta)
		if err != nil {
			return nil, fmt.Errorf("failed to answer from the knowledge base: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unhandled destination %s", decision.Destination)
	}
}

// respondFromHistory recalls salient messages from the chat's full log, not
// just the trimmed transcript, so context dropped by the token budget can
// still inform the answer.
func (s *Service) respondFromHistory(ctx context.Context, chatId string, query string, trimmed []TurnMessage, onDelta func(text string)) (*knowledge.Output, error) {
	if s.options.Memory == nil {
		return s.respondDirectly(ctx, historyPrompt, trimmed, onDelta)
	}

	msgs, err := s.options.Store.ListMessages(ctx, chatId)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	lastId := trimmed[len(trimmed)-1].Id

	docs := make([]vectorstore.Document, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Id == lastId {
			continue
		}
		docs = append(docs, vectorstore.Document{
			Id:      msg.Id,
			Content: fmt.Sprintf("%s: %s", msg.Role, msg.Content),
		})
	}

	system := historyPrompt
	if len(docs) > 0 {
		memory := s.options.Memory()
		if err := memory.AddDocuments(ctx, docs); err != nil {
			return nil, fmt.Errorf("failed to index chat history: %w", err)
		}

		records, err := memory.Retrieve(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to recall chat history: %w", err)
		}

		if len(records) > 0 {
			var b strings.Builder
			for _, record := range records {
				fmt.Fprintf(&b, "- %s\n", record.Content)
			}
			system = fmt.Sprintf("%s\n\nRecalled earlier conversation:\n%s", historyPrompt, b.String())
		}
	}

	return s.respondDirectly(ctx, system, trimmed, onDelta)
}

func (s *Service) respondDirectly(ctx context.Context, system string, trimmed []TurnMessage, onDelta func(text string)) (*knowledge.Output, error) {
	rsp, err := s.options.Generator.Stream(ctx, generator.Request{
		System:   system,
		Messages: toGeneratorMessages(trimmed),
		Tools:    s.options.Catalog.GeneratorTools(),
	}, onDelta)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	return &knowledge.Output{
		Answer:       rsp.Text,
		ToolCalls:    rsp.ToolCalls,
		FinishReason: rsp.FinishReason,
	}, nil
}

// processToolCalls executes bound, confirmation-free tools inline and parks
// everything else as a pending partial call for the confirm step. A tool
// failure becomes an error-status result, never a turn failure.
func (s *Service) processToolCalls(ctx context.Context, userId string, calls []generator.ToolCall) []store.ToolInvocation {
	var invocations []store.ToolInvocation

	for _, call := range calls {
		inv := store.ToolInvocation{
			Id:   call.Id,
			Name: call.Name,
			Args: call.Args,
		}
		if len(inv.Id) == 0 {
			inv.Id = uuid.New().String()
		}

		handler, bound := s.options.Catalog.Get(call.Name)
		if !bound {
			inv.State = store.StatePartialCall
			invocations = append(invocations, inv)
			continue
		}

		if handler.Spec().Confirmation {
			inv.State = store.StatePartialCall
			invocations = append(invocations, inv)
			continue
		}

		inv.State = store.StateCall
		inv.Result = s.invoke(ctx, handler, userId, call.Args)
		inv.State = store.StateResult

		invocations = append(invocations, inv)
	}

	return invocations
}

func (s *Service) invoke(ctx context.Context, handler toolhandler.ToolHandler, userId string, args json.RawMessage) json.RawMessage {
	arguments := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return rawResult(toolhandler.ErrorResult("invalid tool arguments").Content)
		}
	}

	rsp, err := handler.Invoke(ctx, toolhandler.ToolRequest{
		UserId:    userId,
		Arguments: arguments,
	})
	if err != nil {
		slog.ErrorContext(ctx, "tool invocation failed", "tool", handler.Spec().Name, "error", err)
		return rawResult(toolhandler.ErrorResult("the tool could not be run").Content)
	}

	return rawResult(rsp.Content)
}

type ConfirmRequest struct {
	UserId           string
	MessageId        string
	ToolInvocationId string
	Approve          bool
}

// ConfirmTool completes the two-phase tool contract: a partial call persisted
// during a turn is executed (or rejected) and its stored invocation
// finalized.
func (s *Service) ConfirmTool(ctx context.Context, req *ConfirmRequest) (*store.ToolInvocation, error) {
	if len(req.UserId) == 0 {
		return nil, Unauthenticated("sign in to confirm a tool")
	}

	msg, err := s.options.Store.GetMessage(ctx, req.MessageId)
	if err == store.ErrNotFound {
		return nil, NotFound("message %s not found", req.MessageId)
	}
	if err != nil {
		return nil, err
	}

	if msg.UserId != req.UserId {
		return nil, Forbidden("this message belongs to someone else")
	}

	index := -1
	for i, inv := range msg.ToolInvocations {
		if inv.Id == req.ToolInvocationId && inv.State == store.StatePartialCall {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, NotFound("no pending tool call %s", req.ToolInvocationId)
	}

	inv := msg.ToolInvocations[index]

	if !req.Approve {
		inv.State = store.StateResult
		inv.Result = rawResult(toolhandler.ErrorResult("rejected by the user").Content)
	} else if handler, bound := s.options.Catalog.Get(inv.Name); bound {
		inv.State = store.StateResult
		inv.Result = s.invoke(ctx, handler, req.UserId, inv.Args)
	} else {
		inv.State = store.StateResult
		inv.Result = rawResult(toolhandler.ErrorResult(fmt.Sprintf("unknown tool %s", inv.Name)).Content)
	}

	msg.ToolInvocations[index] = inv

	if err := s.options.Store.UpdateToolInvocations(ctx, msg.Id, msg.ToolInvocations); err != nil {
		return nil, fmt.Errorf("failed to finalize tool invocation: %w", err)
	}

	return &inv, nil
}

func (s *Service) nameChat(chatId string, seed string) {
	ctx := s.options.Context

	rsp, err := s.options.Namer.Generate(ctx, generator.Request{
		System: namerPrompt,
		Messages: []generator.Message{
			{Role: generator.RoleUser, Content: seed},
		},
		MaxTokens: 24,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to name chat", "chat", chatId, "error", err)
		return
	}

	name := strings.Trim(strings.TrimSpace(rsp.Text), `"`)
	if len(name) == 0 {
		return
	}

	if err := s.options.Store.RenameChat(ctx, chatId, name, false); err != nil {
		slog.ErrorContext(ctx, "failed to rename chat", "chat", chatId, "error", err)
	}
}

func (s *Service) restore(ctx context.Context, userId string, kind string) {
	if err := s.options.Ledger.Restore(ctx, userId, kind); err != nil {
		slog.ErrorContext(ctx, "failed to restore credit", "user", userId, "kind", kind, "error", err)
	}
}

func rawResult(content string) json.RawMessage {
	if json.Valid([]byte(content)) {
		return json.RawMessage(content)
	}

	b, _ := json.Marshal(content)
	return b
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func formatTranscript(msgs []TurnMessage) string {
	var b strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}

func toGeneratorMessages(msgs []TurnMessage) []generator.Message {
	converted := make([]generator.Message, 0, len(msgs))
	for _, msg := range msgs {
		converted = append(converted, generator.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return converted
}

func NewService(opts ...Option) *Service {
	options := NewOptions(opts...)

	return &Service{
		options: options,
	}
}
