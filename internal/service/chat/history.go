package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/berea-ai/berea/internal/store"
)

// ListChats returns the user's chats, most recently touched first.
func (s *Service) ListChats(ctx context.Context, userId string) ([]*store.Chat, error) {
	if len(userId) == 0 {
		return nil, Unauthenticated("sign in to list chats")
	}

	chats, err := s.options.Store.ListChats(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	return chats, nil
}

// History returns the full message log of one of the user's chats.
func (s *Service) History(ctx context.Context, userId string, chatId string) ([]*store.Message, error) {
	if _, err := s.authorizeChat(ctx, userId, chatId); err != nil {
		return nil, err
	}

	msgs, err := s.options.Store.ListMessages(ctx, chatId)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return msgs, nil
}

// Rename gives one of the user's chats a custom name. A custom name is never
// overwritten by the automatic namer.
func (s *Service) Rename(ctx context.Context, userId string, chatId string, name string) (*store.Chat, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return nil, Invalid("a chat name is required")
	}

	chat, err := s.authorizeChat(ctx, userId, chatId)
	if err != nil {
		return nil, err
	}

	if err := s.options.Store.RenameChat(ctx, chatId, name, true); err != nil {
		return nil, fmt.Errorf("failed to rename chat: %w", err)
	}

	chat.Name = name
	chat.CustomName = true

	return chat, nil
}

func (s *Service) authorizeChat(ctx context.Context, userId string, chatId string) (*store.Chat, error) {
	if len(userId) == 0 {
		return nil, Unauthenticated("sign in to access chats")
	}

	chat, err := s.options.Store.GetChat(ctx, chatId)
	if err == store.ErrNotFound {
		return nil, NotFound("chat %s not found", chatId)
	}
	if err != nil {
		return nil, err
	}

	if chat.UserId != userId {
		return nil, Forbidden("this chat belongs to someone else")
	}

	return chat, nil
}
