package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a chat, message, or reference lookup resolves
// to nothing.
var ErrNotFound = errors.New("not found")

type Store interface {
	CreateChat(ctx context.Context, chat *Chat) error
	GetChat(ctx context.Context, id string) (*Chat, error)
	// ListChats returns the user's chats, most recently touched first.
	ListChats(ctx context.Context, userId string) ([]*Chat, error)
	RenameChat(ctx context.Context, id string, name string, custom bool) error

	// UpsertMessage inserts the message or, when the ID already exists,
	// replaces its mutable columns. Resubmitting a message ID never
	// duplicates the row.
	UpsertMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	ListMessages(ctx context.Context, chatId string) ([]*Message, error)
	UpdateToolInvocations(ctx context.Context, messageId string, invocations []ToolInvocation) error

	LinkSourceDocuments(ctx context.Context, messageId string, links []SourceDocumentLink) error
	ListSourceDocuments(ctx context.Context, messageId string) ([]SourceDocumentLink, error)

	UpsertHighlight(ctx context.Context, highlight Highlight) error
	ListHighlights(ctx context.Context, userId string) ([]Highlight, error)
	UpsertBookmark(ctx context.Context, bookmark Bookmark) error
	ListBookmarks(ctx context.Context, userId string) ([]Bookmark, error)

	// SeedBible loads a bible and its nested books, chapters, and verses.
	SeedBible(ctx context.Context, bible *Bible) error
	// ListVerses resolves abbrev -> book -> chapter and returns the chapter's
	// verses. An unresolved path returns ErrNotFound.
	ListVerses(ctx context.Context, bibleAbbrev string, book string, chapter int) ([]Verse, error)
}
