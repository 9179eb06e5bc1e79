package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/berea-ai/berea/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	return NewStore(store.WithLocation(":memory:"))
}

func TestChatLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat := &store.Chat{Id: "c1", UserId: "u1", Name: "New chat"}
	if err := s.CreateChat(ctx, chat); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}

	got, err := s.GetChat(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if got.Name != "New chat" || got.UserId != "u1" || got.CustomName {
		t.Fatalf("unexpected chat: %+v", got)
	}

	if err := s.RenameChat(ctx, "c1", "Questions about hope", false); err != nil {
		t.Fatalf("RenameChat failed: %v", err)
	}

	got, err = s.GetChat(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChat after rename failed: %v", err)
	}
	if got.Name != "Questions about hope" {
		t.Fatalf("rename not applied: %+v", got)
	}

	if _, err := s.GetChat(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.RenameChat(ctx, "missing", "x", false); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListChatsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateChat(ctx, &store.Chat{Id: "c1", UserId: "u1", Name: "New chat"}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if err := s.CreateChat(ctx, &store.Chat{Id: "c2", UserId: "u1", Name: "New chat"}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if err := s.CreateChat(ctx, &store.Chat{Id: "c3", UserId: "u2", Name: "New chat"}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}

	// touching c1 bumps it to the top
	if err := s.RenameChat(ctx, "c1", "Questions about hope", true); err != nil {
		t.Fatalf("RenameChat failed: %v", err)
	}

	chats, err := s.ListChats(ctx, "u1")
	if err != nil {
		t.Fatalf("ListChats failed: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	if chats[0].Id != "c1" {
		t.Fatalf("expected c1 first, got %s", chats[0].Id)
	}

	chats, err = s.ListChats(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListChats failed: %v", err)
	}
	if len(chats) != 0 {
		t.Fatalf("expected no chats, got %d", len(chats))
	}
}

func TestUpsertMessageIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateChat(ctx, &store.Chat{Id: "c1", UserId: "u1", Name: "New chat"}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}

	msg := &store.Message{Id: "m1", ChatId: "c1", UserId: "u1", Role: "user", Content: "first"}
	if err := s.UpsertMessage(ctx, msg); err != nil {
		t.Fatalf("UpsertMessage failed: %v", err)
	}

	msg.Content = "second"
	if err := s.UpsertMessage(ctx, msg); err != nil {
		t.Fatalf("second UpsertMessage failed: %v", err)
	}

	msgs, err := s.ListMessages(ctx, "c1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Content != "second" {
		t.Fatalf("expected updated content, got %q", msgs[0].Content)
	}
}

func TestToolInvocationsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateChat(ctx, &store.Chat{Id: "c1", UserId: "u1", Name: "New chat"}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}

	msg := &store.Message{
		Id: "m1", ChatId: "c1", UserId: "u1", Role: "assistant", Content: "done",
		ToolInvocations: []store.ToolInvocation{
			{Id: "t1", Name: "highlight_verse", Args: []byte(`{"book":"John"}`), State: store.StatePartialCall},
		},
	}
	if err := s.UpsertMessage(ctx, msg); err != nil {
		t.Fatalf("UpsertMessage failed: %v", err)
	}

	invocations := []store.ToolInvocation{
		{Id: "t1", Name: "highlight_verse", Args: []byte(`{"book":"John"}`), State: store.StateResult, Result: []byte(`{"status":"ok"}`)},
	}
	if err := s.UpdateToolInvocations(ctx, "m1", invocations); err != nil {
		t.Fatalf("UpdateToolInvocations failed: %v", err)
	}

	got, err := s.GetMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if len(got.ToolInvocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(got.ToolInvocations))
	}
	if got.ToolInvocations[0].State != store.StateResult {
		t.Fatalf("expected result state, got %q", got.ToolInvocations[0].State)
	}

	if err := s.UpdateToolInvocations(ctx, "missing", invocations); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLinkSourceDocumentsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	links := []store.SourceDocumentLink{
		{DocumentId: "d1", Distance: 0.1, Metric: "cosine"},
		{DocumentId: "d2", Distance: 0.2, Metric: "cosine"},
	}

	if err := s.LinkSourceDocuments(ctx, "m1", links); err != nil {
		t.Fatalf("LinkSourceDocuments failed: %v", err)
	}
	if err := s.LinkSourceDocuments(ctx, "m1", links); err != nil {
		t.Fatalf("second LinkSourceDocuments failed: %v", err)
	}

	got, err := s.ListSourceDocuments(ctx, "m1")
	if err != nil {
		t.Fatalf("ListSourceDocuments failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 links, got %d", len(got))
	}
}

func TestUpsertHighlightUpdatesColor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := store.Highlight{UserId: "u1", BibleAbbrev: "web", Book: "John", Chapter: 3, Verse: 16, Color: "yellow"}
	if err := s.UpsertHighlight(ctx, h); err != nil {
		t.Fatalf("UpsertHighlight failed: %v", err)
	}

	h.Color = "green"
	if err := s.UpsertHighlight(ctx, h); err != nil {
		t.Fatalf("second UpsertHighlight failed: %v", err)
	}

	highlights, err := s.ListHighlights(ctx, "u1")
	if err != nil {
		t.Fatalf("ListHighlights failed: %v", err)
	}
	if len(highlights) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(highlights))
	}
	if highlights[0].Color != "green" {
		t.Fatalf("expected updated color, got %q", highlights[0].Color)
	}
}

func TestUpsertBookmarkNoOpOnDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := store.Bookmark{UserId: "u1", BibleAbbrev: "web", Book: "John", Chapter: 3, Verse: 16}
	if err := s.UpsertBookmark(ctx, b); err != nil {
		t.Fatalf("UpsertBookmark failed: %v", err)
	}
	if err := s.UpsertBookmark(ctx, b); err != nil {
		t.Fatalf("duplicate UpsertBookmark failed: %v", err)
	}

	// whole-chapter bookmark is distinct from a verse bookmark
	if err := s.UpsertBookmark(ctx, store.Bookmark{UserId: "u1", BibleAbbrev: "web", Book: "John", Chapter: 3}); err != nil {
		t.Fatalf("chapter UpsertBookmark failed: %v", err)
	}

	bookmarks, err := s.ListBookmarks(ctx, "u1")
	if err != nil {
		t.Fatalf("ListBookmarks failed: %v", err)
	}
	if len(bookmarks) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(bookmarks))
	}
}

func TestListVerses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bible := &store.Bible{
		Id: "b1", Abbreviation: "web", Name: "World English Bible",
		Books: []store.Book{
			{
				Id: "bk1", Name: "John", Number: 43,
				Chapters: []store.Chapter{
					{
						Id: "ch1", Number: 3,
						Verses: []store.Verse{
							{Id: "v1", Number: 16, Text: "For God so loved the world..."},
							{Id: "v2", Number: 17, Text: "For God didn't send his Son..."},
						},
					},
				},
			},
		},
	}

	if err := s.SeedBible(ctx, bible); err != nil {
		t.Fatalf("SeedBible failed: %v", err)
	}

	verses, err := s.ListVerses(ctx, "WEB", "john", 3)
	if err != nil {
		t.Fatalf("ListVerses failed: %v", err)
	}
	if len(verses) != 2 {
		t.Fatalf("expected 2 verses, got %d", len(verses))
	}
	if verses[0].Number != 16 || verses[1].Number != 17 {
		t.Fatalf("verses out of order: %+v", verses)
	}

	if _, err := s.ListVerses(ctx, "web", "John", 99); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing chapter, got %v", err)
	}
	if _, err := s.ListVerses(ctx, "kjv", "John", 3); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing bible, got %v", err)
	}
}
