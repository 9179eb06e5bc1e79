package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListChatsOnlyOwn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, userTurn("m1", "what is hope?"), nil)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Grant(ctx, "u2", "basic", 1))
	other := userTurn("m2", "unrelated")
	other.UserId = "u2"
	_, err = f.service.Submit(ctx, other, nil)
	require.NoError(t, err)

	chats, err := f.service.ListChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, first.ChatId, chats[0].Id)

	_, err = f.service.ListChats(ctx, "")
	require.Equal(t, CodeUnauthenticated, CodeOf(err))
}

func TestHistoryReturnsFullLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Submit(ctx, userTurn("m1", "what is hope?"), nil)
	require.NoError(t, err)

	msgs, err := f.service.History(ctx, "u1", result.ChatId)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "assistant", msgs[1].Role)
	require.Equal(t, "an answer", msgs[1].Content)
}

func TestHistoryForbiddenForStrangers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Submit(ctx, userTurn("m1", "what is hope?"), nil)
	require.NoError(t, err)

	_, err = f.service.History(ctx, "u2", result.ChatId)
	require.Equal(t, CodeForbidden, CodeOf(err))

	_, err = f.service.History(ctx, "u1", "missing")
	require.Equal(t, CodeNotFound, CodeOf(err))
}

func TestRenameSetsCustomName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Submit(ctx, userTurn("m1", "what is hope?"), nil)
	require.NoError(t, err)

	renamed, err := f.service.Rename(ctx, "u1", result.ChatId, "  Study notes  ")
	require.NoError(t, err)
	require.Equal(t, "Study notes", renamed.Name)
	require.True(t, renamed.CustomName)

	got, err := f.store.GetChat(ctx, result.ChatId)
	require.NoError(t, err)
	require.Equal(t, "Study notes", got.Name)
	require.True(t, got.CustomName)
}

func TestRenameRejectsEmptyName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Submit(ctx, userTurn("m1", "what is hope?"), nil)
	require.NoError(t, err)

	_, err = f.service.Rename(ctx, "u1", result.ChatId, "   ")
	require.Equal(t, CodeInvalid, CodeOf(err))

	_, err = f.service.Rename(ctx, "u2", result.ChatId, "theirs now")
	require.Equal(t, CodeForbidden, CodeOf(err))
}
