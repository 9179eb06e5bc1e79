package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/berea-ai/berea/internal/store"
	_ "github.com/lib/pq"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"postgres",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		detail := "failed to register postgres store with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

type postgresStore struct {
	options store.Options
	conn    *sql.DB
}

func (s *postgresStore) CreateChat(ctx context.Context, chat *store.Chat) error {
	now := time.Now().UTC()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now

	_, err := s.conn.ExecContext(
		ctx,
		`INSERT INTO chats (id, user_id, name, custom_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		chat.Id, chat.UserId, chat.Name, chat.CustomName, chat.CreatedAt, chat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	return nil
}

func (s *postgresStore) GetChat(ctx context.Context, id string) (*store.Chat, error) {
	chat := &store.Chat{}

	err := s.conn.QueryRowContext(
		ctx,
		`SELECT id, user_id, name, custom_name, created_at, updated_at FROM chats WHERE id = $1`,
		id,
	).Scan(&chat.Id, &chat.UserId, &chat.Name, &chat.CustomName, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return chat, nil
}

func (s *postgresStore) ListChats(ctx context.Context, userId string) ([]*store.Chat, error) {
	rows, err := s.conn.QueryContext(
		ctx,
		`SELECT id, user_id, name, custom_name, created_at, updated_at FROM chats WHERE user_id = $1 ORDER BY updated_at DESC, id`,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*store.Chat

	for rows.Next() {
		chat := &store.Chat{}
		if err := rows.Scan(&chat.Id, &chat.UserId, &chat.Name, &chat.CustomName, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}

	return chats, rows.Err()
}

func (s *postgresStore) RenameChat(ctx context.Context, id string, name string, custom bool) error {
	result, err := s.conn.ExecContext(
		ctx,
		`UPDATE chats SET name = $1, custom_name = $2, updated_at = $3 WHERE id = $4`,
		name, custom, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to rename chat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *postgresStore) UpsertMessage(ctx context.Context, msg *store.Message) error {
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	invocations, err := marshalInvocations(msg.ToolInvocations)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(
		ctx,
		`INSERT INTO messages (id, chat_id, user_id, role, content, tool_invocations, finish_reason, origin_message_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			tool_invocations = EXCLUDED.tool_invocations,
			finish_reason = EXCLUDED.finish_reason,
			updated_at = EXCLUDED.updated_at`,
		msg.Id, msg.ChatId, msg.UserId, msg.Role, msg.Content, invocations, msg.FinishReason, msg.OriginMessageId, msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	return nil
}

func (s *postgresStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	row := s.conn.QueryRowContext(
		ctx,
		`SELECT id, chat_id, user_id, role, content, tool_invocations, finish_reason, origin_message_id, created_at, updated_at
		 FROM messages WHERE id = $1`,
		id,
	)

	msg, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

func (s *postgresStore) ListMessages(ctx context.Context, chatId string) ([]*store.Message, error) {
	rows, err := s.conn.QueryContext(
		ctx,
		`SELECT id, chat_id, user_id, role, content, tool_invocations, finish_reason, origin_message_id, created_at, updated_at
		 FROM messages WHERE chat_id = $1 ORDER BY created_at, id`,
		chatId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*store.Message

	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

func (s *postgresStore) UpdateToolInvocations(ctx context.Context, messageId string, invocations []store.ToolInvocation) error {
	encoded, err := marshalInvocations(invocations)
	if err != nil {
		return err
	}

	result, err := s.conn.ExecContext(
		ctx,
		`UPDATE messages SET tool_invocations = $1, updated_at = $2 WHERE id = $3`,
		encoded, time.Now().UTC(), messageId,
	)
	if err != nil {
		return fmt.Errorf("failed to update tool invocations: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *postgresStore) LinkSourceDocuments(ctx context.Context, messageId string, links []store.SourceDocumentLink) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO message_source_documents (message_id, document_id, distance, metric) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (message_id, document_id) DO NOTHING`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.ExecContext(ctx, messageId, link.DocumentId, link.Distance, link.Metric); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *postgresStore) ListSourceDocuments(ctx context.Context, messageId string) ([]store.SourceDocumentLink, error) {
	rows, err := s.conn.QueryContext(
		ctx,
		`SELECT message_id, document_id, distance, metric FROM message_source_documents WHERE message_id = $1`,
		messageId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []store.SourceDocumentLink

	for rows.Next() {
		var link store.SourceDocumentLink
		if err := rows.Scan(&link.MessageId, &link.DocumentId, &link.Distance, &link.Metric); err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func (s *postgresStore) UpsertHighlight(ctx context.Context, highlight store.Highlight) error {
	_, err := s.conn.ExecContext(
		ctx,
		`INSERT INTO highlights (user_id, bible, book, chapter, verse, color) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, bible, book, chapter, verse) DO UPDATE SET color = EXCLUDED.color`,
		highlight.UserId, highlight.BibleAbbrev, highlight.Book, highlight.Chapter, highlight.Verse, highlight.Color,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert highlight: %w", err)
	}

	return nil
}

func (s *postgresStore) ListHighlights(ctx context.Context, userId string) ([]store.Highlight, error) {
	rows, err := s.conn.QueryContext(
		ctx,
		`SELECT user_id, bible, book, chapter, verse, color FROM highlights WHERE user_id = $1 ORDER BY bible, book, chapter, verse`,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var highlights []store.Highlight

	for rows.Next() {
		var h store.Highlight
		if err := rows.Scan(&h.UserId, &h.BibleAbbrev, &h.Book, &h.Chapter, &h.Verse, &h.Color); err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}

	return highlights, rows.Err()
}

func (s *postgresStore) UpsertBookmark(ctx context.Context, bookmark store.Bookmark) error {
	_, err := s.conn.ExecContext(
		ctx,
		`INSERT INTO bookmarks (user_id, bible, book, chapter, verse) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, bible, book, chapter, verse) DO NOTHING`,
		bookmark.UserId, bookmark.BibleAbbrev, bookmark.Book, bookmark.Chapter, bookmark.Verse,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bookmark: %w", err)
	}

	return nil
}

func (s *postgresStore) ListBookmarks(ctx context.Context, userId string) ([]store.Bookmark, error) {
	rows, err := s.conn.QueryContext(
		ctx,
		`SELECT user_id, bible, book, chapter, verse FROM bookmarks WHERE user_id = $1 ORDER BY bible, book, chapter, verse`,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []store.Bookmark

	for rows.Next() {
		var b store.Bookmark
		if err := rows.Scan(&b.UserId, &b.BibleAbbrev, &b.Book, &b.Chapter, &b.Verse); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, rows.Err()
}

func (s *postgresStore) SeedBible(ctx context.Context, bible *store.Bible) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO bibles (id, abbreviation, name) VALUES ($1, $2, $3) ON CONFLICT (abbreviation) DO NOTHING`,
		bible.Id, bible.Abbreviation, bible.Name,
	); err != nil {
		return fmt.Errorf("failed to seed bible: %w", err)
	}

	for _, book := range bible.Books {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO books (id, bible_id, name, number) VALUES ($1, $2, $3, $4)`,
			book.Id, bible.Id, book.Name, book.Number,
		); err != nil {
			return fmt.Errorf("failed to seed book %s: %w", book.Name, err)
		}

		for _, chapter := range book.Chapters {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO chapters (id, book_id, number) VALUES ($1, $2, $3)`,
				chapter.Id, book.Id, chapter.Number,
			); err != nil {
				return fmt.Errorf("failed to seed chapter %d: %w", chapter.Number, err)
			}

			for _, verse := range chapter.Verses {
				if _, err := tx.ExecContext(
					ctx,
					`INSERT INTO verses (id, chapter_id, number, text) VALUES ($1, $2, $3, $4)`,
					verse.Id, chapter.Id, verse.Number, verse.Text,
				); err != nil {
					return fmt.Errorf("failed to seed verse %d: %w", verse.Number, err)
				}
			}
		}
	}

	return tx.Commit()
}

func (s *postgresStore) ListVerses(ctx context.Context, bibleAbbrev string, book string, chapter int) ([]store.Verse, error) {
	var chapterId string

	err := s.conn.QueryRowContext(
		ctx,
		`SELECT c.id
		 FROM chapters c
		 JOIN books b ON b.id = c.book_id
		 JOIN bibles bb ON bb.id = b.bible_id
		 WHERE lower(bb.abbreviation) = lower($1) AND lower(b.name) = lower($2) AND c.number = $3`,
		bibleAbbrev, book, chapter,
	).Scan(&chapterId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(
		ctx,
		`SELECT id, number, text FROM verses WHERE chapter_id = $1 ORDER BY number`,
		chapterId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verses []store.Verse

	for rows.Next() {
		var v store.Verse
		if err := rows.Scan(&v.Id, &v.Number, &v.Text); err != nil {
			return nil, err
		}
		verses = append(verses, v)
	}

	return verses, rows.Err()
}

func marshalInvocations(invocations []store.ToolInvocation) (sql.NullString, error) {
	if len(invocations) == 0 {
		return sql.NullString{}, nil
	}

	b, err := json.Marshal(invocations)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal tool invocations: %w", err)
	}

	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanMessage(scan func(dest ...any) error) (*store.Message, error) {
	msg := &store.Message{}

	var invocations, finishReason, originMessageId sql.NullString

	if err := scan(
		&msg.Id, &msg.ChatId, &msg.UserId, &msg.Role, &msg.Content,
		&invocations, &finishReason, &originMessageId, &msg.CreatedAt, &msg.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if invocations.Valid {
		if err := json.Unmarshal([]byte(invocations.String), &msg.ToolInvocations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool invocations: %w", err)
		}
	}

	msg.FinishReason = finishReason.String
	msg.OriginMessageId = originMessageId.String

	return msg, nil
}

func NewStore(opts ...store.Option) store.Store {
	options := store.NewOptions(opts...)

	s := &postgresStore{
		options: options,
	}

	conn, err := sql.Open(DRIVER, options.Location)
	if err != nil {
		detail := "failed to open postgres store"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	if err := conn.PingContext(options.Context); err != nil {
		detail := "failed to ping postgres store"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	if err := otelsql.RecordStats(conn); err != nil {
		detail := "failed to record postgres store stats"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	s.conn = conn

	return s
}
