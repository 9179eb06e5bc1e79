package store

import (
	"encoding/json"
	"time"
)

type Chat struct {
	Id         string    `json:"id"`
	UserId     string    `json:"userId"`
	Name       string    `json:"name"`
	CustomName bool      `json:"customName"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Message struct {
	Id              string           `json:"id"`
	ChatId          string           `json:"chatId"`
	UserId          string           `json:"userId"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
	FinishReason    string           `json:"finishReason,omitempty"`
	OriginMessageId string           `json:"originMessageId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Tool invocation states. Consumers rendering history must handle all three.
const (
	StatePartialCall = "partial-call"
	StateCall        = "call"
	StateResult      = "result"
)

type ToolInvocation struct {
	Id     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args,omitempty"`
	State  string          `json:"state"`
	Result json.RawMessage `json:"result,omitempty"`
}

type SourceDocumentLink struct {
	MessageId  string  `json:"messageId"`
	DocumentId string  `json:"documentId"`
	Distance   float32 `json:"distance"`
	Metric     string  `json:"metric"`
}

type Highlight struct {
	UserId      string `json:"userId"`
	BibleAbbrev string `json:"bibleAbbrev"`
	Book        string `json:"book"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`
	Color       string `json:"color"`
}

// Bookmark marks a verse, or a whole chapter when Verse is zero.
type Bookmark struct {
	UserId      string `json:"userId"`
	BibleAbbrev string `json:"bibleAbbrev"`
	Book        string `json:"book"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse,omitempty"`
}

type Bible struct {
	Id           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	Books        []Book `json:"books,omitempty"`
}

type Book struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	Number   int       `json:"number"`
	Chapters []Chapter `json:"chapters,omitempty"`
}

type Chapter struct {
	Id     string  `json:"id"`
	Number int     `json:"number"`
	Verses []Verse `json:"verses,omitempty"`
}

type Verse struct {
	Id     string `json:"id"`
	Number int    `json:"number"`
	Text   string `json:"text"`
}
