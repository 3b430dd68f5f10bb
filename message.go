package voicelink

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voicelink/voicelink/docstore"
)

// Message document field names.
const (
	fieldChatID      = "chat_id"
	fieldSenderID    = "sender_id"
	fieldRecipientID = "recipient_id"
	fieldMediaURL    = "media_url"
	fieldTimestamp   = "timestamp"
	fieldIsRead      = "is_read"
)

// timestampLayout is a fixed-width UTC layout so that lexical comparison of
// timestamp strings matches temporal order. RFC3339Nano is unsuitable here
// because it trims trailing zeros.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Message is a direct message between two accounts. The payload is a media
// URL (voice note); there is no text body.
type Message struct {
	// ID is the message identifier (document key).
	ID string

	// ChatID identifies the conversation. See ChatID().
	ChatID string

	// SenderID and RecipientID are the two participant account IDs.
	SenderID    string
	RecipientID string

	// MediaURL references the voice payload in media storage.
	MediaURL string

	// Timestamp is the creation time in timestampLayout. Lexical order on
	// this string equals temporal order.
	Timestamp string

	// IsRead reports whether the recipient has played the message.
	// Transitions false to true exactly once; never reversed.
	IsRead bool
}

// ChatID derives the conversation identifier for two participants.
// The participants are sorted before joining, so ChatID(a, b) == ChatID(b, a).
func ChatID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// newMessageID builds a message identifier from the creation time and a
// random suffix, keeping IDs roughly time-sortable for debugging.
func newMessageID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("dm-%d-%s", now.UnixMilli(), suffix[:9])
}

// formatTimestamp renders t in timestampLayout, always in UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// messageFromDocument is the single place message documents are decoded.
func messageFromDocument(doc docstore.Document) Message {
	return Message{
		ID:          doc.Key,
		ChatID:      doc.GetString(fieldChatID),
		SenderID:    doc.GetString(fieldSenderID),
		RecipientID: doc.GetString(fieldRecipientID),
		MediaURL:    doc.GetString(fieldMediaURL),
		Timestamp:   doc.GetString(fieldTimestamp),
		IsRead:      doc.GetBool(fieldIsRead),
	}
}

// fields is the single place message documents are encoded.
func (m Message) fields() map[string]any {
	return map[string]any{
		fieldChatID:      m.ChatID,
		fieldSenderID:    m.SenderID,
		fieldRecipientID: m.RecipientID,
		fieldMediaURL:    m.MediaURL,
		fieldTimestamp:   m.Timestamp,
		fieldIsRead:      m.IsRead,
	}
}

// ChatSummary is the derived last-message/unread view of a conversation.
// It is recomputed on every request and never persisted.
type ChatSummary struct {
	// LastMessage is the most recent message in the chat, nil when the chat
	// is empty or the read degraded.
	LastMessage *Message

	// UnreadCount is the number of unplayed messages addressed to the
	// requesting participant.
	UnreadCount int

	// Degraded is true when the summary could not be computed and the
	// zero values above stand in for real data. Distinguishes "empty chat"
	// from "read failed".
	Degraded bool
}
