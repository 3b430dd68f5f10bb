package voicelink

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voicelink/voicelink/docstore"
)

// Send persists a message whose payload was already uploaded.
func (s *service) Send(ctx context.Context, senderID, recipientID, mediaURL string) (msg Message, err error) {
	if err := s.checkConnected(); err != nil {
		return Message{}, err
	}
	if err := validateSend(senderID, recipientID, mediaURL); err != nil {
		return Message{}, err
	}

	// Bound concurrent sends; waiters respect the caller's context.
	if err := s.sendSem.Acquire(ctx, 1); err != nil {
		return Message{}, err
	}
	defer s.sendSem.Release(1)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.Send",
		attribute.String("sender_id", senderID),
		attribute.String("recipient_id", recipientID))
	defer func() { end(err) }()

	start := time.Now()

	now := s.opts.now()
	msg = Message{
		ID:          newMessageID(now),
		ChatID:      ChatID(senderID, recipientID),
		SenderID:    senderID,
		RecipientID: recipientID,
		MediaURL:    mediaURL,
		Timestamp:   formatTimestamp(now),
		IsRead:      false,
	}

	err = s.store.SetMerge(ctx, collectionMessages, msg.ID, msg.fields())
	s.otel.recordSend(ctx, time.Since(start), err)
	if err != nil {
		return Message{}, err
	}

	s.logger.Debug("message sent",
		"message_id", msg.ID,
		"chat_id", msg.ChatID,
	)
	return msg, nil
}

// SendVoice uploads the voice payload to the media store, then sends a
// message referencing it. Requires a configured media store.
func (s *service) SendVoice(ctx context.Context, senderID, recipientID, filename, contentType string, content io.Reader) (Message, error) {
	if err := s.checkConnected(); err != nil {
		return Message{}, err
	}
	if s.media == nil {
		return Message{}, ErrMediaStoreNotConfigured
	}
	if content == nil {
		return Message{}, fmt.Errorf("%w: nil content", ErrInvalidMessage)
	}

	uri, err := s.media.Upload(ctx, filename, contentType, content)
	if err != nil {
		return Message{}, fmt.Errorf("upload voice payload: %w", err)
	}

	msg, err := s.Send(ctx, senderID, recipientID, uri)
	if err != nil {
		// The payload is orphaned if the document write failed; best-effort cleanup.
		if delErr := s.media.Delete(ctx, uri); delErr != nil {
			s.logger.Warn("orphaned voice payload after failed send", "uri", uri, "error", delErr)
		}
		return Message{}, err
	}
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *service) GetMessage(ctx context.Context, messageID string) (Message, error) {
	if err := s.checkConnected(); err != nil {
		return Message{}, err
	}
	if err := validateID("message", messageID); err != nil {
		return Message{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Get(ctx, collectionMessages, messageID)
	if err != nil {
		if docstore.IsNotFound(err) {
			return Message{}, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
		}
		return Message{}, err
	}
	return messageFromDocument(doc), nil
}

// MarkRead transitions a message to read. The transition is one-way: marking
// an already read message again is a no-op, and nothing ever clears the flag.
func (s *service) MarkRead(ctx context.Context, messageID string) (err error) {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := validateID("message", messageID); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.MarkRead",
		attribute.String("message_id", messageID))
	defer func() { end(err) }()

	err = s.store.UpdateFields(ctx, collectionMessages, messageID, map[string]any{
		fieldIsRead: true,
	})
	if err != nil {
		if docstore.IsNotFound(err) {
			return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
		}
		return err
	}
	return nil
}

// ChatMessages lists the conversation between two participants in ascending
// timestamp order. Served by the fallback engine.
func (s *service) ChatMessages(ctx context.Context, participantA, participantB string, limit int) (msgs []Message, err error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if participantA == "" || participantB == "" {
		return nil, fmt.Errorf("%w: empty participant id", ErrInvalidMessage)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.ChatMessages")
	defer func() { end(err) }()

	start := time.Now()

	msgs, fellBack, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionMessages,
		Conditions: []docstore.Condition{
			docstore.Eq(fieldChatID, ChatID(participantA, participantB)),
		},
		OrderBy: fieldTimestamp,
		Order:   docstore.SortAsc,
		Limit:   s.clampLimit(limit),
	}, messageFromDocument)

	s.otel.recordQuery(ctx, collectionMessages, time.Since(start), fellBack, err)
	return msgs, err
}

// UnreadMessages lists unread messages addressed to the recipient, newest
// first. Served by the fallback engine.
func (s *service) UnreadMessages(ctx context.Context, recipientID string, limit int) (msgs []Message, err error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := validateID("account", recipientID); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.UnreadMessages")
	defer func() { end(err) }()

	start := time.Now()

	msgs, fellBack, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionMessages,
		Conditions: []docstore.Condition{
			docstore.Eq(fieldRecipientID, recipientID),
			docstore.Eq(fieldIsRead, false),
		},
		OrderBy: fieldTimestamp,
		Order:   docstore.SortDesc,
		Limit:   s.clampLimit(limit),
	}, messageFromDocument)

	s.otel.recordQuery(ctx, collectionMessages, time.Since(start), fellBack, err)
	return msgs, err
}
