package voicelink

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voicelink/voicelink/docstore"
)

// ChatSummary builds the chat-list entry for one conversation as seen by the
// requester: the most recent message plus the requester's unread count.
//
// Summaries degrade rather than fail. Any store error yields an empty summary
// with Degraded set, so a chat list render never breaks on one bad row. This
// is the only operation that swallows store errors; everything else
// propagates them.
func (s *service) ChatSummary(ctx context.Context, requesterID, otherID string) (ChatSummary, error) {
	if err := s.checkConnected(); err != nil {
		return ChatSummary{}, err
	}
	if err := validateID("account", requesterID); err != nil {
		return ChatSummary{}, err
	}
	if err := validateID("account", otherID); err != nil {
		return ChatSummary{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.ChatSummary",
		attribute.String("requester_id", requesterID))

	start := time.Now()
	chatID := ChatID(requesterID, otherID)
	summary := ChatSummary{}

	last, _, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionMessages,
		Conditions: []docstore.Condition{
			docstore.Eq(fieldChatID, chatID),
		},
		OrderBy: fieldTimestamp,
		Order:   docstore.SortDesc,
		Limit:   1,
	}, messageFromDocument)
	if err != nil {
		s.logger.Warn("chat summary degraded", "chat_id", chatID, "error", err)
		summary.Degraded = true
		s.otel.recordSummary(ctx, time.Since(start), true)
		end(nil)
		return summary, nil
	}
	if len(last) > 0 {
		summary.LastMessage = &last[0]
	}

	unread, _, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionMessages,
		Conditions: []docstore.Condition{
			docstore.Eq(fieldChatID, chatID),
			docstore.Eq(fieldRecipientID, requesterID),
			docstore.Eq(fieldIsRead, false),
		},
		OrderBy: fieldTimestamp,
		Order:   docstore.SortDesc,
	}, messageFromDocument)
	if err != nil {
		s.logger.Warn("chat summary degraded", "chat_id", chatID, "error", err)
		summary = ChatSummary{Degraded: true}
		s.otel.recordSummary(ctx, time.Since(start), true)
		end(nil)
		return summary, nil
	}
	summary.UnreadCount = len(unread)

	s.otel.recordSummary(ctx, time.Since(start), false)
	end(nil)
	return summary, nil
}
