package texter

import (
	"context"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/klipach/texter/contract"
)

// SendMessage appends a message to the chat's log. Markup is stripped from
// the text before it is stored; the write is fire-and-forget beyond the
// error reaching the notification relay.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	clean := strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(text)))
	if clean == "" {
		return c.report(ctx, "send message", validationErr("Please enter a message"))
	}

	c.mu.Lock()
	uid := c.uid
	c.mu.Unlock()
	if uid == "" {
		return c.report(ctx, "send message", notFoundErr("No active session"))
	}

	msg := contract.Message{
		SentBy:    uid,
		Message:   clean,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	_, err := c.fs.Collection(contract.ChatCollection).
		Doc(chatID).
		Collection(contract.MessageCollection).
		NewDoc().
		Set(ctx, msg)
	if err != nil {
		return c.report(ctx, "send message", transportErr("Could not send message", err))
	}
	return nil
}

// OpenChat begins the live subscription to the chat's message log. Only one
// chat is open at a time; any previous subscription is fully stopped first
// so its updates cannot leak into the new chat's view.
func (c *Client) OpenChat(chatID string) {
	c.CloseChat()

	c.mu.Lock()
	c.inProgressMessages = true
	c.msgStream = newStream(context.Background(), func(ctx context.Context, _ *stream) {
		c.runMessages(ctx, chatID)
	})
	c.mu.Unlock()
	c.signal()
}

// CloseChat cancels the active message subscription and clears the message
// list. The subscription is stopped before the clear, so a late callback
// cannot repopulate the list. Idempotent.
func (c *Client) CloseChat() {
	c.mu.Lock()
	s := c.msgStream
	c.msgStream = nil
	c.mu.Unlock()
	s.stop()

	c.mu.Lock()
	c.messages = nil
	c.inProgressMessages = false
	c.mu.Unlock()
	c.signal()
}

func (c *Client) runMessages(ctx context.Context, chatID string) {
	it := c.fs.Collection(contract.ChatCollection).
		Doc(chatID).
		Collection(contract.MessageCollection).
		Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if isCanceled(err) {
				return
			}
			c.report(ctx, "message subscription", transportErr("Cannot retrieve messages", err))
			c.mu.Lock()
			c.inProgressMessages = false
			c.mu.Unlock()
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			c.report(ctx, "message subscription", transportErr("Cannot retrieve messages", err))
			continue
		}

		msgs := make([]contract.Message, 0, len(docs))
		for _, doc := range docs {
			var msg contract.Message
			if err := doc.DataTo(&msg); err != nil {
				continue
			}
			msgs = append(msgs, msg)
		}
		sortMessages(msgs)

		c.mu.Lock()
		c.messages = msgs
		c.inProgressMessages = false
		c.mu.Unlock()
		c.signal()
	}
}

// sortMessages orders ascending by timestamp. The sort is stable, so
// messages with equal timestamps keep their arrival order.
func sortMessages(msgs []contract.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}
