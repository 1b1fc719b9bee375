package texter

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/klipach/texter/contract"
	"github.com/klipach/texter/log"
)

// AddChat finds or creates the two-party chat with the user behind number.
// The pair is unordered: a chat stored as (them, me) blocks creating
// (me, them) just the same.
func (c *Client) AddChat(ctx context.Context, number string) error {
	if !validNumber(number) {
		return c.report(ctx, "add chat", validationErr("Please enter a valid number"))
	}

	c.mu.Lock()
	me := c.user
	hasUser := c.hasUser
	c.mu.Unlock()
	if !hasUser {
		return c.report(ctx, "add chat", notFoundErr("No active session"))
	}

	c.mu.Lock()
	c.inProgressChats = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inProgressChats = false
		c.mu.Unlock()
		c.signal()
	}()

	pair := firestore.OrFilter{
		Filters: []firestore.EntityFilter{
			firestore.AndFilter{
				Filters: []firestore.EntityFilter{
					firestore.PropertyFilter{Path: "userOne.number", Operator: "==", Value: number},
					firestore.PropertyFilter{Path: "userTwo.number", Operator: "==", Value: me.Number},
				},
			},
			firestore.AndFilter{
				Filters: []firestore.EntityFilter{
					firestore.PropertyFilter{Path: "userOne.number", Operator: "==", Value: me.Number},
					firestore.PropertyFilter{Path: "userTwo.number", Operator: "==", Value: number},
				},
			},
		},
	}

	existing, err := c.fs.Collection(contract.ChatCollection).
		WhereEntity(pair).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return c.report(ctx, "add chat", transportErr("Could not look up chat", err))
	}
	if len(existing) > 0 {
		return c.report(ctx, "add chat", conflictErr("Chat already exists"))
	}

	partners, err := c.fs.Collection(contract.UserCollection).
		Where("number", "==", number).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return c.report(ctx, "add chat", transportErr("Could not look up user", err))
	}
	if len(partners) == 0 {
		return c.report(ctx, "add chat", notFoundErr("User not found"))
	}

	var partner contract.User
	if err := partners[0].DataTo(&partner); err != nil {
		return c.report(ctx, "add chat", transportErr("Could not look up user", err))
	}

	ref := c.fs.Collection(contract.ChatCollection).NewDoc()
	chat := contract.Chat{
		ChatID:  ref.ID,
		UserOne: me.Snapshot(),
		UserTwo: partner.Snapshot(),
	}
	if _, err := ref.Set(ctx, chat); err != nil {
		return c.report(ctx, "add chat", transportErr("Could not create chat", err))
	}

	log.LoggerFromContext(ctx).Info("chat created",
		slog.String(chatIDLogField, ref.ID),
		slog.String(numberLogField, number),
	)
	return nil
}

// chatsQuery selects every chat the user participates in, on either side.
func (c *Client) chatsQuery(uid string) firestore.Query {
	return c.fs.Collection(contract.ChatCollection).WhereEntity(firestore.OrFilter{
		Filters: []firestore.EntityFilter{
			firestore.PropertyFilter{Path: "userOne.userId", Operator: "==", Value: uid},
			firestore.PropertyFilter{Path: "userTwo.userId", Operator: "==", Value: uid},
		},
	})
}

// watchChats starts the live chat list subscription once per session.
func (c *Client) watchChats(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chatsStream != nil {
		return
	}
	c.inProgressChats = true
	c.chatsStream = newStream(context.Background(), func(ctx context.Context, _ *stream) {
		c.runChats(ctx, uid)
	})
}

func (c *Client) runChats(ctx context.Context, uid string) {
	it := c.chatsQuery(uid).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if isCanceled(err) {
				return
			}
			c.report(ctx, "chat list subscription", transportErr("Cannot retrieve chats", err))
			c.mu.Lock()
			c.inProgressChats = false
			c.mu.Unlock()
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			c.report(ctx, "chat list subscription", transportErr("Cannot retrieve chats", err))
			continue
		}

		chats := make([]contract.Chat, 0, len(docs))
		for _, doc := range docs {
			var chat contract.Chat
			if err := doc.DataTo(&chat); err != nil {
				continue
			}
			chats = append(chats, chat)
		}

		c.mu.Lock()
		c.chats = chats
		c.inProgressChats = false
		c.mu.Unlock()
		c.signal()
	}
}

// ChatPartner returns the other participant of chat from uid's point of
// view.
func ChatPartner(chat contract.Chat, uid string) contract.ChatUser {
	if chat.UserOne.UserID == uid {
		return chat.UserTwo
	}
	return chat.UserOne
}

func validNumber(number string) bool {
	if number == "" {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
