package texter

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/klipach/texter/contract"
	"github.com/klipach/texter/log"
)

const (
	// statusWindow is the trailing window a status stays visible for.
	statusWindow = 24 * time.Hour

	// statusInLimit is the Firestore cap on values in an "in" filter.
	statusInLimit = 30

	// StatusItemDuration is how long the detail view shows one status
	// before advancing to the next.
	StatusItemDuration = 5 * time.Second
)

// PostStatus uploads the image and publishes it as an ephemeral status with
// a snapshot of the author's current profile.
func (c *Client) PostStatus(ctx context.Context, r io.Reader) error {
	c.mu.Lock()
	me := c.user
	hasUser := c.hasUser
	c.mu.Unlock()
	if !hasUser {
		return c.report(ctx, "post status", notFoundErr("No active session"))
	}

	c.setInProgress(true)
	defer c.setInProgress(false)

	url, err := c.uploads.Put(ctx, r)
	if err != nil {
		return c.report(ctx, "post status", transportErr("Could not upload image", err))
	}

	st := contract.Status{
		User:      me.Snapshot(),
		ImageURL:  url,
		Timestamp: time.Now().UnixMilli(),
	}
	if _, err := c.fs.Collection(contract.StatusCollection).NewDoc().Set(ctx, st); err != nil {
		return c.report(ctx, "post status", transportErr("Could not post status", err))
	}
	return nil
}

// watchStatuses starts the status feed once per session. The feed is a
// two-stage dependent subscription: the chats subscription maintains the
// connection set, and the status query is re-issued whenever that set
// changes.
func (c *Client) watchStatuses(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusStream != nil {
		return
	}
	c.inProgressStatus = true
	c.statusStream = newStream(context.Background(), func(ctx context.Context, _ *stream) {
		c.runStatusFeed(ctx, uid)
	})
}

func (c *Client) runStatusFeed(ctx context.Context, uid string) {
	it := c.chatsQuery(uid).Snapshots(ctx)
	defer it.Stop()

	var inner *stream
	defer func() {
		inner.stop()
	}()

	var conns []string
	for {
		snap, err := it.Next()
		if err != nil {
			if isCanceled(err) {
				return
			}
			c.report(ctx, "status feed", transportErr("Cannot retrieve statuses", err))
			c.mu.Lock()
			c.inProgressStatus = false
			c.mu.Unlock()
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			c.report(ctx, "status feed", transportErr("Cannot retrieve statuses", err))
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

		next := connectionSet(chats, uid)
		if sameConnections(conns, next) {
			continue
		}
		conns = next

		scoped := conns
		if len(scoped) > statusInLimit {
			log.LoggerFromContext(ctx).Warn("connection set truncated for status feed")
			scoped = scoped[:statusInLimit]
		}

		// the old status query must be fully stopped before the new one
		// starts, or a stale snapshot could overwrite a fresher list
		inner.stop()
		cutoff := time.Now().Add(-statusWindow).UnixMilli()
		inner = newStream(ctx, func(ctx context.Context, _ *stream) {
			c.runStatusQuery(ctx, cutoff, scoped)
		})
	}
}

func (c *Client) runStatusQuery(ctx context.Context, cutoff int64, conns []string) {
	it := c.fs.Collection(contract.StatusCollection).
		Where("timestamp", ">", cutoff).
		Where("user.userId", "in", conns).
		Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if isCanceled(err) {
				return
			}
			c.report(ctx, "status subscription", transportErr("Cannot retrieve statuses", err))
			c.mu.Lock()
			c.inProgressStatus = false
			c.mu.Unlock()
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			c.report(ctx, "status subscription", transportErr("Cannot retrieve statuses", err))
			continue
		}

		statuses := make([]contract.Status, 0, len(docs))
		for _, doc := range docs {
			var st contract.Status
			if err := doc.DataTo(&st); err != nil {
				continue
			}
			statuses = append(statuses, st)
		}

		c.mu.Lock()
		c.statuses = statuses
		c.inProgressStatus = false
		c.mu.Unlock()
		c.signal()
	}
}

// MyStatuses returns the signed-in user's own statuses from the feed.
func (c *Client) MyStatuses() []contract.Status {
	c.mu.Lock()
	statuses, uid := c.statuses, c.uid
	c.mu.Unlock()
	mine, _ := partitionStatuses(visibleStatuses(statuses, time.Now().UnixMilli()), uid)
	return mine
}

// OtherStatuses returns one entry per distinct other author, for the list
// view.
func (c *Client) OtherStatuses() []contract.Status {
	c.mu.Lock()
	statuses, uid := c.statuses, c.uid
	c.mu.Unlock()
	_, others := partitionStatuses(visibleStatuses(statuses, time.Now().UnixMilli()), uid)
	return distinctAuthors(others)
}

// Reel builds the detail view state for one author: all of their statuses
// in chronological order, shown one at a time.
func (c *Client) Reel(userID string) *StatusReel {
	c.mu.Lock()
	statuses := c.statuses
	c.mu.Unlock()
	return newReel(visibleStatuses(statuses, time.Now().UnixMilli()), userID)
}

// statusExpired mirrors the backend's "timestamp > cutoff" filter: a status
// is out of the feed exactly when ts <= now-24h.
func statusExpired(ts, now int64) bool {
	return ts <= now-statusWindow.Milliseconds()
}

// visibleStatuses drops statuses that expired after the backend query was
// issued; the query's cutoff is fixed at issue time, so the accessors apply
// the window again against the current clock.
func visibleStatuses(statuses []contract.Status, now int64) []contract.Status {
	out := make([]contract.Status, 0, len(statuses))
	for _, st := range statuses {
		if statusExpired(st.Timestamp, now) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// connectionSet is the current user plus every chat partner, the author set
// the status feed is scoped to.
func connectionSet(chats []contract.Chat, uid string) []string {
	conns := []string{uid}
	seen := map[string]bool{uid: true}
	for _, chat := range chats {
		partner := ChatPartner(chat, uid).UserID
		if partner == "" || seen[partner] {
			continue
		}
		seen[partner] = true
		conns = append(conns, partner)
	}
	return conns
}

// sameConnections compares connection sets ignoring order.
func sameConnections(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
	}
	return true
}

func partitionStatuses(statuses []contract.Status, uid string) (mine, others []contract.Status) {
	for _, st := range statuses {
		if st.User.UserID == uid {
			mine = append(mine, st)
		} else {
			others = append(others, st)
		}
	}
	return mine, others
}

// distinctAuthors keeps the first status of each author, preserving order
// of appearance.
func distinctAuthors(statuses []contract.Status) []contract.Status {
	seen := make(map[string]bool, len(statuses))
	out := make([]contract.Status, 0, len(statuses))
	for _, st := range statuses {
		if seen[st.User.UserID] {
			continue
		}
		seen[st.User.UserID] = true
		out = append(out, st)
	}
	return out
}

// StatusReel drives the per-author detail view: items in chronological
// order, one current item at a time, each shown for StatusItemDuration
// before the front-end calls Advance.
type StatusReel struct {
	Author contract.ChatUser
	Items  []contract.Status
	index  int
}

func newReel(statuses []contract.Status, userID string) *StatusReel {
	var items []contract.Status
	for _, st := range statuses {
		if st.User.UserID == userID {
			items = append(items, st)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp < items[j].Timestamp
	})

	reel := &StatusReel{Items: items}
	if len(items) > 0 {
		reel.Author = items[0].User
	}
	return reel
}

// Current returns the item on display; ok is false once the reel finished.
func (r *StatusReel) Current() (contract.Status, bool) {
	if r.index >= len(r.Items) {
		return contract.Status{}, false
	}
	return r.Items[r.index], true
}

// Advance moves to the next item. It reports false when the last item has
// completed, at which point the view closes or moves to the next author.
func (r *StatusReel) Advance() bool {
	if r.index >= len(r.Items) {
		return false
	}
	r.index++
	return r.index < len(r.Items)
}
