// Package texter implements the application data-flow layer of the
// messaging client: session and profile handling, the chat directory, the
// per-chat message stream, the ephemeral status feed and the popup
// notification relay, all on top of the Firebase backend. State is owned by
// the Client and mutated only by operations and subscription callbacks; the
// presentation layer reads snapshots and listens on Updates.
package texter

import (
	"context"
	"log/slog"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/microcosm-cc/bluemonday"
	"google.golang.org/api/option"

	"github.com/klipach/texter/auth"
	"github.com/klipach/texter/config"
	"github.com/klipach/texter/contract"
	"github.com/klipach/texter/log"
	"github.com/klipach/texter/notify"
	"github.com/klipach/texter/upload"
)

const (
	errorMsgLogField = "errorMsg"
	userIDLogField   = "userID"
	chatIDLogField   = "chatID"
	numberLogField   = "number"
)

type Client struct {
	fs       *firestore.Client
	provider *auth.Client
	uploads  *upload.Uploader
	relay    *notify.Relay
	policy   *bluemonday.Policy

	mu       sync.Mutex
	signedIn bool
	uid      string
	user     contract.User
	hasUser  bool
	chats    []contract.Chat
	messages []contract.Message
	statuses []contract.Status

	inProgress         bool
	inProgressChats    bool
	inProgressMessages bool
	inProgressStatus   bool

	userStream   *stream
	chatsStream  *stream
	msgStream    *stream
	statusStream *stream

	changed chan struct{}
}

// New builds a client from the environment: TEXTER_PROJECT_ID (falling back
// to the GCE metadata server), TEXTER_API_KEY for the identity provider and
// TEXTER_STORAGE_BUCKET for image uploads. TEXTER_CREDENTIALS_FILE, when
// set, points at a service account key.
func New(ctx context.Context) (*Client, error) {
	projectID := config.Config("TEXTER_PROJECT_ID")
	if projectID == "" {
		var err error
		projectID, err = metadata.ProjectIDWithContext(ctx)
		if err != nil {
			return nil, err
		}
	}

	var opts []option.ClientOption
	if credsFile := config.Config("TEXTER_CREDENTIALS_FILE"); credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}

	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		fs.Close()
		return nil, err
	}

	return &Client{
		fs:       fs,
		provider: auth.NewClient(config.Config("TEXTER_API_KEY")),
		uploads:  upload.New(storageClient, config.Config("TEXTER_STORAGE_BUCKET")),
		relay:    notify.NewRelay(),
		policy:   bluemonday.StrictPolicy(),
		changed:  make(chan struct{}, 1),
	}, nil
}

// Close stops all live subscriptions and releases the backend connection.
func (c *Client) Close() error {
	c.stopStreams()
	return c.fs.Close()
}

// Updates is the change-notify contract with the presentation layer: the
// channel coalesces, a receive means "re-read whatever you display".
func (c *Client) Updates() <-chan struct{} {
	return c.changed
}

// Notification consumes the pending popup message, if any.
func (c *Client) Notification() (string, bool) {
	return c.relay.Take()
}

func (c *Client) SignedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signedIn
}

// CurrentUser returns the live profile of the signed-in user.
func (c *Client) CurrentUser() (contract.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.hasUser
}

// CurrentUserID returns the provider uid of the active session.
func (c *Client) CurrentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

func (c *Client) Chats() []contract.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]contract.Chat, len(c.chats))
	copy(out, c.chats)
	return out
}

func (c *Client) Messages() []contract.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]contract.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Client) Statuses() []contract.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]contract.Status, len(c.statuses))
	copy(out, c.statuses)
	return out
}

// InProgress reports whether any operation or subscription is mid-flight.
func (c *Client) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress || c.inProgressChats || c.inProgressMessages || c.inProgressStatus
}

// signal pokes Updates without blocking; a pending poke is enough.
func (c *Client) signal() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// report logs err, posts its human-readable message to the notification
// relay and hands it back to the caller. No error crosses to the
// presentation layer any other way.
func (c *Client) report(ctx context.Context, op string, err *Error) error {
	logger := log.LoggerFromContext(ctx)
	logger.Error(op, slog.String(errorMsgLogField, err.Error()))
	c.relay.Post(err.Error())
	c.signal()
	return err
}

func (c *Client) setInProgress(v bool) {
	c.mu.Lock()
	c.inProgress = v
	c.mu.Unlock()
	c.signal()
}

// stopStreams drains the user subscription first: it is the only starter of
// the chats and status subscriptions, so a snapshot still in flight can
// register new child streams while the drain is in progress. Only once it is
// down is the set of child streams complete and safe to capture and stop.
func (c *Client) stopStreams() {
	c.mu.Lock()
	user := c.userStream
	c.userStream = nil
	c.mu.Unlock()
	user.stop()

	c.mu.Lock()
	chats, msgs, statuses := c.chatsStream, c.msgStream, c.statusStream
	c.chatsStream, c.msgStream, c.statusStream = nil, nil, nil
	c.mu.Unlock()

	chats.stop()
	msgs.stop()
	statuses.stop()
}
