package texter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klipach/texter/auth"
	"github.com/klipach/texter/contract"
	"github.com/klipach/texter/notify"
)

// newTestClient builds a client with no backend attached; only code paths
// that return before any remote call may run against it.
func newTestClient() *Client {
	return &Client{
		relay:   notify.NewRelay(),
		policy:  bluemonday.StrictPolicy(),
		changed: make(chan struct{}, 1),
	}
}

func TestMergeUser(t *testing.T) {
	cur := contract.User{UserID: "u1", Name: "Alice", Number: "555", ImageURL: "http://img"}

	tests := []struct {
		name     string
		updName  string
		updNum   string
		updImage string
		expected contract.User
	}{
		{
			name:     "Name only, number preserved",
			updName:  "Bob",
			expected: contract.User{UserID: "u1", Name: "Bob", Number: "555", ImageURL: "http://img"},
		},
		{
			name:     "Image only",
			updImage: "http://new",
			expected: contract.User{UserID: "u1", Name: "Alice", Number: "555", ImageURL: "http://new"},
		},
		{
			name:     "All omitted keeps everything",
			expected: cur,
		},
		{
			name:     "Full update",
			updName:  "Bob",
			updNum:   "777",
			updImage: "http://new",
			expected: contract.User{UserID: "u1", Name: "Bob", Number: "777", ImageURL: "http://new"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeUser(cur, "u1", tt.updName, tt.updNum, tt.updImage)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSignUpValidation(t *testing.T) {
	c := newTestClient()

	err := c.SignUp(context.Background(), "", "555", "a@b.c", "secret")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, kind)
	assert.False(t, c.SignedIn(), "failed signup must not activate the session")

	msg, ok := c.Notification()
	require.True(t, ok)
	assert.Equal(t, "Please fill in all fields", msg)
}

func TestLogInValidation(t *testing.T) {
	c := newTestClient()

	err := c.LogIn(context.Background(), "a@b.c", "")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, kind)
	assert.False(t, c.SignedIn())
}

func TestUpdateProfileWithoutSession(t *testing.T) {
	c := newTestClient()

	err := c.UpdateProfile(context.Background(), "Bob", "")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, kind)
}

func TestSendMessageValidation(t *testing.T) {
	c := newTestClient()

	for _, text := range []string{"", "   ", "<script>alert(1)</script>"} {
		err := c.SendMessage(context.Background(), "chat1", text)
		kind, ok := KindOf(err)
		require.True(t, ok, "text %q", text)
		assert.Equal(t, KindValidation, kind, "text %q", text)
	}

	msg, ok := c.Notification()
	require.True(t, ok)
	assert.Equal(t, "Please enter a message", msg)
}

func TestAddChatValidation(t *testing.T) {
	c := newTestClient()

	err := c.AddChat(context.Background(), "not-a-number")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, kind)

	msg, ok := c.Notification()
	require.True(t, ok)
	assert.Equal(t, "Please enter a valid number", msg)
}

func TestLogOutClearsState(t *testing.T) {
	c := newTestClient()
	c.signedIn = true
	c.uid = "u1"
	c.user = contract.User{UserID: "u1", Name: "Alice"}
	c.hasUser = true
	c.chats = []contract.Chat{{ChatID: "c1"}}
	c.messages = []contract.Message{{Message: "hi"}}
	c.statuses = []contract.Status{{ImageURL: "img"}}

	c.LogOut()

	assert.False(t, c.SignedIn())
	assert.Equal(t, "", c.CurrentUserID())
	_, hasUser := c.CurrentUser()
	assert.False(t, hasUser)
	assert.Empty(t, c.Chats())
	assert.Empty(t, c.Messages())
	assert.Empty(t, c.Statuses())
	assert.False(t, c.InProgress())

	msg, ok := c.Notification()
	require.True(t, ok)
	assert.Equal(t, "Successfully logged out", msg)
}

func TestLogInFailureClearsBusyFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "INVALID_LOGIN_CREDENTIALS"},
		})
	}))
	defer srv.Close()

	c := newTestClient()
	c.provider = auth.NewClientWithBaseURL("test-key", srv.URL)

	err := c.LogIn(context.Background(), "a@b.c", "wrong")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, kind)
	assert.False(t, c.SignedIn(), "failed login must not activate the session")
	assert.False(t, c.InProgress(), "failed login must not leave the client busy")

	msg, ok := c.Notification()
	require.True(t, ok)
	assert.Contains(t, msg, "Login failed")
}

func TestLogOutStopsSubscriptionsStartedDuringDrain(t *testing.T) {
	c := newTestClient()
	c.signedIn = true
	c.uid = "u1"

	// Mimics a user snapshot still in flight at logout: the callback
	// registers the chats and status subscriptions while the user
	// subscription is being drained.
	started := make(chan struct{})
	c.mu.Lock()
	c.userStream = newStream(context.Background(), func(ctx context.Context, _ *stream) {
		close(started)
		<-ctx.Done()
		c.mu.Lock()
		if c.chatsStream == nil {
			c.chatsStream = newStream(context.Background(), func(ctx context.Context, _ *stream) {
				<-ctx.Done()
			})
		}
		if c.statusStream == nil {
			c.statusStream = newStream(context.Background(), func(ctx context.Context, _ *stream) {
				<-ctx.Done()
			})
		}
		c.mu.Unlock()
	})
	c.mu.Unlock()

	<-started
	c.LogOut()

	c.mu.Lock()
	chats, statuses := c.chatsStream, c.statusStream
	c.mu.Unlock()
	assert.Nil(t, chats, "a chats subscription started during logout survived it")
	assert.Nil(t, statuses, "a status subscription started during logout survived it")
	assert.False(t, c.SignedIn())
}
