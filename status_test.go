package texter

import (
	"reflect"
	"testing"
	"time"

	"github.com/klipach/texter/contract"
)

func TestStatusExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC).UnixMilli()
	window := statusWindow.Milliseconds()

	tests := []struct {
		name    string
		ts      int64
		expired bool
	}{
		{name: "Just inside the window", ts: now - window + 1, expired: false},
		{name: "Exactly at the cutoff", ts: now - window, expired: true},
		{name: "Just outside the window", ts: now - window - 1, expired: true},
		{name: "Fresh", ts: now, expired: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusExpired(tt.ts, now); got != tt.expired {
				t.Errorf("statusExpired(%d, %d) = %v; want %v", tt.ts, now, got, tt.expired)
			}
		})
	}
}

func TestConnectionSet(t *testing.T) {
	me := "me"
	tests := []struct {
		name     string
		chats    []contract.Chat
		expected []string
	}{
		{
			name:     "No chats",
			chats:    nil,
			expected: []string{"me"},
		},
		{
			name: "Partner on either side",
			chats: []contract.Chat{
				{UserOne: contract.ChatUser{UserID: "me"}, UserTwo: contract.ChatUser{UserID: "alice"}},
				{UserOne: contract.ChatUser{UserID: "bob"}, UserTwo: contract.ChatUser{UserID: "me"}},
			},
			expected: []string{"me", "alice", "bob"},
		},
		{
			name: "Duplicate partners collapse",
			chats: []contract.Chat{
				{UserOne: contract.ChatUser{UserID: "me"}, UserTwo: contract.ChatUser{UserID: "alice"}},
				{UserOne: contract.ChatUser{UserID: "alice"}, UserTwo: contract.ChatUser{UserID: "me"}},
			},
			expected: []string{"me", "alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := connectionSet(tt.chats, me); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("connectionSet() = %v; want %v", got, tt.expected)
			}
		})
	}
}

func TestSameConnections(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		same bool
	}{
		{name: "Equal ignoring order", a: []string{"me", "alice"}, b: []string{"alice", "me"}, same: true},
		{name: "Different member", a: []string{"me", "alice"}, b: []string{"me", "bob"}, same: false},
		{name: "Different length", a: []string{"me"}, b: []string{"me", "bob"}, same: false},
		{name: "Both empty", a: nil, b: nil, same: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameConnections(tt.a, tt.b); got != tt.same {
				t.Errorf("sameConnections(%v, %v) = %v; want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}

func TestPartitionAndDedupe(t *testing.T) {
	statuses := []contract.Status{
		{User: contract.ChatUser{UserID: "me"}, Timestamp: 1},
		{User: contract.ChatUser{UserID: "alice"}, Timestamp: 2},
		{User: contract.ChatUser{UserID: "alice"}, Timestamp: 3},
		{User: contract.ChatUser{UserID: "bob"}, Timestamp: 4},
	}

	mine, others := partitionStatuses(statuses, "me")
	if len(mine) != 1 || mine[0].User.UserID != "me" {
		t.Errorf("mine = %v; want only my statuses", mine)
	}
	if len(others) != 3 {
		t.Errorf("others = %v; want 3 statuses", others)
	}

	listed := distinctAuthors(others)
	if len(listed) != 2 || listed[0].User.UserID != "alice" || listed[1].User.UserID != "bob" {
		t.Errorf("distinctAuthors() = %v; want one entry per author in order", listed)
	}
}

func TestStatusReel(t *testing.T) {
	statuses := []contract.Status{
		{User: contract.ChatUser{UserID: "alice", Name: "Alice"}, ImageURL: "late", Timestamp: 3},
		{User: contract.ChatUser{UserID: "bob"}, ImageURL: "other", Timestamp: 2},
		{User: contract.ChatUser{UserID: "alice", Name: "Alice"}, ImageURL: "early", Timestamp: 1},
	}

	reel := newReel(statuses, "alice")
	if reel.Author.Name != "Alice" {
		t.Errorf("Author = %v; want Alice", reel.Author)
	}

	cur, ok := reel.Current()
	if !ok || cur.ImageURL != "early" {
		t.Fatalf("Current() = (%v, %v); want earliest item", cur, ok)
	}
	if !reel.Advance() {
		t.Fatal("Advance() finished early")
	}
	cur, _ = reel.Current()
	if cur.ImageURL != "late" {
		t.Errorf("Current() after advance = %v; want late", cur)
	}
	if reel.Advance() {
		t.Error("Advance() past last item reported more to show")
	}
	if _, ok := reel.Current(); ok {
		t.Error("Current() reported an item on a finished reel")
	}
}

func TestStatusReelEmpty(t *testing.T) {
	reel := newReel(nil, "ghost")
	if _, ok := reel.Current(); ok {
		t.Error("Current() reported an item for an author with no statuses")
	}
	if reel.Advance() {
		t.Error("Advance() on empty reel reported more to show")
	}
}
