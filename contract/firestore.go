// Package contract holds the Firestore document shapes shared by the client
// and the offline tools. ChatUser values embedded in Chat and Status are
// snapshots taken at creation time; later profile edits do not rewrite them.
package contract

const (
	UserCollection    = "users"
	ChatCollection    = "chats"
	MessageCollection = "messages"
	StatusCollection  = "status"
)

type User struct {
	UserID   string `firestore:"userId"`
	Name     string `firestore:"name"`
	Number   string `firestore:"number"`
	ImageURL string `firestore:"imageUrl"`
}

// ChatUser is the denormalized participant snapshot stored inline in chats
// and statuses.
type ChatUser struct {
	UserID   string `firestore:"userId"`
	Name     string `firestore:"name"`
	Number   string `firestore:"number"`
	ImageURL string `firestore:"imageUrl"`
}

type Chat struct {
	ChatID  string   `firestore:"chatId"`
	UserOne ChatUser `firestore:"userOne"`
	UserTwo ChatUser `firestore:"userTwo"`
}

// Message lives in the chats/{id}/messages subcollection. Timestamp is an
// RFC 3339 UTC string with nanoseconds, so lexicographic order is temporal
// order.
type Message struct {
	SentBy    string `firestore:"sentBy"`
	Message   string `firestore:"message"`
	Timestamp string `firestore:"timestamp"`
}

// Status is an ephemeral image post. Timestamp is unix milliseconds; the
// feed only serves statuses newer than the trailing 24 hour window.
type Status struct {
	User      ChatUser `firestore:"user"`
	ImageURL  string   `firestore:"imageUrl"`
	Timestamp int64    `firestore:"timestamp"`
}

// Snapshot returns the denormalized participant view of a user.
func (u User) Snapshot() ChatUser {
	return ChatUser{
		UserID:   u.UserID,
		Name:     u.Name,
		Number:   u.Number,
		ImageURL: u.ImageURL,
	}
}
