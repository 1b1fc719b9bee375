// Command archive exports chats and their message logs from Firestore into
// Postgres for backup and offline analysis. Chats and messages are never
// deleted remotely, so the export is append-only upserts.
package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"google.golang.org/api/iterator"

	"github.com/klipach/texter/config"
	"github.com/klipach/texter/contract"
	"github.com/klipach/texter/logger"
)

const dbDriver = "postgres"

var schema = `
CREATE TABLE IF NOT EXISTS chat (
    chat_id TEXT PRIMARY KEY,
    user_one_id TEXT NOT NULL,
    user_one_number TEXT NOT NULL,
    user_two_id TEXT NOT NULL,
    user_two_number TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS message (
    chat_id TEXT NOT NULL REFERENCES chat (chat_id),
    sent_by TEXT NOT NULL,
    message TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    PRIMARY KEY (chat_id, sent_by, timestamp)
);`

func main() {
	ctx := context.Background()

	projectID := config.Config("TEXTER_PROJECT_ID")
	if projectID == "" {
		log.Fatalf("TEXTER_PROJECT_ID is not set")
	}

	out := log.New(os.Stderr, "", log.LstdFlags)
	if metadata.OnGCE() {
		out = logger.New(ctx, projectID)
	}

	fs, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		log.Fatalf("failed to create firestore client: %v", err)
	}
	defer fs.Close()

	db, err := sqlx.Connect(dbDriver, config.Config("ARCHIVE_DB_SOURCE"))
	if err != nil {
		log.Fatalf("failed to connect to the database: %v", err)
	}
	defer db.Close()
	db.MustExec(schema)

	chatCount, msgCount := 0, 0

	it := fs.Collection(contract.ChatCollection).Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Fatalf("failed to read chats: %v", err)
		}

		var chat contract.Chat
		if err := doc.DataTo(&chat); err != nil {
			out.Printf("skipping malformed chat %s: %v", doc.Ref.ID, err)
			continue
		}

		db.MustExec(
			`INSERT INTO chat (chat_id, user_one_id, user_one_number, user_two_id, user_two_number)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (chat_id) DO NOTHING`,
			chat.ChatID, chat.UserOne.UserID, chat.UserOne.Number, chat.UserTwo.UserID, chat.UserTwo.Number,
		)
		chatCount++

		n, err := archiveMessages(ctx, out, db, doc.Ref, chat.ChatID)
		if err != nil {
			log.Fatalf("failed to archive messages of chat %s: %v", chat.ChatID, err)
		}
		msgCount += n
	}

	out.Printf("archived %d chats, %d messages", chatCount, msgCount)
}

func archiveMessages(ctx context.Context, out *log.Logger, db *sqlx.DB, chatRef *firestore.DocumentRef, chatID string) (int, error) {
	count := 0
	it := chatRef.Collection(contract.MessageCollection).Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			return count, nil
		}
		if err != nil {
			return count, err
		}

		var msg contract.Message
		if err := doc.DataTo(&msg); err != nil {
			out.Printf("skipping malformed message %s: %v", doc.Ref.ID, err)
			continue
		}

		db.MustExec(
			`INSERT INTO message (chat_id, sent_by, message, timestamp)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (chat_id, sent_by, timestamp) DO NOTHING`,
			chatID, msg.SentBy, msg.Message, msg.Timestamp,
		)
		count++
	}
}
