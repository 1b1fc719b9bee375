package texter

import (
	"context"
	"io"
	"log/slog"

	"github.com/klipach/texter/contract"
	"github.com/klipach/texter/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SignUp creates an auth credential and the user record, then activates the
// session. The number must not already be bound to an existing user.
func (c *Client) SignUp(ctx context.Context, name, number, email, password string) error {
	if name == "" || number == "" || email == "" || password == "" {
		return c.report(ctx, "signup", validationErr("Please fill in all fields"))
	}

	c.setInProgress(true)

	docs, err := c.fs.Collection(contract.UserCollection).
		Where("number", "==", number).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		c.setInProgress(false)
		return c.report(ctx, "signup", transportErr("Signup failed", err))
	}
	if len(docs) > 0 {
		c.setInProgress(false)
		return c.report(ctx, "signup", conflictErr("Number already registered"))
	}

	cred, err := c.provider.SignUp(ctx, email, password)
	if err != nil {
		c.setInProgress(false)
		return c.report(ctx, "signup", authErr("Signup failed", err))
	}

	c.mu.Lock()
	c.signedIn = true
	c.uid = cred.UID
	c.mu.Unlock()
	c.signal()

	log.LoggerFromContext(ctx).Info("signed up", slog.String(userIDLogField, cred.UID))

	return c.createOrUpdateProfile(ctx, name, number, "")
}

// LogIn activates the session and begins the live subscription to the
// caller's user record; chats and statuses populate from there.
func (c *Client) LogIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return c.report(ctx, "login", validationErr("Please fill all fields"))
	}

	c.setInProgress(true)

	cred, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		c.setInProgress(false)
		return c.report(ctx, "login", authErr("Login failed", err))
	}

	c.mu.Lock()
	c.signedIn = true
	c.uid = cred.UID
	c.mu.Unlock()
	c.signal()

	log.LoggerFromContext(ctx).Info("logged in", slog.String(userIDLogField, cred.UID))

	// the user subscription owns the busy flag from here; it stays set
	// until the first snapshot arrives
	c.watchUser(cred.UID)
	return nil
}

// Resume re-activates a previously stored session, re-opening the user
// record subscription. Used on startup when a uid was persisted.
func (c *Client) Resume(uid string) {
	if uid == "" {
		return
	}
	c.mu.Lock()
	c.signedIn = true
	c.uid = uid
	c.mu.Unlock()
	c.signal()
	c.watchUser(uid)
}

// LogOut stops every live subscription, then clears the session and all
// cached state. Remote data is left untouched.
func (c *Client) LogOut() {
	c.stopStreams()

	c.mu.Lock()
	c.signedIn = false
	c.uid = ""
	c.user = contract.User{}
	c.hasUser = false
	c.chats = nil
	c.messages = nil
	c.statuses = nil
	c.inProgress = false
	c.inProgressChats = false
	c.inProgressMessages = false
	c.inProgressStatus = false
	c.mu.Unlock()

	c.relay.Post("Successfully logged out")
	c.signal()
}

// UpdateProfile updates name and number; an empty argument keeps the
// previously loaded value.
func (c *Client) UpdateProfile(ctx context.Context, name, number string) error {
	return c.createOrUpdateProfile(ctx, name, number, "")
}

// UploadProfilePicture uploads the image to blob storage and points the
// profile at the resulting URL.
func (c *Client) UploadProfilePicture(ctx context.Context, r io.Reader) error {
	c.setInProgress(true)

	url, err := c.uploads.Put(ctx, r)
	if err != nil {
		c.setInProgress(false)
		return c.report(ctx, "upload profile picture", transportErr("Could not upload image", err))
	}
	return c.createOrUpdateProfile(ctx, "", "", url)
}

func (c *Client) createOrUpdateProfile(ctx context.Context, name, number, imageURL string) error {
	c.mu.Lock()
	uid := c.uid
	cur := c.user
	c.mu.Unlock()

	if uid == "" {
		return c.report(ctx, "update profile", notFoundErr("No active session"))
	}

	user := mergeUser(cur, uid, name, number, imageURL)

	c.setInProgress(true)

	ref := c.fs.Collection(contract.UserCollection).Doc(uid)
	snap, err := ref.Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		c.setInProgress(false)
		return c.report(ctx, "update profile", transportErr("Cannot retrieve user", err))
	}

	if snap != nil && snap.Exists() {
		if _, err := ref.Set(ctx, user); err != nil {
			c.setInProgress(false)
			return c.report(ctx, "update profile", transportErr("Could not update user", err))
		}
		c.setInProgress(false)
		return nil
	}

	if _, err := ref.Set(ctx, user); err != nil {
		c.setInProgress(false)
		return c.report(ctx, "update profile", transportErr("Could not create user", err))
	}
	// created: the fresh user subscription keeps the busy flag set until
	// the first snapshot arrives
	c.watchUser(uid)
	return nil
}

// mergeUser applies a partial profile update: empty arguments keep the
// previously loaded value, so an omitted field is never reset.
func mergeUser(cur contract.User, uid, name, number, imageURL string) contract.User {
	user := contract.User{
		UserID:   uid,
		Name:     name,
		Number:   number,
		ImageURL: imageURL,
	}
	if user.Name == "" {
		user.Name = cur.Name
	}
	if user.Number == "" {
		user.Number = cur.Number
	}
	if user.ImageURL == "" {
		user.ImageURL = cur.ImageURL
	}
	return user
}

// watchUser replaces the user record subscription. Every snapshot refreshes
// the in-memory profile; the first one also starts the chats and status
// subscriptions.
func (c *Client) watchUser(uid string) {
	c.mu.Lock()
	prev := c.userStream
	c.userStream = nil
	c.mu.Unlock()
	prev.stop()

	c.mu.Lock()
	c.inProgress = true
	c.userStream = newStream(context.Background(), func(ctx context.Context, _ *stream) {
		c.runUser(ctx, uid)
	})
	c.mu.Unlock()
}

func (c *Client) runUser(ctx context.Context, uid string) {
	it := c.fs.Collection(contract.UserCollection).Doc(uid).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if isCanceled(err) {
				return
			}
			c.report(ctx, "user subscription", transportErr("Cannot retrieve user data", err))
			c.mu.Lock()
			c.inProgress = false
			c.mu.Unlock()
			return
		}
		if !snap.Exists() {
			continue
		}

		var user contract.User
		if err := snap.DataTo(&user); err != nil {
			c.report(ctx, "user subscription", transportErr("Cannot retrieve user data", err))
			continue
		}

		c.mu.Lock()
		c.user = user
		c.hasUser = true
		c.inProgress = false
		c.mu.Unlock()
		c.signal()

		c.watchChats(uid)
		c.watchStatuses(uid)
	}
}
