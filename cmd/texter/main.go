// Command texter is a minimal terminal front-end over the client: it drives
// the session, chat and status operations and prints whatever the shared
// state currently holds.
package main

import (
	"bufio"
	"context"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/klipach/texter"
	"github.com/klipach/texter/log"
)

func main() {
	logger := slog.New(log.NewCloudLoggingHandler())
	ctx := log.WithLogger(context.Background(), logger)

	client, err := texter.New(ctx)
	if err != nil {
		stdlog.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	fmt.Println("texter: signup | login | logout | profile [name] [number] | setpic <file>")
	fmt.Println("        chats | addchat <number> | open <n> | send <text> | close")
	fmt.Println("        statuses | view <userId> | poststatus <file> | quit")

	scanner := bufio.NewScanner(os.Stdin)
	currentChatID := ""
	for prompt(); scanner.Scan(); prompt() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit":
			return
		case "signup":
			name := ask(scanner, "name")
			number := ask(scanner, "number")
			email := ask(scanner, "email")
			password := ask(scanner, "password")
			_ = client.SignUp(ctx, name, number, email, password)
		case "login":
			email := ask(scanner, "email")
			password := ask(scanner, "password")
			_ = client.LogIn(ctx, email, password)
		case "logout":
			client.LogOut()
		case "profile":
			name, number := "", ""
			if len(args) > 0 {
				name = args[0]
			}
			if len(args) > 1 {
				number = args[1]
			}
			if name == "" && number == "" {
				if user, ok := client.CurrentUser(); ok {
					fmt.Printf("%s (%s) %s\n", user.Name, user.Number, user.ImageURL)
				}
				continue
			}
			_ = client.UpdateProfile(ctx, name, number)
		case "setpic":
			withFile(args, func(f *os.File) {
				_ = client.UploadProfilePicture(ctx, f)
			})
		case "chats":
			uid := client.CurrentUserID()
			for i, chat := range client.Chats() {
				partner := texter.ChatPartner(chat, uid)
				fmt.Printf("%d: %s (%s)\n", i, partner.Name, partner.Number)
			}
		case "addchat":
			if len(args) == 1 {
				_ = client.AddChat(ctx, args[0])
			}
		case "open":
			if len(args) == 1 {
				if n, err := strconv.Atoi(args[0]); err == nil {
					chats := client.Chats()
					if n >= 0 && n < len(chats) {
						currentChatID = chats[n].ChatID
						client.OpenChat(currentChatID)
						printMessages(client)
					}
				}
			}
		case "send":
			if len(args) > 0 && currentChatID != "" {
				_ = client.SendMessage(ctx, currentChatID, strings.Join(args, " "))
				printMessages(client)
			}
		case "close":
			currentChatID = ""
			client.CloseChat()
		case "statuses":
			for _, st := range client.MyStatuses() {
				fmt.Printf("mine: %s\n", st.ImageURL)
			}
			for _, st := range client.OtherStatuses() {
				fmt.Printf("%s (%s): %s\n", st.User.Name, st.User.UserID, st.ImageURL)
			}
		case "view":
			if len(args) == 1 {
				playReel(client, args[0])
			}
		case "poststatus":
			withFile(args, func(f *os.File) {
				_ = client.PostStatus(ctx, f)
			})
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}

		if msg, ok := client.Notification(); ok {
			fmt.Printf("! %s\n", msg)
		}
	}
}

func prompt() {
	fmt.Print("> ")
}

func ask(scanner *bufio.Scanner, field string) string {
	fmt.Printf("%s: ", field)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func withFile(args []string, fn func(f *os.File)) {
	if len(args) != 1 {
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	defer f.Close()
	fn(f)
}

func printMessages(client *texter.Client) {
	uid := client.CurrentUserID()
	for _, msg := range client.Messages() {
		who := "them"
		if msg.SentBy == uid {
			who = "me"
		}
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp, who, msg.Message)
	}
}

func playReel(client *texter.Client, userID string) {
	reel := client.Reel(userID)
	for {
		st, ok := reel.Current()
		if !ok {
			return
		}
		fmt.Printf("%s: %s (shown for %s)\n", reel.Author.Name, st.ImageURL, texter.StatusItemDuration)
		if !reel.Advance() {
			return
		}
	}
}
