// Command gentoken mints a Firebase ID token for a user, for exercising the
// client against a real project: an Admin-SDK custom token is exchanged at
// the Identity Toolkit endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/klipach/texter/auth"
)

func main() {
	ctx := context.Background()
	uidPtr := flag.String("uid", "", "User UID for token generation")
	apiKeyPtr := flag.String("apikey", "", "Firebase API key for Identity Toolkit REST API")
	flag.Parse()

	if *uidPtr == "" {
		log.Fatalf("Please provide a user UID using the -uid flag")
	}

	absPath, err := filepath.Abs("./service_account_key.json")
	if err != nil {
		log.Fatalf("failed to get absolute path: %v", err)
	}
	opt := option.WithCredentialsFile(absPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("error getting Auth client: %v", err)
	}

	customToken, err := client.CustomToken(ctx, *uidPtr)
	if err != nil {
		log.Fatalf("error creating custom token: %v", err)
	}

	cred, err := auth.NewClient(*apiKeyPtr).ExchangeCustomToken(ctx, customToken)
	if err != nil {
		log.Fatalf("error exchanging custom token: %v", err)
	}

	fmt.Println(cred.IDToken)
}
