package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/auth"
)

func main() {
	userIDStr := flag.String("user", "", "User UUID")
	name := flag.String("name", "", "Display name embedded in the token")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *userIDStr == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: token -user <user-uuid> [-name <display-name>] [-secret <hmac-secret>] [-ttl <duration>]")
		fmt.Fprintln(os.Stderr, "  Secret falls back to the JWT_SECRET environment variable")
		os.Exit(1)
	}

	userID, err := uuid.Parse(*userIDStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid user ID: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.NewJWT(*secret).Sign(userID, *name, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
