// AlumChat CLI - Command line client for the AlumLink messaging server
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dhruvjindal555/AlumLink-sub001/clients/go/alumchat"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("ALUMLINK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	token := os.Getenv("ALUMLINK_TOKEN")

	client := alumchat.NewClient(baseURL, token)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "stats":
		resp, err := client.Stats()
		exitOnError(err)
		printJSON(resp)

	case "contacts":
		resp, err := client.GetContacts()
		exitOnError(err)
		for _, c := range resp.Contacts {
			marker := " "
			if c.Unread > 0 {
				marker = "*"
			}
			fmt.Printf("%s %s  %s (%d unread)\n", marker, c.User.ID, c.Preview, c.Unread)
		}

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: alumchat read <user_id>")
			os.Exit(1)
		}
		resp, err := client.GetMessages(os.Args[2])
		exitOnError(err)
		for _, msg := range resp.Messages {
			ts := msg.CreatedAt.Format("2006-01-02 15:04:05")
			from := msg.SenderID
			if len(from) > 8 {
				from = from[:8]
			}
			fmt.Printf("[%s] %s: %s\n", ts, from, msg.Text)
		}

	case "who":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: alumchat who <user_id>")
			os.Exit(1)
		}
		resp, err := client.GetUser(os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "link":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: alumchat link <peer_user_id>")
			os.Exit(1)
		}
		resp, err := client.OpenThread(os.Args[2])
		exitOnError(err)
		fmt.Printf("Thread: %s\n", resp.ID)

	case "search":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: alumchat search <query>")
			os.Exit(1)
		}
		resp, err := client.Search(os.Args[2], 20)
		exitOnError(err)
		for _, r := range resp.Results {
			fmt.Printf("[%s] %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Text)
		}

	case "chat":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: alumchat chat <peer_user_id>")
			os.Exit(1)
		}
		runChat(client, os.Args[2])

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// runChat opens a live socket and relays stdin lines to the peer.
func runChat(client *alumchat.Client, peerID string) {
	sock, err := client.Connect()
	exitOnError(err)
	defer sock.Close()

	sock.On(alumchat.EventNewMessage, func(data json.RawMessage) {
		var msg struct {
			SenderName string    `json:"senderName"`
			Text       string    `json:"text"`
			Time       time.Time `json:"time"`
		}
		if json.Unmarshal(data, &msg) == nil {
			fmt.Printf("[%s] %s: %s\n", msg.Time.Format("15:04:05"), msg.SenderName, msg.Text)
		}
	})
	sock.On(alumchat.EventUserTyping, func(data json.RawMessage) {
		fmt.Println("... peer is typing")
	})
	sock.On(alumchat.EventAuthError, func(data json.RawMessage) {
		fmt.Fprintf(os.Stderr, "auth failed: %s\n", string(data))
	})
	sock.On(alumchat.EventMessageError, func(data json.RawMessage) {
		fmt.Fprintf(os.Stderr, "send failed: %s\n", string(data))
	})

	fmt.Println("Connected. Type messages, Ctrl-D to quit.")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				continue
			}
			if err := sock.SendMessage(peerID, text, nil, "text"); err != nil {
				fmt.Fprintf(os.Stderr, "send: %v\n", err)
				return
			}
		}
		sock.Close()
	}()

	<-sock.Done()
}

func usage() {
	fmt.Println(`AlumChat - AlumLink messaging client

Usage: alumchat <command> [args]

Environment:
  ALUMLINK_URL     Server URL (default http://localhost:8080)
  ALUMLINK_TOKEN   Bearer token issued by the platform

Commands:
  health              Check server health
  stats               Show platform statistics
  contacts            List conversations
  read <user_id>      Read the conversation with a user
  who <user_id>       Show a user profile
  link <user_id>      Link a user as a contact
  search <query>      Search your messages
  chat <user_id>      Live chat with a user`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
