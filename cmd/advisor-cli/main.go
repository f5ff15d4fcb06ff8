// Command advisor-cli is an interactive terminal client for the advisor
// service. Answers come back as markdown and are rendered in place.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type options struct {
	serverURL string
	userID    string
	sessionID string
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "advisor-cli",
		Short: "Chat with the financial advisor service from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sessionID == "" {
				opts.sessionID = uuid.NewString()
			}
			return runChat(opts)
		},
	}

	root.Flags().StringVar(&opts.serverURL, "server", "http://localhost:8080", "advisor service base URL")
	root.Flags().StringVar(&opts.userID, "user", "anonymous", "user identifier sent with each query")
	root.Flags().StringVar(&opts.sessionID, "session", "", "session identifier (generated when empty)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runChat(opts *options) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}

	client := &http.Client{Timeout: 120 * time.Second}

	fmt.Printf("Connected to %s as %s (session %s)\n", opts.serverURL, opts.userID, opts.sessionID)
	fmt.Println("Type a question, /new for a fresh session, /exit to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit":
			return nil
		case line == "/new":
			if err := startNewSession(client, opts); err != nil {
				fmt.Fprintf(os.Stderr, "new session failed: %v\n", err)
				continue
			}
			fmt.Printf("Started session %s (previous sessions were cleared)\n", opts.sessionID)
			continue
		}

		answer, err := sendQuery(client, opts, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		rendered, err := renderer.Render(answer)
		if err != nil {
			fmt.Println(answer)
			continue
		}
		fmt.Print(rendered)
	}
}

type chatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

func sendQuery(client *http.Client, opts *options, query string) (string, error) {
	body, err := json.Marshal(chatRequest{Query: query, SessionID: opts.sessionID})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/agent/chat?user_id=%s", opts.serverURL, opts.userID)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, raw)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("%s", out.Error)
		}
		return "", fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out.SessionID != "" {
		opts.sessionID = out.SessionID
	}
	return out.Response, nil
}

func startNewSession(client *http.Client, opts *options) error {
	next := uuid.NewString()
	body, _ := json.Marshal(map[string]string{"session_id": next})

	url := fmt.Sprintf("%s/agent/session?user_id=%s", opts.serverURL, opts.userID)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, raw)
	}
	opts.sessionID = next
	return nil
}
