// Package alumchat provides a client for the AlumLink messaging server.
package alumchat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an AlumLink messaging API client.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client. The token is a platform-issued JWT.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("alumlink error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// SyncUserRequest is the request body for profile sync.
type SyncUserRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// SyncUserResponse is the response from profile sync.
type SyncUserResponse struct {
	ID         string `json:"id"`
	ProfileURL string `json:"profile_url"`
}

// SyncUser upserts a user profile on the messaging server.
func (c *Client) SyncUser(id, name, email, profileImage string) (*SyncUserResponse, error) {
	req := SyncUserRequest{ID: id, Name: name, Email: email, ProfileImage: profileImage}
	body, _ := json.Marshal(req)

	respBody, err := c.doRequest("POST", "/api/users", body)
	if err != nil {
		return nil, err
	}

	var resp SyncUserResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserProfile represents a user's profile.
type UserProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
	Online       bool   `json:"online"`
	LastActive   string `json:"last_active,omitempty"`
	JoinedAt     string `json:"joined_at"`
}

// GetUser gets a user's profile.
func (c *Client) GetUser(userID string) (*UserProfile, error) {
	respBody, err := c.doRequest("GET", "/api/users/"+userID, nil)
	if err != nil {
		return nil, err
	}

	var resp UserProfile
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Message represents a chat message.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text"`
	MediaURLs  []string  `json:"media_urls,omitempty"`
	MediaType  string    `json:"media_type,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessagesResponse is the response from fetching a conversation.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}

// GetMessages retrieves the full conversation with another user.
// The server marks the counterpart's messages as read.
func (c *Client) GetMessages(withUserID string) (*MessagesResponse, error) {
	respBody, err := c.doRequest("GET", "/api/messages?with="+url.QueryEscape(withUserID), nil)
	if err != nil {
		return nil, err
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Contact represents one conversation counterpart.
type Contact struct {
	User          UserProfile `json:"user"`
	Preview       string      `json:"preview"`
	LastMessageAt *time.Time  `json:"last_message_at,omitempty"`
	Unread        int64       `json:"unread"`
	Messages      []Message   `json:"messages"`
}

// ContactsResponse is the response from the contact list endpoint.
type ContactsResponse struct {
	Contacts []Contact `json:"contacts"`
	Count    int       `json:"count"`
}

// GetContacts lists every conversation counterpart, most recent first.
func (c *Client) GetContacts() (*ContactsResponse, error) {
	respBody, err := c.doRequest("GET", "/api/contacts", nil)
	if err != nil {
		return nil, err
	}

	var resp ContactsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OpenThreadRequest is the request body for opening a thread.
type OpenThreadRequest struct {
	PeerID string `json:"peer_id"`
}

// OpenThreadResponse is the response from opening a thread.
type OpenThreadResponse struct {
	ID            string           `json:"id"`
	Participants  []string         `json:"participants"`
	Preview       string           `json:"preview"`
	UnreadCounts  map[string]int64 `json:"unread_counts"`
	LastMessageAt string           `json:"last_message_at,omitempty"`
}

// OpenThread ensures a thread exists with a peer so they appear in
// both contact lists before any message is exchanged.
func (c *Client) OpenThread(peerID string) (*OpenThreadResponse, error) {
	req := OpenThreadRequest{PeerID: peerID}
	body, _ := json.Marshal(req)

	respBody, err := c.doRequest("POST", "/api/threads", body)
	if err != nil {
		return nil, err
	}

	var resp OpenThreadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchResponse is the response from searching messages.
type SearchResponse struct {
	Query   string    `json:"query"`
	Results []Message `json:"results"`
	Total   int       `json:"total"`
}

// Search searches the caller's messages.
func (c *Client) Search(query string, limit int) (*SearchResponse, error) {
	path := fmt.Sprintf("/api/messages/search?q=%s&limit=%d", url.QueryEscape(query), limit)

	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsResponse is the response from the stats endpoint.
type StatsResponse struct {
	TotalUsers    int64  `json:"total_users"`
	TotalThreads  int64  `json:"total_threads"`
	TotalMessages int64  `json:"total_messages"`
	OnlineUsers   int    `json:"online_users"`
	Timestamp     string `json:"timestamp"`
}

// Stats gets platform statistics.
func (c *Client) Stats() (*StatsResponse, error) {
	respBody, err := c.doRequest("GET", "/api/stats", nil)
	if err != nil {
		return nil, err
	}

	var resp StatsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Region    string                 `json:"region,omitempty"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
