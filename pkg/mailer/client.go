package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mailer sends transactional email. Implemented by Client against the
// mail provider's REST API, and by test doubles in handler tests.
type Mailer interface {
	Send(msg Message) error
}

// Message represents a single outbound email
type Message struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Config holds configuration for the mail gateway
type Config struct {
	BaseURL     string
	APIKey      string
	FromAddress string
}

// Client sends email via the provider's HTTP API
type Client struct {
	baseURL     string
	apiKey      string
	fromAddress string
	client      *http.Client
}

// NewClient creates a new mail gateway client
func NewClient(config Config) *Client {
	return &Client{
		baseURL:     config.BaseURL,
		apiKey:      config.APIKey,
		fromAddress: config.FromAddress,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendResponse represents the provider's send response structure
type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send delivers a single email. The From address defaults to the
// configured sender when the message leaves it empty.
func (c *Client) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mailer: recipient address is required")
	}
	if msg.From == "" {
		msg.From = c.fromAddress
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/emails", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read email response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var sendResp sendResponse
		if err := json.Unmarshal(body, &sendResp); err == nil && sendResp.Message != "" {
			return fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode, sendResp.Message)
		}
		return fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
