package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// DefaultWebhookTolerance is the maximum accepted age of a signed webhook event
const DefaultWebhookTolerance = 5 * time.Minute

// Config holds configuration for the Stripe gateway
type Config struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string // Optional: override for tests
	Currency      string // Lowercase ISO currency code, e.g. "usd"
}

// Client talks to the Stripe REST API. All requests are form-encoded
// and authenticated with the secret key.
type Client struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	currency      string
	client        *http.Client
}

// NewClient creates a new Stripe client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	currency := config.Currency
	if currency == "" {
		currency = "usd"
	}
	return &Client{
		secretKey:     config.SecretKey,
		webhookSecret: config.WebhookSecret,
		baseURL:       baseURL,
		currency:      currency,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Error represents an error envelope returned by the Stripe API
type Error struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("stripe: %s (type=%s, code=%s, status=%d)", e.Message, e.Type, e.Code, e.StatusCode)
}

type errorEnvelope struct {
	Error Error `json:"error"`
}

// Customer represents a Stripe customer
type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// PaymentIntent represents a Stripe payment intent
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Customer     string            `json:"customer"`
	Metadata     map[string]string `json:"metadata"`
}

// SetupIntent represents a Stripe setup intent
type SetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Customer     string `json:"customer"`
}

// CheckoutSession represents a Stripe checkout session
type CheckoutSession struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Status   string `json:"status"`
	Customer string `json:"customer"`
}

// EphemeralKey represents a short-lived key for client-side SDK access
type EphemeralKey struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// Card holds the card summary on a payment method
type Card struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

// PaymentMethod represents a Stripe payment method
type PaymentMethod struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Card     *Card  `json:"card,omitempty"`
	Customer string `json:"customer"`
}

type paymentMethodList struct {
	Data []PaymentMethod `json:"data"`
}

// Event represents a webhook event envelope
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CreateCustomer creates a Stripe customer for a facility
func (c *Client) CreateCustomer(name, email, facilityID string) (*Customer, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("metadata[facility_id]", facilityID)

	var customer Customer
	if err := c.do(http.MethodPost, "/customers", form, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreatePaymentIntent creates a payment intent for a monthly invoice.
// The amount is in the smallest currency unit (cents).
func (c *Client) CreatePaymentIntent(amountCents int64, customerID, facilityID, month string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", c.currency)
	form.Set("customer", customerID)
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[facility_id]", facilityID)
	form.Set("metadata[month]", month)

	var intent PaymentIntent
	if err := c.do(http.MethodPost, "/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateSetupIntent creates a setup intent so a facility can save a card
// without an immediate charge
func (c *Client) CreateSetupIntent(customerID string) (*SetupIntent, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("usage", "off_session")

	var intent SetupIntent
	if err := c.do(http.MethodPost, "/setup_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateCheckoutSession creates a hosted checkout session for a monthly
// invoice. successURL and cancelURL are the redirect targets.
func (c *Client) CreateCheckoutSession(amountCents int64, customerID, facilityID, month, description, successURL, cancelURL string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer", customerID)
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", c.currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", description)
	form.Set("payment_intent_data[metadata][facility_id]", facilityID)
	form.Set("payment_intent_data[metadata][month]", month)

	var session CheckoutSession
	if err := c.do(http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateEphemeralKey creates a short-lived key that lets a client SDK
// act on a customer
func (c *Client) CreateEphemeralKey(customerID, apiVersion string) (*EphemeralKey, error) {
	form := url.Values{}
	form.Set("customer", customerID)

	req, err := c.newRequest(http.MethodPost, "/ephemeral_keys", form)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Stripe-Version", apiVersion)

	var key EphemeralKey
	if err := c.doRequest(req, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// ListPaymentMethods lists the card payment methods attached to a customer
func (c *Client) ListPaymentMethods(customerID string) ([]PaymentMethod, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("type", "card")

	var list paymentMethodList
	if err := c.do(http.MethodGet, "/payment_methods", form, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// AttachPaymentMethod attaches a payment method to a customer
func (c *Client) AttachPaymentMethod(paymentMethodID, customerID string) (*PaymentMethod, error) {
	form := url.Values{}
	form.Set("customer", customerID)

	var pm PaymentMethod
	if err := c.do(http.MethodPost, "/payment_methods/"+paymentMethodID+"/attach", form, &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}

// DetachPaymentMethod detaches a payment method from its customer
func (c *Client) DetachPaymentMethod(paymentMethodID string) error {
	return c.do(http.MethodPost, "/payment_methods/"+paymentMethodID+"/detach", url.Values{}, nil)
}

// VerifyWebhookSignature checks the Stripe-Signature header against the
// webhook secret and returns the parsed event on success. The header has
// the form "t=<unix>,v1=<hex hmac>"; the signed payload is "<t>.<body>".
func (c *Client) VerifyWebhookSignature(payload []byte, sigHeader string, tolerance time.Duration) (*Event, error) {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(sigHeader, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			timestamp = pair[1]
		case "v1":
			signatures = append(signatures, pair[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return nil, fmt.Errorf("stripe: malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("stripe: invalid signature timestamp: %w", err)
	}
	if tolerance > 0 && time.Since(time.Unix(ts, 0)) > tolerance {
		return nil, fmt.Errorf("stripe: signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("stripe: signature verification failed")
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("stripe: failed to parse event payload: %w", err)
	}
	return &event, nil
}

// do sends a form-encoded request and decodes the JSON response into out
func (c *Client) do(method, path string, form url.Values, out interface{}) error {
	req, err := c.newRequest(method, path, form)
	if err != nil {
		return err
	}
	return c.doRequest(req, out)
}

func (c *Client) newRequest(method, path string, form url.Values) (*http.Request, error) {
	var req *http.Request
	var err error

	if method == http.MethodGet {
		endpoint := c.baseURL + path
		if encoded := form.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}
		req, err = http.NewRequest(method, endpoint, nil)
	} else {
		req, err = http.NewRequest(method, c.baseURL+path, strings.NewReader(form.Encode()))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func (c *Client) doRequest(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
			return &Error{StatusCode: resp.StatusCode, Message: string(body)}
		}
		envelope.Error.StatusCode = resp.StatusCode
		return &envelope.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse stripe response: %w", err)
	}
	return nil
}
