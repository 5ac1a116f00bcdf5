// Package telephony is the REST client for the telephony vendor's call API.
package telephony

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// ErrPlacementFailed wraps any call-placement failure (network, auth, vendor
// rejection). Placement is never retried; it fails fast.
var ErrPlacementFailed = errors.New("call placement failed")

// Call is the vendor's view of a placed call.
type Call struct {
	SID    string `json:"sid"`
	From   string `json:"from"`
	To     string `json:"to"`
	Status string `json:"status"`
}

// Client talks to the vendor's 2010-04-01 call API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a vendor client calling from the given number.
func NewClient(accountSID, authToken, from string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com/2010-04-01",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// From returns the configured caller number.
func (c *Client) From() string {
	return c.from
}

// PlaceCall places an outbound call to an E.164 number. The opening
// call-control document travels inline with the request, and the vendor posts
// terminal status transitions to statusCallbackURL.
func (c *Client) PlaceCall(ctx context.Context, to, document, statusCallbackURL string) (*Call, error) {
	if c.accountSID == "" || c.authToken == "" {
		return nil, fmt.Errorf("%w: credentials not configured", ErrPlacementFailed)
	}

	reqURL := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)

	formData := url.Values{}
	formData.Set("From", c.from)
	formData.Set("To", to)
	formData.Set("Twiml", document)
	formData.Set("Record", "true")
	if statusCallbackURL != "" {
		formData.Set("StatusCallback", statusCallbackURL)
		formData.Set("StatusCallbackEvent", "completed")
		formData.Set("StatusCallbackMethod", "POST")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlacementFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlacementFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlacementFailed, err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: vendor API error (%d): %s", ErrPlacementFailed, resp.StatusCode, string(body))
	}

	var call Call
	if err := sonic.Unmarshal(body, &call); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrPlacementFailed, err)
	}
	if call.SID == "" {
		return nil, fmt.Errorf("%w: vendor response carried no call SID", ErrPlacementFailed)
	}

	return &call, nil
}

// IsTerminalStatus reports whether a status webhook value ends the call.
func IsTerminalStatus(status string) bool {
	switch status {
	case "completed", "failed", "busy", "no-answer", "canceled":
		return true
	}
	return false
}
