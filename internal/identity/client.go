package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hivecinema/hive/internal/fault"
)

// Client calls the identity service with signed requests.  The only call the
// reservation core makes today is the email lookup used as a fallback when a
// ticket was created without an email claim on the principal.
type Client struct {
	baseURL      string
	serviceID    string
	sharedSecret string
	httpClient   *http.Client
}

// NewClient returns a client for the identity service at baseURL.
func NewClient(baseURL, serviceID, sharedSecret string) *Client {
	return &Client{
		baseURL:      baseURL,
		serviceID:    serviceID,
		sharedSecret: sharedSecret,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

// sign attaches the three S2S headers to the request.
func (c *Client) sign(req *http.Request) {
	now := time.Now().UTC()
	req.Header.Set(HeaderServiceID, c.serviceID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
	req.Header.Set(HeaderSignature, Sign(c.serviceID, c.sharedSecret, now))
}

// GetUserEmail resolves a principal id to the account email.
func (c *Client) GetUserEmail(ctx context.Context, userID string) (string, error) {
	url := fmt.Sprintf("%s/internal/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, "build identity request", err)
	}
	c.sign(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, "call identity service", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fault.NotFound("user")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fault.Newf(fault.KindInternal, "identity service returned %d", resp.StatusCode)
	}
	var body struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fault.Wrap(fault.KindInternal, "decode identity response", err)
	}
	return body.Email, nil
}
